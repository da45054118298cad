package pdbtest

const msfMagic = "Microsoft C/C++ MSF 7.00\r\n\x1a\x44\x53\x00\x00\x00"

// MSF lays out streams in a BigMsf container with the given block size.
// A nil stream is written as a deleted stream.
func MSF(blockSize uint32, streams ...[]byte) []byte {
	var blocks [][]byte
	alloc := func(data []byte) []uint32 {
		var idx []uint32
		for off := 0; off < len(data); off += int(blockSize) {
			end := min(off+int(blockSize), len(data))
			idx = append(idx, uint32(len(blocks)))
			blocks = append(blocks, data[off:end])
		}
		return idx
	}

	// Superblock and the two free page maps.
	blocks = append(blocks, nil, nil, nil)

	dir := &Writer{}
	dir.U32(uint32(len(streams)))
	for _, s := range streams {
		if s == nil {
			dir.U32(0xFFFFFFFF)
			continue
		}
		dir.U32(uint32(len(s)))
	}
	for _, s := range streams {
		for _, b := range alloc(s) {
			dir.U32(b)
		}
	}

	dirBlocks := alloc(dir.Bytes())
	blockMap := &Writer{}
	for _, b := range dirBlocks {
		blockMap.U32(b)
	}
	blockMapAddr := alloc(blockMap.Bytes())[0]

	sb := &Writer{}
	sb.Raw([]byte(msfMagic)).U32(blockSize).U32(1).U32(uint32(len(blocks))).
		U32(uint32(dir.Len())).U32(0).U32(blockMapAddr)
	blocks[0] = sb.Bytes()

	out := make([]byte, len(blocks)*int(blockSize))
	for i, b := range blocks {
		copy(out[i*int(blockSize):], b)
	}
	return out
}
