package msf

import (
	"fmt"
	"io"
)

// Stream reads one MSF stream across its non-contiguous blocks.
// It implements io.ReaderAt.
type Stream struct {
	file   *File
	blocks []uint32
	size   uint32
}

// Size returns the stream length in bytes.
func (s *Stream) Size() uint32 { return s.size }

// ReadAt implements io.ReaderAt, crossing block boundaries transparently.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("msf: negative offset: %d", off)
	}
	if off >= int64(s.size) {
		return 0, io.EOF
	}

	bs := int64(s.file.sb.BlockSize)
	total := 0
	for len(p) > 0 && off < int64(s.size) {
		block := off / bs
		within := off % bs
		if block >= int64(len(s.blocks)) {
			return total, io.ErrUnexpectedEOF
		}

		n := min(int64(len(p)), bs-within, int64(s.size)-off)
		read, err := s.file.data.ReadAt(p[:n], s.file.offset(s.blocks[block])+within)
		total += read
		off += int64(read)
		p = p[read:]
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return total, err
		}
	}
	if len(p) > 0 {
		return total, io.EOF
	}
	return total, nil
}

// Bytes reads the whole stream.
func (s *Stream) Bytes() ([]byte, error) {
	return readBlocks(s.file, s.blocks, s.size)
}

func readBlocks(f *File, blocks []uint32, size uint32) ([]byte, error) {
	out := make([]byte, size)
	bs := f.sb.BlockSize
	for i, b := range blocks {
		if b >= f.sb.NumBlocks {
			return nil, fmt.Errorf("%w: %d >= %d", ErrInvalidBlockIndex, b, f.sb.NumBlocks)
		}
		start := uint32(i) * bs
		if start >= size {
			break
		}
		end := min(start+bs, size)
		if _, err := f.data.ReadAt(out[start:end], f.offset(b)); err != nil {
			return nil, fmt.Errorf("msf: failed to read block %d: %w", b, err)
		}
	}
	if uint64(len(blocks))*uint64(bs) < uint64(size) {
		return nil, fmt.Errorf("%w: %d blocks for %d bytes", ErrTruncatedFile, len(blocks), size)
	}
	return out, nil
}
