// Package msf provides parsing for the MSF (Multi-Stream File) container format
// used by Microsoft PDB files.
package msf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Magic signature for PDB 7.0 format (BigMsf)
const Magic = "Microsoft C/C++ MSF 7.00\r\n\x1a\x44\x53\x00\x00\x00"

// SuperBlockSize is the total size of the SuperBlock structure
const SuperBlockSize = 56

// Valid block size range
const (
	BlockSizeMin uint32 = 512
	BlockSizeMax uint32 = 65536
)

// NilStreamSize indicates a deleted or nil stream
const NilStreamSize = 0xFFFFFFFF

// Well-known stream indices
const (
	StreamOldDirectory = 0 // Old MSF directory (unused in PDB 7.0)
	StreamPDBInfo      = 1 // PDB Info stream (GUID, age, named streams)
	StreamTPI          = 2 // Type Program Information
	StreamDBI          = 3 // Debug Information
	StreamIPI          = 4 // ID Program Information
)

// Errors
var (
	ErrInvalidMagic       = errors.New("msf: invalid magic signature, not a valid PDB file")
	ErrInvalidBlockSize   = errors.New("msf: invalid block size")
	ErrInvalidFPMBlock    = errors.New("msf: invalid free block map block index")
	ErrTruncatedFile      = errors.New("msf: file is truncated")
	ErrTruncatedDirectory = errors.New("msf: truncated stream directory")
	ErrInvalidStreamIndex = errors.New("msf: invalid stream index")
	ErrInvalidBlockIndex  = errors.New("msf: invalid block index")
	ErrNilStream          = errors.New("msf: stream is nil")
)

// SuperBlock is located at file offset 0 and describes the block layout
// and the location of the stream directory.
type SuperBlock struct {
	FileMagic [32]byte

	// BlockSize is a power of two between 512 and 65536.
	BlockSize uint32

	// FreeBlockMapBlock is the index of the active FPM block (1 or 2).
	FreeBlockMapBlock uint32

	NumBlocks         uint32
	NumDirectoryBytes uint32
	Unknown           uint32

	// BlockMapAddr is the block holding the indices of the directory blocks.
	BlockMapAddr uint32
}

// Validate checks the SuperBlock for internal consistency.
func (sb *SuperBlock) Validate() error {
	if string(sb.FileMagic[:]) != Magic {
		return ErrInvalidMagic
	}
	if sb.BlockSize < BlockSizeMin || sb.BlockSize > BlockSizeMax || sb.BlockSize&(sb.BlockSize-1) != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBlockSize, sb.BlockSize)
	}
	if sb.FreeBlockMapBlock != 1 && sb.FreeBlockMapBlock != 2 {
		return ErrInvalidFPMBlock
	}
	if sb.BlockMapAddr >= sb.NumBlocks {
		return fmt.Errorf("%w: block map at %d of %d", ErrInvalidBlockIndex, sb.BlockMapAddr, sb.NumBlocks)
	}
	return nil
}

func (sb *SuperBlock) numDirectoryBlocks() uint32 {
	return blocksFor(sb.NumDirectoryBytes, sb.BlockSize)
}

func blocksFor(size, blockSize uint32) uint32 {
	return uint32((uint64(size) + uint64(blockSize) - 1) / uint64(blockSize))
}

// StreamDirectory lists the size and block indices of every stream.
type StreamDirectory struct {
	StreamSizes  []uint32
	StreamBlocks [][]uint32
}

// NumStreams returns the number of directory entries.
func (d *StreamDirectory) NumStreams() int { return len(d.StreamSizes) }

// File represents an opened MSF file. The stream directory is read on
// first use; afterwards the File is safe for concurrent stream reads.
type File struct {
	data   io.ReaderAt
	closer io.Closer
	sb     SuperBlock

	dirOnce sync.Once
	dir     *StreamDirectory
	dirErr  error
}

// Open opens an MSF file from the given path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	m, err := NewFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	m.closer = f
	return m, nil
}

// NewFile reads an MSF container from r. The caller keeps ownership of r.
func NewFile(r io.ReaderAt, size int64) (*File, error) {
	if size < SuperBlockSize {
		return nil, ErrTruncatedFile
	}

	m := &File{data: r}
	if err := binary.Read(io.NewSectionReader(r, 0, SuperBlockSize), binary.LittleEndian, &m.sb); err != nil {
		return nil, fmt.Errorf("msf: failed to read superblock: %w", err)
	}
	if err := m.sb.Validate(); err != nil {
		return nil, err
	}
	if want := int64(m.sb.NumBlocks) * int64(m.sb.BlockSize); size < want {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrTruncatedFile, size, want)
	}
	return m, nil
}

// Close releases the file opened by Open.
func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// SuperBlock returns the MSF superblock.
func (f *File) SuperBlock() SuperBlock { return f.sb }

// Directory returns the stream directory.
func (f *File) Directory() (*StreamDirectory, error) {
	f.dirOnce.Do(func() {
		f.dir, f.dirErr = f.readDirectory()
	})
	return f.dir, f.dirErr
}

func (f *File) readDirectory() (*StreamDirectory, error) {
	bs := f.sb.BlockSize
	n := f.sb.numDirectoryBlocks()

	// The block map may itself span consecutive blocks.
	mapBlocks := blocksFor(n*4, bs)
	blockMap := make([]byte, n*4)
	for i := range mapBlocks {
		off := i * bs
		end := min(off+bs, uint32(len(blockMap)))
		if _, err := f.data.ReadAt(blockMap[off:end], f.offset(f.sb.BlockMapAddr+i)); err != nil {
			return nil, fmt.Errorf("msf: failed to read block map: %w", err)
		}
	}

	blocks := make([]uint32, n)
	for i := range blocks {
		blocks[i] = binary.LittleEndian.Uint32(blockMap[i*4:])
	}
	raw, err := readBlocks(f, blocks, f.sb.NumDirectoryBytes)
	if err != nil {
		return nil, err
	}
	return parseDirectory(raw, bs)
}

func parseDirectory(data []byte, blockSize uint32) (*StreamDirectory, error) {
	next := func() (uint32, error) {
		if len(data) < 4 {
			return 0, ErrTruncatedDirectory
		}
		v := binary.LittleEndian.Uint32(data)
		data = data[4:]
		return v, nil
	}

	count, err := next()
	if err != nil {
		return nil, err
	}
	if uint64(count)*4 > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d streams", ErrTruncatedDirectory, count)
	}

	dir := &StreamDirectory{
		StreamSizes:  make([]uint32, count),
		StreamBlocks: make([][]uint32, count),
	}
	for i := range dir.StreamSizes {
		dir.StreamSizes[i], _ = next()
	}
	for i, size := range dir.StreamSizes {
		if size == NilStreamSize {
			continue
		}
		nb := blocksFor(size, blockSize)
		if uint64(nb)*4 > uint64(len(data)) {
			return nil, fmt.Errorf("%w: stream %d", ErrTruncatedDirectory, i)
		}
		dir.StreamBlocks[i] = make([]uint32, nb)
		for j := range dir.StreamBlocks[i] {
			dir.StreamBlocks[i][j], _ = next()
		}
	}
	return dir, nil
}

func (f *File) offset(block uint32) int64 {
	return int64(block) * int64(f.sb.BlockSize)
}

// StreamExists reports whether stream index is present and not nil.
func (f *File) StreamExists(index uint32) bool {
	dir, err := f.Directory()
	if err != nil || int64(index) >= int64(dir.NumStreams()) {
		return false
	}
	return dir.StreamSizes[index] != NilStreamSize
}

// OpenStream returns a reader over stream index.
func (f *File) OpenStream(index uint32) (*Stream, error) {
	dir, err := f.Directory()
	if err != nil {
		return nil, err
	}
	if int64(index) >= int64(dir.NumStreams()) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStreamIndex, index)
	}
	size := dir.StreamSizes[index]
	if size == NilStreamSize {
		return nil, fmt.Errorf("%w: %d", ErrNilStream, index)
	}
	for _, b := range dir.StreamBlocks[index] {
		if b >= f.sb.NumBlocks {
			return nil, fmt.Errorf("%w: stream %d references block %d", ErrInvalidBlockIndex, index, b)
		}
	}
	return &Stream{file: f, blocks: dir.StreamBlocks[index], size: size}, nil
}

// ReadStream reads an entire stream into memory.
func (f *File) ReadStream(index uint32) ([]byte, error) {
	s, err := f.OpenStream(index)
	if err != nil {
		return nil, err
	}
	return s.Bytes()
}
