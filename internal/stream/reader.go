// Package stream provides binary reading utilities for PDB parsing.
package stream

import (
	"encoding/binary"
	"errors"
)

// Errors returned by Reader
var (
	ErrUnexpectedEOF  = errors.New("stream: unexpected end of data")
	ErrNegativeLength = errors.New("stream: negative length")
	ErrInvalidNumeric = errors.New("stream: invalid numeric encoding")
)

// Numeric leaf prefixes. Values below LeafNumeric are stored inline.
const (
	LeafNumeric   uint16 = 0x8000
	LeafChar      uint16 = 0x8000
	LeafShort     uint16 = 0x8001
	LeafUShort    uint16 = 0x8002
	LeafLong      uint16 = 0x8003
	LeafULong     uint16 = 0x8004
	LeafQuadWord  uint16 = 0x8009
	LeafUQuadWord uint16 = 0x800a
)

// Numeric is a CodeView numeric leaf with its encoded width kept.
type Numeric struct {
	// Leaf is the LF_* prefix, or 0 when the value was stored inline.
	Leaf uint16
	// Value holds the raw bits; signed leaves are sign-extended.
	Value uint64
}

// Reader provides methods for reading binary data from PDB streams.
// All multi-byte values are read in little-endian order.
type Reader struct {
	data   []byte
	offset int
}

// NewReader creates a Reader from a byte slice.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.offset
}

// Remaining returns the number of bytes remaining.
func (r *Reader) Remaining() int {
	if r.offset >= len(r.data) {
		return 0
	}
	return len(r.data) - r.offset
}

// Skip advances the read position by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 {
		return ErrNegativeLength
	}
	if r.offset+n > len(r.data) {
		return ErrUnexpectedEOF
	}
	r.offset += n
	return nil
}

// Align aligns the read position to the given boundary.
func (r *Reader) Align(alignment int) {
	if alignment <= 1 {
		return
	}
	if mod := r.offset % alignment; mod != 0 {
		r.offset += alignment - mod
	}
}

// ReadU8 reads an unsigned 8-bit integer.
func (r *Reader) ReadU8() (uint8, error) {
	if r.offset >= len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := r.data[r.offset]
	r.offset++
	return v, nil
}

// ReadU16 reads an unsigned 16-bit integer.
func (r *Reader) ReadU16() (uint16, error) {
	if r.offset+2 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v, nil
}

// ReadU32 reads an unsigned 32-bit integer.
func (r *Reader) ReadU32() (uint32, error) {
	if r.offset+4 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v, nil
}

// ReadU64 reads an unsigned 64-bit integer.
func (r *Reader) ReadU64() (uint64, error) {
	if r.offset+8 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(r.data[r.offset:])
	r.offset += 8
	return v, nil
}

// ReadI32 reads a signed 32-bit integer.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadBytes reads n bytes into a fresh slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	ref, err := r.ReadBytesRef(n)
	if err != nil {
		return nil, err
	}
	v := make([]byte, n)
	copy(v, ref)
	return v, nil
}

// ReadBytesRef returns a reference to n bytes without copying.
// The returned slice is only valid as long as the underlying data.
func (r *Reader) ReadBytesRef(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeLength
	}
	if r.offset+n > len(r.data) {
		return nil, ErrUnexpectedEOF
	}
	v := r.data[r.offset : r.offset+n]
	r.offset += n
	return v, nil
}

// ReadCString reads a null-terminated string.
func (r *Reader) ReadCString() (string, error) {
	start := r.offset
	for i := start; i < len(r.data); i++ {
		if r.data[i] == 0 {
			r.offset = i + 1
			return string(r.data[start:i]), nil
		}
	}
	return "", ErrUnexpectedEOF
}

// ReadGUID reads a 16-byte GUID.
func (r *Reader) ReadGUID() ([16]byte, error) {
	var guid [16]byte
	b, err := r.ReadBytesRef(len(guid))
	if err != nil {
		return guid, err
	}
	copy(guid[:], b)
	return guid, nil
}

// ReadLeafNumeric reads a CodeView numeric leaf and keeps its width.
func (r *Reader) ReadLeafNumeric() (Numeric, error) {
	leaf, err := r.ReadU16()
	if err != nil {
		return Numeric{}, err
	}
	if leaf < LeafNumeric {
		return Numeric{Value: uint64(leaf)}, nil
	}

	n := Numeric{Leaf: leaf}
	switch leaf {
	case LeafChar:
		v, err := r.ReadU8()
		n.Value = uint64(int64(int8(v)))
		return n, err
	case LeafShort:
		v, err := r.ReadU16()
		n.Value = uint64(int64(int16(v)))
		return n, err
	case LeafUShort:
		v, err := r.ReadU16()
		n.Value = uint64(v)
		return n, err
	case LeafLong:
		v, err := r.ReadU32()
		n.Value = uint64(int64(int32(v)))
		return n, err
	case LeafULong:
		v, err := r.ReadU32()
		n.Value = uint64(v)
		return n, err
	case LeafQuadWord, LeafUQuadWord:
		v, err := r.ReadU64()
		n.Value = v
		return n, err
	default:
		return Numeric{}, ErrInvalidNumeric
	}
}

// ReadNumeric reads a CodeView encoded numeric value.
func (r *Reader) ReadNumeric() (uint64, error) {
	n, err := r.ReadLeafNumeric()
	return n.Value, err
}

// PeekU8 returns the next byte without advancing the position.
func (r *Reader) PeekU8() (uint8, error) {
	if r.offset >= len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	return r.data[r.offset], nil
}

// PeekU16 returns the next little-endian uint16 without advancing the position.
func (r *Reader) PeekU16() (uint16, error) {
	if r.offset+2 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	return binary.LittleEndian.Uint16(r.data[r.offset:]), nil
}

// SubReader returns a new Reader starting at the current position with the given length.
func (r *Reader) SubReader(length int) (*Reader, error) {
	b, err := r.ReadBytesRef(length)
	if err != nil {
		return nil, err
	}
	return NewReader(b), nil
}
