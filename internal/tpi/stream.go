package tpi

import (
	"errors"
	"fmt"
	"iter"

	"fortio.org/safecast"

	"github.com/skdltmxn/pdbview/internal/stream"
)

// TPI stream version constants
const (
	TPIVersionV70 uint32 = 19990903
	TPIVersionV80 uint32 = 20040203 // Current version
)

// TPIHeaderSize is the size of the TPI/IPI stream header.
const TPIHeaderSize = 56

// Errors
var (
	ErrInvalidTPIHeader   = errors.New("tpi: invalid TPI header")
	ErrUnsupportedVersion = errors.New("tpi: unsupported TPI version")
	ErrInvalidTypeRecord  = errors.New("tpi: invalid type record")
)

// Header represents the TPI or IPI stream header.
type Header struct {
	Version            uint32
	HeaderSize         uint32
	TypeIndexBegin     TypeIndex
	TypeIndexEnd       TypeIndex
	TypeRecordBytes    uint32
	HashStreamIndex    uint16
	HashAuxStreamIndex uint16
	HashKeySize        uint32
	NumHashBuckets     uint32
}

// TypeCount returns the number of type records.
func (h *Header) TypeCount() uint32 {
	return uint32(h.TypeIndexEnd - h.TypeIndexBegin)
}

// TypeRecord is one raw record: its leaf kind and the bytes after the kind.
type TypeRecord struct {
	Kind TypeRecordKind
	Data []byte
}

// Stream represents a parsed TPI or IPI stream.
// It is the index -> record finder used by type resolution.
type Stream struct {
	Header Header

	records []TypeRecord // records[i] belongs to TypeIndexBegin+i
}

// ParseStream parses a TPI or IPI stream from raw data.
func ParseStream(data []byte) (*Stream, error) {
	if len(data) < TPIHeaderSize {
		return nil, ErrInvalidTPIHeader
	}

	r := stream.NewReader(data)
	s := &Stream{}
	if err := s.parseHeader(r); err != nil {
		return nil, err
	}

	start := int(s.Header.HeaderSize)
	end := start + int(s.Header.TypeRecordBytes)
	if start < TPIHeaderSize || end > len(data) {
		return nil, fmt.Errorf("tpi: truncated stream: expected %d bytes, got %d", end, len(data))
	}

	if err := s.splitRecords(data[start:end]); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Stream) parseHeader(r *stream.Reader) error {
	var err error
	h := &s.Header

	if h.Version, err = r.ReadU32(); err != nil {
		return err
	}
	if h.Version != TPIVersionV80 && h.Version != TPIVersionV70 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.HeaderSize, err = r.ReadU32(); err != nil {
		return err
	}
	begin, err := r.ReadU32()
	if err != nil {
		return err
	}
	end, err := r.ReadU32()
	if err != nil {
		return err
	}
	if end < begin {
		return fmt.Errorf("%w: index range [0x%x, 0x%x)", ErrInvalidTPIHeader, begin, end)
	}
	h.TypeIndexBegin, h.TypeIndexEnd = TypeIndex(begin), TypeIndex(end)

	if h.TypeRecordBytes, err = r.ReadU32(); err != nil {
		return err
	}
	if h.HashStreamIndex, err = r.ReadU16(); err != nil {
		return err
	}
	if h.HashAuxStreamIndex, err = r.ReadU16(); err != nil {
		return err
	}
	if h.HashKeySize, err = r.ReadU32(); err != nil {
		return err
	}
	if h.NumHashBuckets, err = r.ReadU32(); err != nil {
		return err
	}
	// The hash value, index offset and hash adjustment buffers follow;
	// records are located by a linear scan instead.
	return nil
}

// splitRecords walks the record area once and slices out every record.
func (s *Stream) splitRecords(raw []byte) error {
	r := stream.NewReader(raw)
	// Every record takes at least four bytes, which bounds an
	// untrustworthy header count.
	s.records = make([]TypeRecord, 0, min(int(s.Header.TypeCount()), len(raw)/4))

	for r.Remaining() > 0 && len(s.records) < int(s.Header.TypeCount()) {
		recordLen, err := r.ReadU16()
		if err != nil {
			return err
		}
		if recordLen < 2 {
			return fmt.Errorf("%w: length %d at offset 0x%x", ErrInvalidTypeRecord, recordLen, r.Offset()-2)
		}
		kind, err := r.ReadU16()
		if err != nil {
			return err
		}
		data, err := r.ReadBytesRef(int(recordLen) - 2)
		if err != nil {
			return fmt.Errorf("%w: truncated record at offset 0x%x", ErrInvalidTypeRecord, r.Offset())
		}
		s.records = append(s.records, TypeRecord{Kind: TypeRecordKind(kind), Data: data})
	}
	return nil
}

// Record returns the raw record for ti. Simple type indices and indices
// outside the stream have no record.
func (s *Stream) Record(ti TypeIndex) (*TypeRecord, bool) {
	if ti < s.Header.TypeIndexBegin {
		return nil, false
	}
	i := int(ti - s.Header.TypeIndexBegin)
	if i >= len(s.records) {
		return nil, false
	}
	return &s.records[i], true
}

// Indices yields every type index that has a record, in file order.
func (s *Stream) Indices() iter.Seq[TypeIndex] {
	return func(yield func(TypeIndex) bool) {
		for i := range s.records {
			off, err := safecast.Conv[uint32](i)
			if err != nil {
				return
			}
			if !yield(s.Header.TypeIndexBegin + TypeIndex(off)) {
				return
			}
		}
	}
}
