// Package symbols provides parsing for CodeView symbol records.
package symbols

import (
	"errors"
	"fmt"

	"github.com/skdltmxn/pdbview/internal/stream"
)

// SymbolRecordKind identifies the type of a symbol record.
type SymbolRecordKind uint16

// Symbol record kinds (S_*) understood by this package.
const (
	S_END            SymbolRecordKind = 0x0006
	S_OBJNAME        SymbolRecordKind = 0x1101
	S_UDT            SymbolRecordKind = 0x1108
	S_LDATA32        SymbolRecordKind = 0x110c
	S_GDATA32        SymbolRecordKind = 0x110d
	S_PUB32          SymbolRecordKind = 0x110e
	S_LPROC32        SymbolRecordKind = 0x110f
	S_GPROC32        SymbolRecordKind = 0x1110
	S_LTHREAD32      SymbolRecordKind = 0x1112
	S_GTHREAD32      SymbolRecordKind = 0x1113
	S_COMPILE2       SymbolRecordKind = 0x1116
	S_LMANDATA       SymbolRecordKind = 0x111c
	S_GMANDATA       SymbolRecordKind = 0x111d
	S_PROCREF        SymbolRecordKind = 0x1125
	S_DATAREF        SymbolRecordKind = 0x1126
	S_LPROCREF       SymbolRecordKind = 0x1127
	S_COMPILE3       SymbolRecordKind = 0x113c
	S_LPROC32_ID     SymbolRecordKind = 0x1146
	S_GPROC32_ID     SymbolRecordKind = 0x1147
	S_BUILDINFO      SymbolRecordKind = 0x114c
	S_PROC_ID_END    SymbolRecordKind = 0x114f
	S_LPROC32_DPC    SymbolRecordKind = 0x1155
	S_LPROC32_DPC_ID SymbolRecordKind = 0x1156
)

// IsProc returns true if this symbol kind represents a procedure.
func (k SymbolRecordKind) IsProc() bool {
	switch k {
	case S_GPROC32, S_LPROC32, S_GPROC32_ID, S_LPROC32_ID, S_LPROC32_DPC, S_LPROC32_DPC_ID:
		return true
	}
	return false
}

// IsData returns true if this symbol kind represents data.
func (k SymbolRecordKind) IsData() bool {
	switch k {
	case S_GDATA32, S_LDATA32, S_GMANDATA, S_LMANDATA:
		return true
	}
	return false
}

func (k SymbolRecordKind) String() string {
	switch k {
	case S_END:
		return "S_END"
	case S_OBJNAME:
		return "S_OBJNAME"
	case S_UDT:
		return "S_UDT"
	case S_LDATA32:
		return "S_LDATA32"
	case S_GDATA32:
		return "S_GDATA32"
	case S_PUB32:
		return "S_PUB32"
	case S_LPROC32:
		return "S_LPROC32"
	case S_GPROC32:
		return "S_GPROC32"
	case S_LTHREAD32:
		return "S_LTHREAD32"
	case S_GTHREAD32:
		return "S_GTHREAD32"
	case S_COMPILE2:
		return "S_COMPILE2"
	case S_LMANDATA:
		return "S_LMANDATA"
	case S_GMANDATA:
		return "S_GMANDATA"
	case S_PROCREF:
		return "S_PROCREF"
	case S_DATAREF:
		return "S_DATAREF"
	case S_LPROCREF:
		return "S_LPROCREF"
	case S_COMPILE3:
		return "S_COMPILE3"
	case S_LPROC32_ID:
		return "S_LPROC32_ID"
	case S_GPROC32_ID:
		return "S_GPROC32_ID"
	case S_BUILDINFO:
		return "S_BUILDINFO"
	case S_PROC_ID_END:
		return "S_PROC_ID_END"
	case S_LPROC32_DPC:
		return "S_LPROC32_DPC"
	case S_LPROC32_DPC_ID:
		return "S_LPROC32_DPC_ID"
	}
	return fmt.Sprintf("S_(0x%04x)", uint16(k))
}

// Errors
var (
	ErrInvalidSymbolRecord = errors.New("symbols: invalid symbol record")
	ErrUnexpectedEnd       = errors.New("symbols: unexpected end of data")
)

// SymbolRecord represents a generic symbol record.
type SymbolRecord struct {
	Kind SymbolRecordKind
	// Offset is the position of the record in its stream.
	Offset int
	Data   []byte
}

// ParseSymbolRecord parses a single symbol record from raw data.
// Returns the symbol and the number of bytes consumed.
func ParseSymbolRecord(data []byte) (*SymbolRecord, int, error) {
	r := stream.NewReader(data)

	// Record length does not include the length field itself.
	length, err := r.ReadU16()
	if err != nil {
		return nil, 0, ErrUnexpectedEnd
	}
	if length < 2 {
		return nil, 0, fmt.Errorf("%w: length %d", ErrInvalidSymbolRecord, length)
	}
	kind, err := r.ReadU16()
	if err != nil {
		return nil, 0, ErrUnexpectedEnd
	}
	payload, err := r.ReadBytesRef(int(length) - 2)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s needs %d bytes", ErrUnexpectedEnd, SymbolRecordKind(kind), length)
	}

	return &SymbolRecord{
		Kind: SymbolRecordKind(kind),
		Data: payload,
	}, int(length) + 2, nil
}

// SymbolIterator iterates over symbol records in a stream.
type SymbolIterator struct {
	data   []byte
	offset int
}

// NewSymbolIterator creates a new symbol iterator.
func NewSymbolIterator(data []byte) *SymbolIterator {
	return &SymbolIterator{data: data}
}

// Next returns the next symbol record, or nil if there are no more.
// A framing error ends the iteration, since the following record
// boundaries can no longer be trusted.
func (it *SymbolIterator) Next() (*SymbolRecord, error) {
	if it.offset >= len(it.data) {
		return nil, nil
	}

	rec, size, err := ParseSymbolRecord(it.data[it.offset:])
	if err != nil {
		err = fmt.Errorf("at offset 0x%x: %w", it.offset, err)
		it.offset = len(it.data)
		return nil, err
	}
	rec.Offset = it.offset
	it.offset += size
	return rec, nil
}
