package tpi

import (
	"github.com/skdltmxn/pdbview/internal/stream"
)

// StringIDRecord represents an LF_STRING_ID in the IPI stream.
type StringIDRecord struct {
	SubstringList TypeIndex
	Value         string
}

// BuildInfoRecord represents an LF_BUILDINFO in the IPI stream. Every
// argument is an item index of an LF_STRING_ID, or 0 when absent.
type BuildInfoRecord struct {
	Args []TypeIndex
}

// FuncIDRecord represents an LF_FUNC_ID or LF_MFUNC_ID in the IPI stream.
// Scope is the enclosing LF_STRING_ID for free functions and the owning
// class type for member functions.
type FuncIDRecord struct {
	Kind         TypeRecordKind
	Scope        TypeIndex
	FunctionType TypeIndex
	Name         string
}

func (*StringIDRecord) Leaf() TypeRecordKind  { return LF_STRING_ID }
func (*BuildInfoRecord) Leaf() TypeRecordKind { return LF_BUILDINFO }
func (f *FuncIDRecord) Leaf() TypeRecordKind  { return f.Kind }

// ParseStringIDRecord parses an LF_STRING_ID record.
func ParseStringIDRecord(data []byte) (*StringIDRecord, error) {
	r := stream.NewReader(data)

	id, err := readIndex(r)
	if err != nil {
		return nil, err
	}
	value, err := r.ReadCString()
	if err != nil {
		return nil, err
	}
	return &StringIDRecord{SubstringList: id, Value: value}, nil
}

// ParseBuildInfoRecord parses an LF_BUILDINFO record.
func ParseBuildInfoRecord(data []byte) (*BuildInfoRecord, error) {
	r := stream.NewReader(data)

	count, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	args := make([]TypeIndex, count)
	for i := range args {
		if args[i], err = readIndex(r); err != nil {
			return nil, err
		}
	}
	return &BuildInfoRecord{Args: args}, nil
}

// ParseFuncIDRecord parses an LF_FUNC_ID or LF_MFUNC_ID record.
func ParseFuncIDRecord(kind TypeRecordKind, data []byte) (*FuncIDRecord, error) {
	r := stream.NewReader(data)

	scope, err := readIndex(r)
	if err != nil {
		return nil, err
	}
	fn, err := readIndex(r)
	if err != nil {
		return nil, err
	}
	name, err := r.ReadCString()
	if err != nil {
		return nil, err
	}
	return &FuncIDRecord{Kind: kind, Scope: scope, FunctionType: fn, Name: name}, nil
}
