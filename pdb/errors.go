// Package pdb parses Microsoft PDB files into a resolved model of their
// types, symbols and modules.
package pdb

import (
	"errors"
	"fmt"

	"github.com/skdltmxn/pdbview/typeinfo"
)

// Sentinel errors for common conditions.
var (
	// ErrInvalidStream indicates a corrupted or invalid stream.
	ErrInvalidStream = errors.New("pdb: invalid stream")

	// ErrMissingDependency indicates that a symbol needs a stream the file
	// does not have, such as build info without an IPI stream.
	ErrMissingDependency = errors.New("pdb: missing dependency")

	// ErrFileClosed indicates the PDB file has been closed.
	ErrFileClosed = errors.New("pdb: file is closed")
)

// Type resolution errors, re-exported for callers matching with errors.Is.
var (
	ErrDecode         = typeinfo.ErrDecode
	ErrUnsupported    = typeinfo.ErrUnsupported
	ErrUnresolvedType = typeinfo.ErrUnresolvedType
	ErrUnhandledType  = typeinfo.ErrUnhandledType
	ErrUnexpectedKind = typeinfo.ErrUnexpectedKind
	ErrUnsized        = typeinfo.ErrUnsized
	ErrUnhandledSize  = typeinfo.ErrUnhandledSize
)

// ParseError provides detailed information about parsing failures.
type ParseError struct {
	Stream  string // Stream name where error occurred
	Offset  int64  // Byte offset within stream
	Message string // Description of the error
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pdb: parse error in %s at offset 0x%x: %s: %v",
			e.Stream, e.Offset, e.Message, e.Err)
	}
	return fmt.Sprintf("pdb: parse error in %s at offset 0x%x: %s",
		e.Stream, e.Offset, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }
