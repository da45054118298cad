package typeinfo

import (
	"errors"
	"fmt"
)

// Sentinel errors. Resolution failures are returned as *Error wrapping
// one of these.
var (
	// ErrDecode indicates record bytes that do not match their leaf layout.
	ErrDecode = errors.New("typeinfo: malformed type record")

	// ErrUnsupported indicates a known leaf kind that is not modelled.
	ErrUnsupported = errors.New("typeinfo: unsupported type record")

	// ErrUnresolvedType indicates an index with no record behind it.
	ErrUnresolvedType = errors.New("typeinfo: unresolved type index")

	// ErrUnhandledType indicates a leaf kind outside the CodeView catalogue.
	ErrUnhandledType = errors.New("typeinfo: unhandled type record")

	// ErrUnexpectedKind indicates a reference that resolved to the wrong
	// kind of node, such as an argument list index naming a class.
	ErrUnexpectedKind = errors.New("typeinfo: unexpected node kind")

	// ErrUnsized indicates a size query on a node that has no size.
	ErrUnsized = errors.New("typeinfo: node has no standalone size")

	// ErrUnhandledSize indicates a sized kind with no native byte width.
	ErrUnhandledSize = errors.New("typeinfo: unhandled type size")
)

// Error reports a failure to resolve or size the type at Index.
type Error struct {
	Index TypeIndex
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("type 0x%x: %v", uint32(e.Index), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrap attaches ti to err unless err already names an index.
func wrap(ti TypeIndex, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	return &Error{Index: ti, Err: err}
}
