package pdb

import (
	"bytes"
	"fmt"

	"github.com/skdltmxn/pdbview/internal/stream"
)

const stringTableMagic uint32 = 0xEFFEEFFE

// StringTable is the /names stream: NUL-terminated strings addressed by
// byte offset, used for source file names.
type StringTable struct {
	HashVersion uint32
	buf         []byte
}

func parseStringTable(data []byte) (*StringTable, error) {
	r := stream.NewReader(data)

	magic, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("%w: %s header: %w", ErrInvalidStream, namesStream, err)
	}
	if magic != stringTableMagic {
		return nil, fmt.Errorf("%w: %s magic 0x%08x", ErrInvalidStream, namesStream, magic)
	}
	version, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("%w: %s header: %w", ErrInvalidStream, namesStream, err)
	}
	size, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("%w: %s header: %w", ErrInvalidStream, namesStream, err)
	}
	buf, err := r.ReadBytesRef(int(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %s buffer of %d bytes: %w", ErrInvalidStream, namesStream, size, err)
	}
	// The hash buckets that follow are only needed for reverse lookups.
	return &StringTable{HashVersion: version, buf: buf}, nil
}

// Get returns the string starting at offset.
func (t *StringTable) Get(offset uint32) (string, error) {
	if int64(offset) >= int64(len(t.buf)) {
		return "", fmt.Errorf("%w: string offset %d outside %d byte table", ErrInvalidStream, offset, len(t.buf))
	}
	s := t.buf[offset:]
	end := bytes.IndexByte(s, 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %d", ErrInvalidStream, offset)
	}
	return string(s[:end]), nil
}
