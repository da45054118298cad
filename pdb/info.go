package pdb

import (
	"bytes"
	"fmt"

	"github.com/skdltmxn/pdbview/internal/stream"
)

// PDB info stream versions.
const (
	InfoVersionVC41  uint32 = 920924
	InfoVersionVC50  uint32 = 19960307
	InfoVersionVC60  uint32 = 19970604
	InfoVersionVC70  uint32 = 20000404
	InfoVersionVC140 uint32 = 20140508
)

const namesStream = "/names"

// Info contains metadata about the PDB file.
type Info struct {
	Version   uint32
	Signature uint32
	Age       uint32
	GUID      GUID

	// NamedStreams maps stream names such as "/names" to stream indices.
	NamedStreams map[string]uint32
}

func parseInfo(data []byte) (*Info, error) {
	r := stream.NewReader(data)
	info := &Info{NamedStreams: make(map[string]uint32)}

	var err error
	if info.Version, err = r.ReadU32(); err != nil {
		return nil, infoError(r, "version", err)
	}
	if info.Signature, err = r.ReadU32(); err != nil {
		return nil, infoError(r, "signature", err)
	}
	if info.Age, err = r.ReadU32(); err != nil {
		return nil, infoError(r, "age", err)
	}
	guid, err := r.ReadGUID()
	if err != nil {
		return nil, infoError(r, "guid", err)
	}
	info.GUID = GUID(guid)

	// Old PDBs stop after the header.
	if r.Remaining() == 0 {
		return info, nil
	}
	if err := parseNamedStreams(r, info.NamedStreams); err != nil {
		return nil, infoError(r, "named stream map", err)
	}
	return info, nil
}

func infoError(r *stream.Reader, what string, err error) error {
	return &ParseError{
		Stream:  "PDB info",
		Offset:  int64(r.Offset()),
		Message: "failed to read " + what,
		Err:     err,
	}
}

// parseNamedStreams reads the serialized hash table of the info stream:
// a string buffer followed by size, capacity, present and deleted bit
// vectors and one (name offset, stream) pair per present bucket.
func parseNamedStreams(r *stream.Reader, out map[string]uint32) error {
	bufSize, err := r.ReadU32()
	if err != nil {
		return err
	}
	buf, err := r.ReadBytesRef(int(bufSize))
	if err != nil {
		return err
	}
	if _, err := r.ReadU32(); err != nil { // size
		return err
	}
	capacity, err := r.ReadU32()
	if err != nil {
		return err
	}
	present, err := readBitVector(r)
	if err != nil {
		return err
	}
	if _, err := readBitVector(r); err != nil { // deleted
		return err
	}

	for i := range capacity {
		if !bitSet(present, i) {
			continue
		}
		off, err := r.ReadU32()
		if err != nil {
			return err
		}
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		if off >= bufSize {
			return fmt.Errorf("%w: name offset %d outside %d byte buffer", ErrInvalidStream, off, bufSize)
		}
		name := buf[off:]
		if end := bytes.IndexByte(name, 0); end >= 0 {
			name = name[:end]
		}
		out[string(name)] = idx
	}
	return nil
}

func readBitVector(r *stream.Reader) ([]uint32, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if int64(n)*4 > int64(r.Remaining()) {
		return nil, fmt.Errorf("%w: bit vector of %d words", ErrInvalidStream, n)
	}
	words := make([]uint32, n)
	for i := range words {
		if words[i], err = r.ReadU32(); err != nil {
			return nil, err
		}
	}
	return words, nil
}

func bitSet(words []uint32, n uint32) bool {
	w := n / 32
	if w >= uint32(len(words)) {
		return false
	}
	return words[w]&(1<<(n%32)) != 0
}
