package dbi

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"github.com/skdltmxn/pdbview/internal/stream"
)

// CV_SIGNATURE_C13, the first word of every module stream.
const moduleSignatureC13 uint32 = 4

// C13 debug subsection kinds.
const (
	DebugSubsectionIgnore        uint32 = 0x80000000
	DebugSubsectionLines         uint32 = 0xF2
	DebugSubsectionFileChecksums uint32 = 0xF4
)

// ChecksumKind identifies the hash algorithm of a source file checksum.
type ChecksumKind uint8

const (
	ChecksumNone ChecksumKind = iota
	ChecksumMD5
	ChecksumSHA1
	ChecksumSHA256
)

func (k ChecksumKind) String() string {
	switch k {
	case ChecksumNone:
		return "None"
	case ChecksumMD5:
		return "Md5"
	case ChecksumSHA1:
		return "Sha1"
	case ChecksumSHA256:
		return "Sha256"
	}
	return fmt.Sprintf("ChecksumKind(%d)", uint8(k))
}

var ErrInvalidModuleStream = errors.New("dbi: invalid module stream")

// FileChecksum is one entry of the DEBUG_S_FILECHKSMS subsection.
type FileChecksum struct {
	// NameOffset is the file name offset into the /names string table.
	NameOffset uint32
	Kind       ChecksumKind
	Checksum   []byte
}

// ModuleStream is the symbol and line data of a single module.
type ModuleStream struct {
	// Symbols holds the raw symbol records, signature excluded.
	Symbols []byte

	// C13 holds the C13 line information subsections.
	C13 []byte
}

// ParseModuleStream splits a module stream into its symbol and C13
// line information regions according to the sizes in info.
func ParseModuleStream(info *ModuleInfo, data []byte) (*ModuleStream, error) {
	ms := &ModuleStream{}
	if info.SymByteSize == 0 && info.C13ByteSize == 0 {
		return ms, nil
	}

	sym, err := safecast.Conv[int](info.SymByteSize)
	if err != nil {
		return nil, err
	}
	c11, err := safecast.Conv[int](info.C11ByteSize)
	if err != nil {
		return nil, err
	}
	c13, err := safecast.Conv[int](info.C13ByteSize)
	if err != nil {
		return nil, err
	}

	r := stream.NewReader(data)
	if sym > 0 {
		sig, err := r.ReadU32()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModuleStream, err)
		}
		if sig != moduleSignatureC13 {
			return nil, fmt.Errorf("%w: signature %d", ErrInvalidModuleStream, sig)
		}
		if sym < 4 {
			return nil, fmt.Errorf("%w: symbol size %d", ErrInvalidModuleStream, sym)
		}
		if ms.Symbols, err = r.ReadBytesRef(sym - 4); err != nil {
			return nil, fmt.Errorf("%w: symbols: %v", ErrInvalidModuleStream, err)
		}
	}
	if err := r.Skip(c11); err != nil {
		return nil, fmt.Errorf("%w: C11 lines: %v", ErrInvalidModuleStream, err)
	}
	if ms.C13, err = r.ReadBytesRef(c13); err != nil {
		return nil, fmt.Errorf("%w: C13 lines: %v", ErrInvalidModuleStream, err)
	}
	return ms, nil
}

// FileChecksums returns the entries of the file checksum subsection, or
// nil when the module has none.
func (ms *ModuleStream) FileChecksums() ([]FileChecksum, error) {
	r := stream.NewReader(ms.C13)
	for r.Remaining() > 0 {
		kind, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		length, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		n, err := safecast.Conv[int](length)
		if err != nil {
			return nil, err
		}
		sub, err := r.SubReader(n)
		if err != nil {
			return nil, fmt.Errorf("%w: subsection 0x%x of %d bytes", ErrInvalidModuleStream, kind, length)
		}
		r.Align(4)

		if kind == DebugSubsectionFileChecksums {
			return parseFileChecksums(sub)
		}
	}
	return nil, nil
}

func parseFileChecksums(r *stream.Reader) ([]FileChecksum, error) {
	var out []FileChecksum
	for r.Remaining() > 0 {
		var fc FileChecksum
		var err error
		if fc.NameOffset, err = r.ReadU32(); err != nil {
			return nil, err
		}
		size, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		kind, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		fc.Kind = ChecksumKind(kind)
		if fc.Checksum, err = r.ReadBytes(int(size)); err != nil {
			return nil, err
		}
		r.Align(4)
		out = append(out, fc)
	}
	return out, nil
}
