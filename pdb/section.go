package pdb

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/skdltmxn/pdbview/internal/symbols"
)

// SectionHeader represents a PE section header.
// This matches the IMAGE_SECTION_HEADER structure.
type SectionHeader struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32 // RVA of the section
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}

// SectionHeaders provides access to PE section headers stored in PDB.
type SectionHeaders struct {
	sections []SectionHeader
}

// RVA converts a section:offset pair to a relative virtual address.
// Section numbers are 1-based; ok is false for section 0, unknown
// sections and addresses past 4 GiB.
func (sh *SectionHeaders) RVA(addr symbols.SectionOffset) (rva uint32, ok bool) {
	if addr.Section == 0 || int(addr.Section) > len(sh.sections) {
		return 0, false
	}
	va := sh.sections[addr.Section-1].VirtualAddress
	if addr.Offset > math.MaxUint32-va {
		return 0, false
	}
	return va + addr.Offset, true
}

// Section header size in bytes
const sectionHeaderSize = 40

func parseSectionHeaders(data []byte) (*SectionHeaders, error) {
	if len(data)%sectionHeaderSize != 0 {
		return nil, fmt.Errorf("%w: section header stream of %d bytes", ErrInvalidStream, len(data))
	}

	if len(data) == 0 {
		return &SectionHeaders{}, nil
	}

	sections := make([]SectionHeader, len(data)/sectionHeaderSize)
	if _, err := binary.Decode(data, binary.LittleEndian, sections); err != nil {
		return nil, fmt.Errorf("pdb: failed to decode section headers: %w", err)
	}
	return &SectionHeaders{sections: sections}, nil
}
