package symbols

import "fmt"

// Language is the CV_CFL_LANG source language of a compiland.
type Language uint8

var languageNames = map[Language]string{
	0x00: "C",
	0x01: "Cpp",
	0x02: "Fortran",
	0x03: "Masm",
	0x04: "Pascal",
	0x05: "Basic",
	0x06: "Cobol",
	0x07: "Link",
	0x08: "Cvtres",
	0x09: "Cvtpgd",
	0x0A: "CSharp",
	0x0B: "VB",
	0x0C: "ILAsm",
	0x0D: "Java",
	0x0E: "JScript",
	0x0F: "MSIL",
	0x10: "HLSL",
	0x11: "ObjC",
	0x12: "ObjCpp",
	0x13: "Swift",
	0x14: "AliasObj",
	0x15: "Rust",
	0x16: "Go",
	0x44: "D",
}

func (l Language) String() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Language(0x%02X)", uint8(l))
}

// CPUType is the CV_CPU_TYPE_e target processor of a compiland.
type CPUType uint16

var cpuNames = map[CPUType]string{
	0x00:  "Intel8080",
	0x01:  "Intel8086",
	0x02:  "Intel80286",
	0x03:  "Intel80386",
	0x04:  "Intel80486",
	0x05:  "Pentium",
	0x06:  "PentiumPro",
	0x07:  "Pentium3",
	0x10:  "MIPS",
	0x11:  "MIPS16",
	0x12:  "MIPS32",
	0x13:  "MIPS64",
	0x14:  "MIPSI",
	0x15:  "MIPSII",
	0x16:  "MIPSIII",
	0x17:  "MIPSIV",
	0x18:  "MIPSV",
	0x20:  "M68000",
	0x21:  "M68010",
	0x22:  "M68020",
	0x23:  "M68030",
	0x24:  "M68040",
	0x30:  "Alpha",
	0x31:  "Alpha21164",
	0x32:  "Alpha21164A",
	0x33:  "Alpha21264",
	0x34:  "Alpha21364",
	0x40:  "PPC601",
	0x41:  "PPC603",
	0x42:  "PPC604",
	0x43:  "PPC620",
	0x44:  "PPCFP",
	0x45:  "PPCBE",
	0x50:  "SH3",
	0x51:  "SH3E",
	0x52:  "SH3DSP",
	0x53:  "SH4",
	0x54:  "SHMedia",
	0x60:  "ARM3",
	0x61:  "ARM4",
	0x62:  "ARM4T",
	0x63:  "ARM5",
	0x64:  "ARM5T",
	0x65:  "ARM6",
	0x66:  "ARM_XMAC",
	0x67:  "ARM_WMMX",
	0x68:  "ARM7",
	0x70:  "Omni",
	0x80:  "Ia64",
	0x81:  "Ia64_2",
	0x90:  "CEE",
	0xA0:  "AM33",
	0xB0:  "M32R",
	0xC0:  "TriCore",
	0xD0:  "X64",
	0xE0:  "EBC",
	0xF0:  "Thumb",
	0xF4:  "ARMNT",
	0xF6:  "ARM64",
	0xF7:  "HybridX86ARM64",
	0xF8:  "ARM64EC",
	0xF9:  "ARM64X",
	0x100: "D3D11_Shader",
}

func (c CPUType) String() string {
	if name, ok := cpuNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CPUType(0x%X)", uint16(c))
}
