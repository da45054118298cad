package main

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/skdltmxn/pdbview/pdb"
	"github.com/skdltmxn/pdbview/typeinfo"
)

type palette struct {
	header *color.Color
	name   *color.Color
}

// newPalette resolves mode against w. Auto enables colour only for a
// terminal and honours NO_COLOR.
func newPalette(mode colorMode, w io.Writer) palette {
	p := palette{
		header: color.New(color.Bold),
		name:   color.New(color.FgCyan),
	}

	enable := mode == colorAlways
	if mode == colorAuto {
		f, ok := w.(*os.File)
		enable = ok && term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == ""
	}
	for _, c := range []*color.Color{p.header, p.name} {
		if enable {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

const (
	flagWidth  = 40
	fieldWidth = 20
)

func writePlain(w io.Writer, p *pdb.ParsedPDB, pal palette) error {
	b := bufio.NewWriter(w)
	h := pal.header.Sprint

	fmt.Fprintf(b, "%q:\n", p.Path)
	fmt.Fprintf(b, "PDB Version: %s\n", p.Version)
	fmt.Fprintf(b, "Machine Type: %s\n", p.MachineType)

	fmt.Fprintln(b, h("Assembly Info:"))
	fmt.Fprintln(b, "\tBuild Info:")
	if bi := p.AssemblyInfo.BuildInfo; bi != nil {
		for _, arg := range bi.Arguments {
			fmt.Fprintf(b, "\t\t%s\n", arg)
		}
	}
	fmt.Fprintln(b, "\tCompiler Info:")
	if ci := p.AssemblyInfo.CompilerInfo; ci != nil {
		writeCompilerInfo(b, ci)
	}

	fmt.Fprintln(b, h("Public symbols:"))
	fmt.Fprintf(b, "\t%-10s Name\n", "Offset")
	for _, sym := range p.PublicSymbols {
		fmt.Fprintf(b, "\t%s %s\n", formatOffset(sym.Offset), sym.Name)
	}

	fmt.Fprintln(b, h("Procedures:"))
	fmt.Fprintf(b, "\t%-10s %-10s %-15s %-15s %-10s\n", "Offset", "Length", "Prologue End", "Epilogue Start", "Name")
	for _, proc := range p.Procedures {
		fmt.Fprintf(b, "\t%s 0x%08X %-15s%-15s%s\n",
			formatOffset(proc.Offset),
			proc.Len,
			fmt.Sprintf("0x%08X ", proc.PrologueEnd),
			fmt.Sprintf("0x%08X ", proc.EpilogueStart),
			proc.Name)
	}

	fmt.Fprintln(b, h("Globals:"))
	fmt.Fprintf(b, "\t%-10s %-10s\n", "Offset", "Name")
	for _, g := range p.GlobalData {
		fmt.Fprintf(b, "\t%s %s\n", formatOffset(g.Offset), g.Name)
		fmt.Fprintf(b, "\t\tType: %s\n", typeinfo.TypeName(g.Type))
		if size, err := p.SizeOf(g.Type); err == nil {
			fmt.Fprintf(b, "\t\tSize: 0x%X\n", size)
		} else {
			fmt.Fprintln(b, "\t\tSize: unknown")
		}
		fmt.Fprintf(b, "\t\tIs Managed: %t\n", g.IsManaged)
	}

	fmt.Fprintln(b)
	fmt.Fprintln(b, h("Types:"))
	for _, ti := range slices.Sorted(maps.Keys(p.Types)) {
		if writeType(b, p.Types[ti], pal) {
			fmt.Fprintln(b)
		}
	}
	return b.Flush()
}

func writeCompilerInfo(b *bufio.Writer, ci *pdb.CompilerInfo) {
	fmt.Fprintf(b, "\t\tLanguage: %s\n", ci.Language)
	fmt.Fprintln(b, "\t\tFlags:")

	f := ci.Flags
	flags := []struct {
		label string
		set   bool
	}{
		{"Edit and continue:", f.EditAndContinue},
		{"No debug info:", f.NoDebugInfo},
		{"Link-time codegen (LTCG):", f.LinkTimeCodegen},
		{"No data align (/bzalign):", f.NoDataAlign},
		{"Managed code or data is present:", f.Managed},
		{"Security checks (/GS):", f.SecurityChecks},
		{"Hot patching (/hotpatch):", f.HotPatch},
		{"CvtCIL:", f.CvtCIL},
		{"Is MSIL .NET module:", f.MSILModule},
		{"Compiled with /SDL:", f.SDL},
		{"PGO (`/ltcg:pgo` or `pgo:`):", f.PGO},
		{"Is .exp module:", f.ExpModule},
	}
	for _, fl := range flags {
		fmt.Fprintf(b, "\t\t\t%-*s %t\n", flagWidth, fl.label, fl.set)
	}

	fmt.Fprintf(b, "\t\tCPU type: %s\n", ci.CPUType)
	fmt.Fprintf(b, "\t\tFrontend version: %s\n", formatVersion(ci.FrontendVersion))
	fmt.Fprintf(b, "\t\tBackend version: %s\n", formatVersion(ci.BackendVersion))
	fmt.Fprintf(b, "\t\tVersion string: %s\n", ci.VersionString)
}

// writeType prints a class or union definition and reports whether
// anything was written.
func writeType(b *bufio.Writer, n typeinfo.Node, pal palette) bool {
	var fields []typeinfo.Node
	switch t := n.(type) {
	case *typeinfo.Class:
		if t.Properties.ForwardReference {
			return false
		}
		fmt.Fprintf(b, "\t%-10s %s %s\n", t.ClassKind, pal.name.Sprint(t.Name), t.UniqueName)
		fmt.Fprintf(b, "\tSize: 0x%X\n", t.Size)
		fields = t.Fields()
	case *typeinfo.Union:
		if t.Properties.ForwardReference {
			return false
		}
		fmt.Fprintf(b, "\tUnion %s %s\n", pal.name.Sprint(t.Name), t.UniqueName)
		fmt.Fprintf(b, "\tSize: 0x%X\n", t.Size)
		fields = t.Fields()
	default:
		return false
	}

	fmt.Fprintln(b, "\tFields:")
	for _, field := range fields {
		switch f := field.(type) {
		case *typeinfo.Member:
			fmt.Fprintf(b, "\t\t0x%04X %-*s %s\n", f.Offset, fieldWidth, f.Name, typeinfo.TypeName(f.Type))
		case *typeinfo.BaseClass:
			fmt.Fprintf(b, "\t\t0x%04X <BaseClass> %s\n", f.Offset, typeinfo.TypeName(f.Base))
		}
	}
	return true
}

func formatOffset(off *uint64) string {
	if off == nil {
		return fmt.Sprintf("%-10s", "")
	}
	return fmt.Sprintf("0x%08X", *off)
}

func formatVersion(v pdb.CompilerVersion) string {
	qfe := "None"
	if v.QFE != nil {
		qfe = fmt.Sprint(*v.QFE)
	}
	return fmt.Sprintf("%d.%d.%d, QFE=%s", v.Major, v.Minor, v.Build, qfe)
}
