package pdb

import (
	"fmt"
	"io"
	"sync"

	"github.com/skdltmxn/pdbview/internal/dbi"
	"github.com/skdltmxn/pdbview/internal/tpi"
	"github.com/skdltmxn/pdbview/msf"
)

// lazy holds a stream that is parsed on first use.
type lazy[T any] struct {
	once sync.Once
	v    T
	err  error
}

func (l *lazy[T]) get(load func() (T, error)) (T, error) {
	l.once.Do(func() {
		l.v, l.err = load()
	})
	return l.v, l.err
}

// File represents an opened PDB file.
// It is safe for concurrent read access after opening.
type File struct {
	msf    *msf.File
	closed bool
	mu     sync.RWMutex

	info     lazy[*Info]
	tpi      lazy[*tpi.Stream]
	ipi      lazy[*tpi.Stream]
	dbi      lazy[*dbi.Stream]
	sections lazy[*SectionHeaders]
	names    lazy[*StringTable]
}

// Open opens a PDB file from the given path.
func Open(path string) (*File, error) {
	msfFile, err := msf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdb: failed to open file: %w", err)
	}
	return &File{msf: msfFile}, nil
}

// OpenReader opens a PDB from an io.ReaderAt.
func OpenReader(r io.ReaderAt, size int64) (*File, error) {
	msfFile, err := msf.NewFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("pdb: failed to open file: %w", err)
	}
	return &File{msf: msfFile}, nil
}

// Close releases resources associated with the PDB file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	return f.msf.Close()
}

func (f *File) readStream(index uint32) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrFileClosed
	}
	return f.msf.ReadStream(index)
}

// Info returns metadata from the PDB info stream.
func (f *File) Info() (*Info, error) {
	return f.info.get(func() (*Info, error) {
		data, err := f.readStream(msf.StreamPDBInfo)
		if err != nil {
			return nil, fmt.Errorf("pdb: failed to read PDB info stream: %w", err)
		}
		return parseInfo(data)
	})
}

func (f *File) typeStream() (*tpi.Stream, error) {
	return f.tpi.get(func() (*tpi.Stream, error) {
		data, err := f.readStream(msf.StreamTPI)
		if err != nil {
			return nil, fmt.Errorf("pdb: failed to read TPI stream: %w", err)
		}
		return tpi.ParseStream(data)
	})
}

// idStream returns the IPI stream, or an error wrapping
// ErrMissingDependency when the file has none.
func (f *File) idStream() (*tpi.Stream, error) {
	return f.ipi.get(func() (*tpi.Stream, error) {
		if !f.msf.StreamExists(msf.StreamIPI) {
			return nil, fmt.Errorf("%w: IPI stream not found", ErrMissingDependency)
		}
		data, err := f.readStream(msf.StreamIPI)
		if err != nil {
			return nil, fmt.Errorf("pdb: failed to read IPI stream: %w", err)
		}
		s, err := tpi.ParseStream(data)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid IPI stream: %w", ErrMissingDependency, err)
		}
		return s, nil
	})
}

func (f *File) debugInfo() (*dbi.Stream, error) {
	return f.dbi.get(func() (*dbi.Stream, error) {
		data, err := f.readStream(msf.StreamDBI)
		if err != nil {
			return nil, fmt.Errorf("pdb: failed to read DBI stream: %w", err)
		}
		return dbi.ParseStream(data)
	})
}

// Sections returns the PE section headers recorded by the linker.
func (f *File) Sections() (*SectionHeaders, error) {
	return f.sections.get(func() (*SectionHeaders, error) {
		d, err := f.debugInfo()
		if err != nil {
			return nil, err
		}
		if d.OptionalDbgStreams == nil || d.OptionalDbgStreams.SectionHdrStreamIndex == dbi.InvalidStreamIndex {
			return nil, fmt.Errorf("%w: no section header stream", ErrMissingDependency)
		}
		data, err := f.readStream(uint32(d.OptionalDbgStreams.SectionHdrStreamIndex))
		if err != nil {
			return nil, fmt.Errorf("pdb: failed to read section header stream: %w", err)
		}
		return parseSectionHeaders(data)
	})
}

// Names returns the /names string table.
func (f *File) Names() (*StringTable, error) {
	return f.names.get(func() (*StringTable, error) {
		info, err := f.Info()
		if err != nil {
			return nil, err
		}
		idx, ok := info.NamedStreams[namesStream]
		if !ok {
			return nil, fmt.Errorf("%w: no %s stream", ErrMissingDependency, namesStream)
		}
		data, err := f.readStream(idx)
		if err != nil {
			return nil, fmt.Errorf("pdb: failed to read %s stream: %w", namesStream, err)
		}
		return parseStringTable(data)
	})
}

// moduleStream reads the symbol and line data of one module. Modules
// without a stream yield nil.
func (f *File) moduleStream(mod *dbi.ModuleInfo) (*dbi.ModuleStream, error) {
	if !mod.HasStream() {
		return nil, nil
	}
	data, err := f.readStream(uint32(mod.ModuleSymStreamIndex))
	if err != nil {
		return nil, err
	}
	return dbi.ParseModuleStream(mod, data)
}

// symbolRecords reads the global symbol record stream.
func (f *File) symbolRecords() ([]byte, error) {
	d, err := f.debugInfo()
	if err != nil {
		return nil, err
	}
	idx := d.Header.SymRecordStreamIndex
	if idx == dbi.InvalidStreamIndex {
		return nil, nil
	}
	return f.readStream(uint32(idx))
}
