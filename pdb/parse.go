package pdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/skdltmxn/pdbview/internal/dbi"
	"github.com/skdltmxn/pdbview/typeinfo"
)

// Options configures Parse.
type Options struct {
	// BaseAddress is added to every mapped RVA.
	BaseAddress uint64

	// Logger receives warnings for skipped symbols and missing optional
	// streams. Nil discards them.
	Logger *slog.Logger

	// Concurrency bounds the number of streams read at once. Zero means
	// GOMAXPROCS.
	Concurrency int
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Parse reads the PDB at path and maps it into a ParsedPDB.
func Parse(ctx context.Context, path string, opts Options) (*ParsedPDB, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(ctx, f, path, opts)
}

// ParseReader is Parse for an in-memory or already opened image. name is
// recorded as the ParsedPDB path.
func ParseReader(ctx context.Context, r io.ReaderAt, size int64, name string, opts Options) (*ParsedPDB, error) {
	f, err := OpenReader(r, size)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(ctx, f, name, opts)
}

// moduleData is the result of reading one module stream.
type moduleData struct {
	info   *dbi.ModuleInfo
	stream *dbi.ModuleStream
}

func parse(ctx context.Context, f *File, path string, opts Options) (*ParsedPDB, error) {
	log := opts.logger()

	info, err := f.Info()
	if err != nil {
		return nil, err
	}
	d, err := f.debugInfo()
	if err != nil {
		return nil, err
	}

	out := &ParsedPDB{
		Path:        path,
		Version:     Version(info.Version),
		GUID:        info.GUID,
		Age:         d.Header.Age,
		Timestamp:   info.Signature,
		MachineType: MachineType(d.Header.Machine),
	}
	if out.Age == 0 {
		out.Age = info.Age
	}
	if !out.MachineType.Known() {
		log.Warn("unknown machine type", "machine", fmt.Sprintf("0x%04x", d.Header.Machine))
	}

	m := &mapper{out: out, log: log, base: opts.BaseAddress}
	if m.sections, err = f.Sections(); err != nil {
		log.Warn("section headers unavailable, symbol offsets will be omitted", "error", err)
	}
	if m.names, err = f.Names(); err != nil {
		log.Warn("string table unavailable, source files will be omitted", "error", err)
	}
	if m.ids, err = f.idStream(); err != nil {
		log.Warn("IPI stream unavailable", "error", err)
	}

	types, err := f.typeStream()
	if err != nil {
		return nil, err
	}
	m.cache = typeinfo.NewCache(types, typeinfo.WithLogger(log))
	if err := m.cache.Load(types.Indices()); err != nil {
		return nil, fmt.Errorf("pdb: failed to load types: %w", err)
	}
	if err := m.cache.Complete(); err != nil {
		return nil, fmt.Errorf("pdb: failed to complete types: %w", err)
	}
	out.cache = m.cache

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	globals, modules, err := readSymbolStreams(ctx, f, d, log, opts.Concurrency)
	if err != nil {
		return nil, err
	}

	// Mapping is sequential so that assembly info keeps its last-wins order.
	if globals != nil {
		m.symbols("global symbols", globals)
	}
	out.DebugModules = make([]DebugModule, 0, len(modules))
	for _, md := range modules {
		if md.stream != nil {
			m.symbols(md.info.ModuleName, md.stream.Symbols)
		}
		out.DebugModules = append(out.DebugModules, m.debugModule(md.info, md.stream))
	}
	out.Types = maps.Collect(m.cache.Types())
	return out, ctx.Err()
}

// readSymbolStreams reads the global symbol records and every module
// stream concurrently. A module that cannot be read is logged and kept
// without symbols.
func readSymbolStreams(ctx context.Context, f *File, d *dbi.Stream, log *slog.Logger, limit int) ([]byte, []moduleData, error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var globals []byte
	g.Go(func() error {
		var err error
		if globals, err = f.symbolRecords(); err != nil {
			return fmt.Errorf("pdb: failed to read symbol records: %w", err)
		}
		return nil
	})

	modules := make([]moduleData, len(d.Modules))
	for i := range d.Modules {
		modules[i].info = &d.Modules[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ms, err := f.moduleStream(modules[i].info)
			if errors.Is(err, ErrFileClosed) {
				return err
			}
			if err != nil {
				log.Warn("skipping module stream", "module", modules[i].info.ModuleName, "error", err)
				return nil
			}
			modules[i].stream = ms
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return globals, modules, nil
}
