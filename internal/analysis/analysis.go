// Package analysis builds the complete impact index over a file set: it
// parses files in parallel and then runs the symbol, factory, call graph
// and interface linking stages serially in file-set order.
package analysis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/hargabyte/phpimpact/internal/callgraph"
	"github.com/hargabyte/phpimpact/internal/factory"
	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/parser"
	"github.com/hargabyte/phpimpact/internal/phpast"
	"github.com/hargabyte/phpimpact/internal/symbols"
)

// ErrNoFiles is returned when the file set is empty.
var ErrNoFiles = errors.New("no files to analyse")

// Options controls a build.
type Options struct {
	// Workers bounds parallel parsing; zero means runtime.NumCPU().
	Workers int
	// Tolerant keeps files whose syntax tree contains errors.
	Tolerant bool
	// SkipInterfaceLinks disables the interface linking stage.
	SkipInterfaceLinks bool
	// Conventions are appended to the default factory conventions.
	Conventions []factory.Convention
	Logger      *slog.Logger
}

// SkippedFile is a file left out of the index.
type SkippedFile struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// Index is the immutable result of a build. It is safe for concurrent
// queries.
type Index struct {
	Files     []string
	Skipped   []SkippedFile
	Table     *symbols.Table
	Factories *factory.Index
	Graph     *callgraph.Graph
	// Links is the number of interface links added.
	Links int

	fingerprint uint64
	logger      *slog.Logger
}

type parsed struct {
	file *phpast.File
	hash uint64
	err  error
}

// Build parses files and assembles the index. Per-file read and parse
// failures are logged and recorded in Index.Skipped. Cancelling ctx stops
// parsing and returns the context error.
func Build(ctx context.Context, files []string, opts Options) (*Index, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) {
		workers = len(files)
	}

	results := make([]parsed, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = parseOne(gctx, path, opts.Tolerant)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parse files: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse files: %w", err)
	}

	idx := &Index{Files: append([]string(nil), files...), logger: logger}
	asts := make([]*phpast.File, 0, len(files))
	for i, r := range results {
		if r.err != nil {
			logger.Warn("index.skip_file", "file", files[i], "error", r.err)
			idx.Skipped = append(idx.Skipped, SkippedFile{Path: files[i], Error: r.err.Error()})
			continue
		}
		asts = append(asts, r.file)
	}
	logger.Debug("index.parse", "files", len(files), "parsed", len(asts), "workers", workers)

	sb := symbols.NewBuilder()
	for _, f := range asts {
		sb.AddFile(f)
	}
	idx.Table = sb.Build()

	fx := factory.NewIndexer(logger)
	for _, f := range asts {
		fx.AddFile(f)
	}
	idx.Factories = fx.Index()

	resolver := factory.NewResolver(idx.Table, opts.Conventions...)
	cb := callgraph.NewBuilder(idx.Table, idx.Factories, resolver, logger)
	for _, f := range asts {
		cb.AddFile(f)
	}
	idx.Graph = cb.Graph()

	if !opts.SkipInterfaceLinks {
		idx.Links = callgraph.Link(idx.Graph, idx.Table)
	}

	idx.fingerprint = fingerprint(results, idx.Graph)
	stats := idx.Table.Stats()
	logger.Info("graph.stats",
		"classes", stats.Classes,
		"interfaces", stats.Interfaces,
		"methods", stats.Methods,
		"factories", idx.Factories.Len(),
		"nodes", idx.Graph.NodeCount(),
		"edges", idx.Graph.EdgeCount(),
		"links", idx.Links,
	)
	return idx, nil
}

func parseOne(ctx context.Context, path string, tolerant bool) parsed {
	source, err := os.ReadFile(path)
	if err != nil {
		return parsed{err: &parser.FileReadError{Path: path, Err: err}}
	}
	p := parser.New(parser.WithTolerance(tolerant))
	defer p.Close()

	f, err := p.ParseSource(ctx, path, source)
	return parsed{file: f, hash: xxh3.Hash(source), err: err}
}

func fingerprint(results []parsed, g *callgraph.Graph) uint64 {
	h := xxh3.New()
	var buf [8]byte
	for _, r := range results {
		binary.LittleEndian.PutUint64(buf[:], r.hash)
		_, _ = h.Write(buf[:])
	}
	g.WalkReverse(func(callee naming.Key, callers []naming.Key) {
		_, _ = h.WriteString(string(callee))
		_, _ = h.Write([]byte{0})
		for _, c := range callers {
			_, _ = h.WriteString(string(c))
			_, _ = h.Write([]byte{1})
		}
		_, _ = h.Write([]byte{'\n'})
	})
	return h.Sum64()
}

// Fingerprint identifies the parsed content and the reverse call index.
// Two builds over the same files yield the same fingerprint.
func (ix *Index) Fingerprint() uint64 {
	return ix.fingerprint
}

// Counts summarises an index.
type Counts struct {
	Files   int `json:"files" yaml:"files"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Classes int `json:"classes" yaml:"classes"`
	Methods int `json:"methods" yaml:"methods"`
	Nodes   int `json:"nodes" yaml:"nodes"`
	Edges   int `json:"edges" yaml:"edges"`
}

// Counts returns the size of the index.
func (ix *Index) Counts() Counts {
	stats := ix.Table.Stats()
	return Counts{
		Files:   len(ix.Files),
		Skipped: len(ix.Skipped),
		Classes: stats.Classes + stats.Interfaces,
		Methods: stats.Methods,
		Nodes:   ix.Graph.NodeCount(),
		Edges:   ix.Graph.EdgeCount(),
	}
}
