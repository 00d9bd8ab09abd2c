// Package runner drives a whole conversion: it loads the library and
// program classes, converts the program classes in parallel and writes the
// result to a directory or a jar.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/backport/internal/backport/cache"
	"github.com/conduit-lang/backport/internal/backport/converter"
	"github.com/conduit-lang/backport/internal/backport/replace"
	"github.com/conduit-lang/backport/internal/backport/rules"
	"github.com/conduit-lang/backport/internal/classfile"
	"github.com/conduit-lang/backport/internal/classpool"
	"github.com/conduit-lang/backport/internal/diagnostics"
)

var (
	ErrNoInputs = errors.New("no input paths")
	ErrNoOutput = errors.New("no output path")
)

// Options configures a run
type Options struct {
	Inputs    []string
	Libraries []string
	// Output is a directory, or a jar or zip file
	Output string
	// Jobs bounds the number of classes converted at once; 0 means one per CPU
	Jobs     int
	Rules    *rules.Set
	DontWarn []string
	// Incremental skips classes converted by an earlier run with the same
	// rules and libraries. It only applies to directory output.
	Incremental  bool
	CachePath    string
	CheckMissing bool
	Logger       *zap.Logger
	// Warnings receives diagnostics as they are produced, after dont-warn
	// filtering. Configuration errors are never filtered.
	Warnings diagnostics.Sink
	// Progress is called after each class, possibly from several goroutines
	Progress func(done, total int)
}

// item is one input entry on its way to the output
type item struct {
	entry    classpool.Entry
	class    *classfile.Class
	out      []byte
	modified bool
	cached   bool
	// keep leaves an existing output file in place
	keep bool
}

// Run performs a conversion
func Run(ctx context.Context, opts Options) (*Report, error) {
	if len(opts.Inputs) == 0 {
		return nil, ErrNoInputs
	}
	if opts.Output == "" {
		return nil, ErrNoOutput
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	set := opts.Rules
	if set == nil {
		set = &rules.Set{}
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	report := &Report{RunID: uuid.NewString(), StartedAt: time.Now()}
	logger = logger.With(zap.String("run_id", report.RunID))

	library, skipped, err := classpool.Load(opts.Libraries...)
	if err != nil {
		return nil, fmt.Errorf("failed to load libraries: %w", err)
	}
	for _, name := range skipped {
		logger.Warn("skipping unreadable library class", zap.String("name", name))
	}
	logger.Info("loaded libraries", zap.Int("classes", library.Size()))

	program := classpool.New()
	items, err := readInputs(opts.Inputs, program, logger)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.entry.IsClass() && it.class == nil {
			report.Malformed = append(report.Malformed, it.entry.Name)
		}
	}

	collector := diagnostics.NewCollector()
	reported := diagnostics.Tee{collector, opts.Warnings}
	dontWarn := append(append([]string(nil), set.DontWarn...), opts.DontWarn...)
	filter := diagnostics.NewFilter(reported, dontWarn)

	registry := replace.New(set.Types, set.Methods, replace.Lookups{program, library}, reported)
	report.DroppedRules = collector.Len()
	report.TypeRules = len(registry.TypeRules())
	report.MethodRules = len(registry.MethodRules())

	var incremental *cache.Cache
	if opts.Incremental && !classpool.IsArchive(opts.Output) {
		incremental, err = openCache(opts, set)
		if err != nil {
			return nil, err
		}
	}

	conv := converter.New(registry, program, library,
		converter.WithWarnings(filter),
		converter.WithMissingReferenceCheck(opts.CheckMissing),
		converter.WithLogger(logger))

	if err := convertAll(ctx, conv, items, jobs, incremental, opts); err != nil {
		return nil, err
	}

	if classpool.IsArchive(opts.Output) {
		err = writeArchive(opts.Output, items)
	} else {
		err = writeDir(opts.Output, items)
	}
	if err != nil {
		return nil, err
	}

	if incremental != nil {
		keep := make(map[string]bool, len(items))
		for _, it := range items {
			keep[it.entry.Name] = true
		}
		incremental.Prune(keep)
		if err := incremental.Save(); err != nil {
			return nil, fmt.Errorf("failed to save cache: %w", err)
		}
	}

	for _, it := range items {
		switch {
		case it.class == nil:
			report.Copied++
		case it.cached:
			report.Classes++
			report.Cached++
		default:
			report.Classes++
		}
		if it.modified {
			report.Modified++
		}
	}
	report.Diagnostics = collector.Diagnostics()
	report.Warnings = len(report.Diagnostics) - report.DroppedRules
	report.Suppressed = filter.Suppressed()
	report.Duration = time.Since(report.StartedAt)

	logger.Info("conversion finished",
		zap.Int("classes", report.Classes),
		zap.Int("modified", report.Modified),
		zap.Int("cached", report.Cached),
		zap.Int("warnings", report.Warnings),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// readInputs parses every input class into program. Later inputs never
// replace an entry of an earlier one.
func readInputs(inputs []string, program *classpool.ClassPool, logger *zap.Logger) ([]*item, error) {
	var items []*item
	seen := make(map[string]bool)
	for _, input := range inputs {
		err := classpool.Walk(input, func(e classpool.Entry) error {
			if seen[e.Name] {
				logger.Warn("duplicate input entry", zap.String("name", e.Name), zap.String("input", input))
				return nil
			}
			seen[e.Name] = true

			it := &item{entry: e, out: e.Data}
			if e.IsClass() {
				c, err := classfile.Parse(e.Data)
				if err != nil {
					logger.Warn("copying unreadable class unchanged", zap.String("name", e.Name), zap.Error(err))
				} else {
					it.class = c
					program.Add(c)
				}
			}
			items = append(items, it)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

func openCache(opts Options, set *rules.Set) (*cache.Cache, error) {
	path := opts.CachePath
	if path == "" {
		path = filepath.Join(opts.Output, cache.FileName)
	}
	fingerprint, err := cache.Fingerprint(set, opts.Libraries, opts.CheckMissing)
	if err != nil {
		return nil, err
	}
	return cache.Open(path, fingerprint)
}

// convertAll converts every parsed class, at most jobs at a time
func convertAll(ctx context.Context, conv *converter.Converter, items []*item, jobs int, c *cache.Cache, opts Options) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	total := 0
	for _, it := range items {
		if it.class != nil {
			total++
		}
	}
	var done atomic.Int64
	progress := func() {
		n := done.Add(1)
		if opts.Progress != nil {
			opts.Progress(int(n), total)
		}
	}

	for _, it := range items {
		if it.class == nil {
			continue
		}
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer progress()
			if c != nil {
				if entry, ok := c.Lookup(it.entry.Name, it.entry.Data); ok {
					if !entry.Modified {
						it.cached = true
						return nil
					}
					if _, err := os.Stat(filepath.Join(opts.Output, filepath.FromSlash(it.entry.Name))); err == nil {
						it.cached, it.keep, it.modified = true, true, true
						return nil
					}
				}
			}

			it.modified = conv.Convert(it.class)
			if it.modified {
				data, err := it.class.Bytes()
				if err != nil {
					return fmt.Errorf("failed to write %s: %w", it.entry.Name, err)
				}
				it.out = data
			}
			if c != nil {
				c.Record(it.entry.Name, it.entry.Data, it.modified)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func writeDir(dir string, items []*item) error {
	for _, it := range items {
		if it.keep {
			continue
		}
		path := filepath.Join(dir, filepath.FromSlash(it.entry.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(path, it.out, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

func writeArchive(path string, items []*item) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := zip.NewWriter(f)
	for _, it := range items {
		fw, err := w.Create(it.entry.Name)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", it.entry.Name, err)
		}
		if _, err := fw.Write(it.out); err != nil {
			return fmt.Errorf("failed to add %s: %w", it.entry.Name, err)
		}
	}
	return w.Close()
}
