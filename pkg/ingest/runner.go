package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"kikitori/pkg/index"
	"kikitori/pkg/parse"
	"kikitori/pkg/store"
)

// Stats summarizes one indexing run.
type Stats struct {
	Files      int // subtitle files parsed
	Failed     int // files skipped after a parse error
	Entries    int // entries newly written to the index
	Duplicates int // entries already present and left untouched
}

// EventKind discriminates progress notifications from a running ingest.
type EventKind int

const (
	// EventFileIndexed reports a parsed file and its entry count.
	EventFileIndexed EventKind = iota
	// EventFileSkipped reports a file dropped after a parse error.
	EventFileSkipped
)

// Event is one progress notification. The ingest worker owns the sending
// side; the interactive caller only ever receives.
type Event struct {
	Kind    EventKind
	Path    string
	Entries int
	Err     error
}

// Runner walks subtitle roots and feeds every parsed entry through the
// tokenizer workers into the batch writer. A single malformed file is
// logged and skipped; it never aborts the run.
type Runner struct {
	Store   *store.Store
	Builder *index.Builder

	// Workers is the tokenizer parallelism. Tokenization dominates CPU
	// time during indexing, while sqlite wants writes funneled through
	// one batch writer anyway.
	Workers   int
	QueueSize int

	// BatchSize entries share one transaction.
	BatchSize     int
	FlushInterval time.Duration

	// Events, when set, receives one notification per finished file.
	// Run blocks on sends, so the consumer must keep draining until Run
	// returns. Run does not close the channel.
	Events chan<- Event

	Logger *log.Logger
}

// NewRunner returns a Runner with the defaults used by the CLI.
func NewRunner(s *store.Store, b *index.Builder) *Runner {
	return &Runner{
		Store:         s,
		Builder:       b,
		Workers:       4,
		QueueSize:     64,
		BatchSize:     1000,
		FlushInterval: 2 * time.Second,
	}
}

// Run indexes every subtitle file under roots. Cancellation is checked
// between files, so an interrupted run leaves whole files either fully
// submitted or untouched.
func (r *Runner) Run(ctx context.Context, roots []string) (Stats, error) {
	var stats Stats

	files, err := collectFiles(roots)
	if err != nil {
		return stats, err
	}
	if len(files) == 0 {
		return stats, nil
	}

	pool := NewWorkerPool(r.Workers, r.QueueSize)
	pool.Start(ctx)

	bw := NewBatchWriter(r.Store.DB(), r.BatchSize, r.FlushInterval)
	bw.OnError = func(err error) {
		r.logf("batch commit failed: %v", err)
	}

	var inserted, dup atomic.Int64

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		entries, perr := parse.File(path)
		if perr != nil {
			stats.Failed++
			r.logf("skipping %s: %v", path, perr)
			r.notify(Event{Kind: EventFileSkipped, Path: path, Err: perr})
			continue
		}
		stats.Files++
		r.notify(Event{Kind: EventFileIndexed, Path: path, Entries: len(entries)})
		for _, e := range entries {
			e := e
			job := func(ctx context.Context) error {
				fields := r.Builder.Build(e.Text)
				return bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
					ok, err := store.InsertEntry(tx, e, fields.SurfaceTok, fields.ReadingTok)
					if err != nil {
						return err
					}
					if ok {
						inserted.Add(1)
					} else {
						dup.Add(1)
					}
					return nil
				})
			}
			if err := pool.SubmitCtx(ctx, job); err != nil {
				pool.Close()
				bw.Close()
				return stats, err
			}
		}
	}

	pool.Close()
	for perr := range pool.Errors() {
		r.logf("index worker: %v", perr)
	}
	if err := bw.Close(); err != nil {
		return stats, fmt.Errorf("flush index writes: %w", err)
	}
	if cerr := ctx.Err(); cerr != nil {
		return stats, cerr
	}

	stats.Entries = int(inserted.Load())
	stats.Duplicates = int(dup.Load())

	if err := r.Store.CreateAuxIndexes(); err != nil {
		return stats, fmt.Errorf("create indexes: %w", err)
	}
	return stats, nil
}

func (r *Runner) notify(ev Event) {
	if r.Events != nil {
		r.Events <- ev
	}
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}

// collectFiles gathers every file with a recognized subtitle extension
// under roots, sorted for a stable indexing order. A root that is a
// single file is accepted directly.
func collectFiles(roots []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if hasSubtitleExt(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

func hasSubtitleExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range parse.Exts {
		if ext == e {
			return true
		}
	}
	return false
}
