// Package services coordinates the import pipeline, file moves and the
// library store.
package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/mrlokans/roots/internal/fsx"
	"github.com/mrlokans/roots/internal/importer"
)

// ErrImportFailed is returned by Report.Err when at least one file failed.
var ErrImportFailed = errors.New("one or more files failed to import")

// Library imports files into the library directory and keeps the store in
// step with it.
type Library struct {
	dir    string
	runner Runner
	mover  Mover
	store  BookStore
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Library)

func WithLogger(l *slog.Logger) Option {
	return func(lib *Library) { lib.logger = l }
}

// WithClock replaces time.Now for ResolvedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(lib *Library) { lib.now = now }
}

// NewLibrary creates a Library rooted at dir.
func NewLibrary(dir string, runner Runner, mover Mover, store BookStore, opts ...Option) *Library {
	lib := &Library{
		dir:    dir,
		runner: runner,
		mover:  mover,
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(lib)
	}
	return lib
}

// ImportOptions controls a single import run.
type ImportOptions struct {
	// DryRun plans moves without executing them or storing records.
	DryRun bool
}

// Report is the outcome of an import run. Results keep the pipeline's
// per-file order.
type Report struct {
	Results  []importer.Result
	Imported int
	Planned  int
	Failed   int
}

// Err returns ErrImportFailed when any file failed.
func (r Report) Err() error {
	if r.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrImportFailed, r.Failed, len(r.Results))
	}
	return nil
}

// Summary is a one-line account of the run.
func (r Report) Summary() string {
	if r.Planned > 0 {
		return fmt.Sprintf("Planned %d, failed %d", r.Planned, r.Failed)
	}
	return fmt.Sprintf("Imported %d, failed %d", r.Imported, r.Failed)
}

// Import runs the pipeline over paths, executes the proposed moves and
// stores the resulting records. Per-file failures are recorded in the
// report and never stop the run.
func (l *Library) Import(ctx context.Context, paths []string, opts ImportOptions) Report {
	results := l.runner.Run(ctx, paths)
	report := Report{Results: results}

	for i := range results {
		r := &results[i]
		if r.Err == nil && r.Book.FileHash != "" {
			l.checkStoredDuplicate(r)
		}
		if r.Err == nil && ctx.Err() != nil {
			r.Err = ctx.Err()
		}
		if r.Err != nil {
			report.Failed++
			continue
		}
		if opts.DryRun {
			report.Planned++
			continue
		}
		if err := l.commit(r); err != nil {
			r.Err = err
			report.Failed++
			l.logger.Warn("Import failed", "file", r.Source, "error", err)
			continue
		}
		report.Imported++
	}

	l.logger.Info("Import finished", "files", len(results), "imported", report.Imported,
		"planned", report.Planned, "failed", report.Failed)
	return report
}

func (l *Library) commit(r *importer.Result) error {
	dest, err := l.mover.Execute(r.Move)
	if err != nil {
		return fmt.Errorf("move %s: %w", r.Source, err)
	}
	r.Move.Destination = dest
	r.Book.FilePath = dest

	now := l.now()
	r.Book.ResolvedAt = &now
	if err := l.store.Save(&r.Book); err != nil {
		return fmt.Errorf("store %s: %w", dest, err)
	}
	l.logger.Debug("Imported file", "source", r.Source, "destination", dest)
	return nil
}

// checkStoredDuplicate marks r as duplicate content when the store already
// holds a record with the same hash at another path.
func (l *Library) checkStoredDuplicate(r *importer.Result) {
	stored, err := l.store.FindByHash(r.Book.FileHash)
	if err != nil {
		l.logger.Warn("Duplicate lookup failed", "file", r.Source, "error", err)
		return
	}
	source, dest := canonical(r.Source), canonical(r.Move.Destination)
	for _, b := range stored {
		if p := canonical(b.FilePath); p != source && p != dest {
			r.Err = fmt.Errorf("%w: %s has the same content as %s", importer.ErrDuplicateContent, r.Source, b.FilePath)
			return
		}
	}
}

// canonical returns fsx.Canonical(path), or path itself when it cannot be
// resolved.
func canonical(path string) string {
	if c, err := fsx.Canonical(path); err == nil {
		return c
	}
	return path
}

// UpdateReport is the outcome of a library rescan.
type UpdateReport struct {
	Results []importer.Result
	Updated int
	Removed int
	Failed  int
}

// Update rescans the library directory, refreshes the stored record of
// every readable file in place and forgets records whose file is gone.
func (l *Library) Update(ctx context.Context) (UpdateReport, error) {
	var report UpdateReport

	files, err := importer.Discover(l.dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return report, fmt.Errorf("scan library: %w", err)
	}

	report.Results = l.runner.Run(ctx, files)
	seen := make(map[string]struct{}, len(report.Results))
	for i := range report.Results {
		r := &report.Results[i]
		path := canonical(r.Source)
		seen[path] = struct{}{}
		if r.Err != nil {
			report.Failed++
			continue
		}

		r.Book.FilePath = path
		now := l.now()
		r.Book.ResolvedAt = &now
		if err := l.store.Save(&r.Book); err != nil {
			r.Err = fmt.Errorf("store %s: %w", path, err)
			report.Failed++
			continue
		}
		report.Updated++
	}

	stored, err := l.store.Paths()
	if err != nil {
		return report, fmt.Errorf("list stored paths: %w", err)
	}
	for _, path := range stored {
		if _, ok := seen[path]; ok {
			continue
		}
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := l.store.DeleteByPath(path); err != nil {
			return report, fmt.Errorf("forget %s: %w", path, err)
		}
		report.Removed++
		l.logger.Debug("Forgot missing file", "path", path)
	}

	l.logger.Info("Library updated", "updated", report.Updated, "removed", report.Removed, "failed", report.Failed)
	return report, nil
}
