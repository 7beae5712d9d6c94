// Package importer turns e-book files into library records and proposed
// file moves.
//
// Per file the pipeline runs:
// select adapter → extract → normalize → (optional) catalog reconciliation →
// sanitized destination → ProposedMove.
//
// It never touches the library directory itself; the fsx package executes
// the moves it proposes.
package importer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/roots/internal/catalog"
	"github.com/mrlokans/roots/internal/config"
	"github.com/mrlokans/roots/internal/ebook"
	"github.com/mrlokans/roots/internal/entities"
	"github.com/mrlokans/roots/internal/matcher"
	"github.com/mrlokans/roots/internal/normalize"
	"github.com/mrlokans/roots/internal/pathsafe"
)

// ErrDuplicateContent is recorded for a file whose content hash equals the
// hash of an earlier file in the same batch.
var ErrDuplicateContent = errors.New("duplicate content")

const (
	unknownAuthor = "Unknown Author"
	emptySegment  = "_"
)

// Catalog provides candidate entries for a record.
//
// Implementations:
//   - catalog.Client (googlebooks.go) - Google Books volumes API
type Catalog interface {
	Candidates(ctx context.Context, query string) ([]catalog.VolumeInfo, error)
}

// ProposedMove is the advisory outcome of processing one file.
type ProposedMove struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Relocate    bool   `json:"relocate"`  // move instead of copy
	Overwrite   bool   `json:"overwrite"` // an existing destination may be replaced
}

// Result is the per-file outcome of a pipeline run. Err is set when the file
// could not be processed; Warnings collect degradations that did not stop it.
type Result struct {
	Source   string
	Book     entities.Book
	Match    *matcher.Candidate
	Move     ProposedMove
	Warnings []error
	Err      error
}

// OK reports whether the file produced a move.
func (r Result) OK() bool { return r.Err == nil }

// Pipeline is configured once and safe for concurrent use.
type Pipeline struct {
	library string
	cfg     config.Import
	rules   []pathsafe.Rule
	catalog Catalog
	logger  *slog.Logger
}

type Option func(*Pipeline)

// WithCatalog enables reconciliation when the import configuration asks
// for it.
func WithCatalog(c Catalog) Option {
	return func(p *Pipeline) { p.catalog = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline that proposes destinations under library.
func New(library string, cfg config.Import, opts ...Option) (*Pipeline, error) {
	rules, err := pathsafe.CompileRules(cfg.Replacements)
	if err != nil {
		return nil, fmt.Errorf("compile replacements: %w", err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	p := &Pipeline{
		library: library,
		cfg:     cfg,
		rules:   rules,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process runs the pipeline for a single file. Destinations are not
// deduplicated; use Run for batches.
func (p *Pipeline) Process(ctx context.Context, path string) Result {
	res := Result{Source: path}

	adapter, err := ebook.ForPath(path)
	if err != nil {
		res.Err = err
		return res
	}

	raw, err := adapter.Extract(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Warnings = append(res.Warnings, raw.Warnings()...)

	book, err := normalize.Normalize(raw)
	if err != nil {
		res.Err = err
		return res
	}

	if p.cfg.Hash {
		sum, err := HashFile(path)
		if err != nil {
			res.Err = fmt.Errorf("hash %s: %w", path, err)
			return res
		}
		book.FileHash = sum
	}

	if p.cfg.Fetch && p.catalog != nil {
		book = p.reconcile(ctx, book, &res)
	}

	res.Book = book
	res.Move = ProposedMove{
		Source:      path,
		Destination: p.Destination(book, path),
		Relocate:    p.cfg.Relocate,
		Overwrite:   p.cfg.Overwrite,
	}
	return res
}

func (p *Pipeline) reconcile(ctx context.Context, book entities.Book, res *Result) entities.Book {
	if !book.Identifiable() {
		res.Warnings = append(res.Warnings, fmt.Errorf("skip catalog lookup: %w", entities.ErrUnidentifiableRecord))
		return book
	}

	if p.cfg.CatalogTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.CatalogTimeout)
		defer cancel()
	}

	candidates, err := p.catalog.Candidates(ctx, Query(book))
	if err != nil {
		p.logger.Warn("Catalog lookup failed, keeping local metadata", "file", res.Source, "error", err)
		res.Warnings = append(res.Warnings, err)
		return book
	}

	best, err := matcher.Match(book, candidates)
	if err != nil {
		res.Warnings = append(res.Warnings, err)
		return book
	}
	if best == nil {
		p.logger.Debug("No catalog match", "file", res.Source, "candidates", len(candidates))
		return book
	}

	res.Match = best
	p.logger.Debug("Matched catalog entry", "file", res.Source, "tier", best.Tier.String(), "score", best.Score)
	return normalize.Merge(book, best.Info.Book())
}

// Query is the catalog search text for book: its title, or an isbn:
// query when only the isbn is known.
func Query(book entities.Book) string {
	if book.Title != "" {
		return book.Title
	}
	return "isbn:" + book.ISBN
}

// Destination derives <library>/<author>/<title><ext> for book, with both
// segments sanitized.
func (p *Pipeline) Destination(book entities.Book, source string) string {
	author := book.PrimaryAuthor()
	if author == "" {
		author = unknownAuthor
	}
	ext := filepath.Ext(source)
	title := book.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(source), ext)
	}
	return filepath.Join(p.library, p.segment(author), p.segment(title)+ext)
}

func (p *Pipeline) segment(text string) string {
	if s := pathsafe.Sanitize(p.rules, text); s != "" {
		return s
	}
	return emptySegment
}

// Run processes paths on a bounded worker pool and deduplicates the
// resulting destinations in input order. Results are index-aligned with
// paths; a failing file never stops the others.
func (p *Pipeline) Run(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = p.Process(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	if p.cfg.Hash {
		markDuplicateContent(results)
	}
	dedupeDestinations(results)

	for _, r := range results {
		if r.Err != nil {
			p.logger.Warn("Import failed", "file", r.Source, "error", r.Err)
		}
	}
	return results
}

func markDuplicateContent(results []Result) {
	seen := make(map[string]string, len(results))
	for i := range results {
		r := &results[i]
		if r.Err != nil || r.Book.FileHash == "" {
			continue
		}
		if first, ok := seen[r.Book.FileHash]; ok {
			r.Err = fmt.Errorf("%w: %s has the same content as %s", ErrDuplicateContent, r.Source, first)
			continue
		}
		seen[r.Book.FileHash] = r.Source
	}
}

func dedupeDestinations(results []Result) {
	used := make(map[string]struct{}, len(results))
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			continue
		}
		r.Move.Destination = allocName(r.Move.Destination, used)
		used[r.Move.Destination] = struct{}{}
	}
}

// allocName returns path, or the first "name (n).ext" variant not in used.
func allocName(path string, used map[string]struct{}) string {
	if _, ok := used[path]; !ok {
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 2; ; n++ {
		cand := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if _, ok := used[cand]; !ok {
			return cand
		}
	}
}

// HashFile returns the hex blake2b-256 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
