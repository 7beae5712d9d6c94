package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/roots/internal/catalog"
	"github.com/mrlokans/roots/internal/config"
	"github.com/mrlokans/roots/internal/ebook"
	"github.com/mrlokans/roots/internal/ebook/ebooktest"
	"github.com/mrlokans/roots/internal/entities"
	"github.com/mrlokans/roots/internal/matcher"
)

type fakeCatalog struct {
	mu      sync.Mutex
	queries []string
	result  []catalog.VolumeInfo
	err     error
	block   bool
}

func (f *fakeCatalog) Candidates(ctx context.Context, query string) ([]catalog.VolumeInfo, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.result, f.err
}

func (f *fakeCatalog) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func newPipeline(t *testing.T, library string, cfg config.Import, opts ...Option) *Pipeline {
	t.Helper()
	p, err := New(library, cfg, opts...)
	require.NoError(t, err)
	return p
}

func TestProcess(t *testing.T) {
	in := t.TempDir()
	library := filepath.Join(t.TempDir(), "library")
	path := ebooktest.WriteEpub(t, in, "download.epub", ebooktest.Epub{
		Titles:    []string{"Space: The Final Frontier"},
		Creators:  []string{"Jane Doe, John Roe"},
		Publisher: "Orbit",
	})

	res := newPipeline(t, library, config.Import{Relocate: true}).Process(context.Background(), path)
	require.NoError(t, res.Err)

	assert.Equal(t, "Space: The Final Frontier", res.Book.Title)
	assert.Equal(t, []string{"Jane Doe", "John Roe"}, res.Book.Authors)
	assert.Equal(t, ProposedMove{
		Source:      path,
		Destination: filepath.Join(library, "Jane Doe", "Space_ The Final Frontier.epub"),
		Relocate:    true,
	}, res.Move)
	assert.Nil(t, res.Match)
	assert.Empty(t, res.Book.FileHash)

	_, err := os.Stat(library)
	assert.True(t, os.IsNotExist(err), "pipeline must not create the library")
}

func TestProcessFallbackSegments(t *testing.T) {
	in := t.TempDir()
	path := ebooktest.WriteEpub(t, in, "pg1342.epub", ebooktest.Epub{Publisher: "Nobody"})

	res := newPipeline(t, "/lib", config.Import{}).Process(context.Background(), path)
	require.NoError(t, res.Err)
	assert.Equal(t, filepath.Join("/lib", "Unknown Author", "pg1342.epub"), res.Move.Destination)
}

func TestDestination(t *testing.T) {
	p := newPipeline(t, "/lib", config.Import{})

	tests := []struct {
		name   string
		book   entities.Book
		source string
		want   string
	}{
		{"primary author only", entities.Book{Title: "Good Omens", Authors: []string{"Terry Pratchett", "Neil Gaiman"}}, "x.mobi", "/lib/Terry Pratchett/Good Omens.mobi"},
		{"hidden title", entities.Book{Title: ".hidden", Authors: []string{"A"}}, "x.epub", "/lib/A/_hidden.epub"},
		{"control only title", entities.Book{Title: "\x01\x02", Authors: []string{"A"}}, "x.epub", "/lib/A/_.epub"},
		{"slashes in author", entities.Book{Title: "T", Authors: []string{"AC/DC"}}, "x.epub", "/lib/AC_DC/T.epub"},
		{"whitespace author", entities.Book{Title: "T", Authors: []string{"   "}}, "x.epub", "/lib/_/T.epub"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.want), p.Destination(tt.book, tt.source))
		})
	}
}

func TestProcessCustomReplacements(t *testing.T) {
	p := newPipeline(t, "/lib", config.Import{Replacements: []config.Replacement{{Pattern: `\s+`, Replacement: "_"}}})
	got := p.Destination(entities.Book{Title: "The Hobbit", Authors: []string{"J R R Tolkien"}}, "h.epub")
	assert.Equal(t, filepath.Join("/lib", "J_R_R_Tolkien", "The_Hobbit.epub"), got)

	_, err := New("/lib", config.Import{Replacements: []config.Replacement{{Pattern: `(`}}})
	assert.Error(t, err)
}

func TestRunContinuesAfterFailures(t *testing.T) {
	in := t.TempDir()
	good := ebooktest.WriteEpub(t, in, "a.epub", ebooktest.Epub{Titles: []string{"Emma"}, Creators: []string{"Jane Austen"}})
	unsupported := filepath.Join(in, "notes.txt")
	require.NoError(t, os.WriteFile(unsupported, []byte("text"), 0o644))
	corrupt := filepath.Join(in, "broken.mobi")
	require.NoError(t, os.WriteFile(corrupt, []byte("short"), 0o644))
	missing := ebooktest.WriteEpub(t, in, "nometa.epub", ebooktest.Epub{NoMetadata: true})

	results := newPipeline(t, "/lib", config.Import{Workers: 3}).Run(context.Background(), []string{unsupported, good, corrupt, missing})
	require.Len(t, results, 4)

	assert.ErrorIs(t, results[0].Err, ebook.ErrUnsupportedFormat)
	require.NoError(t, results[1].Err)
	assert.Equal(t, good, results[1].Source)
	assert.ErrorIs(t, results[2].Err, ebook.ErrCorruptFile)
	assert.ErrorIs(t, results[3].Err, ebook.ErrMissingHeader)
	assert.False(t, results[3].OK())
}

func TestRunDeduplicatesDestinations(t *testing.T) {
	in := t.TempDir()
	var paths []string
	for _, name := range []string{"one.epub", "two.epub", "three.epub"} {
		paths = append(paths, ebooktest.WriteEpub(t, in, name, ebooktest.Epub{
			Titles:      []string{"Emma"},
			Creators:    []string{"Jane Austen"},
			Description: name,
		}))
	}
	paths = append(paths, ebooktest.WriteMobi(t, in, "emma.mobi", ebooktest.Mobi{
		PalmName: "Emma",
		EXTH:     []ebooktest.EXTHRecord{ebooktest.Record(ebooktest.EXTHAuthor, "Jane Austen")},
	}))

	results := newPipeline(t, "/lib", config.Import{Workers: 4}).Run(context.Background(), paths)

	dir := filepath.Join("/lib", "Jane Austen")
	var got []string
	for _, r := range results {
		require.NoError(t, r.Err)
		got = append(got, r.Move.Destination)
	}
	assert.Equal(t, []string{
		filepath.Join(dir, "Emma.epub"),
		filepath.Join(dir, "Emma (2).epub"),
		filepath.Join(dir, "Emma (3).epub"),
		filepath.Join(dir, "Emma.mobi"),
	}, got)
}

func TestRunDuplicateContent(t *testing.T) {
	in := t.TempDir()
	fixture := ebooktest.Epub{Titles: []string{"Emma"}, Creators: []string{"Jane Austen"}}
	first := ebooktest.WriteEpub(t, in, "a.epub", fixture)
	data, err := os.ReadFile(first)
	require.NoError(t, err)
	second := filepath.Join(in, "b.epub")
	require.NoError(t, os.WriteFile(second, data, 0o644))
	other := ebooktest.WriteEpub(t, in, "c.epub", ebooktest.Epub{Titles: []string{"Persuasion"}, Creators: []string{"Jane Austen"}})

	results := newPipeline(t, "/lib", config.Import{Hash: true, Workers: 2}).Run(context.Background(), []string{first, second, other})

	require.NoError(t, results[0].Err)
	assert.Len(t, results[0].Book.FileHash, 64)
	assert.ErrorIs(t, results[1].Err, ErrDuplicateContent)
	require.NoError(t, results[2].Err)
	assert.NotEqual(t, results[0].Book.FileHash, results[2].Book.FileHash)
}

func TestProcessReconciles(t *testing.T) {
	in := t.TempDir()
	path := ebooktest.WriteEpub(t, in, "p.epub", ebooktest.Epub{
		Titles:   []string{"Pride and Prejudice"},
		Creators: []string{"Jane Austen"},
	})
	cat := &fakeCatalog{result: []catalog.VolumeInfo{
		{Title: "Pride and Prejudice: Annotated", Authors: []string{"Jane Austen"}},
		{
			Title:               "PRIDE AND PREJUDICE",
			Authors:             []string{"Jane Austen", "Editor"},
			Publisher:           "Penguin",
			PublishedDate:       "2003-04-29",
			IndustryIdentifiers: []catalog.Identifier{{Type: "ISBN_13", Identifier: "9780141439518"}},
		},
	}}

	res := newPipeline(t, "/lib", config.Import{Fetch: true}, WithCatalog(cat)).Process(context.Background(), path)
	require.NoError(t, res.Err)

	assert.Equal(t, []string{"Pride and Prejudice"}, cat.calls())
	require.NotNil(t, res.Match)
	assert.Equal(t, matcher.TierAuthorsTitle, res.Match.Tier)
	assert.Equal(t, 1, res.Match.Position)

	assert.Equal(t, "Pride and Prejudice", res.Book.Title, "local title wins")
	assert.Equal(t, []string{"Jane Austen"}, res.Book.Authors)
	assert.Equal(t, "Penguin", res.Book.Publisher)
	assert.Equal(t, "9780141439518", res.Book.ISBN)
	assert.Equal(t, entities.FormatEpub, res.Book.Format)
	assert.Empty(t, res.Warnings)
}

func TestProcessFetchDisabled(t *testing.T) {
	path := ebooktest.WriteEpub(t, t.TempDir(), "p.epub", ebooktest.Epub{Titles: []string{"T"}})
	cat := &fakeCatalog{}

	res := newPipeline(t, "/lib", config.Import{}, WithCatalog(cat)).Process(context.Background(), path)
	require.NoError(t, res.Err)
	assert.Empty(t, cat.calls())
}

func TestProcessCatalogFailuresDegrade(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		cat  *fakeCatalog
		cfg  config.Import
		want error
	}{
		{"network error", &fakeCatalog{err: catalog.ErrNetwork}, config.Import{Fetch: true}, catalog.ErrNetwork},
		{"timeout", &fakeCatalog{block: true}, config.Import{Fetch: true, CatalogTimeout: 20 * time.Millisecond}, context.DeadlineExceeded},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ebooktest.WriteEpub(t, dir, string(rune('a'+i))+".epub", ebooktest.Epub{
				Titles:   []string{"Local"},
				Creators: []string{"Author"},
			})

			res := newPipeline(t, "/lib", tt.cfg, WithCatalog(tt.cat)).Process(context.Background(), path)
			require.NoError(t, res.Err)
			assert.Equal(t, "Local", res.Book.Title)
			assert.Nil(t, res.Match)
			require.Len(t, res.Warnings, 1)
			assert.ErrorIs(t, res.Warnings[0], tt.want)
			assert.Equal(t, filepath.Join("/lib", "Author", "Local.epub"), res.Move.Destination)
		})
	}
}

func TestProcessSkipsUnidentifiable(t *testing.T) {
	path := ebooktest.WriteEpub(t, t.TempDir(), "anon.epub", ebooktest.Epub{Creators: []string{"Someone"}})
	cat := &fakeCatalog{}

	res := newPipeline(t, "/lib", config.Import{Fetch: true}, WithCatalog(cat)).Process(context.Background(), path)
	require.NoError(t, res.Err)
	assert.Empty(t, cat.calls())
	require.Len(t, res.Warnings, 1)
	assert.True(t, errors.Is(res.Warnings[0], entities.ErrUnidentifiableRecord))
}

func TestProcessISBNOnlyQuery(t *testing.T) {
	path := ebooktest.WriteMobi(t, t.TempDir(), "x.mobi", ebooktest.Mobi{
		EXTH: []ebooktest.EXTHRecord{ebooktest.Record(ebooktest.EXTHISBN, "0141439556")},
	})
	cat := &fakeCatalog{result: []catalog.VolumeInfo{
		{Title: "Wuthering Heights", IndustryIdentifiers: []catalog.Identifier{{Type: "ISBN_10", Identifier: "0141439556"}}},
	}}

	res := newPipeline(t, "/lib", config.Import{Fetch: true}, WithCatalog(cat)).Process(context.Background(), path)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"isbn:0141439556"}, cat.calls())
	assert.Equal(t, "Wuthering Heights", res.Book.Title)
	assert.Equal(t, filepath.Join("/lib", "Unknown Author", "Wuthering Heights.mobi"), res.Move.Destination)
}

func TestRunCallsCatalogOncePerRecord(t *testing.T) {
	in := t.TempDir()
	var paths []string
	for _, name := range []string{"a.epub", "b.epub", "c.epub"} {
		paths = append(paths, ebooktest.WriteEpub(t, in, name, ebooktest.Epub{Titles: []string{name}}))
	}
	cat := &fakeCatalog{}

	results := newPipeline(t, "/lib", config.Import{Fetch: true, Workers: 3}, WithCatalog(cat)).Run(context.Background(), paths)
	require.Len(t, results, 3)
	assert.ElementsMatch(t, []string{"a.epub", "b.epub", "c.epub"}, cat.calls())
}

func TestAllocName(t *testing.T) {
	used := map[string]struct{}{"/l/a.epub": {}, "/l/a (2).epub": {}}
	assert.Equal(t, "/l/a (3).epub", allocName("/l/a.epub", used))
	assert.Equal(t, "/l/b.epub", allocName("/l/b.epub", used))
}
