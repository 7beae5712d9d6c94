package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/roots/internal/ebook"
	"github.com/mrlokans/roots/internal/ebook/ebooktest"
	"github.com/mrlokans/roots/internal/entities"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestNormalizeEpub(t *testing.T) {
	meta := &ebook.EpubMetadata{Entries: map[string][]string{
		"title":       {"Good Omens"},
		"creator":     {"Terry Pratchett, Neil Gaiman, ", "  "},
		"publisher":   {"Gollancz"},
		"date":        {"not a date", "1990-05-01T12:30:00+02:00"},
		"description": {"The end of the world."},
		"subject":     {"Fantasy", "Humor"},
		"identifier":  {"urn:isbn:0575048530"},
	}}

	book, err := Normalize(meta)
	require.NoError(t, err)

	assert.Equal(t, "Good Omens", book.Title)
	assert.Equal(t, []string{"Terry Pratchett", "Neil Gaiman"}, book.Authors)
	assert.Equal(t, "Gollancz", book.Publisher)
	require.NotNil(t, book.PublicationDate)
	assert.Equal(t, time.Date(1990, 5, 1, 10, 30, 0, 0, time.UTC), *book.PublicationDate)
	assert.Equal(t, time.UTC, book.PublicationDate.Location())
	assert.Equal(t, "The end of the world.", book.Description)
	assert.Equal(t, []string{"Fantasy", "Humor"}, book.Subjects)
	assert.Empty(t, book.ISBN)
	assert.Empty(t, book.ASIN)
	assert.Empty(t, book.Imprint)
	assert.Equal(t, entities.FormatEpub, book.Format)
}

func TestNormalizeEpubCreatorElements(t *testing.T) {
	meta := &ebook.EpubMetadata{Entries: map[string][]string{
		"title":   {"The Talisman"},
		"creator": {"Stephen King", "Peter Straub, Anon"},
	}}

	book, err := Normalize(meta)
	require.NoError(t, err)
	assert.Equal(t, []string{"Stephen King", "Peter Straub", "Anon"}, book.Authors)
	assert.Equal(t, "Stephen King", book.PrimaryAuthor())
}

func TestNormalizeEpubDates(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		want  *time.Time
	}{
		{"rfc3339", []string{"2001-02-03T04:05:06Z"}, func() *time.Time { d := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC); return &d }()},
		{"plain date", []string{"1813-01-28"}, date(1813, time.January, 28)},
		{"year only is absent", []string{"1813"}, nil},
		{"none", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book, err := Normalize(&ebook.EpubMetadata{Entries: map[string][]string{"date": tt.dates}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, book.PublicationDate)
		})
	}
}

func TestNormalizeMobi(t *testing.T) {
	meta := &ebook.MobiMetadata{
		Title:       "Dune",
		Author:      "Frank Herbert",
		Publisher:   "Chilton",
		Imprint:     "Ace",
		Subject:     "Science fiction; ;Arrakis",
		ISBN:        "9780441013593",
		ASIN:        "B00B7NPRY8",
		PublishDate: "1965-08-01T00:00:00+00:00",
	}

	book, err := Normalize(meta)
	require.NoError(t, err)

	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, []string{"Frank Herbert"}, book.Authors)
	assert.Equal(t, []string{"Science fiction", "Arrakis"}, book.Subjects)
	assert.Equal(t, date(1965, time.August, 1), book.PublicationDate)
	assert.Equal(t, "Ace", book.Imprint)
	assert.Equal(t, "9780441013593", book.ISBN)
	assert.Equal(t, "B00B7NPRY8", book.ASIN)
	assert.Equal(t, entities.FormatMobi, book.Format)
}

func TestNormalizeMobiCollapsesEmptyLists(t *testing.T) {
	book, err := Normalize(&ebook.MobiMetadata{Title: "x", Author: " , ,", Subject: ";", PublishDate: "sometime"})
	require.NoError(t, err)

	assert.Nil(t, book.Authors)
	assert.Nil(t, book.Subjects)
	assert.Nil(t, book.PublicationDate)
}

func TestNormalizeFixtures(t *testing.T) {
	dir := t.TempDir()

	epubPath := ebooktest.WriteEpub(t, dir, "emma.epub", ebooktest.Epub{
		Titles:    []string{"Emma"},
		Creators:  []string{"Jane Austen"},
		Publisher: "John Murray",
	})
	mobiPath := ebooktest.WriteMobi(t, dir, "emma.mobi", ebooktest.Mobi{
		PalmName: "Emma",
		FullName: []byte("Emma"),
		EXTH: []ebooktest.EXTHRecord{
			ebooktest.Record(ebooktest.EXTHAuthor, "Jane Austen"),
			ebooktest.Record(ebooktest.EXTHPublisher, "John Murray"),
		},
	})

	for _, path := range []string{epubPath, mobiPath} {
		t.Run(path, func(t *testing.T) {
			adapter, err := ebook.ForPath(path)
			require.NoError(t, err)
			raw, err := adapter.Extract(path)
			require.NoError(t, err)

			book, err := Normalize(raw)
			require.NoError(t, err)
			assert.Equal(t, "Emma", book.Title)
			assert.Equal(t, []string{"Jane Austen"}, book.Authors)
			assert.Equal(t, "John Murray", book.Publisher)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"2020-02-29", true},
		{"2020-02-29T10:00:00Z", true},
		{"2020-02-29 10:00", false},
		{"2020-13-01", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestMerge(t *testing.T) {
	local := entities.Book{
		ID:       7,
		Title:    "Local Title",
		FilePath: "/lib/a.epub",
		Subjects: []string{"local"},
	}
	remote := entities.Book{
		ID:              99,
		Title:           "Remote Title",
		Authors:         []string{"Remote Author"},
		Publisher:       "Remote Pub",
		PublicationDate: date(2000, time.January, 1),
		Description:     "remote description",
		Subjects:        []string{"remote"},
		ISBN:            "123",
		FilePath:        "/elsewhere",
		Format:          entities.FormatCatalog,
	}

	merged := Merge(local, remote)

	t.Run("local fields win", func(t *testing.T) {
		assert.Equal(t, "Local Title", merged.Title)
		assert.Equal(t, []string{"local"}, merged.Subjects)
		assert.Equal(t, uint(7), merged.ID)
		assert.Equal(t, "/lib/a.epub", merged.FilePath)
		assert.Empty(t, merged.Format)
	})

	t.Run("unset fields filled", func(t *testing.T) {
		assert.Equal(t, []string{"Remote Author"}, merged.Authors)
		assert.Equal(t, "Remote Pub", merged.Publisher)
		assert.Equal(t, date(2000, time.January, 1), merged.PublicationDate)
		assert.Equal(t, "remote description", merged.Description)
		assert.Equal(t, "123", merged.ISBN)
		assert.Empty(t, merged.ASIN)
	})

	t.Run("inputs untouched", func(t *testing.T) {
		assert.Nil(t, local.Authors)
		assert.Empty(t, local.ISBN)
		merged.Authors[0] = "changed"
		assert.Equal(t, "Remote Author", remote.Authors[0])
	})
}
