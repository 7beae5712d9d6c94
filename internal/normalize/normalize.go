// Package normalize maps format-specific raw metadata into entities.Book and
// merges catalog records into local ones.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/roots/internal/ebook"
	"github.com/mrlokans/roots/internal/entities"
)

const (
	authorDelimiter  = ","
	subjectDelimiter = ";"
	dateLayout       = "2006-01-02"
)

// Normalize converts raw into a Book. Fields missing from raw stay unset.
func Normalize(raw ebook.RawMetadata) (entities.Book, error) {
	switch m := raw.(type) {
	case *ebook.EpubMetadata:
		return fromEpub(m), nil
	case *ebook.MobiMetadata:
		return fromMobi(m), nil
	default:
		return entities.Book{}, fmt.Errorf("normalize: unsupported metadata type %T", raw)
	}
}

func fromEpub(m *ebook.EpubMetadata) entities.Book {
	var authors []string
	for _, creator := range m.Values("creator") {
		authors = append(authors, SplitList(creator, authorDelimiter)...)
	}

	var date *time.Time
	for _, value := range m.Values("date") {
		if t, ok := parseEpubDate(value); ok {
			date = &t
			break
		}
	}

	var subjects []string
	if values := m.Values("subject"); len(values) > 0 {
		subjects = append(subjects, values...)
	}

	return entities.Book{
		Title:           m.First("title"),
		Authors:         authors,
		Publisher:       m.First("publisher"),
		PublicationDate: date,
		Description:     m.First("description"),
		Subjects:        subjects,
		Format:          entities.FormatEpub,
	}
}

func fromMobi(m *ebook.MobiMetadata) entities.Book {
	var date *time.Time
	if t, ok := ParseDate(m.PublishDate); ok {
		date = &t
	}

	return entities.Book{
		Title:           m.Title,
		Authors:         SplitList(m.Author, authorDelimiter),
		Publisher:       m.Publisher,
		PublicationDate: date,
		Imprint:         m.Imprint,
		Description:     m.Description,
		Subjects:        SplitList(m.Subject, subjectDelimiter),
		ASIN:            m.ASIN,
		ISBN:            m.ISBN,
		Format:          entities.FormatMobi,
	}
}

// SplitList splits s on sep, trims every segment and drops empty ones.
// It returns nil when nothing remains.
func SplitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseEpubDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ParseDate reads a YYYY-MM-DD literal, optionally followed by a time part
// introduced with 'T'. The result is midnight UTC.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if len(value) > len(dateLayout) && value[len(dateLayout)] == 'T' {
		value = value[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Merge returns a copy of local with every unset bibliographic field filled
// from remote. Fields set in local are never replaced, and library
// bookkeeping columns always come from local.
func Merge(local, remote entities.Book) entities.Book {
	merged := local
	merged.Authors = cloneStrings(local.Authors)
	merged.Subjects = cloneStrings(local.Subjects)

	if merged.Title == "" {
		merged.Title = remote.Title
	}
	if len(merged.Authors) == 0 {
		merged.Authors = cloneStrings(remote.Authors)
	}
	if merged.Publisher == "" {
		merged.Publisher = remote.Publisher
	}
	if merged.PublicationDate == nil && remote.PublicationDate != nil {
		t := *remote.PublicationDate
		merged.PublicationDate = &t
	} else if merged.PublicationDate != nil {
		t := *merged.PublicationDate
		merged.PublicationDate = &t
	}
	if merged.Imprint == "" {
		merged.Imprint = remote.Imprint
	}
	if merged.Description == "" {
		merged.Description = remote.Description
	}
	if len(merged.Subjects) == 0 {
		merged.Subjects = cloneStrings(remote.Subjects)
	}
	if merged.ASIN == "" {
		merged.ASIN = remote.ASIN
	}
	if merged.ISBN == "" {
		merged.ISBN = remote.ISBN
	}
	return merged
}

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}
