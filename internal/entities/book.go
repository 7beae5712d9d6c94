package entities

import (
	"errors"
	"time"
)

// ErrUnidentifiableRecord is returned when catalog reconciliation is attempted
// for a record that has neither a title nor an ISBN.
var ErrUnidentifiableRecord = errors.New("record is not identifiable: title or isbn required")

// Format identifies the container a record was extracted from.
type Format string

const (
	FormatEpub    Format = "epub"
	FormatMobi    Format = "mobi"
	FormatCatalog Format = "catalog" // records built from catalog entries
)

// Book is the canonical bibliographic record. Every bibliographic field is
// optional: empty strings, nil slices and a nil date mean "absent".
type Book struct {
	ID              uint       `gorm:"primaryKey" json:"id,omitempty" yaml:"-"`
	Title           string     `gorm:"index;size:512" json:"title,omitempty" yaml:"title,omitempty"`
	Authors         []string   `gorm:"serializer:json" json:"authors,omitempty" yaml:"authors,omitempty"`
	Publisher       string     `gorm:"size:256" json:"publisher,omitempty" yaml:"publisher,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty" yaml:"publication_date,omitempty"`
	Imprint         string     `gorm:"size:256" json:"imprint,omitempty" yaml:"imprint,omitempty"`
	Description     string     `gorm:"type:text" json:"description,omitempty" yaml:"description,omitempty"`
	Subjects        []string   `gorm:"serializer:json" json:"subjects,omitempty" yaml:"subjects,omitempty"`
	ASIN            string     `gorm:"size:20" json:"asin,omitempty" yaml:"asin,omitempty"`
	ISBN            string     `gorm:"index;size:20" json:"isbn,omitempty" yaml:"isbn,omitempty"`

	// Library bookkeeping, never filled by enrichment.
	Format     Format     `gorm:"size:10" json:"format,omitempty" yaml:"format,omitempty"`
	FilePath   string     `gorm:"uniqueIndex;size:1024" json:"file_path,omitempty" yaml:"file_path,omitempty"`
	FileHash   string     `gorm:"index;size:64" json:"file_hash,omitempty" yaml:"file_hash,omitempty"`
	ResolvedAt *time.Time `gorm:"index" json:"resolved_at,omitempty" yaml:"-"`
	CreatedAt  time.Time  `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt  time.Time  `json:"updated_at,omitempty" yaml:"-"`
}

func (Book) TableName() string {
	return "books"
}

// Identifiable reports whether the record carries enough identity to be
// looked up in a catalog.
func (b Book) Identifiable() bool {
	return b.Title != "" || b.ISBN != ""
}

// PrimaryAuthor returns the first listed author, or "" when none is known.
func (b Book) PrimaryAuthor() string {
	if len(b.Authors) == 0 {
		return ""
	}
	return b.Authors[0]
}

// PublicationYear returns the year of the publication date, or 0 when unset.
func (b Book) PublicationYear() int {
	if b.PublicationDate == nil {
		return 0
	}
	return b.PublicationDate.Year()
}

// Fields lists the names of the bibliographic fields that are set, in
// declaration order.
func (b Book) Fields() []string {
	var fields []string
	add := func(name string, set bool) {
		if set {
			fields = append(fields, name)
		}
	}
	add("title", b.Title != "")
	add("author", len(b.Authors) > 0)
	add("publisher", b.Publisher != "")
	add("date", b.PublicationDate != nil)
	add("imprint", b.Imprint != "")
	add("description", b.Description != "")
	add("subject", len(b.Subjects) > 0)
	add("asin", b.ASIN != "")
	add("isbn", b.ISBN != "")
	return fields
}

// QueryFields are the field names accepted by library queries.
var QueryFields = []string{
	"title", "author", "publisher", "date", "imprint",
	"description", "subject", "asin", "isbn", "format",
}
