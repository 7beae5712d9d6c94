package books

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mrlokans/roots/internal/entities"
)

// ErrUnknownField is returned for a field:value term naming a field that
// cannot be queried.
var ErrUnknownField = errors.New("unknown query field")

var fieldColumns = map[string]string{
	"title":       "title",
	"author":      "authors",
	"publisher":   "publisher",
	"date":        "publication_date",
	"imprint":     "imprint",
	"description": "description",
	"subject":     "subjects",
	"asin":        "asin",
	"isbn":        "isbn",
	"format":      "format",
}

// Term restricts a query to records whose Field contains Value, ignoring
// case. A date term matches a year, year-month or full date prefix.
type Term struct {
	Field string
	Value string
}

func (t Term) where() (string, string, error) {
	col, ok := fieldColumns[t.Field]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownField, t.Field)
	}
	if t.Field == "date" {
		return col + " LIKE ?", t.Value + "%", nil
	}
	return "LOWER(" + col + ") LIKE ?", contains(t.Value), nil
}

// Query is a conjunction of field terms and free-text words matched
// against titles. The zero Query matches every record.
type Query struct {
	Terms []Term
	Text  []string
}

// ParseQuery builds a Query from command-line arguments. An argument of the
// form field:value becomes a Term; anything else is split into title
// words. A field-like prefix that is not a known field is an error, while a
// colon followed by a space ("Dune: Messiah") is plain text.
func ParseQuery(args []string) (Query, error) {
	var q Query
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, ":")
		if !ok || !isFieldName(field) || value == "" || strings.HasPrefix(value, " ") {
			q.Text = append(q.Text, strings.Fields(arg)...)
			continue
		}
		field = strings.ToLower(field)
		if !slices.Contains(entities.QueryFields, field) {
			return Query{}, fmt.Errorf("%w: %q (see the fields command)", ErrUnknownField, field)
		}
		q.Terms = append(q.Terms, Term{Field: field, Value: strings.TrimSpace(value)})
	}
	return q, nil
}

// Add appends a term unless value is empty.
func (q *Query) Add(field, value string) {
	if value = strings.TrimSpace(value); value != "" {
		q.Terms = append(q.Terms, Term{Field: field, Value: value})
	}
}

// Empty reports whether q has no restrictions.
func (q Query) Empty() bool {
	return len(q.Terms) == 0 && len(q.Text) == 0
}

func isFieldName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
