// Package matcher selects the catalog entry that best identifies a local
// book.
//
// Candidates are evaluated in tiers, strongest evidence first:
//
//  1. ISBN: the record's isbn equals one of the candidate's identifiers.
//  2. Authors and title: titles are equal and at least one author is shared.
//  3. Year and title: titles are equal and the publication years agree.
//  4. Title: titles are equal.
//  5. Authors: at least one author is shared.
//
// The first tier that matches any candidate decides. Inside that tier the
// candidate agreeing with the record on the most of title, each author,
// year and publisher wins; ties keep response order.
package matcher

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/mrlokans/roots/internal/catalog"
	"github.com/mrlokans/roots/internal/entities"
)

// ErrAmbiguousMatch is returned when the matcher is asked to identify a
// record that carries neither a title nor an isbn.
var ErrAmbiguousMatch = errors.New("ambiguous match")

// Tier is the strength of the evidence linking a candidate to a record.
// Lower values are stronger; TierNone means no evidence.
type Tier int

const (
	TierNone Tier = iota
	TierISBN
	TierAuthorsTitle
	TierYearTitle
	TierTitle
	TierAuthors
)

func (t Tier) String() string {
	switch t {
	case TierISBN:
		return "isbn"
	case TierAuthorsTitle:
		return "authors+title"
	case TierYearTitle:
		return "year+title"
	case TierTitle:
		return "title"
	case TierAuthors:
		return "authors"
	default:
		return "none"
	}
}

// MarshalText renders the tier by name in JSON and YAML output.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Candidate is a catalog entry evaluated against a record.
type Candidate struct {
	Info     catalog.VolumeInfo `json:"volume_info"`
	Position int                `json:"position"` // Index in the catalog response
	Tier     Tier               `json:"tier"`
	Score    int                `json:"score"`
}

// Match returns the best candidate for record, or nil when no tier matches.
func Match(record entities.Book, infos []catalog.VolumeInfo) (*Candidate, error) {
	ranked, err := Rank(record, infos)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, nil
	}
	best := ranked[0]
	return &best, nil
}

// Rank returns every candidate that matches some tier, ordered by tier,
// then by descending score, then by response position. Its first element
// is what Match returns.
func Rank(record entities.Book, infos []catalog.VolumeInfo) ([]Candidate, error) {
	if !record.Identifiable() {
		return nil, &UnidentifiableError{Record: record}
	}

	q := newQuery(record)
	ranked := make([]Candidate, 0, len(infos))
	for i, info := range infos {
		tier, score := q.evaluate(info)
		if tier == TierNone {
			continue
		}
		ranked = append(ranked, Candidate{Info: info, Position: i, Tier: tier, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Tier != ranked[j].Tier {
			return ranked[i].Tier < ranked[j].Tier
		}
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}

// UnidentifiableError reports a record without title and isbn. It matches
// both ErrAmbiguousMatch and entities.ErrUnidentifiableRecord.
type UnidentifiableError struct {
	Record entities.Book
}

func (e *UnidentifiableError) Error() string {
	return fmt.Sprintf("%v: %v", ErrAmbiguousMatch, entities.ErrUnidentifiableRecord)
}

func (e *UnidentifiableError) Is(target error) bool {
	return target == ErrAmbiguousMatch || target == entities.ErrUnidentifiableRecord
}

// query holds the normalized form of a record.
type query struct {
	isbn      string
	title     string
	authors   []string
	year      int
	publisher string
}

func newQuery(record entities.Book) query {
	q := query{
		isbn:      record.ISBN,
		title:     Fold(record.Title),
		year:      record.PublicationYear(),
		publisher: Fold(record.Publisher),
	}
	for _, a := range record.Authors {
		if f := Fold(a); f != "" {
			q.authors = append(q.authors, f)
		}
	}
	return q
}

func (q query) evaluate(info catalog.VolumeInfo) (Tier, int) {
	title := Fold(info.Title)
	titleMatch := q.title != "" && title == q.title

	candidateAuthors := make(map[string]struct{}, len(info.Authors))
	for _, a := range info.Authors {
		candidateAuthors[Fold(a)] = struct{}{}
	}
	sharedAuthors := 0
	for _, a := range q.authors {
		if _, ok := candidateAuthors[a]; ok {
			sharedAuthors++
		}
	}

	yearMatch := q.year != 0 && info.Year() == q.year
	publisherMatch := q.publisher != "" && Fold(info.Publisher) == q.publisher

	score := sharedAuthors
	if titleMatch {
		score++
	}
	if yearMatch {
		score++
	}
	if publisherMatch {
		score++
	}

	switch {
	case q.isbn != "" && info.HasIdentifier(q.isbn):
		return TierISBN, score
	case titleMatch && sharedAuthors > 0:
		return TierAuthorsTitle, score
	case titleMatch && yearMatch:
		return TierYearTitle, score
	case titleMatch:
		return TierTitle, score
	case sharedAuthors > 0:
		return TierAuthors, score
	default:
		return TierNone, 0
	}
}

// Fold normalizes s for comparison: NFC composition, full Unicode case
// folding and collapsed whitespace. A Caser is stateful, so each call
// builds its own.
func Fold(s string) string {
	s = cases.Fold().String(norm.NFC.String(s))
	return strings.Join(strings.Fields(s), " ")
}
