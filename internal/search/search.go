// Package search filters contacts by a free-text query, ranking the closest
// matches first.
package search

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/givers/contacts/internal/model"
)

// Rank is how well a value matches a query. Higher is better.
type Rank int

const (
	NoMatch Rank = iota
	Matches
	Acronym
	Contains
	WordStartsWith
	StartsWith
	Equal
	CaseSensitiveEqual
)

var folder = cases.Fold()

// fold lowercases s and strips diacritics so "Émile" matches "emile".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return folder.String(out)
}

// RankString ranks a single value against query.
func RankString(value, query string) Rank {
	if value == "" || query == "" {
		return NoMatch
	}
	if value == query {
		return CaseSensitiveEqual
	}

	v, q := fold(value), fold(query)
	switch {
	case v == q:
		return Equal
	case strings.HasPrefix(v, q):
		return StartsWith
	case strings.Contains(v, " "+q):
		return WordStartsWith
	case strings.Contains(v, q):
		return Contains
	case len([]rune(q)) == 1:
		// single characters only count as direct hits
		return NoMatch
	case strings.Contains(acronym(v), q):
		return Acronym
	case inOrder(v, q):
		return Matches
	default:
		return NoMatch
	}
}

// acronym returns the first letter of every word, splitting on spaces and dashes.
func acronym(s string) string {
	var b strings.Builder
	for _, word := range strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '-' }) {
		r := []rune(word)
		b.WriteRune(r[0])
	}
	return b.String()
}

// inOrder reports whether every rune of q appears in v in the same order.
func inOrder(v, q string) bool {
	qr := []rune(q)
	i := 0
	for _, r := range v {
		if i < len(qr) && r == qr[i] {
			i++
		}
	}
	return i == len(qr)
}

// RankContact returns the best rank of the contact's first and last name.
func RankContact(c *model.Contact, query string) Rank {
	return max(RankString(c.First, query), RankString(c.Last, query))
}

// Filter keeps the contacts matching query and orders them by rank, keeping
// the input order between contacts of equal rank. An empty query returns
// contacts unchanged.
func Filter(contacts []*model.Contact, query string) []*model.Contact {
	if strings.TrimSpace(query) == "" {
		return contacts
	}

	type ranked struct {
		contact *model.Contact
		rank    Rank
	}
	hits := make([]ranked, 0, len(contacts))
	for _, c := range contacts {
		if r := RankContact(c, query); r > NoMatch {
			hits = append(hits, ranked{contact: c, rank: r})
		}
	}
	slices.SortStableFunc(hits, func(a, b ranked) int { return int(b.rank) - int(a.rank) })

	out := make([]*model.Contact, len(hits))
	for i, h := range hits {
		out[i] = h.contact
	}
	return out
}
