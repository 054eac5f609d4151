// Package ir defines the minimal intermediate-representation shapes the
// elaboration driver links against: names, handles, parameters, ports,
// cells and modules. It owns no parser, printer, or optimization pass.
package ir

import (
	"github.com/cespare/xxhash/v2"
)

// Name is a (text, case-sensitive) pair. Two names are compared with
// Matches, never with ==; the raw text is kept verbatim (including the
// original spelling of a case-insensitive name) so diagnostics can cite
// what was actually written.
type Name struct {
	Text          string
	CaseSensitive bool
}

// NewName builds a case-sensitive name.
func NewName(text string) Name { return Name{Text: text, CaseSensitive: true} }

// NewInsensitiveName builds a case-insensitive name.
func NewInsensitiveName(text string) Name { return Name{Text: text} }

// Matches reports whether n and other denote the same name: both
// case-sensitive and bytewise equal, or at least one case-insensitive
// and equal ignoring ASCII case.
func (n Name) Matches(other Name) bool {
	if n.CaseSensitive && other.CaseSensitive {
		return n.Text == other.Text
	}
	return equalASCIIFold(n.Text, other.Text)
}

// equalASCIIFold compares two strings ignoring ASCII case only (never
// touches non-ASCII bytes), which is what "equal ignoring ASCII case"
// means for identifiers that may contain non-ASCII text.
func equalASCIIFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca == cb {
			continue
		}
		if foldASCIIByte(ca) != foldASCIIByte(cb) {
			return false
		}
	}
	return true
}

func foldASCIIByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func asciiFold(s string) string {
	b := []byte(s)
	for i, c := range b {
		b[i] = foldASCIIByte(c)
	}
	return string(b)
}

// bucketHash returns a fast hash of the ASCII-folded text, used to
// group large candidate sets before the O(n) case-insensitive scan in
// FindMatches — routing against a wide exported-module list should not
// be O(n^2) in the common case where names rarely collide.
func bucketHash(text string) uint64 {
	return xxhash.Sum64String(asciiFold(text))
}

// Candidate pairs a Name with an opaque payload the caller wants back
// when it matches.
type Candidate[T any] struct {
	Name    Name
	Payload T
}

// FindMatches returns every candidate whose Name matches n. If n is
// case-insensitive and matches more than one *case-sensitive* candidate,
// that is reported via ambiguous so the caller can raise a name
// ambiguity error instead of silently picking one.
func FindMatches[T any](n Name, candidates []Candidate[T]) (matches []Candidate[T], ambiguous bool) {
	if n.CaseSensitive {
		// A case-sensitive request name can only ever bytewise-equal one
		// distinct case-sensitive spelling, so there is nothing to
		// disambiguate; Matches still allows a case-insensitive peer to
		// answer it.
		for _, c := range candidates {
			if n.Matches(c.Name) {
				matches = append(matches, c)
			}
		}
		return matches, false
	}

	// Bucket by folded text to avoid scanning dissimilar candidates;
	// correctness still falls back to Matches for the final decision.
	bucket := bucketHash(n.Text)
	var caseSensitiveHits int
	seenSpellings := make(map[string]bool)
	for _, c := range candidates {
		if c.Name.CaseSensitive && bucketHash(c.Name.Text) != bucket {
			continue
		}
		if !n.Matches(c.Name) {
			continue
		}
		matches = append(matches, c)
		if c.Name.CaseSensitive && !seenSpellings[c.Name.Text] {
			seenSpellings[c.Name.Text] = true
			caseSensitiveHits++
		}
	}
	return matches, caseSensitiveHits > 1
}
