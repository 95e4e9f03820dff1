// Package ident generates stable, human-readable document identifiers
// from locations and tracks the in-progress assignment set.
//
// Transliteration policy (stable across runs; changing it is a breaking
// migration for already assigned identifiers): NFKD-normalize, strip
// combining marks, lower-case, keep only [a-z0-9], and collapse every run
// of other characters (path separators, whitespace, punctuation, runes
// with no ASCII decomposition) into a single "-" joiner.
package ident

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/location"
)

const joiner = '-'

// stripMarks decomposes runes and removes combining marks, so that e.g.
// "é" folds to "e" before the ASCII filter runs.
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Generate derives the candidate identifier for a location. The same
// location always yields the same identifier.
func Generate(loc location.Location) (string, error) {
	s := strings.TrimSuffix(string(loc), ".md")

	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		// NFKD cannot fail on valid UTF-8; fall back to the raw string.
		folded = s
	}

	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteRune(joiner)
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}

	id := b.String()
	if id == "" {
		return "", fmt.Errorf("ident: location %q yields an empty identifier", loc)
	}
	return id, nil
}

// Assignments is the in-progress identifier→location mapping built during
// a scan. It is an explicit value, not ambient state: collision checks run
// against it when entries are claimed, which keeps parallel scanning safe
// as long as claims happen on a single goroutine.
type Assignments struct {
	byID  map[string]location.Location
	byLoc map[location.Location]string
}

// NewAssignments returns an empty assignment set.
func NewAssignments() *Assignments {
	return &Assignments{
		byID:  make(map[string]location.Location),
		byLoc: make(map[location.Location]string),
	}
}

// Claim records id→loc. Claiming an identifier already held by a different
// location is a fatal collision naming both locations; silently suffixing
// would make identifiers non-deterministic across runs.
func (a *Assignments) Claim(id string, loc location.Location) error {
	if prev, ok := a.byID[id]; ok && prev != loc {
		return fmt.Errorf("ident: %w: %q claimed by both %s and %s", apperr.ErrCollision, id, prev, loc)
	}
	a.byID[id] = loc
	a.byLoc[loc] = id
	return nil
}

// Location returns the location assigned to id.
func (a *Assignments) Location(id string) (location.Location, bool) {
	loc, ok := a.byID[id]
	return loc, ok
}

// ID returns the identifier assigned to loc (the reverse index used by the
// Mode A rewriter).
func (a *Assignments) ID(loc location.Location) (string, bool) {
	id, ok := a.byLoc[loc]
	return id, ok
}

// Len returns the number of assignments.
func (a *Assignments) Len() int { return len(a.byID) }

// Mapping returns a copy of the identifier→location map.
func (a *Assignments) Mapping() map[string]location.Location {
	out := make(map[string]location.Location, len(a.byID))
	for id, loc := range a.byID {
		out[id] = loc
	}
	return out
}
