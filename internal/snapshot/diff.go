package snapshot

import (
	"sort"

	"github.com/starford/raido/internal/location"
)

// Move records one identifier whose location changed between captures.
type Move struct {
	ID   string
	From location.Location
	To   location.Location
}

// Delta classifies every identifier in the union of two captures' key sets.
// Each identifier appears in exactly one bucket.
type Delta struct {
	Unchanged []string
	Moved     []Move
	Added     []string // in after only: new document with a fresh identifier
	Removed   []string // in before only: document vanished or lost its identifier
}

// Diff compares a before-mapping and an after-mapping. It is a pure map
// comparison, O(n) in the number of identifiers; all buckets are sorted
// for reproducible output.
func Diff(before, after map[string]location.Location) Delta {
	var d Delta

	for id, from := range before {
		to, ok := after[id]
		switch {
		case !ok:
			d.Removed = append(d.Removed, id)
		case from == to:
			d.Unchanged = append(d.Unchanged, id)
		default:
			d.Moved = append(d.Moved, Move{ID: id, From: from, To: to})
		}
	}
	for id := range after {
		if _, ok := before[id]; !ok {
			d.Added = append(d.Added, id)
		}
	}

	sort.Strings(d.Unchanged)
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Slice(d.Moved, func(i, j int) bool { return d.Moved[i].ID < d.Moved[j].ID })
	return d
}
