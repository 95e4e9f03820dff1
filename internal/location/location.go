// Package location defines the normalized relative path of a document
// within the tracked tree and the path math used by the link rewriter.
//
// A Location is always slash-separated, cleaned, and relative to the tree
// root: no leading slash, no trailing slash, no "." or ".." segments.
// Two locations are equal iff their string forms are equal.
package location

import (
	"fmt"
	"path"
	"strings"
)

// Location is a normalized relative path from the tree root to a document.
type Location string

// Normalize converts a raw path (possibly OS-separated) into a Location.
// Absolute paths and paths escaping the root are rejected.
func Normalize(raw string) (Location, error) {
	p := strings.ReplaceAll(raw, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("location: absolute path not allowed: %s", raw)
	}
	p = path.Clean(p)
	if p == "." || p == "" {
		return "", fmt.Errorf("location: empty path")
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("location: path escapes tree root: %s", raw)
	}
	return Location(p), nil
}

// String returns the normalized form.
func (l Location) String() string { return string(l) }

// Dir returns the directory portion of the location ("." at the root).
func (l Location) Dir() string { return path.Dir(string(l)) }

// Resolve interprets ref relative to the directory containing l and
// returns the target location. Fails when the reference escapes the root.
func Resolve(base Location, ref string) (Location, error) {
	joined := path.Join(base.Dir(), ref)
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return "", fmt.Errorf("location: reference escapes tree root: %s", ref)
	}
	return Normalize(joined)
}

// Rel returns the relative reference from the document at from to the
// document at to, suitable for use inside from's body.
func Rel(from, to Location) string {
	fromParts := strings.Split(from.Dir(), "/")
	if from.Dir() == "." {
		fromParts = nil
	}
	toParts := strings.Split(string(to), "/")

	// Drop the shared prefix.
	i := 0
	for i < len(fromParts) && i < len(toParts)-1 && fromParts[i] == toParts[i] {
		i++
	}

	var out []string
	for range fromParts[i:] {
		out = append(out, "..")
	}
	out = append(out, toParts[i:]...)
	return strings.Join(out, "/")
}
