// Package rewrite converts document bodies between location-relative
// references and identifier-based references.
//
// Both modes are pure text transforms: given a body and a resolution
// function they produce a new body plus diagnostics, touching no state
// beyond what the caller passed in. Mode A (Relativize) turns relative
// markdown links into `{{ internal_link('<id>') }}` macro references;
// Mode B (Resolve) turns macro references back into relative paths.
package rewrite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/raido/internal/location"
)

var (
	linkRe  = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)
	macroRe = regexp.MustCompile(`\{\{\s*internal_link\(\s*'([^']+)'\s*\)\s*\}\}`)
)

// Diagnostic reports one reference that could not be resolved. The
// reference text is always left in place; nothing is silently dropped.
type Diagnostic struct {
	Doc    location.Location
	Ref    string // the relative target or identifier at fault
	Reason string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Doc, d.Ref, d.Reason)
}

// skippable reports whether a link target is out of scope for rewriting:
// external URLs, absolute paths, pure fragments, already-converted macro
// references, and non-document resources.
func skippable(target string) bool {
	if target == "" ||
		strings.HasPrefix(target, "#") ||
		strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "{{") ||
		strings.Contains(target, "://") ||
		strings.HasPrefix(target, "mailto:") {
		return true
	}
	return false
}

// Relativize is Mode A: every relative markdown link whose target resolves
// to a tracked document (per lookup, the location→identifier reverse
// index) is rewritten into macro form. Untracked and non-document targets
// are untouched; tracked-looking targets with no identifier yield an
// unresolved-reference diagnostic. Running it twice equals running it
// once, because macro targets are never re-matched.
func Relativize(body string, doc location.Location, lookup func(location.Location) (string, bool)) (string, []Diagnostic) {
	var diags []Diagnostic

	out := linkRe.ReplaceAllStringFunc(body, func(match string) string {
		sub := linkRe.FindStringSubmatch(match)
		text, target := sub[1], sub[2]

		if skippable(target) {
			return match
		}

		frag := ""
		if i := strings.Index(target, "#"); i >= 0 {
			target, frag = target[:i], target[i:]
		}
		if !strings.HasSuffix(target, ".md") {
			return match
		}

		resolved, err := location.Resolve(doc, target)
		if err != nil {
			// Points outside the tracked tree: not ours to rewrite.
			return match
		}
		id, ok := lookup(resolved)
		if !ok {
			diags = append(diags, Diagnostic{Doc: doc, Ref: target, Reason: "target has no identifier"})
			return match
		}
		return fmt.Sprintf("[%s]({{ internal_link('%s') }}%s)", text, id, frag)
	})

	return out, diags
}

// Resolve is Mode B: every macro reference is replaced with the relative
// path from doc's (possibly new) location to the target's. An identifier
// missing from the mapping is a broken reference, reported per occurrence
// with the original text kept in place.
func Resolve(body string, doc location.Location, resolve func(id string) (location.Location, bool)) (string, []Diagnostic) {
	var diags []Diagnostic

	out := macroRe.ReplaceAllStringFunc(body, func(match string) string {
		id := macroRe.FindStringSubmatch(match)[1]
		target, ok := resolve(id)
		if !ok {
			diags = append(diags, Diagnostic{Doc: doc, Ref: id, Reason: "identifier not in snapshot"})
			return match
		}
		return location.Rel(doc, target)
	})

	return out, diags
}

// MacroIDs returns the deduplicated identifiers referenced by macro links
// in body, in order of first occurrence.
func MacroIDs(body string) []string {
	matches := macroRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		id := m[1]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// RelativeDocTargets returns the deduplicated tracked-document locations
// that relative markdown links in body resolve to.
func RelativeDocTargets(body string, doc location.Location) []location.Location {
	matches := linkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[location.Location]struct{}, len(matches))
	var out []location.Location
	for _, m := range matches {
		target := m[2]
		if skippable(target) {
			continue
		}
		if i := strings.Index(target, "#"); i >= 0 {
			target = target[:i]
		}
		if !strings.HasSuffix(target, ".md") {
			continue
		}
		resolved, err := location.Resolve(doc, target)
		if err != nil {
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		out = append(out, resolved)
	}
	return out
}
