// Package scanner enumerates the tracked tree and plans identifier
// assignments.
//
// Scanning is split into a pure planning phase (Build: what would change)
// and an effecting phase (Apply: write the changed headers), which is what
// makes dry-run previews and idempotent re-runs cheap to guarantee.
package scanner

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/frontmatter"
	"github.com/starford/raido/internal/ident"
	"github.com/starford/raido/internal/location"
	"github.com/starford/raido/internal/storage"
)

// Options controls a scan.
type Options struct {
	// AssignMissing generates fresh identifiers for documents whose header
	// has none. When false, such documents are simply untracked this run.
	AssignMissing bool
	// Workers bounds the parallel document reads. Zero means 4.
	Workers int
}

// Entry is one (identifier, location) pair produced by a scan.
type Entry struct {
	ID    string
	Loc   location.Location
	Fresh bool // identifier assigned during this scan
}

// Problem is a per-document recoverable diagnostic. The document is
// skipped for this run; the scan continues.
type Problem struct {
	Loc location.Location
	Err error
}

// PendingWrite is a header mutation the plan would perform.
type PendingWrite struct {
	Loc  location.Location
	Data []byte
}

// Plan is the pure result of a scan: the assignment set, the header writes
// it implies, and the per-document problems encountered.
type Plan struct {
	Entries  []Entry
	Writes   []PendingWrite
	Problems []Problem

	asg *ident.Assignments
}

// Build scans the tree and produces a Plan. Documents are read and parsed
// by parallel workers; the assignment merge with its collision checks runs
// on this goroutine only. An identifier collision aborts the scan.
func Build(ctx context.Context, store storage.Provider, opts Options) (*Plan, error) {
	infos, err := store.List()
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	type scanned struct {
		doc *frontmatter.Document
		err error
	}
	results := make([]scanned, len(infos))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, info := range infos {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			data, err := store.Read(info.Location)
			if err != nil {
				results[i] = scanned{err: err}
				return nil
			}
			doc, err := frontmatter.Parse(data)
			results[i] = scanned{doc: doc, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	plan := &Plan{asg: ident.NewAssignments()}
	for i, info := range infos {
		res := results[i]
		if res.err != nil {
			plan.Problems = append(plan.Problems, Problem{Loc: info.Location, Err: res.err})
			continue
		}

		id := res.doc.ID()
		fresh := false
		if id == "" {
			if !opts.AssignMissing {
				continue
			}
			id, err = ident.Generate(info.Location)
			if err != nil {
				plan.Problems = append(plan.Problems, Problem{Loc: info.Location, Err: err})
				continue
			}
			if err := res.doc.SetID(id); err != nil {
				plan.Problems = append(plan.Problems, Problem{Loc: info.Location, Err: err})
				continue
			}
			data, err := res.doc.Bytes()
			if err != nil {
				plan.Problems = append(plan.Problems, Problem{Loc: info.Location, Err: err})
				continue
			}
			plan.Writes = append(plan.Writes, PendingWrite{Loc: info.Location, Data: data})
			fresh = true
		}

		if err := plan.asg.Claim(id, info.Location); err != nil {
			return nil, err
		}
		plan.Entries = append(plan.Entries, Entry{ID: id, Loc: info.Location, Fresh: fresh})
	}

	return plan, nil
}

// Apply performs the plan's pending header writes.
func Apply(plan *Plan, store storage.Provider) error {
	for _, w := range plan.Writes {
		if err := store.Write(w.Loc, w.Data); err != nil {
			return fmt.Errorf("scanner: apply %s: %w", w.Loc, err)
		}
	}
	return nil
}

// Assignments exposes the scan's assignment set (reverse index included).
func (p *Plan) Assignments() *ident.Assignments { return p.asg }

// Mapping returns the identifier→location map the scan produced.
func (p *Plan) Mapping() map[string]location.Location { return p.asg.Mapping() }

// FreshCount returns how many identifiers this plan would newly assign.
func (p *Plan) FreshCount() int {
	n := 0
	for _, e := range p.Entries {
		if e.Fresh {
			n++
		}
	}
	return n
}

// Preview renders the plan as a human-readable change listing for dry runs:
// "+" for documents that would receive an identifier, "*" for documents
// already tracked, "!" for problems.
func (p *Plan) Preview() string {
	var b strings.Builder
	for _, e := range p.Entries {
		if e.Fresh {
			fmt.Fprintf(&b, "+ %s -> id: %s\n", e.Loc, e.ID)
		} else {
			fmt.Fprintf(&b, "* %s (id: %s)\n", e.Loc, e.ID)
		}
	}
	for _, pr := range p.Problems {
		fmt.Fprintf(&b, "! %s: %v\n", pr.Loc, pr.Err)
	}
	return b.String()
}
