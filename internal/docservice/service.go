// Package docservice coordinates the prepare, convert, build, and resolve
// runs over a tracked tree. It owns the run-level policy: what is fatal,
// what is a warning, and what gets written when.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/frontmatter"
	"github.com/starford/raido/internal/redirect"
	"github.com/starford/raido/internal/rewrite"
	"github.com/starford/raido/internal/scanner"
	"github.com/starford/raido/internal/snapshot"
	"github.com/starford/raido/internal/storage"
)

// Service runs the identity workflow over one tracked tree.
type Service struct {
	store        storage.Provider
	snapshotPath string
	workers      int
	logger       *slog.Logger
}

// New creates a service. snapshotPath is the before-snapshot artifact
// location; workers bounds parallel document reads during scans.
func New(store storage.Provider, snapshotPath string, workers int, logger *slog.Logger) *Service {
	return &Service{store: store, snapshotPath: snapshotPath, workers: workers, logger: logger}
}

// PrepareResult reports a prepare run.
type PrepareResult struct {
	Tracked  int // documents carrying an identifier after the run
	Assigned int // identifiers newly assigned this run
	Problems []scanner.Problem
	Preview  string // populated on dry runs only
}

// Warnings returns the per-document warning count.
func (r *PrepareResult) Warnings() int { return len(r.Problems) }

// Prepare scans the tree, assigns identifiers to documents lacking one,
// and persists the before-snapshot. With dryRun the full plan is computed
// and previewed but nothing is written, snapshot included. An identifier
// collision aborts before any write.
func (s *Service) Prepare(ctx context.Context, dryRun bool) (*PrepareResult, error) {
	plan, err := scanner.Build(ctx, s.store, scanner.Options{AssignMissing: true, Workers: s.workers})
	if err != nil {
		return nil, err
	}

	res := &PrepareResult{
		Tracked:  len(plan.Entries),
		Assigned: plan.FreshCount(),
		Problems: plan.Problems,
	}

	if dryRun {
		res.Preview = plan.Preview()
		return res, nil
	}

	if err := scanner.Apply(plan, s.store); err != nil {
		return nil, err
	}
	if err := snapshot.Save(snapshot.New(plan.Mapping()), s.snapshotPath); err != nil {
		return nil, err
	}

	s.logger.Info("prepare: snapshot written",
		slog.String("path", s.snapshotPath),
		slog.Int("tracked", res.Tracked),
		slog.Int("assigned", res.Assigned))
	return res, nil
}

// RewriteResult reports a convert or resolve run.
type RewriteResult struct {
	Changed     int // documents whose body was rewritten
	Diagnostics []rewrite.Diagnostic
	Problems    []scanner.Problem
	Preview     string // populated on dry runs only
}

// Warnings returns the per-document warning count.
func (r *RewriteResult) Warnings() int { return len(r.Diagnostics) + len(r.Problems) }

// Convert runs the Mode A rewriter across every document: relative links
// to tracked documents become identifier references. Documents without an
// identifier of their own are still converted; only the link targets need
// identifiers. Re-running is a no-op on already-converted bodies.
func (s *Service) Convert(ctx context.Context, dryRun bool) (*RewriteResult, error) {
	plan, err := scanner.Build(ctx, s.store, scanner.Options{Workers: s.workers})
	if err != nil {
		return nil, err
	}
	asg := plan.Assignments()

	return s.rewriteAll(ctx, dryRun, plan.Problems, func(doc *frontmatter.Document, info storage.DocInfo) (string, []rewrite.Diagnostic) {
		return rewrite.Relativize(doc.Body(), info.Location, asg.ID)
	})
}

// Resolve runs the Mode B rewriter across every document: identifier
// references become relative paths computed against the current tree.
// Unknown identifiers are reported and left in place.
func (s *Service) Resolve(ctx context.Context, dryRun bool) (*RewriteResult, error) {
	plan, err := scanner.Build(ctx, s.store, scanner.Options{Workers: s.workers})
	if err != nil {
		return nil, err
	}
	asg := plan.Assignments()

	return s.rewriteAll(ctx, dryRun, plan.Problems, func(doc *frontmatter.Document, info storage.DocInfo) (string, []rewrite.Diagnostic) {
		return rewrite.Resolve(doc.Body(), info.Location, asg.Location)
	})
}

// rewriteAll applies one body transform to every parseable document,
// writing only the documents whose body actually changed.
func (s *Service) rewriteAll(ctx context.Context, dryRun bool, problems []scanner.Problem,
	transform func(*frontmatter.Document, storage.DocInfo) (string, []rewrite.Diagnostic)) (*RewriteResult, error) {

	infos, err := s.store.List()
	if err != nil {
		return nil, err
	}

	res := &RewriteResult{Problems: problems}
	var preview strings.Builder

	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.store.Read(info.Location)
		if err != nil {
			res.Problems = append(res.Problems, scanner.Problem{Loc: info.Location, Err: err})
			continue
		}
		doc, err := frontmatter.Parse(data)
		if err != nil {
			// Already reported by the scan pass.
			continue
		}

		newBody, diags := transform(doc, info)
		res.Diagnostics = append(res.Diagnostics, diags...)
		if newBody == doc.Body() {
			continue
		}

		res.Changed++
		if dryRun {
			fmt.Fprintf(&preview, "~ %s\n", info.Location)
			continue
		}
		doc.SetBody(newBody)
		out, err := doc.Bytes()
		if err != nil {
			res.Problems = append(res.Problems, scanner.Problem{Loc: info.Location, Err: err})
			continue
		}
		if err := s.store.Write(info.Location, out); err != nil {
			return nil, err
		}
		s.logger.Debug("rewrite: updated", slog.String("location", string(info.Location)))
	}

	if dryRun {
		res.Preview = preview.String()
	}
	return res, nil
}

// BuildResult reports a build run: the delta against the before-snapshot
// and the redirect rules it implies.
type BuildResult struct {
	Delta    snapshot.Delta
	Rules    []redirect.Rule
	Assigned int // fresh identifiers picked up by the after-scan
	Problems []scanner.Problem
}

// Warnings returns the warning count: removed documents have no redirect
// destination, so each one is a warning, alongside per-document problems.
func (r *BuildResult) Warnings() int { return len(r.Delta.Removed) + len(r.Problems) }

// Build computes the after-snapshot over the (possibly reorganized) tree,
// diffs it against the stored before-snapshot, and synthesizes redirect
// rules. The before-snapshot is required: a missing or corrupt artifact is
// fatal, not an empty delta. New documents found by the after-scan are
// assigned fresh identifiers, so they classify as added, never moved.
func (s *Service) Build(ctx context.Context) (*BuildResult, error) {
	before, err := snapshot.Load(s.snapshotPath)
	if err != nil {
		return nil, err
	}

	plan, err := scanner.Build(ctx, s.store, scanner.Options{AssignMissing: true, Workers: s.workers})
	if err != nil {
		return nil, err
	}
	if err := scanner.Apply(plan, s.store); err != nil {
		return nil, err
	}

	delta := snapshot.Diff(before.Documents, plan.Mapping())
	rules, err := redirect.Rules(delta)
	if err != nil {
		return nil, err
	}

	for _, id := range delta.Removed {
		s.logger.Warn("build: tracked document disappeared",
			slog.String("id", id),
			slog.String("was", string(before.Documents[id])))
	}

	return &BuildResult{
		Delta:    delta,
		Rules:    rules,
		Assigned: plan.FreshCount(),
		Problems: plan.Problems,
	}, nil
}

// StatusResult reports the state of the tree against the stored snapshot.
type StatusResult struct {
	Tracked     int
	Untracked   int
	Problems    []scanner.Problem
	HasSnapshot bool
	SnapshotAge time.Duration
	Moved       int
	Added       int
	Removed     int
}

// Status compares the current tree to the stored snapshot without writing
// anything. A missing snapshot is reported, not fatal.
func (s *Service) Status(ctx context.Context) (*StatusResult, error) {
	infos, err := s.store.List()
	if err != nil {
		return nil, err
	}
	plan, err := scanner.Build(ctx, s.store, scanner.Options{Workers: s.workers})
	if err != nil {
		return nil, err
	}

	res := &StatusResult{
		Tracked:   len(plan.Entries),
		Untracked: len(infos) - len(plan.Entries) - len(plan.Problems),
		Problems:  plan.Problems,
	}

	before, err := snapshot.Load(s.snapshotPath)
	switch {
	case errors.Is(err, apperr.ErrNoSnapshot):
		return res, nil
	case err != nil:
		return nil, err
	}

	res.HasSnapshot = true
	res.SnapshotAge = time.Since(before.CapturedAt)
	delta := snapshot.Diff(before.Documents, plan.Mapping())
	res.Moved = len(delta.Moved)
	res.Added = len(delta.Added)
	res.Removed = len(delta.Removed)
	return res, nil
}
