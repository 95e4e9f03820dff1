package scanner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/testutil"
)

func TestBuild_AssignsMissingIdentifiers(t *testing.T) {
	root, store := testutil.TestTree(t)
	testutil.WriteDoc(t, root, "concepts/intro.md", "# Intro\n")
	testutil.WriteDoc(t, root, "guides/setup.md", "---\nid: custom-setup\n---\n# Setup\n")

	plan, err := Build(context.Background(), store, Options{AssignMissing: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(plan.Entries))
	}
	if plan.FreshCount() != 1 {
		t.Errorf("FreshCount = %d, want 1", plan.FreshCount())
	}
	if len(plan.Writes) != 1 || plan.Writes[0].Loc != "concepts/intro.md" {
		t.Fatalf("Writes = %v", plan.Writes)
	}

	asg := plan.Assignments()
	if loc, ok := asg.Location("concepts-intro"); !ok || loc != "concepts/intro.md" {
		t.Errorf("generated id lookup = %q, %v", loc, ok)
	}
	if loc, ok := asg.Location("custom-setup"); !ok || loc != "guides/setup.md" {
		t.Errorf("manual id lookup = %q, %v", loc, ok)
	}
}

func TestBuild_SkipsUntrackedWithoutAssign(t *testing.T) {
	root, store := testutil.TestTree(t)
	testutil.WriteDoc(t, root, "a.md", "# A\n")
	testutil.WriteDoc(t, root, "b.md", "---\nid: b\n---\n# B\n")

	plan, err := Build(context.Background(), store, Options{AssignMissing: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Entries) != 1 || plan.Entries[0].ID != "b" {
		t.Errorf("Entries = %v, want only b", plan.Entries)
	}
	if len(plan.Writes) != 0 {
		t.Errorf("Writes = %v, want none", plan.Writes)
	}
}

func TestBuild_MalformedHeaderIsRecoverable(t *testing.T) {
	root, store := testutil.TestTree(t)
	testutil.WriteDoc(t, root, "bad.md", "---\n: {{{ not yaml\n---\nBody\n")
	testutil.WriteDoc(t, root, "good.md", "# Good\n")

	plan, err := Build(context.Background(), store, Options{AssignMissing: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Problems) != 1 || plan.Problems[0].Loc != "bad.md" {
		t.Fatalf("Problems = %v", plan.Problems)
	}
	if !errors.Is(plan.Problems[0].Err, apperr.ErrMalformedHeader) {
		t.Errorf("problem %v does not wrap ErrMalformedHeader", plan.Problems[0].Err)
	}
	if len(plan.Entries) != 1 || plan.Entries[0].Loc != "good.md" {
		t.Errorf("Entries = %v, want only good.md", plan.Entries)
	}
}

func TestBuild_CollisionIsFatal(t *testing.T) {
	root, store := testutil.TestTree(t)
	testutil.WriteDoc(t, root, "a.md", "---\nid: same\n---\nA\n")
	testutil.WriteDoc(t, root, "b.md", "---\nid: same\n---\nB\n")

	_, err := Build(context.Background(), store, Options{AssignMissing: true})
	if err == nil {
		t.Fatal("expected collision error")
	}
	if !errors.Is(err, apperr.ErrCollision) {
		t.Errorf("error %v does not wrap ErrCollision", err)
	}
}

func TestApply_WritesHeadersAndIsIdempotent(t *testing.T) {
	root, store := testutil.TestTree(t)
	testutil.WriteDoc(t, root, "concepts/intro.md", "# Intro\n")

	plan, err := Build(context.Background(), store, Options{AssignMissing: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Apply(plan, store); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := testutil.ReadDoc(t, root, "concepts/intro.md")
	if want := "---\nid: concepts-intro\n---\n# Intro\n"; got != want {
		t.Errorf("document = %q, want %q", got, want)
	}

	// A second scan finds everything already tracked.
	again, err := Build(context.Background(), store, Options{AssignMissing: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.FreshCount() != 0 || len(again.Writes) != 0 {
		t.Errorf("second scan not idempotent: fresh=%d writes=%d", again.FreshCount(), len(again.Writes))
	}
}

func TestBuild_DryRunLeavesTreeUntouched(t *testing.T) {
	root, store := testutil.TestTree(t)
	testutil.WriteDoc(t, root, "a.md", "# A\n")

	plan, err := Build(context.Background(), store, Options{AssignMissing: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Build is pure; without Apply the file stays as written.
	if got := testutil.ReadDoc(t, root, "a.md"); got != "# A\n" {
		t.Errorf("document = %q, Build must not write", got)
	}
	if len(plan.Writes) != 1 {
		t.Errorf("Writes = %v, want one pending write", plan.Writes)
	}
}

func TestPreview(t *testing.T) {
	root, store := testutil.TestTree(t)
	testutil.WriteDoc(t, root, "fresh.md", "# Fresh\n")
	testutil.WriteDoc(t, root, "tracked.md", "---\nid: tracked\n---\nT\n")

	plan, err := Build(context.Background(), store, Options{AssignMissing: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := plan.Preview()
	if !strings.Contains(p, "+ fresh.md -> id: fresh") {
		t.Errorf("preview missing fresh line: %q", p)
	}
	if !strings.Contains(p, "* tracked.md (id: tracked)") {
		t.Errorf("preview missing tracked line: %q", p)
	}
}
