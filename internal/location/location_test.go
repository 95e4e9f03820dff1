package location

import (
	"testing"
)

func TestNormalize_Basic(t *testing.T) {
	loc, err := Normalize("guides/setup.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc != "guides/setup.md" {
		t.Errorf("loc = %q, want %q", loc, "guides/setup.md")
	}
}

func TestNormalize_BackslashesAndDotSegments(t *testing.T) {
	loc, err := Normalize(`guides\sub\..\setup.md`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc != "guides/setup.md" {
		t.Errorf("loc = %q, want %q", loc, "guides/setup.md")
	}
}

func TestNormalize_Rejections(t *testing.T) {
	for _, raw := range []string{"/abs/path.md", "../escape.md", "a/../../escape.md", "", "."} {
		if _, err := Normalize(raw); err == nil {
			t.Errorf("Normalize(%q) succeeded, want error", raw)
		}
	}
}

func TestDir(t *testing.T) {
	if d := Location("guides/setup.md").Dir(); d != "guides" {
		t.Errorf("Dir = %q, want %q", d, "guides")
	}
	if d := Location("index.md").Dir(); d != "." {
		t.Errorf("Dir = %q, want %q", d, ".")
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		base Location
		ref  string
		want Location
	}{
		{"guides/setup.md", "advanced.md", "guides/advanced.md"},
		{"guides/setup.md", "../concepts/intro.md", "concepts/intro.md"},
		{"index.md", "guides/setup.md", "guides/setup.md"},
		{"a/b/c.md", "./d.md", "a/b/d.md"},
	}
	for _, tt := range tests {
		got, err := Resolve(tt.base, tt.ref)
		if err != nil {
			t.Errorf("Resolve(%q, %q): unexpected error: %v", tt.base, tt.ref, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
	}
}

func TestResolve_EscapesRoot(t *testing.T) {
	if _, err := Resolve("guides/setup.md", "../../outside.md"); err == nil {
		t.Error("expected error for reference escaping the root")
	}
}

func TestRel(t *testing.T) {
	tests := []struct {
		from, to Location
		want     string
	}{
		{"guides/setup.md", "guides/advanced.md", "advanced.md"},
		{"guides/setup.md", "concepts/intro.md", "../concepts/intro.md"},
		{"index.md", "guides/setup.md", "guides/setup.md"},
		{"a/b/deep.md", "top.md", "../../top.md"},
		{"a/b/x.md", "a/c/y.md", "../c/y.md"},
	}
	for _, tt := range tests {
		if got := Rel(tt.from, tt.to); got != tt.want {
			t.Errorf("Rel(%q, %q) = %q, want %q", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestRelResolve_RoundTrip(t *testing.T) {
	pairs := []struct{ from, to Location }{
		{"guides/setup.md", "concepts/deep/intro.md"},
		{"a/b/c/x.md", "a/y.md"},
		{"index.md", "index.md"},
	}
	for _, p := range pairs {
		ref := Rel(p.from, p.to)
		back, err := Resolve(p.from, ref)
		if err != nil {
			t.Errorf("Resolve(%q, %q): unexpected error: %v", p.from, ref, err)
			continue
		}
		if back != p.to {
			t.Errorf("round trip %q -> %q -> %q, want %q", p.to, ref, back, p.to)
		}
	}
}
