package snapshot

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/location"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	s := New(map[string]location.Location{
		"concepts-intro": "concepts/intro.md",
		"guides-setup":   "guides/setup.md",
		"index":          "index.md",
	})
	data, err := s.Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Version != Version {
		t.Errorf("Version = %d, want %d", got.Version, Version)
	}
	if len(got.Documents) != 3 {
		t.Fatalf("len(Documents) = %d, want 3", len(got.Documents))
	}
	for id, loc := range s.Documents {
		if got.Documents[id] != loc {
			t.Errorf("Documents[%q] = %q, want %q", id, got.Documents[id], loc)
		}
	}
	if got.CapturedAt.IsZero() {
		t.Error("CapturedAt did not survive the round trip")
	}
}

func TestEncode_SortedByIdentifier(t *testing.T) {
	s := New(map[string]location.Location{
		"zeta":  "z.md",
		"alpha": "a.md",
		"mid":   "m.md",
	})
	data, err := s.Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := string(data)
	if !(strings.Index(text, "alpha:") < strings.Index(text, "mid:") &&
		strings.Index(text, "mid:") < strings.Index(text, "zeta:")) {
		t.Errorf("documents not sorted by identifier:\n%s", text)
	}
}

func TestEncodeDecode_Empty(t *testing.T) {
	s := New(nil)
	data, err := s.Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Documents) != 0 {
		t.Errorf("Documents = %v, want empty", got.Documents)
	}
}

func TestDecode_Corrupt(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not yaml", "{{{not yaml"},
		{"bad version", "version: 99\ndocuments: {}\n"},
		{"bad time", "version: 1\ncaptured_at: yesterday\ndocuments: {}\n"},
		{"escaping location", "version: 1\ndocuments:\n  a: ../escape.md\n"},
		{"broken bijection", "version: 1\ndocuments:\n  a: same.md\n  b: same.md\n"},
	}
	for _, tc := range cases {
		_, err := Decode([]byte(tc.data))
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !errors.Is(err, apperr.ErrCorruptSnapshot) {
			t.Errorf("%s: error %v does not wrap ErrCorruptSnapshot", tc.name, err)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	s := New(map[string]location.Location{"a": "a.md"})
	if err := Save(s, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Documents["a"] != "a.md" {
		t.Errorf("Documents = %v", got.Documents)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, apperr.ErrNoSnapshot) {
		t.Errorf("error %v does not wrap ErrNoSnapshot", err)
	}
	if errors.Is(err, apperr.ErrCorruptSnapshot) {
		t.Error("missing snapshot must not be reported as corrupt")
	}
}

func TestDiff_ClassifiesEveryIdentifierOnce(t *testing.T) {
	before := map[string]location.Location{
		"stay":  "stay.md",
		"move":  "old/place.md",
		"gone":  "gone.md",
		"move2": "b/old.md",
	}
	after := map[string]location.Location{
		"stay":  "stay.md",
		"move":  "new/place.md",
		"move2": "b/new.md",
		"fresh": "fresh.md",
	}
	d := Diff(before, after)

	if len(d.Unchanged) != 1 || d.Unchanged[0] != "stay" {
		t.Errorf("Unchanged = %v", d.Unchanged)
	}
	if len(d.Moved) != 2 || d.Moved[0].ID != "move" || d.Moved[1].ID != "move2" {
		t.Errorf("Moved = %v", d.Moved)
	}
	if d.Moved[0].From != "old/place.md" || d.Moved[0].To != "new/place.md" {
		t.Errorf("Moved[0] = %+v", d.Moved[0])
	}
	if len(d.Added) != 1 || d.Added[0] != "fresh" {
		t.Errorf("Added = %v", d.Added)
	}
	if len(d.Removed) != 1 || d.Removed[0] != "gone" {
		t.Errorf("Removed = %v", d.Removed)
	}

	total := len(d.Unchanged) + len(d.Moved) + len(d.Added) + len(d.Removed)
	union := make(map[string]bool)
	for id := range before {
		union[id] = true
	}
	for id := range after {
		union[id] = true
	}
	if total != len(union) {
		t.Errorf("classified %d identifiers, union has %d", total, len(union))
	}
}

func TestDiff_EmptyMappings(t *testing.T) {
	d := Diff(nil, nil)
	if len(d.Unchanged)+len(d.Moved)+len(d.Added)+len(d.Removed) != 0 {
		t.Errorf("Diff(nil, nil) = %+v, want empty", d)
	}
}

func TestNew_CopiesMapping(t *testing.T) {
	src := map[string]location.Location{"a": "a.md"}
	s := New(src)
	src["b"] = "b.md"
	if len(s.Documents) != 1 {
		t.Errorf("snapshot aliases caller's map: %v", s.Documents)
	}
	if time.Since(s.CapturedAt) < 0 {
		t.Errorf("CapturedAt in the future: %v", s.CapturedAt)
	}
}
