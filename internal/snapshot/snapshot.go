// Package snapshot persists the identifier→location mapping captured by a
// prepare run and computes deltas between two captures.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/location"
	"github.com/starford/raido/internal/storage"
)

// Version is the artifact format version. Bump only with a migration path
// for existing artifacts.
const Version = 1

// Snapshot is an immutable identifier→location mapping plus its capture
// time. The before-snapshot is persisted by prepare; the after-snapshot is
// computed in memory at build time and never written.
type Snapshot struct {
	Version    int
	CapturedAt time.Time
	Documents  map[string]location.Location
}

// New captures mapping at the current time.
func New(mapping map[string]location.Location) *Snapshot {
	docs := make(map[string]location.Location, len(mapping))
	for id, loc := range mapping {
		docs[id] = loc
	}
	return &Snapshot{Version: Version, CapturedAt: time.Now().UTC(), Documents: docs}
}

// artifact is the on-disk shape.
type artifact struct {
	Version    int               `yaml:"version"`
	CapturedAt string            `yaml:"captured_at"`
	Documents  map[string]string `yaml:"documents"`
}

// Encode serializes the snapshot as YAML with the documents mapping sorted
// by identifier, so consecutive captures diff cleanly in review tools.
func (s *Snapshot) Encode() ([]byte, error) {
	ids := make([]string, 0, len(s.Documents))
	for id := range s.Documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docsNode := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, id := range ids {
		docsNode.Content = append(docsNode.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: id},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(s.Documents[id])},
		)
	}

	root := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "version"},
			{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprintf("%d", s.Version)},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "captured_at"},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.CapturedAt.Format(time.RFC3339)},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "documents"},
			docsNode,
		},
	}

	out, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return out, nil
}

// Decode parses artifact bytes and verifies the identifier/location
// bijection. Any failure is reported as a corrupt snapshot.
func Decode(data []byte) (*Snapshot, error) {
	var a artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("snapshot: %w: %v", apperr.ErrCorruptSnapshot, err)
	}
	if a.Version != Version {
		return nil, fmt.Errorf("snapshot: %w: unsupported version %d", apperr.ErrCorruptSnapshot, a.Version)
	}

	capturedAt := time.Time{}
	if a.CapturedAt != "" {
		t, err := time.Parse(time.RFC3339, a.CapturedAt)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w: bad capture time %q", apperr.ErrCorruptSnapshot, a.CapturedAt)
		}
		capturedAt = t
	}

	docs := make(map[string]location.Location, len(a.Documents))
	seen := make(map[location.Location]string, len(a.Documents))
	for id, raw := range a.Documents {
		loc, err := location.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w: %s: %v", apperr.ErrCorruptSnapshot, id, err)
		}
		if prev, dup := seen[loc]; dup {
			return nil, fmt.Errorf("snapshot: %w: %s mapped by both %q and %q",
				apperr.ErrCorruptSnapshot, loc, prev, id)
		}
		seen[loc] = id
		docs[id] = loc
	}

	return &Snapshot{Version: a.Version, CapturedAt: capturedAt, Documents: docs}, nil
}

// Save writes the snapshot artifact atomically (temp file + rename), so a
// concurrent reader never observes a half-written capture.
func Save(s *Snapshot, path string) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("snapshot: resolve %s: %w", path, err)
	}
	return storage.AtomicWrite(abs, data)
}

// Load reads the artifact at path. A missing artifact is ErrNoSnapshot,
// distinct from corruption: it means prepare was never run or its output
// was lost.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("snapshot: %s: %w", path, apperr.ErrNoSnapshot)
		}
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	return Decode(data)
}
