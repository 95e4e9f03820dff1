package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/location"
)

// DocExtension is the tracked content extension.
const DocExtension = ".md"

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the tracked tree root
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute tree root.
func (f *FS) Root() string { return f.root }

// safePath resolves a location against the tree root and rejects any
// result that escapes it (directory traversal).
func (f *FS) safePath(loc location.Location) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(string(loc)))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", loc)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes tree root: %s", loc)
	}
	return abs, nil
}

// List walks the tree and returns metadata for every tracked document,
// sorted by location.
func (f *FS) List() ([]DocInfo, error) {
	var out []DocInfo
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), DocExtension) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		loc, err := location.Normalize(rel)
		if err != nil {
			return err
		}
		out = append(out, DocInfo{
			Location:  loc,
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out, nil
}

// Read returns the raw bytes of a tracked document.
func (f *FS) Read(loc location.Location) ([]byte, error) {
	abs, err := f.safePath(loc)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", loc, err)
	}
	return data, nil
}

// Write atomically replaces content: tmp file → fsync → rename.
func (f *FS) Write(loc location.Location, content []byte) error {
	abs, err := f.safePath(loc)
	if err != nil {
		return err
	}
	return AtomicWrite(abs, content)
}

// AtomicWrite writes content to abs via a temp file in the same directory
// followed by a rename, so readers never observe a half-written file. It is
// shared with the snapshot store, whose artifact lives outside the tree.
func AtomicWrite(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".raido-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
