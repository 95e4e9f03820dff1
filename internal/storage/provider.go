// Package storage defines the tracked-tree file-system abstraction.
//
// Raido never creates or deletes documents; the provider therefore only
// exposes enumeration, reads, and atomic in-place writes.
package storage

import (
	"time"

	"github.com/starford/raido/internal/location"
)

// DocInfo is the metadata returned by List for one tracked document.
type DocInfo struct {
	Location  location.Location
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for tracked-tree file operations. All paths
// are locations relative to the tree root.
type Provider interface {
	// List returns metadata for every tracked document under the root,
	// sorted by location for deterministic processing order.
	List() ([]DocInfo, error)
	// Read returns the raw bytes of the document at loc.
	Read(loc location.Location) ([]byte, error)
	// Write atomically replaces the document at loc (temp file + rename).
	Write(loc location.Location, content []byte) error
	// Root returns the absolute root directory of the tree.
	Root() string
}
