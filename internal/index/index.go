package index

import "github.com/starford/raido/internal/location"

// DocIndex defines the interface for document index operations. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type DocIndex interface {
	UpsertDocument(row DocRow, refs []string) error
	DeleteByID(id string) error
	GetDocument(id string) (*DocRow, error)
	IDAt(loc location.Location) (string, error)
	ListDocuments() ([]DocRow, error)
	Mapping() (map[string]location.Location, error)
	AllChecksums() (map[location.Location]string, error)
	Referencing(targetID string) ([]string, error)
	Close() error
}

// Verify *DB satisfies DocIndex at compile time.
var _ DocIndex = (*DB)(nil)
