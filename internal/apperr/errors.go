// Package apperr defines the error taxonomy shared across Raido.
//
// Fatal errors abort a run with no snapshot written; everything else is
// reported per document and the run continues with a warning exit status.
package apperr

import "errors"

var (
	// ErrCollision is returned when two distinct locations claim the same
	// identifier, or a manually authored identifier clashes with a
	// generated one. Fatal.
	ErrCollision = errors.New("identifier collision")

	// ErrNoSnapshot is returned when the before-snapshot artifact is
	// required but does not exist (prepare was never run). Fatal.
	ErrNoSnapshot = errors.New("snapshot not found")

	// ErrCorruptSnapshot is returned when the snapshot artifact exists but
	// cannot be parsed or violates the identifier/location bijection. Fatal.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")

	// ErrInconsistent marks a broken internal invariant, e.g. two redirect
	// rules sharing a source location. Fatal.
	ErrInconsistent = errors.New("consistency violation")

	// ErrMalformedHeader marks a document whose frontmatter fails to parse.
	// Per-document recoverable: the document is skipped, the run continues.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrIDAlreadySet is returned when attempting to overwrite an existing
	// identifier field. Identifiers are write-once.
	ErrIDAlreadySet = errors.New("identifier already set")

	ErrNotFound = errors.New("not found")
)

// IsFatal reports whether err belongs to the fatal class of the taxonomy.
func IsFatal(err error) bool {
	return errors.Is(err, ErrCollision) ||
		errors.Is(err, ErrNoSnapshot) ||
		errors.Is(err, ErrCorruptSnapshot) ||
		errors.Is(err, ErrInconsistent)
}
