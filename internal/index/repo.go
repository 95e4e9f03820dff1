package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/location"
)

// DocRow represents a row in the documents table.
type DocRow struct {
	ID        string
	Location  location.Location
	Title     string
	Checksum  string
	UpdatedAt time.Time
}

// UpsertDocument inserts or replaces a document and its outgoing reference
// edges within a transaction. An identifier that moved keeps its row; the
// location column simply changes.
func (db *DB) UpsertDocument(row DocRow, refs []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	// A location freed by one identifier and claimed by another within the
	// same sync would trip the UNIQUE constraint, so clear it first.
	_, _ = tx.Exec(`DELETE FROM documents WHERE location = ? AND id != ?`, string(row.Location), row.ID)

	_, err = tx.Exec(`
		INSERT INTO documents (id, location, title, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			location   = excluded.location,
			title      = excluded.title,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, row.ID, string(row.Location), row.Title, row.Checksum, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// Replace reference edges: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM refs WHERE source_id = ?`, row.ID)
	if len(refs) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO refs (source_id, target_id) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare ref insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range refs {
			if _, err := stmt.Exec(row.ID, target); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteByID removes a document row and its outgoing reference edges.
func (db *DB) DeleteByID(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM refs WHERE source_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM documents WHERE id = ?`, id)

	return tx.Commit()
}

// GetDocument returns the row for one identifier.
func (db *DB) GetDocument(id string) (*DocRow, error) {
	var row DocRow
	var loc string
	err := db.conn.QueryRow(`
		SELECT id, location, title, checksum, updated_at FROM documents WHERE id = ?
	`, id).Scan(&row.ID, &loc, &row.Title, &row.Checksum, &row.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	row.Location = location.Location(loc)
	return &row, nil
}

// IDAt returns the identifier of the document at loc.
func (db *DB) IDAt(loc location.Location) (string, error) {
	var id string
	err := db.conn.QueryRow(`SELECT id FROM documents WHERE location = ?`, string(loc)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("index: id at: %w", err)
	}
	return id, nil
}

// ListDocuments returns every document sorted by location.
func (db *DB) ListDocuments() ([]DocRow, error) {
	rows, err := db.conn.Query(`
		SELECT id, location, title, checksum, updated_at FROM documents ORDER BY location
	`)
	if err != nil {
		return nil, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocRow
	for rows.Next() {
		var r DocRow
		var loc string
		if err := rows.Scan(&r.ID, &loc, &r.Title, &r.Checksum, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Location = location.Location(loc)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Mapping returns the full identifier→location map held by the index.
func (db *DB) Mapping() (map[string]location.Location, error) {
	rows, err := db.conn.Query(`SELECT id, location FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: mapping: %w", err)
	}
	defer rows.Close()

	out := make(map[string]location.Location)
	for rows.Next() {
		var id, loc string
		if err := rows.Scan(&id, &loc); err != nil {
			return nil, err
		}
		out[id] = location.Location(loc)
	}
	return out, rows.Err()
}

// AllChecksums returns location→checksum for change detection during sync.
func (db *DB) AllChecksums() (map[location.Location]string, error) {
	rows, err := db.conn.Query(`SELECT location, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[location.Location]string)
	for rows.Next() {
		var loc, cs string
		if err := rows.Scan(&loc, &cs); err != nil {
			return nil, err
		}
		out[location.Location(loc)] = cs
	}
	return out, rows.Err()
}

// Referencing returns the identifiers of all documents whose bodies
// reference the given identifier.
func (db *DB) Referencing(targetID string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source_id FROM refs WHERE target_id = ? ORDER BY source_id`, targetID)
	if err != nil {
		return nil, fmt.Errorf("index: referencing: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
