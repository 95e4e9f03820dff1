package index

import (
	"log/slog"
	"strings"

	"github.com/starford/raido/internal/frontmatter"
	"github.com/starford/raido/internal/location"
	"github.com/starford/raido/internal/rewrite"
	"github.com/starford/raido/internal/storage"
)

// Sync walks the tree and brings the index up to date with the documents'
// embedded identifiers:
//   - new/changed documents are parsed and upserted
//   - documents removed from disk are deleted from the index
//
// Documents without an identifier or with a malformed header are simply
// absent from the index until a prepare run fixes them.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	infos, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	// First pass: parse everything to build the location→identifier view,
	// which the second pass needs to resolve relative reference edges.
	type parsed struct {
		info storage.DocInfo
		doc  *frontmatter.Document
		id   string
	}
	var docs []parsed
	byLoc := make(map[location.Location]string, len(infos))
	disk := make(map[location.Location]struct{}, len(infos))
	for _, info := range infos {
		disk[info.Location] = struct{}{}
		data, err := store.Read(info.Location)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("location", string(info.Location)), slog.String("error", err.Error()))
			continue
		}
		doc, err := frontmatter.Parse(data)
		if err != nil {
			logger.Warn("sync: parse failed", slog.String("location", string(info.Location)), slog.String("error", err.Error()))
			continue
		}
		id := doc.ID()
		if id == "" {
			continue
		}
		byLoc[info.Location] = id
		docs = append(docs, parsed{info: info, doc: doc, id: id})
	}

	// Second pass: upsert changed documents with their reference edges.
	for _, p := range docs {
		if checksums[p.info.Location] == p.info.Checksum {
			continue
		}
		refs := docRefs(p.doc.Body(), p.info.Location, byLoc)
		row := DocRow{
			ID:        p.id,
			Location:  p.info.Location,
			Title:     deriveTitle(p.doc),
			Checksum:  p.info.Checksum,
			UpdatedAt: p.info.UpdatedAt,
		}
		if err := db.UpsertDocument(row, refs); err != nil {
			logger.Warn("sync: upsert failed", slog.String("location", string(p.info.Location)), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("id", p.id), slog.String("location", string(p.info.Location)))
		}
	}

	// Remove stale entries whose documents left the disk (and were not
	// re-indexed under a new location above).
	mapping, err := db.Mapping()
	if err != nil {
		return err
	}
	for id, loc := range mapping {
		if _, ok := disk[loc]; !ok {
			if err := db.DeleteByID(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("id", id), slog.String("location", string(loc)))
			}
		}
	}

	return nil
}

// docRefs extracts the identifiers a body references, both macro form and
// relative links resolved through the current location→identifier view.
func docRefs(body string, loc location.Location, byLoc map[location.Location]string) []string {
	refs := rewrite.MacroIDs(body)
	seen := make(map[string]struct{}, len(refs))
	for _, id := range refs {
		seen[id] = struct{}{}
	}
	for _, target := range rewrite.RelativeDocTargets(body, loc) {
		if id, ok := byLoc[target]; ok {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				refs = append(refs, id)
			}
		}
	}
	return refs
}

// deriveTitle returns the header "title" field if present, otherwise the
// first H1 heading, otherwise empty string.
func deriveTitle(doc *frontmatter.Document) string {
	if t := doc.Field("title"); t != "" {
		return t
	}
	for _, line := range strings.Split(doc.Body(), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
