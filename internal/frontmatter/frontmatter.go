// Package frontmatter reads and writes the YAML header block embedded at
// the top of a document, preserving unrelated fields byte-for-byte where
// possible and in original order always.
//
// The header is handled as an ordered yaml.Node tree rather than a map so
// that unknown fields are opaque pass-through data: only the identifier
// field is ever added, and nothing else is reordered or reformatted.
package frontmatter

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/apperr"
)

// IDKey is the header field holding the document identifier.
const IDKey = "id"

var delim = []byte("---")

// Document is a parsed document: an optional header plus the body bytes.
// Until one of the Set methods is called, Bytes returns the input unchanged.
type Document struct {
	raw       []byte
	bodyStart int

	header      *yaml.Node // mapping node; nil when the document has no header
	headerDirty bool

	body      []byte
	bodyDirty bool
}

// Parse splits raw document bytes into header and body. A document with no
// leading "---" block has a nil header and is still usable. A header block
// that fails to parse as a YAML mapping yields apperr.ErrMalformedHeader;
// the caller must leave the document unmodified for this run.
func Parse(data []byte) (*Document, error) {
	d := &Document{raw: data}

	if !bytes.HasPrefix(data, delim) {
		d.body = data
		return d, nil
	}

	rest := data[len(delim):]
	end := bytes.Index(rest, append([]byte("\n"), delim...))
	if end < 0 {
		// Opening delimiter with no closing one: not a header.
		d.body = data
		return d, nil
	}

	block := rest[:end]
	after := rest[end+1+len(delim):]
	// Skip the remainder of the closing delimiter line.
	if nl := bytes.IndexByte(after, '\n'); nl >= 0 {
		after = after[nl+1:]
	} else {
		after = nil
	}
	d.bodyStart = len(data) - len(after)
	d.body = after

	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return nil, fmt.Errorf("frontmatter: %w: %v", apperr.ErrMalformedHeader, err)
	}

	switch {
	case doc.Kind == 0 || len(doc.Content) == 0:
		// Empty block between delimiters: treat as an empty header.
		d.header = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	case doc.Content[0].Kind == yaml.MappingNode:
		d.header = doc.Content[0]
	default:
		return nil, fmt.Errorf("frontmatter: %w: header is not a key/value mapping", apperr.ErrMalformedHeader)
	}

	return d, nil
}

// HasHeader reports whether the document carries a header block.
func (d *Document) HasHeader() bool { return d.header != nil }

// ID returns the identifier field value, or "" when absent.
func (d *Document) ID() string {
	if d.header == nil {
		return ""
	}
	for i := 0; i+1 < len(d.header.Content); i += 2 {
		if d.header.Content[i].Value == IDKey {
			return d.header.Content[i+1].Value
		}
	}
	return ""
}

// Field returns the scalar value of an arbitrary header field, or "" when
// the field is absent or not a scalar.
func (d *Document) Field(key string) string {
	if d.header == nil {
		return ""
	}
	for i := 0; i+1 < len(d.header.Content); i += 2 {
		if d.header.Content[i].Value == key && d.header.Content[i+1].Kind == yaml.ScalarNode {
			return d.header.Content[i+1].Value
		}
	}
	return ""
}

// SetID writes the identifier field. Identifiers are write-once: a header
// that already carries a non-empty identifier is never overwritten. On a
// document with no header a minimal one is synthesized holding only the
// identifier field.
func (d *Document) SetID(id string) error {
	if existing := d.ID(); existing != "" {
		return fmt.Errorf("frontmatter: %w: %q", apperr.ErrIDAlreadySet, existing)
	}
	if d.header == nil {
		d.header = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}

	key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: IDKey}
	val := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: id}

	// Reuse an existing empty id field in place, otherwise append.
	for i := 0; i+1 < len(d.header.Content); i += 2 {
		if d.header.Content[i].Value == IDKey {
			d.header.Content[i+1] = val
			d.headerDirty = true
			return nil
		}
	}
	d.header.Content = append(d.header.Content, key, val)
	d.headerDirty = true
	return nil
}

// Body returns the current body text.
func (d *Document) Body() string { return string(d.body) }

// SetBody replaces the body, leaving the header bytes untouched.
func (d *Document) SetBody(body string) {
	if body == string(d.body) {
		return
	}
	d.body = []byte(body)
	d.bodyDirty = true
}

// Dirty reports whether Bytes would differ from the parsed input.
func (d *Document) Dirty() bool { return d.headerDirty || d.bodyDirty }

// Bytes renders the document back to a byte slice. Unmodified documents
// round-trip exactly; a modified header is reserialized with its fields in
// original order plus the appended identifier.
func (d *Document) Bytes() ([]byte, error) {
	if !d.Dirty() {
		return d.raw, nil
	}

	var buf bytes.Buffer
	if d.headerDirty {
		buf.Write(delim)
		buf.WriteByte('\n')
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d.header); err != nil {
			return nil, fmt.Errorf("frontmatter: render header: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("frontmatter: render header: %w", err)
		}
		buf.Write(delim)
		buf.WriteByte('\n')
	} else {
		buf.Write(d.raw[:d.bodyStart])
	}
	buf.Write(d.body)
	return buf.Bytes(), nil
}
