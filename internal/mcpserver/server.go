// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Raido's resolution tools for LLM integration via stdio
// transport, so an assistant refactoring a documentation tree can look up
// identifiers, preview scans, and fetch the pending redirect rules.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/location"
	"github.com/starford/raido/internal/redirect"
	"github.com/starford/raido/internal/scanner"
	"github.com/starford/raido/internal/snapshot"
	"github.com/starford/raido/internal/storage"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp          *server.MCPServer
	store        storage.Provider
	db           index.DocIndex
	snapshotPath string
}

// New creates a new MCP server with all Raido tools registered.
func New(store storage.Provider, db index.DocIndex, snapshotPath string) *Server {
	s := &Server{store: store, db: db, snapshotPath: snapshotPath}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("lookup_document",
		mcp.WithDescription("Look up a document by its permanent identifier: returns its current location and title."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document identifier (e.g. how-to-routing)")),
	), s.lookupDocument)

	s.mcp.AddTool(mcp.NewTool("resolve_link",
		mcp.WithDescription("Resolve an identifier to the relative link a given document should use, "+
			"exactly as the internal_link macro would at render time."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Target document identifier")),
		mcp.WithString("from", mcp.Required(), mcp.Description("Location of the referencing document (e.g. how-to/routing.md)")),
	), s.resolveLink)

	s.mcp.AddTool(mcp.NewTool("list_redirects",
		mcp.WithDescription("Diff the stored before-snapshot against the current tree and return "+
			"the old-location to new-location redirect rules a build would emit."),
	), s.listRedirects)

	s.mcp.AddTool(mcp.NewTool("scan_preview",
		mcp.WithDescription("Dry-run scan of the tree: which documents would receive a fresh identifier, "+
			"which already carry one, and which have problems. Writes nothing."),
	), s.scanPreview)

	s.mcp.AddTool(mcp.NewTool("get_backrefs",
		mcp.WithDescription("List the identifiers of all documents whose bodies reference the given identifier. "+
			"Check before removing a document to see what would break."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Target document identifier")),
	), s.getBackrefs)

	s.mcp.AddTool(mcp.NewTool("get_link_contract",
		mcp.WithDescription("Returns the durable link contract. Read this before editing frontmatter "+
			"or links in a Raido-managed tree."),
	), s.getLinkContract)

	// Resource: durable link contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://link-format", "Durable Link Contract",
			mcp.WithResourceDescription("Rules for identifiers and link forms in a Raido-managed tree."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLinkFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) lookupDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, err := s.db.GetDocument(id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown identifier: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]string{
		"id":       row.ID,
		"location": string(row.Location),
		"title":    row.Title,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) resolveLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fromLoc, err := location.Normalize(from)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, err := s.db.GetDocument(id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown identifier: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(location.Rel(fromLoc, row.Location)), nil
}

func (s *Server) listRedirects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	before, err := snapshot.Load(s.snapshotPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	current, err := s.db.Mapping()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	delta := snapshot.Diff(before.Documents, current)
	rules, err := redirect.Rules(delta)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(rules) == 0 && len(delta.Removed) == 0 {
		return mcp.NewToolResultText("no moves detected"), nil
	}

	var b strings.Builder
	for _, rule := range rules {
		fmt.Fprintf(&b, "%s -> %s\n", rule.From, rule.To)
	}
	for _, id := range delta.Removed {
		fmt.Fprintf(&b, "removed (no destination): %s was %s\n", id, before.Documents[id])
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) scanPreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plan, err := scanner.Build(ctx, s.store, scanner.Options{AssignMissing: true})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	preview := plan.Preview()
	if preview == "" {
		return mcp.NewToolResultText("no tracked documents found"), nil
	}
	return mcp.NewToolResultText(preview), nil
}

func (s *Server) getBackrefs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refs, err := s.db.Referencing(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("no referencing documents found"), nil
	}
	return mcp.NewToolResultText(strings.Join(refs, "\n")), nil
}

func (s *Server) getLinkContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LinkFormatContract), nil
}

func (s *Server) readLinkFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://link-format",
			MIMEType: "text/markdown",
			Text:     LinkFormatContract,
		},
	}, nil
}
