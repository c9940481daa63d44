// Package mcpserver exposes the note store over the Model Context Protocol
// so AI agents can browse, search, and extend the library.
package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"inkpad/internal/domain"
	"inkpad/internal/library"
)

// Server is the MCP server for the note library.
type Server struct {
	mcp *server.MCPServer

	notebooks domain.NotebookStore
	notes     domain.NoteStore
	tags      domain.TagStore
	lib       *library.Library
}

// Deps holds the dependencies injected from the app layer.
type Deps struct {
	Notebooks domain.NotebookStore
	Notes     domain.NoteStore
	Tags      domain.TagStore
	Library   *library.Library
}

// New creates and configures an MCP server with the library tools.
func New(deps Deps) *Server {
	s := &Server{
		notebooks: deps.Notebooks,
		notes:     deps.Notes,
		tags:      deps.Tags,
		lib:       deps.Library,
	}

	s.mcp = server.NewMCPServer(
		"inkpad-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	logrus.Info("mcp: starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
