package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerTools() {
	// ── list_notebooks ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List all notebooks, roots first"),
	), s.handleListNotebooks)

	// ── create_notebook ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_notebook",
		mcp.WithDescription("Create a notebook, optionally nested under a parent"),
		mcp.WithString("name",
			mcp.Description("Name of the new notebook"),
			mcp.Required(),
		),
		mcp.WithString("parentId",
			mcp.Description("ID of the parent notebook"),
		),
	), s.handleCreateNotebook)

	// ── list_notes ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, optionally scoped to one notebook"),
		mcp.WithString("notebookId",
			mcp.Description("ID of the notebook to scope to"),
		),
	), s.handleListNotes)

	// ── search_notes ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search notes by title, content, and recognized handwriting"),
		mcp.WithString("query",
			mcp.Description("Case-insensitive substring to search for"),
			mcp.Required(),
		),
	), s.handleSearchNotes)

	// ── create_note ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note in a notebook"),
		mcp.WithString("notebookId",
			mcp.Description("ID of the notebook"),
			mcp.Required(),
		),
		mcp.WithString("title",
			mcp.Description("Title of the new note; blank becomes Untitled"),
		),
	), s.handleCreateNote)

	// ── list_tags ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List the tag catalog"),
	), s.handleListTags)

	// ── convert_note ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("convert_note",
		mcp.WithDescription("Run handwriting recognition over a note's drawing and store the text"),
		mcp.WithString("noteId",
			mcp.Description("ID of the note to convert"),
			mcp.Required(),
		),
	), s.handleConvertNote)
}

func (s *Server) handleListNotebooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notebooks, err := s.notebooks.ListNotebooks()
	if err != nil {
		return nil, fmt.Errorf("list notebooks: %w", err)
	}
	return jsonResult(notebooks)
}

func (s *Server) handleCreateNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	var parentID *string
	if pid := req.GetString("parentId", ""); pid != "" {
		parentID = &pid
	}
	nb, err := s.lib.CreateNotebook(ctx, name, parentID)
	if err != nil {
		return nil, fmt.Errorf("create notebook: %w", err)
	}
	return jsonResult(nb)
}

func (s *Server) handleListNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if notebookID := req.GetString("notebookId", ""); notebookID != "" {
		notes, err := s.notes.ListNotesByNotebook(notebookID)
		if err != nil {
			return nil, fmt.Errorf("list notes: %w", err)
		}
		return jsonResult(notes)
	}
	notes, err := s.notes.ListNotes()
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return jsonResult(notes)
}

func (s *Server) handleSearchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	notes, err := s.notes.SearchNotes(query)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	return jsonResult(notes)
}

func (s *Server) handleCreateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notebookID := req.GetString("notebookId", "")
	if notebookID == "" {
		return nil, fmt.Errorf("notebookId is required")
	}
	note, err := s.lib.CreateNote(ctx, req.GetString("title", ""), notebookID)
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return jsonResult(note)
}

func (s *Server) handleListTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.tags.ListTags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return jsonResult(tags)
}

func (s *Server) handleConvertNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID := req.GetString("noteId", "")
	if noteID == "" {
		return nil, fmt.Errorf("noteId is required")
	}
	if err := s.lib.ConvertHandwriting(ctx, noteID); err != nil {
		return nil, err
	}
	note, err := s.notes.GetNote(noteID)
	if err != nil || note == nil {
		return textResult("converted"), nil
	}
	return jsonResult(map[string]string{"noteId": note.ID, "recognizedText": note.RecognizedText})
}
