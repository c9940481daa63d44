package library_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"inkpad/internal/domain"
	"inkpad/internal/event"
	"inkpad/internal/library"
	"inkpad/internal/recognize"
	"inkpad/internal/storage"
)

type env struct {
	lib       *library.Library
	notebooks *storage.NotebookStore
	notes     *storage.NoteStore
	tags      *storage.TagStore
}

func newEnv(t *testing.T, rec recognize.Recognizer) *env {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "inkpad.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	notebooks := storage.NewNotebookStore(db)
	notes := storage.NewNoteStore(db)
	tags := storage.NewTagStore(db)
	return &env{
		lib:       library.New(notebooks, notes, tags, rec, &event.MockEmitter{}),
		notebooks: notebooks,
		notes:     notes,
		tags:      tags,
	}
}

func (e *env) notebook(t *testing.T, name string, parentID *string) *domain.Notebook {
	t.Helper()
	nb, err := e.lib.CreateNotebook(context.Background(), name, parentID)
	if err != nil {
		t.Fatalf("create notebook %q: %v", name, err)
	}
	return nb
}

func (e *env) note(t *testing.T, title, notebookID string) *domain.Note {
	t.Helper()
	n, err := e.lib.CreateNote(context.Background(), title, notebookID)
	if err != nil {
		t.Fatalf("create note %q: %v", title, err)
	}
	return n
}

func (e *env) tag(t *testing.T, noteID string, names ...string) {
	t.Helper()
	for _, name := range names {
		tag, err := e.tags.FetchOrCreateTag(name)
		if err != nil {
			t.Fatalf("fetch-or-create %q: %v", name, err)
		}
		if err := e.tags.AttachTag(noteID, tag.ID); err != nil {
			t.Fatalf("attach %q: %v", name, err)
		}
	}
}

func noteTitles(notes []domain.Note) []string {
	var titles []string
	for _, n := range notes {
		titles = append(titles, n.Title)
	}
	return titles
}

func TestCreateNotebook_Validation(t *testing.T) {
	e := newEnv(t, recognize.Static{})
	ctx := context.Background()

	if _, err := e.lib.CreateNotebook(ctx, "   ", nil); err == nil {
		t.Error("blank notebook name should be rejected")
	}

	missing := "no-such-parent"
	if _, err := e.lib.CreateNotebook(ctx, "Child", &missing); err == nil {
		t.Error("unknown parent should be rejected")
	}

	nb := e.notebook(t, "  Work  ", nil)
	if nb.Name != "Work" {
		t.Errorf("name = %q, want trimmed", nb.Name)
	}
	if len(e.lib.Notebooks) != 1 {
		t.Errorf("library snapshot holds %d notebooks, want 1 after refresh", len(e.lib.Notebooks))
	}
}

func TestCreateNote_UntitledSubstitutionAndNotebookRequirement(t *testing.T) {
	e := newEnv(t, recognize.Static{})
	ctx := context.Background()
	nb := e.notebook(t, "Work", nil)

	n, err := e.lib.CreateNote(ctx, "   ", nb.ID)
	if err != nil {
		t.Fatalf("blank title should be substituted, got error: %v", err)
	}
	if n.Title != "Untitled" {
		t.Errorf("title = %q, want %q", n.Title, "Untitled")
	}

	if _, err := e.lib.CreateNote(ctx, "Orphan", ""); err == nil {
		t.Error("creating a note without a notebook should be rejected")
	}
}

func TestSelectNotebook_BreadcrumbsRootToLeaf(t *testing.T) {
	e := newEnv(t, recognize.Static{})
	ctx := context.Background()

	root := e.notebook(t, "Root", nil)
	mid := e.notebook(t, "Mid", &root.ID)
	leaf := e.notebook(t, "Leaf", &mid.ID)

	e.note(t, "In leaf", leaf.ID)
	e.note(t, "In root", root.ID)

	if err := e.lib.SelectNotebook(ctx, &leaf.ID); err != nil {
		t.Fatalf("select: %v", err)
	}

	var names []string
	for _, nb := range e.lib.Breadcrumbs {
		names = append(names, nb.Name)
	}
	if len(names) != 3 || names[0] != "Root" || names[1] != "Mid" || names[2] != "Leaf" {
		t.Errorf("breadcrumbs = %v, want [Root Mid Leaf]", names)
	}

	if got := noteTitles(e.lib.Notes); len(got) != 1 || got[0] != "In leaf" {
		t.Errorf("scoped notes = %v, want just the leaf note", got)
	}

	// Clearing the scope shows everything again.
	if err := e.lib.SelectNotebook(ctx, nil); err != nil {
		t.Fatalf("clear scope: %v", err)
	}
	if e.lib.Breadcrumbs != nil || len(e.lib.Notes) != 2 {
		t.Errorf("cleared scope: crumbs=%v notes=%v", e.lib.Breadcrumbs, noteTitles(e.lib.Notes))
	}

	unknown := "nope"
	if err := e.lib.SelectNotebook(ctx, &unknown); err == nil {
		t.Error("selecting an unknown notebook should error")
	}
}

// Tag filtering is conjunctive: a note must carry every selected tag.
func TestTagFilter_RequiresAllSelectedTags(t *testing.T) {
	e := newEnv(t, recognize.Static{})
	nb := e.notebook(t, "Work", nil)

	a := e.note(t, "A", nb.ID)
	b := e.note(t, "B", nb.ID)
	c := e.note(t, "C", nb.ID)
	e.tag(t, a.ID, "x", "y")
	e.tag(t, b.ID, "x")
	e.tag(t, c.ID, "x", "y", "z")

	if err := e.lib.ToggleTag("x"); err != nil {
		t.Fatalf("toggle x: %v", err)
	}
	if err := e.lib.ToggleTag("y"); err != nil {
		t.Fatalf("toggle y: %v", err)
	}

	got := noteTitles(e.lib.Notes)
	if len(got) != 2 {
		t.Fatalf("filtered notes = %v, want exactly [A C]", got)
	}
	for _, title := range got {
		if title != "A" && title != "C" {
			t.Errorf("unexpected note %q in filter result", title)
		}
	}

	// Untoggling y widens back to every x-tagged note.
	if err := e.lib.ToggleTag("y"); err != nil {
		t.Fatalf("untoggle y: %v", err)
	}
	if got := noteTitles(e.lib.Notes); len(got) != 3 {
		t.Errorf("after untoggle = %v, want all three", got)
	}
}

func TestSetQuery_FiltersWithinScope(t *testing.T) {
	e := newEnv(t, recognize.Static{})
	nb := e.notebook(t, "Work", nil)
	e.note(t, "Quarterly review", nb.ID)
	e.note(t, "Grocery list", nb.ID)

	if err := e.lib.SetQuery("  REVIEW "); err != nil {
		t.Fatalf("set query: %v", err)
	}
	if got := noteTitles(e.lib.Notes); len(got) != 1 || got[0] != "Quarterly review" {
		t.Errorf("query result = %v, want just the review note", got)
	}

	if err := e.lib.SetQuery(""); err != nil {
		t.Fatalf("clear query: %v", err)
	}
	if len(e.lib.Notes) != 2 {
		t.Errorf("cleared query result = %v, want both notes", noteTitles(e.lib.Notes))
	}
}

func TestDeleteFlow_ConfirmAndCancel(t *testing.T) {
	e := newEnv(t, recognize.Static{})
	ctx := context.Background()
	root := e.notebook(t, "Root", nil)
	child := e.notebook(t, "Child", &root.ID)
	doomed := e.note(t, "Doomed", child.ID)

	// Cancel leaves everything in place.
	e.lib.RequestDelete(library.DeleteTarget{Kind: library.DeleteNote, ID: doomed.ID})
	if e.lib.PendingDelete == nil || !strings.Contains(e.lib.DeletePrompt, "Doomed") {
		t.Fatalf("pending=%v prompt=%q", e.lib.PendingDelete, e.lib.DeletePrompt)
	}
	e.lib.CancelDelete()
	if e.lib.PendingDelete != nil || e.lib.DeletePrompt != "" {
		t.Error("cancel should clear the pending target")
	}
	if n, _ := e.notes.GetNote(doomed.ID); n == nil {
		t.Fatal("cancelled delete must not touch the store")
	}

	// Confirming a notebook delete cascades through the subtree.
	e.lib.RequestDelete(library.DeleteTarget{Kind: library.DeleteNotebook, ID: root.ID})
	if !strings.Contains(e.lib.DeletePrompt, "Root") || !strings.Contains(e.lib.DeletePrompt, "everything inside") {
		t.Errorf("notebook prompt = %q, should name the notebook and warn about contents", e.lib.DeletePrompt)
	}
	if err := e.lib.ConfirmDelete(ctx); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if e.lib.PendingDelete != nil {
		t.Error("confirm should clear the pending target")
	}
	if n, _ := e.notes.GetNote(doomed.ID); n != nil {
		t.Error("note inside deleted subtree should be gone")
	}
	if len(e.lib.Notebooks) != 0 {
		t.Errorf("refreshed snapshot still shows notebooks: %v", e.lib.Notebooks)
	}

	// Confirm with nothing pending is a no-op.
	if err := e.lib.ConfirmDelete(ctx); err != nil {
		t.Errorf("idle confirm errored: %v", err)
	}
}

// The store watcher refreshes from its own goroutine while another caller
// (the MCP server, the hosting shell) mutates through the same Library.
// Every method takes the library mutex, so this must be race-free.
func TestConcurrentRefreshAndMutation(t *testing.T) {
	e := newEnv(t, recognize.Static{})
	ctx := context.Background()
	nb := e.notebook(t, "Work", nil)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if err := e.lib.Refresh(ctx); err != nil {
				t.Errorf("refresh: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := e.lib.CreateNote(ctx, fmt.Sprintf("Note %d", i), nb.ID); err != nil {
				t.Errorf("create note: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if err := e.lib.SetQuery(""); err != nil {
				t.Errorf("set query: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	if err := e.lib.Refresh(ctx); err != nil {
		t.Fatalf("final refresh: %v", err)
	}
	if len(e.lib.Notes) != 50 {
		t.Errorf("notes = %d, want all 50 creations visible", len(e.lib.Notes))
	}
}

func TestConvertHandwriting(t *testing.T) {
	e := newEnv(t, recognize.Static{Text: "Shopping: milk, eggs #errands"})
	ctx := context.Background()
	nb := e.notebook(t, "Home", nil)
	n := e.note(t, "List", nb.ID)

	if err := e.lib.ConvertHandwriting(ctx, "missing"); err == nil || !strings.Contains(err.Error(), "note not found") {
		t.Errorf("convert missing note: err = %v", err)
	}
	if err := e.lib.ConvertHandwriting(ctx, n.ID); err == nil || !strings.Contains(err.Error(), "note has no drawing") {
		t.Errorf("convert drawingless note: err = %v", err)
	}

	if err := e.notes.SetDrawing(n.ID, []byte(`{"strokes":[{"points":[{"x":0,"y":0}],"width":1,"color":"black"}]}`)); err != nil {
		t.Fatalf("set drawing: %v", err)
	}
	if err := e.lib.ConvertHandwriting(ctx, n.ID); err != nil {
		t.Fatalf("convert: %v", err)
	}

	got, _ := e.notes.GetNote(n.ID)
	if got.RecognizedText != "Shopping: milk, eggs #errands" {
		t.Errorf("recognized text = %q", got.RecognizedText)
	}

	// The recognized text participates in search immediately.
	if err := e.lib.SetQuery("milk"); err != nil {
		t.Fatalf("query: %v", err)
	}
	if got := noteTitles(e.lib.Notes); len(got) != 1 || got[0] != "List" {
		t.Errorf("search over recognized text = %v, want the converted note", got)
	}
}
