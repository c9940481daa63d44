// Package library projects repository state into the notebook/note browsing
// views: listing, breadcrumb navigation, search and tag filtering, create
// and cascade-delete flows, and handwriting conversion.
package library

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inkpad/internal/domain"
	"inkpad/internal/drawing"
	"inkpad/internal/event"
	"inkpad/internal/recognize"
)

// DeleteKind tags the pending-deletion target.
type DeleteKind string

const (
	DeleteNotebook DeleteKind = "notebook"
	DeleteNote     DeleteKind = "note"
)

// DeleteTarget is the pending cascade-delete candidate awaiting confirmation.
type DeleteTarget struct {
	Kind DeleteKind
	ID   string
}

// CreateNotebookRequest is validated before any store call.
type CreateNotebookRequest struct {
	Name     string  `validate:"required"`
	ParentID *string
}

// CreateNoteRequest requires a target notebook; a blank title is substituted
// with "Untitled" rather than rejected at this layer.
type CreateNoteRequest struct {
	Title      string
	NotebookID string `validate:"required"`
}

// Library holds the transient browsing-session state: snapshots copied out
// of the stores, never live store entities.
type Library struct {
	notebooks domain.NotebookStore
	notes     domain.NoteStore
	tags      domain.TagStore
	rec       recognize.Recognizer
	emitter   event.Emitter
	validate  *validator.Validate

	// mu serializes every method: the store watcher refreshes from its own
	// goroutine while the hosting shell (or the MCP server) drives the rest.
	mu sync.Mutex

	// View state. All fields are snapshots; every durable mutation goes
	// through the stores and is followed by a refresh. Read them only from
	// the goroutine that called the method that produced them.
	Notebooks          []domain.Notebook
	SelectedNotebookID *string
	Breadcrumbs        []domain.Notebook
	Notes              []domain.Note
	TagCatalog         []domain.Tag
	Query              string
	SelectedTags       map[string]bool
	PendingDelete      *DeleteTarget
	DeletePrompt       string
	ConvertingNoteID   string
}

func New(
	notebooks domain.NotebookStore,
	notes domain.NoteStore,
	tags domain.TagStore,
	rec recognize.Recognizer,
	emitter event.Emitter,
) *Library {
	return &Library{
		notebooks:    notebooks,
		notes:        notes,
		tags:         tags,
		rec:          rec,
		emitter:      emitter,
		validate:     validator.New(),
		SelectedTags: make(map[string]bool),
	}
}

// Refresh reloads root notebooks, the tag catalog, and the filtered note
// list. The three fetches are independent: a failure in one is reported but
// does not abort the others.
func (l *Library) Refresh(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refresh(ctx)
}

func (l *Library) refresh(ctx context.Context) error {
	var firstErr error

	if notebooks, err := l.notebooks.ListRootNotebooks(); err != nil {
		firstErr = fmt.Errorf("list notebooks: %w", err)
	} else {
		l.Notebooks = notebooks
	}

	if tags, err := l.tags.ListTags(); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("list tags: %w", err)
		}
	} else {
		l.TagCatalog = tags
	}

	if err := l.applyFilter(); err != nil && firstErr == nil {
		firstErr = err
	}

	l.emitter.Emit(ctx, "library:refreshed", nil)
	return firstErr
}

// SelectNotebook scopes the note list to the given notebook and rebuilds the
// breadcrumb path by walking parent references up to the root. A nil id
// clears the scope to "all notes".
func (l *Library) SelectNotebook(ctx context.Context, id *string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id == nil {
		l.SelectedNotebookID = nil
		l.Breadcrumbs = nil
		return l.applyFilter()
	}

	nb, err := l.notebooks.GetNotebook(*id)
	if err != nil {
		return fmt.Errorf("select notebook: %w", err)
	}
	if nb == nil {
		return fmt.Errorf("notebook %q not found", *id)
	}

	crumbs, err := l.breadcrumbPath(nb)
	if err != nil {
		return err
	}

	l.SelectedNotebookID = id
	l.Breadcrumbs = crumbs
	return l.applyFilter()
}

// breadcrumbPath walks the parent chain from nb to its root and returns the
// root-to-leaf path. The seen set stops a corrupt parent cycle from looping.
func (l *Library) breadcrumbPath(nb *domain.Notebook) ([]domain.Notebook, error) {
	path := []domain.Notebook{*nb}
	seen := map[string]bool{nb.ID: true}

	current := nb
	for current.ParentID != nil {
		parent, err := l.notebooks.GetNotebook(*current.ParentID)
		if err != nil {
			return nil, fmt.Errorf("breadcrumb walk: %w", err)
		}
		if parent == nil || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		path = append([]domain.Notebook{*parent}, path...)
		current = parent
	}
	return path, nil
}

// SetQuery updates the search string and reapplies the filter.
func (l *Library) SetQuery(query string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Query = query
	return l.applyFilter()
}

// ToggleTag flips a tag in the selection set and reapplies the filter.
func (l *Library) ToggleTag(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.SelectedTags[name] {
		delete(l.SelectedTags, name)
	} else {
		l.SelectedTags[name] = true
	}
	return l.applyFilter()
}

// applyFilter recomputes the note list: the scoped source set, reduced by
// the case-insensitive search, reduced by the tag selection. A note must
// carry every selected tag, not just one.
func (l *Library) applyFilter() error {
	var source []domain.Note
	var err error
	if l.SelectedNotebookID != nil {
		source, err = l.notes.ListNotesByNotebook(*l.SelectedNotebookID)
	} else {
		source, err = l.notes.ListNotes()
	}
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}

	if q := strings.ToLower(strings.TrimSpace(l.Query)); q != "" {
		var kept []domain.Note
		for _, n := range source {
			if strings.Contains(strings.ToLower(n.Title), q) ||
				strings.Contains(strings.ToLower(n.Content), q) ||
				strings.Contains(strings.ToLower(n.RecognizedText), q) {
				kept = append(kept, n)
			}
		}
		source = kept
	}

	if len(l.SelectedTags) > 0 {
		var kept []domain.Note
		for _, n := range source {
			if carriesAll(n.Tags, l.SelectedTags) {
				kept = append(kept, n)
			}
		}
		source = kept
	}

	l.Notes = source
	return nil
}

func carriesAll(noteTags []string, selection map[string]bool) bool {
	have := make(map[string]bool, len(noteTags))
	for _, t := range noteTags {
		have[t] = true
	}
	for t := range selection {
		if !have[t] {
			return false
		}
	}
	return true
}

// CreateNotebook validates the name, resolves the optional parent, creates
// the notebook, and refreshes.
func (l *Library) CreateNotebook(ctx context.Context, name string, parentID *string) (*domain.Notebook, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	req := CreateNotebookRequest{Name: strings.TrimSpace(name), ParentID: parentID}
	if err := l.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("notebook name must not be empty")
	}

	if parentID != nil {
		parent, err := l.notebooks.GetNotebook(*parentID)
		if err != nil {
			return nil, fmt.Errorf("resolve parent: %w", err)
		}
		if parent == nil {
			return nil, fmt.Errorf("parent notebook %q not found", *parentID)
		}
	}

	nb := &domain.Notebook{ID: uuid.New().String(), Name: req.Name, ParentID: parentID}
	if err := l.notebooks.CreateNotebook(nb); err != nil {
		return nil, fmt.Errorf("create notebook: %w", err)
	}
	return nb, l.refresh(ctx)
}

// CreateNote requires a selected notebook. A blank title becomes "Untitled";
// the repository-level empty-title rejection stays for direct store callers.
func (l *Library) CreateNote(ctx context.Context, title, notebookID string) (*domain.Note, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		trimmed = "Untitled"
	}
	req := CreateNoteRequest{Title: trimmed, NotebookID: notebookID}
	if err := l.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("select a notebook before creating a note")
	}

	note := &domain.Note{ID: uuid.New().String(), Title: trimmed, NotebookID: &notebookID}
	if err := l.notes.CreateNote(note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return note, l.refresh(ctx)
}

// RequestDelete records the pending target and prepares a confirmation
// prompt naming the entity when it can be resolved from current snapshots.
func (l *Library) RequestDelete(target DeleteTarget) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.PendingDelete = &target
	l.DeletePrompt = l.deletePrompt(target)
}

func (l *Library) deletePrompt(target DeleteTarget) string {
	switch target.Kind {
	case DeleteNotebook:
		if nb, err := l.notebooks.GetNotebook(target.ID); err == nil && nb != nil {
			return fmt.Sprintf("Delete notebook %q and everything inside it?", nb.Name)
		}
		return "Delete this notebook and everything inside it?"
	case DeleteNote:
		if n, err := l.notes.GetNote(target.ID); err == nil && n != nil {
			return fmt.Sprintf("Delete note %q?", n.Title)
		}
	}
	return "Delete this note?"
}

// ConfirmDelete dispatches the pending delete. The pending target is cleared
// and the views refreshed whether the delete succeeded or not.
func (l *Library) ConfirmDelete(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.PendingDelete == nil {
		return nil
	}
	target := *l.PendingDelete

	var err error
	switch target.Kind {
	case DeleteNotebook:
		err = l.notebooks.DeleteNotebook(target.ID)
	case DeleteNote:
		err = l.notes.DeleteNote(target.ID)
	}

	l.PendingDelete = nil
	l.DeletePrompt = ""
	if refreshErr := l.refresh(ctx); err == nil {
		err = refreshErr
	}
	if err != nil {
		logrus.Errorf("library: delete %s %s: %v", target.Kind, target.ID, err)
	}
	return err
}

// CancelDelete clears the pending target without touching the stores.
func (l *Library) CancelDelete() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.PendingDelete = nil
	l.DeletePrompt = ""
}

// ConvertHandwriting runs recognition over a note's drawing and stores the
// resulting text in its recognized-text field.
func (l *Library) ConvertHandwriting(ctx context.Context, noteID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ConvertingNoteID = noteID
	defer func() { l.ConvertingNoteID = "" }()

	note, err := l.notes.GetNote(noteID)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	if note == nil {
		return fmt.Errorf("note not found")
	}

	data, err := l.notes.GetDrawing(noteID)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	if data == nil {
		return fmt.Errorf("note has no drawing")
	}

	snap, err := drawing.Decode(data)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	text, err := l.rec.Recognize(ctx, snap)
	if err != nil {
		return fmt.Errorf("recognize handwriting: %w", err)
	}

	note.RecognizedText = text
	if err := l.notes.UpdateNote(note); err != nil {
		return fmt.Errorf("store recognized text: %w", err)
	}
	return l.refresh(ctx)
}
