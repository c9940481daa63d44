package editor_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"inkpad/internal/domain"
	"inkpad/internal/drawing"
	"inkpad/internal/editor"
	"inkpad/internal/event"
	"inkpad/internal/recognize"
	"inkpad/internal/schedule"
	"inkpad/internal/storage"
)

type fixture struct {
	db      *storage.DB
	notes   *storage.NoteStore
	tags    *storage.TagStore
	note    *domain.Note
	sched   *schedule.ManualScheduler
	emitter *event.MockEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "inkpad.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	notebooks := storage.NewNotebookStore(db)
	nb := &domain.Notebook{ID: "nb-work", Name: "Work"}
	if err := notebooks.CreateNotebook(nb); err != nil {
		t.Fatalf("create notebook: %v", err)
	}
	note := &domain.Note{ID: "note-meeting", NotebookID: &nb.ID, Title: "Meeting"}
	notes := storage.NewNoteStore(db)
	if err := notes.CreateNote(note); err != nil {
		t.Fatalf("create note: %v", err)
	}

	return &fixture{
		db:      db,
		notes:   notes,
		tags:    storage.NewTagStore(db),
		note:    note,
		sched:   schedule.NewManualScheduler(),
		emitter: &event.MockEmitter{},
	}
}

func (f *fixture) open(t *testing.T, rec recognize.Recognizer) *editor.Session {
	t.Helper()
	sess := editor.NewSession(f.note.ID, f.notes, f.tags, rec, f.sched, f.emitter)
	if err := sess.Open(context.Background()); err != nil {
		t.Fatalf("open session: %v", err)
	}
	return sess
}

// waitFor polls until cond holds or the deadline passes. The session applies
// messages on its own goroutine, so observable state settles asynchronously.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSession_OpenMissingNote(t *testing.T) {
	f := newFixture(t)
	sess := editor.NewSession("no-such-note", f.notes, f.tags, recognize.Static{}, f.sched, f.emitter)
	if err := sess.Open(context.Background()); err == nil {
		t.Fatal("expected an error opening a missing note")
	}
}

// Full path: a change is debounced, the fired save writes the drawing,
// recognition yields a hashtag, and the tag lands on the note.
func TestSession_SaveWithTagExtraction(t *testing.T) {
	f := newFixture(t)
	sess := f.open(t, recognize.Static{Text: "Standup agenda #Meeting #followup"})

	waitFor(t, "session open", func() bool { return sess.State().Title == "Meeting" })

	snap := &drawing.Snapshot{Strokes: []drawing.Stroke{{
		Color: "black", Width: 2,
		Points: []drawing.Point{{X: 1, Y: 1}, {X: 5, Y: 9}},
	}}}
	sess.DrawingChanged(snap)

	waitFor(t, "debounce scheduled", func() bool { return f.sched.Pending(editor.KeySaveDebounce) })
	if d := f.sched.Delays[editor.KeySaveDebounce]; d != editor.SaveDebounce {
		t.Errorf("debounce delay = %v, want %v", d, editor.SaveDebounce)
	}

	f.sched.Fire(editor.KeySaveDebounce)
	waitFor(t, "save to complete", func() bool {
		st := sess.State()
		return !st.Unsaved && !st.Saving
	})

	data, err := f.notes.GetDrawing(f.note.ID)
	if err != nil || data == nil {
		t.Fatalf("drawing not persisted: data=%v err=%v", data, err)
	}
	got, err := drawing.Decode(data)
	if err != nil {
		t.Fatalf("decode persisted drawing: %v", err)
	}
	if len(got.Strokes) != 1 || got.Strokes[0].Color != "black" {
		t.Errorf("persisted drawing = %+v, want the saved stroke", got)
	}

	tags, err := f.tags.TagsForNote(f.note.ID)
	if err != nil {
		t.Fatalf("tags for note: %v", err)
	}
	var names []string
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	if len(names) != 2 || names[0] != "followup" || names[1] != "meeting" {
		t.Errorf("attached tags = %v, want [followup meeting]", names)
	}
	if dt := sess.State().DetectedTags; len(dt) != 2 || dt[0] != "followup" || dt[1] != "meeting" {
		t.Errorf("detected tags = %v, want [followup meeting]", dt)
	}

	sess.RequestClose()
	select {
	case <-sess.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("clean session did not close")
	}
}

// Recognition failure never fails the save: the drawing still persists, the
// dirty flag clears, and the trouble surfaces only as a notice.
func TestSession_RecognitionFailureIsAdvisory(t *testing.T) {
	f := newFixture(t)
	sess := f.open(t, recognize.Static{Err: errors.New("ocr engine offline")})
	waitFor(t, "session open", func() bool { return sess.State().Title == "Meeting" })

	sess.DrawingChanged(&drawing.Snapshot{Strokes: []drawing.Stroke{{Color: "blue", Width: 1}}})
	waitFor(t, "debounce scheduled", func() bool { return f.sched.Pending(editor.KeySaveDebounce) })
	f.sched.Fire(editor.KeySaveDebounce)

	waitFor(t, "save to complete", func() bool {
		st := sess.State()
		return !st.Unsaved && !st.Saving
	})
	st := sess.State()
	if st.Failed || st.RetryCount != 0 {
		t.Errorf("advisory failure leaked into save state: %+v", st)
	}
	if data, err := f.notes.GetDrawing(f.note.ID); err != nil || data == nil {
		t.Fatalf("drawing should persist despite recognition failure: data=%v err=%v", data, err)
	}

	var noticed bool
	for _, e := range f.emitter.Recorded() {
		if e.Event == "editor:notice" {
			fields, _ := e.Data.(map[string]string)
			if fields["level"] == "warning" && strings.Contains(fields["message"], "tag detection failed") {
				noticed = true
			}
		}
	}
	if !noticed {
		t.Error("expected a warning notice about the failed tag detection")
	}
}

// brokenNoteStore fails drawing writes while the switch is on.
type brokenNoteStore struct {
	domain.NoteStore
	broken atomic.Bool
}

func (b *brokenNoteStore) SetDrawing(noteID string, data []byte) error {
	if b.broken.Load() {
		return errors.New("disk full")
	}
	return b.NoteStore.SetDrawing(noteID, data)
}

func TestSession_SaveFailureSchedulesRetry(t *testing.T) {
	f := newFixture(t)
	broken := &brokenNoteStore{NoteStore: f.notes}
	broken.broken.Store(true)

	sess := editor.NewSession(f.note.ID, broken, f.tags, recognize.Static{}, f.sched, f.emitter)
	if err := sess.Open(context.Background()); err != nil {
		t.Fatalf("open session: %v", err)
	}
	waitFor(t, "session open", func() bool { return sess.State().Title == "Meeting" })

	sess.DrawingChanged(&drawing.Snapshot{Strokes: []drawing.Stroke{{Color: "red", Width: 1}}})
	waitFor(t, "debounce scheduled", func() bool { return f.sched.Pending(editor.KeySaveDebounce) })
	f.sched.Fire(editor.KeySaveDebounce)

	waitFor(t, "retry scheduled", func() bool { return f.sched.Pending(editor.KeySaveRetry) })
	st := sess.State()
	if st.RetryCount != 1 || st.LastError == "" {
		t.Errorf("after first failure: %+v", st)
	}
	if d := f.sched.Delays[editor.KeySaveRetry]; d != 2*time.Second {
		t.Errorf("first retry delay = %v, want 2s", d)
	}

	// Store recovers; the automatic retry succeeds.
	broken.broken.Store(false)
	f.sched.Fire(editor.KeySaveRetry)
	waitFor(t, "retry to succeed", func() bool {
		st := sess.State()
		return !st.Unsaved && !st.Saving && st.RetryCount == 0
	})
	if data, err := f.notes.GetDrawing(f.note.ID); err != nil || data == nil {
		t.Fatalf("drawing not persisted after retry: data=%v err=%v", data, err)
	}
}

func TestSession_DirtyCloseNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	sess := f.open(t, recognize.Static{})
	waitFor(t, "session open", func() bool { return sess.State().Title == "Meeting" })

	sess.DrawingChanged(&drawing.Snapshot{Strokes: []drawing.Stroke{{Color: "red", Width: 1}}})
	waitFor(t, "dirty", func() bool { return sess.State().Unsaved })

	sess.RequestClose()
	waitFor(t, "confirmation prompt", func() bool { return sess.State().ConfirmingClose })

	sess.CancelExit()
	waitFor(t, "back to editing", func() bool {
		st := sess.State()
		return !st.ConfirmingClose && !st.Closed
	})

	sess.RequestClose()
	waitFor(t, "confirmation prompt again", func() bool { return sess.State().ConfirmingClose })
	sess.ConfirmExit()
	select {
	case <-sess.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("confirmed exit did not close the session")
	}

	// The abandoned change was never written.
	if data, err := f.notes.GetDrawing(f.note.ID); err != nil || data != nil {
		t.Errorf("discarded drawing should not persist: data=%v err=%v", data, err)
	}

	var closed bool
	for _, e := range f.emitter.Recorded() {
		if e.Event == "editor:closed" {
			closed = true
		}
	}
	if !closed {
		t.Error("expected an editor:closed emission")
	}
}
