package editor

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"inkpad/internal/domain"
	"inkpad/internal/drawing"
	"inkpad/internal/event"
	"inkpad/internal/recognize"
	"inkpad/internal/schedule"
)

// Session hosts the editing state machine for one note. It consumes messages
// on a single goroutine, runs the reducer, and executes the returned effects:
// timers through the Scheduler, saves against the stores, notices through
// the Emitter. Store I/O and recognition run off the loop and report back as
// messages, so state transitions stay strictly sequential.
type Session struct {
	noteID  string
	notes   domain.NoteStore
	tags    domain.TagStore
	rec     recognize.Recognizer
	sched   schedule.Scheduler
	emitter event.Emitter

	ctx  context.Context
	msgs chan Msg
	done chan struct{}

	mu    sync.Mutex
	state State
}

// NewSession prepares a session for the given note. Call Open to load the
// persisted drawing and start the message loop.
func NewSession(
	noteID string,
	notes domain.NoteStore,
	tags domain.TagStore,
	rec recognize.Recognizer,
	sched schedule.Scheduler,
	emitter event.Emitter,
) *Session {
	return &Session{
		noteID:  noteID,
		notes:   notes,
		tags:    tags,
		rec:     rec,
		sched:   sched,
		emitter: emitter,
		msgs:    make(chan Msg, 16),
		done:    make(chan struct{}),
		state:   State{NoteID: noteID},
	}
}

// Open loads the note and its persisted drawing, then starts the loop. A
// drawing load or decode failure is non-fatal: the session starts with an
// empty canvas instead.
func (s *Session) Open(ctx context.Context) error {
	note, err := s.notes.GetNote(s.noteID)
	if err != nil {
		return fmt.Errorf("open note: %w", err)
	}
	if note == nil {
		return fmt.Errorf("open note: %q not found", s.noteID)
	}

	snap := &drawing.Snapshot{}
	if data, err := s.notes.GetDrawing(s.noteID); err != nil {
		logrus.Warnf("editor: drawing load failed for %s, starting empty: %v", s.noteID, err)
	} else if data != nil {
		if decoded, err := drawing.Decode(data); err != nil {
			logrus.Warnf("editor: drawing decode failed for %s, starting empty: %v", s.noteID, err)
		} else {
			snap = decoded
		}
	}

	s.ctx = ctx
	go s.run()
	s.post(Opened{Title: note.Title, Drawing: snap})
	return nil
}

// State returns a snapshot of the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// ── Canvas and UI inputs ───────────────────────────────────

func (s *Session) DrawingChanged(snap *drawing.Snapshot) { s.post(DrawingChanged{Drawing: snap}) }
func (s *Session) StrokeStarted()                        { s.post(StrokeStarted{}) }
func (s *Session) DoubleTapEdge()                        { s.post(NavEdgeDoubleTapped{}) }
func (s *Session) RequestClose()                         { s.post(CloseRequested{}) }
func (s *Session) ConfirmExit()                          { s.post(ExitConfirmed{}) }
func (s *Session) CancelExit()                           { s.post(ExitCancelled{}) }
func (s *Session) RetrySave()                            { s.post(RetryRequested{}) }
func (s *Session) DiscardChanges()                       { s.post(DiscardRequested{}) }

// post delivers a message unless the session has already ended. Timer
// callbacks race session close, so a dropped message is normal there.
func (s *Session) post(msg Msg) {
	select {
	case <-s.done:
	case s.msgs <- msg:
	}
}

func (s *Session) run() {
	for msg := range s.msgs {
		s.mu.Lock()
		next, effects := Update(s.state, msg)
		s.state = next
		s.mu.Unlock()

		for _, eff := range effects {
			if s.execute(eff) {
				return
			}
		}
	}
}

// execute performs one effect; it reports true when the session ended.
func (s *Session) execute(eff Effect) bool {
	switch e := eff.(type) {
	case ScheduleTimer:
		msg := e.Msg
		s.sched.Schedule(e.Key, e.Delay, func() { s.post(msg) })
	case CancelTimer:
		s.sched.Cancel(e.Key)
	case RunSave:
		go s.runSave(e.Seq, e.Drawing)
	case Notify:
		logrus.WithField("note", s.noteID).Warnf("editor: %s", e.Message)
		s.emitter.Emit(s.ctx, "editor:notice", map[string]string{
			"level":   e.Level,
			"message": e.Message,
		})
	case SessionClosed:
		s.sched.Stop()
		s.emitter.Emit(s.ctx, "editor:closed", map[string]string{"noteId": s.noteID})
		close(s.done)
		return true
	}
	return false
}

// runSave is the two-phase save protocol. Phase one writes the drawing and
// is the only part that can fail the save. Phase two (recognition and tag
// attach) is advisory: its failures are logged and surfaced as a notice,
// never as a save failure.
func (s *Session) runSave(seq int, snap *drawing.Snapshot) {
	data, err := snap.Encode()
	if err != nil {
		s.post(SaveFailed{Seq: seq, Err: err.Error()})
		return
	}
	if err := s.notes.SetDrawing(s.noteID, data); err != nil {
		s.post(SaveFailed{Seq: seq, Err: err.Error()})
		return
	}

	tags, notice := s.extractAndAttachTags(snap)
	s.post(SaveSucceeded{Seq: seq, Tags: tags, Notice: notice})
}

// extractAndAttachTags runs recognition over the snapshot and attaches each
// extracted hashtag to the note. It returns the extracted tag names and a
// human-readable notice when any step failed.
func (s *Session) extractAndAttachTags(snap *drawing.Snapshot) ([]string, string) {
	if snap.Empty() {
		return nil, ""
	}
	text, err := s.rec.Recognize(s.ctx, snap)
	if err != nil {
		logrus.Warnf("editor: recognition failed for %s: %v", s.noteID, err)
		return nil, fmt.Sprintf("drawing saved, tag detection failed: %s", err)
	}

	names := recognize.ExtractHashtags(text)
	for _, name := range names {
		tag, err := s.tags.FetchOrCreateTag(name)
		if err != nil {
			logrus.Warnf("editor: tag %q lookup failed for %s: %v", name, s.noteID, err)
			return names, fmt.Sprintf("drawing saved, tag %q could not be stored: %s", name, err)
		}
		if err := s.tags.AttachTag(s.noteID, tag.ID); err != nil {
			logrus.Warnf("editor: tag %q attach failed for %s: %v", name, s.noteID, err)
			return names, fmt.Sprintf("drawing saved, tag %q could not be attached: %s", name, err)
		}
	}
	return names, ""
}
