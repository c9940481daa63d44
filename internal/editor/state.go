// Package editor owns the lifecycle of editing one note's drawing: the
// debounced auto-save pipeline, the bounded retry policy, the two-phase save
// protocol (critical drawing write, advisory tag extraction), the exit
// confirmation flow, and the navigation auto-hide sub-machine.
//
// All transition logic lives in a pure reducer (message in, new state plus
// effect descriptions out). The Session host executes the effects and feeds
// results back in as further messages, so the state machine itself is
// synchronous and directly testable.
package editor

import (
	"time"

	"inkpad/internal/drawing"
)

// Timer track keys. Each key is a single-slot track: scheduling under it
// cancels whatever was pending there before.
const (
	KeySaveDebounce = "editor:save-debounce"
	KeySaveRetry    = "editor:save-retry"
	KeyNavHide      = "editor:nav-hide"
)

const (
	// SaveDebounce is the quiet period after the last stroke before a save.
	SaveDebounce = 2 * time.Second
	// MaxAutoRetries bounds automatic save retries; after that many
	// consecutive failures the machine stops and waits for the user.
	MaxAutoRetries = 3
	// NavInitialHide hides navigation this long after opening a note or
	// starting a stroke while it is visible.
	NavInitialHide = 3 * time.Second
	// NavRevealHide hides navigation this long after an edge double-tap
	// reveals it.
	NavRevealHide = 5 * time.Second

	maxRetryDelay = 60 * time.Second
)

// RetryDelay returns the backoff before the retry scheduled after the given
// number of consecutive failures: 2s, 4s, 8s, … capped at 60s.
func RetryDelay(failures int) time.Duration {
	d := 2 * time.Second
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return d
}

// State is the transient editing-session state. It holds snapshots only and
// never a live store handle.
type State struct {
	NoteID string
	Title  string

	// Drawing is the working buffer: the last snapshot the canvas emitted.
	Drawing *drawing.Snapshot
	// Seq increments on every drawing change; save completions carry the seq
	// they were started with so a stale completion cannot clear a newer
	// unsaved change.
	Seq int

	Unsaved    bool
	Saving     bool
	RetryCount int
	// Failed marks the terminal failure state: automatic retries exhausted,
	// waiting for the user to retry or discard.
	Failed    bool
	LastError string

	// DetectedTags is a UI-facing cache of the tags found in the current
	// drawing, not authoritative.
	DetectedTags []string

	NavVisible      bool
	ConfirmingClose bool
	Closed          bool
}

// Msg is a state-machine input. The host feeds user input, timer firings,
// and save completions through the same channel so transitions stay
// sequential.
type Msg interface{ isMsg() }

// Opened carries the note metadata and persisted drawing loaded when the
// session starts. A load failure substitutes an empty drawing upstream.
type Opened struct {
	Title   string
	Drawing *drawing.Snapshot
}

// DrawingChanged is emitted by the canvas on every stroke completion.
type DrawingChanged struct {
	Drawing *drawing.Snapshot
}

// StrokeStarted is emitted when the pen first touches down for a stroke.
type StrokeStarted struct{}

// NavEdgeDoubleTapped reveals the navigation chrome.
type NavEdgeDoubleTapped struct{}

// SaveTimerFired means the debounce quiet period elapsed.
type SaveTimerFired struct{}

// RetryTimerFired means the backoff delay after a failed save elapsed.
type RetryTimerFired struct{}

// NavHideTimerFired means the auto-hide delay elapsed.
type NavHideTimerFired struct{}

// SaveSucceeded reports a completed save protocol. Notice is non-empty when
// the advisory phase (OCR, tag attach) failed; the save still counts as a
// success.
type SaveSucceeded struct {
	Seq    int
	Tags   []string
	Notice string
}

// SaveFailed reports a failure of the critical drawing write.
type SaveFailed struct {
	Seq int
	Err string
}

// RetryRequested is the user's manual retry from the terminal failure state.
type RetryRequested struct{}

// DiscardRequested abandons the pending change from the terminal failure
// state.
type DiscardRequested struct{}

// CloseRequested asks to end the session.
type CloseRequested struct{}

// ExitConfirmed closes despite unsaved changes.
type ExitConfirmed struct{}

// ExitCancelled returns to editing unchanged.
type ExitCancelled struct{}

func (Opened) isMsg()              {}
func (DrawingChanged) isMsg()      {}
func (StrokeStarted) isMsg()       {}
func (NavEdgeDoubleTapped) isMsg() {}
func (SaveTimerFired) isMsg()      {}
func (RetryTimerFired) isMsg()     {}
func (NavHideTimerFired) isMsg()   {}
func (SaveSucceeded) isMsg()       {}
func (SaveFailed) isMsg()          {}
func (RetryRequested) isMsg()      {}
func (DiscardRequested) isMsg()    {}
func (CloseRequested) isMsg()      {}
func (ExitConfirmed) isMsg()       {}
func (ExitCancelled) isMsg()       {}

// Effect is a description of work for the host. The reducer never performs
// I/O itself.
type Effect interface{ isEffect() }

// ScheduleTimer schedules Msg to be fed back after Delay, replacing any
// timer pending under Key.
type ScheduleTimer struct {
	Key   string
	Delay time.Duration
	Msg   Msg
}

// CancelTimer drops the timer pending under Key, if any.
type CancelTimer struct {
	Key string
}

// RunSave executes the two-phase save protocol for the given snapshot.
type RunSave struct {
	Seq     int
	Drawing *drawing.Snapshot
}

// Notify surfaces a passive notice (advisory failures, terminal errors).
type Notify struct {
	Level   string // "info" | "warning" | "error"
	Message string
}

// SessionClosed tells the owning collaborator the session ended.
type SessionClosed struct{}

func (ScheduleTimer) isEffect() {}
func (CancelTimer) isEffect()   {}
func (RunSave) isEffect()       {}
func (Notify) isEffect()        {}
func (SessionClosed) isEffect() {}
