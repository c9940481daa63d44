package editor

import "fmt"

// Update is the pure transition function: current state and one message in,
// new state and effect descriptions out.
func Update(s State, msg Msg) (State, []Effect) {
	if s.Closed {
		return s, nil
	}

	switch m := msg.(type) {
	case Opened:
		s.Title = m.Title
		s.Drawing = m.Drawing
		s.NavVisible = true
		return s, []Effect{ScheduleTimer{Key: KeyNavHide, Delay: NavInitialHide, Msg: NavHideTimerFired{}}}

	case DrawingChanged:
		s.Drawing = m.Drawing
		s.Seq++
		s.Unsaved = true
		// A fresh change supersedes a failed one: drop any pending retry and
		// start the failure accounting over.
		s.Failed = false
		s.RetryCount = 0
		s.LastError = ""
		return s, []Effect{
			CancelTimer{Key: KeySaveRetry},
			ScheduleTimer{Key: KeySaveDebounce, Delay: SaveDebounce, Msg: SaveTimerFired{}},
		}

	case SaveTimerFired:
		return triggerSave(s)

	case RetryTimerFired:
		return triggerSave(s)

	case SaveSucceeded:
		s.Saving = false
		s.RetryCount = 0
		s.Failed = false
		s.LastError = ""
		if len(m.Tags) > 0 {
			s.DetectedTags = m.Tags
		}
		effects := []Effect{CancelTimer{Key: KeySaveRetry}}
		// Only clear the dirty flag if nothing changed while the save was in
		// flight. A change that raced the save gets a fresh debounce window in
		// case its own timer fired while the save was running.
		if m.Seq == s.Seq {
			s.Unsaved = false
		} else if s.Unsaved {
			effects = append(effects, ScheduleTimer{Key: KeySaveDebounce, Delay: SaveDebounce, Msg: SaveTimerFired{}})
		}
		if m.Notice != "" {
			effects = append(effects, Notify{Level: "warning", Message: m.Notice})
		}
		return s, effects

	case SaveFailed:
		s.Saving = false
		s.LastError = m.Err
		s.RetryCount++
		if s.RetryCount < MaxAutoRetries {
			return s, []Effect{ScheduleTimer{
				Key:   KeySaveRetry,
				Delay: RetryDelay(s.RetryCount),
				Msg:   RetryTimerFired{},
			}}
		}
		s.Failed = true
		s.LastError = fmt.Sprintf("save failed after %d attempts: %s", s.RetryCount, m.Err)
		return s, []Effect{Notify{Level: "error", Message: s.LastError}}

	case RetryRequested:
		if !s.Failed {
			return s, nil
		}
		s.Failed = false
		s.RetryCount = 0
		s.LastError = ""
		return triggerSave(s)

	case DiscardRequested:
		s.Unsaved = false
		s.Failed = false
		s.RetryCount = 0
		s.LastError = ""
		return s, []Effect{
			CancelTimer{Key: KeySaveDebounce},
			CancelTimer{Key: KeySaveRetry},
		}

	case CloseRequested:
		if s.Unsaved {
			s.ConfirmingClose = true
			return s, nil
		}
		return closeSession(s)

	case ExitConfirmed:
		if !s.ConfirmingClose {
			return s, nil
		}
		s.ConfirmingClose = false
		return closeSession(s)

	case ExitCancelled:
		s.ConfirmingClose = false
		return s, nil

	case NavEdgeDoubleTapped:
		s.NavVisible = true
		return s, []Effect{ScheduleTimer{Key: KeyNavHide, Delay: NavRevealHide, Msg: NavHideTimerFired{}}}

	case StrokeStarted:
		if !s.NavVisible {
			return s, nil
		}
		return s, []Effect{ScheduleTimer{Key: KeyNavHide, Delay: NavInitialHide, Msg: NavHideTimerFired{}}}

	case NavHideTimerFired:
		s.NavVisible = false
		return s, nil
	}

	return s, nil
}

// triggerSave starts the save protocol if there is anything to save. The
// guard makes a stray timer firing harmless.
func triggerSave(s State) (State, []Effect) {
	if !s.Unsaved || s.Saving || s.Failed {
		return s, nil
	}
	s.Saving = true
	return s, []Effect{RunSave{Seq: s.Seq, Drawing: s.Drawing}}
}

// closeSession cancels pending timers and signals the owner. An in-flight
// save is past the fire point and allowed to complete; only not-yet-fired
// timers are cancelled.
func closeSession(s State) (State, []Effect) {
	s.Closed = true
	return s, []Effect{
		CancelTimer{Key: KeySaveDebounce},
		CancelTimer{Key: KeySaveRetry},
		CancelTimer{Key: KeyNavHide},
		SessionClosed{},
	}
}
