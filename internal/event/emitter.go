package event

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// Emitter decouples core logic from whatever UI hosts it
// ─────────────────────────────────────────────────────────────

// Emitter is an interface for surfacing events to the frontend. The host
// shell implements this; core packages receive the interface instead of a
// UI handle, which keeps them independently testable with a mock.
type Emitter interface {
	Emit(ctx context.Context, event string, data any)
}

// MockEmitter is a test-friendly Emitter that records all calls. It is safe
// for concurrent use: session hosts emit from their own goroutines.
type MockEmitter struct {
	mu     sync.Mutex
	events []Emitted
}

// Emitted holds a single recorded emission for test assertions.
type Emitted struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Emitted{Event: event, Data: data})
}

// Recorded returns a copy of everything emitted so far.
func (m *MockEmitter) Recorded() []Emitted {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Emitted(nil), m.events...)
}

// Noop discards all events. Used in headless modes with no frontend.
type Noop struct{}

func (Noop) Emit(_ context.Context, _ string, _ any) {}
