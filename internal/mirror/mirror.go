// Package mirror replicates the local store to remote destinations. Pushes
// are last-write-wins by updatedAt with no merge; the local store stays the
// source of truth and a mirror failure never blocks a local save.
package mirror

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"inkpad/internal/domain"
)

// Batch is one full snapshot of the replicated entities. Drawing payloads
// stay local; the mirror carries the searchable fields.
type Batch struct {
	Notebooks []domain.Notebook
	Notes     []domain.Note
	Tags      []domain.Tag
}

func (b Batch) size() int {
	return len(b.Notebooks) + len(b.Notes) + len(b.Tags)
}

// Destination writes a batch into one remote system.
type Destination interface {
	Name() string
	Push(ctx context.Context, batch Batch) (int, error)
	Close() error
}

// Result is the outcome of pushing one batch to one destination.
type Result struct {
	Destination string        `json:"destination"`
	Pushed      int           `json:"pushed"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// Engine loads the local entities and pushes them to every configured
// destination. Destination failures are isolated: one mirror being down
// never stops the others.
type Engine struct {
	notebooks domain.NotebookStore
	notes     domain.NoteStore
	tags      domain.TagStore
	dests     []Destination
}

func NewEngine(notebooks domain.NotebookStore, notes domain.NoteStore, tags domain.TagStore, dests ...Destination) *Engine {
	return &Engine{notebooks: notebooks, notes: notes, tags: tags, dests: dests}
}

// Destinations reports how many destinations are configured.
func (e *Engine) Destinations() int {
	return len(e.dests)
}

// Run executes one replication pass and returns one Result per destination.
func (e *Engine) Run(ctx context.Context) ([]Result, error) {
	batch, err := e.load()
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(e.dests))
	for _, dest := range e.dests {
		start := time.Now()
		pushed, err := dest.Push(ctx, batch)
		res := Result{Destination: dest.Name(), Pushed: pushed, Duration: time.Since(start)}
		if err != nil {
			res.Error = err.Error()
			logrus.Warnf("sync: push to %s failed after %d rows: %v", dest.Name(), pushed, err)
		} else {
			logrus.Infof("sync: pushed %d rows to %s in %s", pushed, dest.Name(), res.Duration.Round(time.Millisecond))
		}
		results = append(results, res)
	}
	return results, nil
}

// Close closes every destination.
func (e *Engine) Close() {
	for _, d := range e.dests {
		if err := d.Close(); err != nil {
			logrus.Warnf("sync: close %s: %v", d.Name(), err)
		}
	}
}

func (e *Engine) load() (Batch, error) {
	var batch Batch
	var err error
	if batch.Notebooks, err = e.notebooks.ListNotebooks(); err != nil {
		return batch, err
	}
	if batch.Notes, err = e.notes.ListNotes(); err != nil {
		return batch, err
	}
	if batch.Tags, err = e.tags.ListTags(); err != nil {
		return batch, err
	}
	return batch, nil
}
