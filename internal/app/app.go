// Package app wires the stores, state machines, watcher, and maintenance
// jobs together for whatever shell hosts them.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"inkpad/internal/config"
	"inkpad/internal/editor"
	"inkpad/internal/event"
	"inkpad/internal/library"
	"inkpad/internal/mirror"
	"inkpad/internal/recognize"
	"inkpad/internal/schedule"
	"inkpad/internal/storage"
)

// App owns the application lifecycle: storage, the library session, editing
// sessions, the store watcher, and the maintenance scheduler.
type App struct {
	cfg     *config.Config
	emitter event.Emitter
	rec     recognize.Recognizer

	db        *storage.DB
	Notebooks *storage.NotebookStore
	Notes     *storage.NoteStore
	Tags      *storage.TagStore

	Library *library.Library
	Mirror  *mirror.Engine

	watcher *storeWatcher
	maint   *maintenance
}

// New creates an App. The recognizer is the external OCR collaborator; pass
// recognize.Static{} for headless operation without one.
func New(cfg *config.Config, emitter event.Emitter, rec recognize.Recognizer) *App {
	return &App{cfg: cfg, emitter: emitter, rec: rec}
}

// Startup opens storage and starts the watcher and maintenance jobs.
func (a *App) Startup(ctx context.Context) error {
	db, err := storage.New(a.cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.Notebooks = storage.NewNotebookStore(db)
	a.Notes = storage.NewNoteStore(db)
	a.Tags = storage.NewTagStore(db)

	a.Library = library.New(a.Notebooks, a.Notes, a.Tags, a.rec, a.emitter)
	if err := a.Library.Refresh(ctx); err != nil {
		logrus.Warnf("app: initial refresh: %v", err)
	}

	a.Mirror = mirror.NewEngine(a.Notebooks, a.Notes, a.Tags, a.openMirrors()...)

	a.watcher = newStoreWatcher(a, db.Path())
	if err := a.watcher.Start(ctx); err != nil {
		logrus.Warnf("app: store watcher disabled: %v", err)
	}

	a.maint = newMaintenance(a)
	a.maint.Start(ctx)

	logrus.Infof("app: started with database %s", db.Path())
	return nil
}

// Shutdown stops background work and closes storage.
func (a *App) Shutdown() {
	if a.maint != nil {
		a.maint.Stop()
	}
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.Mirror != nil {
		a.Mirror.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// OpenNote starts an editing session for the note.
func (a *App) OpenNote(ctx context.Context, noteID string) (*editor.Session, error) {
	session := editor.NewSession(
		noteID,
		a.Notes,
		a.Tags,
		a.rec,
		schedule.NewTimerScheduler(),
		a.emitter,
	)
	if err := session.Open(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

// openMirrors builds destinations from config, skipping any that fail to
// connect: a dead mirror must never block local work.
func (a *App) openMirrors() []mirror.Destination {
	var dests []mirror.Destination

	if dsn := a.cfg.Mirror.PostgresDSN; dsn != "" {
		if d, err := mirror.NewPostgres(dsn); err != nil {
			logrus.Warnf("app: postgres mirror unavailable: %v", err)
		} else {
			dests = append(dests, d)
		}
	}
	if dsn := a.cfg.Mirror.MySQLDSN; dsn != "" {
		if d, err := mirror.NewMySQL(dsn); err != nil {
			logrus.Warnf("app: mysql mirror unavailable: %v", err)
		} else {
			dests = append(dests, d)
		}
	}
	if uri := a.cfg.Mirror.MongoURI; uri != "" {
		if d, err := mirror.NewMongo(uri, a.cfg.Mirror.MongoDB); err != nil {
			logrus.Warnf("app: mongo mirror unavailable: %v", err)
		} else {
			dests = append(dests, d)
		}
	}
	return dests
}
