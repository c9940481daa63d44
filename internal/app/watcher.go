package app

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"inkpad/internal/schedule"
)

// storeWatcher watches the database files for writes this process did not
// make (background device sync lands out-of-process) and refreshes the
// library when one settles. Local writes also trip it; the refresh is cheap
// and idempotent, so no attempt is made to tell them apart.
type storeWatcher struct {
	app      *App
	dbPath   string
	watcher  *fsnotify.Watcher
	coalesce *schedule.TimerScheduler
	cancel   context.CancelFunc
}

const watchCoalesce = 500 * time.Millisecond

func newStoreWatcher(app *App, dbPath string) *storeWatcher {
	return &storeWatcher{app: app, dbPath: dbPath, coalesce: schedule.NewTimerScheduler()}
}

// Start begins watching the database directory. fsnotify watches the
// directory rather than the file so WAL rotation does not drop the watch.
func (w *storeWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.dbPath)); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.loop(watchCtx)
	return nil
}

func (w *storeWatcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.coalesce.Stop()
}

func (w *storeWatcher) loop(ctx context.Context) {
	base := filepath.Base(w.dbPath)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			// Bursts of WAL writes collapse into one refresh.
			w.coalesce.Schedule("store:changed", watchCoalesce, func() {
				logrus.Debug("watcher: store changed, refreshing library")
				w.app.emitter.Emit(ctx, "store:changed", nil)
				if err := w.app.Library.Refresh(ctx); err != nil {
					logrus.Warnf("watcher: refresh failed: %v", err)
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logrus.Warnf("watcher: %v", err)
		}
	}
}
