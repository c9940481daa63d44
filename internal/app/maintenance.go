package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// maintenance runs the periodic jobs: orphan-tag pruning and mirror pushes.
// Both are background chores that never touch the editing hot path.
type maintenance struct {
	app  *App
	cron *cron.Cron
}

func newMaintenance(app *App) *maintenance {
	return &maintenance{app: app}
}

func (m *maintenance) Start(ctx context.Context) {
	c := cron.New()

	if expr := m.app.cfg.Maintenance.TagPruneSchedule; expr != "" {
		_, err := c.AddFunc(expr, func() {
			pruned, err := m.app.Tags.PruneOrphanTags()
			if err != nil {
				logrus.Warnf("maintenance: tag prune failed: %v", err)
				return
			}
			if pruned > 0 {
				logrus.Infof("maintenance: pruned %d orphan tag(s)", pruned)
				m.app.emitter.Emit(ctx, "tags:pruned", pruned)
			}
		})
		if err != nil {
			logrus.Warnf("maintenance: invalid tag prune schedule %q: %v", expr, err)
		}
	}

	if expr := m.app.cfg.Mirror.Schedule; expr != "" && m.app.Mirror.Destinations() > 0 {
		_, err := c.AddFunc(expr, func() {
			if _, err := m.app.Mirror.Run(ctx); err != nil {
				logrus.Warnf("maintenance: mirror run failed: %v", err)
			}
		})
		if err != nil {
			logrus.Warnf("maintenance: invalid mirror schedule %q: %v", expr, err)
		}
	}

	c.Start()
	m.cron = c
}

func (m *maintenance) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
}
