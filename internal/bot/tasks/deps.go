// Package tasks implements the named maintenance tasks run by the
// coordinator's scheduler next to the standup triggers.
package tasks

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"
)

// MaintenanceStore is the persistence the maintenance tasks need.
type MaintenanceStore interface {
	RunSQLMaintenance(ctx context.Context) error
}

// TaskDeps contains all dependencies required by scheduled tasks. A nil
// Clock means the wall clock.
type TaskDeps struct {
	Logger *slog.Logger
	Store  MaintenanceStore
	Clock  clockwork.Clock
}

func (d TaskDeps) clock() clockwork.Clock {
	if d.Clock == nil {
		return clockwork.NewRealClock()
	}
	return d.Clock
}
