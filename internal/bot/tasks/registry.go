package tasks

import (
	"context"
)

// ScheduledTaskFunc is the signature of every maintenance task. The context
// is cancelled when the coordinator stops.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns the tasks keyed by the name used in the
// scheduler.tasks configuration section.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		sqlMaintenance: newSQLMaintenanceTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
