package tasks

import (
	"context"
	"fmt"
)

const sqlMaintenance = "sql_maintenance"

// newSQLMaintenanceTask compacts the standup database. A run that starts
// while the coordinator is stopping is skipped. Failures are returned to the
// coordinator, which logs them.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", sqlMaintenance)

	return func(ctx context.Context) error {
		if ctx.Err() != nil {
			log.InfoContext(ctx, "Skipping VACUUM, coordinator is stopping")
			return nil
		}

		start := deps.clock().Now()
		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			return fmt.Errorf("vacuum of standup database failed after %s: %w", deps.clock().Since(start), err)
		}

		log.InfoContext(ctx, "Standup database compacted", "took", deps.clock().Since(start))
		return nil
	}
}
