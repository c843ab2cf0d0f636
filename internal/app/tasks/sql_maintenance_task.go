package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask creates the task that runs periodic SQLite
// maintenance.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting SQL maintenance task")
		start := time.Now()

		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance task failed", "error", err, "duration", time.Since(start))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "SQL maintenance task completed", "duration", time.Since(start))
		return nil
	}
}
