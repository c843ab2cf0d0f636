package tasks

import "context"

// ScheduledTaskFunc is the signature every scheduled task implements. The
// context comes from the scheduler and should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns the task registry. The map keys match the task
// names used in the scheduler configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		"conversation_retention": newConversationRetentionTask(deps),
		"ratelimit_reset":        newRateLimitResetTask(deps),
		"sql_maintenance":        newSQLMaintenanceTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
