package tasks

import (
	"context"
	"fmt"
	"time"
)

// newConversationRetentionTask creates the task that prunes conversation log
// entries older than the configured retention period.
func newConversationRetentionTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "conversation_retention")
	retentionDays := deps.Config.Retention.ConversationDays

	return func(ctx context.Context) error {
		cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
		log.InfoContext(ctx, "Starting conversation retention task", "cutoff", cutoff)

		deleted, err := deps.Store.DeleteConversationsBefore(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Conversation retention task failed", "error", err)
			return fmt.Errorf("conversation retention failed: %w", err)
		}

		log.InfoContext(ctx, "Conversation retention task completed", "deleted", deleted)
		return nil
	}
}
