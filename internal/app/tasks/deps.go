// Package tasks implements the scheduled maintenance tasks for Scout:
// conversation retention, rate-limit window resets, and SQLite upkeep.
package tasks

import (
	"log/slog"

	"github.com/nycscout/scout/internal/config"
	"github.com/nycscout/scout/internal/database"
)

// TaskDeps contains the dependencies shared by all scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
}
