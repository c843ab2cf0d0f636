package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/nycscout/scout/internal/app/tasks"
	"github.com/nycscout/scout/internal/config"
)

// Scheduler manages the scheduled maintenance tasks using gocron.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a scheduler over the given task registry.
func NewScheduler(logger *slog.Logger, cfg *config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    logger.With("component", "scheduler"),
		cfg:       cfg,
		taskMap:   taskMap,
	}, nil
}

// Start schedules every enabled, registered task and starts the ticker.
// Misconfigured tasks are skipped with a warning rather than failing startup.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	scheduled := 0
	if s.cfg != nil {
		for name, taskCfg := range s.cfg.Tasks {
			if !taskCfg.Enabled {
				s.logger.Info("Skipping disabled task", "task_name", name)
				continue
			}

			taskFunc, exists := s.taskMap[name]
			if !exists {
				s.logger.Warn("Scheduled task configured but not registered, skipping", "task_name", name)
				continue
			}
			if taskCfg.Schedule == "" {
				s.logger.Warn("Scheduled task enabled with empty schedule, skipping", "task_name", name)
				continue
			}

			_, err := s.scheduler.NewJob(
				gocron.CronJob(taskCfg.Schedule, true),
				gocron.NewTask(s.wrapTask(name, taskFunc), context.Background()),
				gocron.WithName(name),
			)
			if err != nil {
				s.logger.Error("Failed to schedule task",
					"task_name", name, "schedule", taskCfg.Schedule, "error", err)
				continue
			}

			s.logger.Info("Scheduled task", "task_name", name, "schedule", taskCfg.Schedule)
			scheduled++
		}
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks_scheduled", scheduled)
	return nil
}

// wrapTask adds start/finish logging around one task execution.
func (s *Scheduler) wrapTask(name string, taskFunc tasks.ScheduledTaskFunc) func(ctx context.Context) {
	return func(ctx context.Context) {
		s.logger.Info("Running scheduled task", "task_name", name)
		start := time.Now()
		if err := taskFunc(ctx); err != nil {
			s.logger.Error("Scheduled task failed", "task_name", name, "error", err)
		}
		s.logger.Info("Finished scheduled task", "task_name", name, "duration", time.Since(start))
	}
}

// Stop shuts the scheduler down, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	err := s.scheduler.Shutdown()
	s.running = false
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
		return err
	}

	s.logger.Info("Scheduler stopped gracefully")
	return nil
}
