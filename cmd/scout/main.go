// Package main contains the entrypoint for the Scout concierge service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nycscout/scout/internal/app"
	"github.com/nycscout/scout/internal/app/tasks"
	"github.com/nycscout/scout/internal/compose"
	"github.com/nycscout/scout/internal/config"
	"github.com/nycscout/scout/internal/database"
	"github.com/nycscout/scout/internal/gemini"
	"github.com/nycscout/scout/internal/instagram"
	"github.com/nycscout/scout/internal/logger"
	"github.com/nycscout/scout/internal/patterns"
	"github.com/nycscout/scout/internal/processor"
	"github.com/nycscout/scout/internal/ratelimit"
	"github.com/nycscout/scout/internal/recommend"
	"github.com/nycscout/scout/internal/webhook"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all components, starts the application, and returns an exit
// code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	aiClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	igClient := instagram.NewClient(cfg.Instagram, log)
	dispatcher := instagram.NewDispatcher(igClient, log, cfg.Instagram)

	proc := processor.New(processor.Deps{
		Logger:     log,
		Store:      store,
		AI:         aiClient,
		Limiter:    ratelimit.NewLimiter(store, log, cfg.RateLimit),
		Engine:     recommend.NewEngine(store, log, cfg.Recommend),
		Composer:   compose.NewComposer(aiClient, log, cfg.Messages),
		Tracker:    patterns.NewTracker(store, log),
		Dispatcher: dispatcher,
		Messages:   cfg.Messages,
	})

	handler := webhook.NewHandler(ctx, cfg.Server, proc, log)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Router(log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}
	sched, err := app.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	application := app.New(log, server, sched, cfg.Server.ShutdownTimeout)

	log.Info("Starting Scout...")
	runErr := application.Run(ctx)
	log.Info("Run loop finished, shutting down")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Stopped gracefully")
	time.Sleep(time.Second)
	return 0
}
