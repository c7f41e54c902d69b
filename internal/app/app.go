// Package app assembles the running application from its configuration:
// the user-scoped store, the tracker and its background refresher, the AI
// client, the weekly summary job and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nhle/studytrack/internal/ai"
	"github.com/nhle/studytrack/internal/api"
	"github.com/nhle/studytrack/internal/credential"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/rules"
	"github.com/nhle/studytrack/internal/schedule"
	"github.com/nhle/studytrack/internal/store"
	appsync "github.com/nhle/studytrack/internal/sync"
	"github.com/nhle/studytrack/internal/tracker"
	"github.com/nhle/studytrack/internal/weekly"
)

const weeklySummaryJob = "weekly-summary"

// Options carries what the caller decides outside the config file.
type Options struct {
	// Vault supplies the AI key when STUDYTRACK_AI_KEY is unset. May be nil.
	Vault  *credential.Vault
	Logger *slog.Logger
}

// App holds the wired components.
type App struct {
	Config   *model.AppConfig
	Location *time.Location
	Store    *store.SQLiteStore
	Tracker  *tracker.Tracker
	AI       *ai.Client
	Weekly   *weekly.Generator

	logger    *slog.Logger
	db        *store.SQLiteStore
	refresher *appsync.Refresher
	scheduler *schedule.Scheduler
}

// Open opens the database and builds every component. Nothing runs in the
// background until Start.
func Open(cfg *model.AppConfig, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := schedule.LoadLocation(cfg.Summary.Timezone)
	if err != nil {
		return nil, err
	}

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	userStore := db.ForUser(cfg.Profile.UserID)

	policy := rules.KeepProgress
	if cfg.Tasks.UncheckResetsProgress {
		policy = rules.ResetProgress
	}
	tr := tracker.New(userStore, tracker.Options{UncheckPolicy: policy, Logger: logger})

	client := ai.New(ai.Config{
		APIKey:  loadAIKey(opts.Vault, logger),
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: time.Duration(cfg.AI.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	return &App{
		Config:   cfg,
		Location: loc,
		Store:    userStore,
		Tracker:  tr,
		AI:       client,
		Weekly: weekly.NewGenerator(userStore, tr, client, weekly.Options{
			Location: loc,
			Logger:   logger,
		}),
		logger: logger.With("component", "app"),
		db:     db,
	}, nil
}

// loadAIKey reads the AI key from the environment or the keyring. A missing
// key is not fatal; AI calls then fail with ai.ErrNoAPIKey.
func loadAIKey(vault *credential.Vault, logger *slog.Logger) string {
	key, err := vault.AIKey()
	if err != nil {
		if !errors.Is(err, credential.ErrNotSet) {
			logger.Warn("reading AI key failed", "error", err)
		}
		return ""
	}
	return key
}

// Start launches the background refresher and, when a schedule is
// configured, the weekly summary job.
func (a *App) Start() error {
	a.refresher = appsync.NewRefresher(
		a.Tracker.Cache(),
		a.Tracker.Aggregator(),
		time.Duration(a.Config.Sync.PollIntervalSec)*time.Second,
		a.logger,
	)
	a.refresher.Watch(a.Store, a.Store.UserID())
	a.refresher.Start()

	if a.Config.Summary.Schedule == "" {
		a.logger.Info("weekly summary schedule disabled")
		return nil
	}
	a.scheduler = schedule.New(a.Location, a.logger)
	id, err := a.scheduler.Add(weeklySummaryJob, a.Config.Summary.Schedule, schedule.WeeklySummaryJob(a.Weekly))
	if err != nil {
		a.refresher.Stop()
		return fmt.Errorf("scheduling weekly summary: %w", err)
	}
	a.scheduler.Start()
	a.logger.Info("weekly summary scheduled", "next", a.scheduler.NextRun(id))
	return nil
}

// SyncStatus reports the background refresher state. It is the zero
// Status before Start.
func (a *App) SyncStatus() appsync.Status {
	if a.refresher == nil {
		return appsync.Status{}
	}
	return a.refresher.Status()
}

// Server builds the HTTP API over the app's components.
func (a *App) Server() *api.Server {
	return api.NewServer(api.Config{
		Tracker:  a.Tracker,
		Store:    a.Store,
		AI:       a.AI,
		Weekly:   a.Weekly,
		Location: a.Location,
		Logger:   a.logger,
	})
}

// Serve runs the HTTP API on the configured address until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	return a.Server().Run(ctx, a.Config.Server.Addr)
}

// Close stops background work and closes the database.
func (a *App) Close() error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.refresher != nil {
		a.refresher.Stop()
	}
	return a.db.Close()
}
