// Package api serves the tracker as a JSON HTTP API under /api.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	gosync "sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/studytrack/internal/ai"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/tracker"
	"github.com/nhle/studytrack/internal/weekly"
)

const shutdownTimeout = 10 * time.Second

// Store is the persistence the API reads and writes directly, beside the
// tracker: AI analyses and weekly summaries.
type Store interface {
	weekly.Store
	GetWeeklySummaries(ctx context.Context) ([]model.WeeklySummary, error)
	SaveAnalysis(ctx context.Context, a model.Analysis) error
	GetLatestAnalysis(ctx context.Context, taskID, analysisType string) (*model.Analysis, error)
}

// Config wires the server's dependencies.
type Config struct {
	Tracker *tracker.Tracker
	Store   Store

	// AI may be nil; AI routes then report a missing API key.
	AI *ai.Client

	// Weekly is built from Store, Tracker and AI when nil.
	Weekly *weekly.Generator

	// Location is the user's timezone for calendar days. Defaults to
	// time.Local.
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time
}

// Server is the HTTP API.
type Server struct {
	tracker *tracker.Tracker
	store   Store
	ai      *ai.Client
	weekly  *weekly.Generator
	loc     *time.Location
	logger  *slog.Logger
	now     func() time.Time
	router  *gin.Engine

	chatMu    gosync.Mutex
	assistant *ai.Assistant
}

// NewServer creates the server and registers its routes.
func NewServer(cfg Config) *Server {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.AI == nil {
		cfg.AI = ai.New(ai.Config{Logger: cfg.Logger})
	}
	if cfg.Weekly == nil {
		cfg.Weekly = weekly.NewGenerator(cfg.Store, cfg.Tracker, cfg.AI, weekly.Options{
			Location: cfg.Location,
			Logger:   cfg.Logger,
			Now:      cfg.Now,
		})
	}

	s := &Server{
		tracker:   cfg.Tracker,
		store:     cfg.Store,
		ai:        cfg.AI,
		weekly:    cfg.Weekly,
		loc:       cfg.Location,
		logger:    cfg.Logger.With("component", "api"),
		now:       cfg.Now,
		assistant: ai.NewAssistant(cfg.AI, cfg.Tracker),
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	s.router = router

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PATCH("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.POST("/tasks/:id/progress", s.handleSetProgress)
		api.POST("/tasks/:id/toggle", s.handleToggle)
		api.POST("/tasks/:id/move", s.handleMove)
		api.PUT("/tasks/:id/tags", s.handleSetTaskTags)
		api.POST("/tasks/:id/subtasks", s.handleAddSubtask)
		api.PUT("/tasks/:id/subtasks/order", s.handleReorderSubtasks)
		api.POST("/tasks/:id/timer/start", s.handleStartTimer)
		api.POST("/tasks/:id/timer/stop", s.handleStopTimer)
		api.GET("/tasks/:id/history", s.handleTaskHistory)
		api.POST("/import", s.handleImport)

		api.PATCH("/subtasks/:id", s.handleRenameSubtask)
		api.POST("/subtasks/:id/toggle", s.handleToggleSubtask)
		api.DELETE("/subtasks/:id", s.handleDeleteSubtask)

		api.GET("/sessions", s.handleListSessions)
		api.GET("/history", s.handleHistory)

		api.GET("/tags", s.handleListTags)
		api.POST("/tags", s.handleCreateTag)
		api.PATCH("/tags/:id", s.handleUpdateTag)
		api.DELETE("/tags/:id", s.handleDeleteTag)

		api.GET("/notes", s.handleListNotes)
		api.POST("/notes", s.handleCreateNote)
		api.GET("/notes/:id", s.handleGetNote)
		api.PATCH("/notes/:id", s.handleUpdateNote)
		api.DELETE("/notes/:id", s.handleDeleteNote)
		api.GET("/folders", s.handleFolders)

		api.GET("/views/board", s.handleBoard)
		api.GET("/views/calendar", s.handleCalendar)
		api.GET("/views/timeline", s.handleTimeline)
		api.GET("/stats", s.handleStats)

		api.GET("/export.json", s.handleExportJSON)
		api.GET("/export.csv", s.handleExportCSV)
		api.GET("/export/archive", s.handleExportArchive)

		api.GET("/summaries/weekly", s.handleListSummaries)
		api.GET("/summaries/weekly/current", s.handleCurrentSummary)
		api.POST("/summaries/weekly", s.handleGenerateSummary)

		api.GET("/ai/analyze/:id", s.handleLatestAnalysis)
		api.POST("/ai/analyze/:id", s.handleAnalyzeTask)
		api.POST("/ai/quiz", s.handleQuiz)
		api.POST("/ai/quiz/score", s.handleQuizScore)
		api.POST("/ai/topic", s.handleTopic)
		api.POST("/ai/chat", s.handleChat)
		api.DELETE("/ai/chat", s.handleResetChat)
	}

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// requestLogger logs one line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}
