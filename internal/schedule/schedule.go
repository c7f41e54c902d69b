// Package schedule runs background jobs, such as the weekly summary, on
// six-field cron specs (seconds first).
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nhle/studytrack/internal/model"
)

const defaultJobTimeout = 2 * time.Minute

var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner. Runs of the same job never overlap.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

// New creates a scheduler evaluating specs in loc.
func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "schedule")
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithParser(parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		timeout: defaultJobTimeout,
	}
}

// LoadLocation resolves a configured timezone name. Empty and "Local"
// select the system zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &model.ValidationError{Field: "summary.timezone", Message: err.Error()}
	}
	return loc, nil
}

// Validate reports whether spec is a valid six-field cron spec.
func Validate(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return &model.ValidationError{Field: "schedule", Message: fmt.Sprintf("invalid cron spec %q: %v", spec, err)}
	}
	return nil
}

// Next returns the first activation of spec after from.
func Next(spec string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(spec)
	if err != nil {
		return time.Time{}, &model.ValidationError{Field: "schedule", Message: fmt.Sprintf("invalid cron spec %q: %v", spec, err)}
	}
	return sched.Next(from), nil
}

// Add registers job under name. Each run gets its own timeout and its
// error is logged rather than returned.
func (s *Scheduler) Add(name, spec string, job Job) (cron.EntryID, error) {
	if err := Validate(spec); err != nil {
		return 0, err
	}
	id, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		s.logger.Info("scheduled job finished", "job", name, "elapsed", time.Since(start))
	})
	if err != nil {
		return 0, fmt.Errorf("scheduling %s: %w", name, err)
	}
	s.logger.Debug("job scheduled", "job", name, "spec", spec)
	return id, nil
}

// NextRun returns the next activation of a registered job, or the zero
// time when the scheduler is not running.
func (s *Scheduler) NextRun(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
