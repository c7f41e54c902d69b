// Package tracker is the mutation façade over the data gateway. Every write
// goes through the derived-state rules, patches the in-memory cache, and
// re-runs the aggregator so the optimistic and the reloaded state converge.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nhle/studytrack/internal/aggregate"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/rules"
	"github.com/nhle/studytrack/internal/sync"
)

// Gateway is the subset of the data gateway the tracker writes through.
type Gateway interface {
	aggregate.Source

	CreateTask(ctx context.Context, task model.Task, tagIDs ...string) error
	UpdateTask(ctx context.Context, task model.Task, tagIDs []string) (completedNow bool, err error)
	UpdateTaskState(ctx context.Context, id string, progress int, completed bool) (completedNow bool, err error)
	DeleteTask(ctx context.Context, id string) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)

	CreateTag(ctx context.Context, tag model.Tag) error
	UpdateTag(ctx context.Context, tag model.Tag) error
	DeleteTag(ctx context.Context, id string) error
	GetTags(ctx context.Context) ([]model.Tag, error)
	SetTaskTags(ctx context.Context, taskID string, tagIDs []string) error

	AddSubtask(ctx context.Context, sub model.Subtask) (model.Subtask, error)
	UpdateSubtask(ctx context.Context, sub model.Subtask) error
	DeleteSubtask(ctx context.Context, id string) error
	GetSubtask(ctx context.Context, id string) (*model.Subtask, error)
	ReorderSubtasks(ctx context.Context, taskID string, orderedIDs []string) error

	CreateSession(ctx context.Context, session model.TimeSession) (model.TimeSession, error)
	CloseSession(ctx context.Context, id string, end time.Time, durationSeconds int64) error
	GetSession(ctx context.Context, id string) (*model.TimeSession, error)
	GetOpenSession(ctx context.Context, taskID string) (*model.TimeSession, error)
	GetSessions(ctx context.Context) ([]model.TimeSession, error)

	CreateNote(ctx context.Context, note model.Note) error
	UpdateNote(ctx context.Context, note model.Note) error
	DeleteNote(ctx context.Context, id string) error
	GetNoteByID(ctx context.Context, id string) (*model.Note, error)
	GetNotes(ctx context.Context, folder string) ([]model.Note, error)

	AppendCompletion(ctx context.Context, rec model.CompletionRecord) error
	GetCompletionHistory(ctx context.Context, title string, limit int) ([]model.CompletionRecord, error)
}

// Options configures a Tracker.
type Options struct {
	// UncheckPolicy decides what un-completing a task does to its progress.
	UncheckPolicy rules.UncheckPolicy

	// Cache receives the aggregated list. A new one is created when nil.
	Cache *sync.Cache

	Logger *slog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Tracker is the mutation façade.
type Tracker struct {
	gw     Gateway
	agg    *aggregate.Aggregator
	cache  *sync.Cache
	policy rules.UncheckPolicy
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Tracker writing through gw.
func New(gw Gateway, opts Options) *Tracker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cache := opts.Cache
	if cache == nil {
		cache = sync.NewCache()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		gw:     gw,
		agg:    aggregate.New(gw, logger),
		cache:  cache,
		policy: opts.UncheckPolicy,
		logger: logger.With("component", "tracker"),
		now:    now,
	}
}

// Aggregator returns the aggregator the tracker refreshes with, so a
// background refresher can share it.
func (t *Tracker) Aggregator() *aggregate.Aggregator {
	return t.agg
}

// Cache returns the cache the tracker maintains.
func (t *Tracker) Cache() *sync.Cache {
	return t.cache
}

// Refresh re-runs the aggregator under a fenced request token. A result
// superseded by a newer request is dropped silently.
func (t *Tracker) Refresh(ctx context.Context) error {
	committed, err := t.cache.Load(ctx, t.agg)
	if err != nil {
		return err
	}
	if !committed {
		t.logger.Debug("refresh superseded")
	}
	return nil
}

// Snapshot returns the latest cache generation without touching the gateway.
func (t *Tracker) Snapshot() sync.Snapshot {
	return t.cache.Snapshot()
}

// Tasks returns the aggregated task list, loading it first if the cache
// has never been loaded.
func (t *Tracker) Tasks(ctx context.Context) ([]model.Task, error) {
	snap := t.cache.Snapshot()
	if !snap.LoadedAt.IsZero() {
		return snap.Tasks, nil
	}
	if err := t.Refresh(ctx); err != nil {
		return nil, err
	}
	return t.cache.Snapshot().Tasks, nil
}

// Task returns one aggregated task.
func (t *Tracker) Task(ctx context.Context, id string) (model.Task, error) {
	if _, err := t.Tasks(ctx); err != nil {
		return model.Task{}, err
	}
	if task, ok := t.cache.Get(id); ok {
		return task, nil
	}
	// The cache may lag behind a write made elsewhere.
	if err := t.Refresh(ctx); err != nil {
		return model.Task{}, err
	}
	if task, ok := t.cache.Get(id); ok {
		return task, nil
	}
	return model.Task{}, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
}

// resync refreshes after a successful write. The write already landed, so
// a failed refresh only leaves the optimistic state in place.
func (t *Tracker) resync(ctx context.Context) {
	if err := t.Refresh(ctx); err != nil {
		t.logger.Warn("refresh after write failed", "error", err)
	}
}
