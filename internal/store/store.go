package store

import (
	"context"
	"time"

	"github.com/nhle/studytrack/internal/model"
)

// Store defines the persistence interface for a single user's tasks and
// their associated entities. Every method returns model.ErrAuthRequired
// when the store is not scoped to a user, and wraps model.ErrNotFound when
// a targeted row does not exist.
type Store interface {
	// === Tasks ===

	CreateTask(ctx context.Context, task model.Task, tagIDs ...string) error
	UpdateTask(ctx context.Context, task model.Task, tagIDs []string) (completedNow bool, err error)
	UpdateTaskState(ctx context.Context, id string, progress int, completed bool) (completedNow bool, err error)
	DeleteTask(ctx context.Context, id string) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	GetTasks(ctx context.Context) ([]model.Task, error)

	// === Tags ===

	CreateTag(ctx context.Context, tag model.Tag) error
	UpdateTag(ctx context.Context, tag model.Tag) error
	DeleteTag(ctx context.Context, id string) error
	GetTags(ctx context.Context) ([]model.Tag, error)
	SetTaskTags(ctx context.Context, taskID string, tagIDs []string) error
	GetTagsForTasks(ctx context.Context, taskIDs []string) (map[string][]model.Tag, error)

	// === Subtasks ===

	AddSubtask(ctx context.Context, sub model.Subtask) (model.Subtask, error)
	UpdateSubtask(ctx context.Context, sub model.Subtask) error
	DeleteSubtask(ctx context.Context, id string) error
	GetSubtask(ctx context.Context, id string) (*model.Subtask, error)
	ReorderSubtasks(ctx context.Context, taskID string, orderedIDs []string) error
	GetSubtasksForTasks(ctx context.Context, taskIDs []string) (map[string][]model.Subtask, error)

	// === Time sessions ===

	CreateSession(ctx context.Context, session model.TimeSession) (model.TimeSession, error)
	CloseSession(ctx context.Context, id string, end time.Time, durationSeconds int64) error
	GetSession(ctx context.Context, id string) (*model.TimeSession, error)
	GetOpenSession(ctx context.Context, taskID string) (*model.TimeSession, error)
	GetSessionsForTasks(ctx context.Context, taskIDs []string) ([]model.TimeSession, error)
	GetSessions(ctx context.Context) ([]model.TimeSession, error)

	// === Notes ===

	CreateNote(ctx context.Context, note model.Note) error
	UpdateNote(ctx context.Context, note model.Note) error
	DeleteNote(ctx context.Context, id string) error
	GetNoteByID(ctx context.Context, id string) (*model.Note, error)
	GetNotes(ctx context.Context, folder string) ([]model.Note, error)

	// === Completion history, summaries, analyses ===

	AppendCompletion(ctx context.Context, rec model.CompletionRecord) error
	GetCompletionHistory(ctx context.Context, title string, limit int) ([]model.CompletionRecord, error)
	GetWeeklySummary(ctx context.Context, weekStart, weekEnd time.Time) (*model.WeeklySummary, error)
	CreateWeeklySummary(ctx context.Context, ws model.WeeklySummary) (model.WeeklySummary, error)
	GetWeeklySummaries(ctx context.Context) ([]model.WeeklySummary, error)
	SaveAnalysis(ctx context.Context, a model.Analysis) error
	GetLatestAnalysis(ctx context.Context, taskID, analysisType string) (*model.Analysis, error)

	// === Change feed ===

	Subscribe(fn func(Change)) func()
}

var _ Store = (*SQLiteStore)(nil)
