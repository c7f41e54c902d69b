package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/studytrack/internal/model"
)

const taskColumns = `id, title, description, category, priority, progress, completed,
	created_at, updated_at, due_date, estimated_time, notes,
	recurring_type, recurring_end_date`

// CreateTask inserts a new task row and links it to tagIDs in one
// transaction; an unknown tag leaves nothing behind. The ID is generated if
// empty and CreatedAt defaults to now. Derived fields are ignored.
func (s *SQLiteStore) CreateTask(ctx context.Context, task model.Task, tagIDs ...string) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if task.RecurringType == "" {
		task.RecurringType = model.RecurringNone
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (
			id, user_id, title, description, category, priority,
			progress, completed, created_at, updated_at,
			due_date, estimated_time, notes, recurring_type, recurring_end_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, userID, task.Title, task.Description,
		string(task.Category), string(task.Priority),
		task.Progress, boolToInt(task.Completed),
		task.CreatedAt.UTC(), task.UpdatedAt,
		utcPtr(task.DueDate), task.EstimatedTime, task.Notes,
		string(task.RecurringType), utcPtr(task.RecurringEndDate),
	)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	if len(tagIDs) > 0 {
		if err := linkTags(ctx, tx, userID, task.ID, tagIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing task %s: %w", task.ID, err)
	}

	s.notify("tasks", OpInsert, task.ID)
	return nil
}

// UpdateTask writes every user-editable column of an existing task.
// id, user_id and created_at are never changed. A non-nil tagIDs replaces
// the task's tags in the same transaction; nil leaves them alone.
// completedNow reports whether this write flipped the stored row from not
// completed to completed.
func (s *SQLiteStore) UpdateTask(ctx context.Context, task model.Task, tagIDs []string) (completedNow bool, err error) {
	userID, err := s.owner()
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	wasCompleted, err := storedCompleted(ctx, tx, userID, task.ID)
	if err != nil {
		return false, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, category = ?, priority = ?,
			progress = ?, completed = ?, updated_at = ?,
			due_date = ?, estimated_time = ?, notes = ?,
			recurring_type = ?, recurring_end_date = ?
		WHERE id = ? AND user_id = ?`,
		task.Title, task.Description, string(task.Category), string(task.Priority),
		task.Progress, boolToInt(task.Completed), time.Now().UTC(),
		utcPtr(task.DueDate), task.EstimatedTime, task.Notes,
		string(task.RecurringType), utcPtr(task.RecurringEndDate),
		task.ID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("updating task %s: %w", task.ID, err)
	}
	if tagIDs != nil {
		if err := linkTags(ctx, tx, userID, task.ID, tagIDs); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing task %s: %w", task.ID, err)
	}

	s.notify("tasks", OpUpdate, task.ID)
	return !wasCompleted && task.Completed, nil
}

// UpdateTaskState writes only the progress and completed columns.
// completedNow reports whether this write flipped the stored row from not
// completed to completed.
func (s *SQLiteStore) UpdateTaskState(
	ctx context.Context,
	id string,
	progress int,
	completed bool,
) (completedNow bool, err error) {
	userID, err := s.owner()
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	wasCompleted, err := storedCompleted(ctx, tx, userID, id)
	if err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE tasks SET progress = ?, completed = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		progress, boolToInt(completed), time.Now().UTC(), id, userID,
	); err != nil {
		return false, fmt.Errorf("updating state of task %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing state of task %s: %w", id, err)
	}

	s.notify("tasks", OpUpdate, id)
	return !wasCompleted && completed, nil
}

// storedCompleted reads the completed column of a task inside tx.
func storedCompleted(ctx context.Context, tx *sqlx.Tx, userID, id string) (bool, error) {
	var completed bool
	err := tx.GetContext(ctx, &completed,
		"SELECT completed FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("reading task %s: %w", id, err)
	}
	return completed, nil
}

// DeleteTask removes a task. CASCADE removes its tag links, subtasks and
// time sessions; attached notes are detached.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	if err := notFound(result, "task", id); err != nil {
		return err
	}

	s.notify("tasks", OpDelete, id)
	return nil
}

// GetTaskByID returns a single task row without derived fields.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}

	var task model.Task
	err = s.db.GetContext(ctx, &task,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying task %s: %w", id, err)
	}
	return &task, nil
}

// GetTasks returns every task row of the user, newest first, without
// derived fields.
func (s *SQLiteStore) GetTasks(ctx context.Context) ([]model.Task, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}

	tasks := []model.Task{}
	err = s.db.SelectContext(ctx, &tasks,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}
