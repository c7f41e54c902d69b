package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/studytrack/internal/model"
)

const subtaskColumns = "id, task_id, title, completed, order_index, created_at"

// AddSubtask appends a subtask to its task. A zero OrderIndex is replaced by
// one past the current maximum. The stored subtask is returned.
func (s *SQLiteStore) AddSubtask(ctx context.Context, sub model.Subtask) (model.Subtask, error) {
	userID, err := s.owner()
	if err != nil {
		return model.Subtask{}, err
	}
	if strings.TrimSpace(sub.Title) == "" {
		return model.Subtask{}, &model.ValidationError{Field: "title", Message: "must not be empty"}
	}
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	sub.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Subtask{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var owned int
	if err := tx.GetContext(ctx, &owned,
		"SELECT COUNT(*) FROM tasks WHERE id = ? AND user_id = ?", sub.TaskID, userID); err != nil {
		return model.Subtask{}, fmt.Errorf("checking task %s: %w", sub.TaskID, err)
	}
	if owned == 0 {
		return model.Subtask{}, fmt.Errorf("task %s: %w", sub.TaskID, model.ErrNotFound)
	}

	if sub.OrderIndex == 0 {
		var maxOrder int
		err := tx.GetContext(ctx, &maxOrder,
			"SELECT COALESCE(MAX(order_index), 0) FROM subtasks WHERE task_id = ?",
			sub.TaskID)
		if err != nil {
			return model.Subtask{}, fmt.Errorf("getting max subtask order_index: %w", err)
		}
		sub.OrderIndex = maxOrder + 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO subtasks (id, task_id, user_id, title, completed, order_index, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.TaskID, userID, strings.TrimSpace(sub.Title),
		boolToInt(sub.Completed), sub.OrderIndex, sub.CreatedAt,
	)
	if err != nil {
		return model.Subtask{}, fmt.Errorf("adding subtask: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Subtask{}, fmt.Errorf("committing subtask: %w", err)
	}

	sub.Title = strings.TrimSpace(sub.Title)
	s.notify("subtasks", OpInsert, sub.ID)
	return sub, nil
}

// UpdateSubtask updates the title and completed state of a subtask.
func (s *SQLiteStore) UpdateSubtask(ctx context.Context, sub model.Subtask) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}
	if strings.TrimSpace(sub.Title) == "" {
		return &model.ValidationError{Field: "title", Message: "must not be empty"}
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE subtasks SET title = ?, completed = ? WHERE id = ? AND user_id = ?",
		strings.TrimSpace(sub.Title), boolToInt(sub.Completed), sub.ID, userID,
	)
	if err != nil {
		return fmt.Errorf("updating subtask %s: %w", sub.ID, err)
	}
	if err := notFound(result, "subtask", sub.ID); err != nil {
		return err
	}

	s.notify("subtasks", OpUpdate, sub.ID)
	return nil
}

// DeleteSubtask removes a subtask by ID.
func (s *SQLiteStore) DeleteSubtask(ctx context.Context, id string) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM subtasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting subtask %s: %w", id, err)
	}
	if err := notFound(result, "subtask", id); err != nil {
		return err
	}

	s.notify("subtasks", OpDelete, id)
	return nil
}

// GetSubtask returns a single subtask.
func (s *SQLiteStore) GetSubtask(ctx context.Context, id string) (*model.Subtask, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}

	var sub model.Subtask
	err = s.db.GetContext(ctx, &sub,
		"SELECT "+subtaskColumns+" FROM subtasks WHERE id = ? AND user_id = ?", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subtask %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying subtask %s: %w", id, err)
	}
	return &sub, nil
}

// ReorderSubtasks assigns order_index 1..n to orderedIDs. The list must name
// every subtask of the task exactly once.
func (s *SQLiteStore) ReorderSubtasks(
	ctx context.Context,
	taskID string,
	orderedIDs []string,
) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing []string
	if err := tx.SelectContext(ctx, &existing,
		"SELECT id FROM subtasks WHERE task_id = ? AND user_id = ?", taskID, userID); err != nil {
		return fmt.Errorf("querying subtasks of task %s: %w", taskID, err)
	}
	if !sameSet(existing, orderedIDs) {
		return &model.ValidationError{
			Field:   "order",
			Message: fmt.Sprintf("must list each of the %d subtasks exactly once", len(existing)),
		}
	}

	// Move every row out of the way first so UNIQUE(task_id, order_index)
	// holds between statements.
	for i, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx,
			"UPDATE subtasks SET order_index = ? WHERE id = ?", -(i + 1), id); err != nil {
			return fmt.Errorf("reordering subtask %s: %w", id, err)
		}
	}
	for i, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx,
			"UPDATE subtasks SET order_index = ? WHERE id = ?", i+1, id); err != nil {
			return fmt.Errorf("reordering subtask %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing subtask order: %w", err)
	}

	s.notify("subtasks", OpUpdate, taskID)
	return nil
}

// GetSubtasksForTasks fetches the subtasks of each of taskIDs in one query,
// ordered by order_index.
func (s *SQLiteStore) GetSubtasksForTasks(
	ctx context.Context,
	taskIDs []string,
) (map[string][]model.Subtask, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]model.Subtask)
	if len(taskIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(
		"SELECT "+subtaskColumns+" FROM subtasks WHERE user_id = ? AND task_id IN (?) ORDER BY task_id, order_index",
		userID, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("building subtask query: %w", err)
	}

	var subs []model.Subtask
	if err := s.db.SelectContext(ctx, &subs, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying subtasks for tasks: %w", err)
	}
	for _, sub := range subs {
		out[sub.TaskID] = append(out[sub.TaskID], sub)
	}
	return out, nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, id := range a {
		counts[id]++
	}
	for _, id := range b {
		counts[id]--
		if counts[id] < 0 {
			return false
		}
	}
	return true
}
