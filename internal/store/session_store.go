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

const sessionColumns = "id, task_id, start_time, end_time, duration_seconds, notes, created_at"

// CreateSession opens a time session for a task.
func (s *SQLiteStore) CreateSession(ctx context.Context, session model.TimeSession) (model.TimeSession, error) {
	userID, err := s.owner()
	if err != nil {
		return model.TimeSession{}, err
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if session.StartTime.IsZero() {
		session.StartTime = now
	}
	session.CreatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_time_sessions (
			id, task_id, user_id, start_time, end_time, duration_seconds, notes, created_at
		)
		SELECT ?, id, user_id, ?, ?, ?, ?, ? FROM tasks WHERE id = ? AND user_id = ?`,
		session.ID, session.StartTime.UTC(), utcPtr(session.EndTime), session.DurationSeconds,
		session.Notes, session.CreatedAt, session.TaskID, userID,
	)
	if err != nil {
		return model.TimeSession{}, fmt.Errorf("creating time session: %w", err)
	}

	var created model.TimeSession
	err = s.db.GetContext(ctx, &created,
		"SELECT "+sessionColumns+" FROM task_time_sessions WHERE id = ? AND user_id = ?",
		session.ID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TimeSession{}, fmt.Errorf("task %s: %w", session.TaskID, model.ErrNotFound)
	}
	if err != nil {
		return model.TimeSession{}, fmt.Errorf("reading time session %s: %w", session.ID, err)
	}

	s.notify("task_time_sessions", OpInsert, created.ID)
	return created, nil
}

// CloseSession records the end time and duration of an open session.
// Closing an already closed session is a not-found error.
func (s *SQLiteStore) CloseSession(
	ctx context.Context,
	id string,
	end time.Time,
	durationSeconds int64,
) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE task_time_sessions SET end_time = ?, duration_seconds = ?
		WHERE id = ? AND user_id = ? AND end_time IS NULL`,
		end.UTC(), durationSeconds, id, userID,
	)
	if err != nil {
		return fmt.Errorf("closing time session %s: %w", id, err)
	}
	if err := notFound(result, "open time session", id); err != nil {
		return err
	}

	s.notify("task_time_sessions", OpUpdate, id)
	return nil
}

// GetSession returns a single time session.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.TimeSession, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}

	var session model.TimeSession
	err = s.db.GetContext(ctx, &session,
		"SELECT "+sessionColumns+" FROM task_time_sessions WHERE id = ? AND user_id = ?", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("time session %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying time session %s: %w", id, err)
	}
	return &session, nil
}

// GetOpenSession returns the running session of a task, or nil if the
// timer is not running.
func (s *SQLiteStore) GetOpenSession(ctx context.Context, taskID string) (*model.TimeSession, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}

	var session model.TimeSession
	err = s.db.GetContext(ctx, &session, `
		SELECT `+sessionColumns+` FROM task_time_sessions
		WHERE task_id = ? AND user_id = ? AND end_time IS NULL
		ORDER BY start_time DESC LIMIT 1`, taskID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying open session of task %s: %w", taskID, err)
	}
	return &session, nil
}

// GetSessionsForTasks fetches every session of taskIDs in one query.
func (s *SQLiteStore) GetSessionsForTasks(
	ctx context.Context,
	taskIDs []string,
) ([]model.TimeSession, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}
	if len(taskIDs) == 0 {
		return []model.TimeSession{}, nil
	}

	query, args, err := sqlx.In(
		"SELECT "+sessionColumns+" FROM task_time_sessions WHERE user_id = ? AND task_id IN (?) ORDER BY start_time",
		userID, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("building session query: %w", err)
	}

	sessions := []model.TimeSession{}
	if err := s.db.SelectContext(ctx, &sessions, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying sessions for tasks: %w", err)
	}
	return sessions, nil
}

// GetSessions returns every session of the user, oldest first.
func (s *SQLiteStore) GetSessions(ctx context.Context) ([]model.TimeSession, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}

	sessions := []model.TimeSession{}
	err = s.db.SelectContext(ctx, &sessions,
		"SELECT "+sessionColumns+" FROM task_time_sessions WHERE user_id = ? ORDER BY start_time",
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	return sessions, nil
}
