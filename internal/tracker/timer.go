package tracker

import (
	"context"
	"fmt"

	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/rules"
)

// StartTimer opens a time session on a task. A task has at most one
// running session; starting it again returns the one already open.
func (t *Tracker) StartTimer(ctx context.Context, taskID string) (model.TimeSession, error) {
	open, err := t.gw.GetOpenSession(ctx, taskID)
	if err != nil {
		return model.TimeSession{}, err
	}
	if open != nil {
		return *open, nil
	}

	session, err := t.gw.CreateSession(ctx, model.TimeSession{
		TaskID:    taskID,
		StartTime: t.now().UTC(),
	})
	if err != nil {
		return model.TimeSession{}, fmt.Errorf("starting timer on task %s: %w", taskID, err)
	}

	t.logger.Info("timer started", "task", taskID, "session", session.ID)
	return session, nil
}

// StopTimer closes a session and records its whole-second duration.
// Stopping a session that is already closed returns it unchanged.
func (t *Tracker) StopTimer(ctx context.Context, sessionID string) (model.TimeSession, error) {
	session, err := t.gw.GetSession(ctx, sessionID)
	if err != nil {
		return model.TimeSession{}, err
	}
	if session.Closed() {
		return *session, nil
	}

	end := t.now().UTC()
	duration := rules.ClosedDuration(session.StartTime, end)
	if err := t.gw.CloseSession(ctx, sessionID, end, duration); err != nil {
		return model.TimeSession{}, fmt.Errorf("stopping timer %s: %w", sessionID, err)
	}
	session.EndTime = &end
	session.DurationSeconds = &duration

	t.logger.Info("timer stopped", "task", session.TaskID, "seconds", duration)
	t.resync(ctx)
	return *session, nil
}

// StopTaskTimer closes the running session of a task, if any. It returns
// nil when the timer was not running.
func (t *Tracker) StopTaskTimer(ctx context.Context, taskID string) (*model.TimeSession, error) {
	open, err := t.gw.GetOpenSession(ctx, taskID)
	if err != nil || open == nil {
		return nil, err
	}
	session, err := t.StopTimer(ctx, open.ID)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Sessions returns every time session of the user, open ones included.
func (t *Tracker) Sessions(ctx context.Context) ([]model.TimeSession, error) {
	return t.gw.GetSessions(ctx)
}
