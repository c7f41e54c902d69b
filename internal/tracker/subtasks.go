package tracker

import (
	"context"
	"errors"

	"github.com/nhle/studytrack/internal/model"
)

// AddSubtask appends a checklist entry to a task.
func (t *Tracker) AddSubtask(ctx context.Context, taskID, title string) (model.Subtask, error) {
	sub, err := t.gw.AddSubtask(ctx, model.Subtask{TaskID: taskID, Title: title})
	if err != nil {
		return model.Subtask{}, err
	}
	t.resync(ctx)
	return sub, nil
}

// ToggleSubtask flips a subtask's completed flag. The parent task's
// progress is not derived from its subtasks.
func (t *Tracker) ToggleSubtask(ctx context.Context, id string) (model.Subtask, error) {
	sub, err := t.gw.GetSubtask(ctx, id)
	if err != nil {
		return model.Subtask{}, err
	}
	sub.Completed = !sub.Completed
	if err := t.gw.UpdateSubtask(ctx, *sub); err != nil {
		return model.Subtask{}, err
	}
	t.resync(ctx)
	return *sub, nil
}

// RenameSubtask changes a subtask's title.
func (t *Tracker) RenameSubtask(ctx context.Context, id, title string) (model.Subtask, error) {
	sub, err := t.gw.GetSubtask(ctx, id)
	if err != nil {
		return model.Subtask{}, err
	}
	sub.Title = title
	if err := t.gw.UpdateSubtask(ctx, *sub); err != nil {
		return model.Subtask{}, err
	}
	t.resync(ctx)
	return *sub, nil
}

// DeleteSubtask removes a subtask. Deleting a missing one is not an error.
func (t *Tracker) DeleteSubtask(ctx context.Context, id string) error {
	err := t.gw.DeleteSubtask(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		t.logger.Debug("delete of missing subtask ignored", "id", id)
		return nil
	}
	if err != nil {
		return err
	}
	t.resync(ctx)
	return nil
}

// ReorderSubtasks renumbers a task's subtasks to follow orderedIDs, which
// must name every subtask of the task exactly once.
func (t *Tracker) ReorderSubtasks(ctx context.Context, taskID string, orderedIDs []string) (model.Task, error) {
	if err := t.gw.ReorderSubtasks(ctx, taskID, orderedIDs); err != nil {
		return model.Task{}, err
	}
	return t.reloaded(ctx, taskID)
}
