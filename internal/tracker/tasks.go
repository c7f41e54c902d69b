package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/rules"
	"github.com/nhle/studytrack/internal/views"
)

// TaskInput carries the user-supplied fields of a new task.
type TaskInput struct {
	Title            string
	Description      string
	Category         model.Category
	Priority         model.Priority
	Progress         int
	DueDate          *time.Time
	EstimatedTime    *float64
	Notes            string
	RecurringType    model.RecurringType
	RecurringEndDate *time.Time
	TagIDs           []string
}

// TaskPatch is a partial update. Nil fields are left unchanged; the Clear
// flags remove an optional value.
type TaskPatch struct {
	Title             *string
	Description       *string
	Category          *model.Category
	Priority          *model.Priority
	Progress          *int
	Completed         *bool
	DueDate           *time.Time
	ClearDueDate      bool
	EstimatedTime     *float64
	ClearEstimate     bool
	Notes             *string
	RecurringType     *model.RecurringType
	RecurringEndDate  *time.Time
	ClearRecurringEnd bool
	TagIDs            *[]string
}

// CreateTask validates input, assigns an id and creation time, and writes
// the task. A task created at progress 100 starts out completed.
func (t *Tracker) CreateTask(ctx context.Context, in TaskInput) (model.Task, error) {
	task := model.Task{
		ID:               uuid.New().String(),
		Title:            strings.TrimSpace(in.Title),
		Description:      in.Description,
		Category:         in.Category,
		Priority:         in.Priority,
		DueDate:          in.DueDate,
		EstimatedTime:    in.EstimatedTime,
		Notes:            in.Notes,
		RecurringType:    in.RecurringType,
		RecurringEndDate: in.RecurringEndDate,
		CreatedAt:        t.now().UTC(),
		Tags:             []model.Tag{},
		Subtasks:         []model.Subtask{},
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if task.RecurringType == "" {
		task.RecurringType = model.RecurringNone
	}
	task.UpdatedAt = task.CreatedAt
	task, _ = rules.ApplyProgress(task, in.Progress)

	if err := model.ValidateTask(task); err != nil {
		return model.Task{}, err
	}

	if err := t.gw.CreateTask(ctx, task, in.TagIDs...); err != nil {
		return model.Task{}, fmt.Errorf("creating task: %w", err)
	}
	t.cache.Put(task)

	t.logger.Info("task created", "id", task.ID, "category", task.Category)
	t.resync(ctx)
	return t.latest(task), nil
}

// UpdateTask applies a partial patch. ID and CreatedAt are never changed.
// Progress and completed go through the derived-state rules, and a
// false-to-true completion is recorded in the history.
func (t *Tracker) UpdateTask(ctx context.Context, id string, patch TaskPatch) (model.Task, error) {
	current, err := t.current(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	if err := checkPatch(patch); err != nil {
		return model.Task{}, err
	}
	next := applyPatch(current.Clone(), patch, t.policy)
	if err := model.ValidateTask(next); err != nil {
		return model.Task{}, err
	}

	var tagIDs []string
	if patch.TagIDs != nil {
		tagIDs = append([]string{}, *patch.TagIDs...)
	}

	prev, existed := t.cache.Put(next)
	completedNow, err := t.gw.UpdateTask(ctx, next, tagIDs)
	if err != nil {
		t.cache.Restore(id, prev, existed)
		return model.Task{}, fmt.Errorf("updating task %s: %w", id, err)
	}

	return t.afterStateChange(ctx, next, completedNow)
}

// checkPatch rejects a patch whose progress and completed values disagree,
// since progress 100 and completed imply each other.
func checkPatch(p TaskPatch) error {
	if p.Progress == nil || p.Completed == nil {
		return nil
	}
	if (*p.Progress >= model.ProgressMax) != *p.Completed {
		return &model.ValidationError{
			Field:   "completed",
			Message: fmt.Sprintf("contradicts progress %d", *p.Progress),
		}
	}
	return nil
}

func applyPatch(task model.Task, p TaskPatch, policy rules.UncheckPolicy) model.Task {
	if p.Title != nil {
		task.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.Category != nil {
		task.Category = *p.Category
	}
	if p.Priority != nil {
		task.Priority = *p.Priority
	}
	if p.Notes != nil {
		task.Notes = *p.Notes
	}
	if p.RecurringType != nil {
		task.RecurringType = *p.RecurringType
	}

	switch {
	case p.ClearDueDate:
		task.DueDate = nil
	case p.DueDate != nil:
		d := *p.DueDate
		task.DueDate = &d
	}
	switch {
	case p.ClearEstimate:
		task.EstimatedTime = nil
	case p.EstimatedTime != nil:
		e := *p.EstimatedTime
		task.EstimatedTime = &e
	}
	switch {
	case p.ClearRecurringEnd:
		task.RecurringEndDate = nil
	case p.RecurringEndDate != nil:
		r := *p.RecurringEndDate
		task.RecurringEndDate = &r
	}

	if p.Progress != nil {
		task, _ = rules.ApplyProgress(task, *p.Progress)
	}
	if p.Completed != nil && *p.Completed != task.Completed {
		task, _ = rules.ToggleComplete(task, policy)
	}
	return task
}

// DeleteTask removes a task. Deleting an id that does not exist is not an
// error.
func (t *Tracker) DeleteTask(ctx context.Context, id string) error {
	removed, wasCached := t.cache.Remove(id)

	err := t.gw.DeleteTask(ctx, id)
	switch {
	case errors.Is(err, model.ErrNotFound):
		t.logger.Debug("delete of missing task ignored", "id", id)
	case err != nil:
		if wasCached {
			t.cache.Put(removed)
		}
		return fmt.Errorf("deleting task %s: %w", id, err)
	default:
		t.logger.Info("task deleted", "id", id)
	}

	t.resync(ctx)
	return nil
}

// SetProgress sets a task's progress through the derived-state rules.
func (t *Tracker) SetProgress(ctx context.Context, id string, progress int) (model.Task, error) {
	current, err := t.current(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	next, _ := rules.ApplyProgress(current, progress)
	return t.writeState(ctx, next)
}

// ToggleComplete flips a task's completed flag through the derived-state
// rules.
func (t *Tracker) ToggleComplete(ctx context.Context, id string) (model.Task, error) {
	current, err := t.current(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	next, _ := rules.ToggleComplete(current, t.policy)
	return t.writeState(ctx, next)
}

// MoveToBand drops a task into a kanban band, rewriting its progress to the
// band's representative value.
func (t *Tracker) MoveToBand(ctx context.Context, id string, band views.Band) (model.Task, error) {
	return t.SetProgress(ctx, id, views.RepresentativeProgress(band))
}

// writeState patches the cache, writes progress and completed to the
// gateway, and rolls the cache back if the write fails.
func (t *Tracker) writeState(ctx context.Context, next model.Task) (model.Task, error) {
	prev, existed := t.cache.Put(next)
	completedNow, err := t.gw.UpdateTaskState(ctx, next.ID, next.Progress, next.Completed)
	if err != nil {
		t.cache.Restore(next.ID, prev, existed)
		return model.Task{}, fmt.Errorf("updating task %s: %w", next.ID, err)
	}
	return t.afterStateChange(ctx, next, completedNow)
}

// afterStateChange records a completion and re-synchronizes. completedNow
// is the gateway's report that the stored row flipped to completed.
func (t *Tracker) afterStateChange(ctx context.Context, next model.Task, completedNow bool) (model.Task, error) {
	var recordErr error
	if completedNow {
		recordErr = t.recordCompletion(ctx, next)
	}

	t.resync(ctx)
	if recordErr != nil {
		return t.latest(next), recordErr
	}
	return t.latest(next), nil
}

func (t *Tracker) recordCompletion(ctx context.Context, task model.Task) error {
	sessions, err := t.gw.GetSessionsForTasks(ctx, []string{task.ID})
	if err != nil {
		return fmt.Errorf("reading time of completed task %s: %w", task.ID, err)
	}

	rec := model.CompletionRecord{
		ID:            uuid.New().String(),
		TaskID:        task.ID,
		TaskTitle:     task.Title,
		EstimatedTime: task.EstimatedTime,
		ActualTime:    rules.SumSessionDurations(sessions),
		CompletedAt:   t.now().UTC(),
	}
	if err := t.gw.AppendCompletion(ctx, rec); err != nil {
		return fmt.Errorf("recording completion of task %s: %w", task.ID, err)
	}

	t.logger.Info("task completed", "id", task.ID, "actual_seconds", rec.ActualTime)
	return nil
}

// current returns the task as the tracker last saw it, falling back to the
// gateway row when the cache does not hold it.
func (t *Tracker) current(ctx context.Context, id string) (model.Task, error) {
	if task, ok := t.cache.Get(id); ok {
		return task, nil
	}
	row, err := t.gw.GetTaskByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	return row.Clone(), nil
}

// latest prefers the refreshed cache entry and falls back to the
// optimistic value.
func (t *Tracker) latest(fallback model.Task) model.Task {
	if task, ok := t.cache.Get(fallback.ID); ok {
		return task
	}
	return fallback
}

// History returns completion records, newest first. A non-empty title
// restricts it to tasks with that title.
func (t *Tracker) History(ctx context.Context, title string, limit int) ([]model.CompletionRecord, error) {
	return t.gw.GetCompletionHistory(ctx, title, limit)
}

// ImportTasks creates each task as new. Tasks that fail validation are
// skipped; the joined errors are returned with the number imported.
func (t *Tracker) ImportTasks(ctx context.Context, tasks []model.Task) (int, error) {
	var (
		imported int
		errs     []error
	)
	for _, task := range tasks {
		task = rules.Normalize(task)
		_, err := t.CreateTask(ctx, TaskInput{
			Title:            task.Title,
			Description:      task.Description,
			Category:         task.Category,
			Priority:         task.Priority,
			Progress:         task.Progress,
			DueDate:          task.DueDate,
			EstimatedTime:    task.EstimatedTime,
			Notes:            task.Notes,
			RecurringType:    task.RecurringType,
			RecurringEndDate: task.RecurringEndDate,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("importing %q: %w", task.Title, err))
			continue
		}
		imported++
	}
	return imported, errors.Join(errs...)
}
