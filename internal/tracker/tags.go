package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/studytrack/internal/model"
)

// DefaultTagColor is used when a tag is created without a color.
const DefaultTagColor = "#3b82f6"

// Tags returns the user's tags ordered by name.
func (t *Tracker) Tags(ctx context.Context) ([]model.Tag, error) {
	return t.gw.GetTags(ctx)
}

// CreateTag adds a tag. Names are unique per user.
func (t *Tracker) CreateTag(ctx context.Context, name, color string) (model.Tag, error) {
	if color == "" {
		color = DefaultTagColor
	}
	tag := model.Tag{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Color:     color,
		CreatedAt: t.now().UTC(),
	}
	if err := model.ValidateTag(tag); err != nil {
		return model.Tag{}, err
	}
	if err := t.gw.CreateTag(ctx, tag); err != nil {
		return model.Tag{}, err
	}
	return tag, nil
}

// UpdateTag renames or recolors a tag. Tasks carrying it pick up the change
// on the next aggregation.
func (t *Tracker) UpdateTag(ctx context.Context, tag model.Tag) error {
	tag.Name = strings.TrimSpace(tag.Name)
	if err := model.ValidateTag(tag); err != nil {
		return err
	}
	if err := t.gw.UpdateTag(ctx, tag); err != nil {
		return err
	}
	t.resync(ctx)
	return nil
}

// DeleteTag removes a tag and detaches it from every task. Deleting a
// missing tag is not an error.
func (t *Tracker) DeleteTag(ctx context.Context, id string) error {
	err := t.gw.DeleteTag(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		t.logger.Debug("delete of missing tag ignored", "id", id)
		return nil
	}
	if err != nil {
		return err
	}
	t.resync(ctx)
	return nil
}

// SetTaskTags replaces the tag set of a task.
func (t *Tracker) SetTaskTags(ctx context.Context, taskID string, tagIDs []string) (model.Task, error) {
	if err := t.gw.SetTaskTags(ctx, taskID, tagIDs); err != nil {
		return model.Task{}, fmt.Errorf("tagging task %s: %w", taskID, err)
	}
	return t.reloaded(ctx, taskID)
}

// reloaded refreshes and returns the aggregated task.
func (t *Tracker) reloaded(ctx context.Context, taskID string) (model.Task, error) {
	if err := t.Refresh(ctx); err != nil {
		return model.Task{}, err
	}
	if task, ok := t.cache.Get(taskID); ok {
		return task, nil
	}
	return model.Task{}, fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
}
