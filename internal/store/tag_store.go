package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/studytrack/internal/model"
)

// CreateTag inserts a new tag. Names are unique per user.
func (s *SQLiteStore) CreateTag(ctx context.Context, tag model.Tag) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}
	if err := model.ValidateTag(tag); err != nil {
		return err
	}
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO tags (id, user_id, name, color, created_at) VALUES (?, ?, ?, ?, ?)",
		tag.ID, userID, strings.TrimSpace(tag.Name), tag.Color, tag.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &model.ValidationError{Field: "name", Message: fmt.Sprintf("tag %q already exists", tag.Name)}
		}
		return fmt.Errorf("creating tag: %w", err)
	}

	s.notify("tags", OpInsert, tag.ID)
	return nil
}

// UpdateTag updates a tag's name and color.
func (s *SQLiteStore) UpdateTag(ctx context.Context, tag model.Tag) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}
	if err := model.ValidateTag(tag); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE tags SET name = ?, color = ? WHERE id = ? AND user_id = ?",
		strings.TrimSpace(tag.Name), tag.Color, tag.ID, userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &model.ValidationError{Field: "name", Message: fmt.Sprintf("tag %q already exists", tag.Name)}
		}
		return fmt.Errorf("updating tag %s: %w", tag.ID, err)
	}
	if err := notFound(result, "tag", tag.ID); err != nil {
		return err
	}

	s.notify("tags", OpUpdate, tag.ID)
	return nil
}

// DeleteTag removes a tag. CASCADE on task_tags removes associations.
func (s *SQLiteStore) DeleteTag(ctx context.Context, id string) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM tags WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting tag %s: %w", id, err)
	}
	if err := notFound(result, "tag", id); err != nil {
		return err
	}

	s.notify("tags", OpDelete, id)
	return nil
}

// GetTags retrieves all tags of the user ordered by name.
func (s *SQLiteStore) GetTags(ctx context.Context) ([]model.Tag, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}

	tags := []model.Tag{}
	err = s.db.SelectContext(ctx, &tags,
		"SELECT id, name, color, created_at FROM tags WHERE user_id = ? ORDER BY name",
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	return tags, nil
}

// SetTaskTags replaces all tag associations for a task.
func (s *SQLiteStore) SetTaskTags(
	ctx context.Context,
	taskID string,
	tagIDs []string,
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

	var owned int
	if err := tx.GetContext(ctx, &owned,
		"SELECT COUNT(*) FROM tasks WHERE id = ? AND user_id = ?", taskID, userID); err != nil {
		return fmt.Errorf("checking task %s: %w", taskID, err)
	}
	if owned == 0 {
		return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}

	if err := linkTags(ctx, tx, userID, taskID, tagIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing task tags: %w", err)
	}

	s.notify("task_tags", OpUpdate, taskID)
	return nil
}

// linkTags replaces the tag links of taskID inside tx. Every tag must
// belong to userID.
func linkTags(ctx context.Context, tx *sqlx.Tx, userID, taskID string, tagIDs []string) error {
	// Remove existing associations.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM task_tags WHERE task_id = ? AND user_id = ?", taskID, userID); err != nil {
		return fmt.Errorf("clearing task tags: %w", err)
	}

	// Insert new associations.
	now := time.Now().UTC()
	seen := make(map[string]bool, len(tagIDs))
	for _, tagID := range tagIDs {
		if seen[tagID] {
			continue
		}
		seen[tagID] = true

		result, err := tx.ExecContext(ctx, `
			INSERT INTO task_tags (task_id, tag_id, user_id, created_at)
			SELECT ?, id, user_id, ? FROM tags WHERE id = ? AND user_id = ?`,
			taskID, now, tagID, userID)
		if err != nil {
			return fmt.Errorf("setting tag %s on task %s: %w", tagID, taskID, err)
		}
		if err := notFound(result, "tag", tagID); err != nil {
			return err
		}
	}
	return nil
}

// taggedRow is a tag joined with the task it is attached to.
type taggedRow struct {
	TaskID string `db:"task_id"`
	model.Tag
}

// GetTagsForTasks fetches the tags attached to each of taskIDs in one query.
// Tasks without tags are absent from the map.
func (s *SQLiteStore) GetTagsForTasks(
	ctx context.Context,
	taskIDs []string,
) (map[string][]model.Tag, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]model.Tag)
	if len(taskIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`
		SELECT tt.task_id, t.id, t.name, t.color, t.created_at
		FROM task_tags tt
		INNER JOIN tags t ON t.id = tt.tag_id
		WHERE tt.user_id = ? AND tt.task_id IN (?)
		ORDER BY t.name`, userID, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("building tag query: %w", err)
	}

	var rows []taggedRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying tags for tasks: %w", err)
	}
	for _, r := range rows {
		out[r.TaskID] = append(out[r.TaskID], r.Tag)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
