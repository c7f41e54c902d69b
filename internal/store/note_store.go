package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/studytrack/internal/model"
)

// noteRow carries the JSON-encoded tags column alongside the note.
type noteRow struct {
	model.Note
	TagsJSON string `db:"tags"`
}

func (r noteRow) toNote() (model.Note, error) {
	n := r.Note
	n.Tags = []string{}
	if r.TagsJSON != "" {
		if err := json.Unmarshal([]byte(r.TagsJSON), &n.Tags); err != nil {
			return model.Note{}, fmt.Errorf("decoding tags of note %s: %w", n.ID, err)
		}
	}
	return n, nil
}

const noteColumns = "id, title, content, task_id, folder, tags, created_at, updated_at"

// CreateNote inserts a new note. A task id that does not belong to the user
// is rejected as not found.
func (s *SQLiteStore) CreateNote(ctx context.Context, note model.Note) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}
	if err := model.ValidateNote(note); err != nil {
		return err
	}
	if err := s.checkNoteTask(ctx, userID, note.TaskID); err != nil {
		return err
	}
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now

	tags, err := encodeTags(note.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, title, content, task_id, folder, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID, userID, note.Title, note.Content, note.TaskID, note.Folder,
		tags, note.CreatedAt.UTC(), note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating note: %w", err)
	}

	s.notify("notes", OpInsert, note.ID)
	return nil
}

// UpdateNote overwrites the editable fields of a note.
func (s *SQLiteStore) UpdateNote(ctx context.Context, note model.Note) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}
	if err := model.ValidateNote(note); err != nil {
		return err
	}
	if err := s.checkNoteTask(ctx, userID, note.TaskID); err != nil {
		return err
	}

	tags, err := encodeTags(note.Tags)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE notes SET title = ?, content = ?, task_id = ?, folder = ?, tags = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		note.Title, note.Content, note.TaskID, note.Folder, tags, time.Now().UTC(),
		note.ID, userID,
	)
	if err != nil {
		return fmt.Errorf("updating note %s: %w", note.ID, err)
	}
	if err := notFound(result, "note", note.ID); err != nil {
		return err
	}

	s.notify("notes", OpUpdate, note.ID)
	return nil
}

// DeleteNote removes a note by ID.
func (s *SQLiteStore) DeleteNote(ctx context.Context, id string) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM notes WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting note %s: %w", id, err)
	}
	if err := notFound(result, "note", id); err != nil {
		return err
	}

	s.notify("notes", OpDelete, id)
	return nil
}

// GetNoteByID returns a single note.
func (s *SQLiteStore) GetNoteByID(ctx context.Context, id string) (*model.Note, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}

	var row noteRow
	err = s.db.GetContext(ctx, &row,
		"SELECT "+noteColumns+" FROM notes WHERE id = ? AND user_id = ?", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying note %s: %w", id, err)
	}

	note, err := row.toNote()
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// GetNotes returns the user's notes, most recently updated first. A
// non-empty folder restricts the result to that folder.
func (s *SQLiteStore) GetNotes(ctx context.Context, folder string) ([]model.Note, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}

	query := "SELECT " + noteColumns + " FROM notes WHERE user_id = ?"
	args := []interface{}{userID}
	if folder != "" {
		query += " AND folder = ?"
		args = append(args, folder)
	}
	query += " ORDER BY updated_at DESC, id"

	var rows []noteRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}

	notes := make([]model.Note, 0, len(rows))
	for _, r := range rows {
		n, err := r.toNote()
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, nil
}

func (s *SQLiteStore) checkNoteTask(ctx context.Context, userID string, taskID *string) error {
	if taskID == nil {
		return nil
	}
	var owned int
	if err := s.db.GetContext(ctx, &owned,
		"SELECT COUNT(*) FROM tasks WHERE id = ? AND user_id = ?", *taskID, userID); err != nil {
		return fmt.Errorf("checking task %s: %w", *taskID, err)
	}
	if owned == 0 {
		return fmt.Errorf("task %s: %w", *taskID, model.ErrNotFound)
	}
	return nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding note tags: %w", err)
	}
	return string(b), nil
}
