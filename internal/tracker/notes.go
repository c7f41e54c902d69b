package tracker

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/notes"
)

// DefaultFolder holds notes created without a folder.
const DefaultFolder = "General"

// NoteInput carries the fields of a new note.
type NoteInput struct {
	Title   string
	Content string
	TaskID  *string
	Folder  string
	Tags    []string
}

// NotePatch is a partial note update. ClearTask detaches the note from its
// task.
type NotePatch struct {
	Title     *string
	Content   *string
	TaskID    *string
	ClearTask bool
	Folder    *string
	Tags      *[]string
}

// CreateNote writes a new note. Hashtags in the content are added to its
// tags.
func (t *Tracker) CreateNote(ctx context.Context, in NoteInput) (model.Note, error) {
	now := t.now().UTC()
	note := model.Note{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		TaskID:    in.TaskID,
		Folder:    strings.TrimSpace(in.Folder),
		Tags:      notes.MergeTags(in.Tags, notes.ExtractHashtags(in.Content)...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if note.Folder == "" {
		note.Folder = DefaultFolder
	}
	if err := model.ValidateNote(note); err != nil {
		return model.Note{}, err
	}
	if err := t.gw.CreateNote(ctx, note); err != nil {
		return model.Note{}, err
	}
	return note, nil
}

// UpdateNote applies a partial patch to a note.
func (t *Tracker) UpdateNote(ctx context.Context, id string, patch NotePatch) (model.Note, error) {
	current, err := t.gw.GetNoteByID(ctx, id)
	if err != nil {
		return model.Note{}, err
	}
	note := *current

	if patch.Title != nil {
		note.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Content != nil {
		note.Content = *patch.Content
	}
	switch {
	case patch.ClearTask:
		note.TaskID = nil
	case patch.TaskID != nil:
		taskID := *patch.TaskID
		note.TaskID = &taskID
	}
	if patch.Folder != nil {
		note.Folder = strings.TrimSpace(*patch.Folder)
		if note.Folder == "" {
			note.Folder = DefaultFolder
		}
	}
	if patch.Tags != nil {
		note.Tags = *patch.Tags
	}
	note.Tags = notes.MergeTags(note.Tags, notes.ExtractHashtags(note.Content)...)
	note.UpdatedAt = t.now().UTC()

	if err := model.ValidateNote(note); err != nil {
		return model.Note{}, err
	}
	if err := t.gw.UpdateNote(ctx, note); err != nil {
		return model.Note{}, err
	}
	return note, nil
}

// DeleteNote removes a note. Deleting a missing note is not an error.
func (t *Tracker) DeleteNote(ctx context.Context, id string) error {
	err := t.gw.DeleteNote(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		t.logger.Debug("delete of missing note ignored", "id", id)
		return nil
	}
	return err
}

// Note returns a single note.
func (t *Tracker) Note(ctx context.Context, id string) (model.Note, error) {
	note, err := t.gw.GetNoteByID(ctx, id)
	if err != nil {
		return model.Note{}, err
	}
	return *note, nil
}

// Notes returns notes, most recently updated first, restricted to folder
// and matching query. An empty folder or "all" lists every folder.
func (t *Tracker) Notes(ctx context.Context, folder, query string) ([]model.Note, error) {
	all, err := t.gw.GetNotes(ctx, "")
	if err != nil {
		return nil, err
	}
	return notes.Search(all, query, folder), nil
}

// Folders lists the folders in use.
func (t *Tracker) Folders(ctx context.Context) ([]string, error) {
	all, err := t.gw.GetNotes(ctx, "")
	if err != nil {
		return nil, err
	}
	return notes.Folders(all), nil
}
