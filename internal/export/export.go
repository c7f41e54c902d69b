// Package export writes the user's data out as a JSON backup, a CSV task
// sheet or an archive of completed tasks, and reads backups back in.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nhle/studytrack/internal/model"
)

// ErrNothingToArchive is returned when no task is completed.
var ErrNothingToArchive = errors.New("no completed tasks to archive")

// Backup is the full JSON export.
type Backup struct {
	ExportDate   time.Time           `json:"exportDate"`
	Tasks        []model.Task        `json:"tasks"`
	Notes        []model.Note        `json:"notes"`
	Tags         []model.Tag         `json:"tags"`
	TimeSessions []model.TimeSession `json:"timeSessions"`
}

// Source provides everything a backup contains.
type Source interface {
	Tasks(ctx context.Context) ([]model.Task, error)
	Notes(ctx context.Context, folder, query string) ([]model.Note, error)
	Tags(ctx context.Context) ([]model.Tag, error)
	Sessions(ctx context.Context) ([]model.TimeSession, error)
}

// Collect gathers a backup from src, stamped with now.
func Collect(ctx context.Context, src Source, now time.Time) (Backup, error) {
	b := Backup{ExportDate: now.UTC()}

	var err error
	if b.Tasks, err = src.Tasks(ctx); err != nil {
		return Backup{}, fmt.Errorf("collecting tasks: %w", err)
	}
	if b.Notes, err = src.Notes(ctx, "", ""); err != nil {
		return Backup{}, fmt.Errorf("collecting notes: %w", err)
	}
	if b.Tags, err = src.Tags(ctx); err != nil {
		return Backup{}, fmt.Errorf("collecting tags: %w", err)
	}
	if b.TimeSessions, err = src.Sessions(ctx); err != nil {
		return Backup{}, fmt.Errorf("collecting time sessions: %w", err)
	}

	// Empty collections are written as [] rather than null.
	if b.Tasks == nil {
		b.Tasks = []model.Task{}
	}
	if b.Notes == nil {
		b.Notes = []model.Note{}
	}
	if b.Tags == nil {
		b.Tags = []model.Tag{}
	}
	if b.TimeSessions == nil {
		b.TimeSessions = []model.TimeSession{}
	}
	return b, nil
}

// WriteJSON writes b as indented JSON.
func WriteJSON(w io.Writer, b Backup) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}
	return nil
}

// ReadBackup decodes a backup. Only the tasks array is required; a file
// without one is rejected as a validation error.
func ReadBackup(r io.Reader) (Backup, error) {
	var raw struct {
		Backup
		Tasks json.RawMessage `json:"tasks"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Backup{}, &model.ValidationError{Field: "backup", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}

	trimmed := bytes.TrimSpace(raw.Tasks)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return Backup{}, &model.ValidationError{Field: "tasks", Message: "backup has no tasks array"}
	}

	b := raw.Backup
	if err := json.Unmarshal(trimmed, &b.Tasks); err != nil {
		return Backup{}, &model.ValidationError{Field: "tasks", Message: fmt.Sprintf("invalid task: %v", err)}
	}
	return b, nil
}

// CSVHeader is the first row of a CSV export.
var CSVHeader = []string{
	"Title", "Description", "Category", "Priority", "Progress",
	"Status", "Due Date", "Time Spent (hours)",
}

// CSVRecord flattens one task. Due dates are written as calendar dates in
// loc; time spent is in hours with two decimals.
func CSVRecord(t model.Task, loc *time.Location) []string {
	status := "In Progress"
	if t.Completed {
		status = "Completed"
	}
	var due string
	if t.DueDate != nil {
		due = t.DueDate.In(loc).Format(model.DateLayout)
	}
	return []string{
		t.Title,
		t.Description,
		string(t.Category),
		string(t.Priority),
		strconv.Itoa(t.Progress),
		status,
		due,
		strconv.FormatFloat(float64(t.TotalTimeSpent)/3600, 'f', 2, 64),
	}
}

// WriteCSV writes tasks as a CSV sheet with a header row.
func WriteCSV(w io.Writer, tasks []model.Task, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, t := range tasks {
		if err := cw.Write(CSVRecord(t, loc)); err != nil {
			return fmt.Errorf("writing csv row for task %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Completed returns the completed tasks in their original order.
func Completed(tasks []model.Task) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.Completed {
			out = append(out, t)
		}
	}
	return out
}

// WriteArchive writes the completed tasks as an indented JSON array and
// returns how many were written.
func WriteArchive(w io.Writer, tasks []model.Task) (int, error) {
	done := Completed(tasks)
	if len(done) == 0 {
		return 0, ErrNothingToArchive
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(done); err != nil {
		return 0, fmt.Errorf("encoding archive: %w", err)
	}
	return len(done), nil
}

// Filename returns the dated download name for an export kind: "backup",
// "csv" or "archive".
func Filename(kind string, now time.Time) string {
	day := now.Format(model.DateLayout)
	switch kind {
	case "csv":
		return "studytrack-" + day + ".csv"
	case "archive":
		return "completed-tasks-" + day + ".json"
	default:
		return "studytrack-backup-" + day + ".json"
	}
}
