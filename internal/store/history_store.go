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

// AppendCompletion writes an entry to the append-only completion history.
func (s *SQLiteStore) AppendCompletion(ctx context.Context, rec model.CompletionRecord) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_completion_history (
			id, user_id, task_id, task_title, estimated_time, actual_time, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, userID, rec.TaskID, rec.TaskTitle, rec.EstimatedTime,
		rec.ActualTime, rec.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending completion of task %s: %w", rec.TaskID, err)
	}

	s.notify("task_completion_history", OpInsert, rec.ID)
	return nil
}

// GetCompletionHistory returns the most recent completion records, newest
// first. A non-empty title restricts the result to tasks with that title.
// limit <= 0 returns every record.
func (s *SQLiteStore) GetCompletionHistory(
	ctx context.Context,
	title string,
	limit int,
) ([]model.CompletionRecord, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}

	query := `SELECT id, task_id, task_title, estimated_time, actual_time, completed_at
		FROM task_completion_history WHERE user_id = ?`
	args := []interface{}{userID}
	if title != "" {
		query += " AND task_title = ?"
		args = append(args, title)
	}
	query += " ORDER BY completed_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	records := []model.CompletionRecord{}
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("querying completion history: %w", err)
	}
	return records, nil
}

// summaryRow is the stored shape of a weekly summary.
type summaryRow struct {
	ID        string    `db:"id"`
	WeekStart string    `db:"week_start"`
	WeekEnd   string    `db:"week_end"`
	Summary   string    `db:"summary"`
	Insights  string    `db:"insights"`
	CreatedAt time.Time `db:"created_at"`
}

func (r summaryRow) toSummary() (model.WeeklySummary, error) {
	start, err := time.Parse(model.DateLayout, r.WeekStart)
	if err != nil {
		return model.WeeklySummary{}, fmt.Errorf("parsing week_start of summary %s: %w", r.ID, err)
	}
	end, err := time.Parse(model.DateLayout, r.WeekEnd)
	if err != nil {
		return model.WeeklySummary{}, fmt.Errorf("parsing week_end of summary %s: %w", r.ID, err)
	}
	ws := model.WeeklySummary{
		ID:        r.ID,
		WeekStart: start,
		WeekEnd:   end,
		Summary:   r.Summary,
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.Insights), &ws.Insights); err != nil {
		return model.WeeklySummary{}, fmt.Errorf("decoding insights of summary %s: %w", r.ID, err)
	}
	return ws, nil
}

// GetWeeklySummary returns the summary for the week starting on weekStart
// and ending on weekEnd (calendar dates).
func (s *SQLiteStore) GetWeeklySummary(
	ctx context.Context,
	weekStart, weekEnd time.Time,
) (*model.WeeklySummary, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}

	start, end := weekStart.Format(model.DateLayout), weekEnd.Format(model.DateLayout)
	var row summaryRow
	err = s.db.GetContext(ctx, &row, `
		SELECT id, week_start, week_end, summary, insights, created_at
		FROM weekly_summaries WHERE user_id = ? AND week_start = ? AND week_end = ?`,
		userID, start, end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("weekly summary %s..%s: %w", start, end, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying weekly summary %s..%s: %w", start, end, err)
	}

	ws, err := row.toSummary()
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// CreateWeeklySummary stores a summary unless one already exists for the
// same user and week, in which case the existing one is returned unchanged.
func (s *SQLiteStore) CreateWeeklySummary(
	ctx context.Context,
	ws model.WeeklySummary,
) (model.WeeklySummary, error) {
	userID, err := s.owner()
	if err != nil {
		return model.WeeklySummary{}, err
	}
	if ws.ID == "" {
		ws.ID = uuid.New().String()
	}
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = time.Now().UTC()
	}

	insights, err := json.Marshal(ws.Insights)
	if err != nil {
		return model.WeeklySummary{}, fmt.Errorf("encoding insights: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO weekly_summaries (id, user_id, week_start, week_end, summary, insights, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, week_start, week_end) DO NOTHING`,
		ws.ID, userID, ws.WeekStart.Format(model.DateLayout), ws.WeekEnd.Format(model.DateLayout),
		ws.Summary, string(insights), ws.CreatedAt.UTC(),
	)
	if err != nil {
		return model.WeeklySummary{}, fmt.Errorf("creating weekly summary: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows > 0 {
		s.notify("weekly_summaries", OpInsert, ws.ID)
	}

	stored, err := s.GetWeeklySummary(ctx, ws.WeekStart, ws.WeekEnd)
	if err != nil {
		return model.WeeklySummary{}, err
	}
	return *stored, nil
}

// GetWeeklySummaries returns every stored summary, most recent week first.
func (s *SQLiteStore) GetWeeklySummaries(ctx context.Context) ([]model.WeeklySummary, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}

	var rows []summaryRow
	err = s.db.SelectContext(ctx, &rows, `
		SELECT id, week_start, week_end, summary, insights, created_at
		FROM weekly_summaries WHERE user_id = ? ORDER BY week_start DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying weekly summaries: %w", err)
	}

	out := make([]model.WeeklySummary, 0, len(rows))
	for _, r := range rows {
		ws, err := r.toSummary()
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, nil
}

// analysisRow is the stored shape of an AI analysis.
type analysisRow struct {
	ID           string    `db:"id"`
	TaskID       string    `db:"task_id"`
	AnalysisType string    `db:"analysis_type"`
	InputData    string    `db:"input_data"`
	Result       string    `db:"result"`
	Model        string    `db:"model"`
	CreatedAt    time.Time `db:"created_at"`
}

// SaveAnalysis persists an AI analysis result.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a model.Analysis) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	input, result := string(a.InputData), string(a.Result)
	if input == "" {
		input = "{}"
	}
	if result == "" {
		result = "{}"
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ai_analysis (id, user_id, task_id, analysis_type, input_data, result, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, userID, a.TaskID, a.AnalysisType, input, result, a.Model, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analysis for task %s: %w", a.TaskID, err)
	}

	s.notify("ai_analysis", OpInsert, a.ID)
	return nil
}

// GetLatestAnalysis returns the newest analysis of the given type for a task.
func (s *SQLiteStore) GetLatestAnalysis(
	ctx context.Context,
	taskID, analysisType string,
) (*model.Analysis, error) {
	userID, err := s.owner()
	if err != nil {
		return nil, err
	}

	var row analysisRow
	err = s.db.GetContext(ctx, &row, `
		SELECT id, task_id, analysis_type, input_data, result, model, created_at
		FROM ai_analysis WHERE user_id = ? AND task_id = ? AND analysis_type = ?
		ORDER BY created_at DESC LIMIT 1`, userID, taskID, analysisType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis of task %s: %w", taskID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying analysis of task %s: %w", taskID, err)
	}

	return &model.Analysis{
		ID:           row.ID,
		TaskID:       row.TaskID,
		AnalysisType: row.AnalysisType,
		InputData:    json.RawMessage(row.InputData),
		Result:       json.RawMessage(row.Result),
		Model:        row.Model,
		CreatedAt:    row.CreatedAt,
	}, nil
}
