// Package aggregate joins raw task rows with their tags, time totals and
// ordered subtasks into one denormalized model.Task per row.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/rules"
)

// Relations holds the three independently fetched relations, keyed by task id.
type Relations struct {
	TagsByTask     map[string][]model.Tag
	TimeByTask     map[string]int64
	SubtasksByTask map[string][]model.Subtask
}

// Source is the read side of the data gateway the aggregator needs.
type Source interface {
	GetTasks(ctx context.Context) ([]model.Task, error)
	GetTagsForTasks(ctx context.Context, taskIDs []string) (map[string][]model.Tag, error)
	GetSessionsForTasks(ctx context.Context, taskIDs []string) ([]model.TimeSession, error)
	GetSubtasksForTasks(ctx context.Context, taskIDs []string) (map[string][]model.Subtask, error)
}

// Aggregator loads task rows and enriches them in one all-or-nothing batch.
type Aggregator struct {
	src    Source
	logger *slog.Logger
}

// New creates an Aggregator reading from src.
func New(src Source, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{src: src, logger: logger.With("component", "aggregate")}
}

// Load lists every task row and enriches it. A failure to list rows is
// returned as is; a failure in any relation fails the whole batch with
// model.ErrPartialAggregation and no tasks.
func (a *Aggregator) Load(ctx context.Context) ([]model.Task, error) {
	rows, err := a.src.GetTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}

	rel, err := a.Fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	tasks, err := Enrich(rows, rel)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("aggregated tasks", "count", len(tasks))
	return tasks, nil
}

// Fetch loads the three relations for ids concurrently.
func (a *Aggregator) Fetch(ctx context.Context, ids []string) (Relations, error) {
	var (
		tags     map[string][]model.Tag
		sessions []model.TimeSession
		subtasks map[string][]model.Subtask
	)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		if tags, err = a.src.GetTagsForTasks(ctx, ids); err != nil {
			return fmt.Errorf("tags: %w", err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		if sessions, err = a.src.GetSessionsForTasks(ctx, ids); err != nil {
			return fmt.Errorf("time sessions: %w", err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		if subtasks, err = a.src.GetSubtasksForTasks(ctx, ids); err != nil {
			return fmt.Errorf("subtasks: %w", err)
		}
		return nil
	})

	if err := p.Wait(); err != nil {
		a.logger.Warn("relation fetch failed, discarding batch", "tasks", len(ids), "error", err)
		return Relations{}, fmt.Errorf("%w: %w", model.ErrPartialAggregation, err)
	}

	return Relations{
		TagsByTask:     tags,
		TimeByTask:     TimeTotals(sessions),
		SubtasksByTask: subtasks,
	}, nil
}

// TimeTotals sums closed session durations per task.
func TimeTotals(sessions []model.TimeSession) map[string]int64 {
	byTask := make(map[string][]model.TimeSession)
	for _, s := range sessions {
		byTask[s.TaskID] = append(byTask[s.TaskID], s)
	}
	totals := make(map[string]int64, len(byTask))
	for id, ss := range byTask {
		totals[id] = rules.SumSessionDurations(ss)
	}
	return totals
}

// Enrich produces one enriched task per row. Non-derived fields are copied
// unchanged; Tags, Subtasks and TotalTimeSpent are replaced. Missing map
// entries become empty slices or zero. Rows must have unique ids.
//
// The output shares no slices with rows or rel, so enriching the same input
// twice yields equal, independent results.
func Enrich(rows []model.Task, rel Relations) ([]model.Task, error) {
	seen := make(map[string]bool, len(rows))
	out := make([]model.Task, 0, len(rows))

	for _, row := range rows {
		if row.ID == "" {
			return nil, &model.ValidationError{Field: "id", Message: "task row without id"}
		}
		if seen[row.ID] {
			return nil, &model.ValidationError{Field: "id", Message: fmt.Sprintf("duplicate task row %s", row.ID)}
		}
		seen[row.ID] = true

		task := row.Clone()
		task.Tags = append([]model.Tag{}, rel.TagsByTask[row.ID]...)
		task.Subtasks = orderedSubtasks(rel.SubtasksByTask[row.ID])
		task.TotalTimeSpent = rel.TimeByTask[row.ID]
		out = append(out, task)
	}

	return out, nil
}

func orderedSubtasks(subs []model.Subtask) []model.Subtask {
	out := append([]model.Subtask{}, subs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out
}
