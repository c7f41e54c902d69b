// Package weekly builds the once-per-week study review: the Sunday to
// Saturday bounds, the computed insights and the AI-written summary.
package weekly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nhle/studytrack/internal/ai"
	"github.com/nhle/studytrack/internal/model"
)

// Bounds returns the Sunday and Saturday (both at midnight, in t's
// location) of the calendar week containing t.
func Bounds(t time.Time) (start, end time.Time) {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	start = day.AddDate(0, 0, -int(day.Weekday()))
	return start, start.AddDate(0, 0, 6)
}

// ComputeInsights derives the week's statistics from tasks. A task counts
// towards a productive day when it has recorded time; the day is its due
// date, or weekStart when it has none. Ties for the top category go to the
// category seen first. Suggestions are left empty.
func ComputeInsights(tasks []model.Task, weekStart time.Time) model.Insights {
	insights := model.Insights{
		TopCategory: model.CategoryHomework,
		Suggestions: []string{},
	}

	days := make(map[string]bool)
	counts := make(map[model.Category]int)
	var order []model.Category

	for _, t := range tasks {
		if t.Completed {
			insights.TotalCompleted++
		}
		insights.TotalTimeSpent += t.TotalTimeSpent

		if t.TotalTimeSpent > 0 {
			day := weekStart
			if t.DueDate != nil {
				day = t.DueDate.In(weekStart.Location())
			}
			days[day.Format(model.DateLayout)] = true
		}

		if counts[t.Category] == 0 {
			order = append(order, t.Category)
		}
		counts[t.Category]++
	}
	insights.ProductiveDays = len(days)

	best := 0
	for _, c := range order {
		if counts[c] > best {
			best = counts[c]
			insights.TopCategory = c
		}
	}
	return insights
}

// Summarizer writes the summary text for a week.
type Summarizer interface {
	SummarizeWeek(ctx context.Context, req ai.WeekRequest) (string, error)
}

// Store persists weekly summaries, at most one per week.
type Store interface {
	GetWeeklySummary(ctx context.Context, weekStart, weekEnd time.Time) (*model.WeeklySummary, error)
	CreateWeeklySummary(ctx context.Context, ws model.WeeklySummary) (model.WeeklySummary, error)
}

// TaskLister provides the aggregated tasks a summary is built from.
type TaskLister interface {
	Tasks(ctx context.Context) ([]model.Task, error)
}

// Options configures a Generator.
type Options struct {
	// Location decides where weeks start. Defaults to time.Local.
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time
}

// Generator produces the summary of the current week.
type Generator struct {
	store      Store
	tasks      TaskLister
	summarizer Summarizer
	loc        *time.Location
	logger     *slog.Logger
	now        func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(store Store, tasks TaskLister, summarizer Summarizer, opts Options) *Generator {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{
		store:      store,
		tasks:      tasks,
		summarizer: summarizer,
		loc:        opts.Location,
		logger:     opts.Logger.With("component", "weekly"),
		now:        opts.Now,
	}
}

// Week returns the bounds of the current week.
func (g *Generator) Week() (start, end time.Time) {
	return Bounds(g.now().In(g.loc))
}

// Current returns the stored summary of the current week, wrapping
// model.ErrNotFound when none exists yet.
func (g *Generator) Current(ctx context.Context) (*model.WeeklySummary, error) {
	start, end := g.Week()
	return g.store.GetWeeklySummary(ctx, start, end)
}

// Generate returns the current week's summary, creating it first if none
// is stored. The AI gateway is only called when a new summary is needed.
func (g *Generator) Generate(ctx context.Context) (model.WeeklySummary, error) {
	start, end := g.Week()

	existing, err := g.store.GetWeeklySummary(ctx, start, end)
	if err == nil {
		g.logger.Debug("weekly summary already exists", "week_start", start.Format(model.DateLayout))
		return *existing, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.WeeklySummary{}, err
	}

	tasks, err := g.tasks.Tasks(ctx)
	if err != nil {
		return model.WeeklySummary{}, fmt.Errorf("loading tasks for weekly summary: %w", err)
	}

	insights := ComputeInsights(tasks, start)
	text, err := g.summarizer.SummarizeWeek(ctx, ai.WeekRequest{
		Start:    start,
		End:      end,
		Tasks:    tasks,
		Insights: insights,
	})
	if err != nil {
		return model.WeeklySummary{}, err
	}

	insights.Suggestions = ai.ParseSuggestions(text)
	if len(insights.Suggestions) == 0 {
		insights.Suggestions = append([]string{}, ai.DefaultSuggestions...)
	}

	// A concurrent generation for the same week wins; its row is returned.
	stored, err := g.store.CreateWeeklySummary(ctx, model.WeeklySummary{
		WeekStart: start,
		WeekEnd:   end,
		Summary:   text,
		Insights:  insights,
		CreatedAt: g.now().UTC(),
	})
	if err != nil {
		return model.WeeklySummary{}, err
	}

	g.logger.Info("weekly summary generated",
		"week_start", start.Format(model.DateLayout),
		"completed", insights.TotalCompleted,
	)
	return stored, nil
}
