package views

import (
	"math"
	"sort"

	"github.com/nhle/studytrack/internal/model"
)

// Stats is the dashboard summary of a task list.
type Stats struct {
	Total           int   `json:"total"`
	Completed       int   `json:"completed"`
	InProgress      int   `json:"inProgress"`
	NotStarted      int   `json:"notStarted"`
	AverageProgress int   `json:"averageProgress"`
	TotalTimeSpent  int64 `json:"totalTimeSpent"`
}

// CategoryCount is the number of tasks, and of done tasks, in a category.
type CategoryCount struct {
	Category  model.Category `json:"category"`
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
}

// roundHalfUp rounds to the nearest integer, halves towards +Inf.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// AverageProgressByCategory returns the mean progress of each category,
// rounded to the nearest integer. Every category is present; one with no
// tasks reports 0.
func AverageProgressByCategory(tasks []model.Task) map[model.Category]int {
	sums := make(map[model.Category]int)
	counts := make(map[model.Category]int)
	for _, t := range tasks {
		sums[t.Category] += t.Progress
		counts[t.Category]++
	}

	out := make(map[model.Category]int, len(model.Categories))
	for _, c := range model.Categories {
		if counts[c] == 0 {
			out[c] = 0
			continue
		}
		out[c] = roundHalfUp(float64(sums[c]) / float64(counts[c]))
	}
	return out
}

// CategoryBreakdown counts tasks per category in display order.
func CategoryBreakdown(tasks []model.Task) []CategoryCount {
	out := make([]CategoryCount, len(model.Categories))
	index := make(map[model.Category]int, len(model.Categories))
	for i, c := range model.Categories {
		out[i] = CategoryCount{Category: c}
		index[c] = i
	}
	for _, t := range tasks {
		i, ok := index[t.Category]
		if !ok {
			continue
		}
		out[i].Total++
		if t.IsDone() {
			out[i].Completed++
		}
	}
	return out
}

// Summarize computes the dashboard counters.
func Summarize(tasks []model.Task) Stats {
	var s Stats
	var progressSum int
	for _, t := range tasks {
		s.Total++
		progressSum += t.Progress
		s.TotalTimeSpent += t.TotalTimeSpent
		switch {
		case t.IsDone():
			s.Completed++
		case t.Progress > 0:
			s.InProgress++
		default:
			s.NotStarted++
		}
	}
	if s.Total > 0 {
		s.AverageProgress = roundHalfUp(float64(progressSum) / float64(s.Total))
	}
	return s
}

// RecentTrend returns the n most recently created tasks, oldest first, for
// plotting progress over time. n <= 0 returns every task.
func RecentTrend(tasks []model.Task, n int) []model.Task {
	sorted := append([]model.Task{}, tasks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}
	return sorted
}
