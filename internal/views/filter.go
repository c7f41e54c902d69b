// Package views holds the read-only projections over the aggregated task
// list: filters, calendar and timeline grouping, kanban bands and analytics.
// Nothing here mutates its input.
package views

import (
	"fmt"
	"strings"

	"github.com/nhle/studytrack/internal/model"
)

// Status selects tasks by completion.
type Status string

const (
	StatusAll        Status = "all"
	StatusCompleted  Status = "completed"
	StatusIncomplete Status = "incomplete"
)

// CategoryAll matches every category.
const CategoryAll = "all"

// ParseStatus validates a status filter value. Empty means all.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusIncomplete:
		return StatusIncomplete, nil
	}
	return "", &model.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", s)}
}

// Criteria selects a subset of tasks. Zero values match everything.
type Criteria struct {
	Category string // a model.Category or "all"
	Status   Status
	TagID    string
	Query    string // case-insensitive substring of title or description
}

// Filter returns the tasks matching c, in input order.
func Filter(tasks []model.Task, c Criteria) []model.Task {
	query := strings.ToLower(strings.TrimSpace(c.Query))
	out := []model.Task{}
	for _, t := range tasks {
		if !matchCategory(t, c.Category) || !matchStatus(t, c.Status) {
			continue
		}
		if c.TagID != "" && !hasTag(t, c.TagID) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(t.Title), query) &&
			!strings.Contains(strings.ToLower(t.Description), query) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchCategory(t model.Task, category string) bool {
	return category == "" || category == CategoryAll || string(t.Category) == category
}

func matchStatus(t model.Task, s Status) bool {
	switch s {
	case StatusCompleted:
		return t.IsDone()
	case StatusIncomplete:
		return !t.IsDone()
	default:
		return true
	}
}

func hasTag(t model.Task, tagID string) bool {
	for _, tag := range t.Tags {
		if tag.ID == tagID {
			return true
		}
	}
	return false
}
