package views

import (
	"sort"
	"time"

	"github.com/nhle/studytrack/internal/model"
)

// DayGroup is the set of tasks due on one calendar day.
type DayGroup struct {
	Date  string       `json:"date"` // YYYY-MM-DD in the caller's location
	Tasks []model.Task `json:"tasks"`
}

// DayKey returns the calendar date of t in loc as YYYY-MM-DD.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(model.DateLayout)
}

// GroupByDay buckets tasks by the local calendar day of their due date,
// ascending by date. Tasks without a due date are left out; within a day
// tasks are ordered by title.
func GroupByDay(tasks []model.Task, loc *time.Location) []DayGroup {
	byDay := make(map[string][]model.Task)
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		key := DayKey(*t.DueDate, loc)
		byDay[key] = append(byDay[key], t)
	}

	groups := make([]DayGroup, 0, len(byDay))
	for day, ts := range byDay {
		sort.SliceStable(ts, func(i, j int) bool { return ts[i].Title < ts[j].Title })
		groups = append(groups, DayGroup{Date: day, Tasks: ts})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Date < groups[j].Date })
	return groups
}

// TasksOn returns the tasks due on the same local calendar day as day,
// ordered by title.
func TasksOn(tasks []model.Task, day time.Time, loc *time.Location) []model.Task {
	key := DayKey(day, loc)
	for _, g := range GroupByDay(tasks, loc) {
		if g.Date == key {
			return g.Tasks
		}
	}
	return []model.Task{}
}

// Month returns the day groups falling within the month containing day.
func Month(tasks []model.Task, day time.Time, loc *time.Location) []DayGroup {
	prefix := DayKey(day, loc)[:7]
	out := []DayGroup{}
	for _, g := range GroupByDay(tasks, loc) {
		if g.Date[:7] == prefix {
			out = append(out, g)
		}
	}
	return out
}
