package views

import (
	"sort"
	"time"

	"github.com/nhle/studytrack/internal/model"
)

// TimelineGroup is a run of tasks sharing a due date.
type TimelineGroup struct {
	Date  string       `json:"date"`
	Past  bool         `json:"past"`
	Today bool         `json:"today"`
	Tasks []model.Task `json:"tasks"`
}

// Timeline sorts tasks with a due date ascending and groups them by local
// calendar day. A group is Past when its day is before now's day and Today
// when it is now's day; comparison is by calendar day, not timestamp.
func Timeline(tasks []model.Task, now time.Time, loc *time.Location) []TimelineGroup {
	dated := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.DueDate != nil {
			dated = append(dated, t)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].DueDate.Before(*dated[j].DueDate)
	})

	today := DayKey(now, loc)
	groups := []TimelineGroup{}
	for _, t := range dated {
		key := DayKey(*t.DueDate, loc)
		if n := len(groups); n > 0 && groups[n-1].Date == key {
			groups[n-1].Tasks = append(groups[n-1].Tasks, t)
			continue
		}
		groups = append(groups, TimelineGroup{
			Date:  key,
			Past:  key < today,
			Today: key == today,
			Tasks: []model.Task{t},
		})
	}
	return groups
}
