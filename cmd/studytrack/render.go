package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/theme"
)

const progressBarWidth = 10

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// shortID keeps the first block of a uuid, enough to tell tasks apart on
// screen. Commands take full ids.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func formatDuration(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	if d < time.Minute {
		return fmt.Sprintf("%ds", seconds)
	}
	return d.Truncate(time.Minute).String()
}

// taskLine renders one task on a single line.
func taskLine(t model.Task, now time.Time, loc *time.Location) string {
	title := t.Title
	if t.Completed {
		title = theme.DimmedStyle.Render(title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s %s",
		theme.HelpStyle.Render(shortID(t.ID)),
		theme.ProgressBar(t.Progress, progressBarWidth),
		title,
		theme.CategoryStyle(t.Category).Render(string(t.Category)),
	)
	b.WriteString(" " + theme.PriorityStyle(t.Priority).Render(string(t.Priority)))

	if t.DueDate != nil {
		due := t.DueDate.In(loc).Format(model.DateLayout)
		if t.IsOverdue(now) {
			due = theme.OverdueStyle.Render(due + " overdue")
		}
		b.WriteString("  due " + due)
	}
	for _, tag := range t.Tags {
		b.WriteString(" " + theme.TagStyle(tag).Render("#"+tag.Name))
	}
	if t.TotalTimeSpent > 0 {
		b.WriteString("  " + theme.HelpStyle.Render(formatDuration(t.TotalTimeSpent)))
	}
	return b.String()
}

func printTasks(w io.Writer, tasks []model.Task, now time.Time, loc *time.Location) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("No tasks."))
		return
	}
	for _, t := range tasks {
		fmt.Fprintln(w, taskLine(t, now, loc))
	}
}

// printTask renders the full detail of one task.
func printTask(w io.Writer, t model.Task, now time.Time, loc *time.Location) {
	fmt.Fprintln(w, theme.HeaderStyle.Render(t.Title))
	fmt.Fprintln(w, taskLine(t, now, loc))
	fmt.Fprintf(w, "id: %s\n", t.ID)
	if t.Description != "" {
		fmt.Fprintf(w, "\n%s\n", t.Description)
	}
	if t.EstimatedTime != nil {
		fmt.Fprintf(w, "estimate: %.1fh\n", *t.EstimatedTime)
	}
	if t.RecurringType != model.RecurringNone {
		fmt.Fprintf(w, "repeats: %s", t.RecurringType)
		if t.RecurringEndDate != nil {
			fmt.Fprintf(w, " until %s", t.RecurringEndDate.In(loc).Format(model.DateLayout))
		}
		fmt.Fprintln(w)
	}
	if len(t.Subtasks) > 0 {
		fmt.Fprintln(w, "\nsubtasks:")
		for _, s := range t.Subtasks {
			mark := "[ ]"
			if s.Completed {
				mark = "[x]"
			}
			fmt.Fprintf(w, "  %s %s  %s\n", mark, s.Title, theme.HelpStyle.Render(s.ID))
		}
	}
	if t.Notes != "" {
		fmt.Fprintf(w, "\nnotes:\n%s\n", t.Notes)
	}
}
