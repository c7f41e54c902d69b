package views

import (
	"fmt"
	"strings"

	"github.com/nhle/studytrack/internal/model"
)

// Band is a kanban column derived purely from progress.
type Band string

const (
	BandTodo       Band = "todo"
	BandInProgress Band = "inProgress"
	BandDone       Band = "done"
)

// Bands lists the columns in board order.
var Bands = []Band{BandTodo, BandInProgress, BandDone}

// BandOf maps progress to its band: 0 is todo, 100 is done, anything in
// between is in progress. Out-of-range values are clamped first.
func BandOf(progress int) Band {
	switch {
	case progress <= model.ProgressMin:
		return BandTodo
	case progress >= model.ProgressMax:
		return BandDone
	default:
		return BandInProgress
	}
}

// RepresentativeProgress is the progress a task is set to when dropped into
// b. The move is lossy: a task at 73 moved to inProgress ends at 50.
func RepresentativeProgress(b Band) int {
	switch b {
	case BandDone:
		return model.ProgressMax
	case BandInProgress:
		return 50
	default:
		return model.ProgressMin
	}
}

// ParseBand accepts the band names case-insensitively, plus the
// "in-progress" and "in_progress" spellings.
func ParseBand(s string) (Band, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo":
		return BandTodo, nil
	case "inprogress", "in-progress", "in_progress":
		return BandInProgress, nil
	case "done":
		return BandDone, nil
	}
	return "", &model.ValidationError{Field: "band", Message: fmt.Sprintf("unknown band %q", s)}
}

// Column is one kanban band with its tasks.
type Column struct {
	Band  Band         `json:"band"`
	Tasks []model.Task `json:"tasks"`
}

// Board splits tasks into the three bands, preserving input order within
// each band. All three columns are always present.
func Board(tasks []model.Task) []Column {
	byBand := map[Band][]model.Task{}
	for _, t := range tasks {
		b := BandOf(t.Progress)
		byBand[b] = append(byBand[b], t)
	}

	cols := make([]Column, 0, len(Bands))
	for _, b := range Bands {
		ts := byBand[b]
		if ts == nil {
			ts = []model.Task{}
		}
		cols = append(cols, Column{Band: b, Tasks: ts})
	}
	return cols
}
