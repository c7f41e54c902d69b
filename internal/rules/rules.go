// Package rules holds the pure functions that keep a task's derived state
// (completed, progress, time totals) consistent. Every mutation path runs
// through them, so the optimistic local patch and the value re-read from
// the gateway always agree.
package rules

import (
	"time"

	"github.com/nhle/studytrack/internal/model"
)

// UncheckPolicy decides what happens to progress when a completed task is
// marked incomplete again.
type UncheckPolicy int

const (
	// KeepProgress leaves progress untouched, so a task un-checked at 100
	// stays at 100 while reporting completed=false.
	KeepProgress UncheckPolicy = iota

	// ResetProgress sets progress back to 0.
	ResetProgress
)

// ClampProgress bounds p to [0, 100].
func ClampProgress(p int) int {
	if p < model.ProgressMin {
		return model.ProgressMin
	}
	if p > model.ProgressMax {
		return model.ProgressMax
	}
	return p
}

// ApplyProgress sets the task's progress (clamped) and derives completed
// from it. The returned bool is true exactly when completed flipped from
// false to true.
func ApplyProgress(t model.Task, progress int) (model.Task, bool) {
	wasCompleted := t.Completed
	t.Progress = ClampProgress(progress)
	t.Completed = t.Progress == model.ProgressMax
	return t, !wasCompleted && t.Completed
}

// ToggleComplete flips the completed flag. Completing forces progress to 100;
// un-completing consults policy. The returned bool is true exactly when the
// task became completed.
func ToggleComplete(t model.Task, policy UncheckPolicy) (model.Task, bool) {
	if !t.Completed {
		t.Completed = true
		t.Progress = model.ProgressMax
		return t, true
	}

	t.Completed = false
	if policy == ResetProgress {
		t.Progress = model.ProgressMin
	}
	return t, false
}

// Normalize restores the forward invariant (completed implies progress 100)
// and the progress bounds on a row that did not come through the rules.
func Normalize(t model.Task) model.Task {
	t.Progress = ClampProgress(t.Progress)
	if t.Completed {
		t.Progress = model.ProgressMax
	}
	return t
}

// SumSessionDurations totals the recorded durations of closed sessions.
// Open sessions and negative or missing durations contribute nothing.
func SumSessionDurations(sessions []model.TimeSession) int64 {
	var total int64
	for _, s := range sessions {
		if !s.Closed() || s.DurationSeconds == nil {
			continue
		}
		if d := *s.DurationSeconds; d > 0 {
			total += d
		}
	}
	return total
}

// ClosedDuration returns the whole seconds between start and end, never
// negative.
func ClosedDuration(start, end time.Time) int64 {
	d := int64(end.Sub(start) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}
