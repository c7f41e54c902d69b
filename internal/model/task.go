package model

import "time"

// Category groups tasks by the kind of study work they represent.
type Category string

const (
	CategoryHomework Category = "homework"
	CategoryRevision Category = "revision"
	CategoryProjects Category = "projects"
	CategoryOther    Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryHomework,
	CategoryRevision,
	CategoryProjects,
	CategoryOther,
}

// Label returns the human-readable name of the category.
func (c Category) Label() string {
	switch c {
	case CategoryHomework:
		return "Homework"
	case CategoryRevision:
		return "Revision"
	case CategoryProjects:
		return "Projects"
	case CategoryOther:
		return "Other"
	default:
		return string(c)
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Priority is the user-assigned urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// RecurringType controls whether a task repeats.
type RecurringType string

const (
	RecurringNone    RecurringType = "none"
	RecurringDaily   RecurringType = "daily"
	RecurringWeekly  RecurringType = "weekly"
	RecurringMonthly RecurringType = "monthly"
)

// Valid reports whether r is one of the known recurrence kinds.
func (r RecurringType) Valid() bool {
	switch r {
	case RecurringNone, RecurringDaily, RecurringWeekly, RecurringMonthly:
		return true
	}
	return false
}

// Progress bounds.
const (
	ProgressMin = 0
	ProgressMax = 100
)

// Task is a trackable unit of study work. Rows read from the tasks table
// carry zero values in the derived fields; the aggregator fills them in.
type Task struct {
	ID               string        `json:"id" db:"id"`
	Title            string        `json:"title" db:"title"`
	Description      string        `json:"description,omitempty" db:"description"`
	Category         Category      `json:"category" db:"category"`
	Priority         Priority      `json:"priority" db:"priority"`
	Progress         int           `json:"progress" db:"progress"`
	Completed        bool          `json:"completed" db:"completed"`
	CreatedAt        time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time     `json:"updatedAt" db:"updated_at"`
	DueDate          *time.Time    `json:"dueDate,omitempty" db:"due_date"`
	EstimatedTime    *float64      `json:"estimatedTime,omitempty" db:"estimated_time"`
	Notes            string        `json:"notes,omitempty" db:"notes"`
	RecurringType    RecurringType `json:"recurringType" db:"recurring_type"`
	RecurringEndDate *time.Time    `json:"recurringEndDate,omitempty" db:"recurring_end_date"`

	// Derived by the aggregator from the task_tags, subtasks and
	// task_time_sessions tables.
	Tags           []Tag     `json:"tags" db:"-"`
	Subtasks       []Subtask `json:"subtasks" db:"-"`
	TotalTimeSpent int64     `json:"totalTimeSpent" db:"-"`
}

// IsDone reports whether the task counts as finished for filtering and
// statistics: either explicitly completed or at full progress.
func (t Task) IsDone() bool {
	return t.Completed || t.Progress == ProgressMax
}

// IsOverdue reports whether the task has a due date in the past and is not done.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.IsDone()
}

// Clone returns a deep copy of t so callers can mutate slices and pointers
// without affecting the original.
func (t Task) Clone() Task {
	c := t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.EstimatedTime != nil {
		e := *t.EstimatedTime
		c.EstimatedTime = &e
	}
	if t.RecurringEndDate != nil {
		r := *t.RecurringEndDate
		c.RecurringEndDate = &r
	}
	c.Tags = append([]Tag{}, t.Tags...)
	c.Subtasks = append([]Subtask{}, t.Subtasks...)
	return c
}

// Subtask is a checklist entry owned by exactly one task.
// Its lifecycle is bound to the parent task (CASCADE delete).
type Subtask struct {
	ID         string    `json:"id" db:"id"`
	TaskID     string    `json:"taskId" db:"task_id"`
	Title      string    `json:"title" db:"title"`
	Completed  bool      `json:"completed" db:"completed"`
	OrderIndex int       `json:"orderIndex" db:"order_index"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// TimeSession is a single timed study period against a task. EndTime and
// DurationSeconds stay nil while the timer is running.
type TimeSession struct {
	ID              string     `json:"id" db:"id"`
	TaskID          string     `json:"taskId" db:"task_id"`
	StartTime       time.Time  `json:"startTime" db:"start_time"`
	EndTime         *time.Time `json:"endTime,omitempty" db:"end_time"`
	DurationSeconds *int64     `json:"durationSeconds,omitempty" db:"duration_seconds"`
	Notes           string     `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
}

// Closed reports whether the session has been stopped.
func (s TimeSession) Closed() bool {
	return s.EndTime != nil
}

// CompletionRecord is an append-only log entry written the moment a task
// transitions to completed.
type CompletionRecord struct {
	ID            string    `json:"id" db:"id"`
	TaskID        string    `json:"taskId" db:"task_id"`
	TaskTitle     string    `json:"taskTitle" db:"task_title"`
	EstimatedTime *float64  `json:"estimatedTime,omitempty" db:"estimated_time"`
	ActualTime    int64     `json:"actualTime" db:"actual_time"`
	CompletedAt   time.Time `json:"completedAt" db:"completed_at"`
}
