package model

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used for due dates and week bounds.
const DateLayout = "2006-01-02"

// ValidateTask checks the user-editable fields of a task. Progress is not
// validated here; the derived-state rules clamp it instead.
func ValidateTask(t Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return invalid("title", "must not be empty")
	}
	if !t.Category.Valid() {
		return invalid("category", "unknown category %q", t.Category)
	}
	if !t.Priority.Valid() {
		return invalid("priority", "unknown priority %q", t.Priority)
	}
	if !t.RecurringType.Valid() {
		return invalid("recurringType", "unknown recurrence %q", t.RecurringType)
	}
	if t.EstimatedTime != nil && *t.EstimatedTime <= 0 {
		return invalid("estimatedTime", "must be a positive number of hours")
	}
	if t.RecurringEndDate != nil && t.RecurringType == RecurringNone {
		return invalid("recurringEndDate", "requires a recurring type")
	}
	return nil
}

// ValidateTag checks a tag before it is written.
func ValidateTag(t Tag) error {
	if strings.TrimSpace(t.Name) == "" {
		return invalid("name", "must not be empty")
	}
	return nil
}

// ValidateNote checks a note before it is written.
func ValidateNote(n Note) error {
	if strings.TrimSpace(n.Title) == "" {
		return invalid("title", "must not be empty")
	}
	return nil
}

// ParseDate parses a date given either as YYYY-MM-DD (interpreted in loc)
// or as an RFC 3339 timestamp. An empty string yields nil.
func ParseDate(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	return nil, invalid("date", "%q is not YYYY-MM-DD or RFC 3339", s)
}
