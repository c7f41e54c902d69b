package model

import "time"

// Note is a markdown document, optionally attached to a task. Its lifecycle
// is independent of any task.
type Note struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	TaskID    *string   `json:"taskId,omitempty" db:"task_id"`
	Folder    string    `json:"folder" db:"folder"`
	Tags      []string  `json:"tags" db:"-"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
