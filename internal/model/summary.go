package model

import (
	"encoding/json"
	"time"
)

// Insights are the computed statistics stored alongside a weekly summary.
type Insights struct {
	TotalCompleted int      `json:"totalCompleted"`
	TotalTimeSpent int64    `json:"totalTimeSpent"`
	ProductiveDays int      `json:"productiveDays"`
	TopCategory    Category `json:"topCategory"`
	Suggestions    []string `json:"suggestions"`
}

// WeeklySummary is the generated review of one Sunday-to-Saturday week.
// At most one exists per user and week.
type WeeklySummary struct {
	ID        string    `json:"id"`
	WeekStart time.Time `json:"weekStart"`
	WeekEnd   time.Time `json:"weekEnd"`
	Summary   string    `json:"summary"`
	Insights  Insights  `json:"insights"`
	CreatedAt time.Time `json:"createdAt"`
}

// Analysis type constants.
const (
	AnalysisTypeTask  = "task_analysis"
	AnalysisTypeTopic = "topic_analysis"
)

// Analysis is a persisted AI analysis result for a task.
type Analysis struct {
	ID           string          `json:"id"`
	TaskID       string          `json:"taskId"`
	AnalysisType string          `json:"analysisType"`
	InputData    json.RawMessage `json:"inputData"`
	Result       json.RawMessage `json:"result"`
	Model        string          `json:"model"`
	CreatedAt    time.Time       `json:"createdAt"`
}
