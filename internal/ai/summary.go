package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nhle/studytrack/internal/model"
)

// DefaultSuggestions are used when a summary yields no recommendations.
var DefaultSuggestions = []string{
	"Continue maintaining consistent study habits",
	"Focus on breaking larger tasks into smaller subtasks",
	"Use the timer feature to track actual study time",
}

// WeekRequest is the material for a weekly summary.
type WeekRequest struct {
	Start    time.Time
	End      time.Time
	Tasks    []model.Task
	Insights model.Insights
}

const (
	weekSummarySystem = "You are a helpful study productivity assistant that uses markdown formatting."
	weekTaskLimit     = 10
)

// SummarizeWeek asks the model for a markdown review of the week.
func (c *Client) SummarizeWeek(ctx context.Context, req WeekRequest) (string, error) {
	text, err := c.completeText(ctx, weekSummarySystem, weekPrompt(req))
	if err != nil {
		return "", fmt.Errorf("summarizing week of %s: %w", req.Start.Format(model.DateLayout), err)
	}
	return text, nil
}

func weekPrompt(req WeekRequest) string {
	var completed int
	for _, t := range req.Tasks {
		if t.Completed {
			completed++
		}
	}
	spent := req.Insights.TotalTimeSpent

	var sb strings.Builder
	sb.WriteString("You are a study productivity assistant. Analyze this week's study data and ")
	sb.WriteString("provide a comprehensive summary using **markdown formatting**.\n\n")
	fmt.Fprintf(&sb, "Week: %s to %s\n\n", req.Start.Format(model.DateLayout), req.End.Format(model.DateLayout))
	sb.WriteString("Tasks Data:\n")
	fmt.Fprintf(&sb, "- Total tasks: %d\n", len(req.Tasks))
	fmt.Fprintf(&sb, "- Completed: %d\n", completed)
	fmt.Fprintf(&sb, "- In progress: %d\n", len(req.Tasks)-completed)
	fmt.Fprintf(&sb, "- Total study time: %d hours %d minutes\n", spent/3600, (spent%3600)/60)
	fmt.Fprintf(&sb, "- Active study days: %d\n", req.Insights.ProductiveDays)
	fmt.Fprintf(&sb, "- Most common category: %s\n\n", req.Insights.TopCategory)

	sb.WriteString("Task details:\n")
	for i, t := range req.Tasks {
		if i == weekTaskLimit {
			break
		}
		fmt.Fprintf(&sb, "- %s (%s, %s priority, %d%% complete)\n", t.Title, t.Category, t.Priority, t.Progress)
	}

	sb.WriteString("\nProvide a response using markdown formatting:\n")
	sb.WriteString("1. **## Week Overview** - A 2-3 sentence overview\n")
	sb.WriteString("2. **## Key Achievements** - Bullet list of accomplishments\n")
	sb.WriteString("3. **## Recommendations** - 3-5 specific, numbered recommendations for next week\n\n")
	sb.WriteString("Be encouraging and constructive.")
	return sb.String()
}

var listMarker = regexp.MustCompile(`^(?:[-•*]\s+|\d+[.)]\s*)`)

// ParseSuggestions collects the list items that follow a line
// mentioning recommendations or suggestions.
func ParseSuggestions(text string) []string {
	var (
		suggestions []string
		inSection   bool
	)
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "recommendation") || strings.Contains(lower, "suggestion") {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if !listMarker.MatchString(trimmed) {
			continue
		}
		if item := strings.TrimSpace(listMarker.ReplaceAllString(trimmed, "")); item != "" {
			suggestions = append(suggestions, item)
		}
	}
	return suggestions
}
