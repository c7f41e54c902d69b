package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/nhle/studytrack/internal/model"
)

// TaskAnalysis is the structured result of analyzing one task.
type TaskAnalysis struct {
	Analysis       string         `json:"analysis"`
	EstimatedHours float64        `json:"estimatedHours"`
	Tips           []string       `json:"tips"`
	Priority       model.Priority `json:"priority"`
	Subtasks       []string       `json:"subtasks,omitempty"`
}

const taskAnalysisSystem = "You are an AI study assistant that helps students analyze their " +
	"homework and revision tasks. Provide actionable insights, study tips, time estimates, " +
	"and suggestions for improvement. Use markdown formatting for better readability. " +
	"When historical data is available, provide specific insights about performance trends."

var analyzeTaskFunction = functionDef{
	Name:        "analyze_task",
	Description: "Analyze a study task and provide insights",
	Parameters: json.RawMessage(`{
		"type": "object",
		"properties": {
			"analysis": {"type": "string"},
			"estimatedHours": {"type": "number"},
			"tips": {"type": "array", "items": {"type": "string"}},
			"priority": {"type": "string", "enum": ["low", "medium", "high"]},
			"subtasks": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["analysis", "estimatedHours", "tips", "priority"],
		"additionalProperties": false
	}`),
}

// AnalyzeTask asks the model to analyze task. history holds previous
// completions of tasks with the same title, newest first.
func (c *Client) AnalyzeTask(
	ctx context.Context,
	task model.Task,
	history []model.CompletionRecord,
) (TaskAnalysis, error) {
	var result TaskAnalysis
	if err := c.callFunction(ctx, taskAnalysisSystem, taskAnalysisPrompt(task, history), analyzeTaskFunction, &result); err != nil {
		return TaskAnalysis{}, fmt.Errorf("analyzing task %s: %w", task.ID, err)
	}
	if result.Tips == nil {
		result.Tips = []string{}
	}
	if !result.Priority.Valid() {
		result.Priority = model.PriorityMedium
	}
	return result, nil
}

func taskAnalysisPrompt(task model.Task, history []model.CompletionRecord) string {
	var sb strings.Builder

	description := task.Description
	if description == "" {
		description = "No description provided"
	}

	sb.WriteString("Analyze this study task:\n")
	fmt.Fprintf(&sb, "Title: %s\n", task.Title)
	fmt.Fprintf(&sb, "Description: %s\n", description)
	fmt.Fprintf(&sb, "Category: %s\n", task.Category)
	fmt.Fprintf(&sb, "Current Progress: %d%%", task.Progress)

	if len(history) > 0 {
		var total int64
		for _, h := range history {
			total += h.ActualTime
		}
		avg := float64(total) / float64(len(history))

		sb.WriteString("\n\nHistorical data for this task:\n")
		fmt.Fprintf(&sb, "- Average completion time: %d minutes\n", minutes(avg))
		fmt.Fprintf(&sb, "- Last completion time: %d minutes\n", minutes(float64(history[0].ActualTime)))
		fmt.Fprintf(&sb, "- Times completed: %d", len(history))
		if task.TotalTimeSpent > 0 {
			fmt.Fprintf(&sb, "\n- Current time spent: %d minutes", minutes(float64(task.TotalTimeSpent)))
		}
	}

	sb.WriteString("\n\nPlease provide:\n")
	sb.WriteString("1. A detailed analysis of the task complexity and scope (markdown)\n")
	sb.WriteString("2. Estimated time to complete (in hours)\n")
	sb.WriteString("3. 3-5 specific study tips or strategies for this task\n")
	sb.WriteString("4. Priority level recommendation (low, medium, high)\n")
	sb.WriteString("5. Suggested breakdown into smaller subtasks if applicable\n")
	sb.WriteString("6. If historical data is available, compare current performance to past performance")

	return sb.String()
}

func minutes(seconds float64) int {
	return int(math.Round(seconds / 60))
}

// TopicAnalysis is the result of analyzing the notes and tasks of one
// category.
type TopicAnalysis struct {
	Analysis       string   `json:"analysis"`
	EstimatedHours float64  `json:"estimatedHours"`
	Difficulty     string   `json:"difficulty"`
	Strategy       []string `json:"strategy"`
	Insights       string   `json:"insights"`
	TimeReasoning  string   `json:"timeReasoning"`
}

// TopicRequest is the material for a topic analysis. Notes and Tasks are
// expected newest first.
type TopicRequest struct {
	Category model.Category
	Notes    []model.Note
	Tasks    []model.Task
}

const (
	topicAnalysisSystem = "You are an expert educational AI advisor. Provide detailed, actionable study guidance."

	topicTaskLimit    = 10
	topicNoteLimit    = 5
	topicHistoryLimit = 5
	notePreviewRunes  = 200
)

// jsonObjectPattern spans from the first '{' to the last '}'.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// AnalyzeTopic asks the model for study guidance on a category and parses
// the JSON object embedded in its free-text reply.
func (c *Client) AnalyzeTopic(ctx context.Context, req TopicRequest) (TopicAnalysis, error) {
	reply, err := c.completeText(ctx, topicAnalysisSystem, topicPrompt(req))
	if err != nil {
		return TopicAnalysis{}, fmt.Errorf("analyzing topic %s: %w", req.Category, err)
	}

	raw := jsonObjectPattern.FindString(reply)
	if raw == "" {
		return TopicAnalysis{}, fmt.Errorf("%w: no JSON object in topic analysis", ErrMalformedResponse)
	}

	var result TopicAnalysis
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return TopicAnalysis{}, fmt.Errorf("%w: decoding topic analysis: %v", ErrMalformedResponse, err)
	}
	if result.Strategy == nil {
		result.Strategy = []string{}
	}
	return result, nil
}

// TopicTime summarizes the recorded study time of a category's tasks.
type TopicTime struct {
	AverageHours float64
	RecentHours  []float64
	TaskCount    int
}

// TopicTimeStats looks at the newest tasks of category and averages the
// time of those with any recorded time.
func TopicTimeStats(category model.Category, tasks []model.Task) TopicTime {
	var (
		stats   TopicTime
		total   int64
		counted int
	)
	for _, t := range tasks {
		if t.Category != category {
			continue
		}
		if counted == topicTaskLimit {
			break
		}
		counted++
		if t.TotalTimeSpent <= 0 {
			continue
		}
		total += t.TotalTimeSpent
		stats.TaskCount++
		stats.RecentHours = append(stats.RecentHours, float64(t.TotalTimeSpent)/3600)
	}
	if stats.TaskCount > 0 {
		stats.AverageHours = float64(total) / float64(stats.TaskCount*3600)
	}
	return stats
}

func topicPrompt(req TopicRequest) string {
	stats := TopicTimeStats(req.Category, req.Tasks)

	recent := stats.RecentHours
	if len(recent) > topicHistoryLimit {
		recent = recent[:topicHistoryLimit]
	}
	recentText := make([]string, len(recent))
	for i, h := range recent {
		recentText[i] = fmt.Sprintf("%.2f", h)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an AI study advisor analyzing notes and study patterns for the %q subject.\n\n", req.Category)
	sb.WriteString("Historical time data:\n")
	fmt.Fprintf(&sb, "- Average time per task: %.2f hours\n", stats.AverageHours)
	fmt.Fprintf(&sb, "- Recent sessions (hours): %s\n", strings.Join(recentText, ", "))
	fmt.Fprintf(&sb, "- Total tasks analyzed: %d\n\n", stats.TaskCount)

	sb.WriteString("Notes summary:\n")
	var shown int
	for _, n := range req.Notes {
		if n.Folder != string(req.Category) {
			continue
		}
		if shown == topicNoteLimit {
			break
		}
		shown++
		fmt.Fprintf(&sb, "- %s: %s\n", n.Title, truncateRunes(n.Content, notePreviewRunes))
	}

	sb.WriteString("\nBased on the historical performance and note content, provide a topic analysis, ")
	sb.WriteString("a time estimate for the next session, a difficulty assessment, a study strategy ")
	sb.WriteString("and progress insights.\n\n")
	sb.WriteString("Format as JSON:\n")
	sb.WriteString(`{
  "analysis": "detailed topic analysis",
  "estimatedHours": number,
  "difficulty": "beginner|intermediate|advanced",
  "strategy": ["tip1", "tip2", "tip3"],
  "insights": "progress observations",
  "timeReasoning": "explanation of time estimate"
}`)
	return sb.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
