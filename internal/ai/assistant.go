package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/views"
)

const (
	chatTemperature   = 0.7
	chatMaxTokens     = 500
	maxToolIterations = 5
	overviewTaskLimit = 10
	searchResultLimit = 20
)

// TaskSource provides the aggregated task list the assistant can search.
type TaskSource interface {
	Tasks(ctx context.Context) ([]model.Task, error)
}

// Assistant is the study chat assistant. It keeps the conversation history
// and answers questions about the user's tasks through read-only tools.
type Assistant struct {
	client  *Client
	tasks   TaskSource
	context *ConversationContext
}

// NewAssistant creates an assistant with an empty conversation.
func NewAssistant(client *Client, tasks TaskSource) *Assistant {
	return &Assistant{
		client:  client,
		tasks:   tasks,
		context: NewConversationContext(0),
	}
}

// Reset clears the conversation history.
func (a *Assistant) Reset() {
	a.context.Reset()
}

// Seed replays earlier user and assistant turns into the conversation.
// Other roles and empty messages are skipped.
func (a *Assistant) Seed(history []Message) {
	for _, m := range history {
		if (m.Role != RoleUser && m.Role != RoleAssistant) || strings.TrimSpace(m.Content) == "" {
			continue
		}
		a.context.AddMessage(Message{Role: m.Role, Content: m.Content})
	}
}

// History returns the conversation so far.
func (a *Assistant) History() []Message {
	return a.context.GetMessages()
}

// Chat sends a user message and returns the assistant's reply, running any
// tool calls the model makes along the way.
func (a *Assistant) Chat(ctx context.Context, userMsg string) (string, error) {
	userMsg = strings.TrimSpace(userMsg)
	if userMsg == "" {
		return "", &model.ValidationError{Field: "message", Message: "must not be empty"}
	}
	a.context.AddMessage(Message{Role: RoleUser, Content: userMsg})

	system := a.buildSystemPrompt(ctx)
	temperature := chatTemperature

	for i := 0; i < maxToolIterations; i++ {
		msg, err := a.client.complete(ctx, chatRequest{
			Messages:    a.buildAPIMessages(system),
			Tools:       toolDefinitions(),
			Temperature: &temperature,
			MaxTokens:   chatMaxTokens,
		})
		if err != nil {
			return "", err
		}

		if len(msg.ToolCalls) == 0 {
			a.context.AddMessage(Message{Role: RoleAssistant, Content: msg.Content})
			return msg.Content, nil
		}

		// Record the assistant's tool request, then answer every call.
		a.context.AddMessage(Message{Role: RoleAssistant, Content: msg.Content, toolCalls: msg.ToolCalls})
		for _, call := range msg.ToolCalls {
			result, refs := a.executeToolCall(ctx, call)
			a.context.AddMessage(Message{
				Role:       RoleTool,
				Content:    result,
				TaskRefs:   refs,
				toolCallID: call.ID,
			})
		}
	}

	return "", fmt.Errorf("%w: reached maximum tool use iterations", ErrMalformedResponse)
}

// buildSystemPrompt constructs the system prompt with a task overview.
func (a *Assistant) buildSystemPrompt(ctx context.Context) string {
	var sb strings.Builder

	sb.WriteString("You are an AI study assistant, helping students manage their ")
	sb.WriteString("homework and study tasks effectively.")

	tasks, err := a.tasks.Tasks(ctx)
	if err != nil {
		a.client.logger.Warn("loading tasks for chat context failed", "error", err)
	}
	if len(tasks) > 0 {
		sb.WriteString("\n\nCurrent tasks overview:")
		for i, t := range tasks {
			if i == overviewTaskLimit {
				break
			}
			state := fmt.Sprintf("%d%% done", t.Progress)
			if t.Completed {
				state = "completed"
			}
			fmt.Fprintf(&sb, "\n- %s (%s, %s priority, %s)", t.Title, t.Category, t.Priority, state)
		}
	}

	sb.WriteString("\n\nProvide helpful, encouraging advice about study habits, task management, ")
	sb.WriteString("and academic success. You can suggest new tasks or study activities, give ")
	sb.WriteString("advice on time management, and offer study techniques.\n\n")

	sb.WriteString("You have access to these tools:\n")
	sb.WriteString("- search_tasks: Search tasks by text, category or completion status\n")
	sb.WriteString("- get_task_detail: Get full details for a specific task by its ID\n\n")

	sb.WriteString("IMPORTANT: You CANNOT modify tasks. If asked to change, complete or ")
	sb.WriteString("delete a task, explain that the student can do it with the studytrack ")
	sb.WriteString("task commands.\n\n")

	sb.WriteString("Keep responses concise, actionable, and supportive.")

	return sb.String()
}

// buildAPIMessages converts the conversation context into the chat
// completions message format.
func (a *Assistant) buildAPIMessages(system string) []chatMessage {
	history := a.context.GetMessages()
	messages := make([]chatMessage, 0, len(history)+1)
	messages = append(messages, chatMessage{Role: string(RoleSystem), Content: system})

	for _, msg := range history {
		messages = append(messages, chatMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCalls:  msg.toolCalls,
			ToolCallID: msg.toolCallID,
		})
	}
	return messages
}

// executeToolCall runs a tool requested by the model and returns the
// result plus the task IDs it referenced.
func (a *Assistant) executeToolCall(ctx context.Context, call toolCall) (string, []string) {
	// Read-only guard: reject any write-like tool names.
	writeTools := map[string]bool{
		"create_task":     true,
		"update_task":     true,
		"delete_task":     true,
		"set_progress":    true,
		"toggle_complete": true,
	}
	if writeTools[call.Function.Name] {
		return `{"error": "Write operations are not permitted. ` +
			`The student can change tasks with the studytrack task commands."}`, nil
	}

	input := json.RawMessage(call.Function.Arguments)
	switch call.Function.Name {
	case "search_tasks":
		return a.handleSearchTasks(ctx, input)
	case "get_task_detail":
		return a.handleGetTaskDetail(ctx, input)
	default:
		return fmt.Sprintf(`{"error": "Unknown tool: %s"}`, call.Function.Name), nil
	}
}

// handleSearchTasks filters the task list with the provided parameters.
func (a *Assistant) handleSearchTasks(ctx context.Context, input json.RawMessage) (string, []string) {
	var params struct {
		Query    string `json:"query"`
		Category string `json:"category"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return fmt.Sprintf(`{"error": "Invalid parameters: %v"}`, err), nil
	}

	status, err := views.ParseStatus(params.Status)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error()), nil
	}

	tasks, err := a.tasks.Tasks(ctx)
	if err != nil {
		return fmt.Sprintf(`{"error": "Search failed: %v"}`, err), nil
	}
	tasks = views.Filter(tasks, views.Criteria{
		Category: params.Category,
		Status:   status,
		Query:    params.Query,
	})
	if len(tasks) > searchResultLimit {
		tasks = tasks[:searchResultLimit]
	}

	type taskSummary struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Category  string `json:"category"`
		Priority  string `json:"priority"`
		Progress  int    `json:"progress"`
		Completed bool   `json:"completed"`
		DueDate   string `json:"due_date,omitempty"`
	}

	summaries := make([]taskSummary, 0, len(tasks))
	refs := make([]string, 0, len(tasks))
	for _, t := range tasks {
		s := taskSummary{
			ID:        t.ID,
			Title:     t.Title,
			Category:  string(t.Category),
			Priority:  string(t.Priority),
			Progress:  t.Progress,
			Completed: t.Completed,
		}
		if t.DueDate != nil {
			s.DueDate = t.DueDate.Format(model.DateLayout)
		}
		summaries = append(summaries, s)
		refs = append(refs, t.ID)
	}

	result, err := json.Marshal(map[string]interface{}{
		"count": len(summaries),
		"tasks": summaries,
	})
	if err != nil {
		return fmt.Sprintf(`{"error": "Failed to encode results: %v"}`, err), nil
	}
	return string(result), refs
}

// handleGetTaskDetail retrieves full details for a specific task.
func (a *Assistant) handleGetTaskDetail(ctx context.Context, input json.RawMessage) (string, []string) {
	var params struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return fmt.Sprintf(`{"error": "Invalid parameters: %v"}`, err), nil
	}
	if params.TaskID == "" {
		return `{"error": "task_id is required"}`, nil
	}

	tasks, err := a.tasks.Tasks(ctx)
	if err != nil {
		return fmt.Sprintf(`{"error": "Lookup failed: %v"}`, err), nil
	}
	for _, t := range tasks {
		if t.ID != params.TaskID {
			continue
		}
		result, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf(`{"error": "Failed to encode task: %v"}`, err), nil
		}
		return string(result), []string{t.ID}
	}
	return `{"error": "Task not found"}`, nil
}

// toolDefinitions returns the read-only tools offered to the model.
func toolDefinitions() []tool {
	return []tool{
		{
			Type: "function",
			Function: functionDef{
				Name:        "search_tasks",
				Description: "Search the student's tasks. Returns matching tasks with their key details.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"query": {
							"type": "string",
							"description": "Text to match against task titles and descriptions"
						},
						"category": {
							"type": "string",
							"enum": ["all", "homework", "revision", "projects", "other"],
							"description": "Filter by category"
						},
						"status": {
							"type": "string",
							"enum": ["all", "completed", "incomplete"],
							"description": "Filter by completion"
						}
					}
				}`),
			},
		},
		{
			Type: "function",
			Function: functionDef{
				Name:        "get_task_detail",
				Description: "Get full details for a specific task by its ID, including tags, subtasks and time spent.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"task_id": {
							"type": "string",
							"description": "The unique task ID"
						}
					},
					"required": ["task_id"]
				}`),
			},
		},
	}
}
