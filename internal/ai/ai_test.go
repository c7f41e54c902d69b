package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/studytrack/internal/model"
)

// newTestClient returns a client pointed at a test server running handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "test-key", BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func decodeRequest(t *testing.T, r *http.Request) chatRequest {
	t.Helper()
	var req chatRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func writeReply(w http.ResponseWriter, msg chatMessage) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": msg, "finish_reason": "stop"}},
	})
}

func functionReply(name string, args any) chatMessage {
	raw, _ := json.Marshal(args)
	return chatMessage{
		Role: "assistant",
		ToolCalls: []toolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: functionCall{Name: name, Arguments: string(raw)},
		}},
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrRateLimited)
			},
		},
		{
			name:   "quota exhausted",
			status: http.StatusPaymentRequired,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrQuotaExhausted)
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   `{"error": {"message": "model overloaded"}}`,
			check: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
				assert.Equal(t, "model overloaded", statusErr.Message)
				assert.ErrorIs(t, err, model.ErrUpstream)
			},
		},
		{
			name:   "plain error body",
			status: http.StatusInternalServerError,
			body:   `{"error": "boom"}`,
			check: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, "boom", statusErr.Message)
			},
		},
		{
			name:   "garbage success body",
			status: http.StatusOK,
			body:   `not json`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				assert.ErrorIs(t, err, model.ErrUpstream)
			},
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   `{"choices": []}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.SummarizeWeek(context.Background(), WeekRequest{})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestOversizedResponseIsRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"`))
		_, _ = w.Write([]byte(strings.Repeat("a", maxResponseBytes)))
		_, _ = w.Write([]byte(`"}}]}`))
	})

	_, err := c.SummarizeWeek(context.Background(), WeekRequest{})
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.ErrorIs(t, err, model.ErrUpstream)
}

func TestMissingAPIKey(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "  ", BaseURL: srv.URL})
	_, err := c.AnalyzeTask(context.Background(), model.Task{ID: "t1"}, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.Zero(t, calls.Load())
}

func TestAnalyzeTask(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		req := decodeRequest(t, r)
		assert.Equal(t, DefaultModel, req.Model)
		require.NotNil(t, req.ToolChoice)
		assert.Equal(t, "analyze_task", req.ToolChoice.Function.Name)
		require.Len(t, req.Messages, 2)
		prompt := req.Messages[1].Content
		assert.Contains(t, prompt, "Title: Essay")
		assert.Contains(t, prompt, "Average completion time: 15 minutes")
		assert.Contains(t, prompt, "Last completion time: 20 minutes")
		assert.Contains(t, prompt, "Times completed: 2")

		writeReply(w, functionReply("analyze_task", map[string]any{
			"analysis":       "## Scope\nModerate.",
			"estimatedHours": 2.5,
			"tips":           []string{"Outline first"},
			"priority":       "high",
		}))
	})

	task := model.Task{ID: "t1", Title: "Essay", Category: model.CategoryHomework, Progress: 20}
	history := []model.CompletionRecord{
		{TaskTitle: "Essay", ActualTime: 1200},
		{TaskTitle: "Essay", ActualTime: 600},
	}

	got, err := c.AnalyzeTask(context.Background(), task, history)
	require.NoError(t, err)
	assert.Equal(t, 2.5, got.EstimatedHours)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.Equal(t, []string{"Outline first"}, got.Tips)
}

func TestAnalyzeTaskWithoutToolCall(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeReply(w, chatMessage{Role: "assistant", Content: "I refuse to use tools"})
	})

	_, err := c.AnalyzeTask(context.Background(), model.Task{ID: "t1", Title: "Essay"}, nil)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestAnalyzeTopic(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantErr error
		want    TopicAnalysis
	}{
		{
			name:  "json wrapped in prose",
			reply: "Here you go:\n```json\n{\"analysis\": \"Vectors\", \"estimatedHours\": 1.5, \"difficulty\": \"intermediate\", \"strategy\": [\"practice\"]}\n```\nGood luck!",
			want: TopicAnalysis{
				Analysis:       "Vectors",
				EstimatedHours: 1.5,
				Difficulty:     "intermediate",
				Strategy:       []string{"practice"},
			},
		},
		{
			name:    "no json",
			reply:   "Sorry, I cannot help.",
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "broken json",
			reply:   "{analysis: nope}",
			wantErr: ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				req := decodeRequest(t, r)
				assert.Nil(t, req.ToolChoice)
				writeReply(w, chatMessage{Role: "assistant", Content: tt.reply})
			})

			got, err := c.AnalyzeTopic(context.Background(), TopicRequest{Category: model.CategoryRevision})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTopicTimeStats(t *testing.T) {
	tasks := []model.Task{
		{Category: model.CategoryRevision, TotalTimeSpent: 7200},
		{Category: model.CategoryHomework, TotalTimeSpent: 99999},
		{Category: model.CategoryRevision, TotalTimeSpent: 0},
		{Category: model.CategoryRevision, TotalTimeSpent: 3600},
	}

	got := TopicTimeStats(model.CategoryRevision, tasks)
	assert.Equal(t, 2, got.TaskCount)
	assert.InDelta(t, 1.5, got.AverageHours, 1e-9)
	assert.Equal(t, []float64{2, 1}, got.RecentHours)

	empty := TopicTimeStats(model.CategoryProjects, tasks)
	assert.Zero(t, empty.TaskCount)
	assert.Zero(t, empty.AverageHours)
}

func TestGenerateQuiz(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		require.NotNil(t, req.ToolChoice)
		assert.Equal(t, "generate_quiz", req.ToolChoice.Function.Name)
		assert.Contains(t, req.Messages[1].Content, "5 intermediate-level")

		writeReply(w, functionReply("generate_quiz", map[string]any{
			"questions": []QuizQuestion{
				{Question: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: 1, Explanation: "arithmetic"},
				{Question: "Capital of France?", Options: []string{"Paris", "Rome"}, CorrectAnswer: 0},
			},
		}))
	})

	quiz, err := c.GenerateQuiz(context.Background(), QuizRequest{Topic: "General knowledge"})
	require.NoError(t, err)
	require.Len(t, quiz, 2)

	assert.Equal(t, 2, Score(quiz, []int{1, 0}))
	assert.Equal(t, 1, Score(quiz, []int{1}))
	assert.Equal(t, 0, Score(quiz, nil))
}

func TestGenerateQuizValidation(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := c.GenerateQuiz(context.Background(), QuizRequest{Topic: "  "})
	assert.True(t, model.IsValidationError(err))

	_, err = c.GenerateQuiz(context.Background(), QuizRequest{Topic: "x", Difficulty: "impossible"})
	assert.True(t, model.IsValidationError(err))

	assert.Zero(t, calls.Load())
}

func TestGenerateQuizRejectsInvalidAnswers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeReply(w, functionReply("generate_quiz", map[string]any{
			"questions": []QuizQuestion{{Question: "?", Options: []string{"a", "b"}, CorrectAnswer: 5}},
		}))
	})

	_, err := c.GenerateQuiz(context.Background(), QuizRequest{Topic: "x"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "numbered recommendations",
			text: "## Week Overview\nGood week.\n- finished essay\n## Recommendations\n1. Start earlier\n2) Use the timer\n- Review notes",
			want: []string{"Start earlier", "Use the timer", "Review notes"},
		},
		{
			name: "items before the section are ignored",
			text: "- did stuff\nSome suggestions:\n• Sleep more",
			want: []string{"Sleep more"},
		},
		{
			name: "no section",
			text: "## Overview\n- a\n- b",
			want: nil,
		},
		{
			name: "bold lines are not list items",
			text: "## Recommendations\n**Keep going**\n- Rest",
			want: []string{"Rest"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSuggestions(tt.text))
		})
	}
}

type staticTasks []model.Task

func (s staticTasks) Tasks(context.Context) ([]model.Task, error) { return s, nil }

type brokenTasks struct{}

func (brokenTasks) Tasks(context.Context) ([]model.Task, error) {
	return nil, errors.New("gateway down")
}

func TestChatRunsToolCalls(t *testing.T) {
	tasks := staticTasks{
		{ID: "t1", Title: "Essay", Category: model.CategoryHomework, Priority: model.PriorityHigh, Progress: 40},
		{ID: "t2", Title: "Flashcards", Category: model.CategoryRevision, Priority: model.PriorityLow, Completed: true, Progress: 100},
	}

	var round atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		require.NotEmpty(t, req.Messages)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[0].Content, "- Essay (homework, high priority, 40% done)")
		assert.Contains(t, req.Messages[0].Content, "- Flashcards (revision, low priority, completed)")
		assert.Len(t, req.Tools, 2)

		switch round.Add(1) {
		case 1:
			writeReply(w, functionReply("search_tasks", map[string]string{"status": "incomplete"}))
		default:
			last := req.Messages[len(req.Messages)-1]
			assert.Equal(t, "tool", last.Role)
			assert.Equal(t, "call_1", last.ToolCallID)
			assert.Contains(t, last.Content, `"title":"Essay"`)
			assert.NotContains(t, last.Content, "Flashcards")
			writeReply(w, chatMessage{Role: "assistant", Content: "Finish your essay first."})
		}
	})

	a := NewAssistant(c, tasks)
	reply, err := a.Chat(context.Background(), "What should I do next?")
	require.NoError(t, err)
	assert.Equal(t, "Finish your essay first.", reply)

	history := a.History()
	require.Len(t, history, 4)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, RoleAssistant, history[1].Role)
	assert.Equal(t, RoleTool, history[2].Role)
	assert.Equal(t, []string{"t1"}, history[2].TaskRefs)
	assert.Equal(t, RoleAssistant, history[3].Role)
}

func TestChatRejectsWriteTools(t *testing.T) {
	var round atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		if round.Add(1) == 1 {
			writeReply(w, functionReply("delete_task", map[string]string{"task_id": "t1"}))
			return
		}
		last := req.Messages[len(req.Messages)-1]
		assert.Contains(t, last.Content, "not permitted")
		writeReply(w, chatMessage{Role: "assistant", Content: "I can't delete tasks."})
	})

	a := NewAssistant(c, brokenTasks{})
	reply, err := a.Chat(context.Background(), "delete my essay")
	require.NoError(t, err)
	assert.Equal(t, "I can't delete tasks.", reply)
}

func TestChatStopsAfterMaxToolIterations(t *testing.T) {
	var rounds atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rounds.Add(1)
		writeReply(w, functionReply("get_task_detail", map[string]string{"task_id": "t1"}))
	})

	_, err := NewAssistant(c, staticTasks{}).Chat(context.Background(), "loop forever")
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, int32(maxToolIterations), rounds.Load())
}

func TestChatSeedAndEmptyMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		// system + two seeded turns + the new user message
		require.Len(t, req.Messages, 4)
		assert.Equal(t, "Earlier question", req.Messages[1].Content)
		writeReply(w, chatMessage{Role: "assistant", Content: "ok"})
	})

	a := NewAssistant(c, staticTasks{})
	_, err := a.Chat(context.Background(), "   ")
	assert.True(t, model.IsValidationError(err))

	a.Seed([]Message{
		{Role: RoleUser, Content: "Earlier question"},
		{Role: RoleSystem, Content: "ignored"},
		{Role: RoleAssistant, Content: "Earlier answer"},
		{Role: RoleUser, Content: " "},
	})
	_, err = a.Chat(context.Background(), "follow up")
	require.NoError(t, err)
}

func TestConversationContextTrimming(t *testing.T) {
	c := NewConversationContext(4)
	c.AddMessage(Message{Role: RoleUser, Content: "first"})
	c.AddMessage(Message{Role: RoleAssistant, Content: "calling", toolCalls: []toolCall{{ID: "x"}}})
	c.AddMessage(Message{Role: RoleTool, Content: "result", toolCallID: "x"})
	c.AddMessage(Message{Role: RoleAssistant, Content: "answer"})
	c.AddMessage(Message{Role: RoleUser, Content: "next"})

	got := c.GetMessages()
	contents := make([]string, len(got))
	for i, m := range got {
		contents[i] = m.Content
	}
	// The first message survives and the orphaned tool result is dropped.
	assert.Equal(t, []string{"first", "answer", "next"}, contents)

	c.Reset()
	assert.Zero(t, c.Len())
}

func TestErrorMessageTruncates(t *testing.T) {
	long := strings.Repeat("x", maxErrorBody+100)
	assert.Len(t, errorMessage([]byte(long)), maxErrorBody)
}
