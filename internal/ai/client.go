// Package ai talks to an OpenAI-compatible chat completions gateway to
// analyze tasks and study topics, generate quizzes, write weekly summaries
// and hold a study-assistant conversation.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/studytrack/internal/model"
)

const (
	DefaultBaseURL = "https://ai.gateway.lovable.dev/v1/chat/completions"
	DefaultModel   = "google/gemini-2.5-flash"
	defaultTimeout = 60 * time.Second

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 512

	// maxResponseBytes bounds how much of a gateway response is read.
	maxResponseBytes = 4 << 20
)

var (
	// ErrNoAPIKey is returned when the client has no API key configured.
	ErrNoAPIKey = errors.New("AI API key not configured")

	// ErrRateLimited is returned for HTTP 429 from the gateway.
	ErrRateLimited = errors.New("rate limit exceeded, please try again later")

	// ErrQuotaExhausted is returned for HTTP 402 from the gateway.
	ErrQuotaExhausted = errors.New("AI credits exhausted")

	// ErrMalformedResponse is returned when a 2xx response cannot be
	// interpreted.
	ErrMalformedResponse = fmt.Errorf("%w: malformed AI response", model.ErrUpstream)
)

// StatusError reports any other non-2xx response. It unwraps to
// model.ErrUpstream.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("AI gateway error (%d): %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return model.ErrUpstream
}

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is a chat completions client. Calls are never retried.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		http:    httpClient,
		logger:  logger.With("component", "ai"),
	}
}

// Model returns the model name sent with every request.
func (c *Client) Model() string {
	return c.model
}

// complete makes a single chat completions request and returns the first
// choice's message.
func (c *Client) complete(ctx context.Context, req chatRequest) (chatMessage, error) {
	if c.apiKey == "" {
		return chatMessage{}, ErrNoAPIKey
	}
	req.Model = c.model

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return chatMessage{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return chatMessage{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return chatMessage{}, fmt.Errorf("calling AI gateway: %w: %w", model.ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return chatMessage{}, fmt.Errorf("reading response: %w: %w", model.ErrUpstream, err)
	}
	if len(respBody) > maxResponseBytes {
		return chatMessage{}, fmt.Errorf("%w: response larger than %d bytes", ErrMalformedResponse, maxResponseBytes)
	}

	c.logger.Debug("AI gateway call", "status", resp.StatusCode, "elapsed", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return chatMessage{}, ErrRateLimited
	case resp.StatusCode == http.StatusPaymentRequired:
		return chatMessage{}, ErrQuotaExhausted
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Warn("AI gateway error", "status", resp.StatusCode)
		return chatMessage{}, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return chatMessage{}, fmt.Errorf("%w: decoding response: %v", ErrMalformedResponse, err)
	}
	if len(result.Choices) == 0 {
		return chatMessage{}, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	return result.Choices[0].Message, nil
}

// completeText runs a plain completion and returns the reply text.
func (c *Client) completeText(ctx context.Context, system, user string) (string, error) {
	msg, err := c.complete(ctx, chatRequest{
		Messages: []chatMessage{
			{Role: string(RoleSystem), Content: system},
			{Role: string(RoleUser), Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// callFunction forces the model to answer through fn and decodes the
// arguments into out.
func (c *Client) callFunction(ctx context.Context, system, user string, fn functionDef, out any) error {
	msg, err := c.complete(ctx, chatRequest{
		Messages: []chatMessage{
			{Role: string(RoleSystem), Content: system},
			{Role: string(RoleUser), Content: user},
		},
		Tools:      []tool{{Type: "function", Function: fn}},
		ToolChoice: forceFunction(fn.Name),
	})
	if err != nil {
		return err
	}

	for _, call := range msg.ToolCalls {
		if call.Function.Name != fn.Name {
			continue
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), out); err != nil {
			return fmt.Errorf("%w: decoding %s arguments: %v", ErrMalformedResponse, fn.Name, err)
		}
		return nil
	}
	return fmt.Errorf("%w: no %s tool call", ErrMalformedResponse, fn.Name)
}

// errorMessage extracts a readable message from an error response body.
func errorMessage(body []byte) string {
	var structured struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &structured) == nil && structured.Error.Message != "" {
		return structured.Error.Message
	}

	var plain struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &plain) == nil && plain.Error != "" {
		return plain.Error
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}

// --- Chat completions API types ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []tool        `json:"tools,omitempty"`
	ToolChoice  *toolChoice   `json:"tool_choice,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type tool struct {
	Type     string      `json:"type"`
	Function functionDef `json:"function"`
}

type functionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type toolChoice struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

func forceFunction(name string) *toolChoice {
	tc := &toolChoice{Type: "function"}
	tc.Function.Name = name
	return tc
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}
