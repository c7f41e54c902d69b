package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nhle/studytrack/internal/model"
)

// Difficulty levels for quizzes and topic analyses.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

const (
	defaultQuestionCount = 5
	maxQuestionCount     = 20
	minQuizOptions       = 2
)

// QuizQuestion is one multiple-choice question. CorrectAnswer indexes
// Options.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// QuizRequest describes the quiz to generate.
type QuizRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"questionCount"`
}

var generateQuizFunction = functionDef{
	Name:        "generate_quiz",
	Description: "Generate a multiple-choice study quiz",
	Parameters: json.RawMessage(`{
		"type": "object",
		"properties": {
			"questions": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"question": {"type": "string"},
						"options": {"type": "array", "items": {"type": "string"}},
						"correctAnswer": {"type": "integer"},
						"explanation": {"type": "string"}
					},
					"required": ["question", "options", "correctAnswer", "explanation"]
				}
			}
		},
		"required": ["questions"]
	}`),
}

// normalize validates the request and fills in defaults.
func (r QuizRequest) normalize() (QuizRequest, error) {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Topic == "" {
		return r, &model.ValidationError{Field: "topic", Message: "must not be empty"}
	}

	switch strings.ToLower(r.Difficulty) {
	case "":
		r.Difficulty = DifficultyIntermediate
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		r.Difficulty = strings.ToLower(r.Difficulty)
	default:
		return r, &model.ValidationError{Field: "difficulty", Message: fmt.Sprintf("unknown difficulty %q", r.Difficulty)}
	}

	if r.Count <= 0 {
		r.Count = defaultQuestionCount
	}
	if r.Count > maxQuestionCount {
		r.Count = maxQuestionCount
	}
	return r, nil
}

// GenerateQuiz asks the model for a multiple-choice quiz on a topic.
func (c *Client) GenerateQuiz(ctx context.Context, req QuizRequest) ([]QuizQuestion, error) {
	req, err := req.normalize()
	if err != nil {
		return nil, err
	}

	system := "You are a helpful teacher who writes clear multiple-choice questions " +
		"with exactly one correct answer and a short explanation."
	user := fmt.Sprintf(
		"Write %d %s-level multiple-choice questions about %q. "+
			"Each question has four options; correctAnswer is the zero-based index of the right one.",
		req.Count, req.Difficulty, req.Topic)

	var out struct {
		Questions []QuizQuestion `json:"questions"`
	}
	if err := c.callFunction(ctx, system, user, generateQuizFunction, &out); err != nil {
		return nil, fmt.Errorf("generating quiz on %q: %w", req.Topic, err)
	}

	for i, q := range out.Questions {
		if len(q.Options) < minQuizOptions || q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return nil, fmt.Errorf("%w: quiz question %d has no valid answer", ErrMalformedResponse, i+1)
		}
	}
	if len(out.Questions) == 0 {
		return nil, fmt.Errorf("%w: empty quiz", ErrMalformedResponse)
	}
	return out.Questions, nil
}

// Score counts the answers that match the correct option. answers[i] is
// the chosen option of question i; missing answers count as wrong.
func Score(quiz []QuizQuestion, answers []int) int {
	var correct int
	for i, q := range quiz {
		if i < len(answers) && answers[i] == q.CorrectAnswer {
			correct++
		}
	}
	return correct
}
