package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/venkateshh-srs/ZLearn-sub000/internal/llm"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/models"
)

const DefaultQuestionCount = 5

// Quiz types map to the three quiz scopes: a single subtopic grounded in
// chat context, a single topic from its subtopic names, or the whole course.
const (
	QuizTypeSubtopic = "subtopic"
	QuizTypeTopic    = "topic"
	QuizTypeOverall  = "overall"
)

type QuizRequest struct {
	QuizType      string
	Title         string
	Subtopics     []string
	QuestionCount int
	Messages      []ChatTurn
}

// QuizOutcome mirrors the quiz envelope. Errors holds local schema-validation
// failures; Err holds the underlying gateway error, logged but never shown
// verbatim to users.
type QuizOutcome struct {
	Success   bool
	Message   string
	Questions []models.QuizQuestion
	Errors    []string
	Err       error
}

type QuizService struct {
	Gateway llm.Invoker
}

func NewQuizService(gateway llm.Invoker) *QuizService {
	return &QuizService{Gateway: gateway}
}

var quizSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"success": map[string]any{"type": "boolean"},
		"message": map[string]any{"type": "string"},
		"questions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":       map[string]any{"type": "integer"},
					"question": map[string]any{"type": "string"},
					"options": map[string]any{
						"type":     "array",
						"items":    map[string]any{"type": "string"},
						"minItems": 4,
						"maxItems": 4,
					},
					"correct": map[string]any{"type": "integer", "minimum": 0, "maximum": 3},
				},
				"required": []string{"id", "question", "options", "correct"},
			},
		},
	},
	"required": []string{"success", "message", "questions"},
}

type quizPayload struct {
	Success   bool                  `json:"success"`
	Message   string                `json:"message"`
	Questions []models.QuizQuestion `json:"questions"`
}

// Validate rejects bad requests before any model call is made.
func (s *QuizService) Validate(req QuizRequest) error {
	if req.Title == "" {
		return errors.New("title is required")
	}
	if req.QuestionCount <= 0 {
		return errors.New("questionCount must be a positive number")
	}
	switch req.QuizType {
	case QuizTypeSubtopic:
		if len(req.Messages) == 0 {
			return errors.New("subtopic quizzes require the chat messages to draw from")
		}
	case QuizTypeTopic, QuizTypeOverall:
		if len(req.Subtopics) == 0 {
			return fmt.Errorf("%s quizzes require at least one subtopic name", req.QuizType)
		}
	default:
		return fmt.Errorf("unknown quizType %q", req.QuizType)
	}
	return nil
}

// Generate issues the quiz-generation call and re-validates the result shape
// locally. This is the one place local schema re-validation is load-bearing:
// the UI renders deterministically only when every question has exactly four
// options and a valid correct index.
func (s *QuizService) Generate(ctx context.Context, req QuizRequest) *QuizOutcome {
	var messages []llm.Message
	if len(req.Messages) > 0 {
		messages = append(
			[]llm.Message{{Role: "system", Content: fmt.Sprintf(quizFromConversationPrompt, req.Title, req.QuestionCount)}},
			WireMessages(req.Messages)...,
		)
	} else {
		prompt := fmt.Sprintf(quizFromNamesPrompt, req.Title, strings.Join(req.Subtopics, ", "), req.QuestionCount)
		messages = []llm.Message{
			{Role: "system", Content: prompt},
			{Role: "user", Content: "Generate the quiz."},
		}
	}

	result, err := s.Gateway.Invoke(ctx, llm.Request{
		Operation: "quiz",
		Messages:  messages,
		ResponseFormat: &llm.ResponseFormat{
			Type: "json_schema",
			JSONSchema: &llm.JSONSchema{
				Name:   "quiz",
				Strict: true,
				Schema: quizSchema,
			},
		},
	})
	if err != nil {
		return &QuizOutcome{
			Success: false,
			Message: "An unexpected error occurred while generating the quiz.",
			Err:     err,
		}
	}

	var payload quizPayload
	if err := json.Unmarshal([]byte(result.Text), &payload); err != nil {
		return &QuizOutcome{
			Success: false,
			Message: "An unexpected error occurred while generating the quiz.",
			Err:     fmt.Errorf("quiz response is not valid JSON: %v", err),
		}
	}

	if !payload.Success {
		return &QuizOutcome{Success: false, Message: payload.Message}
	}

	if errs := models.ValidateQuestions(payload.Questions); len(errs) > 0 {
		return &QuizOutcome{
			Success: false,
			Message: "Generated quiz did not match the expected format.",
			Errors:  errs,
		}
	}

	return &QuizOutcome{Success: true, Message: payload.Message, Questions: payload.Questions}
}
