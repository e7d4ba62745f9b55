package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/venkateshh-srs/ZLearn-sub000/internal/llm"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/models"
)

// OutlinePayload is the modeled outline envelope. A success:false payload is
// a modeled refusal (unsafe, inappropriate or too vague topic), not a local
// validation failure; tree shape is trusted to the model.
type OutlinePayload struct {
	Success      bool           `json:"success"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Introduction string         `json:"introduction"`
	Data         []models.Topic `json:"data"`
}

type CourseService struct {
	Gateway llm.Invoker
}

func NewCourseService(gateway llm.Invoker) *CourseService {
	return &CourseService{Gateway: gateway}
}

var outlineSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"success":      map[string]any{"type": "boolean"},
		"title":        map[string]any{"type": "string"},
		"message":      map[string]any{"type": "string"},
		"introduction": map[string]any{"type": "string"},
		"data": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":   map[string]any{"type": "string"},
					"name": map[string]any{"type": "string"},
					"subtopics": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"id":   map[string]any{"type": "string"},
								"name": map[string]any{"type": "string"},
								"subSubtopics": map[string]any{
									"type": "array",
									"items": map[string]any{
										"type": "object",
										"properties": map[string]any{
											"id":   map[string]any{"type": "string"},
											"name": map[string]any{"type": "string"},
										},
										"required": []string{"id", "name"},
									},
								},
							},
							"required": []string{"id", "name"},
						},
					},
				},
				"required": []string{"id", "name", "subtopics"},
			},
		},
	},
	"required": []string{"success", "title", "message", "introduction", "data"},
}

// GenerateOutline asks the model for a course outline on the given topic.
// A non-nil error means generation itself failed (transport or unparseable
// structured output); modeled refusals come back as a payload with
// success=false.
func (s *CourseService) GenerateOutline(ctx context.Context, topic string) (*OutlinePayload, error) {
	req := llm.Request{
		Operation: "outline",
		Messages: []llm.Message{
			{Role: "system", Content: outlineSystemPrompt},
			{Role: "user", Content: "Create a course outline for the topic: " + topic},
		},
		ResponseFormat: &llm.ResponseFormat{
			Type: "json_schema",
			JSONSchema: &llm.JSONSchema{
				Name:   "course_outline",
				Strict: true,
				Schema: outlineSchema,
			},
		},
	}

	result, err := s.Gateway.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	var payload OutlinePayload
	if err := json.Unmarshal([]byte(result.Text), &payload); err != nil {
		return nil, fmt.Errorf("outline response is not valid JSON: %v", err)
	}
	return &payload, nil
}
