package service

import (
	"context"
	"strings"
	"testing"

	"github.com/venkateshh-srs/ZLearn-sub000/internal/llm"
)

const photosynthesisOutlineJSON = `{
	"success": true,
	"title": "Photosynthesis",
	"message": "",
	"introduction": "Welcome to your course on photosynthesis. Select a subtopic from the sidebar to begin your learning journey.",
	"data": [
		{"id": "1", "name": "Foundations", "subtopics": [
			{"id": "1.1", "name": "Introduction to Foundations"},
			{"id": "1.2", "name": "Chloroplast Structure", "subSubtopics": [
				{"id": "1.2.1", "name": "Thylakoids"},
				{"id": "1.2.2", "name": "Stroma"}
			]},
			{"id": "1.3", "name": "Pigments"}
		]},
		{"id": "2", "name": "Light Reactions", "subtopics": [
			{"id": "2.1", "name": "Introduction to Light Reactions"},
			{"id": "2.2", "name": "Photosystems"},
			{"id": "2.3", "name": "Electron Transport"}
		]},
		{"id": "3", "name": "Calvin Cycle", "subtopics": [
			{"id": "3.1", "name": "Introduction to Calvin Cycle"},
			{"id": "3.2", "name": "Carbon Fixation"},
			{"id": "3.3", "name": "Regeneration"}
		]},
		{"id": "4", "name": "Limiting Factors", "subtopics": [
			{"id": "4.1", "name": "Introduction to Limiting Factors"},
			{"id": "4.2", "name": "Light Intensity"},
			{"id": "4.3", "name": "CO2 Concentration"}
		]},
		{"id": "5", "name": "Applications", "subtopics": [
			{"id": "5.1", "name": "Introduction to Applications"},
			{"id": "5.2", "name": "Agriculture"},
			{"id": "5.3", "name": "Artificial Photosynthesis"}
		]}
	]
}`

func TestGenerateOutline(t *testing.T) {
	gw := &fakeGateway{respond: func(llm.Request) (*llm.Result, error) {
		return &llm.Result{Text: photosynthesisOutlineJSON}, nil
	}}
	s := NewCourseService(gw)

	payload, err := s.GenerateOutline(context.Background(), "photosynthesis")
	if err != nil {
		t.Fatalf("GenerateOutline() error = %v", err)
	}
	if !payload.Success || payload.Title != "Photosynthesis" {
		t.Fatalf("payload = %+v", payload)
	}
	if len(payload.Data) < 5 || len(payload.Data) > 8 {
		t.Errorf("got %d topics, want 5 to 8", len(payload.Data))
	}
	for _, topic := range payload.Data {
		if len(topic.Subtopics) == 0 {
			t.Fatalf("topic %s has no subtopics", topic.ID)
		}
		first := topic.Subtopics[0]
		if !strings.HasPrefix(first.Name, "Introduction to ") {
			t.Errorf("topic %s first subtopic = %q, want an introduction", topic.ID, first.Name)
		}
		if len(first.SubSubtopics) != 0 {
			t.Errorf("topic %s introduction subtopic must be a leaf", topic.ID)
		}
	}
	if !strings.HasSuffix(payload.Introduction, CallToAction) {
		t.Errorf("introduction %q must end with the call to action", payload.Introduction)
	}

	req, ok := gw.requestFor("outline")
	if !ok {
		t.Fatal("no outline request recorded")
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_schema" {
		t.Error("outline call must request structured output")
	}
	if !strings.Contains(req.Messages[1].Content, "photosynthesis") {
		t.Errorf("user turn missing the topic: %q", req.Messages[1].Content)
	}
}

func TestGenerateOutlineModeledRefusal(t *testing.T) {
	gw := &fakeGateway{respond: func(llm.Request) (*llm.Result, error) {
		return &llm.Result{Text: `{"success":false,"title":"","message":"Topic is too vague.","introduction":"","data":[]}`}, nil
	}}
	s := NewCourseService(gw)

	payload, err := s.GenerateOutline(context.Background(), "stuff")
	if err != nil {
		t.Fatalf("a modeled refusal is not an error, got %v", err)
	}
	if payload.Success || payload.Message != "Topic is too vague." {
		t.Errorf("payload = %+v", payload)
	}
}

func TestGenerateOutlineInvalidJSON(t *testing.T) {
	gw := &fakeGateway{respond: func(llm.Request) (*llm.Result, error) {
		return &llm.Result{Text: "here is your outline:"}, nil
	}}
	s := NewCourseService(gw)

	if _, err := s.GenerateOutline(context.Background(), "photosynthesis"); err == nil {
		t.Fatal("expected an error for unparseable structured output")
	}
}

func TestGenerateOutlineGatewayError(t *testing.T) {
	gw := &fakeGateway{respond: func(llm.Request) (*llm.Result, error) {
		return nil, context.DeadlineExceeded
	}}
	s := NewCourseService(gw)

	if _, err := s.GenerateOutline(context.Background(), "photosynthesis"); err == nil {
		t.Fatal("expected the gateway error to propagate")
	}
}
