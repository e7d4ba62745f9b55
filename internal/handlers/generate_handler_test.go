package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/venkateshh-srs/ZLearn-sub000/internal/llm"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// scriptedGateway counts calls and serves canned responses, so tests can
// assert that bad input never reaches the model.
type scriptedGateway struct {
	mu      sync.Mutex
	invokes int
	respond func(req llm.Request) (*llm.Result, error)
	chunks  []llm.StreamChunk
}

func (g *scriptedGateway) Invoke(_ context.Context, req llm.Request) (*llm.Result, error) {
	g.mu.Lock()
	g.invokes++
	g.mu.Unlock()
	if g.respond == nil {
		return &llm.Result{}, nil
	}
	return g.respond(req)
}

func (g *scriptedGateway) InvokeStream(_ context.Context, _ []llm.Message, out chan<- llm.StreamChunk) {
	defer close(out)
	for _, chunk := range g.chunks {
		out <- chunk
	}
}

func (g *scriptedGateway) invokeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.invokes
}

func newGenerateRouter(gw *scriptedGateway) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewGenerateHandler(
		service.NewCourseService(gw),
		service.NewChatService(gw, nil),
		service.NewQuizService(gw),
		gw,
		nil,
	)
	r := gin.New()
	r.POST("/generate-course", h.GenerateCourse)
	r.POST("/chat", h.Chat)
	r.POST("/generate-quiz", h.GenerateQuiz)
	r.POST("/stream-response", h.StreamResponse)
	r.POST("/get-another-image", h.GetAnotherImage)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateCourseRejectsBlankTopicBeforeModelCall(t *testing.T) {
	gw := &scriptedGateway{}
	r := newGenerateRouter(gw)

	for _, body := range []string{`{}`, `{"topic": ""}`, `{"topic": "   "}`} {
		w := postJSON(t, r, "/generate-course", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d", body, w.Code)
		}
	}
	if gw.invokeCount() != 0 {
		t.Errorf("model was called %d times for invalid input", gw.invokeCount())
	}
}

func TestChatRequiresTopicAndMessages(t *testing.T) {
	gw := &scriptedGateway{}
	r := newGenerateRouter(gw)

	tests := []string{
		`{"formattedMessages": [{"role": "user", "content": "hi"}]}`,
		`{"currentTopicName": "Photosynthesis"}`,
		`{"currentTopicName": "Photosynthesis", "formattedMessages": []}`,
	}
	for _, body := range tests {
		w := postJSON(t, r, "/chat", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d", body, w.Code)
		}
	}
	if gw.invokeCount() != 0 {
		t.Errorf("model was called %d times for invalid input", gw.invokeCount())
	}
}

func TestChatEnvelopeShape(t *testing.T) {
	gw := &scriptedGateway{respond: func(req llm.Request) (*llm.Result, error) {
		switch req.Operation {
		case "chat":
			return &llm.Result{Text: "Light powers the reaction."}, nil
		case "followup":
			return &llm.Result{Text: `{"show":true,"prompts":["What is ATP?"]}`}, nil
		}
		return &llm.Result{}, nil
	}}
	r := newGenerateRouter(gw)

	w := postJSON(t, r, "/chat", `{
		"currentTopicName": "Photosynthesis",
		"formattedMessages": [{"role": "user", "content": "explain"}]
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Message struct {
			Message      string          `json:"message"`
			Image        *string         `json:"image"`
			ImageContext json.RawMessage `json:"imageContext"`
		} `json:"message"`
		Followup struct {
			Show    bool     `json:"show"`
			Prompts []string `json:"prompts"`
		} `json:"followup"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if !resp.Success || resp.Message.Message != "Light powers the reaction." {
		t.Errorf("envelope = %+v", resp)
	}
	if resp.Message.Image != nil {
		t.Error("image must be null when no tool call happened")
	}
	if !resp.Followup.Show || len(resp.Followup.Prompts) != 1 {
		t.Errorf("followup = %+v", resp.Followup)
	}
}

func TestGenerateQuizValidationHappensBeforeModelCall(t *testing.T) {
	gw := &scriptedGateway{}
	r := newGenerateRouter(gw)

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"quizType": "overall", "subtopics": ["a"]}`},
		{"zero count", `{"quizType": "overall", "title": "T", "subtopics": ["a"], "questionCount": 0}`},
		{"overall without subtopics", `{"quizType": "overall", "title": "T", "subtopics": []}`},
		{"subtopic without messages", `{"quizType": "subtopic", "title": "T"}`},
		{"unknown type", `{"quizType": "pop", "title": "T"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, r, "/generate-quiz", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, body %s", w.Code, w.Body.String())
			}
		})
	}
	if gw.invokeCount() != 0 {
		t.Errorf("model was called %d times for invalid input", gw.invokeCount())
	}
}

func TestGenerateQuizDefaultsQuestionCount(t *testing.T) {
	var prompt string
	gw := &scriptedGateway{respond: func(req llm.Request) (*llm.Result, error) {
		prompt = req.Messages[0].Content
		return &llm.Result{Text: `{"success":true,"message":"","questions":[
			{"id":1,"question":"q","options":["a","b","c","d"],"correct":0}
		]}`}, nil
	}}
	r := newGenerateRouter(gw)

	w := postJSON(t, r, "/generate-quiz", `{"quizType": "overall", "title": "T", "subtopics": ["a"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(prompt, "5 multiple-choice questions") {
		t.Errorf("prompt did not use the default count: %q", prompt)
	}
}

func TestGenerateQuizModelFailureEnvelope(t *testing.T) {
	gw := &scriptedGateway{respond: func(llm.Request) (*llm.Result, error) {
		return nil, context.DeadlineExceeded
	}}
	r := newGenerateRouter(gw)

	w := postJSON(t, r, "/generate-quiz", `{"quizType": "overall", "title": "T", "subtopics": ["a"]}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "deadline") {
		t.Errorf("raw error leaked: %s", w.Body.String())
	}
}

func TestStreamResponseFraming(t *testing.T) {
	gw := &scriptedGateway{chunks: []llm.StreamChunk{
		{Content: "Photo"},
		{Content: "synthesis"},
		{IsEnd: true},
	}}
	r := newGenerateRouter(gw)

	w := postJSON(t, r, "/stream-response", `{"messages": [{"role": "user", "content": "go"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("content type = %q", got)
	}

	body := w.Body.String()
	if !strings.Contains(body, `"content":"Photo"`) || !strings.Contains(body, `"content":"synthesis"`) {
		t.Errorf("missing delta frames: %s", body)
	}
	if !strings.Contains(body, `"fullAnswer":"Photosynthesis"`) {
		t.Errorf("missing accumulated answer: %s", body)
	}
	if !strings.Contains(body, "data: [DONE]") {
		t.Errorf("missing terminal sentinel: %s", body)
	}

	doneIdx := strings.Index(body, "data: [DONE]")
	completeIdx := strings.Index(body, "answer_complete")
	if completeIdx == -1 || doneIdx < completeIdx {
		t.Error("answer_complete must precede [DONE]")
	}
}

func TestStreamResponseErrorFrame(t *testing.T) {
	gw := &scriptedGateway{chunks: []llm.StreamChunk{
		{Content: "partial"},
		{IsEnd: true, Error: "upstream exploded"},
	}}
	r := newGenerateRouter(gw)

	w := postJSON(t, r, "/stream-response", `{"messages": [{"role": "user", "content": "go"}]}`)
	body := w.Body.String()
	if !strings.Contains(body, `"content":"partial"`) {
		t.Errorf("partial text must not be retracted: %s", body)
	}
	if !strings.Contains(body, `"message":"Streaming failed"`) {
		t.Errorf("missing generic error frame: %s", body)
	}
	if strings.Contains(body, "upstream exploded") {
		t.Errorf("raw error leaked: %s", body)
	}
}

func TestGetAnotherImageNullResult(t *testing.T) {
	// Model produces an empty query, so no lookup happens and the result is
	// an explicit null.
	gw := &scriptedGateway{respond: func(llm.Request) (*llm.Result, error) {
		return &llm.Result{Text: "  "}, nil
	}}
	r := newGenerateRouter(gw)

	w := postJSON(t, r, "/get-another-image", `{"messages": [{"role": "user", "content": "another"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if url, present := resp["imageUrl"]; !present || url != nil {
		t.Errorf("imageUrl = %v", resp)
	}
}

func TestGetAnotherImageModelFailure(t *testing.T) {
	gw := &scriptedGateway{respond: func(llm.Request) (*llm.Result, error) {
		return nil, context.DeadlineExceeded
	}}
	r := newGenerateRouter(gw)

	w := postJSON(t, r, "/get-another-image", `{"messages": [{"role": "user", "content": "another"}]}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}
