package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu         sync.Mutex
	operations []string
	prompt     int
	completion int
}

func (s *recordingSink) ObserveUsage(operation string, promptTokens, completionTokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations = append(s.operations, operation)
	s.prompt += promptTokens
	s.completion += completionTokens
}

func TestInvokeParsesChoiceAndRecordsUsage(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
		}`))
	}))
	defer server.Close()

	sink := &recordingSink{}
	client := NewClient(server.URL, "test-key", "test-model", sink)

	result, err := client.Invoke(context.Background(), Request{
		Operation: "chat",
		Messages:  []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if result.Text != "hello" {
		t.Errorf("text = %q", result.Text)
	}
	if result.Usage.PromptTokens != 12 || result.Usage.CompletionTokens != 7 {
		t.Errorf("usage = %+v", result.Usage)
	}

	if captured["model"] != "test-model" {
		t.Errorf("request model = %v", captured["model"])
	}
	if captured["stream"] != false {
		t.Error("non-streaming call must set stream=false")
	}

	if len(sink.operations) != 1 || sink.operations[0] != "chat" {
		t.Errorf("sink operations = %v", sink.operations)
	}
	if sink.prompt != 12 || sink.completion != 7 {
		t.Errorf("sink tokens = %d/%d", sink.prompt, sink.completion)
	}
}

func TestInvokeParsesToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"choices": [{"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "fetch_educational_image", "arguments": "{\"query\":\"leaf cross section\"}"}}]
			}, "finish_reason": "tool_calls"}],
			"usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "none", "m", nil)
	result, err := client.Invoke(context.Background(), Request{Operation: "chat"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls", len(result.ToolCalls))
	}
	call := result.ToolCalls[0]
	if call.Function.Name != "fetch_educational_image" {
		t.Errorf("tool name = %q", call.Function.Name)
	}
	if call.Function.Arguments != `{"query":"leaf cross section"}` {
		t.Errorf("arguments = %q", call.Function.Arguments)
	}
}

func TestInvokeErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"non-200 status",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			},
		},
		{
			"empty choices",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices": [], "usage": {}}`))
			},
		},
		{
			"garbage body",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(server.URL, "", "m", nil)
			if _, err := client.Invoke(context.Background(), Request{Operation: "chat"}); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func collectChunks(t *testing.T, out <-chan StreamChunk) []StreamChunk {
	t.Helper()
	var chunks []StreamChunk
	deadline := time.After(5 * time.Second)
	for {
		select {
		case chunk, ok := <-out:
			if !ok {
				return chunks
			}
			chunks = append(chunks, chunk)
		case <-deadline:
			t.Fatal("stream did not finish in time")
		}
	}
}

func TestInvokeStreamDeliversDeltasUntilDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Photo\"}}]}\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"synthesis\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "m", nil)
	out := make(chan StreamChunk)
	go client.InvokeStream(context.Background(), []Message{{Role: "user", Content: "go"}}, out)

	chunks := collectChunks(t, out)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks: %+v", len(chunks), chunks)
	}
	if chunks[0].Content != "Photo" || chunks[1].Content != "synthesis" {
		t.Errorf("contents = %q, %q", chunks[0].Content, chunks[1].Content)
	}
	last := chunks[2]
	if !last.IsEnd || last.Error != "" {
		t.Errorf("terminal chunk = %+v", last)
	}
}

func TestInvokeStreamStopsOnFinishReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"done\"},\"finish_reason\":\"stop\"}]}\n\n"))
		// Anything after finish_reason must be ignored.
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"extra\"}}]}\n\n"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "m", nil)
	out := make(chan StreamChunk)
	go client.InvokeStream(context.Background(), nil, out)

	chunks := collectChunks(t, out)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks: %+v", len(chunks), chunks)
	}
	if chunks[0].Content != "done" {
		t.Errorf("content = %q", chunks[0].Content)
	}
	if !chunks[1].IsEnd {
		t.Error("finish_reason must terminate the stream")
	}
}

func TestInvokeStreamReportsUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "m", nil)
	out := make(chan StreamChunk)
	go client.InvokeStream(context.Background(), nil, out)

	chunks := collectChunks(t, out)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks: %+v", len(chunks), chunks)
	}
	if !chunks[0].IsEnd || chunks[0].Error == "" {
		t.Errorf("terminal chunk = %+v", chunks[0])
	}
}

func TestInvokeStreamReturnsWhenConsumerAbandonsAfterCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n"))
		flusher.Flush()
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"second\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(server.URL, "", "m", nil)
	out := make(chan StreamChunk)
	done := make(chan struct{})
	go func() {
		client.InvokeStream(ctx, nil, out)
		close(done)
	}()

	select {
	case chunk := <-out:
		if chunk.Content != "first" {
			t.Fatalf("chunk = %+v", chunk)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no first chunk")
	}

	// A disconnected client cancels and never reads again; the stream
	// goroutine must still return instead of blocking on its next send.
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream goroutine did not return after cancellation")
	}
}

func TestIsConnected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	if !NewClient(server.URL, "", "m", nil).IsConnected() {
		t.Error("reachable provider must report connected")
	}
	if NewClient("http://127.0.0.1:1", "", "m", nil).IsConnected() {
		t.Error("unreachable provider must report disconnected")
	}
}

func TestInvokeStreamHonorsCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n"))
		flusher.Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(server.URL, "", "m", nil)
	out := make(chan StreamChunk)
	go client.InvokeStream(ctx, nil, out)

	select {
	case chunk := <-out:
		if chunk.Content != "first" {
			t.Fatalf("chunk = %+v", chunk)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no first chunk")
	}

	cancel()

	// After cancellation the channel must close without hanging.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}
