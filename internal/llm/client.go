package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/venkateshh-srs/ZLearn-sub000/internal/metrics"
)

// Invoker is the gateway contract the generator services depend on.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Result, error)
	InvokeStream(ctx context.Context, messages []Message, out chan<- StreamChunk)
}

type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Model      string
	Sink       metrics.UsageSink
}

func NewClient(baseURL, apiKey, model string, sink metrics.UsageSink) *Client {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Client{
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second, // LLM responses can be slow
		},
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Sink:    sink,
	}
}

// IsConnected probes the provider's model listing. Health checks must not
// inherit the long completion timeout.
func (c *Client) IsConnected() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/models", nil)
	if err != nil {
		return false
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == 200
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Stream         bool            `json:"stream"`
	Tools          []Tool          `json:"tools,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

type streamingResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) Invoke(ctx context.Context, req Request) (*Result, error) {
	payload := chatCompletionRequest{
		Model:          c.Model,
		Messages:       req.Messages,
		Stream:         false,
		Tools:          req.Tools,
		ResponseFormat: req.ResponseFormat,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" && c.APIKey != "none" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("LLM API error (status %d): %s", resp.StatusCode, string(body))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, fmt.Errorf("failed to parse response: %v", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	c.Sink.ObserveUsage(req.Operation, completion.Usage.PromptTokens, completion.Usage.CompletionTokens)

	choice := completion.Choices[0]
	return &Result{
		Text:      choice.Message.Content,
		ToolCalls: choice.Message.ToolCalls,
		Usage:     completion.Usage,
	}, nil
}

// InvokeStream issues a streaming chat completion and forwards text deltas
// to out. The channel is always closed before returning; failures are
// reported as a terminal chunk carrying an error string.
func (c *Client) InvokeStream(ctx context.Context, messages []Message, out chan<- StreamChunk) {
	defer close(out)

	// The consumer stops reading once it sees cancellation, so every send
	// must also watch ctx or the goroutine leaks on client abort.
	send := func(chunk StreamChunk) bool {
		select {
		case out <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	payload := chatCompletionRequest{
		Model:    c.Model,
		Messages: messages,
		Stream:   true,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		send(StreamChunk{IsEnd: true, Error: fmt.Sprintf("failed to marshal request: %v", err)})
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		send(StreamChunk{IsEnd: true, Error: fmt.Sprintf("failed to create request: %v", err)})
		return
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	if c.APIKey != "" && c.APIKey != "none" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		send(StreamChunk{IsEnd: true, Error: fmt.Sprintf("streaming request failed: %v", err)})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		send(StreamChunk{IsEnd: true, Error: fmt.Sprintf("LLM API error (status %d): %s", resp.StatusCode, string(body))})
		return
	}

	c.Sink.ObserveUsage("stream", 0, 0)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := line[6:]
		if data == "[DONE]" {
			send(StreamChunk{IsEnd: true})
			return
		}

		var streamResp streamingResponse
		if err := json.Unmarshal([]byte(data), &streamResp); err != nil {
			log.Printf("Failed to parse streaming response: %v", err)
			continue
		}

		if len(streamResp.Choices) == 0 {
			continue
		}
		if content := streamResp.Choices[0].Delta.Content; content != "" {
			if !send(StreamChunk{Content: content}) {
				return
			}
		}
		if streamResp.Choices[0].FinishReason != nil {
			send(StreamChunk{IsEnd: true})
			return
		}
	}

	if err := scanner.Err(); err != nil {
		send(StreamChunk{IsEnd: true, Error: fmt.Sprintf("error reading streaming response: %v", err)})
		return
	}

	// Upstream closed without [DONE]; still signal completion.
	send(StreamChunk{IsEnd: true})
}
