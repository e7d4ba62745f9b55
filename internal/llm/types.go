package llm

// Wire types for the OpenAI-compatible chat completions API.

type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is the gateway-level call description. Operation labels the
// usage counters only.
type Request struct {
	Operation      string
	Messages       []Message
	Tools          []Tool
	ResponseFormat *ResponseFormat
	Temperature    *float64
	MaxTokens      *int
}

// Result is a normalized non-streaming model response.
type Result struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage
}

// StreamChunk is one delta of a streaming response.
type StreamChunk struct {
	Content string `json:"content"`
	IsEnd   bool   `json:"isEnd"`
	Error   string `json:"error,omitempty"`
}
