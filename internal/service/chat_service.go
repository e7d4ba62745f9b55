package service

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/venkateshh-srs/ZLearn-sub000/internal/images"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/llm"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/models"

	"golang.org/x/sync/errgroup"
)

const chatErrorMessage = "Error processing your request."

const fetchImageToolName = "fetch_educational_image"

// ChatTurn is one prior message as sent by the client, already filtered to
// exclude placeholder/thinking entries.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatAnswer is the answer-engine envelope. Image is nil when no image was
// fetched; ImageContext carries the reconstructed tool turn pair.
type ChatAnswer struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message"`
	Image        *string              `json:"image"`
	ImageContext *models.ImageContext `json:"imageContext"`
}

type FollowupResult struct {
	Show    bool     `json:"show"`
	Prompts []string `json:"prompts"`
}

type ChatService struct {
	Gateway llm.Invoker
	Images  *images.Service
}

func NewChatService(gateway llm.Invoker, imageService *images.Service) *ChatService {
	return &ChatService{Gateway: gateway, Images: imageService}
}

var fetchImageTool = llm.Tool{
	Type: "function",
	Function: llm.ToolFunction{
		Name:        fetchImageToolName,
		Description: "Fetch an educational image for a keyword query related to the current subject.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Short keyword query describing the image to fetch.",
				},
			},
			"required": []string{"query"},
		},
	},
}

var followupSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"show": map[string]any{"type": "boolean"},
		"prompts": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required": []string{"show", "prompts"},
}

// WireMessages maps client roles onto the gateway's turn format.
func WireMessages(turns []ChatTurn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := t.Role
		switch role {
		case "model", "assistant":
			role = "assistant"
		case "system":
			role = "system"
		default:
			role = "user"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Content})
	}
	return msgs
}

// SystemPrompt builds the system turn for the answer engine. A non-empty
// custom template takes precedence over the default; both go through the
// allow-listed slot substitution.
func SystemPrompt(topicName string, topics []models.Topic, customPrompt string) string {
	template := defaultChatSystemPrompt
	if customPrompt != "" {
		template = customPrompt
	}
	return RenderPromptTemplate(template, map[string]string{
		"topic":             topicName,
		"topicsNames":       strings.Join(models.TopicNames(topics), ", "),
		"allSubtopicsNames": strings.Join(models.AllSubtopicNames(topics), ", "),
	})
}

// Answer runs one answer-engine call. Gateway failures never propagate; they
// degrade to a success:false envelope with a generic message.
func (s *ChatService) Answer(ctx context.Context, turns []ChatTurn, topicName string, topics []models.Topic, customPrompt string) *ChatAnswer {
	messages := append(
		[]llm.Message{{Role: "system", Content: SystemPrompt(topicName, topics, customPrompt)}},
		WireMessages(turns)...,
	)

	result, err := s.Gateway.Invoke(ctx, llm.Request{
		Operation: "chat",
		Messages:  messages,
		Tools:     []llm.Tool{fetchImageTool},
	})
	if err != nil {
		log.Printf("Answer engine call failed: %v", err)
		return &ChatAnswer{Success: false, Message: chatErrorMessage}
	}

	answer := &ChatAnswer{Success: true, Message: result.Text}

	for _, call := range result.ToolCalls {
		if call.Function.Name != fetchImageToolName {
			continue
		}
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			log.Printf("Bad %s arguments: %v", fetchImageToolName, err)
			continue
		}

		// The tool result is returned directly without a second model
		// round-trip; the reconstructed turn pair lets the model remember
		// the fetch on later turns.
		imageURL := s.Images.Search(ctx, args.Query)
		if imageURL != "" {
			answer.Image = &imageURL
		}
		now := time.Now().UnixMilli()
		answer.ImageContext = &models.ImageContext{
			Call: models.Message{
				ID:       now,
				Role:     "model",
				Kind:     models.MessageKindToolInvocation,
				ToolCall: &models.ToolCallRecord{Name: fetchImageToolName, Arguments: call.Function.Arguments},
			},
			Response: models.Message{
				ID:           now + 1,
				Role:         "function",
				Kind:         models.MessageKindToolResult,
				ToolResponse: &models.ToolResponseRecord{Name: fetchImageToolName, Result: imageURL},
			},
		}
		break
	}

	return answer
}

// Followups runs the follow-up suggestion call. Failures degrade to a hidden
// empty set and never block the main answer.
func (s *ChatService) Followups(ctx context.Context, turns []ChatTurn) FollowupResult {
	messages := append(
		[]llm.Message{{Role: "system", Content: followupSystemPrompt}},
		WireMessages(turns)...,
	)

	result, err := s.Gateway.Invoke(ctx, llm.Request{
		Operation: "followup",
		Messages:  messages,
		ResponseFormat: &llm.ResponseFormat{
			Type: "json_schema",
			JSONSchema: &llm.JSONSchema{
				Name:   "followup_prompts",
				Strict: true,
				Schema: followupSchema,
			},
		},
	})
	if err != nil {
		log.Printf("Follow-up engine call failed: %v", err)
		return FollowupResult{Show: false, Prompts: []string{}}
	}

	var followup FollowupResult
	if err := json.Unmarshal([]byte(result.Text), &followup); err != nil {
		log.Printf("Follow-up response is not valid JSON: %v", err)
		return FollowupResult{Show: false, Prompts: []string{}}
	}

	if len(followup.Prompts) > 4 {
		followup.Prompts = followup.Prompts[:4]
	}
	for i, p := range followup.Prompts {
		if runes := []rune(p); len(runes) > 80 {
			followup.Prompts[i] = string(runes[:80])
		}
	}
	if followup.Prompts == nil {
		followup.Prompts = []string{}
	}
	return followup
}

// Respond runs the answer engine and the follow-up engine concurrently and
// joins their results. The two calls are independent; neither waits on the
// other's side effects. An off-topic answer suppresses follow-ups regardless
// of what the follow-up engine produced.
func (s *ChatService) Respond(ctx context.Context, turns []ChatTurn, topicName string, topics []models.Topic, customPrompt string) (*ChatAnswer, FollowupResult) {
	var answer *ChatAnswer
	followup := FollowupResult{Show: false, Prompts: []string{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		answer = s.Answer(gctx, turns, topicName, topics, customPrompt)
		return nil
	})
	g.Go(func() error {
		followup = s.Followups(gctx, turns)
		return nil
	})
	g.Wait()

	if !answer.Success || answer.Message == OffTopicReply(topicName) {
		followup = FollowupResult{Show: false, Prompts: []string{}}
	}
	return answer, followup
}

// AnotherImage derives a fresh keyword query from the conversation and
// fetches a new image for it. The derived query failing or the lookup coming
// back empty both yield "".
func (s *ChatService) AnotherImage(ctx context.Context, turns []ChatTurn) (string, error) {
	messages := append(
		[]llm.Message{{Role: "system", Content: imageQueryPrompt}},
		WireMessages(turns)...,
	)

	result, err := s.Gateway.Invoke(ctx, llm.Request{
		Operation: "image-query",
		Messages:  messages,
	})
	if err != nil {
		return "", err
	}

	query := strings.TrimSpace(result.Text)
	if query == "" {
		return "", nil
	}
	return s.Images.Search(ctx, query), nil
}
