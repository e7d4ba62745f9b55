package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/venkateshh-srs/ZLearn-sub000/internal/event"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/llm"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/models"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/service"
	"github.com/venkateshh-srs/ZLearn-sub000/utils"

	"github.com/gin-gonic/gin"
)

// GenerateHandler serves the five generator endpoints. All model failures
// are normalized into success/failure envelopes; raw errors never reach the
// client.
type GenerateHandler struct {
	Courses   *service.CourseService
	Chats     *service.ChatService
	Quiz      *service.QuizService
	Gateway   llm.Invoker
	Publisher *event.EventPublisher
}

func NewGenerateHandler(courses *service.CourseService, chats *service.ChatService, quiz *service.QuizService, gateway llm.Invoker, publisher *event.EventPublisher) *GenerateHandler {
	return &GenerateHandler{
		Courses:   courses,
		Chats:     chats,
		Quiz:      quiz,
		Gateway:   gateway,
		Publisher: publisher,
	}
}

// POST /generate-course
func (h *GenerateHandler) GenerateCourse(c *gin.Context) {
	var request struct {
		Topic string `json:"topic"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}
	request.Topic = strings.TrimSpace(request.Topic)
	if request.Topic == "" {
		utils.BadRequestResponse(c, "Topic is required")
		return
	}

	payload, err := h.Courses.GenerateOutline(c.Request.Context(), request.Topic)
	if err != nil {
		log.Printf("Outline generation failed: %v", err)
		utils.BadRequestResponse(c, "Failed to generate course outline")
		return
	}

	h.Publisher.Publish("course.generated", gin.H{
		"topic":   request.Topic,
		"success": payload.Success,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payload,
	})
}

type chatRequest struct {
	FormattedMessages []service.ChatTurn `json:"formattedMessages"`
	CurrentTopicName  string             `json:"currentTopicName"`
	Topics            []models.Topic     `json:"topics"`
	CustomPrompt      string             `json:"customPrompt"`
}

// POST /chat
func (h *GenerateHandler) Chat(c *gin.Context) {
	var request chatRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}
	if strings.TrimSpace(request.CurrentTopicName) == "" {
		utils.BadRequestResponse(c, "currentTopicName is required")
		return
	}
	if len(request.FormattedMessages) == 0 {
		utils.BadRequestResponse(c, "formattedMessages is required")
		return
	}

	answer, followup := h.Chats.Respond(
		c.Request.Context(),
		request.FormattedMessages,
		request.CurrentTopicName,
		request.Topics,
		request.CustomPrompt,
	)

	h.Publisher.Publish("chat.message", gin.H{
		"topic":   request.CurrentTopicName,
		"success": answer.Success,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": answer.Success,
		"message": gin.H{
			"message":      answer.Message,
			"image":        answer.Image,
			"imageContext": answer.ImageContext,
		},
		"followup": followup,
	})
}

type quizRequest struct {
	QuizType      string             `json:"quizType"`
	Title         string             `json:"title"`
	Subtopics     []string           `json:"subtopics"`
	QuestionCount *int               `json:"questionCount"`
	Messages      []service.ChatTurn `json:"messages"`
}

// POST /generate-quiz
func (h *GenerateHandler) GenerateQuiz(c *gin.Context) {
	var request quizRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	questionCount := service.DefaultQuestionCount
	if request.QuestionCount != nil {
		questionCount = *request.QuestionCount
	}

	req := service.QuizRequest{
		QuizType:      request.QuizType,
		Title:         strings.TrimSpace(request.Title),
		Subtopics:     request.Subtopics,
		QuestionCount: questionCount,
		Messages:      request.Messages,
	}

	// Reject bad input before any model call is made.
	if err := h.Quiz.Validate(req); err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}

	outcome := h.Quiz.Generate(c.Request.Context(), req)
	if outcome.Err != nil {
		log.Printf("Quiz generation failed: %v", outcome.Err)
		utils.InternalErrorResponse(c, outcome.Message, nil)
		return
	}
	if !outcome.Success {
		// Schema-validation details go to the logs only; the client gets a
		// generic message.
		if len(outcome.Errors) > 0 {
			log.Printf("Quiz validation failed: %s", strings.Join(outcome.Errors, "; "))
		}
		c.JSON(http.StatusOK, gin.H{"success": false, "message": outcome.Message})
		return
	}

	h.Publisher.Publish("quiz.generated", gin.H{
		"quizType": request.QuizType,
		"title":    request.Title,
		"count":    len(outcome.Questions),
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"questions": outcome.Questions},
	})
}

type streamFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func newStreamFrame(content string) streamFrame {
	var frame streamFrame
	frame.Choices = make([]struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	}, 1)
	frame.Choices[0].Delta.Content = content
	return frame
}

// POST /stream-response
func (h *GenerateHandler) StreamResponse(c *gin.Context) {
	var request struct {
		Messages []service.ChatTurn `json:"messages"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}
	if len(request.Messages) == 0 {
		utils.BadRequestResponse(c, "messages is required")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	chunks := make(chan llm.StreamChunk)
	go h.Gateway.InvokeStream(c.Request.Context(), service.WireMessages(request.Messages), chunks)

	var fullAnswer strings.Builder
	c.Stream(func(w io.Writer) bool {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return false
			}
			if chunk.Error != "" {
				// Partial text already delivered is not retracted.
				data, _ := json.Marshal(gin.H{"type": "error", "message": "Streaming failed"})
				fmt.Fprintf(w, "data: %s\n\n", data)
				log.Printf("Stream error: %s", chunk.Error)
				return false
			}
			if chunk.IsEnd {
				data, _ := json.Marshal(gin.H{"type": "answer_complete", "fullAnswer": fullAnswer.String()})
				fmt.Fprintf(w, "data: %s\n\n", data)
				fmt.Fprint(w, "data: [DONE]\n\n")
				return false
			}
			fullAnswer.WriteString(chunk.Content)
			data, _ := json.Marshal(newStreamFrame(chunk.Content))
			fmt.Fprintf(w, "data: %s\n\n", data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// POST /get-another-image
func (h *GenerateHandler) GetAnotherImage(c *gin.Context) {
	var request struct {
		Messages []service.ChatTurn `json:"messages"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}
	if len(request.Messages) == 0 {
		utils.BadRequestResponse(c, "messages is required")
		return
	}

	imageURL, err := h.Chats.AnotherImage(c.Request.Context(), request.Messages)
	if err != nil {
		log.Printf("Image refresh failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch a new image"})
		return
	}

	if imageURL == "" {
		c.JSON(http.StatusOK, gin.H{"imageUrl": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imageUrl": imageURL})
}
