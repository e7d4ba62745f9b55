package handlers

import (
	"fmt"
	"log"
	"strings"

	"github.com/venkateshh-srs/ZLearn-sub000/internal/event"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/models"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/repository"
	"github.com/venkateshh-srs/ZLearn-sub000/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

type CourseHandler struct {
	Courses   *repository.CourseRepository
	History   *repository.HistoryRepository
	Publisher *event.EventPublisher
}

func NewCourseHandler(courses *repository.CourseRepository, history *repository.HistoryRepository, publisher *event.EventPublisher) *CourseHandler {
	return &CourseHandler{Courses: courses, History: history, Publisher: publisher}
}

func ownerID(c *gin.Context) string {
	return c.GetString("userID")
}

// newShareID produces the short public identifier used in shareable links,
// distinct from the internal Mongo id.
func newShareID() string {
	return strings.Split(uuid.NewString(), "-")[0]
}

// courseProgress summarizes a course in completable-subtopic units on both
// sides of the ratio.
func courseProgress(course *models.Course) models.CourseProgress {
	return models.CourseProgress{
		CourseID:           course.ShareID,
		Title:              course.Title,
		TotalSubtopics:     models.CompletableUnits(course.Topics),
		CompletedSubtopics: len(course.CompletedSubtopics),
	}
}

func (h *CourseHandler) touchHistory(c *gin.Context, course *models.Course) {
	if err := h.History.Touch(c.Request.Context(), ownerID(c), courseProgress(course)); err != nil {
		log.Printf("Failed to update learning history: %v", err)
	}
}

// POST /courses — persist a generated course for the signed-in user.
func (h *CourseHandler) SaveCourse(c *gin.Context) {
	var course models.Course
	if err := c.ShouldBindJSON(&course); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}
	if course.Title == "" || len(course.Topics) == 0 {
		utils.BadRequestResponse(c, "Course title and topics are required")
		return
	}

	course.OwnerID = ownerID(c)
	course.ShareID = newShareID()
	if err := h.Courses.Create(c.Request.Context(), &course); err != nil {
		log.Printf("Failed to save course: %v", err)
		utils.InternalErrorResponse(c, "Failed to save course", nil)
		return
	}

	h.touchHistory(c, &course)
	h.Publisher.Publish("course.saved", gin.H{"shareId": course.ShareID})

	utils.SuccessResponse(c, "Course saved", course)
}

// GET /courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.Courses.ListByOwner(c.Request.Context(), ownerID(c))
	if err != nil {
		log.Printf("Failed to list courses: %v", err)
		utils.InternalErrorResponse(c, "Failed to list courses", nil)
		return
	}
	utils.SuccessResponse(c, "Courses retrieved", courses)
}

// GET /courses/:shareId
func (h *CourseHandler) GetCourse(c *gin.Context) {
	course, err := h.Courses.FindOwned(c.Request.Context(), c.Param("shareId"), ownerID(c))
	if err != nil {
		utils.NotFoundResponse(c, "Course not found")
		return
	}
	h.touchHistory(c, course)
	utils.SuccessResponse(c, "Course retrieved", course)
}

// GET /shared/:shareId — read-only lookup behind the public share link.
func (h *CourseHandler) GetSharedCourse(c *gin.Context) {
	course, err := h.Courses.FindByShareID(c.Request.Context(), c.Param("shareId"))
	if err != nil {
		utils.NotFoundResponse(c, "Course not found")
		return
	}
	utils.SuccessResponse(c, "Course retrieved", course)
}

// DELETE /courses/:shareId
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	shareID := c.Param("shareId")
	if err := h.Courses.Delete(c.Request.Context(), shareID, ownerID(c)); err != nil {
		if err == mongo.ErrNoDocuments {
			utils.NotFoundResponse(c, "Course not found")
			return
		}
		log.Printf("Failed to delete course: %v", err)
		utils.InternalErrorResponse(c, "Failed to delete course", nil)
		return
	}
	if err := h.History.RemoveEntry(c.Request.Context(), ownerID(c), shareID); err != nil {
		log.Printf("Failed to remove history entry: %v", err)
	}
	h.Publisher.Publish("course.deleted", gin.H{"shareId": shareID})
	utils.SuccessResponse(c, "Course deleted", nil)
}

// PUT /courses/:shareId/thread/:topicId — replace one topic thread.
// Placeholder/thinking turns are never persisted.
func (h *CourseHandler) SaveThread(c *gin.Context) {
	var request struct {
		Messages []models.Message `json:"messages"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	persisted := make([]models.Message, 0, len(request.Messages))
	for _, m := range request.Messages {
		if m.Thinking {
			continue
		}
		persisted = append(persisted, m)
	}

	err := h.Courses.SaveThread(c.Request.Context(), c.Param("shareId"), ownerID(c), c.Param("topicId"), persisted)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.NotFoundResponse(c, "Course not found")
			return
		}
		log.Printf("Failed to save thread: %v", err)
		utils.InternalErrorResponse(c, "Failed to save thread", nil)
		return
	}
	utils.SuccessResponse(c, "Thread saved", nil)
}

// PUT /courses/:shareId/related/:topicId
func (h *CourseHandler) SaveRelatedTopics(c *gin.Context) {
	var request struct {
		Topics []string `json:"topics"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}
	err := h.Courses.SetRelatedTopics(c.Request.Context(), c.Param("shareId"), ownerID(c), c.Param("topicId"), request.Topics)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.NotFoundResponse(c, "Course not found")
			return
		}
		log.Printf("Failed to save related topics: %v", err)
		utils.InternalErrorResponse(c, "Failed to save related topics", nil)
		return
	}
	utils.SuccessResponse(c, "Related topics saved", nil)
}

// POST /courses/:shareId/complete — mark one subtopic complete. The
// completed set only grows; it is reduced only by deleting the course.
func (h *CourseHandler) CompleteSubtopic(c *gin.Context) {
	var request struct {
		SubtopicID string `json:"subtopicId"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.SubtopicID == "" {
		utils.BadRequestResponse(c, "subtopicId is required")
		return
	}

	shareID := c.Param("shareId")
	err := h.Courses.CompleteSubtopic(c.Request.Context(), shareID, ownerID(c), request.SubtopicID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.NotFoundResponse(c, "Course not found")
			return
		}
		log.Printf("Failed to complete subtopic: %v", err)
		utils.InternalErrorResponse(c, "Failed to complete subtopic", nil)
		return
	}

	if course, err := h.Courses.FindOwned(c.Request.Context(), shareID, ownerID(c)); err == nil {
		h.touchHistory(c, course)
	}
	h.Publisher.Publish("course.completed_subtopic", gin.H{
		"shareId":    shareID,
		"subtopicId": request.SubtopicID,
	})
	utils.SuccessResponse(c, "Subtopic marked complete", nil)
}

// PUT /courses/:shareId/current-chat — record the last-viewed node.
func (h *CourseHandler) SetCurrentChat(c *gin.Context) {
	var current models.CurrentChat
	if err := c.ShouldBindJSON(&current); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}
	err := h.Courses.SetCurrentChat(c.Request.Context(), c.Param("shareId"), ownerID(c), current)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.NotFoundResponse(c, "Course not found")
			return
		}
		log.Printf("Failed to set current chat: %v", err)
		utils.InternalErrorResponse(c, "Failed to set current chat", nil)
		return
	}
	utils.SuccessResponse(c, "Current chat updated", nil)
}

// PUT /courses/:shareId/quiz/:scope — store a freshly generated quiz,
// overwriting any previous quiz for the scope.
func (h *CourseHandler) SaveQuizResult(c *gin.Context) {
	scope := c.Param("scope")
	var request struct {
		Questions []models.QuizQuestion `json:"questions"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}
	if errs := models.ValidateQuestions(request.Questions); len(errs) > 0 {
		utils.BadRequestResponse(c, "Quiz questions are malformed")
		return
	}

	result := models.QuizResult{Questions: request.Questions}
	err := h.Courses.SaveQuizResult(c.Request.Context(), c.Param("shareId"), ownerID(c), scope, result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.NotFoundResponse(c, "Course not found")
			return
		}
		log.Printf("Failed to save quiz: %v", err)
		utils.InternalErrorResponse(c, "Failed to save quiz", nil)
		return
	}
	utils.SuccessResponse(c, "Quiz saved", nil)
}

// POST /courses/:shareId/quiz/:scope/submit — record answers and score.
func (h *CourseHandler) SubmitQuiz(c *gin.Context) {
	scope := c.Param("scope")
	var request struct {
		Answers map[string]int `json:"answers"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || len(request.Answers) == 0 {
		utils.BadRequestResponse(c, "answers is required")
		return
	}

	course, err := h.Courses.FindOwned(c.Request.Context(), c.Param("shareId"), ownerID(c))
	if err != nil {
		utils.NotFoundResponse(c, "Course not found")
		return
	}
	quiz, ok := course.QuizResults[scope]
	if !ok {
		utils.NotFoundResponse(c, fmt.Sprintf("No quiz generated for scope %q", scope))
		return
	}

	score := models.ScoreAnswers(quiz.Questions, request.Answers)
	err = h.Courses.SubmitQuizAnswers(c.Request.Context(), course.ShareID, ownerID(c), scope, request.Answers, score)
	if err != nil {
		log.Printf("Failed to submit quiz: %v", err)
		utils.InternalErrorResponse(c, "Failed to submit quiz", nil)
		return
	}

	h.Publisher.Publish("quiz.submitted", gin.H{
		"shareId": course.ShareID,
		"scope":   scope,
		"score":   score,
	})
	utils.SuccessResponse(c, "Quiz submitted", gin.H{"score": score, "total": len(quiz.Questions)})
}
