package handlers

import (
	"log"

	"github.com/venkateshh-srs/ZLearn-sub000/internal/repository"
	"github.com/venkateshh-srs/ZLearn-sub000/utils"

	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	History *repository.HistoryRepository
}

func NewHistoryHandler(history *repository.HistoryRepository) *HistoryHandler {
	return &HistoryHandler{History: history}
}

// GET /history — course-progress summaries, most recently accessed first.
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	history, err := h.History.Get(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		log.Printf("Failed to load history: %v", err)
		utils.InternalErrorResponse(c, "Failed to load history", nil)
		return
	}
	utils.SuccessResponse(c, "History retrieved", history.Courses)
}

// DELETE /history/:courseId
func (h *HistoryHandler) RemoveEntry(c *gin.Context) {
	err := h.History.RemoveEntry(c.Request.Context(), c.GetString("userID"), c.Param("courseId"))
	if err != nil {
		log.Printf("Failed to remove history entry: %v", err)
		utils.InternalErrorResponse(c, "Failed to remove history entry", nil)
		return
	}
	utils.SuccessResponse(c, "History entry removed", nil)
}

// DELETE /history
func (h *HistoryHandler) Clear(c *gin.Context) {
	if err := h.History.Clear(c.Request.Context(), c.GetString("userID")); err != nil {
		log.Printf("Failed to clear history: %v", err)
		utils.InternalErrorResponse(c, "Failed to clear history", nil)
		return
	}
	utils.SuccessResponse(c, "History cleared", nil)
}
