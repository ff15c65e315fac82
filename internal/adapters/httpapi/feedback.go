package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mizuki/StudyRoom/internal/domain"
)

type feedbackRequest struct {
	Category string `json:"category" binding:"required,oneof=location bug feature other"`
	Content  string `json:"content" binding:"required,max=1000"`
}

func (a *API) submitFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fb, err := a.Feedback.Add(domain.FeedbackCategory(req.Category), req.Content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, fb)
}
