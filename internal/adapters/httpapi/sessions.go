package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mizuki/StudyRoom/internal/core"
	"github.com/mizuki/StudyRoom/internal/domain"
)

type createSessionRequest struct {
	Nickname         string    `json:"nickname" binding:"required,max=50,nickname"`
	Location         string    `json:"location" binding:"omitempty,max=100"`
	Subject          string    `json:"subject" binding:"omitempty,max=100"`
	ScheduledEndTime time.Time `json:"scheduledEndTime" binding:"required"`
	ShowDuration     *bool     `json:"showDuration"`
}

type updateSessionRequest struct {
	Location         *string    `json:"location" binding:"omitempty,max=100"`
	Subject          *string    `json:"subject" binding:"omitempty,max=100"`
	ScheduledEndTime *time.Time `json:"scheduledEndTime"`
	ShowDuration     *bool      `json:"showDuration"`
}

func (a *API) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	showDuration := true
	if req.ShowDuration != nil {
		showDuration = *req.ShowDuration
	}

	sess, err := a.Sessions.Create(req.Nickname, domain.RoomName(req.Location), req.Subject, req.ScheduledEndTime, showDuration)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (a *API) listActiveSessions(c *gin.Context) {
	sessions, err := a.Sessions.ListActive()
	if err != nil {
		log.Error().Err(err).Str("module", "httpapi").Msg("list active sessions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (a *API) updateSession(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upd := domain.SessionUpdate{
		Subject:          req.Subject,
		ScheduledEndTime: req.ScheduledEndTime,
		ShowDuration:     req.ShowDuration,
	}
	if req.Location != nil {
		room := domain.RoomName(*req.Location)
		upd.Location = &room
	}

	sess, err := a.Sessions.ApplyUpdate(domain.SessionID(id), upd)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (a *API) endSession(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	sess, err := a.Sessions.End(domain.SessionID(id))
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session ended successfully", "session": sess})
}
