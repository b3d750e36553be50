package handler

import (
	"errors"
	"net/http"

	"redwarm/internal/service"

	"github.com/gin-gonic/gin"
)

// WarmupHandler handles warmup control requests
type WarmupHandler struct {
	warmupService *service.WarmupService
}

// NewWarmupHandler creates a new warmup handler
func NewWarmupHandler(warmupService *service.WarmupService) *WarmupHandler {
	return &WarmupHandler{warmupService: warmupService}
}

// Start begins warmup for an account
// POST /v1/accounts/:account_id/warmup/start
func (h *WarmupHandler) Start(c *gin.Context) {
	accountID := c.Param("account_id")

	err := h.warmupService.StartWarmup(c.Request.Context(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		case errors.Is(err, service.ErrAlreadyInWarmup):
			c.JSON(http.StatusConflict, gin.H{"error": "account already in warmup"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"account_id": accountID, "status": "started"})
}

// Pause holds warmup at its current phase
// POST /v1/accounts/:account_id/warmup/pause
func (h *WarmupHandler) Pause(c *gin.Context) {
	accountID := c.Param("account_id")

	err := h.warmupService.PauseWarmup(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"account_id": accountID, "status": "paused"})
}

// Resume resumes a paused warmup
// POST /v1/accounts/:account_id/warmup/resume
func (h *WarmupHandler) Resume(c *gin.Context) {
	accountID := c.Param("account_id")

	err := h.warmupService.ResumeWarmup(c.Request.Context(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		case errors.Is(err, service.ErrNotPaused):
			c.JSON(http.StatusConflict, gin.H{"error": "warmup is not paused"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"account_id": accountID, "status": "resumed"})
}

// Stop terminates warmup for an account
// POST /v1/accounts/:account_id/warmup/stop
func (h *WarmupHandler) Stop(c *gin.Context) {
	accountID := c.Param("account_id")

	err := h.warmupService.StopWarmup(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"account_id": accountID, "status": "stopped"})
}

// Status returns the owner-facing warmup view for an account
// GET /v1/accounts/:account_id/warmup
func (h *WarmupHandler) Status(c *gin.Context) {
	accountID := c.Param("account_id")

	status, err := h.warmupService.GetWarmupStatus(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, status)
}
