package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// DrawTrigger starts a manual draw cycle
type DrawTrigger interface {
	TriggerNow(ctx context.Context) (*models.DrawRun, error)
}

// DrawHandler handles admin draw HTTP requests
type DrawHandler struct {
	trigger     DrawTrigger
	drawService services.DrawService
}

// NewDrawHandler creates a new DrawHandler
func NewDrawHandler(trigger DrawTrigger, drawService services.DrawService) *DrawHandler {
	return &DrawHandler{trigger: trigger, drawService: drawService}
}

// RunDraw handles POST /admin/draw
func (h *DrawHandler) RunDraw(c *gin.Context) {
	run, err := h.trigger.TriggerNow(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Draw executed",
		"processed":      len(run.Outcomes),
		"status":         run.Status,
		"winningNumbers": run.WinningNumbers,
		"outcomes":       run.Outcomes,
	})
}

// ListDraws handles GET /admin/draws?limit=
func (h *DrawHandler) ListDraws(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = n
	}
	runs, err := h.drawService.GetRecentDraws(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}
