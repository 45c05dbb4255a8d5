package handlers

import (
	"net/http"
	"time"

	"github.com/ArowuTest/rafflywin-backend/internal/middleware"
	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RaffleHandler handles raffle-related HTTP requests
type RaffleHandler struct {
	raffleService services.RaffleService
}

// NewRaffleHandler creates a new RaffleHandler
func NewRaffleHandler(raffleService services.RaffleService) *RaffleHandler {
	return &RaffleHandler{raffleService: raffleService}
}

// ListRaffles handles GET /raffles?status=&creator_id=
func (h *RaffleHandler) ListRaffles(c *gin.Context) {
	var filter models.RaffleFilter
	if status := c.Query("status"); status != "" {
		filter.Status = models.RaffleStatus(status)
		switch filter.Status {
		case models.RaffleStatusActive, models.RaffleStatusCompleted, models.RaffleStatusCancelled:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
	}
	if creator := c.Query("creator_id"); creator != "" {
		id, err := primitive.ObjectIDFromHex(creator)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid creator_id format"})
			return
		}
		filter.CreatorID = id
	}

	raffles, err := h.raffleService.ListRaffles(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffles)
}

// GetRaffle handles GET /raffles/:id
func (h *RaffleHandler) GetRaffle(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	raffle, err := h.raffleService.GetRaffle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// CreateRaffle handles POST /raffles
func (h *RaffleHandler) CreateRaffle(c *gin.Context) {
	creatorID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	var req models.CreateRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raffle, err := h.raffleService.CreateRaffle(c.Request.Context(), creatorID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, raffle)
}

// CheckAvailability handles GET /raffles/availability?date=YYYY-MM-DD
func (h *RaffleHandler) CheckAvailability(c *gin.Context) {
	creatorID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format (YYYY-MM-DD)"})
		return
	}
	availability, err := h.raffleService.CheckDateAvailability(c.Request.Context(), creatorID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, availability)
}

// CancelRaffle handles POST /raffles/:id/cancel
func (h *RaffleHandler) CancelRaffle(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	raffle, err := h.raffleService.CancelRaffle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}
