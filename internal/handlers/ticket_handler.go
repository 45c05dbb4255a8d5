package handlers

import (
	"net/http"

	"github.com/ArowuTest/rafflywin-backend/internal/middleware"
	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TicketHandler handles ticket-related HTTP requests
type TicketHandler struct {
	ticketService services.TicketService
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(ticketService services.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

// Purchase handles POST /tickets/purchase
func (h *TicketHandler) Purchase(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	var req models.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	raffleID, err := primitive.ObjectIDFromHex(req.RaffleID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid raffleId format"})
		return
	}

	// The payment token is confirmed upstream and not inspected here.
	res, err := h.ticketService.PurchaseTickets(c.Request.Context(), userID, raffleID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// MyTickets handles GET /tickets/my-tickets
func (h *TicketHandler) MyTickets(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	tickets, err := h.ticketService.GetUserTickets(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// RaffleTickets handles GET /tickets/raffle/:id
func (h *TicketHandler) RaffleTickets(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	raffleID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	tickets, err := h.ticketService.GetRaffleTickets(c.Request.Context(), raffleID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}
