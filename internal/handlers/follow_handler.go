package handlers

import (
	"context"
	"net/http"

	"github.com/ArowuTest/rafflywin-backend/internal/middleware"
	"github.com/ArowuTest/rafflywin-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FollowHandler handles follow and unfollow requests
type FollowHandler struct {
	followService services.FollowService
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followService services.FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

// Follow handles POST /users/:id/follow
func (h *FollowHandler) Follow(c *gin.Context) {
	h.apply(c, h.followService.Follow, "Now following user")
}

// Unfollow handles POST /users/:id/unfollow
func (h *FollowHandler) Unfollow(c *gin.Context) {
	h.apply(c, h.followService.Unfollow, "Stopped following user")
}

func (h *FollowHandler) apply(c *gin.Context, op func(ctx context.Context, followerID, targetID primitive.ObjectID) error, message string) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	targetID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	if err := op(c.Request.Context(), userID, targetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}
