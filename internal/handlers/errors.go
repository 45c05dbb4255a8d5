package handlers

import (
	"errors"
	"net/http"

	"github.com/ArowuTest/rafflywin-backend/internal/services"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"
)

// respondError maps service error kinds to HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrLimitExceeded),
		errors.Is(err, services.ErrTooLate):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrCapacity),
		errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err, "path", c.FullPath())
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
