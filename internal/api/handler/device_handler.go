package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voltmatch/voltmatch-be/internal/api/dto"
	"github.com/voltmatch/voltmatch-be/internal/auth"
)

// RegisterDevice handles POST /api/v1/devices
// Associates a push token with the authenticated user
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	var req dto.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	userID := auth.UserID(c)
	if err := h.tokens.Register(c.Request.Context(), userID, req.Token); err != nil {
		h.logger.Error("Failed to register device token",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to register device token",
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveDevice handles DELETE /api/v1/devices/:token
func (h *DeviceHandler) RemoveDevice(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "token is required",
		})
		return
	}

	userID := auth.UserID(c)
	if err := h.tokens.Remove(c.Request.Context(), userID, token); err != nil {
		h.logger.Error("Failed to remove device token",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to remove device token",
		})
		return
	}

	c.Status(http.StatusNoContent)
}
