package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voltmatch/voltmatch-be/internal/api/dto"
	"github.com/voltmatch/voltmatch-be/internal/auth"
)

// GetConversation handles GET /api/v1/conversations/:conversation_id
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	if _, err := uuid.Parse(conversationID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "conversation_id must be a valid UUID",
		})
		return
	}

	conv, err := h.service.GetConversation(c.Request.Context(), conversationID, auth.UserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ConversationFromModel(conv))
}

// SendMessage handles POST /api/v1/conversations/:conversation_id/messages
// Only the two participants may post, and only while the conversation
// is ACTIVE
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	if _, err := uuid.Parse(conversationID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "conversation_id must be a valid UUID",
		})
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), conversationID, auth.UserID(c), req.Body)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.MessageFromModel(msg))
}

// ListMessages handles GET /api/v1/conversations/:conversation_id/messages
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	if _, err := uuid.Parse(conversationID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "conversation_id must be a valid UUID",
		})
		return
	}

	messages, err := h.service.ListMessages(c.Request.Context(), conversationID, auth.UserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	messageResponse := make([]dto.MessageDTO, len(messages))
	for i := range messages {
		messageResponse[i] = dto.MessageFromModel(&messages[i])
	}

	c.JSON(http.StatusOK, dto.ListMessagesResponse{Messages: messageResponse})
}
