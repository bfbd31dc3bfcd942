package dto

import (
	"time"

	"github.com/voltmatch/voltmatch-be/internal/api/model"
)

type SendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

type ConversationDTO struct {
	ConversationID string `json:"conversation_id"`
	JobID          string `json:"job_id"`
	CitizenID      string `json:"citizen_id"`
	ElectricianID  string `json:"electrician_id"`
	Status         string `json:"status"`
	ArchivedAt     string `json:"archived_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func ConversationFromModel(conv *model.Conversation) ConversationDTO {
	d := ConversationDTO{
		ConversationID: conv.ConversationID,
		JobID:          conv.JobID,
		CitizenID:      conv.CitizenID,
		ElectricianID:  conv.ElectricianID,
		Status:         conv.Status,
		CreatedAt:      conv.CreatedAt.Format(time.RFC3339),
	}
	if conv.ArchivedAt.Valid {
		d.ArchivedAt = conv.ArchivedAt.Time.Format(time.RFC3339)
	}
	return d
}

type MessageDTO struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Body           string `json:"body"`
	CreatedAt      string `json:"created_at"`
}

func MessageFromModel(msg *model.Message) MessageDTO {
	return MessageDTO{
		MessageID:      msg.MessageID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Body:           msg.Body,
		CreatedAt:      msg.CreatedAt.Format(time.RFC3339),
	}
}

type ListMessagesResponse struct {
	Messages []MessageDTO `json:"messages"`
}

type RegisterDeviceRequest struct {
	Token string `json:"token" binding:"required"`
}
