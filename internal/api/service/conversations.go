package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
	"github.com/voltmatch/voltmatch-be/internal/api/model"
)

// SendMessage appends a message to an active conversation. The conversation
// row is locked so the send cannot interleave with an archive from a
// concurrent complete or cancel: either the message lands before the
// archive commits, or the sender gets ErrConversationArchived.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID, body string) (*model.Message, error) {
	var msg *model.Message

	err := s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		conv, err := s.store.GetConversationForUpdate(ctx, tx, conversationID)
		if err != nil {
			return err
		}

		if conv.CitizenID != senderID && conv.ElectricianID != senderID {
			return domain.ErrForbidden
		}

		if conv.Status != domain.ConversationStatusActive {
			return domain.ErrConversationArchived
		}

		msg = &model.Message{
			MessageID:      uuid.New().String(),
			ConversationID: conversationID,
			SenderID:       senderID,
			Body:           body,
			CreatedAt:      time.Now().UTC(),
		}

		return s.store.CreateMessage(ctx, tx, msg)
	})

	if err != nil {
		return nil, err
	}

	s.logger.Debug("Message sent",
		slog.String("conversation_id", conversationID),
		slog.String("sender_id", senderID),
	)

	return msg, nil
}

// GetConversation returns a conversation the actor participates in.
// Archived conversations remain readable.
func (s *Service) GetConversation(ctx context.Context, conversationID, actorID string) (*model.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if conv.CitizenID != actorID && conv.ElectricianID != actorID {
		return nil, domain.ErrForbidden
	}

	return conv, nil
}

// ListMessages returns a conversation's history, archived or not.
func (s *Service) ListMessages(ctx context.Context, conversationID, actorID string) ([]model.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID, actorID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID)
}
