package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
	"github.com/voltmatch/voltmatch-be/internal/api/model"
)

const conversationColumns = `
	conversation_id, job_id, citizen_id, electrician_id, status, archived_at, created_at
`

// CreateConversation inserts the job's conversation. ON CONFLICT keeps the
// operation idempotent should an accept retry replay the insert.
func (s *Storage) CreateConversation(ctx context.Context, tx *sqlx.Tx, conv *model.Conversation) error {
	query := `
		INSERT INTO conversations (
			conversation_id, job_id, citizen_id, electrician_id, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		ON CONFLICT (job_id) DO NOTHING
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		conv.ConversationID,
		conv.JobID,
		conv.CitizenID,
		conv.ElectricianID,
		conv.Status,
		conv.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	return nil
}

func (s *Storage) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	var conv model.Conversation
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE conversation_id = $1`

	err := s.db.GetContext(ctx, &conv, query, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return &conv, nil
}

// GetConversationForUpdate locks the conversation row so sendMessage cannot
// race an in-flight archive from complete/cancel.
func (s *Storage) GetConversationForUpdate(ctx context.Context, tx *sqlx.Tx, conversationID string) (*model.Conversation, error) {
	var conv model.Conversation
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE conversation_id = $1 FOR UPDATE`

	err := tx.GetContext(ctx, &conv, query, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to lock conversation: %w", err)
	}

	return &conv, nil
}

// ArchiveConversationByJob archives the job's conversation if one is still
// active. A no-op when the job never had an accepted bid.
func (s *Storage) ArchiveConversationByJob(ctx context.Context, tx *sqlx.Tx, jobID string, now time.Time) error {
	query := `
		UPDATE conversations SET status = $2, archived_at = $3
		WHERE job_id = $1 AND status = $4
	`

	_, err := tx.ExecContext(ctx, query, jobID, domain.ConversationStatusArchived, now, domain.ConversationStatusActive)
	if err != nil {
		return fmt.Errorf("failed to archive conversation: %w", err)
	}

	return nil
}

func (s *Storage) CreateMessage(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error {
	query := `
		INSERT INTO messages (
			message_id, conversation_id, sender_id, body, created_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		msg.MessageID,
		msg.ConversationID,
		msg.SenderID,
		msg.Body,
		msg.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

func (s *Storage) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	query := `
		SELECT message_id, conversation_id, sender_id, body, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`

	var messages []model.Message
	err := s.db.SelectContext(ctx, &messages, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

func (s *Storage) CreateReview(ctx context.Context, review *model.Review) error {
	query := `
		INSERT INTO reviews (
			review_id, job_id, author_id, rating, comment, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		review.ReviewID,
		review.JobID,
		review.AuthorID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}
