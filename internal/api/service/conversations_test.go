package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
)

var conversationCols = []string{
	"conversation_id", "job_id", "citizen_id", "electrician_id", "status", "archived_at", "created_at",
}

func conversationRow(conversationID, status string) *sqlmock.Rows {
	return sqlmock.NewRows(conversationCols).
		AddRow(conversationID, "job-1", "citizen-1", "electrician-1", status, nil, time.Now().UTC())
}

func TestSendMessage_Success(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM conversations WHERE conversation_id = \$1 FOR UPDATE`).
		WithArgs("conv-1").
		WillReturnRows(conversationRow("conv-1", domain.ConversationStatusActive))
	h.mock.ExpectExec(`INSERT INTO messages`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectCommit()

	msg, err := h.svc.SendMessage(context.Background(), "conv-1", "electrician-1", "on my way")

	require.NoError(t, err)
	assert.Equal(t, "conv-1", msg.ConversationID)
	assert.Equal(t, "on my way", msg.Body)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestSendMessage_ArchivedConversation(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM conversations WHERE conversation_id = \$1 FOR UPDATE`).
		WithArgs("conv-1").
		WillReturnRows(conversationRow("conv-1", domain.ConversationStatusArchived))
	h.mock.ExpectRollback()

	_, err := h.svc.SendMessage(context.Background(), "conv-1", "citizen-1", "hello?")

	assert.ErrorIs(t, err, domain.ErrConversationArchived)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestSendMessage_NonParticipant(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM conversations WHERE conversation_id = \$1 FOR UPDATE`).
		WithArgs("conv-1").
		WillReturnRows(conversationRow("conv-1", domain.ConversationStatusActive))
	h.mock.ExpectRollback()

	_, err := h.svc.SendMessage(context.Background(), "conv-1", "electrician-2", "let me in")

	assert.ErrorIs(t, err, domain.ErrForbidden)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestGetConversation_ArchivedStillReadable(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectQuery(`SELECT (.+) FROM conversations WHERE conversation_id = \$1`).
		WithArgs("conv-1").
		WillReturnRows(conversationRow("conv-1", domain.ConversationStatusArchived))

	conv, err := h.svc.GetConversation(context.Background(), "conv-1", "citizen-1")

	require.NoError(t, err)
	assert.Equal(t, domain.ConversationStatusArchived, conv.Status)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestGetConversation_NonParticipant(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectQuery(`SELECT (.+) FROM conversations WHERE conversation_id = \$1`).
		WithArgs("conv-1").
		WillReturnRows(conversationRow("conv-1", domain.ConversationStatusActive))

	_, err := h.svc.GetConversation(context.Background(), "conv-1", "citizen-9")

	assert.ErrorIs(t, err, domain.ErrForbidden)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestListMessages_Success(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectQuery(`SELECT (.+) FROM conversations WHERE conversation_id = \$1`).
		WithArgs("conv-1").
		WillReturnRows(conversationRow("conv-1", domain.ConversationStatusActive))
	now := time.Now().UTC()
	h.mock.ExpectQuery(`SELECT (.+) FROM messages`).
		WithArgs("conv-1").
		WillReturnRows(sqlmock.NewRows([]string{"message_id", "conversation_id", "sender_id", "body", "created_at"}).
			AddRow("msg-1", "conv-1", "citizen-1", "when can you start", now).
			AddRow("msg-2", "conv-1", "electrician-1", "monday morning", now))

	messages, err := h.svc.ListMessages(context.Background(), "conv-1", "electrician-1")

	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "when can you start", messages[0].Body)
	require.NoError(t, h.mock.ExpectationsWereMet())
}
