package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/voltmatch/voltmatch-be/shared/postgresql"
)

// Delivery channels and outcomes recorded per dispatch attempt.
const (
	ChannelRealtime = "realtime"
	ChannelPush     = "push"

	OutcomeDelivered = "delivered"
	OutcomeDropped   = "dropped"
)

// DeliveryEntry is the log row written per terminal delivery outcome. The
// event itself is ephemeral; this row is all that persists of it.
type DeliveryEntry struct {
	DeliveryID  string    `db:"delivery_id"`
	EventType   string    `db:"event_type"`
	RecipientID string    `db:"recipient_id"`
	Channel     string    `db:"channel"`
	Outcome     string    `db:"outcome"`
	Detail      string    `db:"detail"`
	CreatedAt   time.Time `db:"created_at"`
}

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// NewStorageWithDB wraps an existing handle. Used by tests with a stub
// database connection.
func NewStorageWithDB(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) InsertDelivery(ctx context.Context, entry DeliveryEntry) error {
	query := `
		INSERT INTO notification_deliveries (
			delivery_id, event_type, recipient_id, channel, outcome, detail, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		entry.DeliveryID,
		entry.EventType,
		entry.RecipientID,
		entry.Channel,
		entry.Outcome,
		entry.Detail,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert delivery log entry: %w", err)
	}

	return nil
}
