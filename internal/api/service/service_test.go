package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
	"github.com/voltmatch/voltmatch-be/internal/api/storage"
	"github.com/voltmatch/voltmatch-be/shared/postgresql"
)

// fakePublisher records published events instead of touching a broker.
type fakePublisher struct {
	mu        sync.Mutex
	published []publishedMessage
}

type publishedMessage struct {
	RoutingKey string
	Body       []byte
}

func (f *fakePublisher) PublishWithRetry(_ context.Context, routingKey string, body []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedMessage{RoutingKey: routingKey, Body: body})
	return nil
}

func (f *fakePublisher) routingKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, len(f.published))
	for i, m := range f.published {
		keys[i] = m.RoutingKey
	}
	return keys
}

func (f *fakePublisher) decoded() []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := make([]domain.Event, 0, len(f.published))
	for _, m := range f.published {
		ev, err := domain.DecodeEvent(m.Body)
		if err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events
}

type testHarness struct {
	svc  *Service
	mock sqlmock.Sqlmock
	pub  *fakePublisher
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("opening stub database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sdb := sqlx.NewDb(db, "sqlmock")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub := &fakePublisher{}

	svc := New(&Config{
		Logger:        logger,
		DB:            postgresql.NewClientWithDB(sdb, logger),
		Storage:       storage.NewStorageWithDB(sdb),
		Publisher:     pub,
		FundingWindow: 24 * time.Hour,
		ReviewWindow:  14 * 24 * time.Hour,
	})

	return &testHarness{svc: svc, mock: mock, pub: pub}
}

var jobCols = []string{
	"job_id", "owner_id", "category", "urgency", "description", "budget_cents",
	"status", "city", "district", "cancel_reason", "review_open_until",
	"created_at", "updated_at",
}

var bidCols = []string{
	"bid_id", "job_id", "bidder_id", "amount_cents", "duration_days", "message",
	"status", "decided_at", "created_at", "updated_at",
}

var escrowCols = []string{
	"escrow_id", "job_id", "bid_id", "amount_cents", "status",
	"funded_at", "released_at", "refunded_at", "created_at", "updated_at",
}

func jobRow(jobID, ownerID, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(jobCols).
		AddRow(jobID, ownerID, "wiring", "standard", "rewire the fuse box", int64(120000),
			status, "Haarlem", "Centrum", nil, nil, now, now)
}

func jobRowWithReviewWindow(jobID, ownerID, status string, reviewOpenUntil time.Time) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(jobCols).
		AddRow(jobID, ownerID, "wiring", "standard", "rewire the fuse box", int64(120000),
			status, "Haarlem", "Centrum", nil, reviewOpenUntil, now, now)
}

func bidRow(bidID, jobID, bidderID, status string, amountCents int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(bidCols).
		AddRow(bidID, jobID, bidderID, amountCents, 3, "can start monday",
			status, nil, now, now)
}

func escrowRow(escrowID, jobID, bidID, status string, amountCents int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(escrowCols).
		AddRow(escrowID, jobID, bidID, amountCents, status,
			nil, nil, nil, now, now)
}
