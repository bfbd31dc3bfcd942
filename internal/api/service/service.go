package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
	"github.com/voltmatch/voltmatch-be/internal/api/storage"
	"github.com/voltmatch/voltmatch-be/shared/postgresql"
)

// Publisher is the outbound edge to the notification queue. The live
// implementation is the shared RabbitMQ client.
type Publisher interface {
	PublishWithRetry(ctx context.Context, routingKey string, body []byte, contentType string) error
}

// Config holds service dependencies
type Config struct {
	Logger        *slog.Logger
	DB            *postgresql.Client
	Storage       *storage.Storage
	Publisher     Publisher
	FundingWindow time.Duration
	ReviewWindow  time.Duration
}

// Service implements the job/bid lifecycle core: job transitions, the bid
// ledger, escrow bookkeeping and the conversation gate. Every mutation runs
// in a single transaction under the per-job row lock; notification events
// are published only after that transaction commits.
type Service struct {
	logger        *slog.Logger
	db            *postgresql.Client
	store         *storage.Storage
	publisher     Publisher
	fundingWindow time.Duration
	reviewWindow  time.Duration
}

// New creates the lifecycle service
func New(cfg *Config) *Service {
	return &Service{
		logger:        cfg.Logger,
		db:            cfg.DB,
		store:         cfg.Storage,
		publisher:     cfg.Publisher,
		fundingWindow: cfg.FundingWindow,
		reviewWindow:  cfg.ReviewWindow,
	}
}

// publishEvents hands lifecycle events to the queue after the transaction
// that produced them has committed. Delivery is best-effort: a publish
// failure is logged and swallowed, never surfaced to the caller, and never
// rolls anything back.
func (s *Service) publishEvents(ctx context.Context, events []domain.Event) {
	for _, ev := range events {
		body, err := domain.EncodeEvent(ev)
		if err != nil {
			s.logger.Error("Failed to encode notification event",
				slog.String("event_type", string(ev.Kind())),
				slog.Any("error", err),
			)
			continue
		}

		if err := s.publisher.PublishWithRetry(ctx, ev.Kind().RoutingKey(), body, "application/json"); err != nil {
			s.logger.Warn("Failed to publish notification event, dropping",
				slog.String("event_type", string(ev.Kind())),
				slog.Any("error", err),
			)
		}
	}
}
