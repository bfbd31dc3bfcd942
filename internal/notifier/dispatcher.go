package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
	"github.com/voltmatch/voltmatch-be/internal/notifier/push"
	"github.com/voltmatch/voltmatch-be/internal/notifier/storage"
)

// SessionRouter is the hub's routing surface as the dispatcher sees it.
type SessionRouter interface {
	Send(userID string, payload []byte) bool
	Broadcast(payload []byte) int
}

// TokenSource resolves a user's registered device tokens.
type TokenSource interface {
	Tokens(ctx context.Context, userID string) ([]string, error)
}

// DeliveryLog records the terminal outcome of each dispatch.
type DeliveryLog interface {
	InsertDelivery(ctx context.Context, entry storage.DeliveryEntry) error
}

// DispatcherConfig holds dispatcher dependencies
type DispatcherConfig struct {
	Logger         *slog.Logger
	Hub            SessionRouter
	Tokens         TokenSource
	Sender         push.Sender
	Log            DeliveryLog
	PushRetries    int
	PushRetryDelay time.Duration
}

// Dispatcher fans one lifecycle event out to its audience: real-time to
// every live session, push fallback for targeted events whose recipient is
// offline. All failures here are logged and swallowed; nothing at this
// layer ever propagates back into the lifecycle transaction that produced
// the event.
type Dispatcher struct {
	logger         *slog.Logger
	hub            SessionRouter
	tokens         TokenSource
	sender         push.Sender
	log            DeliveryLog
	pushRetries    int
	pushRetryDelay time.Duration
}

func NewDispatcher(cfg *DispatcherConfig) *Dispatcher {
	retries := cfg.PushRetries
	if retries <= 0 {
		retries = 2
	}
	delay := cfg.PushRetryDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}

	return &Dispatcher{
		logger:         cfg.Logger,
		hub:            cfg.Hub,
		tokens:         cfg.Tokens,
		sender:         cfg.Sender,
		log:            cfg.Log,
		pushRetries:    retries,
		pushRetryDelay: delay,
	}
}

// Dispatch delivers one event. Broadcast events go to the electricians
// channel, real-time only. Targeted events try the recipient's live
// sessions first and fall back to push delivery when none are connected.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.Event) {
	payload, err := domain.EncodeEvent(ev)
	if err != nil {
		d.logger.Error("Failed to encode event for delivery",
			slog.String("event_type", string(ev.Kind())),
			slog.Any("error", err),
		)
		return
	}

	audience := ev.Audience()

	if audience.Broadcast {
		delivered := d.hub.Broadcast(payload)
		d.logger.Debug("Broadcast event delivered",
			slog.String("event_type", string(ev.Kind())),
			slog.Int("sessions", delivered),
		)
		// No push fallback for broadcasts: a job:new push to every
		// available electrician would be a push storm.
		d.record(ctx, ev, "electricians", storage.ChannelRealtime, storage.OutcomeDelivered,
			fmt.Sprintf("%d sessions", delivered))
		return
	}

	if d.hub.Send(audience.UserID, payload) {
		d.record(ctx, ev, audience.UserID, storage.ChannelRealtime, storage.OutcomeDelivered, "")
		return
	}

	d.deliverPush(ctx, ev, audience.UserID)
}

// deliverPush is the offline fallback for targeted events.
func (d *Dispatcher) deliverPush(ctx context.Context, ev domain.Event, userID string) {
	tokens, err := d.tokens.Tokens(ctx, userID)
	if err != nil {
		d.logger.Warn("Failed to load device tokens, dropping event",
			slog.String("event_type", string(ev.Kind())),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		d.record(ctx, ev, userID, storage.ChannelPush, storage.OutcomeDropped, "token lookup failed")
		return
	}

	if len(tokens) == 0 {
		d.record(ctx, ev, userID, storage.ChannelPush, storage.OutcomeDropped, "no live session, no device tokens")
		return
	}

	notification := renderPush(ev)

	sent := 0
	for _, token := range tokens {
		if d.sendWithRetry(ctx, token, notification) {
			sent++
		}
	}

	if sent > 0 {
		d.record(ctx, ev, userID, storage.ChannelPush, storage.OutcomeDelivered,
			fmt.Sprintf("%d/%d devices", sent, len(tokens)))
		return
	}

	d.logger.Warn("Push delivery failed for all devices, dropping event",
		slog.String("event_type", string(ev.Kind())),
		slog.String("user_id", userID),
		slog.Int("devices", len(tokens)),
	)
	d.record(ctx, ev, userID, storage.ChannelPush, storage.OutcomeDropped, "all devices failed")
}

// sendWithRetry attempts one device with bounded retries, then gives up.
func (d *Dispatcher) sendWithRetry(ctx context.Context, token string, n push.Notification) bool {
	var lastErr error
	for attempt := 0; attempt <= d.pushRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(d.pushRetryDelay):
			}
		}

		if err := d.sender.Send(ctx, token, n); err != nil {
			lastErr = err
			continue
		}
		return true
	}

	d.logger.Warn("Push send exhausted retries",
		slog.Int("attempts", d.pushRetries+1),
		slog.Any("error", lastErr),
	)
	return false
}

func (d *Dispatcher) record(ctx context.Context, ev domain.Event, recipientID, channel, outcome, detail string) {
	entry := storage.DeliveryEntry{
		DeliveryID:  uuid.New().String(),
		EventType:   string(ev.Kind()),
		RecipientID: recipientID,
		Channel:     channel,
		Outcome:     outcome,
		Detail:      detail,
		CreatedAt:   time.Now().UTC(),
	}

	if err := d.log.InsertDelivery(ctx, entry); err != nil {
		d.logger.Warn("Failed to record delivery outcome",
			slog.String("event_type", entry.EventType),
			slog.Any("error", err),
		)
	}
}

// renderPush builds the human-readable push payload for an event. The
// switch is exhaustive over the closed event set.
func renderPush(ev domain.Event) push.Notification {
	n := push.Notification{EventType: string(ev.Kind())}

	switch e := ev.(type) {
	case domain.JobNewEvent:
		n.JobID = e.JobID
		n.Title = "New job nearby"
		n.Body = fmt.Sprintf("A new %s job was posted in %s", e.Category, e.City)
	case domain.BidNewEvent:
		n.JobID = e.JobID
		n.Title = "New bid on your job"
		n.Body = fmt.Sprintf("An electrician offered %.2f for your job", float64(e.AmountCents)/100)
	case domain.BidAcceptedEvent:
		n.JobID = e.JobID
		n.Title = "Your bid was accepted"
		n.Body = "The citizen accepted your offer. You can now chat and get started."
	case domain.BidRejectedEvent:
		n.JobID = e.JobID
		n.Title = "Bid not selected"
		n.Body = "The citizen went with another offer on this job."
	case domain.JobCompletedEvent:
		n.JobID = e.JobID
		n.Title = "Job completed"
		n.Body = "The job was marked complete and payment was released."
	case domain.JobCancelledEvent:
		n.JobID = e.JobID
		n.Title = "Job cancelled"
		n.Body = "This job was cancelled."
		if e.Reason != "" {
			n.Body = fmt.Sprintf("This job was cancelled: %s", e.Reason)
		}
	}

	return n
}
