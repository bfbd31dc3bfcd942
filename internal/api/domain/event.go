package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind enumerates the closed set of lifecycle events. The dispatcher
// and the wire codec switch exhaustively over these; adding a kind without
// updating both sites fails decoding at runtime and the codec test at build
// time.
type EventKind string

const (
	EventJobNew       EventKind = "job:new"
	EventBidNew       EventKind = "bid:new"
	EventBidAccepted  EventKind = "bid:accepted"
	EventBidRejected  EventKind = "bid:rejected"
	EventJobCompleted EventKind = "job:completed"
	EventJobCancelled EventKind = "job:cancelled"
)

// RoutingKey returns the AMQP routing key for the kind. Topic exchanges
// reserve '.' as the segment separator, so the wire type's ':' maps to it.
func (k EventKind) RoutingKey() string {
	switch k {
	case EventJobNew:
		return "job.new"
	case EventBidNew:
		return "bid.new"
	case EventBidAccepted:
		return "bid.accepted"
	case EventBidRejected:
		return "bid.rejected"
	case EventJobCompleted:
		return "job.completed"
	case EventJobCancelled:
		return "job.cancelled"
	}
	return "unknown"
}

// Event is a lifecycle notification. Each variant carries only the fields
// its kind needs; there is no free-form payload.
type Event interface {
	Kind() EventKind
	// Audience returns the addressing for this event: a single user channel
	// or the electricians broadcast channel.
	Audience() Audience
}

// Audience is one of the dispatcher's two addressing modes. Broadcast
// events target the pool of available electricians and are real-time only;
// targeted events name a single user and may fall back to push.
type Audience struct {
	UserID    string
	Broadcast bool
}

// TargetUser addresses a single user channel.
func TargetUser(userID string) Audience {
	return Audience{UserID: userID}
}

// BroadcastElectricians addresses the shared electricians channel.
func BroadcastElectricians() Audience {
	return Audience{Broadcast: true}
}

// JobNewEvent announces a freshly posted job to available electricians.
type JobNewEvent struct {
	JobID     string
	ActorID   string
	Category  string
	Urgency   string
	City      string
	Timestamp time.Time
}

func (JobNewEvent) Kind() EventKind    { return EventJobNew }
func (JobNewEvent) Audience() Audience { return BroadcastElectricians() }

// BidNewEvent tells a job owner that an electrician submitted a bid.
type BidNewEvent struct {
	JobID       string
	BidID       string
	ActorID     string
	OwnerID     string
	AmountCents int64
	Timestamp   time.Time
}

func (e BidNewEvent) Kind() EventKind    { return EventBidNew }
func (e BidNewEvent) Audience() Audience { return TargetUser(e.OwnerID) }

// BidAcceptedEvent tells the winning bidder their bid was accepted.
type BidAcceptedEvent struct {
	JobID       string
	BidID       string
	ActorID     string
	BidderID    string
	AmountCents int64
	Timestamp   time.Time
}

func (e BidAcceptedEvent) Kind() EventKind    { return EventBidAccepted }
func (e BidAcceptedEvent) Audience() Audience { return TargetUser(e.BidderID) }

// BidRejectedEvent tells a losing bidder their bid was rejected.
type BidRejectedEvent struct {
	JobID     string
	BidID     string
	ActorID   string
	BidderID  string
	Timestamp time.Time
}

func (e BidRejectedEvent) Kind() EventKind    { return EventBidRejected }
func (e BidRejectedEvent) Audience() Audience { return TargetUser(e.BidderID) }

// JobCompletedEvent tells each party the job finished and escrow released.
type JobCompletedEvent struct {
	JobID       string
	ActorID     string
	RecipientID string
	Timestamp   time.Time
}

func (e JobCompletedEvent) Kind() EventKind    { return EventJobCompleted }
func (e JobCompletedEvent) Audience() Audience { return TargetUser(e.RecipientID) }

// JobCancelledEvent tells an affected participant the job was cancelled.
type JobCancelledEvent struct {
	JobID       string
	ActorID     string
	RecipientID string
	Reason      string
	Timestamp   time.Time
}

func (e JobCancelledEvent) Kind() EventKind    { return EventJobCancelled }
func (e JobCancelledEvent) Audience() Audience { return TargetUser(e.RecipientID) }

// envelope is the wire form shared by the real-time channel and the queue.
// It carries the union of variant fields; the Type discriminator selects
// which are meaningful. Clients that miss an event resynchronize by
// refetching job/bid state, so the envelope only needs identifiers.
type envelope struct {
	Type        string    `json:"type"`
	JobID       string    `json:"jobId"`
	ActorID     string    `json:"actorId"`
	TargetID    string    `json:"targetId,omitempty"`
	BidID       string    `json:"bidId,omitempty"`
	AmountCents int64     `json:"amountCents,omitempty"`
	Category    string    `json:"category,omitempty"`
	Urgency     string    `json:"urgency,omitempty"`
	City        string    `json:"city,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// EncodeEvent serializes an event into its wire envelope.
func EncodeEvent(ev Event) ([]byte, error) {
	var env envelope
	switch e := ev.(type) {
	case JobNewEvent:
		env = envelope{Type: string(EventJobNew), JobID: e.JobID, ActorID: e.ActorID,
			Category: e.Category, Urgency: e.Urgency, City: e.City, Timestamp: e.Timestamp}
	case BidNewEvent:
		env = envelope{Type: string(EventBidNew), JobID: e.JobID, ActorID: e.ActorID,
			TargetID: e.OwnerID, BidID: e.BidID, AmountCents: e.AmountCents, Timestamp: e.Timestamp}
	case BidAcceptedEvent:
		env = envelope{Type: string(EventBidAccepted), JobID: e.JobID, ActorID: e.ActorID,
			TargetID: e.BidderID, BidID: e.BidID, AmountCents: e.AmountCents, Timestamp: e.Timestamp}
	case BidRejectedEvent:
		env = envelope{Type: string(EventBidRejected), JobID: e.JobID, ActorID: e.ActorID,
			TargetID: e.BidderID, BidID: e.BidID, Timestamp: e.Timestamp}
	case JobCompletedEvent:
		env = envelope{Type: string(EventJobCompleted), JobID: e.JobID, ActorID: e.ActorID,
			TargetID: e.RecipientID, Timestamp: e.Timestamp}
	case JobCancelledEvent:
		env = envelope{Type: string(EventJobCancelled), JobID: e.JobID, ActorID: e.ActorID,
			TargetID: e.RecipientID, Reason: e.Reason, Timestamp: e.Timestamp}
	default:
		return nil, fmt.Errorf("unknown event type %T", ev)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return body, nil
}

// DecodeEvent parses a wire envelope back into its typed variant. Unknown
// types are an error so the consumer can drop the message without requeue.
func DecodeEvent(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}

	switch EventKind(env.Type) {
	case EventJobNew:
		return JobNewEvent{JobID: env.JobID, ActorID: env.ActorID,
			Category: env.Category, Urgency: env.Urgency, City: env.City, Timestamp: env.Timestamp}, nil
	case EventBidNew:
		return BidNewEvent{JobID: env.JobID, ActorID: env.ActorID, OwnerID: env.TargetID,
			BidID: env.BidID, AmountCents: env.AmountCents, Timestamp: env.Timestamp}, nil
	case EventBidAccepted:
		return BidAcceptedEvent{JobID: env.JobID, ActorID: env.ActorID, BidderID: env.TargetID,
			BidID: env.BidID, AmountCents: env.AmountCents, Timestamp: env.Timestamp}, nil
	case EventBidRejected:
		return BidRejectedEvent{JobID: env.JobID, ActorID: env.ActorID, BidderID: env.TargetID,
			BidID: env.BidID, Timestamp: env.Timestamp}, nil
	case EventJobCompleted:
		return JobCompletedEvent{JobID: env.JobID, ActorID: env.ActorID,
			RecipientID: env.TargetID, Timestamp: env.Timestamp}, nil
	case EventJobCancelled:
		return JobCancelledEvent{JobID: env.JobID, ActorID: env.ActorID,
			RecipientID: env.TargetID, Reason: env.Reason, Timestamp: env.Timestamp}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", env.Type)
}
