package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		event      Event
		kind       EventKind
		routingKey string
		audience   Audience
	}{
		{
			name: "job new broadcasts to electricians",
			event: JobNewEvent{JobID: "job-1", ActorID: "citizen-1",
				Category: "wiring", Urgency: "standard", City: "Haarlem", Timestamp: ts},
			kind:       EventJobNew,
			routingKey: "job.new",
			audience:   BroadcastElectricians(),
		},
		{
			name: "bid new targets the job owner",
			event: BidNewEvent{JobID: "job-1", BidID: "bid-1", ActorID: "electrician-1",
				OwnerID: "citizen-1", AmountCents: 90000, Timestamp: ts},
			kind:       EventBidNew,
			routingKey: "bid.new",
			audience:   TargetUser("citizen-1"),
		},
		{
			name: "bid accepted targets the winner",
			event: BidAcceptedEvent{JobID: "job-1", BidID: "bid-1", ActorID: "citizen-1",
				BidderID: "electrician-1", AmountCents: 90000, Timestamp: ts},
			kind:       EventBidAccepted,
			routingKey: "bid.accepted",
			audience:   TargetUser("electrician-1"),
		},
		{
			name: "bid rejected targets the loser",
			event: BidRejectedEvent{JobID: "job-1", BidID: "bid-2", ActorID: "citizen-1",
				BidderID: "electrician-2", Timestamp: ts},
			kind:       EventBidRejected,
			routingKey: "bid.rejected",
			audience:   TargetUser("electrician-2"),
		},
		{
			name: "job completed targets each recipient",
			event: JobCompletedEvent{JobID: "job-1", ActorID: "citizen-1",
				RecipientID: "electrician-1", Timestamp: ts},
			kind:       EventJobCompleted,
			routingKey: "job.completed",
			audience:   TargetUser("electrician-1"),
		},
		{
			name: "job cancelled carries the reason",
			event: JobCancelledEvent{JobID: "job-1", RecipientID: "citizen-1",
				Reason: "funding window elapsed", Timestamp: ts},
			kind:       EventJobCancelled,
			routingKey: "job.cancelled",
			audience:   TargetUser("citizen-1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.event.Kind())
			assert.Equal(t, tt.routingKey, tt.event.Kind().RoutingKey())
			assert.Equal(t, tt.audience, tt.event.Audience())

			body, err := EncodeEvent(tt.event)
			require.NoError(t, err)

			decoded, err := DecodeEvent(body)
			require.NoError(t, err)
			assert.Equal(t, tt.event, decoded)
		})
	}
}

func TestDecodeEvent_UnknownType(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"type":"job:exploded","jobId":"job-1"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestDecodeEvent_MalformedBody(t *testing.T) {
	_, err := DecodeEvent([]byte(`{not json`))
	require.Error(t, err)
}

type customEvent struct{}

func (customEvent) Kind() EventKind    { return EventKind("custom") }
func (customEvent) Audience() Audience { return TargetUser("nobody") }

func TestEncodeEvent_UnknownVariant(t *testing.T) {
	_, err := EncodeEvent(customEvent{})
	require.Error(t, err)
}
