package model

import (
	"database/sql"
	"time"
)

// Job is a posted service request. The location columns are a snapshot taken
// at posting time; later address edits on the citizen's profile do not
// rewrite history.
type Job struct {
	JobID           string         `db:"job_id"`
	OwnerID         string         `db:"owner_id"`
	Category        string         `db:"category"`
	Urgency         string         `db:"urgency"`
	Description     string         `db:"description"`
	BudgetCents     int64          `db:"budget_cents"`
	Status          string         `db:"status"`
	City            string         `db:"city"`
	District        string         `db:"district"`
	CancelReason    sql.NullString `db:"cancel_reason"`
	ReviewOpenUntil sql.NullTime   `db:"review_open_until"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// Bid is an electrician's offer against a job.
type Bid struct {
	BidID        string       `db:"bid_id"`
	JobID        string       `db:"job_id"`
	BidderID     string       `db:"bidder_id"`
	AmountCents  int64        `db:"amount_cents"`
	DurationDays int          `db:"duration_days"`
	Message      string       `db:"message"`
	Status       string       `db:"status"`
	DecidedAt    sql.NullTime `db:"decided_at"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

// Escrow is the funding hold for a job's accepted bid. At most one row per
// job; the amount always mirrors the accepted bid while the hold is live.
type Escrow struct {
	EscrowID    string       `db:"escrow_id"`
	JobID       string       `db:"job_id"`
	BidID       string       `db:"bid_id"`
	AmountCents int64        `db:"amount_cents"`
	Status      string       `db:"status"`
	FundedAt    sql.NullTime `db:"funded_at"`
	ReleasedAt  sql.NullTime `db:"released_at"`
	RefundedAt  sql.NullTime `db:"refunded_at"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

// Conversation pairs the job owner with the accepted bidder.
type Conversation struct {
	ConversationID string       `db:"conversation_id"`
	JobID          string       `db:"job_id"`
	CitizenID      string       `db:"citizen_id"`
	ElectricianID  string       `db:"electrician_id"`
	Status         string       `db:"status"`
	ArchivedAt     sql.NullTime `db:"archived_at"`
	CreatedAt      time.Time    `db:"created_at"`
}

// Message is a single chat message inside a conversation.
type Message struct {
	MessageID      string    `db:"message_id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	Body           string    `db:"body"`
	CreatedAt      time.Time `db:"created_at"`
}

// Payment is a bookkeeping row written when escrow funds move out of the
// hold, either as a payout on release or a refund on cancellation.
type Payment struct {
	PaymentID   string    `db:"payment_id"`
	JobID       string    `db:"job_id"`
	EscrowID    string    `db:"escrow_id"`
	RecipientID string    `db:"recipient_id"`
	Kind        string    `db:"kind"`
	AmountCents int64     `db:"amount_cents"`
	CreatedAt   time.Time `db:"created_at"`
}

// Review is the citizen's rating of a completed job, accepted only while
// the review window stamped at completion is open.
type Review struct {
	ReviewID  string    `db:"review_id"`
	JobID     string    `db:"job_id"`
	AuthorID  string    `db:"author_id"`
	Rating    int       `db:"rating"`
	Comment   string    `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
}
