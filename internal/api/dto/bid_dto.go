package dto

import (
	"time"

	"github.com/voltmatch/voltmatch-be/internal/api/model"
)

type SubmitBidRequest struct {
	AmountCents  int64  `json:"amount_cents" binding:"required,gt=0"`
	DurationDays int    `json:"duration_days" binding:"required,gt=0"`
	Message      string `json:"message"`
}

type BidDTO struct {
	BidID        string `json:"bid_id"`
	JobID        string `json:"job_id"`
	BidderID     string `json:"bidder_id"`
	AmountCents  int64  `json:"amount_cents"`
	DurationDays int    `json:"duration_days"`
	Message      string `json:"message"`
	Status       string `json:"status"`
	DecidedAt    string `json:"decided_at,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func BidFromModel(bid *model.Bid) BidDTO {
	d := BidDTO{
		BidID:        bid.BidID,
		JobID:        bid.JobID,
		BidderID:     bid.BidderID,
		AmountCents:  bid.AmountCents,
		DurationDays: bid.DurationDays,
		Message:      bid.Message,
		Status:       bid.Status,
		CreatedAt:    bid.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    bid.UpdatedAt.Format(time.RFC3339),
	}
	if bid.DecidedAt.Valid {
		d.DecidedAt = bid.DecidedAt.Time.Format(time.RFC3339)
	}
	return d
}

type ListBidsResponse struct {
	Bids []BidDTO `json:"bids"`
}
