package dto

import (
	"time"

	"github.com/voltmatch/voltmatch-be/internal/api/model"
)

type CreateJobRequest struct {
	Category    string `json:"category" binding:"required"`
	Urgency     string `json:"urgency" binding:"required"`
	Description string `json:"description" binding:"required"`
	BudgetCents int64  `json:"budget_cents" binding:"required,gt=0"`
	City        string `json:"city" binding:"required"`
	District    string `json:"district"`
}

type CancelJobRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

type ListJobsRequest struct {
	OwnerID  string `form:"owner_id"`
	Category string `form:"category"`
	Status   string `form:"status"`
	City     string `form:"city"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	JobID           string `json:"job_id"`
	OwnerID         string `json:"owner_id"`
	Category        string `json:"category"`
	Urgency         string `json:"urgency"`
	Description     string `json:"description"`
	BudgetCents     int64  `json:"budget_cents"`
	Status          string `json:"status"`
	City            string `json:"city"`
	District        string `json:"district"`
	CancelReason    string `json:"cancel_reason,omitempty"`
	ReviewOpenUntil string `json:"review_open_until,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func JobFromModel(job *model.Job) JobDTO {
	d := JobDTO{
		JobID:       job.JobID,
		OwnerID:     job.OwnerID,
		Category:    job.Category,
		Urgency:     job.Urgency,
		Description: job.Description,
		BudgetCents: job.BudgetCents,
		Status:      job.Status,
		City:        job.City,
		District:    job.District,
		CreatedAt:   job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   job.UpdatedAt.Format(time.RFC3339),
	}
	if job.CancelReason.Valid {
		d.CancelReason = job.CancelReason.String
	}
	if job.ReviewOpenUntil.Valid {
		d.ReviewOpenUntil = job.ReviewOpenUntil.Time.Format(time.RFC3339)
	}
	return d
}

type EscrowDTO struct {
	EscrowID    string `json:"escrow_id"`
	JobID       string `json:"job_id"`
	BidID       string `json:"bid_id"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
	FundedAt    string `json:"funded_at,omitempty"`
	ReleasedAt  string `json:"released_at,omitempty"`
	RefundedAt  string `json:"refunded_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func EscrowFromModel(esc *model.Escrow) EscrowDTO {
	d := EscrowDTO{
		EscrowID:    esc.EscrowID,
		JobID:       esc.JobID,
		BidID:       esc.BidID,
		AmountCents: esc.AmountCents,
		Status:      esc.Status,
		CreatedAt:   esc.CreatedAt.Format(time.RFC3339),
	}
	if esc.FundedAt.Valid {
		d.FundedAt = esc.FundedAt.Time.Format(time.RFC3339)
	}
	if esc.ReleasedAt.Valid {
		d.ReleasedAt = esc.ReleasedAt.Time.Format(time.RFC3339)
	}
	if esc.RefundedAt.Valid {
		d.RefundedAt = esc.RefundedAt.Time.Format(time.RFC3339)
	}
	return d
}

type ReviewDTO struct {
	ReviewID  string `json:"review_id"`
	JobID     string `json:"job_id"`
	AuthorID  string `json:"author_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	CreatedAt string `json:"created_at"`
}

func ReviewFromModel(r *model.Review) ReviewDTO {
	return ReviewDTO{
		ReviewID:  r.ReviewID,
		JobID:     r.JobID,
		AuthorID:  r.AuthorID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}
