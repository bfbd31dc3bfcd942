package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
	"github.com/voltmatch/voltmatch-be/internal/api/model"
)

const bidColumns = `
	bid_id, job_id, bidder_id, amount_cents, duration_days, message,
	status, decided_at, created_at, updated_at
`

// pqUniqueViolation is the PostgreSQL error code for unique_violation.
const pqUniqueViolation = "23505"

// CreateBid inserts a PENDING bid. The partial unique index
// bids_one_active_per_bidder backs up the in-transaction duplicate check,
// so a violation maps to the domain error rather than a generic failure.
func (s *Storage) CreateBid(ctx context.Context, tx *sqlx.Tx, bid *model.Bid) error {
	query := `
		INSERT INTO bids (
			bid_id, job_id, bidder_id, amount_cents, duration_days, message,
			status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9
		)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		bid.BidID,
		bid.JobID,
		bid.BidderID,
		bid.AmountCents,
		bid.DurationDays,
		bid.Message,
		bid.Status,
		bid.CreatedAt,
		bid.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return domain.ErrDuplicateActiveBid
		}
		return fmt.Errorf("failed to create bid: %w", err)
	}

	return nil
}

func (s *Storage) GetBid(ctx context.Context, bidID string) (*model.Bid, error) {
	var bid model.Bid
	query := `SELECT ` + bidColumns + ` FROM bids WHERE bid_id = $1`

	err := s.db.GetContext(ctx, &bid, query, bidID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBidNotFound
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}

	return &bid, nil
}

// GetBidForUpdate re-reads the bid inside the caller's transaction. The
// caller must already hold the job lock; this re-read is the revalidation
// step of the two-phase accept/withdraw pattern.
func (s *Storage) GetBidForUpdate(ctx context.Context, tx *sqlx.Tx, bidID string) (*model.Bid, error) {
	var bid model.Bid
	query := `SELECT ` + bidColumns + ` FROM bids WHERE bid_id = $1 FOR UPDATE`

	err := tx.GetContext(ctx, &bid, query, bidID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBidNotFound
		}
		return nil, fmt.Errorf("failed to lock bid: %w", err)
	}

	return &bid, nil
}

// CountActiveBids counts the bidder's PENDING/ACCEPTED bids on the job.
func (s *Storage) CountActiveBids(ctx context.Context, tx *sqlx.Tx, jobID, bidderID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM bids
		WHERE job_id = $1 AND bidder_id = $2 AND status IN ($3, $4)
	`

	var count int
	err := tx.GetContext(ctx, &count, query, jobID, bidderID, domain.BidStatusPending, domain.BidStatusAccepted)
	if err != nil {
		return 0, fmt.Errorf("failed to count active bids: %w", err)
	}

	return count, nil
}

// CountAcceptedBids counts ACCEPTED bids on the job. Under the job lock a
// non-zero count means the acceptance race was already decided.
func (s *Storage) CountAcceptedBids(ctx context.Context, tx *sqlx.Tx, jobID string) (int, error) {
	query := `SELECT COUNT(*) FROM bids WHERE job_id = $1 AND status = $2`

	var count int
	err := tx.GetContext(ctx, &count, query, jobID, domain.BidStatusAccepted)
	if err != nil {
		return 0, fmt.Errorf("failed to count accepted bids: %w", err)
	}

	return count, nil
}

func (s *Storage) MarkBidAccepted(ctx context.Context, tx *sqlx.Tx, bidID string, now time.Time) error {
	query := `
		UPDATE bids SET status = $2, decided_at = $3, updated_at = $3
		WHERE bid_id = $1
	`

	if _, err := tx.ExecContext(ctx, query, bidID, domain.BidStatusAccepted, now); err != nil {
		return fmt.Errorf("failed to mark bid accepted: %w", err)
	}

	return nil
}

// RejectPendingBids rejects every still-PENDING bid on the job except the
// accepted one, returning the rejected rows so the caller can fan out one
// bid:rejected event per loser.
func (s *Storage) RejectPendingBids(ctx context.Context, tx *sqlx.Tx, jobID, acceptedBidID string, now time.Time) ([]model.Bid, error) {
	query := `
		UPDATE bids SET status = $3, decided_at = $4, updated_at = $4
		WHERE job_id = $1 AND bid_id <> $2 AND status = $5
		RETURNING ` + bidColumns

	var rejected []model.Bid
	err := tx.SelectContext(ctx, &rejected, query, jobID, acceptedBidID, domain.BidStatusRejected, now, domain.BidStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to reject pending bids: %w", err)
	}

	return rejected, nil
}

func (s *Storage) MarkBidWithdrawn(ctx context.Context, tx *sqlx.Tx, bidID string, now time.Time) error {
	query := `
		UPDATE bids SET status = $2, decided_at = $3, updated_at = $3
		WHERE bid_id = $1
	`

	if _, err := tx.ExecContext(ctx, query, bidID, domain.BidStatusWithdrawn, now); err != nil {
		return fmt.Errorf("failed to mark bid withdrawn: %w", err)
	}

	return nil
}

// GetAcceptedBid returns the job's single ACCEPTED bid.
func (s *Storage) GetAcceptedBid(ctx context.Context, tx *sqlx.Tx, jobID string) (*model.Bid, error) {
	var bid model.Bid
	query := `SELECT ` + bidColumns + ` FROM bids WHERE job_id = $1 AND status = $2`

	err := tx.GetContext(ctx, &bid, query, jobID, domain.BidStatusAccepted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBidNotFound
		}
		return nil, fmt.Errorf("failed to get accepted bid: %w", err)
	}

	return &bid, nil
}

// ListAffectedBidderIDs returns the bidders holding PENDING or ACCEPTED
// bids on the job. Used by cancel to address job:cancelled events.
func (s *Storage) ListAffectedBidderIDs(ctx context.Context, tx *sqlx.Tx, jobID string) ([]string, error) {
	query := `
		SELECT bidder_id FROM bids
		WHERE job_id = $1 AND status IN ($2, $3)
	`

	var bidderIDs []string
	err := tx.SelectContext(ctx, &bidderIDs, query, jobID, domain.BidStatusPending, domain.BidStatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("failed to list affected bidders: %w", err)
	}

	return bidderIDs, nil
}

func (s *Storage) ListBidsByJob(ctx context.Context, jobID string) ([]model.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE job_id = $1 ORDER BY created_at ASC`

	var bids []model.Bid
	err := s.db.SelectContext(ctx, &bids, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}

	return bids, nil
}
