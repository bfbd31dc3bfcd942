package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
	"github.com/voltmatch/voltmatch-be/internal/api/model"
)

const escrowColumns = `
	escrow_id, job_id, bid_id, amount_cents, status,
	funded_at, released_at, refunded_at, created_at, updated_at
`

func (s *Storage) CreateEscrow(ctx context.Context, tx *sqlx.Tx, esc *model.Escrow) error {
	query := `
		INSERT INTO escrows (
			escrow_id, job_id, bid_id, amount_cents, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		esc.EscrowID,
		esc.JobID,
		esc.BidID,
		esc.AmountCents,
		esc.Status,
		esc.CreatedAt,
		esc.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create escrow: %w", err)
	}

	return nil
}

func (s *Storage) GetEscrowByJob(ctx context.Context, jobID string) (*model.Escrow, error) {
	var esc model.Escrow
	query := `SELECT ` + escrowColumns + ` FROM escrows WHERE job_id = $1`

	err := s.db.GetContext(ctx, &esc, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("failed to get escrow: %w", err)
	}

	return &esc, nil
}

// GetEscrowForUpdate locks the job's escrow row inside the caller's
// transaction. Callers hold the job lock already; locking the escrow row
// too keeps funding confirmations ordered against release and refund.
func (s *Storage) GetEscrowForUpdate(ctx context.Context, tx *sqlx.Tx, jobID string) (*model.Escrow, error) {
	var esc model.Escrow
	query := `SELECT ` + escrowColumns + ` FROM escrows WHERE job_id = $1 FOR UPDATE`

	err := tx.GetContext(ctx, &esc, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("failed to lock escrow: %w", err)
	}

	return &esc, nil
}

func (s *Storage) MarkEscrowFunded(ctx context.Context, tx *sqlx.Tx, escrowID string, now time.Time) error {
	query := `
		UPDATE escrows SET status = $2, funded_at = $3, updated_at = $3
		WHERE escrow_id = $1
	`

	if _, err := tx.ExecContext(ctx, query, escrowID, domain.EscrowStatusFunded, now); err != nil {
		return fmt.Errorf("failed to mark escrow funded: %w", err)
	}

	return nil
}

func (s *Storage) MarkEscrowReleased(ctx context.Context, tx *sqlx.Tx, escrowID string, now time.Time) error {
	query := `
		UPDATE escrows SET status = $2, released_at = $3, updated_at = $3
		WHERE escrow_id = $1
	`

	if _, err := tx.ExecContext(ctx, query, escrowID, domain.EscrowStatusReleased, now); err != nil {
		return fmt.Errorf("failed to mark escrow released: %w", err)
	}

	return nil
}

func (s *Storage) MarkEscrowRefunded(ctx context.Context, tx *sqlx.Tx, escrowID string, now time.Time) error {
	query := `
		UPDATE escrows SET status = $2, refunded_at = $3, updated_at = $3
		WHERE escrow_id = $1
	`

	if _, err := tx.ExecContext(ctx, query, escrowID, domain.EscrowStatusRefunded, now); err != nil {
		return fmt.Errorf("failed to mark escrow refunded: %w", err)
	}

	return nil
}

// MarkEscrowUnfunded voids a hold whose funding window elapsed. Nothing was
// captured, so there is nothing to refund.
func (s *Storage) MarkEscrowUnfunded(ctx context.Context, tx *sqlx.Tx, escrowID string, now time.Time) error {
	query := `
		UPDATE escrows SET status = $2, updated_at = $3
		WHERE escrow_id = $1
	`

	if _, err := tx.ExecContext(ctx, query, escrowID, domain.EscrowStatusUnfunded, now); err != nil {
		return fmt.Errorf("failed to mark escrow unfunded: %w", err)
	}

	return nil
}

func (s *Storage) CreatePayment(ctx context.Context, tx *sqlx.Tx, p *model.Payment) error {
	query := `
		INSERT INTO payments (
			payment_id, job_id, escrow_id, recipient_id, kind, amount_cents, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		p.PaymentID,
		p.JobID,
		p.EscrowID,
		p.RecipientID,
		p.Kind,
		p.AmountCents,
		p.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}
