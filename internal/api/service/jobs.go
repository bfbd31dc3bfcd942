package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
	"github.com/voltmatch/voltmatch-be/internal/api/model"
	"github.com/voltmatch/voltmatch-be/internal/api/storage"
)

// CreateJobInput carries the fields a citizen posts a job with.
type CreateJobInput struct {
	OwnerID     string
	Category    string
	Urgency     string
	Description string
	BudgetCents int64
	City        string
	District    string
}

// CreateJob creates a job in OPEN and announces it to available
// electricians.
func (s *Service) CreateJob(ctx context.Context, input CreateJobInput) (*model.Job, error) {
	now := time.Now().UTC()
	job := &model.Job{
		JobID:       uuid.New().String(),
		OwnerID:     input.OwnerID,
		Category:    input.Category,
		Urgency:     input.Urgency,
		Description: input.Description,
		BudgetCents: input.BudgetCents,
		Status:      domain.JobStatusOpen,
		City:        input.City,
		District:    input.District,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("Job created",
		slog.String("job_id", job.JobID),
		slog.String("owner_id", job.OwnerID),
		slog.String("category", job.Category),
	)

	s.publishEvents(ctx, []domain.Event{domain.JobNewEvent{
		JobID:     job.JobID,
		ActorID:   job.OwnerID,
		Category:  job.Category,
		Urgency:   job.Urgency,
		City:      job.City,
		Timestamp: now,
	}})

	return job, nil
}

// GetJob is a snapshot read; it never takes the job lock.
func (s *Service) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	return s.store.GetJob(ctx, jobID)
}

// ListJobs is a snapshot read over the job listing filter.
func (s *Service) ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.Job, error) {
	return s.store.ListJobs(ctx, filter)
}

// CompleteJob finalizes an IN_PROGRESS job: escrow FUNDED -> RELEASED with
// a payout row, the conversation is archived, and the review window opens.
// Repeating complete on an already-COMPLETED job is a no-op returning the
// completed job.
func (s *Service) CompleteJob(ctx context.Context, jobID, actorID string) (*model.Job, error) {
	var (
		job    *model.Job
		events []domain.Event
	)

	err := s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		job, err = s.store.GetJobForUpdate(ctx, tx, jobID)
		if err != nil {
			return err
		}

		if job.OwnerID != actorID {
			return domain.ErrForbidden
		}

		// Idempotent retry with the same target state
		if job.Status == domain.JobStatusCompleted {
			return nil
		}

		if !domain.JobCanTransition(job.Status, domain.JobStatusCompleted) {
			return fmt.Errorf("%w: cannot complete job in status %s", domain.ErrInvalidTransition, job.Status)
		}

		esc, err := s.store.GetEscrowForUpdate(ctx, tx, jobID)
		if err != nil {
			// An IN_PROGRESS job must carry an escrow hold
			s.logger.Error("Escrow missing for in-progress job",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
			return domain.ErrInternalInconsistency
		}

		switch esc.Status {
		case domain.EscrowStatusFunded:
			// proceed
		case domain.EscrowStatusPendingFunding, domain.EscrowStatusUnfunded:
			return domain.ErrEscrowNotFunded
		default:
			s.logger.Error("Escrow in unexpected status for completion",
				slog.String("job_id", jobID),
				slog.String("escrow_status", esc.Status),
			)
			return domain.ErrInternalInconsistency
		}

		accepted, err := s.store.GetAcceptedBid(ctx, tx, jobID)
		if err != nil {
			s.logger.Error("Accepted bid missing for in-progress job",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
			return domain.ErrInternalInconsistency
		}

		if esc.AmountCents != accepted.AmountCents {
			s.logger.Error("Escrow amount does not match accepted bid, aborting",
				slog.String("job_id", jobID),
				slog.Int64("escrow_amount_cents", esc.AmountCents),
				slog.Int64("bid_amount_cents", accepted.AmountCents),
			)
			return domain.ErrInternalInconsistency
		}

		now := time.Now().UTC()

		if err := s.store.MarkEscrowReleased(ctx, tx, esc.EscrowID, now); err != nil {
			return err
		}

		if err := s.store.CreatePayment(ctx, tx, &model.Payment{
			PaymentID:   uuid.New().String(),
			JobID:       jobID,
			EscrowID:    esc.EscrowID,
			RecipientID: accepted.BidderID,
			Kind:        domain.PaymentKindPayout,
			AmountCents: esc.AmountCents,
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		if err := s.store.ArchiveConversationByJob(ctx, tx, jobID, now); err != nil {
			return err
		}

		reviewOpenUntil := now.Add(s.reviewWindow)
		if err := s.store.MarkJobCompleted(ctx, tx, jobID, reviewOpenUntil, now); err != nil {
			return err
		}

		job.Status = domain.JobStatusCompleted
		job.UpdatedAt = now

		events = []domain.Event{
			domain.JobCompletedEvent{JobID: jobID, ActorID: actorID, RecipientID: job.OwnerID, Timestamp: now},
			domain.JobCompletedEvent{JobID: jobID, ActorID: actorID, RecipientID: accepted.BidderID, Timestamp: now},
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	if len(events) > 0 {
		s.logger.Info("Job completed",
			slog.String("job_id", jobID),
		)
		s.publishEvents(ctx, events)
	}

	return job, nil
}

// CancelJob cancels a job from any non-terminal state. A FUNDED escrow is
// refunded, a pending hold is voided, and the conversation is archived.
// Repeating cancel on an already-CANCELLED job is a no-op.
func (s *Service) CancelJob(ctx context.Context, jobID, actorID, reason string) (*model.Job, error) {
	var (
		job    *model.Job
		events []domain.Event
	)

	err := s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		job, err = s.store.GetJobForUpdate(ctx, tx, jobID)
		if err != nil {
			return err
		}

		// Empty actorID marks a system-initiated cancel (funding reaper)
		if actorID != "" && job.OwnerID != actorID {
			return domain.ErrForbidden
		}

		if job.Status == domain.JobStatusCancelled {
			return nil
		}

		if !domain.JobCanTransition(job.Status, domain.JobStatusCancelled) {
			return fmt.Errorf("%w: cannot cancel job in status %s", domain.ErrInvalidTransition, job.Status)
		}

		now := time.Now().UTC()

		if err := s.cancelEscrowAndConversation(ctx, tx, job, now); err != nil {
			return err
		}

		recipients, err := s.store.ListAffectedBidderIDs(ctx, tx, jobID)
		if err != nil {
			return err
		}
		for _, bidderID := range recipients {
			events = append(events, domain.JobCancelledEvent{
				JobID:       jobID,
				ActorID:     actorID,
				RecipientID: bidderID,
				Reason:      reason,
				Timestamp:   now,
			})
		}
		if actorID == "" {
			// System cancel: the owner was not the actor, tell them too
			events = append(events, domain.JobCancelledEvent{
				JobID:       jobID,
				RecipientID: job.OwnerID,
				Reason:      reason,
				Timestamp:   now,
			})
		}

		if err := s.store.MarkJobCancelled(ctx, tx, jobID, reason, now); err != nil {
			return err
		}

		job.Status = domain.JobStatusCancelled
		job.UpdatedAt = now

		return nil
	})

	if err != nil {
		return nil, err
	}

	if len(events) > 0 {
		s.logger.Info("Job cancelled",
			slog.String("job_id", jobID),
			slog.String("reason", reason),
		)
		s.publishEvents(ctx, events)
	}

	return job, nil
}

// cancelEscrowAndConversation winds down the money and messaging side of a
// cancellation under the job lock. FUNDED holds are refunded with a refund
// payment row; PENDING_FUNDING holds are voided since nothing was captured.
func (s *Service) cancelEscrowAndConversation(ctx context.Context, tx *sqlx.Tx, job *model.Job, now time.Time) error {
	esc, err := s.store.GetEscrowForUpdate(ctx, tx, job.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrEscrowNotFound) {
			// No accepted bid yet, nothing to unwind
			return nil
		}
		return err
	}

	switch esc.Status {
	case domain.EscrowStatusFunded:
		if err := s.store.MarkEscrowRefunded(ctx, tx, esc.EscrowID, now); err != nil {
			return err
		}
		if err := s.store.CreatePayment(ctx, tx, &model.Payment{
			PaymentID:   uuid.New().String(),
			JobID:       job.JobID,
			EscrowID:    esc.EscrowID,
			RecipientID: job.OwnerID,
			Kind:        domain.PaymentKindRefund,
			AmountCents: esc.AmountCents,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
	case domain.EscrowStatusPendingFunding:
		if err := s.store.MarkEscrowUnfunded(ctx, tx, esc.EscrowID, now); err != nil {
			return err
		}
	}

	return s.store.ArchiveConversationByJob(ctx, tx, job.JobID, now)
}

// ConfirmFunding records the external payment capture for a job's escrow
// hold: PENDING_FUNDING -> FUNDED. Idempotent for an already-FUNDED hold.
func (s *Service) ConfirmFunding(ctx context.Context, jobID string) (*model.Escrow, error) {
	var esc *model.Escrow

	err := s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.store.GetJobForUpdate(ctx, tx, jobID); err != nil {
			return err
		}

		var err error
		esc, err = s.store.GetEscrowForUpdate(ctx, tx, jobID)
		if err != nil {
			return err
		}

		if esc.Status == domain.EscrowStatusFunded {
			return nil
		}

		if esc.Status != domain.EscrowStatusPendingFunding {
			return fmt.Errorf("%w: cannot fund escrow in status %s", domain.ErrInvalidTransition, esc.Status)
		}

		accepted, err := s.store.GetAcceptedBid(ctx, tx, jobID)
		if err != nil {
			s.logger.Error("Accepted bid missing for funded escrow",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
			return domain.ErrInternalInconsistency
		}

		if esc.AmountCents != accepted.AmountCents {
			s.logger.Error("Escrow amount does not match accepted bid, aborting",
				slog.String("job_id", jobID),
				slog.Int64("escrow_amount_cents", esc.AmountCents),
				slog.Int64("bid_amount_cents", accepted.AmountCents),
			)
			return domain.ErrInternalInconsistency
		}

		now := time.Now().UTC()
		if err := s.store.MarkEscrowFunded(ctx, tx, esc.EscrowID, now); err != nil {
			return err
		}

		esc.Status = domain.EscrowStatusFunded

		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Escrow funding confirmed",
		slog.String("job_id", jobID),
		slog.Int64("amount_cents", esc.AmountCents),
	)

	return esc, nil
}

// ExpireStaleHolds cancels jobs whose escrow hold outlived the funding
// window without capture. Each cancellation reuses the regular locked
// cancel path, so a capture racing the reaper simply wins or loses the job
// lock like any other transition.
func (s *Service) ExpireStaleHolds(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.fundingWindow)

	jobIDs, err := s.store.ListExpiredFundingJobIDs(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, jobID := range jobIDs {
		if _, err := s.CancelJob(ctx, jobID, "", "funding window elapsed"); err != nil {
			// The hold may have been funded or the job cancelled since the
			// snapshot read; skip and move on.
			s.logger.Warn("Failed to cancel job with expired funding hold",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
			continue
		}
		cancelled++
	}

	return cancelled, nil
}

// GetEscrow is a snapshot read of a job's escrow hold.
func (s *Service) GetEscrow(ctx context.Context, jobID string) (*model.Escrow, error) {
	return s.store.GetEscrowByJob(ctx, jobID)
}

// CreateReview records the citizen's rating of a completed job while the
// review window is open.
func (s *Service) CreateReview(ctx context.Context, jobID, authorID string, rating int, comment string) (*model.Review, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.OwnerID != authorID {
		return nil, domain.ErrForbidden
	}

	if job.Status != domain.JobStatusCompleted {
		return nil, fmt.Errorf("%w: job is not completed", domain.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	if !job.ReviewOpenUntil.Valid || now.After(job.ReviewOpenUntil.Time) {
		return nil, domain.ErrReviewWindowClosed
	}

	review := &model.Review{
		ReviewID:  uuid.New().String(),
		JobID:     jobID,
		AuthorID:  authorID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: now,
	}

	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	return review, nil
}

// PurgeJob removes a job and every dependent row in one transaction with
// explicit foreign-key ordering. Administrative teardown only.
func (s *Service) PurgeJob(ctx context.Context, jobID string) error {
	err := s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.store.GetJobForUpdate(ctx, tx, jobID); err != nil {
			return err
		}
		return s.store.PurgeJob(ctx, tx, jobID)
	})

	if err != nil {
		return err
	}

	s.logger.Info("Job purged",
		slog.String("job_id", jobID),
	)

	return nil
}
