package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
	"github.com/voltmatch/voltmatch-be/internal/api/model"
)

// SubmitBidInput carries the fields an electrician submits a bid with.
type SubmitBidInput struct {
	JobID        string
	BidderID     string
	AmountCents  int64
	DurationDays int
	Message      string
}

// SubmitBid records a PENDING bid on an open job. The duplicate-bid check
// runs under the job lock so a late submit cannot race an in-flight accept;
// the partial unique index backs the check up at the database level. The
// first bid flips the job from OPEN to BIDDING.
func (s *Service) SubmitBid(ctx context.Context, input SubmitBidInput) (*model.Bid, error) {
	var (
		bid    *model.Bid
		events []domain.Event
	)

	err := s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		job, err := s.store.GetJobForUpdate(ctx, tx, input.JobID)
		if err != nil {
			return err
		}

		if job.OwnerID == input.BidderID {
			return domain.ErrForbidden
		}

		if !domain.JobOpenForBids(job.Status) {
			return domain.ErrJobNotOpenForBids
		}

		active, err := s.store.CountActiveBids(ctx, tx, input.JobID, input.BidderID)
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.ErrDuplicateActiveBid
		}

		now := time.Now().UTC()
		bid = &model.Bid{
			BidID:        uuid.New().String(),
			JobID:        input.JobID,
			BidderID:     input.BidderID,
			AmountCents:  input.AmountCents,
			DurationDays: input.DurationDays,
			Message:      input.Message,
			Status:       domain.BidStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.store.CreateBid(ctx, tx, bid); err != nil {
			return err
		}

		// First bid: informational OPEN -> BIDDING flip. Does not restrict
		// further submissions.
		if job.Status == domain.JobStatusOpen {
			if err := s.store.UpdateJobStatus(ctx, tx, job.JobID, domain.JobStatusBidding, now); err != nil {
				return err
			}
		}

		events = []domain.Event{domain.BidNewEvent{
			JobID:       job.JobID,
			BidID:       bid.BidID,
			ActorID:     input.BidderID,
			OwnerID:     job.OwnerID,
			AmountCents: input.AmountCents,
			Timestamp:   now,
		}}

		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Bid submitted",
		slog.String("bid_id", bid.BidID),
		slog.String("job_id", bid.JobID),
		slog.String("bidder_id", bid.BidderID),
		slog.Int64("amount_cents", bid.AmountCents),
	)

	s.publishEvents(ctx, events)

	return bid, nil
}

// WithdrawBid withdraws a still-PENDING bid. The job lock is taken first so
// a withdraw cannot interleave with an accept deciding the same bid.
func (s *Service) WithdrawBid(ctx context.Context, bidID, actorID string) (*model.Bid, error) {
	var bid *model.Bid

	err := s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		located, err := s.store.GetBid(ctx, bidID)
		if err != nil {
			return err
		}

		if located.BidderID != actorID {
			return domain.ErrForbidden
		}

		if _, err := s.store.GetJobForUpdate(ctx, tx, located.JobID); err != nil {
			return err
		}

		// Revalidate under the lock: an accept may have decided this bid
		// between the lookup and the lock.
		bid, err = s.store.GetBidForUpdate(ctx, tx, bidID)
		if err != nil {
			return err
		}

		if bid.Status != domain.BidStatusPending {
			return domain.ErrBidNotWithdrawable
		}

		now := time.Now().UTC()
		if err := s.store.MarkBidWithdrawn(ctx, tx, bidID, now); err != nil {
			return err
		}

		bid.Status = domain.BidStatusWithdrawn
		bid.UpdatedAt = now

		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Bid withdrawn",
		slog.String("bid_id", bidID),
		slog.String("job_id", bid.JobID),
	)

	return bid, nil
}

// AcceptBid decides the acceptance race for a job. The two-phase pattern:
// acquire the exclusive per-job lock, revalidate that the job is still open
// and the target bid still PENDING with no bid accepted yet, then write the
// whole decision — accepted bid, rejected rivals, job to IN_PROGRESS,
// escrow hold, conversation — atomically. Concurrent accepts for the same
// job serialize on the lock; every loser fails with ErrBidAlreadyDecided
// and nothing is partially written. Events fan out only after commit.
func (s *Service) AcceptBid(ctx context.Context, bidID, actorID string) (*model.Bid, error) {
	var (
		bid    *model.Bid
		events []domain.Event
	)

	err := s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		located, err := s.store.GetBid(ctx, bidID)
		if err != nil {
			return err
		}

		job, err := s.store.GetJobForUpdate(ctx, tx, located.JobID)
		if err != nil {
			return err
		}

		if job.OwnerID != actorID {
			return domain.ErrForbidden
		}

		// Revalidation under the lock. A cancel that committed first means
		// the job is simply closed; a rival accept that committed first
		// means the race is decided.
		switch {
		case domain.JobOpenForBids(job.Status):
			// proceed
		case job.Status == domain.JobStatusCancelled:
			return domain.ErrJobNotOpenForBids
		default:
			return domain.ErrBidAlreadyDecided
		}

		accepted, err := s.store.CountAcceptedBids(ctx, tx, job.JobID)
		if err != nil {
			return err
		}
		if accepted > 0 {
			// Job still OPEN/BIDDING with an accepted bid should not occur;
			// treat the count as authoritative and refuse a second winner.
			return domain.ErrBidAlreadyDecided
		}

		bid, err = s.store.GetBidForUpdate(ctx, tx, bidID)
		if err != nil {
			return err
		}

		if bid.Status != domain.BidStatusPending {
			return domain.ErrBidAlreadyDecided
		}

		now := time.Now().UTC()

		if err := s.store.MarkBidAccepted(ctx, tx, bidID, now); err != nil {
			return err
		}

		rejected, err := s.store.RejectPendingBids(ctx, tx, job.JobID, bidID, now)
		if err != nil {
			return err
		}

		if err := s.store.UpdateJobStatus(ctx, tx, job.JobID, domain.JobStatusInProgress, now); err != nil {
			return err
		}

		if err := s.store.CreateEscrow(ctx, tx, &model.Escrow{
			EscrowID:    uuid.New().String(),
			JobID:       job.JobID,
			BidID:       bidID,
			AmountCents: bid.AmountCents,
			Status:      domain.EscrowStatusPendingFunding,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return err
		}

		if err := s.store.CreateConversation(ctx, tx, &model.Conversation{
			ConversationID: uuid.New().String(),
			JobID:          job.JobID,
			CitizenID:      job.OwnerID,
			ElectricianID:  bid.BidderID,
			Status:         domain.ConversationStatusActive,
			CreatedAt:      now,
		}); err != nil {
			return err
		}

		bid.Status = domain.BidStatusAccepted
		bid.UpdatedAt = now

		events = make([]domain.Event, 0, len(rejected)+1)
		events = append(events, domain.BidAcceptedEvent{
			JobID:       job.JobID,
			BidID:       bidID,
			ActorID:     actorID,
			BidderID:    bid.BidderID,
			AmountCents: bid.AmountCents,
			Timestamp:   now,
		})
		for _, r := range rejected {
			events = append(events, domain.BidRejectedEvent{
				JobID:     job.JobID,
				BidID:     r.BidID,
				ActorID:   actorID,
				BidderID:  r.BidderID,
				Timestamp: now,
			})
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Bid accepted",
		slog.String("bid_id", bidID),
		slog.String("job_id", bid.JobID),
		slog.String("bidder_id", bid.BidderID),
		slog.Int("rejected_count", len(events)-1),
	)

	s.publishEvents(ctx, events)

	return bid, nil
}

// ListBids is a snapshot read of a job's bids.
func (s *Service) ListBids(ctx context.Context, jobID string) ([]model.Bid, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.store.ListBidsByJob(ctx, jobID)
}

// GetBid is a snapshot read of a single bid.
func (s *Service) GetBid(ctx context.Context, bidID string) (*model.Bid, error) {
	return s.store.GetBid(ctx, bidID)
}
