package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
)

func TestCreateJob_Success(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectExec(`INSERT INTO jobs`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	job, err := h.svc.CreateJob(context.Background(), CreateJobInput{
		OwnerID:     "citizen-1",
		Category:    "wiring",
		Urgency:     "standard",
		Description: "rewire the fuse box",
		BudgetCents: 120000,
		City:        "Haarlem",
		District:    "Centrum",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusOpen, job.Status)
	assert.Equal(t, []string{"job.new"}, h.pub.routingKeys())
	require.NoError(t, h.mock.ExpectationsWereMet())

	events := h.pub.decoded()
	require.Len(t, events, 1)
	assert.True(t, events[0].Audience().Broadcast)
}

func TestCompleteJob_Success(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(jobRow("job-1", "citizen-1", domain.JobStatusInProgress))
	h.mock.ExpectQuery(`SELECT (.+) FROM escrows WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(escrowRow("escrow-1", "job-1", "bid-1", domain.EscrowStatusFunded, 90000))
	h.mock.ExpectQuery(`SELECT (.+) FROM bids WHERE job_id = \$1 AND status = \$2`).
		WithArgs("job-1", domain.BidStatusAccepted).
		WillReturnRows(bidRow("bid-1", "job-1", "electrician-1", domain.BidStatusAccepted, 90000))
	h.mock.ExpectExec(`UPDATE escrows SET status`).
		WithArgs("escrow-1", domain.EscrowStatusReleased, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectExec(`INSERT INTO payments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectExec(`UPDATE conversations SET status`).
		WithArgs("job-1", domain.ConversationStatusArchived, sqlmock.AnyArg(), domain.ConversationStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectExec(`UPDATE jobs`).
		WithArgs("job-1", domain.JobStatusCompleted, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectCommit()

	job, err := h.svc.CompleteJob(context.Background(), "job-1", "citizen-1")

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	// One event per party: owner and winning electrician.
	assert.Equal(t, []string{"job.completed", "job.completed"}, h.pub.routingKeys())
	require.NoError(t, h.mock.ExpectationsWereMet())

	events := h.pub.decoded()
	require.Len(t, events, 2)
	assert.Equal(t, domain.TargetUser("citizen-1"), events[0].Audience())
	assert.Equal(t, domain.TargetUser("electrician-1"), events[1].Audience())
}

func TestCompleteJob_Idempotent(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(jobRow("job-1", "citizen-1", domain.JobStatusCompleted))
	h.mock.ExpectCommit()

	job, err := h.svc.CompleteJob(context.Background(), "job-1", "citizen-1")

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Empty(t, h.pub.routingKeys())
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestCompleteJob_EscrowNotFunded(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(jobRow("job-1", "citizen-1", domain.JobStatusInProgress))
	h.mock.ExpectQuery(`SELECT (.+) FROM escrows WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(escrowRow("escrow-1", "job-1", "bid-1", domain.EscrowStatusPendingFunding, 90000))
	h.mock.ExpectRollback()

	_, err := h.svc.CompleteJob(context.Background(), "job-1", "citizen-1")

	assert.ErrorIs(t, err, domain.ErrEscrowNotFunded)
	assert.Empty(t, h.pub.routingKeys())
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestCompleteJob_EscrowAmountMismatch(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(jobRow("job-1", "citizen-1", domain.JobStatusInProgress))
	h.mock.ExpectQuery(`SELECT (.+) FROM escrows WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(escrowRow("escrow-1", "job-1", "bid-1", domain.EscrowStatusFunded, 85000))
	h.mock.ExpectQuery(`SELECT (.+) FROM bids WHERE job_id = \$1 AND status = \$2`).
		WithArgs("job-1", domain.BidStatusAccepted).
		WillReturnRows(bidRow("bid-1", "job-1", "electrician-1", domain.BidStatusAccepted, 90000))
	h.mock.ExpectRollback()

	_, err := h.svc.CompleteJob(context.Background(), "job-1", "citizen-1")

	assert.ErrorIs(t, err, domain.ErrInternalInconsistency)
	assert.Empty(t, h.pub.routingKeys())
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestCompleteJob_InvalidTransition(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(jobRow("job-1", "citizen-1", domain.JobStatusOpen))
	h.mock.ExpectRollback()

	_, err := h.svc.CompleteJob(context.Background(), "job-1", "citizen-1")

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestCancelJob_NoAcceptedBid(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(jobRow("job-1", "citizen-1", domain.JobStatusBidding))
	// No escrow yet: nothing to unwind, just archive (no-op) and cancel.
	h.mock.ExpectQuery(`SELECT (.+) FROM escrows WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(escrowCols))
	h.mock.ExpectQuery(`SELECT bidder_id FROM bids`).
		WithArgs("job-1", domain.BidStatusPending, domain.BidStatusAccepted).
		WillReturnRows(sqlmock.NewRows([]string{"bidder_id"}).AddRow("electrician-1"))
	h.mock.ExpectExec(`UPDATE jobs`).
		WithArgs("job-1", domain.JobStatusCancelled, "changed my mind", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectCommit()

	job, err := h.svc.CancelJob(context.Background(), "job-1", "citizen-1", "changed my mind")

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, job.Status)
	assert.Equal(t, []string{"job.cancelled"}, h.pub.routingKeys())
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestCancelJob_RefundsFundedEscrow(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(jobRow("job-1", "citizen-1", domain.JobStatusInProgress))
	h.mock.ExpectQuery(`SELECT (.+) FROM escrows WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(escrowRow("escrow-1", "job-1", "bid-1", domain.EscrowStatusFunded, 90000))
	h.mock.ExpectExec(`UPDATE escrows SET status`).
		WithArgs("escrow-1", domain.EscrowStatusRefunded, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectExec(`INSERT INTO payments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectExec(`UPDATE conversations SET status`).
		WithArgs("job-1", domain.ConversationStatusArchived, sqlmock.AnyArg(), domain.ConversationStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectQuery(`SELECT bidder_id FROM bids`).
		WithArgs("job-1", domain.BidStatusPending, domain.BidStatusAccepted).
		WillReturnRows(sqlmock.NewRows([]string{"bidder_id"}).AddRow("electrician-1"))
	h.mock.ExpectExec(`UPDATE jobs`).
		WithArgs("job-1", domain.JobStatusCancelled, "no longer needed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectCommit()

	job, err := h.svc.CancelJob(context.Background(), "job-1", "citizen-1", "no longer needed")

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, job.Status)
	assert.Equal(t, []string{"job.cancelled"}, h.pub.routingKeys())
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestCancelJob_Idempotent(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(jobRow("job-1", "citizen-1", domain.JobStatusCancelled))
	h.mock.ExpectCommit()

	job, err := h.svc.CancelJob(context.Background(), "job-1", "citizen-1", "again")

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, job.Status)
	assert.Empty(t, h.pub.routingKeys())
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestCancelJob_CompletedIsTerminal(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(jobRow("job-1", "citizen-1", domain.JobStatusCompleted))
	h.mock.ExpectRollback()

	_, err := h.svc.CancelJob(context.Background(), "job-1", "citizen-1", "too late")

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestCancelJob_SystemCancelNotifiesOwner(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(jobRow("job-1", "citizen-1", domain.JobStatusInProgress))
	h.mock.ExpectQuery(`SELECT (.+) FROM escrows WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(escrowRow("escrow-1", "job-1", "bid-1", domain.EscrowStatusPendingFunding, 90000))
	h.mock.ExpectExec(`UPDATE escrows SET status`).
		WithArgs("escrow-1", domain.EscrowStatusUnfunded, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectExec(`UPDATE conversations SET status`).
		WithArgs("job-1", domain.ConversationStatusArchived, sqlmock.AnyArg(), domain.ConversationStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectQuery(`SELECT bidder_id FROM bids`).
		WithArgs("job-1", domain.BidStatusPending, domain.BidStatusAccepted).
		WillReturnRows(sqlmock.NewRows([]string{"bidder_id"}).AddRow("electrician-1"))
	h.mock.ExpectExec(`UPDATE jobs`).
		WithArgs("job-1", domain.JobStatusCancelled, "funding window elapsed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectCommit()

	job, err := h.svc.CancelJob(context.Background(), "job-1", "", "funding window elapsed")

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, job.Status)
	assert.Equal(t, []string{"job.cancelled", "job.cancelled"}, h.pub.routingKeys())
	require.NoError(t, h.mock.ExpectationsWereMet())

	events := h.pub.decoded()
	require.Len(t, events, 2)
	assert.Equal(t, domain.TargetUser("electrician-1"), events[0].Audience())
	assert.Equal(t, domain.TargetUser("citizen-1"), events[1].Audience())
}

func TestConfirmFunding_Success(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(jobRow("job-1", "citizen-1", domain.JobStatusInProgress))
	h.mock.ExpectQuery(`SELECT (.+) FROM escrows WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(escrowRow("escrow-1", "job-1", "bid-1", domain.EscrowStatusPendingFunding, 90000))
	h.mock.ExpectQuery(`SELECT (.+) FROM bids WHERE job_id = \$1 AND status = \$2`).
		WithArgs("job-1", domain.BidStatusAccepted).
		WillReturnRows(bidRow("bid-1", "job-1", "electrician-1", domain.BidStatusAccepted, 90000))
	h.mock.ExpectExec(`UPDATE escrows SET status`).
		WithArgs("escrow-1", domain.EscrowStatusFunded, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectCommit()

	esc, err := h.svc.ConfirmFunding(context.Background(), "job-1")

	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusFunded, esc.Status)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestConfirmFunding_Idempotent(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(jobRow("job-1", "citizen-1", domain.JobStatusInProgress))
	h.mock.ExpectQuery(`SELECT (.+) FROM escrows WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(escrowRow("escrow-1", "job-1", "bid-1", domain.EscrowStatusFunded, 90000))
	h.mock.ExpectCommit()

	esc, err := h.svc.ConfirmFunding(context.Background(), "job-1")

	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusFunded, esc.Status)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestConfirmFunding_AmountMismatch(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(jobRow("job-1", "citizen-1", domain.JobStatusInProgress))
	h.mock.ExpectQuery(`SELECT (.+) FROM escrows WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(escrowRow("escrow-1", "job-1", "bid-1", domain.EscrowStatusPendingFunding, 85000))
	h.mock.ExpectQuery(`SELECT (.+) FROM bids WHERE job_id = \$1 AND status = \$2`).
		WithArgs("job-1", domain.BidStatusAccepted).
		WillReturnRows(bidRow("bid-1", "job-1", "electrician-1", domain.BidStatusAccepted, 90000))
	h.mock.ExpectRollback()

	_, err := h.svc.ConfirmFunding(context.Background(), "job-1")

	assert.ErrorIs(t, err, domain.ErrInternalInconsistency)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestExpireStaleHolds_SkipsFailures(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectQuery(`SELECT e.job_id`).
		WithArgs(domain.EscrowStatusPendingFunding, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"job_id"}).AddRow("job-1").AddRow("job-2"))

	// job-1 was funded between the snapshot and the lock; the cancel aborts
	// and the sweep moves on.
	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(jobCols))
	h.mock.ExpectRollback()

	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-2").
		WillReturnRows(jobRow("job-2", "citizen-2", domain.JobStatusInProgress))
	h.mock.ExpectQuery(`SELECT (.+) FROM escrows WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job-2").
		WillReturnRows(escrowRow("escrow-2", "job-2", "bid-2", domain.EscrowStatusPendingFunding, 50000))
	h.mock.ExpectExec(`UPDATE escrows SET status`).
		WithArgs("escrow-2", domain.EscrowStatusUnfunded, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectExec(`UPDATE conversations SET status`).
		WithArgs("job-2", domain.ConversationStatusArchived, sqlmock.AnyArg(), domain.ConversationStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectQuery(`SELECT bidder_id FROM bids`).
		WithArgs("job-2", domain.BidStatusPending, domain.BidStatusAccepted).
		WillReturnRows(sqlmock.NewRows([]string{"bidder_id"}).AddRow("electrician-2"))
	h.mock.ExpectExec(`UPDATE jobs`).
		WithArgs("job-2", domain.JobStatusCancelled, "funding window elapsed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectCommit()

	cancelled, err := h.svc.ExpireStaleHolds(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestCreateReview_Success(t *testing.T) {
	h := newTestHarness(t)

	open := time.Now().UTC().Add(48 * time.Hour)
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1`).
		WithArgs("job-1").
		WillReturnRows(jobRowWithReviewWindow("job-1", "citizen-1", domain.JobStatusCompleted, open))
	h.mock.ExpectExec(`INSERT INTO reviews`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	review, err := h.svc.CreateReview(context.Background(), "job-1", "citizen-1", 5, "great work")

	require.NoError(t, err)
	assert.Equal(t, 5, review.Rating)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestCreateReview_WindowClosed(t *testing.T) {
	h := newTestHarness(t)

	closed := time.Now().UTC().Add(-time.Hour)
	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1`).
		WithArgs("job-1").
		WillReturnRows(jobRowWithReviewWindow("job-1", "citizen-1", domain.JobStatusCompleted, closed))

	_, err := h.svc.CreateReview(context.Background(), "job-1", "citizen-1", 5, "too late")

	assert.ErrorIs(t, err, domain.ErrReviewWindowClosed)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestCreateReview_NotCompleted(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1`).
		WithArgs("job-1").
		WillReturnRows(jobRow("job-1", "citizen-1", domain.JobStatusInProgress))

	_, err := h.svc.CreateReview(context.Background(), "job-1", "citizen-1", 4, "")

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestGetJob_NotFound(t *testing.T) {
	h := newTestHarness(t)

	h.mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE job_id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(jobCols))

	_, err := h.svc.GetJob(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	require.NoError(t, h.mock.ExpectationsWereMet())
}
