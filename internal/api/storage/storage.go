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
	"github.com/voltmatch/voltmatch-be/shared/postgresql"
)

// Storage owns every SQL statement in the API service. Methods that take a
// *sqlx.Tx participate in a caller-owned transaction; the per-job exclusive
// lock is GetJobForUpdate, which every lifecycle mutation acquires first.
type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// NewStorageWithDB wraps an existing handle. Used by tests with a stub
// database connection.
func NewStorageWithDB(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

const jobColumns = `
	job_id, owner_id, category, urgency, description, budget_cents,
	status, city, district, cancel_reason, review_open_until,
	created_at, updated_at
`

func (s *Storage) CreateJob(ctx context.Context, job *model.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, owner_id, category, urgency, description, budget_cents,
			status, city, district, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.OwnerID,
		job.Category,
		job.Urgency,
		job.Description,
		job.BudgetCents,
		job.Status,
		job.City,
		job.District,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

func (s *Storage) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// GetJobForUpdate reads the job row under an exclusive row lock. This is
// the serialization point for accept, complete, cancel, submit and
// withdraw: only one in-flight transaction may hold it per job.
func (s *Storage) GetJobForUpdate(ctx context.Context, tx *sqlx.Tx, jobID string) (*model.Job, error) {
	var job model.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1 FOR UPDATE`

	err := tx.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to lock job: %w", err)
	}

	return &job, nil
}

func (s *Storage) UpdateJobStatus(ctx context.Context, tx *sqlx.Tx, jobID, status string, now time.Time) error {
	query := `UPDATE jobs SET status = $2, updated_at = $3 WHERE job_id = $1`

	if _, err := tx.ExecContext(ctx, query, jobID, status, now); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	return nil
}

func (s *Storage) MarkJobCompleted(ctx context.Context, tx *sqlx.Tx, jobID string, reviewOpenUntil, now time.Time) error {
	query := `
		UPDATE jobs
		SET status = $2, review_open_until = $3, updated_at = $4
		WHERE job_id = $1
	`

	if _, err := tx.ExecContext(ctx, query, jobID, domain.JobStatusCompleted, reviewOpenUntil, now); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	return nil
}

func (s *Storage) MarkJobCancelled(ctx context.Context, tx *sqlx.Tx, jobID, reason string, now time.Time) error {
	query := `
		UPDATE jobs
		SET status = $2, cancel_reason = $3, updated_at = $4
		WHERE job_id = $1
	`

	if _, err := tx.ExecContext(ctx, query, jobID, domain.JobStatusCancelled, reason, now); err != nil {
		return fmt.Errorf("failed to mark job cancelled: %w", err)
	}

	return nil
}

type JobFilter struct {
	OwnerID  string
	Category string
	Status   string
	City     string
	PageSize int
	Cursor   *JobCursor
}

type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs is a snapshot read for listing and filtering. It never takes the
// per-job lock. Keyset pagination on (created_at, job_id) descending.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.OwnerID != "" {
		query += fmt.Sprintf(" AND owner_id = $%d", argIdx)
		args = append(args, filter.OwnerID)
		argIdx++
	}

	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, filter.Category)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.City != "" {
		query += fmt.Sprintf(" AND city = $%d", argIdx)
		args = append(args, filter.City)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.Job
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// ListExpiredFundingJobIDs returns jobs whose escrow hold has been waiting
// for capture since before the cutoff. Snapshot read; the reaper re-checks
// everything under the job lock before cancelling.
func (s *Storage) ListExpiredFundingJobIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `
		SELECT e.job_id
		FROM escrows e
		WHERE e.status = $1 AND e.created_at < $2
	`

	var jobIDs []string
	err := s.db.SelectContext(ctx, &jobIDs, query, domain.EscrowStatusPendingFunding, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired funding holds: %w", err)
	}

	return jobIDs, nil
}
