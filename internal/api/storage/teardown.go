package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// purgeStatements deletes a job and everything hanging off it, ordered so
// that no delete violates a foreign key: reviews and payments first, then
// bids and escrow, then messages and conversations, the job row last.
var purgeStatements = []struct {
	table string
	query string
}{
	{"reviews", `DELETE FROM reviews WHERE job_id = $1`},
	{"payments", `DELETE FROM payments WHERE job_id = $1`},
	{"bids", `DELETE FROM bids WHERE job_id = $1`},
	{"escrows", `DELETE FROM escrows WHERE job_id = $1`},
	{"messages", `DELETE FROM messages WHERE conversation_id IN (SELECT conversation_id FROM conversations WHERE job_id = $1)`},
	{"conversations", `DELETE FROM conversations WHERE job_id = $1`},
	{"jobs", `DELETE FROM jobs WHERE job_id = $1`},
}

// PurgeJob physically removes a job and its dependents inside the caller's
// transaction. Lifecycle soft-cancellation never calls this; it exists for
// the administrative teardown route only.
func (s *Storage) PurgeJob(ctx context.Context, tx *sqlx.Tx, jobID string) error {
	for _, stmt := range purgeStatements {
		if _, err := tx.ExecContext(ctx, stmt.query, jobID); err != nil {
			return fmt.Errorf("failed to purge %s for job %s: %w", stmt.table, jobID, err)
		}
	}
	return nil
}
