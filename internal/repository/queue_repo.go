package repository

import (
	"context"
	"time"

	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
)

// QueueRepository defines all persistence operations on the notification
// queue table. The pgx implementation is in pg_queue_repo.go.
// Tests use a hand-written mock (mock_queue_repo.go).
type QueueRepository interface {
	// Insert persists a new pending row. This is the only write surface
	// exposed to upstream producers.
	Insert(ctx context.Context, n *domain.QueuedNotification) error

	GetByID(ctx context.Context, id string) (*domain.QueuedNotification, error)

	// ClaimBatch atomically transitions up to limit rows from pending to
	// claimed and returns them oldest-first. Rows whose claim is older than
	// claimTimeout are treated as orphaned and become claimable again.
	// The transition and the read are a single statement, so two overlapping
	// runs can never claim the same row.
	ClaimBatch(ctx context.Context, limit int, claimTimeout time.Duration) ([]*domain.QueuedNotification, error)

	// MarkSent and MarkFailed bulk-commit terminal statuses. Both are
	// idempotent: re-applying the same id set changes nothing observable.
	MarkSent(ctx context.Context, ids []string, processedAt time.Time) error
	MarkFailed(ctx context.Context, ids []string, processedAt time.Time) error

	// DeleteProcessedBefore removes terminal rows whose processed_at is
	// older than cutoff. Pending and claimed rows are never touched.
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	CountPending(ctx context.Context) (int, error)

	// CountStalePending reports pending rows older than cutoff. The sweeper
	// never deletes these; the count exists purely so operators can see the
	// backlog a stalled producer-side pipeline leaves behind.
	CountStalePending(ctx context.Context, cutoff time.Time) (int, error)
}
