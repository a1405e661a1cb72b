package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
)

type pgQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPgQueueRepository returns a QueueRepository backed by PostgreSQL.
func NewPgQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &pgQueueRepository{pool: pool}
}

func (r *pgQueueRepository) Insert(ctx context.Context, n *domain.QueuedNotification) error {
	data := n.Data
	if data == nil {
		data = map[string]string{} // column is NOT NULL
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_queue
			(id, recipient_id, title, body, data, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		n.ID, n.RecipientID, n.Title, n.Body, data, n.Status, n.EnqueuedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) GetByID(ctx context.Context, id string) (*domain.QueuedNotification, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, recipient_id, title, body, data, status,
		       created_at, claimed_at, processed_at
		FROM notification_queue WHERE id = $1`, id)

	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return n, err
}

// ClaimBatch selects the oldest claimable rows and flips them to claimed in
// one statement. FOR UPDATE SKIP LOCKED lets two overlapping runs partition
// the pending set between them instead of blocking or double-claiming.
func (r *pgQueueRepository) ClaimBatch(ctx context.Context, limit int, claimTimeout time.Duration) ([]*domain.QueuedNotification, error) {
	staleBefore := time.Now().UTC().Add(-claimTimeout)

	rows, err := r.pool.Query(ctx, `
		UPDATE notification_queue
		SET status = 'claimed', claimed_at = NOW()
		WHERE id IN (
			SELECT id FROM notification_queue
			WHERE status = 'pending'
			   OR (status = 'claimed' AND claimed_at < $2)
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, recipient_id, title, body, data, status,
		          created_at, claimed_at, processed_at`,
		limit, staleBefore,
	)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	defer rows.Close()

	claimed, err := scanNotifications(rows)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}

	// RETURNING does not promise row order; restore oldest-first.
	sort.Slice(claimed, func(i, j int) bool {
		return claimed[i].EnqueuedAt.Before(claimed[j].EnqueuedAt)
	})
	return claimed, nil
}

func (r *pgQueueRepository) MarkSent(ctx context.Context, ids []string, processedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_queue
		SET status = 'sent', processed_at = $2
		WHERE id = ANY($1)`, ids, processedAt)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) MarkFailed(ctx context.Context, ids []string, processedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_queue
		SET status = 'failed', processed_at = $2
		WHERE id = ANY($1)`, ids, processedAt)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// DeleteProcessedBefore relies on processed_at being NULL for pending and
// claimed rows: NULL never compares below the cutoff, so only terminal rows
// can match.
func (r *pgQueueRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM notification_queue
		WHERE status <> 'pending' AND processed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention sweep: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgQueueRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notification_queue WHERE status = 'pending'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

func (r *pgQueueRepository) CountStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notification_queue
		WHERE status = 'pending' AND created_at < $1`, cutoff).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count stale pending: %w", err)
	}
	return n, nil
}

// ---- helpers ----

// scanNotification reads a single queue row from any pgx row type.
func scanNotification(row pgx.Row) (*domain.QueuedNotification, error) {
	var n domain.QueuedNotification
	err := row.Scan(
		&n.ID, &n.RecipientID, &n.Title, &n.Body, &n.Data,
		&n.Status, &n.EnqueuedAt, &n.ClaimedAt, &n.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func scanNotifications(rows pgx.Rows) ([]*domain.QueuedNotification, error) {
	var result []*domain.QueuedNotification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
