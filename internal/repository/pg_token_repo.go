package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
)

type pgTokenRepository struct {
	pool *pgxpool.Pool
}

// NewPgTokenRepository returns a TokenRepository backed by PostgreSQL.
func NewPgTokenRepository(pool *pgxpool.Pool) TokenRepository {
	return &pgTokenRepository{pool: pool}
}

func (r *pgTokenRepository) ListByRecipients(ctx context.Context, recipientIDs []string) (map[string][]domain.DeviceToken, error) {
	result := make(map[string][]domain.DeviceToken)
	if len(recipientIDs) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT recipient_id, token, created_at
		FROM device_tokens
		WHERE recipient_id = ANY($1)`, recipientIDs)
	if err != nil {
		return nil, fmt.Errorf("list device tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.DeviceToken
		if err := rows.Scan(&t.RecipientID, &t.Token, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan device token: %w", err)
		}
		result[t.RecipientID] = append(result[t.RecipientID], t)
	}
	return result, rows.Err()
}

func (r *pgTokenRepository) DeleteByValues(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM device_tokens WHERE token = ANY($1)`, tokens)
	if err != nil {
		return 0, fmt.Errorf("delete device tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
