package repository

import (
	"context"

	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
)

// TokenRepository defines persistence operations on the device token
// directory. A token's presence implies it is believed valid; there is no
// separate status column. The pgx implementation is in pg_token_repo.go.
type TokenRepository interface {
	// ListByRecipients returns every stored token for the given recipients,
	// grouped by recipient id. Recipients with no tokens are simply absent
	// from the result map.
	ListByRecipients(ctx context.Context, recipientIDs []string) (map[string][]domain.DeviceToken, error)

	// DeleteByValues removes the given token values across all recipients.
	// Token death is a global fact: the provider reports it against whichever
	// notification happened to surface it, but the token is dead everywhere.
	DeleteByValues(ctx context.Context, tokens []string) (int64, error)
}
