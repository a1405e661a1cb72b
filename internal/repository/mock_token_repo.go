package repository

import (
	"context"
	"sync"

	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
)

// MockTokenRepository is an in-memory TokenRepository for unit tests.
type MockTokenRepository struct {
	mu     sync.Mutex
	tokens []domain.DeviceToken

	ListErr   error
	DeleteErr error
}

func NewMockTokenRepository(tokens ...domain.DeviceToken) *MockTokenRepository {
	return &MockTokenRepository{tokens: tokens}
}

func (m *MockTokenRepository) ListByRecipients(_ context.Context, recipientIDs []string) (map[string][]domain.DeviceToken, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[string]bool, len(recipientIDs))
	for _, id := range recipientIDs {
		wanted[id] = true
	}

	result := make(map[string][]domain.DeviceToken)
	for _, t := range m.tokens {
		if wanted[t.RecipientID] {
			result[t.RecipientID] = append(result[t.RecipientID], t)
		}
	}
	return result, nil
}

func (m *MockTokenRepository) DeleteByValues(_ context.Context, values []string) (int64, error) {
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	dead := make(map[string]bool, len(values))
	for _, v := range values {
		dead[v] = true
	}

	var kept []domain.DeviceToken
	var deleted int64
	for _, t := range m.tokens {
		if dead[t.Token] {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	m.tokens = kept
	return deleted, nil
}

// Remaining returns the current token values, for post-run assertions.
func (m *MockTokenRepository) Remaining() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	values := make([]string, 0, len(m.tokens))
	for _, t := range m.tokens {
		values = append(values, t.Token)
	}
	return values
}

var _ TokenRepository = (*MockTokenRepository)(nil)
