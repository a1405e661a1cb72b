package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
)

// MockQueueRepository is a hand-written, in-memory implementation of
// QueueRepository used in unit tests. No mock-generation library needed.
// ClaimBatch mirrors the SQL semantics: claims are atomic under the mutex,
// oldest-first, and stale claims become claimable again.
type MockQueueRepository struct {
	mu   sync.Mutex
	rows map[string]*domain.QueuedNotification

	// Optional error overrides — set in tests to simulate failure paths.
	InsertErr     error
	ClaimErr      error
	MarkSentErr   error
	MarkFailedErr error
	SweepErr      error
}

func NewMockQueueRepository() *MockQueueRepository {
	return &MockQueueRepository{rows: make(map[string]*domain.QueuedNotification)}
}

// Seed places a row directly into the store, bypassing validation.
func (m *MockQueueRepository) Seed(n *domain.QueuedNotification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := cloneNotification(n)
	m.rows[n.ID] = clone
}

// Snapshot returns a copy of a stored row, or nil if absent.
func (m *MockQueueRepository) Snapshot(id string) *domain.QueuedNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok {
		return nil
	}
	return cloneNotification(n)
}

// Len returns the number of stored rows.
func (m *MockQueueRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *MockQueueRepository) Insert(_ context.Context, n *domain.QueuedNotification) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[n.ID] = cloneNotification(n)
	return nil
}

func (m *MockQueueRepository) GetByID(_ context.Context, id string) (*domain.QueuedNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneNotification(n), nil
}

func (m *MockQueueRepository) ClaimBatch(_ context.Context, limit int, claimTimeout time.Duration) ([]*domain.QueuedNotification, error) {
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	staleBefore := now.Add(-claimTimeout)

	var claimable []*domain.QueuedNotification
	for _, n := range m.rows {
		switch {
		case n.Status == domain.StatusPending:
			claimable = append(claimable, n)
		case n.Status == domain.StatusClaimed && n.ClaimedAt != nil && n.ClaimedAt.Before(staleBefore):
			claimable = append(claimable, n)
		}
	}
	sort.Slice(claimable, func(i, j int) bool {
		return claimable[i].EnqueuedAt.Before(claimable[j].EnqueuedAt)
	})
	if len(claimable) > limit {
		claimable = claimable[:limit]
	}

	claimed := make([]*domain.QueuedNotification, 0, len(claimable))
	for _, n := range claimable {
		n.Status = domain.StatusClaimed
		at := now
		n.ClaimedAt = &at
		claimed = append(claimed, cloneNotification(n))
	}
	return claimed, nil
}

func (m *MockQueueRepository) MarkSent(_ context.Context, ids []string, processedAt time.Time) error {
	if m.MarkSentErr != nil {
		return m.MarkSentErr
	}
	m.setTerminal(ids, domain.StatusSent, processedAt)
	return nil
}

func (m *MockQueueRepository) MarkFailed(_ context.Context, ids []string, processedAt time.Time) error {
	if m.MarkFailedErr != nil {
		return m.MarkFailedErr
	}
	m.setTerminal(ids, domain.StatusFailed, processedAt)
	return nil
}

func (m *MockQueueRepository) setTerminal(ids []string, status domain.Status, processedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if n, ok := m.rows[id]; ok {
			n.Status = status
			at := processedAt
			n.ProcessedAt = &at
		}
	}
}

func (m *MockQueueRepository) DeleteProcessedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	if m.SweepErr != nil {
		return 0, m.SweepErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, n := range m.rows {
		if n.Status != domain.StatusPending && n.ProcessedAt != nil && n.ProcessedAt.Before(cutoff) {
			delete(m.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockQueueRepository) CountPending(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, row := range m.rows {
		if row.Status == domain.StatusPending {
			n++
		}
	}
	return n, nil
}

func (m *MockQueueRepository) CountStalePending(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, row := range m.rows {
		if row.Status == domain.StatusPending && row.EnqueuedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func cloneNotification(n *domain.QueuedNotification) *domain.QueuedNotification {
	clone := *n
	if n.Data != nil {
		clone.Data = make(map[string]string, len(n.Data))
		for k, v := range n.Data {
			clone.Data[k] = v
		}
	}
	if n.ClaimedAt != nil {
		at := *n.ClaimedAt
		clone.ClaimedAt = &at
	}
	if n.ProcessedAt != nil {
		at := *n.ProcessedAt
		clone.ProcessedAt = &at
	}
	return &clone
}

var _ QueueRepository = (*MockQueueRepository)(nil)
