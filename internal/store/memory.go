package store

import (
	"context"
	"sync"

	"stylegen/internal/domain"
)

// MemoryBatchStore is a process-local repository for development and tests.
type MemoryBatchStore struct {
	mu      sync.RWMutex
	batches map[domain.Catalogue][]domain.StyleBatch
}

func NewMemoryBatchStore() *MemoryBatchStore {
	return &MemoryBatchStore{batches: make(map[domain.Catalogue][]domain.StyleBatch)}
}

func (m *MemoryBatchStore) SaveBatch(ctx context.Context, batch domain.StyleBatch) error {
	if err := validateBatch(batch); err != nil {
		return err
	}
	batch.Items = domain.CloneStyles(batch.Items)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[batch.Catalogue] = append(m.batches[batch.Catalogue], batch)
	return nil
}

// LatestBatch returns the batch with the newest CreatedAt; ties go to the
// later save.
func (m *MemoryBatchStore) LatestBatch(ctx context.Context, cat domain.Catalogue) (*domain.StyleBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.batches[cat]
	if len(list) == 0 {
		return nil, domain.ErrNotFound
	}
	latest := list[0]
	for _, b := range list[1:] {
		if !b.CreatedAt.Before(latest.CreatedAt) {
			latest = b
		}
	}
	latest.Items = domain.CloneStyles(latest.Items)
	return &latest, nil
}

// Batches returns how many batches cat holds.
func (m *MemoryBatchStore) Batches(cat domain.Catalogue) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.batches[cat])
}

var _ domain.StyleBatchRepository = (*MemoryBatchStore)(nil)
