package store

import (
	"context"
	"sync"

	"github.com/joescharf/reviewlens/internal/models"
)

// MemoryStore keeps reviews in a slice.
type MemoryStore struct {
	mu      sync.RWMutex
	reviews []models.Review
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, r models.Review) error {
	r.Insights = r.Insights.Normalized()
	m.mu.Lock()
	m.reviews = append(m.reviews, r)
	m.mu.Unlock()
	return nil
}

// List returns copies, so callers cannot mutate stored reviews.
func (m *MemoryStore) List(_ context.Context) ([]models.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Review, len(m.reviews))
	for i, r := range m.reviews {
		r.Insights = r.Insights.Normalized()
		out[i] = r
	}
	return out, nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reviews), nil
}

func (m *MemoryStore) Close() error { return nil }
