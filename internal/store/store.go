package store

import (
	"context"
	"fmt"

	"github.com/joescharf/reviewlens/internal/models"
)

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Store holds the reviews of one ledger in insertion order.
// It has no update or delete operations.
type Store interface {
	Append(ctx context.Context, r models.Review) error
	List(ctx context.Context) ([]models.Review, error)
	Count(ctx context.Context) (int, error)

	// Lifecycle
	Close() error
}

// New opens an empty store for the named backend.
func New(backend string) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		s, err := NewSQLiteStore()
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(context.Background()); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend: %s (use: memory, sqlite)", backend)
	}
}
