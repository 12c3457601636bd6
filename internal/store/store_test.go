package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/reviewlens/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore()
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

// backends returns one fresh store per backend.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		BackendMemory: NewMemoryStore(),
		BackendSQLite: newTestSQLiteStore(t),
	}
}

func review(id string, rating int, pos, neg []string) models.Review {
	return models.Review{
		ID:           id,
		Date:         "2026-10-18",
		Rating:       rating,
		OriginalText: "text for " + id,
		Insights:     models.Insights{Positive: pos, Negative: neg},
	}
}

func TestStore_AppendListCount(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			list, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)

			require.NoError(t, s.Append(ctx, review("R00001", 5, []string{"fast delivery"}, nil)))
			require.NoError(t, s.Append(ctx, review("R00002", 2, nil, []string{"slow support", "rude"})))
			require.NoError(t, s.Append(ctx, review("R00003", 3, nil, nil)))

			n, err = s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			list, err = s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 3)

			assert.Equal(t, "R00001", list[0].ID)
			assert.Equal(t, "R00002", list[1].ID)
			assert.Equal(t, "R00003", list[2].ID)

			assert.Equal(t, 5, list[0].Rating)
			assert.Equal(t, "2026-10-18", list[0].Date)
			assert.Equal(t, "text for R00001", list[0].OriginalText)
			assert.Equal(t, []string{"fast delivery"}, list[0].Insights.Positive)
			assert.Equal(t, []string{"slow support", "rude"}, list[1].Insights.Negative)

			// Nil lists come back as empty lists.
			assert.NotNil(t, list[2].Insights.Positive)
			assert.NotNil(t, list[2].Insights.Solutions)
			assert.Empty(t, list[2].Insights.Problems)
		})
	}
}

func TestStore_ListReturnsCopies(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Append(ctx, review("R00001", 4, []string{"good"}, nil)))

			list, err := s.List(ctx)
			require.NoError(t, err)
			list[0].Insights.Positive[0] = "mutated"
			list[0].Rating = 1

			again, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, "good", again[0].Insights.Positive[0])
			assert.Equal(t, 4, again[0].Rating)
		})
	}
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, review("R00001", 4, nil, nil)))
	assert.Error(t, s.Append(ctx, review("R00001", 4, nil, nil)))
}

func TestSQLiteStore_RatingCheck(t *testing.T) {
	s := newTestSQLiteStore(t)
	assert.Error(t, s.Append(context.Background(), review("R00001", 9, nil, nil)))
}

func TestSQLiteStore_Isolated(t *testing.T) {
	a := newTestSQLiteStore(t)
	b := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, a.Append(ctx, review("R00001", 4, nil, nil)))

	n, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "each store gets its own in-memory database")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestNew(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New(BackendSQLite)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = New("postgres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown ledger backend")
}
