package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/reviewlens/internal/store"
)

func TestSessions_Isolated(t *testing.T) {
	for _, backend := range []string{store.BackendMemory, store.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			ex := &stubExtractor{result: structured([]string{"good"}, nil)}
			s := NewSessions(NewFactory(backend, ex, Options{Now: fixedNow}))
			t.Cleanup(func() { s.Close() })
			ctx := context.Background()

			idA, a, err := s.Create()
			require.NoError(t, err)
			idB, b, err := s.Create()
			require.NoError(t, err)
			assert.NotEqual(t, idA, idB)
			assert.Len(t, idA, 26, "session ids are ULIDs")
			assert.Equal(t, 2, s.Len())

			_, err = a.Add(ctx, "one", 5)
			require.NoError(t, err)
			_, err = a.Add(ctx, "two", 5)
			require.NoError(t, err)
			sub, err := b.Add(ctx, "other", 4)
			require.NoError(t, err)

			// Each session numbers its own reviews.
			assert.Equal(t, "R00001", sub.Review.ID)

			got, err := s.Get(idA)
			require.NoError(t, err)
			n, err := got.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
	}
}

func TestSessions_UnknownAndEnd(t *testing.T) {
	s := NewSessions(NewFactory(store.BackendMemory, &stubExtractor{}, Options{}))

	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownSession)

	id, _, err := s.Create()
	require.NoError(t, err)
	require.NoError(t, s.End(id))

	_, err = s.Get(id)
	assert.ErrorIs(t, err, ErrUnknownSession)
	assert.ErrorIs(t, s.End(id), ErrUnknownSession)
	assert.Equal(t, 0, s.Len())
}

func TestSessions_FactoryError(t *testing.T) {
	s := NewSessions(func() (*Ledger, error) { return nil, errors.New("no store") })

	_, _, err := s.Create()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no store")
	assert.Equal(t, 0, s.Len())
}

func TestNewFactory_UnknownBackend(t *testing.T) {
	_, err := NewFactory("postgres", &stubExtractor{}, Options{})()
	require.Error(t, err)
}

func TestSessions_SweepEndsIdle(t *testing.T) {
	s := NewSessions(NewFactory(store.BackendSQLite, &stubExtractor{}, Options{}))
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	stale, _, err := s.Create()
	require.NoError(t, err)
	active, _, err := s.Create()
	require.NoError(t, err)

	clock = clock.Add(20 * time.Minute)
	_, err = s.Get(active)
	require.NoError(t, err)

	clock = clock.Add(15 * time.Minute)
	assert.Equal(t, 1, s.Sweep(30*time.Minute))
	assert.Equal(t, 1, s.Len())

	_, err = s.Get(stale)
	assert.ErrorIs(t, err, ErrUnknownSession)
	_, err = s.Get(active)
	assert.NoError(t, err, "recently used session survives")

	assert.Zero(t, s.Sweep(30*time.Minute))
}

func TestSessions_ExpireIdleStopsWithContext(t *testing.T) {
	s := NewSessions(NewFactory(store.BackendMemory, &stubExtractor{}, Options{}))
	t.Cleanup(func() { s.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.ExpireIdle(ctx, time.Minute)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ExpireIdle did not return after cancel")
	}
}
