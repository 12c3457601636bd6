package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/reviewlens/internal/metrics"
	"github.com/joescharf/reviewlens/internal/store"
)

// ErrUnknownSession is returned when a session id has no ledger.
var ErrUnknownSession = errors.New("unknown session")

// Factory builds the ledger for a new session.
type Factory func() (*Ledger, error)

// NewFactory returns a Factory that opens a fresh store of the given backend
// for every session and shares ex and opts between them.
func NewFactory(backend string, ex Extractor, opts Options) Factory {
	return func() (*Ledger, error) {
		s, err := store.New(backend)
		if err != nil {
			return nil, err
		}
		return New(s, ex, opts), nil
	}
}

// Sessions maps session ids to their ledgers, so concurrent users never share one.
type Sessions struct {
	mu       sync.Mutex
	ledgers  map[string]*Ledger
	lastUsed map[string]time.Time
	factory  Factory
	entropy  *ulid.MonotonicEntropy
	now      func() time.Time
}

// NewSessions creates an empty registry.
func NewSessions(factory Factory) *Sessions {
	return &Sessions{
		ledgers:  make(map[string]*Ledger),
		lastUsed: make(map[string]time.Time),
		factory:  factory,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:      time.Now,
	}
}

// Create opens a new session and returns its id and ledger.
func (s *Sessions) Create() (string, *Ledger, error) {
	l, err := s.factory()
	if err != nil {
		return "", nil, fmt.Errorf("create session ledger: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	id := ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
	s.ledgers[id] = l
	s.lastUsed[id] = now
	metrics.SessionsActive.Set(float64(len(s.ledgers)))
	return id, l, nil
}

// Get returns the ledger for id and marks the session as used.
func (s *Sessions) Get(id string) (*Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.ledgers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	s.lastUsed[id] = s.now()
	return l, nil
}

// End closes and forgets the session.
func (s *Sessions) End(id string) error {
	s.mu.Lock()
	l, ok := s.ledgers[id]
	delete(s.ledgers, id)
	delete(s.lastUsed, id)
	metrics.SessionsActive.Set(float64(len(s.ledgers)))
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return l.Close()
}

// Len returns the number of open sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledgers)
}

// Close ends every session.
func (s *Sessions) Close() error {
	s.mu.Lock()
	ledgers := s.ledgers
	s.ledgers = make(map[string]*Ledger)
	s.lastUsed = make(map[string]time.Time)
	metrics.SessionsActive.Set(0)
	s.mu.Unlock()

	var errs []error
	for _, l := range ledgers {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sweep ends every session not used within maxIdle and returns how many it ended.
func (s *Sessions) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	idle := make(map[string]*Ledger)
	for id, used := range s.lastUsed {
		if used.Before(cutoff) {
			idle[id] = s.ledgers[id]
			delete(s.ledgers, id)
			delete(s.lastUsed, id)
		}
	}
	metrics.SessionsActive.Set(float64(len(s.ledgers)))
	s.mu.Unlock()

	for id, l := range idle {
		if err := l.Close(); err != nil {
			slog.Warn("close idle session", "session", id, "error", err)
		}
	}
	return len(idle)
}

// ExpireIdle sweeps sessions idle for longer than maxIdle until ctx is done.
func (s *Sessions) ExpireIdle(ctx context.Context, maxIdle time.Duration) {
	interval := maxIdle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(maxIdle); n > 0 {
				slog.Info("expired idle sessions", "count", n)
			}
		}
	}
}
