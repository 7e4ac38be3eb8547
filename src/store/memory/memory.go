// Package memory is an in-process store.Store used by tests and by the
// memory data backend. It enforces the same ownership, uniqueness and
// foreign-key rules as the PostgreSQL schema.
package memory

import (
	"context"
	"errors"
	"spendsage-server/src/store"
	"sync"
	"time"
)

var errReadOnly = errors.New("memory: write in read-only unit of work")

type Store struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState(), now: time.Now}
}

// WithClock replaces the timestamp source; tests use it to make ordering
// deterministic.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) View(ctx context.Context, fn func(store.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&repo{st: s.st, now: s.now, readOnly: true})
}

// Update runs fn against a copy of the current state and publishes the copy
// only when fn succeeds, so a failed unit of work leaves nothing behind.
func (s *Store) Update(ctx context.Context, fn func(store.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.st.clone()
	if err := fn(&repo{st: next, now: s.now}); err != nil {
		return err
	}
	s.st = next
	return nil
}

func (s *Store) Close() {}
