package auth

import (
	"context"
	"sync"

	"github.com/socialhub/client/internal/models"
)

// NewInMemorySessionStore returns a SessionStore that keeps the snapshot in memory.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{}
}

// InMemorySessionStore implements SessionStore for tests and ephemeral sessions.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	snapshot *models.Snapshot
	saves    int
}

// Load returns the stored snapshot.
func (s *InMemorySessionStore) Load(context.Context) (models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return models.Snapshot{}, ErrNoSession
	}
	return *s.snapshot, nil
}

// Save replaces the stored snapshot.
func (s *InMemorySessionStore) Save(_ context.Context, snapshot models.Snapshot) error {
	s.mu.Lock()
	s.snapshot = &snapshot
	s.saves++
	s.mu.Unlock()
	return nil
}

// Clear removes the stored snapshot.
func (s *InMemorySessionStore) Clear(context.Context) error {
	s.mu.Lock()
	s.snapshot = nil
	s.mu.Unlock()
	return nil
}

// Has reports whether a snapshot is stored. Useful for tests.
func (s *InMemorySessionStore) Has() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot != nil
}

// Saves reports how many times Save was called. Useful for tests.
func (s *InMemorySessionStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
