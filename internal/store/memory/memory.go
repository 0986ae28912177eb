package memory

import (
	"context"
	"sync"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/store"
)

// Store keeps bundles in process memory. Bundles are cloned on the way in
// and out so callers never share slices with the store.
type Store struct {
	mu      sync.RWMutex
	bundles map[string]domain.Bundle
	puts    int
}

func New() *Store {
	return &Store{bundles: make(map[string]domain.Bundle)}
}

func (s *Store) Get(_ context.Context, userID string) (*domain.Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bundle, ok := s.bundles[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := bundle.Clone()
	return &clone, nil
}

func (s *Store) Put(_ context.Context, userID string, bundle domain.Bundle) error {
	if err := store.Validate(userID, bundle); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.bundles[userID] = bundle.Clone()
	s.puts++
	return nil
}

func (s *Store) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bundles[userID]; !ok {
		return store.ErrNotFound
	}
	delete(s.bundles, userID)
	return nil
}

// Puts reports how many writes the store has accepted.
func (s *Store) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}
