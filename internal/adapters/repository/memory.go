package repository

import (
	"context"
	"sync"

	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/internal/domain/naming"
)

// MemoryStore keeps identities in process memory. Used in tests and for
// deployments that re-import identities at start.
type MemoryStore struct {
	mu  sync.RWMutex
	ids []model.EnrolledIdentity
}

// NewMemoryStore creates a store seeded with ids.
func NewMemoryStore(ids ...model.EnrolledIdentity) *MemoryStore {
	s := &MemoryStore{}
	for _, id := range ids {
		s.ids = append(s.ids, cloneIdentity(id))
	}
	return s
}

// Load implements Store.
func (s *MemoryStore) Load(context.Context) ([]model.EnrolledIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.EnrolledIdentity, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, cloneIdentity(id))
	}
	return out, nil
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, id model.EnrolledIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, cloneIdentity(id))
	return nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := naming.Key(name)
	kept := s.ids[:0]
	removed := false
	for _, id := range s.ids {
		if naming.Key(id.Name) == key {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	s.ids = kept
	return removed, nil
}

// ReplaceAll implements Store.
func (s *MemoryStore) ReplaceAll(_ context.Context, ids []model.EnrolledIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make([]model.EnrolledIdentity, 0, len(ids))
	for _, id := range ids {
		s.ids = append(s.ids, cloneIdentity(id))
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
