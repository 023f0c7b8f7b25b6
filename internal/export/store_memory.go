package export

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore serves canned category data for tests, with per-category
// error injection to exercise the all-or-nothing failure mode.
type InMemoryStore struct {
	mu     sync.RWMutex
	data   map[uuid.UUID]map[string][]Record
	errors map[string]error
}

// NewInMemory constructs an empty in-memory export store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		data:   make(map[uuid.UUID]map[string][]Record),
		errors: make(map[string]error),
	}
}

// Put seeds records for one user and category.
func (s *InMemoryStore) Put(userID uuid.UUID, category string, records []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[userID] == nil {
		s.data[userID] = make(map[string][]Record)
	}
	s.data[userID][category] = records
}

// FailCategory makes every fetch of the category return err.
func (s *InMemoryStore) FailCategory(category string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[category] = err
}

func (s *InMemoryStore) FetchCategory(_ context.Context, name string, userID uuid.UUID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.errors[name]; err != nil {
		return nil, err
	}
	return s.data[userID][name], nil
}
