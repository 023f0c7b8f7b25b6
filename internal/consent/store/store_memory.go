package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mrcreams/internal/consent/models"
)

// InMemoryStore keeps the consent ledger in memory for tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []*models.Record
	seq     int
}

// NewInMemory constructs an empty in-memory consent store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		// Monotonic timestamps so newest-first ordering is deterministic even
		// when appends land within the same wall-clock tick.
		s.seq++
		record.CreatedAt = time.Now().Add(time.Duration(s.seq) * time.Microsecond)
	}
	copyRecord := *record
	s.records = append(s.records, &copyRecord)
	return nil
}

func (s *InMemoryStore) Latest(_ context.Context, userID uuid.UUID, consentType string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Record
	for _, r := range s.records {
		if r.UserID != userID || r.ConsentType != consentType {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	copyRecord := *latest
	return &copyRecord, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, r := range s.records {
		if r.UserID == userID {
			copyRecord := *r
			out = append(out, &copyRecord)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) RevokeActive(_ context.Context, userID uuid.UUID, consentType string, revokedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var affected int64
	for _, r := range s.records {
		if r.UserID == userID && r.ConsentType == consentType && r.Granted && r.RevokedAt == nil {
			t := revokedAt
			r.RevokedAt = &t
			affected++
		}
	}
	return affected, nil
}
