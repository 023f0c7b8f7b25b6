package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mrcreams/internal/compliance/models"
	dErrors "mrcreams/pkg/domain-errors"
)

// InMemoryStore keeps the activity register and raw report inputs in memory
// for tests.
type InMemoryStore struct {
	mu         sync.Mutex
	activities map[uuid.UUID]*models.Activity

	consentEvents  []consentEvent
	deletionEvents []deletionEvent
}

type consentEvent struct {
	consentType string
	granted     bool
	at          time.Time
}

type deletionEvent struct {
	status string
	at     time.Time
}

// NewInMemory constructs an empty in-memory compliance store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{activities: make(map[uuid.UUID]*models.Activity)}
}

// PutActivity seeds one register entry.
func (s *InMemoryStore) PutActivity(a *models.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	clone := *a
	s.activities[a.ID] = &clone
}

// InsertActivity adds one register entry. Used by seeding.
func (s *InMemoryStore) InsertActivity(_ context.Context, a *models.Activity) error {
	s.PutActivity(a)
	return nil
}

// Activity returns a copy of one register entry.
func (s *InMemoryStore) Activity(id uuid.UUID) *models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return nil
	}
	clone := *a
	return &clone
}

// AddConsentEvent seeds one ledger entry for the consent aggregate.
func (s *InMemoryStore) AddConsentEvent(consentType string, granted bool, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consentEvents = append(s.consentEvents, consentEvent{consentType, granted, at})
}

// AddDeletionEvent seeds one deletion request for the deletion aggregate.
func (s *InMemoryStore) AddDeletionEvent(status string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletionEvents = append(s.deletionEvents, deletionEvent{status, at})
}

func (s *InMemoryStore) ListActivities(_ context.Context, activeOnly bool) ([]*models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Activity
	for _, a := range s.activities {
		if activeOnly && !a.IsActive {
			continue
		}
		clone := *a
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ActivityName < out[j].ActivityName
	})
	return out, nil
}

func (s *InMemoryStore) UpdateActivity(_ context.Context, id uuid.UUID, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for column := range updates {
		if !UpdatableColumn(column) {
			return dErrors.New(dErrors.CodeValidation, "field is not updatable")
		}
	}
	a, ok := s.activities[id]
	if !ok {
		return ErrNotFound
	}
	for column, value := range updates {
		switch column {
		case "activity_name":
			a.ActivityName, _ = value.(string)
		case "purpose":
			a.Purpose, _ = value.(string)
		case "legal_basis":
			a.LegalBasis, _ = value.(string)
		case "data_categories":
			a.DataCategories, _ = value.(string)
		case "retention_period":
			a.RetentionPeriod, _ = value.(string)
		case "is_active":
			a.IsActive, _ = value.(bool)
		}
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) ConsentStatistics(_ context.Context, start, end time.Time) ([]models.ConsentTypeCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byType := make(map[string]*models.ConsentTypeCount)
	for _, e := range s.consentEvents {
		if e.at.Before(start) || !e.at.Before(end) {
			continue
		}
		c, ok := byType[e.consentType]
		if !ok {
			c = &models.ConsentTypeCount{ConsentType: e.consentType}
			byType[e.consentType] = c
		}
		if e.granted {
			c.Granted++
		} else {
			c.Revoked++
		}
	}

	var stats []models.ConsentTypeCount
	for _, c := range byType {
		stats = append(stats, *c)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].ConsentType < stats[j].ConsentType
	})
	return stats, nil
}

func (s *InMemoryStore) ProcessingStatistics(_ context.Context) (models.ProcessingStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats models.ProcessingStats
	for _, a := range s.activities {
		stats.Total++
		if a.IsActive {
			stats.Active++
		}
	}
	return stats, nil
}

func (s *InMemoryStore) DeletionStatistics(_ context.Context, start, end time.Time) (models.DeletionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats models.DeletionStats
	for _, e := range s.deletionEvents {
		if e.at.Before(start) || !e.at.Before(end) {
			continue
		}
		stats.Total++
		switch e.status {
		case "completed":
			stats.Completed++
		case "pending":
			stats.Pending++
		}
	}
	return stats, nil
}
