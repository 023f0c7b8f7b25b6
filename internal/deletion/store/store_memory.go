package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mrcreams/internal/deletion/models"
	"mrcreams/internal/sentinel"
)

// InMemoryStore keeps deletion requests and per-table row counts in memory
// for tests. Erase mirrors the transactional semantics of the PostgreSQL
// implementation: a mid-erasure failure leaves every table untouched.
type InMemoryStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.Request
	// rows[table][userID] is the number of rows the table holds for a user.
	rows       map[string]map[uuid.UUID]int64
	failTables map[string]error
}

// NewInMemory constructs an empty in-memory deletion store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		requests:   make(map[uuid.UUID]*models.Request),
		rows:       make(map[string]map[uuid.UUID]int64),
		failTables: make(map[string]error),
	}
}

// Seed records that a table holds count rows for the user.
func (s *InMemoryStore) Seed(userID uuid.UUID, table string, count int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[table] == nil {
		s.rows[table] = make(map[uuid.UUID]int64)
	}
	s.rows[table][userID] = count
}

// RowCount returns how many rows a table currently holds for the user.
func (s *InMemoryStore) RowCount(userID uuid.UUID, table string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[table][userID]
}

// FailTable makes the erasure fail when it reaches the given table.
func (s *InMemoryStore) FailTable(table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failTables[table] = err
}

func (s *InMemoryStore) Create(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.UserID == req.UserID && existing.Outstanding() {
			return ErrOutstandingRequest
		}
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now()
	}
	req.Status = models.StatusPending

	clone := *req
	s.requests[req.ID] = &clone
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *req
	return &clone, nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, status models.Status) ([]*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Request
	for _, req := range s.requests {
		if req.Status == status {
			clone := *req
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out, nil
}

func (s *InMemoryStore) SetStatus(_ context.Context, id uuid.UUID, from, to models.Status, processedBy uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return ErrNotFound
	}
	if req.Status != from {
		return sentinel.ErrInvalidState
	}
	req.Status = to
	pb := processedBy
	req.ProcessedBy = &pb
	return nil
}

func (s *InMemoryStore) Erase(_ context.Context, req *models.Request, processedBy uuid.UUID, completedAt time.Time) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[req.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if stored.Status != models.StatusApproved {
		return nil, sentinel.ErrInvalidState
	}

	// First pass only inspects; nothing is mutated until every table has
	// been visited, which is what gives the all-or-nothing rollback.
	counts := make(map[string]int64, len(erasureTables))
	for _, t := range erasureTables {
		if err := s.failTables[t.name]; err != nil {
			return nil, err
		}
		counts[t.name] = s.rows[t.name][req.UserID]
	}
	for _, t := range erasureTables {
		delete(s.rows[t.name], req.UserID)
	}

	stored.Status = models.StatusCompleted
	at := completedAt
	stored.CompletedAt = &at
	pb := processedBy
	stored.ProcessedBy = &pb
	return counts, nil
}
