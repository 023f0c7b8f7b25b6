package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mrcreams/internal/deletion/models"
	"mrcreams/internal/sentinel"
)

// ErrNotFound is returned when no deletion request matches the given ID.
var ErrNotFound = sentinel.ErrNotFound

// ErrOutstandingRequest is returned by Create when the user already has a
// pending or approved request.
var ErrOutstandingRequest = sentinel.ErrConflict

// Store persists deletion requests and executes the erasure itself.
type Store interface {
	// Create inserts a pending request. The outstanding-request check and
	// the insert run in one transaction so concurrent requests for the same
	// user cannot both succeed.
	Create(ctx context.Context, req *models.Request) error

	// GetByID returns the request or ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error)

	// ListByStatus returns requests in the given status, oldest first.
	ListByStatus(ctx context.Context, status models.Status) ([]*models.Request, error)

	// SetStatus moves a request between workflow states. The update is
	// guarded on the expected current status; a mismatch returns
	// sentinel.ErrInvalidState without modifying the row.
	SetStatus(ctx context.Context, id uuid.UUID, from, to models.Status, processedBy uuid.UUID) error

	// Erase deletes every row referencing userID across the dependent
	// tables in foreign-key order and marks the request completed, all in
	// one transaction. It returns per-table deleted row counts. Any failure
	// rolls the whole transaction back.
	Erase(ctx context.Context, req *models.Request, processedBy uuid.UUID, completedAt time.Time) (map[string]int64, error)
}
