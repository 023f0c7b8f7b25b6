package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mrcreams/internal/consent/models"
	"mrcreams/internal/sentinel"
)

// ErrNotFound keeps storage-specific 404s consistent across implementations.
var ErrNotFound = sentinel.ErrNotFound

// Store persists the consent ledger.
//
// Error Contract:
// - Latest returns ErrNotFound when the user has no record of that type
// - Other methods return nil on success or wrapped errors on failure
type Store interface {
	Append(ctx context.Context, record *models.Record) error
	Latest(ctx context.Context, userID uuid.UUID, consentType string) (*models.Record, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Record, error)
	RevokeActive(ctx context.Context, userID uuid.UUID, consentType string, revokedAt time.Time) (int64, error)
}
