package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mrcreams/internal/compliance/models"
	"mrcreams/internal/sentinel"
)

// ErrNotFound is returned when no activity matches the given ID.
var ErrNotFound = sentinel.ErrNotFound

// updatableColumns is the allow-list for UpdateActivity. Column names are
// never taken from request input; unknown keys are rejected before any SQL
// is built.
var updatableColumns = map[string]struct{}{
	"activity_name":    {},
	"purpose":          {},
	"legal_basis":      {},
	"data_categories":  {},
	"retention_period": {},
	"is_active":        {},
}

// UpdatableColumn reports whether the column may be set via UpdateActivity.
func UpdatableColumn(name string) bool {
	_, ok := updatableColumns[name]
	return ok
}

// Store reads and maintains the processing activity register and serves the
// report aggregates.
type Store interface {
	// ListActivities returns register entries, optionally only active ones,
	// ordered by name.
	ListActivities(ctx context.Context, activeOnly bool) ([]*models.Activity, error)

	// UpdateActivity sets the given columns on one register entry. Keys
	// must pass UpdatableColumn; the implementation rejects anything else.
	UpdateActivity(ctx context.Context, id uuid.UUID, updates map[string]any) error

	// ConsentStatistics counts ledger entries per consent type within the
	// period, split into granted and revoked decisions.
	ConsentStatistics(ctx context.Context, start, end time.Time) ([]models.ConsentTypeCount, error)

	// ProcessingStatistics counts register entries, total and active.
	ProcessingStatistics(ctx context.Context) (models.ProcessingStats, error)

	// DeletionStatistics counts deletion requests filed within the period.
	DeletionStatistics(ctx context.Context, start, end time.Time) (models.DeletionStats, error)
}
