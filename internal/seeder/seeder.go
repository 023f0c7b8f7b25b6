package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mrcreams/internal/compliance/models"
)

// ActivityStore defines the register reads the seeder needs.
type ActivityStore interface {
	ListActivities(ctx context.Context, activeOnly bool) ([]*models.Activity, error)
}

// ActivityWriter inserts register entries during seeding.
type ActivityWriter interface {
	InsertActivity(ctx context.Context, activity *models.Activity) error
}

// Seeder populates the processing activity register with its baseline
// entries. The register is operator-maintained reference data the compliance
// endpoints depend on, so an empty one is seeded in every environment.
type Seeder struct {
	activities ActivityStore
	writer     ActivityWriter
	logger     *slog.Logger
}

// New creates a new seeder.
func New(activities ActivityStore, writer ActivityWriter, logger *slog.Logger) *Seeder {
	return &Seeder{
		activities: activities,
		writer:     writer,
		logger:     logger,
	}
}

// SeedActivities inserts the baseline processing register if it is empty.
func (s *Seeder) SeedActivities(ctx context.Context) error {
	existing, err := s.activities.ListActivities(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to inspect processing register: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	baseline := []models.Activity{
		{
			ActivityName:    "account-management",
			Purpose:         "Create and maintain user accounts",
			LegalBasis:      "contract",
			DataCategories:  "identity, contact",
			RetentionPeriod: "account lifetime",
		},
		{
			ActivityName:    "emotion-tracking",
			Purpose:         "Store user emotion check-ins for the journaling feature",
			LegalBasis:      "consent",
			DataCategories:  "behavioral, health-adjacent",
			RetentionPeriod: "account lifetime",
		},
		{
			ActivityName:    "conflict-logging",
			Purpose:         "Record relationship conflicts the user chooses to log",
			LegalBasis:      "consent",
			DataCategories:  "behavioral, free text",
			RetentionPeriod: "account lifetime",
		},
		{
			ActivityName:    "therapy-scheduling",
			Purpose:         "Schedule and track therapy sessions",
			LegalBasis:      "contract",
			DataCategories:  "identity, scheduling",
			RetentionPeriod: "24 months",
		},
		{
			ActivityName:    "usage-analytics",
			Purpose:         "Aggregate product usage statistics",
			LegalBasis:      "consent",
			DataCategories:  "behavioral",
			RetentionPeriod: "12 months",
		},
		{
			ActivityName:    "marketing-communication",
			Purpose:         "Send product and feature announcements",
			LegalBasis:      "consent",
			DataCategories:  "contact",
			RetentionPeriod: "until consent revoked",
		},
	}

	now := time.Now()
	for i := range baseline {
		a := baseline[i]
		a.ID = uuid.New()
		a.IsActive = true
		a.CreatedAt = now
		a.UpdatedAt = now
		if err := s.writer.InsertActivity(ctx, &a); err != nil {
			return fmt.Errorf("failed to seed activity %q: %w", a.ActivityName, err)
		}
	}

	s.logger.Info("processing register seeded", "activities", len(baseline))
	return nil
}
