package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"mrcreams/internal/audit"
	"mrcreams/internal/compliance/models"
	"mrcreams/internal/compliance/store"
	consentmodels "mrcreams/internal/consent/models"
	dErrors "mrcreams/pkg/domain-errors"
)

// ConsentStatusReader is the slice of the consent ledger this service
// composes into the per-user compliance status.
type ConsentStatusReader interface {
	GetUserConsentStatus(ctx context.Context, userID uuid.UUID) (map[string]consentmodels.TypeStatus, error)
}

// Service maintains the processing activity register and produces the
// compliance views administrators and users read.
type Service struct {
	store   store.Store
	consent ConsentStatusReader
	auditor *audit.Publisher
	logger  *slog.Logger
}

// NewService creates the compliance reporter service.
func NewService(st store.Store, consent ConsentStatusReader, auditor *audit.Publisher, logger *slog.Logger) *Service {
	return &Service{store: st, consent: consent, auditor: auditor, logger: logger}
}

// GetDataProcessingActivities lists the active register entries.
func (s *Service) GetDataProcessingActivities(ctx context.Context) ([]*models.Activity, error) {
	activities, err := s.store.ListActivities(ctx, true)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list processing activities")
	}
	return activities, nil
}

// UpdateDataProcessingActivity sets allow-listed fields on one register
// entry. Unknown field names are rejected before any SQL is built.
func (s *Service) UpdateDataProcessingActivity(ctx context.Context, actorID, activityID uuid.UUID, updates map[string]any) error {
	if activityID == uuid.Nil {
		return dErrors.New(dErrors.CodeBadRequest, "activity id is required")
	}
	if err := s.store.UpdateActivity(ctx, activityID, updates); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "processing activity not found")
		}
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update processing activity")
	}

	if s.auditor != nil {
		fields := make([]string, 0, len(updates))
		for field := range updates {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		actor := actorID
		s.auditor.Emit(ctx, audit.Entry{
			UserID:       &actor,
			Action:       audit.ActionActivityUpdated,
			ResourceType: audit.ResourceActivity,
			Details: map[string]any{
				"activity_id": activityID.String(),
				"fields":      fields,
			},
		})
	}
	return nil
}

// GetGDPRComplianceStatus composes the consent ledger view with the activity
// register into the per-user status. The export and deletion rights are
// platform constants; every user holds them.
func (s *Service) GetGDPRComplianceStatus(ctx context.Context, userID uuid.UUID) (*models.Status, error) {
	if userID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}

	consents, err := s.consent.GetUserConsentStatus(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent status")
	}
	activities, err := s.store.ListActivities(ctx, true)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list processing activities")
	}

	status := &models.Status{
		ProcessingActivities: len(activities),
		HasDataExportRight:   true,
		HasDataDeletionRight: true,
	}
	for consentType, st := range consents {
		if st.IsActive {
			status.HasValidConsent = true
			status.ConsentTypes = append(status.ConsentTypes, consentType)
		}
		for _, at := range []*time.Time{st.GrantedAt, st.RevokedAt} {
			if at != nil && (status.LastConsentUpdate == nil || at.After(*status.LastConsentUpdate)) {
				status.LastConsentUpdate = at
			}
		}
	}
	sort.Strings(status.ConsentTypes)
	return status, nil
}

// GenerateGDPRComplianceReport runs the three aggregates over the period.
// End is exclusive; an end before start is rejected.
func (s *Service) GenerateGDPRComplianceReport(ctx context.Context, start, end time.Time) (*models.Report, error) {
	if !end.After(start) {
		return nil, dErrors.New(dErrors.CodeValidation, "report period end must be after start")
	}

	consent, err := s.store.ConsentStatistics(ctx, start, end)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate consent statistics")
	}
	processing, err := s.store.ProcessingStatistics(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate processing statistics")
	}
	deletion, err := s.store.DeletionStatistics(ctx, start, end)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate deletion statistics")
	}

	return &models.Report{
		PeriodStart: start,
		PeriodEnd:   end,
		Consent:     consent,
		Processing:  processing,
		Deletion:    deletion,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
