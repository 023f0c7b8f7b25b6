package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mrcreams/internal/audit"
	"mrcreams/internal/deletion/models"
	"mrcreams/internal/deletion/store"
	"mrcreams/internal/platform/metrics"
	"mrcreams/internal/sentinel"
	dErrors "mrcreams/pkg/domain-errors"
)

const defaultGracePeriod = 30 * 24 * time.Hour

// Service runs the right-to-erasure workflow: user request, administrative
// approval or rejection, and the final irreversible erasure transaction.
type Service struct {
	store       store.Store
	auditor     *audit.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	gracePeriod time.Duration
	tracer      trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithGracePeriod overrides the informational erasure grace period.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.gracePeriod = d
		}
	}
}

// NewService creates the deletion workflow service.
func NewService(st store.Store, auditor *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:       st,
		auditor:     auditor,
		logger:      logger,
		gracePeriod: defaultGracePeriod,
		tracer:      otel.Tracer("mrcreams/deletion"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// RequestDataDeletion files a pending erasure request. The confirmation must
// equal the exact phrase; a wrong phrase is a user-facing refusal, never an
// internal error, and creates no row. At most one pending or approved
// request may exist per user.
func (s *Service) RequestDataDeletion(ctx context.Context, userID uuid.UUID, reason, confirmation string) (*models.Request, time.Time, error) {
	if userID == uuid.Nil {
		return nil, time.Time{}, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}
	if confirmation != models.ConfirmationPhrase {
		return nil, time.Time{}, dErrors.New(dErrors.CodeValidation,
			`confirmation must be the exact phrase "DELETE_MY_DATA"`)
	}

	req := &models.Request{
		UserID: userID,
		Reason: strings.TrimSpace(reason),
	}
	if err := s.store.Create(ctx, req); err != nil {
		if errors.Is(err, store.ErrOutstandingRequest) {
			return nil, time.Time{}, dErrors.New(dErrors.CodeConflict,
				"a deletion request already exists for this account")
		}
		return nil, time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to file deletion request")
	}

	if s.auditor != nil {
		uid := userID
		s.auditor.Emit(ctx, audit.Entry{
			UserID:       &uid,
			Action:       audit.ActionDeletionRequest,
			ResourceType: audit.ResourceDeletion,
			Details: map[string]any{
				"request_id": req.ID.String(),
				"reason":     req.Reason,
			},
		})
	}
	if s.metrics != nil {
		s.metrics.IncrementDeletionRequested()
	}

	// Informational only; nothing in this module schedules the erasure.
	estimated := req.RequestedAt.Add(s.gracePeriod)
	return req, estimated, nil
}

func (s *Service) emitAdminAudit(ctx context.Context, action string, requestID, processedBy uuid.UUID, extra map[string]any) {
	if s.auditor == nil {
		return
	}
	req, err := s.store.GetByID(ctx, requestID)
	if err != nil {
		s.logger.WarnContext(ctx, "audit entry skipped, deletion request unreadable",
			"request_id", requestID.String(),
			"error", err,
		)
		return
	}
	details := map[string]any{
		"request_id":   requestID.String(),
		"processed_by": processedBy.String(),
	}
	for k, v := range extra {
		details[k] = v
	}
	uid := req.UserID
	s.auditor.Emit(ctx, audit.Entry{
		UserID:       &uid,
		Action:       action,
		ResourceType: audit.ResourceDeletion,
		Details:      details,
	})
}

// ApproveDeletionRequest moves a pending request to approved.
func (s *Service) ApproveDeletionRequest(ctx context.Context, requestID, processedBy uuid.UUID) error {
	if err := s.transition(ctx, requestID, models.StatusPending, models.StatusApproved, processedBy); err != nil {
		return err
	}
	s.emitAdminAudit(ctx, audit.ActionDeletionApproved, requestID, processedBy, nil)
	return nil
}

// RejectDeletionRequest moves a pending request to rejected, which is
// terminal. The user may file a new request afterwards.
func (s *Service) RejectDeletionRequest(ctx context.Context, requestID, processedBy uuid.UUID, rejectionReason string) error {
	if err := s.transition(ctx, requestID, models.StatusPending, models.StatusRejected, processedBy); err != nil {
		return err
	}
	details := map[string]any{"rejection_reason": rejectionReason}
	s.emitAdminAudit(ctx, audit.ActionDeletionRejected, requestID, processedBy, details)
	return nil
}

func (s *Service) transition(ctx context.Context, requestID uuid.UUID, from, to models.Status, processedBy uuid.UUID) error {
	if requestID == uuid.Nil || processedBy == uuid.Nil {
		return dErrors.New(dErrors.CodeBadRequest, "request id and processor are required")
	}
	err := s.store.SetStatus(ctx, requestID, from, to, processedBy)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "deletion request not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "deletion request is not pending")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update deletion request")
	}
}

// ListPendingRequests returns requests awaiting an administrative decision,
// oldest first.
func (s *Service) ListPendingRequests(ctx context.Context) ([]*models.Request, error) {
	requests, err := s.store.ListByStatus(ctx, models.StatusPending)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deletion requests")
	}
	return requests, nil
}

// ProcessDataDeletion executes an approved request. Every dependent row and
// the user row itself are deleted in one transaction together with the
// completed status update; any failure rolls the whole erasure back and the
// error surfaces to the caller. The trailing audit entry carries a nil user
// ID because by then the user row no longer exists.
func (s *Service) ProcessDataDeletion(ctx context.Context, requestID, processedBy uuid.UUID) (err error) {
	if requestID == uuid.Nil || processedBy == uuid.Nil {
		return dErrors.New(dErrors.CodeBadRequest, "request id and processor are required")
	}

	ctx, span := s.tracer.Start(ctx, "deletion.erase",
		trace.WithAttributes(attribute.String("deletion.request_id", requestID.String())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err := s.store.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "deletion request not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load deletion request")
	}
	if req.Status != models.StatusApproved {
		return dErrors.New(dErrors.CodeInvalidState, "deletion request is not approved")
	}

	start := time.Now()
	counts, err := s.store.Erase(ctx, req, processedBy, start)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementDeletionFailed()
		}
		s.logger.ErrorContext(ctx, "erasure rolled back",
			"request_id", requestID.String(),
			"error", err,
		)
		if errors.Is(err, sentinel.ErrInvalidState) {
			return dErrors.New(dErrors.CodeInvalidState, "deletion request is not approved")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "erasure failed and was rolled back")
	}

	var deleted int64
	for _, n := range counts {
		deleted += n
	}
	span.SetAttributes(attribute.Int64("deletion.rows_deleted", deleted))

	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Entry{
			// The user row is gone; this is a system-level entry.
			UserID:       nil,
			Action:       audit.ActionDataDeleted,
			ResourceType: audit.ResourceDeletion,
			Details: map[string]any{
				"request_id":   requestID.String(),
				"processed_by": processedBy.String(),
				"rows_deleted": deleted,
				"tables":       counts,
			},
		})
	}
	if s.metrics != nil {
		s.metrics.IncrementDeletionProcessed()
		s.metrics.ObserveDeletionLatency(time.Since(start).Seconds())
	}
	s.logger.InfoContext(ctx, "user data erased",
		"request_id", requestID.String(),
		"rows_deleted", deleted,
	)
	return nil
}
