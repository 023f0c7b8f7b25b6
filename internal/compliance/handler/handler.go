package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mrcreams/internal/compliance/models"
	"mrcreams/internal/platform/middleware"
	dErrors "mrcreams/pkg/domain-errors"
	"mrcreams/pkg/httputil"
)

// Service defines the compliance operations the handler depends on.
type Service interface {
	GetDataProcessingActivities(ctx context.Context) ([]*models.Activity, error)
	UpdateDataProcessingActivity(ctx context.Context, actorID, activityID uuid.UUID, updates map[string]any) error
	GetGDPRComplianceStatus(ctx context.Context, userID uuid.UUID) (*models.Status, error)
	GenerateGDPRComplianceReport(ctx context.Context, start, end time.Time) (*models.Report, error)
}

// Handler handles compliance reporting endpoints.
type Handler struct {
	compliance Service
	logger     *slog.Logger
}

// New creates a compliance Handler.
func New(compliance Service, logger *slog.Logger) *Handler {
	return &Handler{compliance: compliance, logger: logger}
}

// Register mounts the user-facing route. The router is expected to already
// carry the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/gdpr/compliance-status", h.handleStatus)
}

// RegisterAdmin mounts the administrative routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/processing-activities", h.handleListActivities)
	r.Patch("/processing-activities/{id}", h.handleUpdateActivity)
	r.Get("/compliance-report", h.handleReport)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := callerID(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status, err := h.compliance.GetGDPRComplianceStatus(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read compliance status",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStatusResponse(status))
}

func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activities, err := h.compliance.GetDataProcessingActivities(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list processing activities",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toActivitiesResponse(activities))
}

func (h *Handler) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, err := callerID(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	activityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid activity id"))
		return
	}

	var updates map[string]any
	if err := httputil.DecodeJSON(w, r, &updates); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.compliance.UpdateDataProcessingActivity(ctx, actorID, activityID, updates); err != nil {
		h.logger.ErrorContext(ctx, "failed to update processing activity",
			"request_id", middleware.GetRequestID(ctx),
			"activity_id", activityID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ActionResponse{Success: true, Message: "Processing activity updated"})
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	start, err := parseDate(r.URL.Query().Get("start"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	end, err := parseDate(r.URL.Query().Get("end"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.compliance.GenerateGDPRComplianceReport(ctx, start, end)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate compliance report",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toReportResponse(report))
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "start and end dates are required (YYYY-MM-DD)")
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "dates must be formatted YYYY-MM-DD")
	}
	return t, nil
}

func callerID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.GetUserID(ctx)
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeUnauthorized, "invalid caller identity")
	}
	return id, nil
}
