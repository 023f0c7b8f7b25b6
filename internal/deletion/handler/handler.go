package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mrcreams/internal/deletion/models"
	"mrcreams/internal/platform/middleware"
	dErrors "mrcreams/pkg/domain-errors"
	"mrcreams/pkg/httputil"
	"mrcreams/pkg/validation"
)

// Service defines the deletion workflow operations the handler depends on.
type Service interface {
	RequestDataDeletion(ctx context.Context, userID uuid.UUID, reason, confirmation string) (*models.Request, time.Time, error)
	ApproveDeletionRequest(ctx context.Context, requestID, processedBy uuid.UUID) error
	RejectDeletionRequest(ctx context.Context, requestID, processedBy uuid.UUID, rejectionReason string) error
	ListPendingRequests(ctx context.Context) ([]*models.Request, error)
	ProcessDataDeletion(ctx context.Context, requestID, processedBy uuid.UUID) error
}

// Handler handles deletion workflow endpoints.
type Handler struct {
	deletion Service
	logger   *slog.Logger
}

// New creates a deletion Handler.
func New(deletion Service, logger *slog.Logger) *Handler {
	return &Handler{deletion: deletion, logger: logger}
}

// Register mounts the user-facing route. The router is expected to already
// carry the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/gdpr/deletion-request", h.handleRequestDeletion)
}

// RegisterAdmin mounts the administrative workflow routes. The router is
// expected to carry both the auth and admin-role middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/deletion-requests", h.handleListPending)
	r.Post("/deletion-requests/{id}/approve", h.handleApprove)
	r.Post("/deletion-requests/{id}/reject", h.handleReject)
	r.Post("/deletion-requests/{id}/process", h.handleProcess)
}

func (h *Handler) handleRequestDeletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := callerID(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req RequestDeletionRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := validation.Validate(&req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	filed, estimated, err := h.deletion.RequestDataDeletion(ctx, userID, req.Reason, req.Confirmation)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to file deletion request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, RequestDeletionResponse{
		Success:               true,
		Message:               "Deletion request filed and awaiting review",
		RequestID:             filed.ID.String(),
		EstimatedDeletionDate: estimated,
	})
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requests, err := h.deletion.ListPendingRequests(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list deletion requests",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(requests))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Deletion request approved", h.deletion.ApproveDeletionRequest)
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "User data erased", h.deletion.ProcessDataDeletion)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adminID, requestID, err := adminAndRequestIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req RejectDeletionRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := validation.Validate(&req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.deletion.RejectDeletionRequest(ctx, requestID, adminID, req.Reason); err != nil {
		h.logger.ErrorContext(ctx, "failed to reject deletion request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ActionResponse{Success: true, Message: "Deletion request rejected"})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, message string, op func(context.Context, uuid.UUID, uuid.UUID) error) {
	ctx := r.Context()
	adminID, requestID, err := adminAndRequestIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := op(ctx, requestID, adminID); err != nil {
		h.logger.ErrorContext(ctx, "deletion workflow transition failed",
			"request_id", middleware.GetRequestID(ctx),
			"deletion_request_id", requestID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ActionResponse{Success: true, Message: message})
}

func adminAndRequestIDs(r *http.Request) (adminID, requestID uuid.UUID, err error) {
	adminID, err = callerID(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	requestID, err = uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid deletion request id")
	}
	return adminID, requestID, nil
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
