package handler

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mrcreams/internal/consent/models"
	"mrcreams/internal/platform/middleware"
	dErrors "mrcreams/pkg/domain-errors"
	"mrcreams/pkg/httputil"
	"mrcreams/pkg/validation"
)

// Service defines the consent ledger operations the handler depends on.
type Service interface {
	RecordConsent(ctx context.Context, userID uuid.UUID, consentType, consentVersion string, granted bool, ipAddress, userAgent string) (*models.Record, error)
	GetUserConsentStatus(ctx context.Context, userID uuid.UUID) (map[string]models.TypeStatus, error)
	RevokeConsent(ctx context.Context, userID uuid.UUID, consentType string) error
	GetUserConsentHistory(ctx context.Context, userID uuid.UUID) ([]*models.Record, error)
}

// Handler handles consent ledger endpoints.
type Handler struct {
	consent Service
	logger  *slog.Logger
}

// New creates a consent Handler.
func New(consent Service, logger *slog.Logger) *Handler {
	return &Handler{consent: consent, logger: logger}
}

// Register mounts the consent routes. The router is expected to already
// carry the auth middleware that puts the caller identity on the context.
func (h *Handler) Register(r chi.Router) {
	r.Post("/gdpr/consent", h.handleRecordConsent)
	r.Post("/gdpr/consent/revoke", h.handleRevokeConsent)
	r.Get("/gdpr/consent", h.handleGetStatus)
	r.Get("/gdpr/consent/history", h.handleGetHistory)
}

func (h *Handler) handleRecordConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := callerID(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	var req RecordConsentRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := validation.Validate(&req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	_, err = h.consent.RecordConsent(ctx, userID,
		req.ConsentType, req.ConsentVersion, *req.Granted,
		clientIP(r), r.UserAgent(),
	)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to record consent",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, RecordConsentResponse{
		Success: true,
		Message: "Consent recorded",
	})
}

func (h *Handler) handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := callerID(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req RevokeConsentRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := validation.Validate(&req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.consent.RevokeConsent(ctx, userID, req.ConsentType); err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke consent",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, RecordConsentResponse{
		Success: true,
		Message: "Consent revoked",
	})
}

func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := callerID(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status, err := h.consent.GetUserConsentStatus(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read consent status",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toStatusResponse(status))
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := callerID(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.consent.GetUserConsentHistory(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read consent history",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toHistoryResponse(records))
}

// callerID parses the authenticated user ID off the context.
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

// clientIP prefers the reverse-proxy header and falls back to the socket
// address. X-Forwarded-For may carry a chain; the first hop is the client.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
