package audit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mrcreams/internal/platform/middleware"
	dErrors "mrcreams/pkg/domain-errors"
	"mrcreams/pkg/httputil"
)

// Handler exposes the per-user audit trail to administrators, so compliance
// staff can inspect what was recorded about a user without touching the
// database directly.
type Handler struct {
	publisher *Publisher
	logger    *slog.Logger
}

// NewHandler creates an audit trail Handler.
func NewHandler(publisher *Publisher, logger *slog.Logger) *Handler {
	return &Handler{publisher: publisher, logger: logger}
}

// RegisterAdmin mounts the trail route. The router is expected to carry both
// the auth and admin-role middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/audit-log/{userID}", h.handleListByUser)
}

// EntryView is one audit entry in HTTP responses.
type EntryView struct {
	ID           string         `json:"id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TrailResponse lists one user's audit entries, newest first.
type TrailResponse struct {
	Success bool        `json:"success"`
	UserID  string      `json:"user_id"`
	Entries []EntryView `json:"entries"`
}

func (h *Handler) handleListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	entries, err := h.publisher.ListByUser(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit trail",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	views := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, EntryView{
			ID:           e.ID.String(),
			Action:       e.Action,
			ResourceType: e.ResourceType,
			Details:      e.Details,
			CreatedAt:    e.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, TrailResponse{
		Success: true,
		UserID:  userID.String(),
		Entries: views,
	})
}
