package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mrcreams/internal/platform/middleware"
	dErrors "mrcreams/pkg/domain-errors"
	"mrcreams/pkg/httputil"
)

// Assembler defines the export operation the handler depends on.
type Assembler interface {
	ExportUserData(ctx context.Context, userID uuid.UUID, format Format) (*Bundle, error)
}

// Handler serves the data export endpoint.
type Handler struct {
	exporter Assembler
	logger   *slog.Logger
}

// NewHandler creates an export Handler.
func NewHandler(exporter Assembler, logger *slog.Logger) *Handler {
	return &Handler{exporter: exporter, logger: logger}
}

// Register mounts the export route. The router is expected to already carry
// the auth middleware that puts the caller identity on the context.
func (h *Handler) Register(r chi.Router) {
	r.Get("/gdpr/export", h.handleExport)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := middleware.GetUserID(ctx)
	if raw == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid caller identity"))
		return
	}

	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	bundle, err := h.exporter.ExportUserData(ctx, userID, format)
	if err != nil {
		h.logger.ErrorContext(ctx, "data export failed",
			"request_id", middleware.GetRequestID(ctx),
			"format", string(format),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	// Encode into memory first so an encoding failure can still produce a
	// clean error response instead of a truncated body.
	var buf bytes.Buffer
	if err := Encode(&buf, bundle, format); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode export bundle",
			"request_id", middleware.GetRequestID(ctx),
			"format", string(format),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode export"))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=user-data-%s.%s", userID, format.Ext()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
