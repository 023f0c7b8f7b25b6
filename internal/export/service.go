package export

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mrcreams/internal/audit"
	"mrcreams/internal/platform/metrics"
	dErrors "mrcreams/pkg/domain-errors"
)

// Service assembles per-user export bundles. Assembly is read-only with
// respect to domain data; the only write is the audit entry recording that
// the export happened.
type Service struct {
	store   Store
	auditor *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates the export assembler.
func NewService(store Store, auditor *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{store: store, auditor: auditor, logger: logger}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ExportUserData fetches every category concurrently and assembles the
// bundle in fixed category order. Any single query error aborts the whole
// export; no partial bundle is ever returned.
func (s *Service) ExportUserData(ctx context.Context, userID uuid.UUID, format Format) (*Bundle, error) {
	if userID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}

	start := time.Now()

	results := make(map[string][]Record, len(categoryOrder))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range categoryOrder {
		g.Go(func() error {
			records, err := s.store.FetchCategory(gctx, name, userID)
			if err != nil {
				return err
			}
			mu.Lock()
			results[name] = records
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementExportsFailed()
		}
		s.logger.ErrorContext(ctx, "export aborted", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to assemble export")
	}

	bundle := &Bundle{
		UserID:      userID,
		GeneratedAt: time.Now().UTC(),
		Categories:  make([]Category, 0, len(categoryOrder)),
	}
	for _, name := range categoryOrder {
		bundle.Categories = append(bundle.Categories, Category{
			Name:    name,
			Records: results[name],
		})
	}

	if s.auditor != nil {
		uid := userID
		s.auditor.Emit(ctx, audit.Entry{
			UserID:       &uid,
			Action:       audit.ActionDataExported,
			ResourceType: audit.ResourceExport,
			Details: map[string]any{
				"format":       string(format),
				"record_count": bundle.RecordCount(),
				"categories":   bundle.CategoryNames(),
			},
		})
	}
	if s.metrics != nil {
		s.metrics.IncrementExportsCompleted(string(format))
		s.metrics.ObserveExportLatency(time.Since(start).Seconds())
	}
	return bundle, nil
}
