package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"mrcreams/internal/audit"
	"mrcreams/internal/consent/models"
	"mrcreams/internal/consent/store"
	"mrcreams/internal/platform/metrics"
	"mrcreams/internal/platform/privacy"
	"mrcreams/internal/platform/redis"
	dErrors "mrcreams/pkg/domain-errors"
)

const (
	defaultCacheTTL   = 30 * time.Second
	maxUserAgentBytes = 512
)

// Service maintains the append-only consent ledger and answers consent
// checks. Each call is stateless request/response against the store; the
// Redis cache only short-circuits repeated HasValidConsent lookups.
type Service struct {
	store    store.Store
	auditor  *audit.Publisher
	cache    *redis.Client
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithCache enables the Redis decision cache for HasValidConsent.
func WithCache(cache *redis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates the consent ledger service.
func NewService(st store.Store, auditor *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:    st,
		auditor:  auditor,
		logger:   logger,
		cacheTTL: defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// RecordConsent appends a ledger entry for the user's decision. A
// granted=false decision additionally stamps revoked_at on all prior active
// records of the same type, so a denial always closes out earlier grants.
func (s *Service) RecordConsent(ctx context.Context, userID uuid.UUID, consentType, consentVersion string, granted bool, ipAddress, userAgent string) (*models.Record, error) {
	if userID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}
	if strings.TrimSpace(consentType) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "consent_type is required")
	}
	if strings.TrimSpace(consentVersion) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "consent_version is required")
	}

	now := time.Now()
	if !granted {
		if _, err := s.store.RevokeActive(ctx, userID, consentType, now); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke prior consents")
		}
	}

	record := &models.Record{
		ID:             uuid.New(),
		UserID:         userID,
		ConsentType:    consentType,
		ConsentVersion: consentVersion,
		Granted:        granted,
		IPAddress:      ipAddress,
		UserAgent:      normalizeUserAgent(userAgent),
		CreatedAt:      now,
	}
	if granted {
		record.GrantedAt = &now
	}
	if err := s.store.Append(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record consent")
	}

	s.invalidateDecision(ctx, userID, consentType)

	decision := "granted"
	action := audit.ActionConsentRecorded
	if !granted {
		decision = "denied"
	}
	s.emitAudit(ctx, userID, action, map[string]any{
		"consent_type":    consentType,
		"consent_version": consentVersion,
		"decision":        decision,
		"ip":              privacy.AnonymizeIP(ipAddress),
	})
	if s.metrics != nil {
		s.metrics.IncrementConsentsRecorded(consentType, decision)
	}
	return record, nil
}

// HasValidConsent reports whether the user's most recent record for the type
// is an unrevoked grant. It fails closed: any lookup error yields false,
// never an error, because callers use it as an access-control gate.
func (s *Service) HasValidConsent(ctx context.Context, userID uuid.UUID, consentType string) bool {
	if userID == uuid.Nil || consentType == "" {
		return false
	}

	key := decisionKey(userID, consentType)
	if s.cache != nil {
		if valid, ok := s.cache.GetBool(ctx, key); ok {
			s.countCheck(consentType, valid)
			return valid
		}
	}

	record, err := s.store.Latest(ctx, userID, consentType)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.ErrorContext(ctx, "consent check failed closed",
				"error", err,
				"consent_type", consentType,
			)
		}
		s.countCheck(consentType, false)
		return false
	}

	valid := record.IsActive()
	if s.cache != nil {
		s.cache.SetBool(ctx, key, valid, s.cacheTTL)
	}
	s.countCheck(consentType, valid)
	return valid
}

// GetUserConsentStatus returns one current-status entry per consent type the
// user has ever decided on.
func (s *Service) GetUserConsentStatus(ctx context.Context, userID uuid.UUID) (map[string]models.TypeStatus, error) {
	if userID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}
	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent ledger")
	}
	return models.CurrentStatus(records), nil
}

// RevokeConsent stamps revoked_at on prior active records and appends a
// permanent granted=false marker so the revocation itself is part of history.
func (s *Service) RevokeConsent(ctx context.Context, userID uuid.UUID, consentType string) error {
	if userID == uuid.Nil {
		return dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}
	if strings.TrimSpace(consentType) == "" {
		return dErrors.New(dErrors.CodeValidation, "consent_type is required")
	}

	now := time.Now()
	if _, err := s.store.RevokeActive(ctx, userID, consentType, now); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke consent")
	}

	marker := &models.Record{
		ID:             uuid.New(),
		UserID:         userID,
		ConsentType:    consentType,
		ConsentVersion: models.RevokeMarkerVersion,
		Granted:        false,
		RevokedAt:      &now,
		CreatedAt:      now,
	}
	if err := s.store.Append(ctx, marker); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record revocation")
	}

	s.invalidateDecision(ctx, userID, consentType)
	s.emitAudit(ctx, userID, audit.ActionConsentRevoked, map[string]any{
		"consent_type": consentType,
	})
	if s.metrics != nil {
		s.metrics.IncrementConsentsRevoked(consentType)
	}
	return nil
}

// GetUserConsentHistory returns the full ledger for a user, newest first.
func (s *Service) GetUserConsentHistory(ctx context.Context, userID uuid.UUID) ([]*models.Record, error) {
	if userID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}
	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent ledger")
	}
	return records, nil
}

func (s *Service) countCheck(consentType string, passed bool) {
	if s.metrics == nil {
		return
	}
	if passed {
		s.metrics.IncrementConsentCheckPassed(consentType)
		return
	}
	s.metrics.IncrementConsentCheckFailed(consentType)
}

func (s *Service) invalidateDecision(ctx context.Context, userID uuid.UUID, consentType string) {
	if s.cache != nil {
		s.cache.Delete(ctx, decisionKey(userID, consentType))
	}
}

func (s *Service) emitAudit(ctx context.Context, userID uuid.UUID, action string, details map[string]any) {
	if s.auditor == nil {
		return
	}
	uid := userID
	s.auditor.Emit(ctx, audit.Entry{
		UserID:       &uid,
		Action:       action,
		ResourceType: audit.ResourceConsent,
		Details:      details,
	})
}

func decisionKey(userID uuid.UUID, consentType string) string {
	return fmt.Sprintf("consent:valid:%s:%s", userID, consentType)
}

// normalizeUserAgent reduces a raw User-Agent header to "browser/version
// (os)" before it enters the ledger. Unparseable strings are stored as-is,
// truncated so a hostile header cannot bloat rows.
func normalizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	if len(raw) > maxUserAgentBytes {
		raw = raw[:maxUserAgentBytes]
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	out := raw
	if name != "" {
		if os := ua.OS(); os != "" {
			out = fmt.Sprintf("%s/%s (%s)", name, version, os)
		} else {
			out = fmt.Sprintf("%s/%s", name, version)
		}
	}
	// The parser can echo a long token back as the browser name, so the cap
	// has to apply to the formatted result as well.
	if len(out) > maxUserAgentBytes {
		out = out[:maxUserAgentBytes]
	}
	return out
}
