package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"mrcreams/internal/audit"
	"mrcreams/internal/consent/models"
	"mrcreams/internal/consent/store"
	"mrcreams/internal/platform/redis"
	dErrors "mrcreams/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	store      *store.InMemoryStore
	auditStore *audit.InMemoryStore
	service    *Service
	userID     uuid.UUID
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.auditStore = audit.NewInMemoryStore()
	s.service = NewService(
		s.store,
		audit.NewPublisher(s.auditStore),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	s.userID = uuid.New()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestGrantThenCheck() {
	_, err := s.service.RecordConsent(context.Background(), s.userID, "marketing", "1.0", true, "203.0.113.7", "Mozilla/5.0")
	s.Require().NoError(err)

	s.True(s.service.HasValidConsent(context.Background(), s.userID, "marketing"))
	s.False(s.service.HasValidConsent(context.Background(), s.userID, "analytics"))
}

func (s *ServiceSuite) TestGrantRevokeCheck() {
	ctx := context.Background()
	_, err := s.service.RecordConsent(ctx, s.userID, "marketing", "1.0", true, "", "")
	s.Require().NoError(err)
	s.Require().NoError(s.service.RevokeConsent(ctx, s.userID, "marketing"))

	s.False(s.service.HasValidConsent(ctx, s.userID, "marketing"))

	history, err := s.service.GetUserConsentHistory(ctx, s.userID)
	s.Require().NoError(err)
	s.Require().GreaterOrEqual(len(history), 2, "revocation appends a marker, it never rewrites history")
	s.False(history[0].CreatedAt.Before(history[1].CreatedAt), "history is newest first")

	status, err := s.service.GetUserConsentStatus(ctx, s.userID)
	s.Require().NoError(err)
	s.Require().Contains(status, "marketing")
	s.False(status["marketing"].IsActive)
}

func (s *ServiceSuite) TestDenialClosesOutPriorGrants() {
	ctx := context.Background()
	_, err := s.service.RecordConsent(ctx, s.userID, "analytics", "1.0", true, "", "")
	s.Require().NoError(err)

	// Recording granted=false both appends a denial row and stamps
	// revoked_at on the earlier grant.
	_, err = s.service.RecordConsent(ctx, s.userID, "analytics", "1.1", false, "", "")
	s.Require().NoError(err)

	s.False(s.service.HasValidConsent(ctx, s.userID, "analytics"))

	history, err := s.service.GetUserConsentHistory(ctx, s.userID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	for _, r := range history {
		s.False(r.IsActive())
	}
}

func (s *ServiceSuite) TestStatusOneEntryPerType() {
	ctx := context.Background()
	for _, v := range []string{"1.0", "1.1", "2.0"} {
		_, err := s.service.RecordConsent(ctx, s.userID, "marketing", v, true, "", "")
		s.Require().NoError(err)
	}
	_, err := s.service.RecordConsent(ctx, s.userID, "analytics", "1.0", true, "", "")
	s.Require().NoError(err)

	status, err := s.service.GetUserConsentStatus(ctx, s.userID)
	s.Require().NoError(err)
	s.Len(status, 2)
	s.Equal("2.0", status["marketing"].ConsentVersion)
}

func (s *ServiceSuite) TestValidation() {
	ctx := context.Background()

	_, err := s.service.RecordConsent(ctx, uuid.Nil, "marketing", "1.0", true, "", "")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.service.RecordConsent(ctx, s.userID, "  ", "1.0", true, "", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.RecordConsent(ctx, s.userID, "marketing", "", true, "", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	err = s.service.RevokeConsent(ctx, s.userID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestCheckFailsClosedOnStoreError() {
	svc := NewService(
		failingStore{},
		audit.NewPublisher(s.auditStore),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	s.False(svc.HasValidConsent(context.Background(), s.userID, "marketing"))
}

func (s *ServiceSuite) TestAuditTrailWritten() {
	ctx := context.Background()
	_, err := s.service.RecordConsent(ctx, s.userID, "marketing", "1.0", true, "203.0.113.7", "")
	s.Require().NoError(err)
	s.Require().NoError(s.service.RevokeConsent(ctx, s.userID, "marketing"))

	entries := s.auditStore.All()
	s.Require().Len(entries, 2)
	s.Equal(audit.ActionConsentRecorded, entries[0].Action)
	s.Equal(audit.ActionConsentRevoked, entries[1].Action)
	// Raw client IPs never reach the audit trail.
	s.Equal("203.0.113.0", entries[0].Details["ip"])
}

func (s *ServiceSuite) TestDecisionCache() {
	mr := miniredis.RunT(s.T())
	cache := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))

	svc := NewService(
		s.store,
		audit.NewPublisher(s.auditStore),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithCache(cache, time.Minute),
	)
	ctx := context.Background()

	_, err := svc.RecordConsent(ctx, s.userID, "marketing", "1.0", true, "", "")
	s.Require().NoError(err)
	s.True(svc.HasValidConsent(ctx, s.userID, "marketing"))

	// The second lookup is served from Redis; the key must exist now.
	s.True(mr.Exists("consent:valid:" + s.userID.String() + ":marketing"))
	s.True(svc.HasValidConsent(ctx, s.userID, "marketing"))

	// A revoke invalidates the cached decision immediately.
	s.Require().NoError(svc.RevokeConsent(ctx, s.userID, "marketing"))
	s.False(mr.Exists("consent:valid:" + s.userID.String() + ":marketing"))
	s.False(svc.HasValidConsent(ctx, s.userID, "marketing"))
}

func TestNormalizeUserAgent(t *testing.T) {
	got := normalizeUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Contains(t, got, "Chrome")
	assert.Contains(t, got, "Windows")

	assert.Empty(t, normalizeUserAgent(""))

	long := strings.Repeat("x", 2048)
	assert.LessOrEqual(t, len(normalizeUserAgent(long)), maxUserAgentBytes)
}

// failingStore simulates an unreachable database for the fail-closed check.
type failingStore struct{}

func (failingStore) Append(context.Context, *models.Record) error {
	return errors.New("db down")
}

func (failingStore) Latest(context.Context, uuid.UUID, string) (*models.Record, error) {
	return nil, errors.New("db down")
}

func (failingStore) ListByUser(context.Context, uuid.UUID) ([]*models.Record, error) {
	return nil, errors.New("db down")
}

func (failingStore) RevokeActive(context.Context, uuid.UUID, string, time.Time) (int64, error) {
	return 0, errors.New("db down")
}
