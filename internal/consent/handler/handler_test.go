package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"mrcreams/internal/audit"
	"mrcreams/internal/consent/service"
	"mrcreams/internal/consent/store"
	"mrcreams/internal/platform/middleware"
)

type HandlerSuite struct {
	suite.Suite
	router chi.Router
	userID uuid.UUID
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewService(store.NewInMemory(), audit.NewPublisher(audit.NewInMemoryStore()), logger)
	h := New(svc, logger)

	s.userID = uuid.New()
	s.router = chi.NewRouter()
	// Stand-in for the auth middleware: inject the caller identity directly.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithIdentity(r.Context(), s.userID.String(), "user")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	h.Register(s.router)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestRecordThenStatus() {
	rec := s.do(http.MethodPost, "/gdpr/consent",
		`{"consent_type":"marketing","consent_version":"1.0","granted":true}`)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/gdpr/consent", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp StatusResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Success)
	s.Require().Contains(resp.Consents, "marketing")
	s.True(resp.Consents["marketing"].IsActive)
}

func (s *HandlerSuite) TestRevokeFlow() {
	s.do(http.MethodPost, "/gdpr/consent",
		`{"consent_type":"marketing","consent_version":"1.0","granted":true}`)
	rec := s.do(http.MethodPost, "/gdpr/consent/revoke", `{"consent_type":"marketing"}`)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/gdpr/consent/history", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp HistoryResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.GreaterOrEqual(len(resp.History), 2)
}

func (s *HandlerSuite) TestValidationErrors() {
	s.Run("missing granted field", func() {
		rec := s.do(http.MethodPost, "/gdpr/consent",
			`{"consent_type":"marketing","consent_version":"1.0"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("blank consent type", func() {
		rec := s.do(http.MethodPost, "/gdpr/consent",
			`{"consent_type":"   ","consent_version":"1.0","granted":true}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("empty body", func() {
		rec := s.do(http.MethodPost, "/gdpr/consent/revoke", "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown fields rejected", func() {
		rec := s.do(http.MethodPost, "/gdpr/consent/revoke",
			`{"consent_type":"marketing","extra":1}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestUnauthenticated() {
	// A router without the identity middleware leaves the context empty.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewService(store.NewInMemory(), audit.NewPublisher(audit.NewInMemoryStore()), logger)
	router := chi.NewRouter()
	New(svc, logger).Register(router)

	req := httptest.NewRequest(http.MethodGet, "/gdpr/consent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}
