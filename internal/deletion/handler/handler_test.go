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
	"mrcreams/internal/deletion/service"
	"mrcreams/internal/deletion/store"
	"mrcreams/internal/platform/middleware"
)

type DeletionHandlerSuite struct {
	suite.Suite
	router  chi.Router
	store   *store.InMemoryStore
	userID  uuid.UUID
	adminID uuid.UUID
}

func (s *DeletionHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = store.NewInMemory()
	svc := service.NewService(s.store, audit.NewPublisher(audit.NewInMemoryStore()), logger)
	h := New(svc, logger)

	s.userID = uuid.New()
	s.adminID = uuid.New()

	s.router = chi.NewRouter()
	// Stand-in for the auth middleware: user routes run as the user, admin
	// routes as the administrator.
	s.router.Group(func(r chi.Router) {
		r.Use(identity(func() string { return s.userID.String() }, "user"))
		h.Register(r)
	})
	s.router.Route("/admin", func(r chi.Router) {
		r.Use(identity(func() string { return s.adminID.String() }, "admin"))
		h.RegisterAdmin(r)
	})
}

func identity(userID func() string, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithIdentity(r.Context(), userID(), role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TestDeletionHandlerSuite(t *testing.T) {
	suite.Run(t, new(DeletionHandlerSuite))
}

func (s *DeletionHandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
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

func (s *DeletionHandlerSuite) fileRequest() string {
	rec := s.do(http.MethodPost, "/gdpr/deletion-request",
		`{"reason":"closing my account","confirmation":"DELETE_MY_DATA"}`)
	s.Require().Equal(http.StatusAccepted, rec.Code)

	var resp RequestDeletionResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Success)
	s.NotEmpty(resp.RequestID)
	return resp.RequestID
}

func (s *DeletionHandlerSuite) TestRequestAndDuplicate() {
	s.fileRequest()

	rec := s.do(http.MethodPost, "/gdpr/deletion-request",
		`{"reason":"again","confirmation":"DELETE_MY_DATA"}`)
	s.Equal(http.StatusConflict, rec.Code)
	s.Contains(rec.Body.String(), "already exists")
}

func (s *DeletionHandlerSuite) TestWrongConfirmationPhrase() {
	rec := s.do(http.MethodPost, "/gdpr/deletion-request",
		`{"reason":"x","confirmation":"please delete"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "DELETE_MY_DATA")
}

func (s *DeletionHandlerSuite) TestAdminWorkflow() {
	id := s.fileRequest()
	s.store.Seed(s.userID, "users", 1)

	rec := s.do(http.MethodGet, "/admin/deletion-requests", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var list ListResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	s.Require().Len(list.Requests, 1)
	s.Equal("pending", list.Requests[0].Status)

	rec = s.do(http.MethodPost, "/admin/deletion-requests/"+id+"/approve", "")
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/admin/deletion-requests/"+id+"/process", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Zero(s.store.RowCount(s.userID, "users"))
}

func (s *DeletionHandlerSuite) TestRejectNeedsReason() {
	id := s.fileRequest()

	rec := s.do(http.MethodPost, "/admin/deletion-requests/"+id+"/reject", `{"reason":"   "}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/admin/deletion-requests/"+id+"/reject", `{"reason":"identity not verified"}`)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *DeletionHandlerSuite) TestProcessBeforeApprovalConflicts() {
	id := s.fileRequest()

	rec := s.do(http.MethodPost, "/admin/deletion-requests/"+id+"/process", "")
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *DeletionHandlerSuite) TestBadRequestID() {
	rec := s.do(http.MethodPost, "/admin/deletion-requests/not-a-uuid/approve", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}
