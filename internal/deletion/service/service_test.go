package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"mrcreams/internal/audit"
	"mrcreams/internal/deletion/models"
	"mrcreams/internal/deletion/store"
	dErrors "mrcreams/pkg/domain-errors"
)

type DeletionServiceSuite struct {
	suite.Suite
	store      *store.InMemoryStore
	auditStore *audit.InMemoryStore
	svc        *Service
	userID     uuid.UUID
	adminID    uuid.UUID
}

func (s *DeletionServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.auditStore = audit.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = NewService(s.store, audit.NewPublisher(s.auditStore), logger)
	s.userID = uuid.New()
	s.adminID = uuid.New()
}

func (s *DeletionServiceSuite) seedUserRows() {
	s.store.Seed(s.userID, "audit_log", 12)
	s.store.Seed(s.userID, "consent_records", 4)
	s.store.Seed(s.userID, "emotion_checkins", 30)
	s.store.Seed(s.userID, "conflicts", 2)
	s.store.Seed(s.userID, "therapy_sessions", 5)
	s.store.Seed(s.userID, "support_tickets", 1)
	s.store.Seed(s.userID, "user_metadata", 1)
	s.store.Seed(s.userID, "users", 1)
}

func (s *DeletionServiceSuite) file() *models.Request {
	req, _, err := s.svc.RequestDataDeletion(context.Background(), s.userID, "leaving", models.ConfirmationPhrase)
	s.Require().NoError(err)
	return req
}

func (s *DeletionServiceSuite) TestRequestWithExactPhrase() {
	req, estimated, err := s.svc.RequestDataDeletion(context.Background(), s.userID, "leaving", "DELETE_MY_DATA")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, req.Status)
	s.WithinDuration(req.RequestedAt.Add(30*24*time.Hour), estimated, time.Second)
}

func (s *DeletionServiceSuite) TestDuplicateRequestRejected() {
	s.file()

	_, _, err := s.svc.RequestDataDeletion(context.Background(), s.userID, "again", models.ConfirmationPhrase)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *DeletionServiceSuite) TestWrongPhraseCreatesNoRow() {
	_, _, err := s.svc.RequestDataDeletion(context.Background(), s.userID, "leaving", "WRONG_PHRASE")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	pending, err := s.store.ListByStatus(context.Background(), models.StatusPending)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *DeletionServiceSuite) TestRejectedRequestUnblocksUser() {
	req := s.file()
	s.Require().NoError(s.svc.RejectDeletionRequest(context.Background(), req.ID, s.adminID, "needs verification"))

	_, _, err := s.svc.RequestDataDeletion(context.Background(), s.userID, "second try", models.ConfirmationPhrase)
	s.NoError(err)
}

func (s *DeletionServiceSuite) TestApproveRequiresPending() {
	req := s.file()
	s.Require().NoError(s.svc.ApproveDeletionRequest(context.Background(), req.ID, s.adminID))

	err := s.svc.ApproveDeletionRequest(context.Background(), req.ID, s.adminID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *DeletionServiceSuite) TestProcessRequiresApproved() {
	s.seedUserRows()
	req := s.file()

	err := s.svc.ProcessDataDeletion(context.Background(), req.ID, s.adminID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	s.Equal(int64(4), s.store.RowCount(s.userID, "consent_records"))
}

func (s *DeletionServiceSuite) TestProcessUnknownRequest() {
	err := s.svc.ProcessDataDeletion(context.Background(), uuid.New(), s.adminID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DeletionServiceSuite) TestProcessErasesEverything() {
	s.seedUserRows()
	req := s.file()
	s.Require().NoError(s.svc.ApproveDeletionRequest(context.Background(), req.ID, s.adminID))

	s.Require().NoError(s.svc.ProcessDataDeletion(context.Background(), req.ID, s.adminID))

	for _, table := range []string{
		"audit_log", "consent_records", "emotion_checkins", "conflicts",
		"therapy_sessions", "support_tickets", "user_metadata", "users",
	} {
		s.Zero(s.store.RowCount(s.userID, table), table)
	}

	done, err := s.store.GetByID(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, done.Status)
	s.Require().NotNil(done.CompletedAt)
	s.Require().NotNil(done.ProcessedBy)
	s.Equal(s.adminID, *done.ProcessedBy)
}

func (s *DeletionServiceSuite) TestErasureFailureRollsBack() {
	s.seedUserRows()
	req := s.file()
	s.Require().NoError(s.svc.ApproveDeletionRequest(context.Background(), req.ID, s.adminID))
	s.store.FailTable("therapy_sessions", errors.New("deadlock detected"))

	err := s.svc.ProcessDataDeletion(context.Background(), req.ID, s.adminID)
	s.Require().Error(err)

	// Tables before the failing one must be intact too.
	s.Equal(int64(12), s.store.RowCount(s.userID, "audit_log"))
	s.Equal(int64(4), s.store.RowCount(s.userID, "consent_records"))
	s.Equal(int64(1), s.store.RowCount(s.userID, "users"))

	stuck, err := s.store.GetByID(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, stuck.Status)
}

func (s *DeletionServiceSuite) TestErasureAuditEntryHasNoUser() {
	s.seedUserRows()
	req := s.file()
	s.Require().NoError(s.svc.ApproveDeletionRequest(context.Background(), req.ID, s.adminID))
	s.Require().NoError(s.svc.ProcessDataDeletion(context.Background(), req.ID, s.adminID))

	var final *audit.Entry
	for _, entry := range s.auditStore.All() {
		if entry.Action == audit.ActionDataDeleted {
			e := entry
			final = &e
		}
	}
	s.Require().NotNil(final)
	s.Nil(final.UserID)
	s.Equal(req.ID.String(), final.Details["request_id"])
	s.EqualValues(56, final.Details["rows_deleted"])
}

func TestDeletionServiceSuite(t *testing.T) {
	suite.Run(t, new(DeletionServiceSuite))
}
