package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type PublisherSuite struct {
	suite.Suite
	store *InMemoryStore
}

func (s *PublisherSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) TestEmitStampsIDAndTimestamp() {
	p := NewPublisher(s.store)
	userID := uuid.New()

	p.Emit(context.Background(), Entry{
		UserID:       &userID,
		Action:       ActionConsentRecorded,
		ResourceType: ResourceConsent,
	})

	entries := s.store.All()
	s.Require().Len(entries, 1)
	s.NotEqual(uuid.Nil, entries[0].ID)
	s.False(entries[0].CreatedAt.IsZero())
}

func (s *PublisherSuite) TestAsyncDrainsOnClose() {
	p := NewPublisher(s.store,
		WithAsyncBuffer(8),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		p.Emit(context.Background(), Entry{
			UserID:       &userID,
			Action:       ActionDataExported,
			ResourceType: ResourceExport,
		})
	}
	p.Close()

	s.Len(s.store.All(), 5, "close must drain every buffered entry")
}

func (s *PublisherSuite) TestListByUserNewestFirst() {
	p := NewPublisher(s.store)
	userID := uuid.New()
	other := uuid.New()

	base := time.Now().Add(-time.Hour)
	for i, action := range []string{ActionConsentRecorded, ActionConsentRevoked, ActionDataExported} {
		p.Emit(context.Background(), Entry{
			UserID:    &userID,
			Action:    action,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	p.Emit(context.Background(), Entry{UserID: &other, Action: ActionDeletionRequest})

	entries, err := p.ListByUser(context.Background(), userID)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(ActionDataExported, entries[0].Action)
	s.Equal(ActionConsentRecorded, entries[2].Action)
}

func (s *PublisherSuite) TestSystemEntryHasNoUser() {
	p := NewPublisher(s.store)

	p.Emit(context.Background(), Entry{
		Action:       ActionDataDeleted,
		ResourceType: ResourceDeletion,
		Details:      map[string]any{"deleted_user_id": uuid.New().String()},
	})

	entries := s.store.All()
	s.Require().Len(entries, 1)
	s.Nil(entries[0].UserID)
}
