package audit

import (
	"context"

	"github.com/google/uuid"
)

// Store persists audit entries. Implementations must be append-only: nothing
// in this module updates or deletes entries (the deletion workflow removes a
// user's entries wholesale, through its own transactional store).
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Entry, error)
}
