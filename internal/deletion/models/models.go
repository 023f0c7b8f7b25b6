package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a deletion request. The workflow is
// pending -> approved -> completed, or pending -> rejected. Completed is
// terminal and marks that the user's rows are gone.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// ConfirmationPhrase is the exact literal a user must submit with an erasure
// request. Anything else is refused with a user-facing message.
const ConfirmationPhrase = "DELETE_MY_DATA"

// Request is a right-to-erasure workflow item.
type Request struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Reason      string
	Status      Status
	RequestedAt time.Time
	CompletedAt *time.Time
	ProcessedBy *uuid.UUID
}

// Outstanding reports whether the request still blocks a new one for the
// same user.
func (r *Request) Outstanding() bool {
	return r.Status == StatusPending || r.Status == StatusApproved
}
