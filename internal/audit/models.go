package audit

import (
	"time"

	"github.com/google/uuid"
)

// Actions written by the GDPR modules. The audit trail is append-only; these
// tags are the stable vocabulary reports and exports key on.
const (
	ActionConsentRecorded  = "consent_recorded"
	ActionConsentRevoked   = "consent_revoked"
	ActionDataExported     = "data_exported"
	ActionDeletionRequest  = "deletion_requested"
	ActionDeletionApproved = "deletion_approved"
	ActionDeletionRejected = "deletion_rejected"
	ActionDataDeleted      = "user_data_deleted"
	ActionActivityUpdated  = "processing_activity_updated"
)

// Resource types referenced by audit entries.
const (
	ResourceConsent  = "consent"
	ResourceExport   = "data_export"
	ResourceDeletion = "deletion_request"
	ResourceActivity = "data_processing_activity"
)

// Entry is an immutable record of a sensitive action taken on behalf of, or
// affecting, a user's data. UserID is nil for system-level actions, such as
// the final entry written after a user row has been erased.
type Entry struct {
	ID           uuid.UUID
	UserID       *uuid.UUID
	Action       string
	ResourceType string
	Details      map[string]any
	CreatedAt    time.Time
}
