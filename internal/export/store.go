package export

import (
	"context"

	"github.com/google/uuid"
)

// Category names, in the fixed order they appear in every bundle.
const (
	CategoryProfile         = "profile"
	CategoryEmotionCheckins = "emotion_checkins"
	CategoryConflicts       = "conflicts"
	CategoryTherapySessions = "therapy_sessions"
	CategoryConsentRecords  = "consent_records"
	CategoryAuditLog        = "audit_log"
	CategorySupportTickets  = "support_tickets"
)

// categoryOrder fixes bundle layout regardless of fetch completion order.
var categoryOrder = []string{
	CategoryProfile,
	CategoryEmotionCheckins,
	CategoryConflicts,
	CategoryTherapySessions,
	CategoryConsentRecords,
	CategoryAuditLog,
	CategorySupportTickets,
}

// Store reads every personal-data category for one user. All methods are
// read-only and return rows newest first.
type Store interface {
	FetchCategory(ctx context.Context, name string, userID uuid.UUID) ([]Record, error)
}
