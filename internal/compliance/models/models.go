package models

import (
	"time"

	"github.com/google/uuid"
)

// Activity is one entry in the register of data processing activities the
// operator maintains under GDPR art. 30.
type Activity struct {
	ID              uuid.UUID
	ActivityName    string
	Purpose         string
	LegalBasis      string
	DataCategories  string
	RetentionPeriod string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Status is the per-user compliance view: which consents are active, how
// many processing activities apply, and which data-subject rights the
// platform grants. The rights flags are constants of the platform, not
// per-user state.
type Status struct {
	HasValidConsent      bool
	ConsentTypes         []string
	ProcessingActivities int
	HasDataExportRight   bool
	HasDataDeletionRight bool
	LastConsentUpdate    *time.Time
}

// ConsentTypeCount is one row of the report's consent aggregate.
type ConsentTypeCount struct {
	ConsentType string
	Granted     int64
	Revoked     int64
}

// ProcessingStats aggregates the activity register.
type ProcessingStats struct {
	Total  int64
	Active int64
}

// DeletionStats aggregates deletion requests filed within the report period.
type DeletionStats struct {
	Total     int64
	Completed int64
	Pending   int64
}

// Report is the administrative compliance report over a date range.
type Report struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Consent     []ConsentTypeCount
	Processing  ProcessingStats
	Deletion    DeletionStats
	GeneratedAt time.Time
}
