package models

import (
	"time"

	"github.com/google/uuid"
)

// Record is one entry in the append-only consent ledger.
//
// # Ledger Invariant
//
// Records are never updated except for stamping RevokedAt, and never deleted
// except by the erasure workflow. For a given (UserID, ConsentType) the
// "active" record is the most recently created row with Granted=true and
// RevokedAt=nil. Revoking consent appends a marker row and stamps RevokedAt
// on the prior active row(s); history stays intact.
type Record struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ConsentType    string
	ConsentVersion string
	Granted        bool
	GrantedAt      *time.Time
	RevokedAt      *time.Time
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
}

// IsActive reports whether this record currently authorizes processing.
func (r Record) IsActive() bool {
	return r.Granted && r.RevokedAt == nil
}

// RevokeMarkerVersion is stamped on the marker row appended by an explicit
// revocation. The value is fixed rather than derived from the record being
// revoked, so revocation markers are distinguishable from version bumps.
const RevokeMarkerVersion = "1.0"

// TypeStatus is the current consent state for one consent type.
type TypeStatus struct {
	ConsentVersion string
	Granted        bool
	GrantedAt      *time.Time
	RevokedAt      *time.Time
	IsActive       bool
}

// CurrentStatus folds a user's ledger into one entry per consent type,
// keeping for each type the record with the latest GrantedAt. Records that
// were never granted compare as the epoch, so any granted record outranks
// them.
func CurrentStatus(records []*Record) map[string]TypeStatus {
	latest := make(map[string]*Record)
	for _, r := range records {
		best, ok := latest[r.ConsentType]
		if !ok || grantTime(r).After(grantTime(best)) {
			latest[r.ConsentType] = r
		}
	}

	status := make(map[string]TypeStatus, len(latest))
	for consentType, r := range latest {
		status[consentType] = TypeStatus{
			ConsentVersion: r.ConsentVersion,
			Granted:        r.Granted,
			GrantedAt:      r.GrantedAt,
			RevokedAt:      r.RevokedAt,
			IsActive:       r.IsActive(),
		}
	}
	return status
}

func grantTime(r *Record) time.Time {
	if r.GrantedAt == nil {
		return time.Time{}
	}
	return *r.GrantedAt
}
