package handler

import (
	"time"

	"mrcreams/internal/consent/models"
)

// RecordConsentResponse is returned after a decision is written to the ledger.
type RecordConsentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StatusResponse maps each consent type to its current state.
type StatusResponse struct {
	Success  bool                  `json:"success"`
	Consents map[string]TypeStatus `json:"consents"`
}

// TypeStatus is the per-type view exposed over HTTP.
type TypeStatus struct {
	ConsentVersion string     `json:"consent_version"`
	Granted        bool       `json:"granted"`
	GrantedAt      *time.Time `json:"granted_at,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	IsActive       bool       `json:"is_active"`
}

// HistoryResponse lists the full ledger for a user, newest first.
type HistoryResponse struct {
	Success bool            `json:"success"`
	History []HistoryRecord `json:"history"`
}

// HistoryRecord is one ledger entry in HTTP responses.
type HistoryRecord struct {
	ID             string     `json:"id"`
	ConsentType    string     `json:"consent_type"`
	ConsentVersion string     `json:"consent_version"`
	Granted        bool       `json:"granted"`
	GrantedAt      *time.Time `json:"granted_at,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toStatusResponse(status map[string]models.TypeStatus) StatusResponse {
	consents := make(map[string]TypeStatus, len(status))
	for consentType, st := range status {
		consents[consentType] = TypeStatus{
			ConsentVersion: st.ConsentVersion,
			Granted:        st.Granted,
			GrantedAt:      st.GrantedAt,
			RevokedAt:      st.RevokedAt,
			IsActive:       st.IsActive,
		}
	}
	return StatusResponse{Success: true, Consents: consents}
}

func toHistoryResponse(records []*models.Record) HistoryResponse {
	history := make([]HistoryRecord, 0, len(records))
	for _, r := range records {
		history = append(history, HistoryRecord{
			ID:             r.ID.String(),
			ConsentType:    r.ConsentType,
			ConsentVersion: r.ConsentVersion,
			Granted:        r.Granted,
			GrantedAt:      r.GrantedAt,
			RevokedAt:      r.RevokedAt,
			CreatedAt:      r.CreatedAt,
		})
	}
	return HistoryResponse{Success: true, History: history}
}
