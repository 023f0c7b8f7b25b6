package handler

import (
	"time"

	"mrcreams/internal/compliance/models"
)

// ActivityView is one processing activity in HTTP responses.
type ActivityView struct {
	ID              string    `json:"id"`
	ActivityName    string    `json:"activity_name"`
	Purpose         string    `json:"purpose"`
	LegalBasis      string    `json:"legal_basis"`
	DataCategories  string    `json:"data_categories"`
	RetentionPeriod string    `json:"retention_period"`
	IsActive        bool      `json:"is_active"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ActivitiesResponse lists the active processing register.
type ActivitiesResponse struct {
	Success    bool           `json:"success"`
	Activities []ActivityView `json:"activities"`
}

// ActionResponse acknowledges a register update.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StatusResponse is the per-user compliance view.
type StatusResponse struct {
	Success              bool       `json:"success"`
	HasValidConsent      bool       `json:"has_valid_consent"`
	ConsentTypes         []string   `json:"consent_types"`
	ProcessingActivities int        `json:"data_processing_activities"`
	HasDataExportRight   bool       `json:"has_data_export_right"`
	HasDataDeletionRight bool       `json:"has_data_deletion_right"`
	LastConsentUpdate    *time.Time `json:"last_consent_update,omitempty"`
}

// ReportResponse is the administrative compliance report.
type ReportResponse struct {
	Success bool       `json:"success"`
	Report  ReportView `json:"report"`
}

// ReportView carries the three aggregates over one period.
type ReportView struct {
	Period      PeriodView         `json:"period"`
	Consent     []ConsentStatView  `json:"consent_statistics"`
	Processing  ProcessingStatView `json:"data_processing_statistics"`
	Deletion    DeletionStatView   `json:"data_deletion_statistics"`
	GeneratedAt time.Time          `json:"generated_at"`
}

type PeriodView struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type ConsentStatView struct {
	ConsentType string `json:"consent_type"`
	Granted     int64  `json:"granted"`
	Revoked     int64  `json:"revoked"`
}

type ProcessingStatView struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

type DeletionStatView struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
}

func toActivitiesResponse(activities []*models.Activity) ActivitiesResponse {
	views := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		views = append(views, ActivityView{
			ID:              a.ID.String(),
			ActivityName:    a.ActivityName,
			Purpose:         a.Purpose,
			LegalBasis:      a.LegalBasis,
			DataCategories:  a.DataCategories,
			RetentionPeriod: a.RetentionPeriod,
			IsActive:        a.IsActive,
			UpdatedAt:       a.UpdatedAt,
		})
	}
	return ActivitiesResponse{Success: true, Activities: views}
}

func toStatusResponse(status *models.Status) StatusResponse {
	consentTypes := status.ConsentTypes
	if consentTypes == nil {
		consentTypes = []string{}
	}
	return StatusResponse{
		Success:              true,
		HasValidConsent:      status.HasValidConsent,
		ConsentTypes:         consentTypes,
		ProcessingActivities: status.ProcessingActivities,
		HasDataExportRight:   status.HasDataExportRight,
		HasDataDeletionRight: status.HasDataDeletionRight,
		LastConsentUpdate:    status.LastConsentUpdate,
	}
}

func toReportResponse(report *models.Report) ReportResponse {
	consent := make([]ConsentStatView, 0, len(report.Consent))
	for _, c := range report.Consent {
		consent = append(consent, ConsentStatView{
			ConsentType: c.ConsentType,
			Granted:     c.Granted,
			Revoked:     c.Revoked,
		})
	}
	return ReportResponse{
		Success: true,
		Report: ReportView{
			Period:      PeriodView{Start: report.PeriodStart, End: report.PeriodEnd},
			Consent:     consent,
			Processing:  ProcessingStatView{Total: report.Processing.Total, Active: report.Processing.Active},
			Deletion:    DeletionStatView{Total: report.Deletion.Total, Completed: report.Deletion.Completed, Pending: report.Deletion.Pending},
			GeneratedAt: report.GeneratedAt,
		},
	}
}
