package handler

import (
	"time"

	"mrcreams/internal/deletion/models"
)

// RequestDeletionResponse acknowledges a filed erasure request. The
// estimated date is informational; no scheduler enforces it.
type RequestDeletionResponse struct {
	Success               bool      `json:"success"`
	Message               string    `json:"message"`
	RequestID             string    `json:"request_id"`
	EstimatedDeletionDate time.Time `json:"estimated_deletion_date"`
}

// ActionResponse acknowledges an administrative transition.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ListResponse lists deletion requests awaiting a decision.
type ListResponse struct {
	Success  bool          `json:"success"`
	Requests []RequestView `json:"requests"`
}

// RequestView is one deletion request in HTTP responses.
type RequestView struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Reason      string     `json:"reason,omitempty"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func toListResponse(requests []*models.Request) ListResponse {
	views := make([]RequestView, 0, len(requests))
	for _, req := range requests {
		views = append(views, RequestView{
			ID:          req.ID.String(),
			UserID:      req.UserID.String(),
			Reason:      req.Reason,
			Status:      string(req.Status),
			RequestedAt: req.RequestedAt,
			CompletedAt: req.CompletedAt,
		})
	}
	return ListResponse{Success: true, Requests: views}
}
