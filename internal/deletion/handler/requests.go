package handler

// RequestDeletionRequest files a right-to-erasure request. Confirmation must
// be the exact phrase "DELETE_MY_DATA".
type RequestDeletionRequest struct {
	Reason       string `json:"reason" validate:"max=512"`
	Confirmation string `json:"confirmation" validate:"required"`
}

// RejectDeletionRequest carries the administrator's rejection reason.
type RejectDeletionRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=512"`
}
