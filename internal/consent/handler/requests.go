package handler

// RecordConsentRequest captures a user's decision for one consent type.
// Granted is a pointer so an omitted field fails validation instead of
// silently reading as a denial.
type RecordConsentRequest struct {
	ConsentType    string `json:"consent_type" validate:"required,notblank,max=64"`
	ConsentVersion string `json:"consent_version" validate:"required,notblank,max=16"`
	Granted        *bool  `json:"granted" validate:"required"`
}

// RevokeConsentRequest names the consent type to revoke.
type RevokeConsentRequest struct {
	ConsentType string `json:"consent_type" validate:"required,notblank,max=64"`
}
