package models

// DenialReason identifies which gate rejected a registration attempt.
type DenialReason string

const (
	DenialRegistrationClosed  DenialReason = "REGISTRATION_CLOSED"
	DenialAlreadyEnrolled     DenialReason = "ALREADY_ENROLLED"
	DenialAlreadyCompleted    DenialReason = "ALREADY_COMPLETED"
	DenialCourseLimitReached  DenialReason = "COURSE_LIMIT_REACHED"
	DenialPrerequisitesNotMet DenialReason = "PREREQUISITES_NOT_MET"
	DenialCourseFull          DenialReason = "COURSE_FULL"
	DenialGroupFull           DenialReason = "GROUP_FULL"
	DenialGroupNotFound       DenialReason = "GROUP_NOT_FOUND"
	DenialNotEnrolled         DenialReason = "NOT_ENROLLED"
)

// Decision is the outcome of the registration eligibility chain. Denials are
// expected business outcomes, not errors; Reason is set only when Allowed is
// false, and the context fields carry whatever the failing gate knows.
type Decision struct {
	Allowed              bool         `json:"allowed"`
	Reason               DenialReason `json:"reason,omitempty"`
	EnrollmentID         string       `json:"enrollment_id,omitempty"`
	CurrentCount         int          `json:"current_count,omitempty"`
	Limit                int          `json:"limit,omitempty"`
	MissingPrerequisites []string     `json:"missing_prerequisites,omitempty"`
}

// Admit builds an allowed decision carrying the new enrollment id.
func Admit(enrollmentID string) *Decision {
	return &Decision{Allowed: true, EnrollmentID: enrollmentID}
}

// Deny builds a denial with the given reason.
func Deny(reason DenialReason) *Decision {
	return &Decision{Allowed: false, Reason: reason}
}
