package domain

import "time"

// VerificationStatus tracks the parent/submitter decision on a resolution.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// Resolution records the outcome proposed for a ticket. Rejected or superseded
// resolutions are retained with Active=false.
type Resolution struct {
	ID              string
	TicketID        string
	ResolvedBy      string
	Summary         string
	ActionsTaken    string
	SubmittedAt     time.Time
	Verification    VerificationStatus
	VerifiedBy      *string
	VerifiedAt      *time.Time
	RejectionReason *string
	Active          bool
}
