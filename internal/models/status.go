package models

// Status is the review state shared by registrations and team memberships.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// IsDecision reports whether s is a valid review outcome (APPROVED or REJECTED).
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}
