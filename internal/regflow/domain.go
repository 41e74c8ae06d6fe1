// internal/regflow/domain.go
package regflow

import "errors"

var (
	ErrNotFound     = errors.New("registration not found")
	ErrValidation   = errors.New("missing or invalid required field")
	ErrMissingProof = errors.New("proof of payment is required")
	ErrRateLimited  = errors.New("too many submissions, try again later")
)

// Status is the review state of a submitted registration.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Registration is a member application awaiting, or past, admin review.
// Each user holds at most one registration; resubmitting replaces it.
type Registration struct {
	ID             string  `json:"id"`
	UserID         string  `json:"userId"`
	SubmittedBy    string  `json:"submittedBy"`
	Name           string  `json:"name"`
	StudentNumber  string  `json:"studentNumber"`
	SchoolYear     string  `json:"schoolYear"`
	MembershipFee  float64 `json:"membershipFee"`
	ProofOfPayment string  `json:"proofOfPayment"`
	Status         Status  `json:"status"`
	SubmittedAt    string  `json:"submittedAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

// SubmitInput carries the applicant-entered fields.
type SubmitInput struct {
	Name           string  `json:"name"`
	StudentNumber  string  `json:"studentNumber"`
	SchoolYear     string  `json:"schoolYear"`
	MembershipFee  float64 `json:"membershipFee"`
	ProofOfPayment string  `json:"proofOfPayment"`
}
