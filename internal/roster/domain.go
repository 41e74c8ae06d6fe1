// internal/roster/domain.go
package roster

import "errors"

var (
	ErrNotFound               = errors.New("member not found")
	ErrDuplicateStudentNumber = errors.New("student number already exists")
	ErrValidation             = errors.New("missing or invalid required field")
)

// SchoolYears is the fixed year-level enumeration. Stats buckets count only
// these four values; anything else is ignored, not rejected.
var SchoolYears = []string{"1st Year", "2nd Year", "3rd Year", "4th Year"}

// DefaultMembershipFee is the fee the portal form pre-fills.
const DefaultMembershipFee = 20

// Member is a confirmed, fee-paying registrant.
// ControlNumber and RegistrationDate are immutable after creation.
type Member struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	StudentNumber    string  `json:"studentNumber"`
	SchoolYear       string  `json:"schoolYear"`
	MembershipFee    float64 `json:"membershipFee"`
	ControlNumber    string  `json:"controlNumber"`
	RegistrationDate string  `json:"registrationDate"`
}

// RegisterInput carries the admin-entered fields for a new member.
type RegisterInput struct {
	Name          string  `json:"name"`
	StudentNumber string  `json:"studentNumber"`
	SchoolYear    string  `json:"schoolYear"`
	MembershipFee float64 `json:"membershipFee"`
}

// UpdateInput carries the editable fields of an existing member.
type UpdateInput struct {
	Name          string  `json:"name"`
	StudentNumber string  `json:"studentNumber"`
	SchoolYear    string  `json:"schoolYear"`
	MembershipFee float64 `json:"membershipFee"`
}

// Filter selects members for Query. Zero-valued fields match everything.
type Filter struct {
	Search    string
	YearLevel string
}

// Stats is the aggregate view rendered by the statistics section.
type Stats struct {
	TotalMembers int            `json:"totalMembers"`
	TotalRevenue float64        `json:"totalRevenue"`
	YearCounts   map[string]int `json:"yearCounts"`
}
