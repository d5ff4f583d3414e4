package eligibility

import (
	"time"

	"claimflow/internal/common"

	"github.com/shopspring/decimal"
)

type Policy string

const (
	PolicyEarlyCareerPayments        Policy = "early_career_payments"
	PolicyLevellingUpPremiumPayments Policy = "levelling_up_premium_payments"
	PolicyStudentLoans               Policy = "student_loans"
)

func (p Policy) Valid() bool {
	switch p {
	case PolicyEarlyCareerPayments, PolicyLevellingUpPremiumPayments, PolicyStudentLoans:
		return true
	}
	return false
}

// RequiresMobileCollection reports whether claimants on this policy are asked
// for a mobile number during the journey. Student loans claims are verified
// against repayment data and skip mobile collection entirely.
func (p Policy) RequiresMobileCollection() bool {
	return p != PolicyStudentLoans
}

// Record is the capability contract every per-policy eligibility variant
// satisfies. Dispatch is always by the explicit Policy tag.
type Record interface {
	Policy() Policy
	Ineligible() bool
	IneligibilityReason() string
	Award() decimal.Decimal
	Submit(now time.Time) error
	ResetDependentAnswers()
	Apply(patch Patch)
}

// Patch is the union of all variant answer fields; each variant applies only
// the fields it owns and ignores the rest.
type Patch struct {
	CurrentSchoolEligible  *bool
	Subject                *string
	InductionCompleted     *bool
	TeachingNow            *bool
	QTSAwardYear           *string
	LoanPlans              []string
	LoanRepaymentAmount    *decimal.Decimal
	EmployedAsTeacher      *bool
	EmployedDirectly       *bool
	SubjectToDisciplinary  *bool
	SubjectToActionForPoor *bool
}

func NewRecord(policy Policy) (Record, error) {
	switch policy {
	case PolicyEarlyCareerPayments:
		return &EarlyCareerPayments{}, nil
	case PolicyLevellingUpPremiumPayments:
		return &LevellingUpPremiumPayments{}, nil
	case PolicyStudentLoans:
		return &StudentLoans{}, nil
	}
	return nil, common.NewError(common.CodeValidation, "unknown policy", nil)
}
