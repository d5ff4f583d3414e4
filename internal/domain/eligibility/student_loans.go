package eligibility

import (
	"time"

	"claimflow/internal/common"

	"github.com/shopspring/decimal"
)

// StudentLoans answers for teachers reclaiming student loan repayments made
// while employed at an eligible school.
type StudentLoans struct {
	QTSAwardedAfterCutOff *bool           `json:"qts_awarded_after_cut_off"`
	CurrentSchoolEligible *bool           `json:"current_school_eligible"`
	EmployedAsTeacher     *bool           `json:"employed_as_teacher"`
	EmployedDirectly      *bool           `json:"employed_directly"`
	LoanPlans             []string        `json:"loan_plans"`
	LoanRepaymentAmount   decimal.Decimal `json:"loan_repayment_amount"`
	AwardAmount           decimal.Decimal `json:"award_amount"`
	SubmittedAt           *time.Time      `json:"submitted_at"`
}

func (e *StudentLoans) Policy() Policy {
	return PolicyStudentLoans
}

func (e *StudentLoans) Ineligible() bool {
	return e.IneligibilityReason() != ""
}

func (e *StudentLoans) IneligibilityReason() string {
	switch {
	case e.QTSAwardedAfterCutOff != nil && !*e.QTSAwardedAfterCutOff:
		return "qualified teacher status was awarded before the cut off year"
	case e.CurrentSchoolEligible != nil && !*e.CurrentSchoolEligible:
		return "current school is not eligible"
	case e.EmployedAsTeacher != nil && !*e.EmployedAsTeacher:
		return "claimant is not employed as a teacher"
	case e.EmployedDirectly != nil && !*e.EmployedDirectly:
		return "claimant is not employed directly by a school"
	case e.SubmittedAt == nil && len(e.LoanPlans) == 0 && !e.LoanRepaymentAmount.IsZero():
		return "repayments declared without a loan plan"
	}
	return ""
}

func (e *StudentLoans) Award() decimal.Decimal {
	return e.AwardAmount
}

// Submit freezes the declared repayment amount as the award. The amount the
// claimant actually repaid is the amount reimbursed.
func (e *StudentLoans) Submit(now time.Time) error {
	if e.SubmittedAt != nil {
		return common.NewError(common.CodeConflict, "eligibility already submitted", nil)
	}
	if e.LoanRepaymentAmount.LessThanOrEqual(decimal.Zero) {
		return common.NewError(common.CodeValidation, "loan repayment amount must be positive", nil)
	}
	e.AwardAmount = e.LoanRepaymentAmount
	e.SubmittedAt = &now
	return nil
}

func (e *StudentLoans) ResetDependentAnswers() {
	e.EmployedAsTeacher = nil
	e.EmployedDirectly = nil
}

func (e *StudentLoans) Apply(patch Patch) {
	if patch.QTSAwardYear != nil {
		after := *patch.QTSAwardYear == "on_or_after_cut_off_date"
		e.QTSAwardedAfterCutOff = &after
	}
	if patch.CurrentSchoolEligible != nil {
		e.CurrentSchoolEligible = patch.CurrentSchoolEligible
	}
	if patch.EmployedAsTeacher != nil {
		e.EmployedAsTeacher = patch.EmployedAsTeacher
	}
	if patch.EmployedDirectly != nil {
		e.EmployedDirectly = patch.EmployedDirectly
	}
	if patch.LoanPlans != nil {
		e.LoanPlans = append([]string(nil), patch.LoanPlans...)
	}
	if patch.LoanRepaymentAmount != nil {
		e.LoanRepaymentAmount = *patch.LoanRepaymentAmount
	}
}
