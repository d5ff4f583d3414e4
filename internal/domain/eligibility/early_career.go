package eligibility

import (
	"time"

	"claimflow/internal/common"

	"github.com/shopspring/decimal"
)

// EarlyCareerPayments answers for teachers in the first years after induction.
type EarlyCareerPayments struct {
	CurrentSchoolEligible  *bool           `json:"current_school_eligible"`
	Subject                string          `json:"subject"`
	InductionCompleted     *bool           `json:"induction_completed"`
	TeachingNow            *bool           `json:"teaching_now"`
	SubjectToDisciplinary  *bool           `json:"subject_to_disciplinary"`
	SubjectToActionForPoor *bool           `json:"subject_to_action_for_poor_performance"`
	AwardAmount            decimal.Decimal `json:"award_amount"`
	SubmittedAt            *time.Time      `json:"submitted_at"`
}

var earlyCareerAwards = map[string]decimal.Decimal{
	"mathematics":       decimal.NewFromInt(7500),
	"physics":           decimal.NewFromInt(5000),
	"chemistry":         decimal.NewFromInt(5000),
	"foreign_languages": decimal.NewFromInt(5000),
}

func (e *EarlyCareerPayments) Policy() Policy {
	return PolicyEarlyCareerPayments
}

func (e *EarlyCareerPayments) Ineligible() bool {
	return e.IneligibilityReason() != ""
}

func (e *EarlyCareerPayments) IneligibilityReason() string {
	switch {
	case e.CurrentSchoolEligible != nil && !*e.CurrentSchoolEligible:
		return "current school is not eligible"
	case e.TeachingNow != nil && !*e.TeachingNow:
		return "claimant is not currently teaching"
	case e.InductionCompleted != nil && !*e.InductionCompleted:
		return "induction is not complete"
	case e.SubjectToDisciplinary != nil && *e.SubjectToDisciplinary:
		return "claimant is subject to disciplinary action"
	case e.SubjectToActionForPoor != nil && *e.SubjectToActionForPoor:
		return "claimant is subject to formal performance action"
	case e.Subject == "none":
		return "no eligible subject is taught"
	}
	return ""
}

func (e *EarlyCareerPayments) Award() decimal.Decimal {
	return e.AwardAmount
}

func (e *EarlyCareerPayments) Submit(now time.Time) error {
	if e.SubmittedAt != nil {
		return common.NewError(common.CodeConflict, "eligibility already submitted", nil)
	}
	award, ok := earlyCareerAwards[e.Subject]
	if !ok {
		return common.NewError(common.CodeValidation, "subject does not attract an award", nil)
	}
	e.AwardAmount = award
	e.SubmittedAt = &now
	return nil
}

// ResetDependentAnswers clears answers that depend on the school choice so a
// change of school forces the claimant back through the eligible questions.
func (e *EarlyCareerPayments) ResetDependentAnswers() {
	e.Subject = ""
	e.InductionCompleted = nil
	e.TeachingNow = nil
}

func (e *EarlyCareerPayments) Apply(patch Patch) {
	if patch.CurrentSchoolEligible != nil {
		e.CurrentSchoolEligible = patch.CurrentSchoolEligible
	}
	if patch.Subject != nil {
		e.Subject = *patch.Subject
	}
	if patch.InductionCompleted != nil {
		e.InductionCompleted = patch.InductionCompleted
	}
	if patch.TeachingNow != nil {
		e.TeachingNow = patch.TeachingNow
	}
	if patch.SubjectToDisciplinary != nil {
		e.SubjectToDisciplinary = patch.SubjectToDisciplinary
	}
	if patch.SubjectToActionForPoor != nil {
		e.SubjectToActionForPoor = patch.SubjectToActionForPoor
	}
}
