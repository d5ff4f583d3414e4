package eligibility

import (
	"time"

	"claimflow/internal/common"

	"github.com/shopspring/decimal"
)

// LevellingUpPremiumPayments answers for teachers in schools attracting the
// levelling up premium.
type LevellingUpPremiumPayments struct {
	CurrentSchoolEligible  *bool           `json:"current_school_eligible"`
	Subject                string          `json:"subject"`
	TeachingNow            *bool           `json:"teaching_now"`
	SubjectToDisciplinary  *bool           `json:"subject_to_disciplinary"`
	SubjectToActionForPoor *bool           `json:"subject_to_action_for_poor_performance"`
	AwardAmount            decimal.Decimal `json:"award_amount"`
	SubmittedAt            *time.Time      `json:"submitted_at"`
}

var levellingUpAwards = map[string]decimal.Decimal{
	"mathematics": decimal.NewFromInt(3000),
	"physics":     decimal.NewFromInt(3000),
	"chemistry":   decimal.NewFromInt(3000),
	"computing":   decimal.NewFromInt(3000),
}

func (e *LevellingUpPremiumPayments) Policy() Policy {
	return PolicyLevellingUpPremiumPayments
}

func (e *LevellingUpPremiumPayments) Ineligible() bool {
	return e.IneligibilityReason() != ""
}

func (e *LevellingUpPremiumPayments) IneligibilityReason() string {
	switch {
	case e.CurrentSchoolEligible != nil && !*e.CurrentSchoolEligible:
		return "current school does not attract the premium"
	case e.TeachingNow != nil && !*e.TeachingNow:
		return "claimant is not currently teaching"
	case e.SubjectToDisciplinary != nil && *e.SubjectToDisciplinary:
		return "claimant is subject to disciplinary action"
	case e.SubjectToActionForPoor != nil && *e.SubjectToActionForPoor:
		return "claimant is subject to formal performance action"
	case e.Subject == "none":
		return "no eligible subject is taught"
	}
	return ""
}

func (e *LevellingUpPremiumPayments) Award() decimal.Decimal {
	return e.AwardAmount
}

func (e *LevellingUpPremiumPayments) Submit(now time.Time) error {
	if e.SubmittedAt != nil {
		return common.NewError(common.CodeConflict, "eligibility already submitted", nil)
	}
	award, ok := levellingUpAwards[e.Subject]
	if !ok {
		return common.NewError(common.CodeValidation, "subject does not attract an award", nil)
	}
	e.AwardAmount = award
	e.SubmittedAt = &now
	return nil
}

func (e *LevellingUpPremiumPayments) ResetDependentAnswers() {
	e.Subject = ""
	e.TeachingNow = nil
}

func (e *LevellingUpPremiumPayments) Apply(patch Patch) {
	if patch.CurrentSchoolEligible != nil {
		e.CurrentSchoolEligible = patch.CurrentSchoolEligible
	}
	if patch.Subject != nil {
		e.Subject = *patch.Subject
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
