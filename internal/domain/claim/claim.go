package claim

import (
	"time"

	"claimflow/internal/common"
	"claimflow/internal/domain/decision"
	"claimflow/internal/domain/eligibility"
)

type PayrollGender string

const (
	GenderMale     PayrollGender = "male"
	GenderFemale   PayrollGender = "female"
	GenderDontKnow PayrollGender = "dont_know"
)

// MobileCheck is the identity provider's verdict on the mobile number it
// supplied with the signed-in identity.
type MobileCheck string

const (
	MobileCheckNone     MobileCheck = "none"
	MobileCheckClaimed  MobileCheck = "claimed"
	MobileCheckVerified MobileCheck = "verified"
)

// Claim is one persisted submission of a claimant's request for a specific
// payment policy. Its lifecycle states are derived predicates over stored
// fields, not a single status column.
type Claim struct {
	ID         common.UUID `json:"id"`
	ClaimantID common.UUID `json:"claimant_id"`
	Reference  string      `json:"reference,omitempty"`

	FirstName               string    `json:"first_name"`
	MiddleName              string    `json:"middle_name,omitempty"`
	Surname                 string    `json:"surname"`
	DateOfBirth             time.Time `json:"date_of_birth"`
	NationalInsuranceNumber string    `json:"national_insurance_number"`

	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`

	MobileNumber        string      `json:"mobile_number,omitempty"`
	MobileVerified      bool        `json:"mobile_verified"`
	ProvideMobileNumber *bool       `json:"provide_mobile_number,omitempty"`
	IdentityMobileCheck MobileCheck `json:"identity_mobile_check"`

	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	AddressLine3 string `json:"address_line_3,omitempty"`
	Postcode     string `json:"postcode"`

	PayrollGender PayrollGender `json:"payroll_gender,omitempty"`
	AcademicYear  AcademicYear  `json:"academic_year"`

	SubmittedAt           *time.Time   `json:"submitted_at,omitempty"`
	Held                  bool         `json:"held"`
	QARequired            bool         `json:"qa_required"`
	QACompletedAt         *time.Time   `json:"qa_completed_at,omitempty"`
	AssignedTo            *common.UUID `json:"assigned_to,omitempty"`
	PersonalDataRemovedAt *time.Time   `json:"personal_data_removed_at,omitempty"`

	// Result of the external bank detail validator, consumed as a boolean.
	// A failed or missing check routes the claim to manual review; it never
	// blocks submission.
	BankValidationSucceeded bool `json:"bank_validation_succeeded"`

	Eligibility eligibility.Record  `json:"eligibility"`
	Decisions   []decision.Decision `json:"decisions,omitempty"`
	Notes       []Note              `json:"notes,omitempty"`
	Amendments  []Amendment         `json:"amendments,omitempty"`
	Payments    []Payment           `json:"payments,omitempty"`
	Topups      []Topup             `json:"topups,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Claim) Policy() eligibility.Policy {
	if c.Eligibility == nil {
		return ""
	}
	return c.Eligibility.Policy()
}

func (c *Claim) Submitted() bool {
	return c.SubmittedAt != nil
}

func (c *Claim) PersonalDataRemoved() bool {
	return c.PersonalDataRemovedAt != nil
}

func (c *Claim) Paid() bool {
	return len(c.Payments) > 0
}

// ActiveDecision returns the single non-undone decision, if any.
func (c *Claim) ActiveDecision() *decision.Decision {
	for i := range c.Decisions {
		if !c.Decisions[i].Undone {
			return &c.Decisions[i]
		}
	}
	return nil
}

func (c *Claim) DecisionMade() bool {
	return c.ActiveDecision() != nil
}

func (c *Claim) Approved() bool {
	active := c.ActiveDecision()
	return active != nil && active.Approved()
}

func (c *Claim) Rejected() bool {
	active := c.ActiveDecision()
	return active != nil && !active.Approved()
}

func (c *Claim) AwaitingQA() bool {
	return c.QARequired && c.QACompletedAt == nil
}

func (c *Claim) QACompleted() bool {
	return c.QACompletedAt != nil
}

func (c *Claim) Holdable() bool {
	return !c.DecisionMade()
}

// Rejectable is true whenever the claim is not held; a rejection may
// supersede a prior decision.
func (c *Claim) Rejectable() bool {
	return !c.Held
}

// Approvable covers every approval precondition the claim can answer on its
// own. The payment-conflict gate lives with the decision service, which
// consults the checker alongside this predicate.
func (c *Claim) Approvable() bool {
	if !c.Submitted() || c.Held {
		return false
	}
	if c.PayrollGender != GenderMale && c.PayrollGender != GenderFemale {
		return false
	}
	return !c.DecisionMade() || c.AwaitingQA()
}

// FlaggableForQA reports whether the active approval must be flagged, given
// the sampler's verdict for the current approval population.
func (c *Claim) FlaggableForQA(samplingRequired bool) bool {
	active := c.ActiveDecision()
	if active == nil || !active.Approved() {
		return false
	}
	return samplingRequired && !c.AwaitingQA() && !c.QACompleted()
}

func (c *Claim) Amendable() bool {
	return c.Submitted() && !c.Paid() && !c.PersonalDataRemoved()
}

func (c *Claim) DecisionUndoable() bool {
	return c.DecisionMade() && !c.Paid() && !c.PersonalDataRemoved()
}

func (c *Claim) EmailSubmittable() bool {
	return c.Email != "" && c.EmailVerified
}

// MobileSubmittable applies the policy-specific mobile rule: if the policy
// collects mobile numbers, the number must have come verified from the
// identity provider, or have been explicitly provided and verified, or have
// been explicitly declined with no unverified number left behind.
func (c *Claim) MobileSubmittable() bool {
	if !c.Policy().RequiresMobileCollection() {
		return true
	}
	if c.IdentityMobileCheck == MobileCheckVerified {
		return true
	}
	if c.ProvideMobileNumber == nil {
		return false
	}
	if *c.ProvideMobileNumber {
		return c.MobileNumber != "" && c.MobileVerified
	}
	return c.MobileNumber == "" || c.MobileVerified
}

// Submittable gates Submit: full submit-context validation plus never having
// been submitted before.
func (c *Claim) Submittable() bool {
	return !c.Submitted() && len(Validate(c, ContextSubmit)) == 0
}

// Payrollable claims are approved, QA-cleared and unpaid; the payroll
// exporter consumes them in submission order.
func (c *Claim) Payrollable() bool {
	return c.Approved() && !c.AwaitingQA() && !c.Paid()
}
