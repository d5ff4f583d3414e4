package app

import (
	"context"
	"time"

	"claimflow/internal/common"
	"claimflow/internal/domain/claim"
	"claimflow/internal/domain/eligibility"
)

// SharedAnswers is the set of journey answers every claim in a set shares.
// Nil fields are left untouched.
type SharedAnswers struct {
	FirstName               *string              `json:"first_name,omitempty"`
	MiddleName              *string              `json:"middle_name,omitempty"`
	Surname                 *string              `json:"surname,omitempty"`
	DateOfBirth             *time.Time           `json:"date_of_birth,omitempty"`
	NationalInsuranceNumber *string              `json:"national_insurance_number,omitempty"`
	Email                   *string              `json:"email,omitempty"`
	EmailVerified           *bool                `json:"email_verified,omitempty"`
	MobileNumber            *string              `json:"mobile_number,omitempty"`
	MobileVerified          *bool                `json:"mobile_verified,omitempty"`
	ProvideMobileNumber     *bool                `json:"provide_mobile_number,omitempty"`
	AddressLine1            *string              `json:"address_line_1,omitempty"`
	AddressLine2            *string              `json:"address_line_2,omitempty"`
	AddressLine3            *string              `json:"address_line_3,omitempty"`
	Postcode                *string              `json:"postcode,omitempty"`
	PayrollGender           *claim.PayrollGender `json:"payroll_gender,omitempty"`
}

// ClaimSet coordinates one claimant journey backed by several per-policy
// claim records. Shared writes fan out to every claim (siblings first, then
// the main claim) while none is submitted; after one submits, shared writes
// land on the main claim only and siblings may diverge. The forwarded
// operations are this explicit method set, nothing is forwarded dynamically.
type ClaimSet struct {
	claims    []*claim.Claim
	preferred eligibility.Policy
}

func NewClaimSet(claims []*claim.Claim, preferred eligibility.Policy) (*ClaimSet, error) {
	if len(claims) == 0 {
		return nil, common.NewError(common.CodeValidation, "a claim set needs at least one claim", nil)
	}
	seen := make(map[eligibility.Policy]bool, len(claims))
	for _, c := range claims {
		if seen[c.Policy()] {
			return nil, common.NewError(common.CodeValidation, "a claim set holds at most one claim per policy", nil)
		}
		seen[c.Policy()] = true
	}
	return &ClaimSet{claims: claims, preferred: preferred}, nil
}

func (s *ClaimSet) Claims() []*claim.Claim {
	return s.claims
}

func (s *ClaimSet) ClaimFor(policy eligibility.Policy) *claim.Claim {
	for _, c := range s.claims {
		if c.Policy() == policy {
			return c
		}
	}
	return nil
}

// MainClaim is the claim matching the preferred policy, else the first.
func (s *ClaimSet) MainClaim() *claim.Claim {
	if main := s.ClaimFor(s.preferred); main != nil {
		return main
	}
	return s.claims[0]
}

func (s *ClaimSet) AnySubmitted() bool {
	for _, c := range s.claims {
		if c.Submitted() {
			return true
		}
	}
	return false
}

// writeTargets lists the claims a shared write applies to: siblings first,
// then the main claim, while nothing has submitted; only the main claim
// afterwards. The result is order-independent for callers because every
// target receives exactly the same write.
func (s *ClaimSet) writeTargets() []*claim.Claim {
	main := s.MainClaim()
	if s.AnySubmitted() {
		return []*claim.Claim{main}
	}
	targets := make([]*claim.Claim, 0, len(s.claims))
	for _, c := range s.claims {
		if c != main {
			targets = append(targets, c)
		}
	}
	return append(targets, main)
}

// ApplyShared writes the patch to every current write target.
func (s *ClaimSet) ApplyShared(patch SharedAnswers) {
	for _, c := range s.writeTargets() {
		applyShared(c, patch)
	}
}

// ApplyEligibility is not a shared operation: it lands on the named policy's
// claim only.
func (s *ClaimSet) ApplyEligibility(policy eligibility.Policy, patch eligibility.Patch) bool {
	c := s.ClaimFor(policy)
	if c == nil || c.Eligibility == nil {
		return false
	}
	c.Eligibility.Apply(patch)
	return true
}

// ResetEligibilityDependentAnswers fans the reset out to every claim's
// eligibility record uniformly, submitted or not.
func (s *ClaimSet) ResetEligibilityDependentAnswers() {
	for _, c := range s.claims {
		if c.Eligibility != nil {
			c.Eligibility.ResetDependentAnswers()
		}
	}
}

// Save persists the current write targets through the repository, siblings
// first, then the main claim.
func (s *ClaimSet) Save(ctx context.Context, repo claim.Repository) error {
	for _, c := range s.writeTargets() {
		updated, err := repo.Update(ctx, c)
		if err != nil {
			return err
		}
		*c = *updated
	}
	return nil
}

func applyShared(c *claim.Claim, patch SharedAnswers) {
	if patch.FirstName != nil {
		c.FirstName = *patch.FirstName
	}
	if patch.MiddleName != nil {
		c.MiddleName = *patch.MiddleName
	}
	if patch.Surname != nil {
		c.Surname = *patch.Surname
	}
	if patch.DateOfBirth != nil {
		c.DateOfBirth = *patch.DateOfBirth
	}
	if patch.NationalInsuranceNumber != nil {
		c.NationalInsuranceNumber = *patch.NationalInsuranceNumber
	}
	if patch.Email != nil {
		if *patch.Email != c.Email {
			c.EmailVerified = false
		}
		c.Email = *patch.Email
	}
	if patch.EmailVerified != nil {
		c.EmailVerified = *patch.EmailVerified
	}
	if patch.MobileNumber != nil {
		if *patch.MobileNumber != c.MobileNumber {
			c.MobileVerified = false
		}
		c.MobileNumber = *patch.MobileNumber
	}
	if patch.MobileVerified != nil {
		c.MobileVerified = *patch.MobileVerified
	}
	if patch.ProvideMobileNumber != nil {
		c.ProvideMobileNumber = patch.ProvideMobileNumber
	}
	if patch.AddressLine1 != nil {
		c.AddressLine1 = *patch.AddressLine1
	}
	if patch.AddressLine2 != nil {
		c.AddressLine2 = *patch.AddressLine2
	}
	if patch.AddressLine3 != nil {
		c.AddressLine3 = *patch.AddressLine3
	}
	if patch.Postcode != nil {
		c.Postcode = *patch.Postcode
	}
	if patch.PayrollGender != nil {
		c.PayrollGender = *patch.PayrollGender
	}
}
