package app

import (
	"context"
	"strings"
	"time"

	"claimflow/internal/common"
	"claimflow/internal/domain/claim"
	"claimflow/internal/domain/eligibility"
)

const maxReferenceAttempts = 10

// amendableFields is the restricted allowlist of post-submission corrections.
var amendableFields = map[string]bool{
	"national_insurance_number": true,
	"email":                     true,
	"mobile_number":             true,
	"payroll_gender":            true,
	"date_of_birth":             true,
	"address_line_1":            true,
	"address_line_2":            true,
	"address_line_3":            true,
	"postcode":                  true,
}

type ClaimService struct {
	repo      claim.Repository
	verifier  ContactVerifier
	preferred eligibility.Policy
}

func NewClaimService(repo claim.Repository, verifier ContactVerifier, preferred eligibility.Policy) *ClaimService {
	return &ClaimService{repo: repo, verifier: verifier, preferred: preferred}
}

// StartJourney creates one draft claim per requested policy and wraps them in
// a coordinator so shared answers stay synchronized until submission.
func (s *ClaimService) StartJourney(ctx context.Context, claimantID common.UUID, policies []eligibility.Policy, year claim.AcademicYear, shared SharedAnswers) (*ClaimSet, error) {
	if len(policies) == 0 {
		return nil, common.NewError(common.CodeValidation, "at least one policy is required", nil)
	}
	if !year.Valid() {
		return nil, common.NewError(common.CodeValidation, "a valid academic year is required", nil)
	}
	claims := make([]*claim.Claim, 0, len(policies))
	for _, policy := range policies {
		record, err := eligibility.NewRecord(policy)
		if err != nil {
			return nil, err
		}
		draft := &claim.Claim{
			ClaimantID:          claimantID,
			AcademicYear:        year,
			IdentityMobileCheck: claim.MobileCheckNone,
			Eligibility:         record,
		}
		applyShared(draft, shared)
		created, err := s.repo.Create(ctx, draft)
		if err != nil {
			return nil, err
		}
		claims = append(claims, created)
	}
	return NewClaimSet(claims, s.preferred)
}

// CurrentSet loads the claimant's current journey: the claims from the most
// recent academic year the claimant has started. Claims from earlier years
// stay out of the set, so a repeated policy across years never collides.
func (s *ClaimService) CurrentSet(ctx context.Context, claimantID common.UUID) (*ClaimSet, error) {
	items, err := s.repo.ListByClaimant(ctx, claimantID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, common.NewError(common.CodeNotFound, "no claims for claimant", nil)
	}
	var latest claim.AcademicYear
	for i := range items {
		if items[i].AcademicYear > latest {
			latest = items[i].AcademicYear
		}
	}
	claims := make([]*claim.Claim, 0, len(items))
	for i := range items {
		if items[i].AcademicYear == latest {
			claims = append(claims, &items[i])
		}
	}
	return NewClaimSet(claims, s.preferred)
}

func (s *ClaimService) Get(ctx context.Context, id common.UUID) (*claim.Claim, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ClaimService) List(ctx context.Context, filter claim.ListFilter) ([]claim.Claim, error) {
	return s.repo.List(ctx, filter)
}

// UpdateShared writes the patch through the coordinator and persists every
// write target, siblings first, then the main claim.
func (s *ClaimService) UpdateShared(ctx context.Context, set *ClaimSet, patch SharedAnswers) error {
	set.ApplyShared(patch)
	for _, c := range set.writeTargets() {
		if errs := claim.Validate(c, claim.ContextDraft); len(errs) > 0 {
			return validationError("invalid claim answers", errs)
		}
	}
	return set.Save(ctx, s.repo)
}

// UpdateEligibility applies a policy-specific answer patch to that policy's
// claim only; eligibility answers are never shared across siblings.
func (s *ClaimService) UpdateEligibility(ctx context.Context, set *ClaimSet, policy eligibility.Policy, patch eligibility.Patch) error {
	if !set.ApplyEligibility(policy, patch) {
		return common.NewError(common.CodeNotFound, "no claim for policy in this journey", nil)
	}
	target := set.ClaimFor(policy)
	if _, err := s.repo.Update(ctx, target); err != nil {
		return err
	}
	return nil
}

// ResetDependentAnswers fans the eligibility reset out to every claim in the
// set and persists them.
func (s *ClaimService) ResetDependentAnswers(ctx context.Context, set *ClaimSet) error {
	set.ResetEligibilityDependentAnswers()
	for _, c := range set.Claims() {
		if _, err := s.repo.Update(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// RefreshContactVerification asks the identity provider for the current
// verification state of the journey's contact details and stores the result
// as a shared write.
func (s *ClaimService) RefreshContactVerification(ctx context.Context, set *ClaimSet) error {
	if s.verifier == nil {
		return nil
	}
	main := set.MainClaim()
	result, err := s.verifier.VerifyContact(ctx, main.Email, main.MobileNumber)
	if err != nil {
		return err
	}
	set.ApplyShared(SharedAnswers{
		EmailVerified:  &result.EmailVerified,
		MobileVerified: &result.MobileVerified,
	})
	for _, c := range set.writeTargets() {
		c.IdentityMobileCheck = result.MobileCheck
	}
	return set.Save(ctx, s.repo)
}

// Submit transitions one claim of the journey. The submission timestamp, the
// generated reference and the eligibility submit hook all persist in one
// transaction; duplicate references are retried with a fresh candidate and
// never surface to the caller.
func (s *ClaimService) Submit(ctx context.Context, id common.UUID) (*claim.Claim, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Submitted() {
		return nil, common.NewError(common.CodeConflict, "claim is already submitted", nil)
	}
	if errs := claim.Validate(c, claim.ContextSubmit); len(errs) > 0 {
		return nil, validationError("claim is not submittable", errs)
	}
	now := time.Now().UTC()
	if err := c.Eligibility.Submit(now); err != nil {
		return nil, err
	}
	c.SubmittedAt = &now
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		c.Reference = claim.NewReference()
		submitted, err := s.repo.Submit(ctx, c)
		if err == nil {
			return submitted, nil
		}
		if !common.Is(err, common.CodeConflict) {
			return nil, err
		}
	}
	return nil, common.NewError(common.CodeInternal, "could not allocate a unique claim reference", nil)
}

// Hold marks the claim held and writes the audit note in one transaction.
// Holding an already-held or decided claim changes nothing; the second
// return value tells the caller whether a state change occurred.
func (s *ClaimService) Hold(ctx context.Context, id common.UUID, reason string, by common.UUID) (*claim.Claim, bool, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if c.Held || !c.Holdable() {
		return c, false, nil
	}
	if strings.TrimSpace(reason) == "" {
		return nil, false, common.NewError(common.CodeValidation, "a hold reason is required", nil)
	}
	note := claim.Note{
		ClaimID:   c.ID,
		Body:      "Claim held: " + reason,
		Important: true,
		CreatedBy: &by,
	}
	updated, err := s.repo.SetHeld(ctx, id, true, note)
	if err != nil {
		return nil, false, err
	}
	return updated, true, nil
}

func (s *ClaimService) Unhold(ctx context.Context, id common.UUID, by common.UUID) (*claim.Claim, bool, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !c.Held {
		return c, false, nil
	}
	note := claim.Note{
		ClaimID:   c.ID,
		Body:      "Claim hold removed",
		Important: true,
		CreatedBy: &by,
	}
	updated, err := s.repo.SetHeld(ctx, id, false, note)
	if err != nil {
		return nil, false, err
	}
	return updated, true, nil
}

// Amend applies a post-submission correction restricted to the amendable
// field allowlist and records the before/after values.
func (s *ClaimService) Amend(ctx context.Context, id common.UUID, changes map[string]string, notes string, by common.UUID) (*claim.Claim, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Amendable() {
		return nil, common.NewError(common.CodeConflict, "claim cannot be amended", nil)
	}
	if len(changes) == 0 {
		return nil, common.NewError(common.CodeValidation, "no amendment changes supplied", nil)
	}
	recorded := make(map[string]claim.FieldChange, len(changes))
	for field, value := range changes {
		if !amendableFields[field] {
			return nil, common.NewValidationError("field cannot be amended", map[string]string{field: "not amendable"})
		}
		before, err := applyAmendment(c, field, value)
		if err != nil {
			return nil, err
		}
		recorded[field] = claim.FieldChange{From: before, To: value}
	}
	if errs := claim.Validate(c, claim.ContextAmend); len(errs) > 0 {
		return nil, validationError("invalid amendment", errs)
	}
	amendment := claim.Amendment{
		ClaimID:   c.ID,
		Changes:   recorded,
		Notes:     notes,
		CreatedBy: &by,
	}
	return s.repo.AddAmendment(ctx, c, amendment)
}

func (s *ClaimService) Assign(ctx context.Context, id common.UUID, assignee *common.UUID) (*claim.Claim, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Assign(ctx, id, assignee)
}

func (s *ClaimService) AddNote(ctx context.Context, id common.UUID, body string, important bool, by common.UUID) (*claim.Note, error) {
	if strings.TrimSpace(body) == "" {
		return nil, common.NewError(common.CodeValidation, "note body is required", nil)
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.AddNote(ctx, claim.Note{ClaimID: id, Body: body, Important: important, CreatedBy: &by})
}

// RemovePersonalData scrubs identity fields once a claim has reached a
// terminal outcome. The removal is irreversible; calling it twice, or on a
// claim still in flight, changes nothing.
func (s *ClaimService) RemovePersonalData(ctx context.Context, id common.UUID) (*claim.Claim, bool, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if c.PersonalDataRemoved() {
		return c, false, nil
	}
	if !c.Rejected() && !c.Paid() {
		return c, false, nil
	}
	now := time.Now().UTC()
	c.FirstName = ""
	c.MiddleName = ""
	c.Surname = ""
	c.DateOfBirth = time.Time{}
	c.NationalInsuranceNumber = ""
	c.Email = ""
	c.MobileNumber = ""
	c.AddressLine1 = ""
	c.AddressLine2 = ""
	c.AddressLine3 = ""
	c.Postcode = ""
	c.PersonalDataRemovedAt = &now
	updated, err := s.repo.RemovePersonalData(ctx, c, now)
	if err != nil {
		return nil, false, err
	}
	return updated, true, nil
}

func applyAmendment(c *claim.Claim, field, value string) (string, error) {
	switch field {
	case "national_insurance_number":
		before := c.NationalInsuranceNumber
		c.NationalInsuranceNumber = value
		return before, nil
	case "email":
		before := c.Email
		c.Email = value
		return before, nil
	case "mobile_number":
		before := c.MobileNumber
		c.MobileNumber = value
		return before, nil
	case "payroll_gender":
		before := string(c.PayrollGender)
		c.PayrollGender = claim.PayrollGender(value)
		return before, nil
	case "date_of_birth":
		parsed, err := time.Parse("2006-01-02", value)
		if err != nil {
			return "", common.NewValidationError("invalid amendment", map[string]string{"date_of_birth": "enter a date in the 2006-01-02 form"})
		}
		before := ""
		if !c.DateOfBirth.IsZero() {
			before = c.DateOfBirth.Format("2006-01-02")
		}
		c.DateOfBirth = parsed
		return before, nil
	case "address_line_1":
		before := c.AddressLine1
		c.AddressLine1 = value
		return before, nil
	case "address_line_2":
		before := c.AddressLine2
		c.AddressLine2 = value
		return before, nil
	case "address_line_3":
		before := c.AddressLine3
		c.AddressLine3 = value
		return before, nil
	case "postcode":
		before := c.Postcode
		c.Postcode = value
		return before, nil
	}
	return "", common.NewValidationError("field cannot be amended", map[string]string{field: "not amendable"})
}

func validationError(message string, errs []claim.FieldError) *common.Error {
	fields := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		if _, ok := fields[fieldErr.Field]; !ok {
			fields[fieldErr.Field] = fieldErr.Message
		}
	}
	return common.NewValidationError(message, fields)
}
