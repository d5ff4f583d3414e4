package claim

import (
	"regexp"
	"strings"
)

// Context selects which validation rules apply. Draft claims tolerate
// half-answered journeys; submission demands the full rule set; amendments
// re-check only the fields operators may change.
type Context string

const (
	ContextDraft  Context = "draft"
	ContextSubmit Context = "submit"
	ContextAmend  Context = "amend"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var (
	ninoPattern     = regexp.MustCompile(`^[A-CEGHJ-PR-TW-Z][A-CEGHJ-NPR-TW-Z][0-9]{6}[A-D]$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	postcodePattern = regexp.MustCompile(`^[A-Z]{1,2}[0-9][A-Z0-9]? ?[0-9][A-Z]{2}$`)
)

// Validate runs the rules for the given context and collects field errors.
// It never panics; an ineligible answer set is reported as a field error so
// the claimant can go back and correct it.
func Validate(c *Claim, vctx Context) []FieldError {
	var errs []FieldError
	add := func(field, message string) {
		errs = append(errs, FieldError{Field: field, Message: message})
	}

	checkFormats := func() {
		if c.NationalInsuranceNumber != "" && !ninoPattern.MatchString(normalizeNINO(c.NationalInsuranceNumber)) {
			add("national_insurance_number", "enter a national insurance number in the correct format")
		}
		if c.Email != "" && !emailPattern.MatchString(c.Email) {
			add("email", "enter an email address in the correct format")
		}
		if c.Postcode != "" && !postcodePattern.MatchString(strings.ToUpper(strings.TrimSpace(c.Postcode))) {
			add("postcode", "enter a real postcode")
		}
		if c.AcademicYear != "" && !c.AcademicYear.Valid() {
			add("academic_year", "enter a valid academic year")
		}
	}

	switch vctx {
	case ContextDraft:
		checkFormats()

	case ContextSubmit:
		if c.FirstName == "" {
			add("first_name", "enter a first name")
		}
		if c.Surname == "" {
			add("surname", "enter a surname")
		}
		if c.DateOfBirth.IsZero() {
			add("date_of_birth", "enter a date of birth")
		}
		if c.NationalInsuranceNumber == "" {
			add("national_insurance_number", "enter a national insurance number")
		}
		if c.AddressLine1 == "" {
			add("address_line_1", "enter an address")
		}
		if c.Postcode == "" {
			add("postcode", "enter a postcode")
		}
		if !c.AcademicYear.Valid() {
			add("academic_year", "enter a valid academic year")
		}
		if !c.EmailSubmittable() {
			add("email", "a verified email address is required")
		}
		if !c.MobileSubmittable() {
			add("mobile_number", "a verified mobile number, or an explicit decision not to provide one, is required")
		}
		if c.Eligibility == nil {
			add("eligibility", "eligibility answers are required")
		} else if c.Eligibility.Ineligible() {
			add("eligibility", c.Eligibility.IneligibilityReason())
		}
		checkFormats()

	case ContextAmend:
		checkFormats()
		if c.PayrollGender != "" && c.PayrollGender != GenderMale && c.PayrollGender != GenderFemale && c.PayrollGender != GenderDontKnow {
			add("payroll_gender", "payroll gender is not recognised")
		}
	}

	return errs
}

func normalizeNINO(value string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(value), " ", ""))
}
