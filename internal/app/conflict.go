package app

import (
	"context"

	"claimflow/internal/domain/claim"
)

// PaymentConflictChecker answers whether related claims (same claimant
// identity, overlapping policy and academic year rules) are in a state that
// must block this claim's payment release. The policy-specific rule lives
// with the implementation; Approvable consults it but never computes it.
type PaymentConflictChecker interface {
	BlocksPayment(ctx context.Context, c *claim.Claim) (bool, error)
}

// ContactVerifier is the identity/contact verification provider. It supplies
// the verified email and mobile flags Submittable consumes; absence of a
// verification never blocks saving answers, only submission.
type ContactVerifier interface {
	VerifyContact(ctx context.Context, email, mobile string) (ContactVerification, error)
}

type ContactVerification struct {
	EmailVerified  bool              `json:"email_verified"`
	MobileVerified bool              `json:"mobile_verified"`
	MobileCheck    claim.MobileCheck `json:"mobile_check"`
}
