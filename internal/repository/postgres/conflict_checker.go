package postgres

import (
	"context"
	"database/sql"

	"claimflow/internal/common"
	"claimflow/internal/domain/claim"
	"claimflow/internal/domain/decision"
)

// ConflictChecker blocks an approval while another claim sharing the same
// claimant details is approved but not yet paid out. Paying both would risk
// a duplicate award for the same person in the same academic year.
type ConflictChecker struct {
	db *sql.DB
}

func NewConflictChecker(db *sql.DB) *ConflictChecker {
	return &ConflictChecker{db: db}
}

func (c *ConflictChecker) BlocksPayment(ctx context.Context, target *claim.Claim) (bool, error) {
	var blocked bool
	err := c.db.QueryRowContext(ctx, `SELECT EXISTS (
		SELECT 1 FROM claims other
		WHERE other.id <> $1
		AND other.academic_year = $2
		AND (
			(other.national_insurance_number <> '' AND other.national_insurance_number = $3)
			OR (other.email <> '' AND LOWER(other.email) = LOWER($4))
		)
		AND EXISTS (SELECT 1 FROM decisions d WHERE d.claim_id = other.id AND NOT d.undone AND d.outcome = $5)
		AND NOT EXISTS (SELECT 1 FROM payments p WHERE p.claim_id = other.id)
	)`, target.ID, target.AcademicYear, target.NationalInsuranceNumber, target.Email, decision.OutcomeApproved).Scan(&blocked)
	if err != nil {
		return false, common.NewError(common.CodeInternal, "failed to check payment conflicts", err)
	}
	return blocked, nil
}
