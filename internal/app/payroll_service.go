package app

import (
	"context"
	"time"

	"claimflow/internal/common"
	"claimflow/internal/domain/claim"

	"github.com/shopspring/decimal"
)

// PayrollService exposes the payrollable set to the external exporter and
// records the payments and topups the exporter reports back. It never
// performs the export itself.
type PayrollService struct {
	repo claim.Repository
}

func NewPayrollService(repo claim.Repository) *PayrollService {
	return &PayrollService{repo: repo}
}

// ListPayrollable returns approved, QA-cleared, unpaid claims in submission
// order, oldest first.
func (s *PayrollService) ListPayrollable(ctx context.Context) ([]claim.Claim, error) {
	return s.repo.ListPayrollable(ctx)
}

// RecordPayment stores a payroll run result against a payrollable claim. A
// zero amount falls back to the eligibility record's frozen award.
func (s *PayrollService) RecordPayment(ctx context.Context, claimID common.UUID, amount decimal.Decimal, payrollRunAt time.Time) (*claim.Payment, error) {
	c, err := s.repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if !c.Payrollable() {
		return nil, common.NewError(common.CodeConflict, "claim is not payrollable", nil)
	}
	if amount.LessThan(decimal.Zero) {
		return nil, common.NewError(common.CodeValidation, "payment amount cannot be negative", nil)
	}
	if amount.IsZero() && c.Eligibility != nil {
		amount = c.Eligibility.Award()
	}
	return s.repo.AddPayment(ctx, claim.Payment{
		ClaimID:      claimID,
		Amount:       amount,
		PayrollRunAt: payrollRunAt,
	})
}

// RecordTopup stores a supplementary payment against an already paid claim.
func (s *PayrollService) RecordTopup(ctx context.Context, claimID common.UUID, amount decimal.Decimal, by common.UUID) (*claim.Topup, error) {
	c, err := s.repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if !c.Paid() {
		return nil, common.NewError(common.CodeConflict, "topups require a payrolled claim", nil)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, common.NewError(common.CodeValidation, "topup amount must be positive", nil)
	}
	return s.repo.AddTopup(ctx, claim.Topup{
		ClaimID:   claimID,
		Amount:    amount,
		CreatedBy: &by,
	})
}
