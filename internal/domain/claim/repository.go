package claim

import (
	"context"
	"time"

	"claimflow/internal/common"
)

type ListFilter struct {
	Status       string
	AcademicYear AcademicYear
	AssignedTo   *common.UUID
	Limit        int
	Offset       int
}

const (
	StatusFilterHeld       = "held"
	StatusFilterSubmitted  = "submitted"
	StatusFilterApproved   = "approved"
	StatusFilterRejected   = "rejected"
	StatusFilterAwaitingQA = "awaiting_qa"
	StatusFilterUndecided  = "undecided"
)

type Repository interface {
	Create(ctx context.Context, c *Claim) (*Claim, error)
	Update(ctx context.Context, c *Claim) (*Claim, error)
	GetByID(ctx context.Context, id common.UUID) (*Claim, error)
	List(ctx context.Context, filter ListFilter) ([]Claim, error)
	ListByClaimant(ctx context.Context, claimantID common.UUID) ([]Claim, error)

	// Submit persists the submission timestamp, the reference and the
	// eligibility record's submit results in one transaction. A duplicate
	// reference surfaces as common.CodeConflict so the caller can retry
	// with a fresh candidate.
	Submit(ctx context.Context, c *Claim) (*Claim, error)

	// SetHeld flips the held flag and appends the audit note in one
	// transaction.
	SetHeld(ctx context.Context, id common.UUID, held bool, note Note) (*Claim, error)

	// AddAmendment persists the amended claim fields and the amendment row
	// in one transaction.
	AddAmendment(ctx context.Context, c *Claim, amendment Amendment) (*Claim, error)

	AddNote(ctx context.Context, note Note) (*Note, error)
	Assign(ctx context.Context, id common.UUID, assignee *common.UUID) (*Claim, error)
	MarkQACompleted(ctx context.Context, id common.UUID, at time.Time) (*Claim, error)
	RemovePersonalData(ctx context.Context, c *Claim, at time.Time) (*Claim, error)

	// ListPayrollable returns approved, QA-cleared, unpaid claims in FIFO
	// order by submission time.
	ListPayrollable(ctx context.Context) ([]Claim, error)

	AddPayment(ctx context.Context, payment Payment) (*Payment, error)
	AddTopup(ctx context.Context, topup Topup) (*Topup, error)
}
