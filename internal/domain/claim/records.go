package claim

import (
	"time"

	"claimflow/internal/common"

	"github.com/shopspring/decimal"
)

// Note is one entry in a claim's audit trail. Hold and unhold write
// important notes in the same transaction as the flag change.
type Note struct {
	ID        common.UUID  `json:"id"`
	ClaimID   common.UUID  `json:"claim_id"`
	Body      string       `json:"body"`
	Important bool         `json:"important"`
	CreatedBy *common.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// FieldChange records one amended field as its before and after values.
type FieldChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Amendment is a post-submission correction to a restricted field allowlist.
type Amendment struct {
	ID                    common.UUID            `json:"id"`
	ClaimID               common.UUID            `json:"claim_id"`
	Changes               map[string]FieldChange `json:"changes"`
	Notes                 string                 `json:"notes,omitempty"`
	CreatedBy             *common.UUID           `json:"created_by,omitempty"`
	PersonalDataRemovedAt *time.Time             `json:"personal_data_removed_at,omitempty"`
	CreatedAt             time.Time              `json:"created_at"`
}

// Payment is one payroll run entry paying out a claim's award.
type Payment struct {
	ID           common.UUID     `json:"id"`
	ClaimID      common.UUID     `json:"claim_id"`
	Amount       decimal.Decimal `json:"amount"`
	PayrollRunAt time.Time       `json:"payroll_run_at"`
	ScheduledAt  *time.Time      `json:"scheduled_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Topup is a supplementary payment against an already payrolled claim.
type Topup struct {
	ID           common.UUID     `json:"id"`
	ClaimID      common.UUID     `json:"claim_id"`
	Amount       decimal.Decimal `json:"amount"`
	CreatedBy    *common.UUID    `json:"created_by,omitempty"`
	PayrollRunAt *time.Time      `json:"payroll_run_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
