package decision

import (
	"time"

	"claimflow/internal/common"
)

type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

func (o Outcome) Valid() bool {
	return o == OutcomeApproved || o == OutcomeRejected
}

// Decision is one entry in a claim's append-only decision ledger. Rows are
// never deleted; superseding marks the old row Undone.
type Decision struct {
	ID        common.UUID `json:"id"`
	ClaimID   common.UUID `json:"claim_id"`
	Outcome   Outcome     `json:"outcome"`
	Notes     string      `json:"notes,omitempty"`
	CreatedBy *common.UUID `json:"created_by,omitempty"`
	Undone    bool        `json:"undone"`
	CreatedAt time.Time   `json:"created_at"`
	UndoneAt  *time.Time  `json:"undone_at,omitempty"`
}

func (d Decision) Approved() bool {
	return d.Outcome == OutcomeApproved
}

func (d Decision) Automated() bool {
	return d.CreatedBy == nil
}
