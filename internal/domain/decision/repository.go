package decision

import (
	"context"
	"time"

	"claimflow/internal/common"
	"claimflow/internal/domain/qa"
)

type Repository interface {
	// Record inserts the decision and, within the same transaction, reads
	// the academic year's approval stats and sets the claim's qa_required
	// flag when the sampler demands it. Returns the stored decision and
	// whether QA was flagged. An active decision with a different outcome
	// is superseded (marked undone) in the same transaction, and so is a
	// same-outcome decision on a claim awaiting quality assurance, where
	// the fresh record is the QA second opinion. Any other same-outcome
	// duplicate surfaces as common.CodeConflict so a concurrent duplicate
	// decide fails cleanly.
	Record(ctx context.Context, d Decision, sampler qa.Sampler) (*Decision, bool, error)

	// Undo marks the claim's active decision undone and appends the audit
	// note in one transaction. The ledger row itself is never deleted.
	Undo(ctx context.Context, claimID common.UUID, by *common.UUID, notes string, at time.Time) (*Decision, error)

	ListByClaim(ctx context.Context, claimID common.UUID) ([]Decision, error)
}
