package app

import (
	"context"
	"strings"
	"time"

	"claimflow/internal/common"
	"claimflow/internal/domain/claim"
	"claimflow/internal/domain/decision"
	"claimflow/internal/domain/qa"
)

type DecisionService struct {
	claims    claim.Repository
	decisions decision.Repository
	conflicts PaymentConflictChecker
	sampler   qa.Sampler
}

func NewDecisionService(claims claim.Repository, decisions decision.Repository, conflicts PaymentConflictChecker, sampler qa.Sampler) *DecisionService {
	return &DecisionService{claims: claims, decisions: decisions, conflicts: conflicts, sampler: sampler}
}

// Approvable combines the claim's own approval preconditions with the
// payment-conflict gate.
func (s *DecisionService) Approvable(ctx context.Context, c *claim.Claim) (bool, error) {
	if !c.Approvable() {
		return false, nil
	}
	if s.conflicts == nil {
		return true, nil
	}
	blocked, err := s.conflicts.BlocksPayment(ctx, c)
	if err != nil {
		return false, err
	}
	return !blocked, nil
}

// Decide records an approval or rejection. A claim whose current state does
// not allow the outcome is left untouched and reported through the changed
// flag; a concurrent decision on the same claim fails with a conflict error
// rather than silently overwriting the winner.
func (s *DecisionService) Decide(ctx context.Context, claimID common.UUID, outcome decision.Outcome, by *common.UUID, notes string) (*decision.Decision, bool, error) {
	if !outcome.Valid() {
		return nil, false, common.NewError(common.CodeValidation, "unknown decision outcome", nil)
	}
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, false, err
	}
	switch outcome {
	case decision.OutcomeApproved:
		ok, err := s.Approvable(ctx, c)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
	case decision.OutcomeRejected:
		if !c.Rejectable() || !c.Submitted() {
			return nil, false, nil
		}
	}
	stored, _, err := s.decisions.Record(ctx, decision.Decision{
		ClaimID:   claimID,
		Outcome:   outcome,
		Notes:     notes,
		CreatedBy: by,
	}, s.sampler)
	if err != nil {
		if common.Is(err, common.CodeConflict) {
			return nil, false, common.NewError(common.CodeConflict, "a decision has already been recorded for this claim", err)
		}
		return nil, false, err
	}
	return stored, true, nil
}

// UndoDecision supersedes the active decision with an undone marker. The
// ledger keeps the row; nothing is deleted. Claims without an undoable
// decision are reported as unchanged.
func (s *DecisionService) UndoDecision(ctx context.Context, claimID common.UUID, by common.UUID, notes string) (*decision.Decision, bool, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, false, common.NewError(common.CodeValidation, "a reason for undoing the decision is required", nil)
	}
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, false, err
	}
	if !c.DecisionUndoable() {
		return nil, false, nil
	}
	undone, err := s.decisions.Undo(ctx, claimID, &by, notes, time.Now().UTC())
	if err != nil {
		return nil, false, err
	}
	return undone, true, nil
}

// CompleteQA clears the audit flag once the sampled claim has been checked.
func (s *DecisionService) CompleteQA(ctx context.Context, claimID common.UUID, by common.UUID) (*claim.Claim, bool, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, false, err
	}
	if !c.AwaitingQA() {
		return c, false, nil
	}
	updated, err := s.claims.MarkQACompleted(ctx, claimID, time.Now().UTC())
	if err != nil {
		return nil, false, err
	}
	note := claim.Note{ClaimID: claimID, Body: "Quality assurance completed", Important: true, CreatedBy: &by}
	if _, err := s.claims.AddNote(ctx, note); err != nil {
		return nil, false, err
	}
	return updated, true, nil
}

func (s *DecisionService) History(ctx context.Context, claimID common.UUID) ([]decision.Decision, error) {
	return s.decisions.ListByClaim(ctx, claimID)
}
