package app

import (
	"context"
	"sync"
	"time"

	"claimflow/internal/common"
	"claimflow/internal/domain/claim"
	"claimflow/internal/domain/decision"
	"claimflow/internal/domain/eligibility"
	"claimflow/internal/domain/qa"
)

type fakeClaimRepo struct {
	mu               sync.Mutex
	byID             map[common.UUID]*claim.Claim
	references       map[string]common.UUID
	submits          int
	forcedCollisions int
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{
		byID:       make(map[common.UUID]*claim.Claim),
		references: make(map[string]common.UUID),
	}
}

func cloneEligibility(record eligibility.Record) eligibility.Record {
	switch rec := record.(type) {
	case *eligibility.EarlyCareerPayments:
		copied := *rec
		return &copied
	case *eligibility.LevellingUpPremiumPayments:
		copied := *rec
		return &copied
	case *eligibility.StudentLoans:
		copied := *rec
		copied.LoanPlans = append([]string(nil), rec.LoanPlans...)
		return &copied
	}
	return record
}

func cloneClaim(c *claim.Claim) *claim.Claim {
	copied := *c
	if c.Eligibility != nil {
		copied.Eligibility = cloneEligibility(c.Eligibility)
	}
	copied.Decisions = append([]decision.Decision(nil), c.Decisions...)
	copied.Notes = append([]claim.Note(nil), c.Notes...)
	copied.Amendments = append([]claim.Amendment(nil), c.Amendments...)
	copied.Payments = append([]claim.Payment(nil), c.Payments...)
	copied.Topups = append([]claim.Topup(nil), c.Topups...)
	return &copied
}

func (r *fakeClaimRepo) Create(ctx context.Context, c *claim.Claim) (*claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := cloneClaim(c)
	stored.ID = common.NewUUID()
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.byID[stored.ID] = stored
	return cloneClaim(stored), nil
}

func (r *fakeClaimRepo) Update(ctx context.Context, c *claim.Claim) (*claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.byID[c.ID]
	if existing == nil {
		return nil, common.NewError(common.CodeNotFound, "claim not found", nil)
	}
	stored := cloneClaim(c)
	stored.UpdatedAt = time.Now().UTC()
	r.byID[c.ID] = stored
	return cloneClaim(stored), nil
}

func (r *fakeClaimRepo) GetByID(ctx context.Context, id common.UUID) (*claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.byID[id]
	if stored == nil {
		return nil, common.NewError(common.CodeNotFound, "claim not found", nil)
	}
	return cloneClaim(stored), nil
}

func (r *fakeClaimRepo) List(ctx context.Context, filter claim.ListFilter) ([]claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []claim.Claim
	for _, stored := range r.byID {
		items = append(items, *cloneClaim(stored))
	}
	return items, nil
}

func (r *fakeClaimRepo) ListByClaimant(ctx context.Context, claimantID common.UUID) ([]claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []claim.Claim
	for _, stored := range r.byID {
		if stored.ClaimantID == claimantID {
			items = append(items, *cloneClaim(stored))
		}
	}
	return items, nil
}

func (r *fakeClaimRepo) Submit(ctx context.Context, c *claim.Claim) (*claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submits++
	if r.forcedCollisions > 0 {
		r.forcedCollisions--
		return nil, common.NewError(common.CodeConflict, "reference already taken", nil)
	}
	if owner, taken := r.references[c.Reference]; taken && owner != c.ID {
		return nil, common.NewError(common.CodeConflict, "reference already taken", nil)
	}
	existing := r.byID[c.ID]
	if existing == nil {
		return nil, common.NewError(common.CodeNotFound, "claim not found", nil)
	}
	stored := cloneClaim(c)
	stored.UpdatedAt = time.Now().UTC()
	r.byID[c.ID] = stored
	r.references[c.Reference] = c.ID
	return cloneClaim(stored), nil
}

func (r *fakeClaimRepo) SetHeld(ctx context.Context, id common.UUID, held bool, note claim.Note) (*claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.byID[id]
	if stored == nil {
		return nil, common.NewError(common.CodeNotFound, "claim not found", nil)
	}
	stored.Held = held
	note.ID = common.NewUUID()
	note.CreatedAt = time.Now().UTC()
	stored.Notes = append(stored.Notes, note)
	return cloneClaim(stored), nil
}

func (r *fakeClaimRepo) AddAmendment(ctx context.Context, c *claim.Claim, amendment claim.Amendment) (*claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byID[c.ID] == nil {
		return nil, common.NewError(common.CodeNotFound, "claim not found", nil)
	}
	stored := cloneClaim(c)
	amendment.ID = common.NewUUID()
	amendment.CreatedAt = time.Now().UTC()
	stored.Amendments = append(stored.Amendments, amendment)
	r.byID[c.ID] = stored
	return cloneClaim(stored), nil
}

func (r *fakeClaimRepo) AddNote(ctx context.Context, note claim.Note) (*claim.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.byID[note.ClaimID]
	if stored == nil {
		return nil, common.NewError(common.CodeNotFound, "claim not found", nil)
	}
	note.ID = common.NewUUID()
	note.CreatedAt = time.Now().UTC()
	stored.Notes = append(stored.Notes, note)
	return &note, nil
}

func (r *fakeClaimRepo) Assign(ctx context.Context, id common.UUID, assignee *common.UUID) (*claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.byID[id]
	if stored == nil {
		return nil, common.NewError(common.CodeNotFound, "claim not found", nil)
	}
	stored.AssignedTo = assignee
	return cloneClaim(stored), nil
}

func (r *fakeClaimRepo) MarkQACompleted(ctx context.Context, id common.UUID, at time.Time) (*claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.byID[id]
	if stored == nil {
		return nil, common.NewError(common.CodeNotFound, "claim not found", nil)
	}
	stored.QACompletedAt = &at
	return cloneClaim(stored), nil
}

func (r *fakeClaimRepo) RemovePersonalData(ctx context.Context, c *claim.Claim, at time.Time) (*claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byID[c.ID] == nil {
		return nil, common.NewError(common.CodeNotFound, "claim not found", nil)
	}
	stored := cloneClaim(c)
	r.byID[c.ID] = stored
	return cloneClaim(stored), nil
}

func (r *fakeClaimRepo) ListPayrollable(ctx context.Context) ([]claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []claim.Claim
	for _, stored := range r.byID {
		if stored.Payrollable() {
			items = append(items, *cloneClaim(stored))
		}
	}
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i].SubmittedAt, items[j].SubmittedAt
			if a != nil && b != nil && b.Before(*a) {
				items[i], items[j] = items[j], items[i]
			}
		}
	}
	return items, nil
}

func (r *fakeClaimRepo) AddPayment(ctx context.Context, payment claim.Payment) (*claim.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.byID[payment.ClaimID]
	if stored == nil {
		return nil, common.NewError(common.CodeNotFound, "claim not found", nil)
	}
	payment.ID = common.NewUUID()
	payment.CreatedAt = time.Now().UTC()
	stored.Payments = append(stored.Payments, payment)
	return &payment, nil
}

func (r *fakeClaimRepo) AddTopup(ctx context.Context, topup claim.Topup) (*claim.Topup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.byID[topup.ClaimID]
	if stored == nil {
		return nil, common.NewError(common.CodeNotFound, "claim not found", nil)
	}
	topup.ID = common.NewUUID()
	topup.CreatedAt = time.Now().UTC()
	stored.Topups = append(stored.Topups, topup)
	return &topup, nil
}

// fakeDecisionRepo mirrors the transactional semantics of the postgres
// implementation: the active-decision check, the decision insert, the QA
// stats read and the qa_required write all happen under one lock.
type fakeDecisionRepo struct {
	mu     sync.Mutex
	claims *fakeClaimRepo
}

func newFakeDecisionRepo(claims *fakeClaimRepo) *fakeDecisionRepo {
	return &fakeDecisionRepo{claims: claims}
}

func (r *fakeDecisionRepo) Record(ctx context.Context, d decision.Decision, sampler qa.Sampler) (*decision.Decision, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims.mu.Lock()
	defer r.claims.mu.Unlock()

	stored := r.claims.byID[d.ClaimID]
	if stored == nil {
		return nil, false, common.NewError(common.CodeNotFound, "claim not found", nil)
	}
	now := time.Now().UTC()
	if active := stored.ActiveDecision(); active != nil {
		if active.Outcome == d.Outcome && !stored.AwaitingQA() {
			return nil, false, common.NewError(common.CodeConflict, "active decision exists", nil)
		}
		active.Undone = true
		active.UndoneAt = &now
	}

	stats := qa.Stats{}
	for _, other := range r.claims.byID {
		if other.ID == stored.ID || other.AcademicYear != stored.AcademicYear {
			continue
		}
		if other.Approved() {
			stats.Approved++
			if other.QARequired || other.QACompleted() {
				stats.Flagged++
			}
		}
	}

	d.ID = common.NewUUID()
	d.CreatedAt = now
	stored.Decisions = append([]decision.Decision{d}, stored.Decisions...)

	qaFlagged := false
	if stored.FlaggableForQA(sampler.Required(stats)) {
		stored.QARequired = true
		qaFlagged = true
	}
	return &d, qaFlagged, nil
}

func (r *fakeDecisionRepo) Undo(ctx context.Context, claimID common.UUID, by *common.UUID, notes string, at time.Time) (*decision.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims.mu.Lock()
	defer r.claims.mu.Unlock()
	stored := r.claims.byID[claimID]
	if stored == nil {
		return nil, common.NewError(common.CodeNotFound, "claim not found", nil)
	}
	for i := range stored.Decisions {
		if !stored.Decisions[i].Undone {
			stored.Decisions[i].Undone = true
			stored.Decisions[i].UndoneAt = &at
			stored.Notes = append(stored.Notes, claim.Note{
				ID:        common.NewUUID(),
				ClaimID:   claimID,
				Body:      "Decision undone: " + notes,
				Important: true,
				CreatedBy: by,
				CreatedAt: at,
			})
			undone := stored.Decisions[i]
			return &undone, nil
		}
	}
	return nil, common.NewError(common.CodeNotFound, "no active decision", nil)
}

func (r *fakeDecisionRepo) ListByClaim(ctx context.Context, claimID common.UUID) ([]decision.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims.mu.Lock()
	defer r.claims.mu.Unlock()
	stored := r.claims.byID[claimID]
	if stored == nil {
		return nil, common.NewError(common.CodeNotFound, "claim not found", nil)
	}
	return append([]decision.Decision(nil), stored.Decisions...), nil
}

func decisionFor(claimID common.UUID, approved bool) decision.Decision {
	outcome := decision.OutcomeRejected
	if approved {
		outcome = decision.OutcomeApproved
	}
	return decision.Decision{
		ID:        common.NewUUID(),
		ClaimID:   claimID,
		Outcome:   outcome,
		CreatedAt: time.Now().UTC(),
	}
}

type fakeConflictChecker struct {
	blocked map[common.UUID]bool
}

func (f *fakeConflictChecker) BlocksPayment(ctx context.Context, c *claim.Claim) (bool, error) {
	if f == nil || f.blocked == nil {
		return false, nil
	}
	return f.blocked[c.ID], nil
}

type fakeVerifier struct {
	result ContactVerification
	calls  int
}

func (f *fakeVerifier) VerifyContact(ctx context.Context, email, mobile string) (ContactVerification, error) {
	f.calls++
	return f.result, nil
}
