package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"claimflow/internal/common"
	"claimflow/internal/domain/claim"
	"claimflow/internal/domain/decision"
	"claimflow/internal/domain/qa"
)

type DecisionRepository struct {
	db *sql.DB
}

func NewDecisionRepository(db *sql.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Record inserts a decision under a row lock on the claim. An active decision
// with the same outcome fails with a conflict unless the claim is awaiting
// quality assurance, where the fresh decision is the QA second opinion and
// supersedes the flagged one; a different outcome is marked undone first,
// keeping the ledger append-only. Approvals also take a year-scoped advisory
// lock before reading the academic year's approval stats, so concurrent
// approvals of different claims see consistent sampling ratios. The partial
// unique index on decisions(claim_id) WHERE NOT undone backs the active-row
// check up at the database level.
func (r *DecisionRepository) Record(ctx context.Context, d decision.Decision, sampler qa.Sampler) (*decision.Decision, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, common.NewError(common.CodeInternal, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var academicYear string
	var qaRequired bool
	var qaCompletedAt *time.Time
	row := tx.QueryRowContext(ctx, `SELECT academic_year, qa_required, qa_completed_at FROM claims WHERE id = $1 FOR UPDATE`, d.ClaimID)
	if err := row.Scan(&academicYear, &qaRequired, &qaCompletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, common.NewError(common.CodeNotFound, "claim not found", err)
		}
		return nil, false, common.NewError(common.CodeInternal, "failed to lock claim", err)
	}

	var activeID common.UUID
	var activeOutcome decision.Outcome
	now := time.Now().UTC()
	err = tx.QueryRowContext(ctx, `SELECT id, outcome FROM decisions WHERE claim_id = $1 AND NOT undone`, d.ClaimID).Scan(&activeID, &activeOutcome)
	switch {
	case err == nil:
		awaitingQA := qaRequired && qaCompletedAt == nil
		if activeOutcome == d.Outcome && !awaitingQA {
			return nil, false, common.NewError(common.CodeConflict, "decision already recorded", nil)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE decisions SET undone = TRUE, undone_at = $1 WHERE id = $2`, now, activeID); err != nil {
			return nil, false, common.NewError(common.CodeInternal, "failed to supersede decision", err)
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, false, common.NewError(common.CodeInternal, "failed to load active decision", err)
	}

	var stats qa.Stats
	if d.Outcome == decision.OutcomeApproved {
		// Serialize approval/stat pairs per academic year; the claim row
		// lock alone does not order approvals of different claims.
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, academicYear); err != nil {
			return nil, false, common.NewError(common.CodeInternal, "failed to lock academic year", err)
		}
		err = tx.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE c.qa_required)
			FROM claims c
			JOIN decisions d ON d.claim_id = c.id AND NOT d.undone AND d.outcome = $1
			WHERE c.academic_year = $2 AND c.id <> $3`,
			decision.OutcomeApproved, academicYear, d.ClaimID).Scan(&stats.Approved, &stats.Flagged)
		if err != nil {
			return nil, false, common.NewError(common.CodeInternal, "failed to read approval stats", err)
		}
	}

	d.ID = common.NewUUID()
	d.CreatedAt = now
	d.Undone = false
	d.UndoneAt = nil
	_, err = tx.ExecContext(ctx, `INSERT INTO decisions (id, claim_id, outcome, notes, created_by, undone, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)`,
		d.ID, d.ClaimID, d.Outcome, d.Notes, d.CreatedBy, d.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, common.NewError(common.CodeConflict, "decision already recorded", err)
		}
		return nil, false, common.NewError(common.CodeInternal, "failed to record decision", err)
	}

	flagged := false
	if d.Outcome == decision.OutcomeApproved && !qaRequired && qaCompletedAt == nil && sampler.Required(stats) {
		if _, err := tx.ExecContext(ctx, `UPDATE claims SET qa_required = TRUE, updated_at = $1 WHERE id = $2`, now, d.ClaimID); err != nil {
			return nil, false, common.NewError(common.CodeInternal, "failed to flag claim for quality assurance", err)
		}
		flagged = true
	}

	if err := tx.Commit(); err != nil {
		return nil, false, common.NewError(common.CodeInternal, "failed to commit decision", err)
	}
	return &d, flagged, nil
}

// Undo marks the active decision undone and appends the audit note in one
// transaction. The decision row stays in the ledger.
func (r *DecisionRepository) Undo(ctx context.Context, claimID common.UUID, by *common.UUID, notes string, at time.Time) (*decision.Decision, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var d decision.Decision
	row := tx.QueryRowContext(ctx, `SELECT id, claim_id, outcome, notes, created_by, undone, created_at, undone_at
		FROM decisions WHERE claim_id = $1 AND NOT undone FOR UPDATE`, claimID)
	if err := row.Scan(&d.ID, &d.ClaimID, &d.Outcome, &d.Notes, &d.CreatedBy, &d.Undone, &d.CreatedAt, &d.UndoneAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "no active decision to undo", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load active decision", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE decisions SET undone = TRUE, undone_at = $1 WHERE id = $2`, at, d.ID); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to undo decision", err)
	}
	note := claim.Note{ClaimID: claimID, Body: "Decision undone: " + notes, Important: true, CreatedBy: by}
	if err := insertNote(ctx, tx, &note); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to commit undo", err)
	}
	d.Undone = true
	d.UndoneAt = &at
	return &d, nil
}

func (r *DecisionRepository) ListByClaim(ctx context.Context, claimID common.UUID) ([]decision.Decision, error) {
	return listDecisions(ctx, r.db, claimID)
}

func listDecisions(ctx context.Context, db *sql.DB, claimID common.UUID) ([]decision.Decision, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, claim_id, outcome, notes, created_by, undone, created_at, undone_at
		FROM decisions WHERE claim_id = $1 ORDER BY created_at`, claimID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list decisions", err)
	}
	defer rows.Close()
	var items []decision.Decision
	for rows.Next() {
		var d decision.Decision
		if err := rows.Scan(&d.ID, &d.ClaimID, &d.Outcome, &d.Notes, &d.CreatedBy, &d.Undone, &d.CreatedAt, &d.UndoneAt); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan decision", err)
		}
		items = append(items, d)
	}
	return items, nil
}
