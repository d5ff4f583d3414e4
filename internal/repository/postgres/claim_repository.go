package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/lib/pq"

	"claimflow/internal/common"
	"claimflow/internal/domain/claim"
	"claimflow/internal/domain/eligibility"
)

const claimColumns = `id, claimant_id, reference, first_name, middle_name, surname, date_of_birth, national_insurance_number,
	email, email_verified, mobile_number, mobile_verified, provide_mobile_number, identity_mobile_check,
	address_line_1, address_line_2, address_line_3, postcode, payroll_gender, academic_year,
	submitted_at, held, qa_required, qa_completed_at, assigned_to, personal_data_removed_at,
	bank_validation_succeeded, policy, eligibility, created_at, updated_at`

type ClaimRepository struct {
	db *sql.DB
}

func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

func (r *ClaimRepository) Create(ctx context.Context, c *claim.Claim) (*claim.Claim, error) {
	c.ID = common.NewUUID()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	policy, payload, err := marshalEligibility(c.Eligibility)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO claims (`+claimColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31)`,
		c.ID, c.ClaimantID, c.Reference, c.FirstName, c.MiddleName, c.Surname, c.DateOfBirth, c.NationalInsuranceNumber,
		c.Email, c.EmailVerified, c.MobileNumber, c.MobileVerified, c.ProvideMobileNumber, c.IdentityMobileCheck,
		c.AddressLine1, c.AddressLine2, c.AddressLine3, c.Postcode, c.PayrollGender, c.AcademicYear,
		c.SubmittedAt, c.Held, c.QARequired, c.QACompletedAt, c.AssignedTo, c.PersonalDataRemovedAt,
		c.BankValidationSucceeded, policy, payload, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to create claim", err)
	}
	return r.GetByID(ctx, c.ID)
}

func (r *ClaimRepository) Update(ctx context.Context, c *claim.Claim) (*claim.Claim, error) {
	if err := updateClaimRow(ctx, r.db, c); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, c.ID)
}

func (r *ClaimRepository) GetByID(ctx context.Context, id common.UUID) (*claim.Claim, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, id)
	c, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "claim not found", err)
		}
		return nil, err
	}
	if err := r.loadChildren(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ClaimRepository) List(ctx context.Context, filter claim.ListFilter) ([]claim.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE 1=1`
	var args []any
	switch filter.Status {
	case claim.StatusFilterHeld:
		query += ` AND held`
	case claim.StatusFilterSubmitted:
		query += ` AND submitted_at IS NOT NULL`
	case claim.StatusFilterApproved:
		query += ` AND EXISTS (SELECT 1 FROM decisions d WHERE d.claim_id = claims.id AND NOT d.undone AND d.outcome = 'approved')`
	case claim.StatusFilterRejected:
		query += ` AND EXISTS (SELECT 1 FROM decisions d WHERE d.claim_id = claims.id AND NOT d.undone AND d.outcome = 'rejected')`
	case claim.StatusFilterAwaitingQA:
		query += ` AND qa_required AND qa_completed_at IS NULL`
	case claim.StatusFilterUndecided:
		query += ` AND submitted_at IS NOT NULL AND NOT EXISTS (SELECT 1 FROM decisions d WHERE d.claim_id = claims.id AND NOT d.undone)`
	}
	if filter.AcademicYear != "" {
		args = append(args, filter.AcademicYear)
		query += ` AND academic_year = ` + placeholder(len(args))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		query += ` AND assigned_to = ` + placeholder(len(args))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT ` + placeholder(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET ` + placeholder(len(args))
	}
	return r.queryClaims(ctx, query, args...)
}

func (r *ClaimRepository) ListByClaimant(ctx context.Context, claimantID common.UUID) ([]claim.Claim, error) {
	return r.queryClaims(ctx, `SELECT `+claimColumns+` FROM claims WHERE claimant_id = $1 ORDER BY created_at`, claimantID)
}

func (r *ClaimRepository) Submit(ctx context.Context, c *claim.Claim) (*claim.Claim, error) {
	_, payload, err := marshalEligibility(c.Eligibility)
	if err != nil {
		return nil, err
	}
	result, err := r.db.ExecContext(ctx, `UPDATE claims SET submitted_at = $1, reference = $2, eligibility = $3, updated_at = $4
		WHERE id = $5 AND submitted_at IS NULL`,
		c.SubmittedAt, c.Reference, payload, time.Now().UTC(), c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.NewError(common.CodeConflict, "claim reference already in use", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to submit claim", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return nil, common.NewError(common.CodeConflict, "claim is already submitted", sql.ErrNoRows)
	}
	return r.GetByID(ctx, c.ID)
}

func (r *ClaimRepository) SetHeld(ctx context.Context, id common.UUID, held bool, note claim.Note) (*claim.Claim, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to begin transaction", err)
	}
	defer tx.Rollback()
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `UPDATE claims SET held = $1, updated_at = $2 WHERE id = $3`, held, now, id)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to update hold flag", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return nil, common.NewError(common.CodeNotFound, "claim not found", sql.ErrNoRows)
	}
	if err := insertNote(ctx, tx, &note); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to commit hold change", err)
	}
	return r.GetByID(ctx, id)
}

func (r *ClaimRepository) AddAmendment(ctx context.Context, c *claim.Claim, amendment claim.Amendment) (*claim.Claim, error) {
	changes, err := json.Marshal(amendment.Changes)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to encode amendment changes", err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to begin transaction", err)
	}
	defer tx.Rollback()
	if err := updateClaimRow(ctx, tx, c); err != nil {
		return nil, err
	}
	amendment.ID = common.NewUUID()
	amendment.CreatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx, `INSERT INTO amendments (id, claim_id, changes, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		amendment.ID, amendment.ClaimID, changes, amendment.Notes, amendment.CreatedBy, amendment.CreatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to record amendment", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to commit amendment", err)
	}
	return r.GetByID(ctx, c.ID)
}

func (r *ClaimRepository) AddNote(ctx context.Context, note claim.Note) (*claim.Note, error) {
	if err := insertNote(ctx, r.db, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *ClaimRepository) Assign(ctx context.Context, id common.UUID, assignee *common.UUID) (*claim.Claim, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE claims SET assigned_to = $1, updated_at = $2 WHERE id = $3`, assignee, time.Now().UTC(), id)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to assign claim", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return nil, common.NewError(common.CodeNotFound, "claim not found", sql.ErrNoRows)
	}
	return r.GetByID(ctx, id)
}

func (r *ClaimRepository) MarkQACompleted(ctx context.Context, id common.UUID, at time.Time) (*claim.Claim, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE claims SET qa_completed_at = $1, updated_at = $2 WHERE id = $3 AND qa_required AND qa_completed_at IS NULL`,
		at, time.Now().UTC(), id)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to complete quality assurance", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return nil, common.NewError(common.CodeNotFound, "claim is not awaiting quality assurance", sql.ErrNoRows)
	}
	return r.GetByID(ctx, id)
}

// RemovePersonalData persists the scrubbed claim row and blanks the recorded
// before/after values of its amendments in the same transaction.
func (r *ClaimRepository) RemovePersonalData(ctx context.Context, c *claim.Claim, at time.Time) (*claim.Claim, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to begin transaction", err)
	}
	defer tx.Rollback()
	if err := updateClaimRow(ctx, tx, c); err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `UPDATE amendments SET changes = '{}', personal_data_removed_at = $1 WHERE claim_id = $2`, at, c.ID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to scrub amendments", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to commit personal data removal", err)
	}
	return r.GetByID(ctx, c.ID)
}

func (r *ClaimRepository) ListPayrollable(ctx context.Context) ([]claim.Claim, error) {
	return r.queryClaims(ctx, `SELECT `+claimColumns+` FROM claims
		WHERE payroll_gender = ANY($1)
		AND EXISTS (SELECT 1 FROM decisions d WHERE d.claim_id = claims.id AND NOT d.undone AND d.outcome = 'approved')
		AND NOT (qa_required AND qa_completed_at IS NULL)
		AND NOT EXISTS (SELECT 1 FROM payments p WHERE p.claim_id = claims.id)
		ORDER BY submitted_at`,
		pq.Array([]string{string(claim.GenderMale), string(claim.GenderFemale)}))
}

func (r *ClaimRepository) AddPayment(ctx context.Context, payment claim.Payment) (*claim.Payment, error) {
	payment.ID = common.NewUUID()
	payment.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `INSERT INTO payments (id, claim_id, amount, payroll_run_at, scheduled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		payment.ID, payment.ClaimID, payment.Amount, payment.PayrollRunAt, payment.ScheduledAt, payment.CreatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to record payment", err)
	}
	return &payment, nil
}

func (r *ClaimRepository) AddTopup(ctx context.Context, topup claim.Topup) (*claim.Topup, error) {
	topup.ID = common.NewUUID()
	topup.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `INSERT INTO topups (id, claim_id, amount, created_by, payroll_run_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		topup.ID, topup.ClaimID, topup.Amount, topup.CreatedBy, topup.PayrollRunAt, topup.CreatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to record topup", err)
	}
	return &topup, nil
}

func (r *ClaimRepository) queryClaims(ctx context.Context, query string, args ...any) ([]claim.Claim, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list claims", err)
	}
	defer rows.Close()
	var items []claim.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to read claims", err)
	}
	for i := range items {
		if err := r.loadChildren(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *ClaimRepository) loadChildren(ctx context.Context, c *claim.Claim) error {
	decisions, err := listDecisions(ctx, r.db, c.ID)
	if err != nil {
		return err
	}
	c.Decisions = decisions

	rows, err := r.db.QueryContext(ctx, `SELECT id, claim_id, body, important, created_by, created_at FROM notes WHERE claim_id = $1 ORDER BY created_at`, c.ID)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to list notes", err)
	}
	defer rows.Close()
	for rows.Next() {
		var note claim.Note
		if err := rows.Scan(&note.ID, &note.ClaimID, &note.Body, &note.Important, &note.CreatedBy, &note.CreatedAt); err != nil {
			return common.NewError(common.CodeInternal, "failed to scan note", err)
		}
		c.Notes = append(c.Notes, note)
	}

	amendmentRows, err := r.db.QueryContext(ctx, `SELECT id, claim_id, changes, notes, created_by, personal_data_removed_at, created_at FROM amendments WHERE claim_id = $1 ORDER BY created_at`, c.ID)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to list amendments", err)
	}
	defer amendmentRows.Close()
	for amendmentRows.Next() {
		var amendment claim.Amendment
		var changes []byte
		if err := amendmentRows.Scan(&amendment.ID, &amendment.ClaimID, &changes, &amendment.Notes, &amendment.CreatedBy, &amendment.PersonalDataRemovedAt, &amendment.CreatedAt); err != nil {
			return common.NewError(common.CodeInternal, "failed to scan amendment", err)
		}
		if err := json.Unmarshal(changes, &amendment.Changes); err != nil {
			return common.NewError(common.CodeInternal, "failed to decode amendment changes", err)
		}
		c.Amendments = append(c.Amendments, amendment)
	}

	paymentRows, err := r.db.QueryContext(ctx, `SELECT id, claim_id, amount, payroll_run_at, scheduled_at, created_at FROM payments WHERE claim_id = $1 ORDER BY created_at`, c.ID)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to list payments", err)
	}
	defer paymentRows.Close()
	for paymentRows.Next() {
		var payment claim.Payment
		if err := paymentRows.Scan(&payment.ID, &payment.ClaimID, &payment.Amount, &payment.PayrollRunAt, &payment.ScheduledAt, &payment.CreatedAt); err != nil {
			return common.NewError(common.CodeInternal, "failed to scan payment", err)
		}
		c.Payments = append(c.Payments, payment)
	}

	topupRows, err := r.db.QueryContext(ctx, `SELECT id, claim_id, amount, created_by, payroll_run_at, created_at FROM topups WHERE claim_id = $1 ORDER BY created_at`, c.ID)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to list topups", err)
	}
	defer topupRows.Close()
	for topupRows.Next() {
		var topup claim.Topup
		if err := topupRows.Scan(&topup.ID, &topup.ClaimID, &topup.Amount, &topup.CreatedBy, &topup.PayrollRunAt, &topup.CreatedAt); err != nil {
			return common.NewError(common.CodeInternal, "failed to scan topup", err)
		}
		c.Topups = append(c.Topups, topup)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanClaim(row rowScanner) (*claim.Claim, error) {
	var c claim.Claim
	var policy string
	var payload []byte
	err := row.Scan(&c.ID, &c.ClaimantID, &c.Reference, &c.FirstName, &c.MiddleName, &c.Surname, &c.DateOfBirth, &c.NationalInsuranceNumber,
		&c.Email, &c.EmailVerified, &c.MobileNumber, &c.MobileVerified, &c.ProvideMobileNumber, &c.IdentityMobileCheck,
		&c.AddressLine1, &c.AddressLine2, &c.AddressLine3, &c.Postcode, &c.PayrollGender, &c.AcademicYear,
		&c.SubmittedAt, &c.Held, &c.QARequired, &c.QACompletedAt, &c.AssignedTo, &c.PersonalDataRemovedAt,
		&c.BankValidationSucceeded, &policy, &payload, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, common.NewError(common.CodeInternal, "failed to scan claim", err)
	}
	record, err := unmarshalEligibility(eligibility.Policy(policy), payload)
	if err != nil {
		return nil, err
	}
	c.Eligibility = record
	return &c, nil
}

func updateClaimRow(ctx context.Context, db execer, c *claim.Claim) error {
	_, payload, err := marshalEligibility(c.Eligibility)
	if err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC()
	result, err := db.ExecContext(ctx, `UPDATE claims SET first_name = $1, middle_name = $2, surname = $3, date_of_birth = $4, national_insurance_number = $5,
		email = $6, email_verified = $7, mobile_number = $8, mobile_verified = $9, provide_mobile_number = $10, identity_mobile_check = $11,
		address_line_1 = $12, address_line_2 = $13, address_line_3 = $14, postcode = $15, payroll_gender = $16, academic_year = $17,
		assigned_to = $18, personal_data_removed_at = $19, bank_validation_succeeded = $20, eligibility = $21, updated_at = $22
		WHERE id = $23`,
		c.FirstName, c.MiddleName, c.Surname, c.DateOfBirth, c.NationalInsuranceNumber,
		c.Email, c.EmailVerified, c.MobileNumber, c.MobileVerified, c.ProvideMobileNumber, c.IdentityMobileCheck,
		c.AddressLine1, c.AddressLine2, c.AddressLine3, c.Postcode, c.PayrollGender, c.AcademicYear,
		c.AssignedTo, c.PersonalDataRemovedAt, c.BankValidationSucceeded, payload, c.UpdatedAt, c.ID)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to update claim", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return common.NewError(common.CodeNotFound, "claim not found", sql.ErrNoRows)
	}
	return nil
}

func insertNote(ctx context.Context, db execer, note *claim.Note) error {
	note.ID = common.NewUUID()
	note.CreatedAt = time.Now().UTC()
	_, err := db.ExecContext(ctx, `INSERT INTO notes (id, claim_id, body, important, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		note.ID, note.ClaimID, note.Body, note.Important, note.CreatedBy, note.CreatedAt)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to record note", err)
	}
	return nil
}

func marshalEligibility(record eligibility.Record) (string, []byte, error) {
	if record == nil {
		return "", nil, common.NewError(common.CodeInternal, "claim has no eligibility record", nil)
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return "", nil, common.NewError(common.CodeInternal, "failed to encode eligibility record", err)
	}
	return string(record.Policy()), payload, nil
}

func unmarshalEligibility(policy eligibility.Policy, payload []byte) (eligibility.Record, error) {
	record, err := eligibility.NewRecord(policy)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, record); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to decode eligibility record", err)
		}
	}
	return record, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
