package repo

import (
	"context"
	"database/sql"
	"strings"

	"dealflow/internal/domain"
)

const operationAgreementCols = `id,provider_opportunity_id,seeker_opportunity_id,state,initial_offered_amount,notes,agreed_at,signed_at,cancelled_at,cancellation_reason,created_at,updated_at`

func scanOperationAgreement(row interface{ Scan(...any) error }) (domain.OperationAgreement, error) {
	var a domain.OperationAgreement
	var agreedAt, signedAt, cancelledAt sql.NullString
	err := row.Scan(&a.ID, &a.ProviderOpportunityID, &a.SeekerOpportunityID, &a.State, &a.InitialOfferedAmount, &a.Notes,
		&agreedAt, &signedAt, &cancelledAt, &a.CancellationReason, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if agreedAt.Valid {
		a.AgreedAt = &agreedAt.String
	}
	if signedAt.Valid {
		a.SignedAt = &signedAt.String
	}
	if cancelledAt.Valid {
		a.CancelledAt = &cancelledAt.String
	}
	return a, nil
}

func (r Repo) InsertOperationAgreementTx(ctx context.Context, tx *sql.Tx, a domain.OperationAgreement) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO operation_agreements(`+operationAgreementCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.ProviderOpportunityID, a.SeekerOpportunityID, a.State, a.InitialOfferedAmount, a.Notes,
		nullableStringPtr(a.AgreedAt), nullableStringPtr(a.SignedAt), nullableStringPtr(a.CancelledAt), a.CancellationReason, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r Repo) UpdateOperationAgreementTx(ctx context.Context, tx *sql.Tx, a domain.OperationAgreement) error {
	_, err := tx.ExecContext(ctx, `UPDATE operation_agreements SET state=?, notes=?, agreed_at=?, signed_at=?, cancelled_at=?, cancellation_reason=?, updated_at=? WHERE id=?`,
		a.State, a.Notes, nullableStringPtr(a.AgreedAt), nullableStringPtr(a.SignedAt), nullableStringPtr(a.CancelledAt), a.CancellationReason, a.UpdatedAt, a.ID)
	return err
}

func (r Repo) GetOperationAgreement(ctx context.Context, id string) (domain.OperationAgreement, error) {
	return scanOperationAgreement(r.DB.QueryRowContext(ctx, `SELECT `+operationAgreementCols+` FROM operation_agreements WHERE id=?`, id))
}

func (r Repo) GetOperationAgreementTx(ctx context.Context, tx *sql.Tx, id string) (domain.OperationAgreement, error) {
	return scanOperationAgreement(tx.QueryRowContext(ctx, `SELECT `+operationAgreementCols+` FROM operation_agreements WHERE id=?`, id))
}

// ActiveAgreementForPairTx returns the non-cancelled agreement for the
// opportunity pair, or ErrNotFound.
func (r Repo) ActiveAgreementForPairTx(ctx context.Context, tx *sql.Tx, providerOppID, seekerOppID string) (domain.OperationAgreement, error) {
	return scanOperationAgreement(tx.QueryRowContext(ctx, `SELECT `+operationAgreementCols+` FROM operation_agreements WHERE provider_opportunity_id=? AND seeker_opportunity_id=? AND state<>?`,
		providerOppID, seekerOppID, domain.AgreementCancelled))
}

type OperationAgreementFilters struct {
	ProviderOpportunityID string
	SeekerOpportunityID   string
	State                 string
	Limit                 int
}

func (r Repo) ListOperationAgreements(ctx context.Context, f OperationAgreementFilters) ([]domain.OperationAgreement, error) {
	var clauses []string
	var args []any
	if f.ProviderOpportunityID != "" {
		clauses = append(clauses, "provider_opportunity_id=?")
		args = append(args, f.ProviderOpportunityID)
	}
	if f.SeekerOpportunityID != "" {
		clauses = append(clauses, "seeker_opportunity_id=?")
		args = append(args, f.SeekerOpportunityID)
	}
	if f.State != "" {
		clauses = append(clauses, "state=?")
		args = append(args, f.State)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + operationAgreementCols + ` FROM operation_agreements ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.OperationAgreement
	for rows.Next() {
		a, err := scanOperationAgreement(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, nil
}

const operationCols = `id,agreement_id,provider_opportunity_id,seeker_opportunity_id,state,initial_offered_amount,offered_amount,reserve_amount,reserve_deadline,reinforcement_amount,declared_deed_value,currency,occurred_at,lost_reason,notes,created_at,updated_at`

func scanOperation(row interface{ Scan(...any) error }) (domain.Operation, error) {
	var o domain.Operation
	var offered, reinforcement, deedValue sql.NullFloat64
	var occurredAt sql.NullString
	err := row.Scan(&o.ID, &o.AgreementID, &o.ProviderOpportunityID, &o.SeekerOpportunityID, &o.State,
		&o.InitialOfferedAmount, &offered, &o.ReserveAmount, &o.ReserveDeadline, &reinforcement, &deedValue,
		&o.Currency, &occurredAt, &o.LostReason, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	if err != nil {
		return o, err
	}
	if offered.Valid {
		o.OfferedAmount = &offered.Float64
	}
	if reinforcement.Valid {
		o.ReinforcementAmount = &reinforcement.Float64
	}
	if deedValue.Valid {
		o.DeclaredDeedValue = &deedValue.Float64
	}
	if occurredAt.Valid {
		o.OccurredAt = &occurredAt.String
	}
	return o, nil
}

func (r Repo) InsertOperationTx(ctx context.Context, tx *sql.Tx, o domain.Operation) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO operations(`+operationCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.ID, o.AgreementID, o.ProviderOpportunityID, o.SeekerOpportunityID, o.State,
		o.InitialOfferedAmount, nullableFloatPtr(o.OfferedAmount), o.ReserveAmount, o.ReserveDeadline,
		nullableFloatPtr(o.ReinforcementAmount), nullableFloatPtr(o.DeclaredDeedValue),
		o.Currency, nullableStringPtr(o.OccurredAt), o.LostReason, o.Notes, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r Repo) UpdateOperationTx(ctx context.Context, tx *sql.Tx, o domain.Operation) error {
	_, err := tx.ExecContext(ctx, `UPDATE operations SET state=?, offered_amount=?, reinforcement_amount=?, declared_deed_value=?, occurred_at=?, lost_reason=?, notes=?, updated_at=? WHERE id=?`,
		o.State, nullableFloatPtr(o.OfferedAmount), nullableFloatPtr(o.ReinforcementAmount), nullableFloatPtr(o.DeclaredDeedValue),
		nullableStringPtr(o.OccurredAt), o.LostReason, o.Notes, o.UpdatedAt, o.ID)
	return err
}

func (r Repo) GetOperation(ctx context.Context, id string) (domain.Operation, error) {
	return scanOperation(r.DB.QueryRowContext(ctx, `SELECT `+operationCols+` FROM operations WHERE id=?`, id))
}

func (r Repo) GetOperationTx(ctx context.Context, tx *sql.Tx, id string) (domain.Operation, error) {
	return scanOperation(tx.QueryRowContext(ctx, `SELECT `+operationCols+` FROM operations WHERE id=?`, id))
}

func (r Repo) GetOperationByAgreementTx(ctx context.Context, tx *sql.Tx, agreementID string) (domain.Operation, error) {
	return scanOperation(tx.QueryRowContext(ctx, `SELECT `+operationCols+` FROM operations WHERE agreement_id=?`, agreementID))
}

// ActiveOperationForPairTx returns the offered or reinforced operation for
// the opportunity pair, or ErrNotFound.
func (r Repo) ActiveOperationForPairTx(ctx context.Context, tx *sql.Tx, providerOppID, seekerOppID string) (domain.Operation, error) {
	return scanOperation(tx.QueryRowContext(ctx, `SELECT `+operationCols+` FROM operations WHERE provider_opportunity_id=? AND seeker_opportunity_id=? AND state IN (?,?)`,
		providerOppID, seekerOppID, domain.OperationOffered, domain.OperationReinforced))
}

// ActiveOperationForProviderTx returns the offered or reinforced operation
// on the provider opportunity, or ErrNotFound.
func (r Repo) ActiveOperationForProviderTx(ctx context.Context, tx *sql.Tx, providerOppID string) (domain.Operation, error) {
	return scanOperation(tx.QueryRowContext(ctx, `SELECT `+operationCols+` FROM operations WHERE provider_opportunity_id=? AND state IN (?,?) LIMIT 1`,
		providerOppID, domain.OperationOffered, domain.OperationReinforced))
}

// CountActiveOperationsForSeekerTx counts offered or reinforced operations
// on the seeker opportunity, excluding the given operation.
func (r Repo) CountActiveOperationsForSeekerTx(ctx context.Context, tx *sql.Tx, seekerOppID, excludeID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM operations WHERE seeker_opportunity_id=? AND id<>? AND state IN (?,?)`,
		seekerOppID, excludeID, domain.OperationOffered, domain.OperationReinforced).Scan(&n)
	return n, err
}

type OperationFilters struct {
	ProviderOpportunityID string
	SeekerOpportunityID   string
	State                 string
	Limit                 int
}

func (r Repo) ListOperations(ctx context.Context, f OperationFilters) ([]domain.Operation, error) {
	var clauses []string
	var args []any
	if f.ProviderOpportunityID != "" {
		clauses = append(clauses, "provider_opportunity_id=?")
		args = append(args, f.ProviderOpportunityID)
	}
	if f.SeekerOpportunityID != "" {
		clauses = append(clauses, "seeker_opportunity_id=?")
		args = append(args, f.SeekerOpportunityID)
	}
	if f.State != "" {
		clauses = append(clauses, "state=?")
		args = append(args, f.State)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + operationCols + ` FROM operations ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Operation
	for rows.Next() {
		o, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, nil
}
