package repo

import (
	"context"
	"database/sql"
	"strings"

	"dealflow/internal/domain"
)

const providerIntentionCols = `id,owner_id,agent_id,property_id,operation_type,state,notes,withdraw_reason,valuation_id,contract_signed_on,converted_at,created_at,updated_at`

func scanProviderIntention(row interface{ Scan(...any) error }) (domain.ProviderIntention, error) {
	var p domain.ProviderIntention
	var valuationID, contractSigned, convertedAt sql.NullString
	err := row.Scan(&p.ID, &p.OwnerID, &p.AgentID, &p.PropertyID, &p.OperationType, &p.State, &p.Notes, &p.WithdrawReason,
		&valuationID, &contractSigned, &convertedAt, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if valuationID.Valid {
		p.ValuationID = &valuationID.String
	}
	if contractSigned.Valid {
		p.ContractSigned = &contractSigned.String
	}
	if convertedAt.Valid {
		p.ConvertedAt = &convertedAt.String
	}
	return p, nil
}

func (r Repo) InsertProviderIntentionTx(ctx context.Context, tx *sql.Tx, p domain.ProviderIntention) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO provider_intentions(`+providerIntentionCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.OwnerID, p.AgentID, p.PropertyID, p.OperationType, p.State, p.Notes, p.WithdrawReason,
		nullableStringPtr(p.ValuationID), nullableStringPtr(p.ContractSigned), nullableStringPtr(p.ConvertedAt), p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) UpdateProviderIntentionTx(ctx context.Context, tx *sql.Tx, p domain.ProviderIntention) error {
	_, err := tx.ExecContext(ctx, `UPDATE provider_intentions SET state=?, notes=?, withdraw_reason=?, valuation_id=?, contract_signed_on=?, converted_at=?, updated_at=? WHERE id=?`,
		p.State, p.Notes, p.WithdrawReason, nullableStringPtr(p.ValuationID), nullableStringPtr(p.ContractSigned), nullableStringPtr(p.ConvertedAt), p.UpdatedAt, p.ID)
	return err
}

func (r Repo) GetProviderIntention(ctx context.Context, id string) (domain.ProviderIntention, error) {
	return scanProviderIntention(r.DB.QueryRowContext(ctx, `SELECT `+providerIntentionCols+` FROM provider_intentions WHERE id=?`, id))
}

func (r Repo) GetProviderIntentionTx(ctx context.Context, tx *sql.Tx, id string) (domain.ProviderIntention, error) {
	return scanProviderIntention(tx.QueryRowContext(ctx, `SELECT `+providerIntentionCols+` FROM provider_intentions WHERE id=?`, id))
}

// ActiveProviderIntentionExistsTx reports whether a non-withdrawn intention
// already exists for the (agent, property) pair.
func (r Repo) ActiveProviderIntentionExistsTx(ctx context.Context, tx *sql.Tx, agentID, propertyID string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM provider_intentions WHERE agent_id=? AND property_id=? AND state<>? LIMIT 1`,
		agentID, propertyID, domain.IntentionWithdrawn).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type ProviderIntentionFilters struct {
	AgentID    string
	PropertyID string
	State      string
	Limit      int
}

func (r Repo) ListProviderIntentions(ctx context.Context, f ProviderIntentionFilters) ([]domain.ProviderIntention, error) {
	var clauses []string
	var args []any
	if f.AgentID != "" {
		clauses = append(clauses, "agent_id=?")
		args = append(args, f.AgentID)
	}
	if f.PropertyID != "" {
		clauses = append(clauses, "property_id=?")
		args = append(args, f.PropertyID)
	}
	if f.State != "" {
		clauses = append(clauses, "state=?")
		args = append(args, f.State)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + providerIntentionCols + ` FROM provider_intentions ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ProviderIntention
	for rows.Next() {
		p, err := scanProviderIntention(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

func (r Repo) InsertValuationTx(ctx context.Context, tx *sql.Tx, v domain.Valuation) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO valuations(id,intention_id,agent_id,amount,currency,test_value,close_value,valuation_date,delivered_at,notes,created_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		v.ID, v.IntentionID, v.AgentID, v.Amount, v.Currency, v.TestValue, v.CloseValue, v.ValuationDate, v.DeliveredAt, v.Notes, v.CreatedAt)
	return err
}

func scanValuation(row interface{ Scan(...any) error }) (domain.Valuation, error) {
	var v domain.Valuation
	err := row.Scan(&v.ID, &v.IntentionID, &v.AgentID, &v.Amount, &v.Currency, &v.TestValue, &v.CloseValue, &v.ValuationDate, &v.DeliveredAt, &v.Notes, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return v, ErrNotFound
	}
	return v, err
}

func (r Repo) GetValuation(ctx context.Context, id string) (domain.Valuation, error) {
	return scanValuation(r.DB.QueryRowContext(ctx, `SELECT id,intention_id,agent_id,amount,currency,test_value,close_value,valuation_date,delivered_at,notes,created_at FROM valuations WHERE id=?`, id))
}

func (r Repo) GetValuationTx(ctx context.Context, tx *sql.Tx, id string) (domain.Valuation, error) {
	return scanValuation(tx.QueryRowContext(ctx, `SELECT id,intention_id,agent_id,amount,currency,test_value,close_value,valuation_date,delivered_at,notes,created_at FROM valuations WHERE id=?`, id))
}

func (r Repo) ListValuationsByIntention(ctx context.Context, intentionID string) ([]domain.Valuation, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,intention_id,agent_id,amount,currency,test_value,close_value,valuation_date,delivered_at,notes,created_at FROM valuations WHERE intention_id=? ORDER BY created_at DESC`, intentionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Valuation
	for rows.Next() {
		v, err := scanValuation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, nil
}

const seekerIntentionCols = `id,contact_id,agent_id,operation_type,state,budget_min,budget_max,currency,desired_features,notes,created_at,updated_at`

func scanSeekerIntention(row interface{ Scan(...any) error }) (domain.SeekerIntention, error) {
	var s domain.SeekerIntention
	var budgetMin, budgetMax sql.NullFloat64
	var currency sql.NullString
	var features string
	err := row.Scan(&s.ID, &s.ContactID, &s.AgentID, &s.OperationType, &s.State, &budgetMin, &budgetMax, &currency, &features, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if budgetMin.Valid {
		s.BudgetMin = &budgetMin.Float64
	}
	if budgetMax.Valid {
		s.BudgetMax = &budgetMax.Float64
	}
	if currency.Valid {
		s.Currency = currency.String
	}
	s.DesiredFeatures = unmarshalMap(features)
	return s, nil
}

func (r Repo) InsertSeekerIntentionTx(ctx context.Context, tx *sql.Tx, s domain.SeekerIntention) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO seeker_intentions(`+seekerIntentionCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.ContactID, s.AgentID, s.OperationType, s.State, nullableFloatPtr(s.BudgetMin), nullableFloatPtr(s.BudgetMax),
		nullable(s.Currency), marshalMap(s.DesiredFeatures), s.Notes, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r Repo) UpdateSeekerIntentionTx(ctx context.Context, tx *sql.Tx, s domain.SeekerIntention) error {
	_, err := tx.ExecContext(ctx, `UPDATE seeker_intentions SET state=?, budget_min=?, budget_max=?, currency=?, desired_features=?, notes=?, updated_at=? WHERE id=?`,
		s.State, nullableFloatPtr(s.BudgetMin), nullableFloatPtr(s.BudgetMax), nullable(s.Currency), marshalMap(s.DesiredFeatures), s.Notes, s.UpdatedAt, s.ID)
	return err
}

func (r Repo) GetSeekerIntention(ctx context.Context, id string) (domain.SeekerIntention, error) {
	return scanSeekerIntention(r.DB.QueryRowContext(ctx, `SELECT `+seekerIntentionCols+` FROM seeker_intentions WHERE id=?`, id))
}

func (r Repo) GetSeekerIntentionTx(ctx context.Context, tx *sql.Tx, id string) (domain.SeekerIntention, error) {
	return scanSeekerIntention(tx.QueryRowContext(ctx, `SELECT `+seekerIntentionCols+` FROM seeker_intentions WHERE id=?`, id))
}

type SeekerIntentionFilters struct {
	AgentID   string
	ContactID string
	State     string
	Limit     int
}

func (r Repo) ListSeekerIntentions(ctx context.Context, f SeekerIntentionFilters) ([]domain.SeekerIntention, error) {
	var clauses []string
	var args []any
	if f.AgentID != "" {
		clauses = append(clauses, "agent_id=?")
		args = append(args, f.AgentID)
	}
	if f.ContactID != "" {
		clauses = append(clauses, "contact_id=?")
		args = append(args, f.ContactID)
	}
	if f.State != "" {
		clauses = append(clauses, "state=?")
		args = append(args, f.State)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + seekerIntentionCols + ` FROM seeker_intentions ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SeekerIntention
	for rows.Next() {
		s, err := scanSeekerIntention(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}
