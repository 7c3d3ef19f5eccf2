package repo

import (
	"context"
	"database/sql"
	"strings"

	"dealflow/internal/domain"
)

const providerOpportunityCols = `id,intention_id,listing_reference_id,listing_kind,state,gross_commission_pct,contract_effective_on,contract_expires_on,valuation_test_value,valuation_close_value,notes,created_at,updated_at`

func scanProviderOpportunity(row interface{ Scan(...any) error }) (domain.ProviderOpportunity, error) {
	var o domain.ProviderOpportunity
	var effectiveOn, expiresOn sql.NullString
	err := row.Scan(&o.ID, &o.IntentionID, &o.ListingReferenceID, &o.ListingKind, &o.State, &o.GrossCommissionPct,
		&effectiveOn, &expiresOn, &o.ValuationTestValue, &o.ValuationCloseValue, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	if err != nil {
		return o, err
	}
	if effectiveOn.Valid {
		o.ContractEffectiveOn = &effectiveOn.String
	}
	if expiresOn.Valid {
		o.ContractExpiresOn = &expiresOn.String
	}
	return o, nil
}

func (r Repo) InsertProviderOpportunityTx(ctx context.Context, tx *sql.Tx, o domain.ProviderOpportunity) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO provider_opportunities(`+providerOpportunityCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.ID, o.IntentionID, o.ListingReferenceID, o.ListingKind, o.State, o.GrossCommissionPct,
		nullableStringPtr(o.ContractEffectiveOn), nullableStringPtr(o.ContractExpiresOn),
		o.ValuationTestValue, o.ValuationCloseValue, o.Notes, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r Repo) UpdateProviderOpportunityTx(ctx context.Context, tx *sql.Tx, o domain.ProviderOpportunity) error {
	_, err := tx.ExecContext(ctx, `UPDATE provider_opportunities SET state=?, gross_commission_pct=?, contract_effective_on=?, contract_expires_on=?, notes=?, updated_at=? WHERE id=?`,
		o.State, o.GrossCommissionPct, nullableStringPtr(o.ContractEffectiveOn), nullableStringPtr(o.ContractExpiresOn), o.Notes, o.UpdatedAt, o.ID)
	return err
}

func (r Repo) GetProviderOpportunity(ctx context.Context, id string) (domain.ProviderOpportunity, error) {
	return scanProviderOpportunity(r.DB.QueryRowContext(ctx, `SELECT `+providerOpportunityCols+` FROM provider_opportunities WHERE id=?`, id))
}

func (r Repo) GetProviderOpportunityTx(ctx context.Context, tx *sql.Tx, id string) (domain.ProviderOpportunity, error) {
	return scanProviderOpportunity(tx.QueryRowContext(ctx, `SELECT `+providerOpportunityCols+` FROM provider_opportunities WHERE id=?`, id))
}

func (r Repo) GetProviderOpportunityByIntention(ctx context.Context, intentionID string) (domain.ProviderOpportunity, error) {
	return scanProviderOpportunity(r.DB.QueryRowContext(ctx, `SELECT `+providerOpportunityCols+` FROM provider_opportunities WHERE intention_id=?`, intentionID))
}

type ProviderOpportunityFilters struct {
	State string
	Limit int
}

func (r Repo) ListProviderOpportunities(ctx context.Context, f ProviderOpportunityFilters) ([]domain.ProviderOpportunity, error) {
	var clauses []string
	var args []any
	if f.State != "" {
		clauses = append(clauses, "state=?")
		args = append(args, f.State)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + providerOpportunityCols + ` FROM provider_opportunities ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ProviderOpportunity
	for rows.Next() {
		o, err := scanProviderOpportunity(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, nil
}

const seekerOpportunityCols = `id,intention_id,state,gross_commission_pct,notes,created_at,updated_at`

func scanSeekerOpportunity(row interface{ Scan(...any) error }) (domain.SeekerOpportunity, error) {
	var o domain.SeekerOpportunity
	err := row.Scan(&o.ID, &o.IntentionID, &o.State, &o.GrossCommissionPct, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	return o, err
}

func (r Repo) InsertSeekerOpportunityTx(ctx context.Context, tx *sql.Tx, o domain.SeekerOpportunity) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO seeker_opportunities(`+seekerOpportunityCols+`) VALUES (?,?,?,?,?,?,?)`,
		o.ID, o.IntentionID, o.State, o.GrossCommissionPct, o.Notes, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r Repo) UpdateSeekerOpportunityTx(ctx context.Context, tx *sql.Tx, o domain.SeekerOpportunity) error {
	_, err := tx.ExecContext(ctx, `UPDATE seeker_opportunities SET state=?, gross_commission_pct=?, notes=?, updated_at=? WHERE id=?`,
		o.State, o.GrossCommissionPct, o.Notes, o.UpdatedAt, o.ID)
	return err
}

func (r Repo) GetSeekerOpportunity(ctx context.Context, id string) (domain.SeekerOpportunity, error) {
	return scanSeekerOpportunity(r.DB.QueryRowContext(ctx, `SELECT `+seekerOpportunityCols+` FROM seeker_opportunities WHERE id=?`, id))
}

func (r Repo) GetSeekerOpportunityTx(ctx context.Context, tx *sql.Tx, id string) (domain.SeekerOpportunity, error) {
	return scanSeekerOpportunity(tx.QueryRowContext(ctx, `SELECT `+seekerOpportunityCols+` FROM seeker_opportunities WHERE id=?`, id))
}

func (r Repo) GetSeekerOpportunityByIntention(ctx context.Context, intentionID string) (domain.SeekerOpportunity, error) {
	return scanSeekerOpportunity(r.DB.QueryRowContext(ctx, `SELECT `+seekerOpportunityCols+` FROM seeker_opportunities WHERE intention_id=?`, intentionID))
}

func (r Repo) ListSeekerOpportunities(ctx context.Context, state string, limit int) ([]domain.SeekerOpportunity, error) {
	var clauses []string
	var args []any
	if state != "" {
		clauses = append(clauses, "state=?")
		args = append(args, state)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + seekerOpportunityCols + ` FROM seeker_opportunities ` + where + ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SeekerOpportunity
	for rows.Next() {
		o, err := scanSeekerOpportunity(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, nil
}
