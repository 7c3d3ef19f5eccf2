package repo

import (
	"context"
	"database/sql"

	"dealflow/internal/domain"
)

const marketingPackageCols = `id,opportunity_id,version,is_active,state,headline,description,price,currency,features,media_assets,created_at,updated_at`

func scanMarketingPackage(row interface{ Scan(...any) error }) (domain.MarketingPackage, error) {
	var p domain.MarketingPackage
	var isActive int
	var price sql.NullFloat64
	var currency sql.NullString
	var features, media string
	err := row.Scan(&p.ID, &p.OpportunityID, &p.Version, &isActive, &p.State, &p.Headline, &p.Description,
		&price, &currency, &features, &media, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.IsActive = isActive != 0
	if price.Valid {
		p.Price = &price.Float64
	}
	if currency.Valid {
		p.Currency = currency.String
	}
	p.Features = unmarshalList(features)
	p.MediaAssets = unmarshalList(media)
	return p, nil
}

func (r Repo) InsertMarketingPackageTx(ctx context.Context, tx *sql.Tx, p domain.MarketingPackage) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO marketing_packages(`+marketingPackageCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.OpportunityID, p.Version, boolToInt(p.IsActive), p.State, p.Headline, p.Description,
		nullableFloatPtr(p.Price), nullable(p.Currency), marshalList(p.Features), marshalList(p.MediaAssets), p.CreatedAt, p.UpdatedAt)
	return err
}

// UpdateMarketingPackageStateTx touches only the lifecycle state. Content
// fields are immutable after creation; new content means a new version.
func (r Repo) UpdateMarketingPackageStateTx(ctx context.Context, tx *sql.Tx, id, state, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE marketing_packages SET state=?, updated_at=? WHERE id=?`, state, updatedAt, id)
	return err
}

func (r Repo) SetMarketingPackageActiveTx(ctx context.Context, tx *sql.Tx, id string, active bool, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE marketing_packages SET is_active=?, updated_at=? WHERE id=?`, boolToInt(active), updatedAt, id)
	return err
}

func (r Repo) GetMarketingPackage(ctx context.Context, id string) (domain.MarketingPackage, error) {
	return scanMarketingPackage(r.DB.QueryRowContext(ctx, `SELECT `+marketingPackageCols+` FROM marketing_packages WHERE id=?`, id))
}

func (r Repo) GetMarketingPackageTx(ctx context.Context, tx *sql.Tx, id string) (domain.MarketingPackage, error) {
	return scanMarketingPackage(tx.QueryRowContext(ctx, `SELECT `+marketingPackageCols+` FROM marketing_packages WHERE id=?`, id))
}

func (r Repo) ActiveMarketingPackage(ctx context.Context, opportunityID string) (domain.MarketingPackage, error) {
	return scanMarketingPackage(r.DB.QueryRowContext(ctx, `SELECT `+marketingPackageCols+` FROM marketing_packages WHERE opportunity_id=? AND is_active=1`, opportunityID))
}

func (r Repo) ActiveMarketingPackageTx(ctx context.Context, tx *sql.Tx, opportunityID string) (domain.MarketingPackage, error) {
	return scanMarketingPackage(tx.QueryRowContext(ctx, `SELECT `+marketingPackageCols+` FROM marketing_packages WHERE opportunity_id=? AND is_active=1`, opportunityID))
}

// NextPackageVersionTx returns MAX(version)+1 for the opportunity. Versions
// are dense because creation happens under the enclosing transaction.
func (r Repo) NextPackageVersionTx(ctx context.Context, tx *sql.Tx, opportunityID string) (int, error) {
	var v int
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version),0)+1 FROM marketing_packages WHERE opportunity_id=?`, opportunityID).Scan(&v)
	return v, err
}

// ListMarketingPackages returns every revision for the opportunity,
// newest version first.
func (r Repo) ListMarketingPackages(ctx context.Context, opportunityID string) ([]domain.MarketingPackage, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+marketingPackageCols+` FROM marketing_packages WHERE opportunity_id=? ORDER BY version DESC`, opportunityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.MarketingPackage
	for rows.Next() {
		p, err := scanMarketingPackage(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}
