package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"dealflow/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) InsertContact(ctx context.Context, c domain.Contact) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO contacts(id,first_name,last_name,email,phone_number,notes,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.FirstName, c.LastName, c.Email, c.PhoneNumber, c.Notes, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) InsertContactTx(ctx context.Context, tx *sql.Tx, c domain.Contact) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO contacts(id,first_name,last_name,email,phone_number,notes,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.FirstName, c.LastName, c.Email, c.PhoneNumber, c.Notes, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) GetContact(ctx context.Context, id string) (domain.Contact, error) {
	var c domain.Contact
	err := r.DB.QueryRowContext(ctx, `SELECT id,first_name,last_name,email,phone_number,notes,created_at,updated_at FROM contacts WHERE id=?`, id).
		Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,first_name,last_name,email,phone_number,notes,created_at,updated_at FROM contacts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

func (r Repo) InsertAgent(ctx context.Context, a domain.Agent) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO agents(id,first_name,last_name,email,phone_number,license_id,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		a.ID, a.FirstName, a.LastName, a.Email, a.PhoneNumber, a.LicenseID, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r Repo) InsertAgentTx(ctx context.Context, tx *sql.Tx, a domain.Agent) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO agents(id,first_name,last_name,email,phone_number,license_id,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		a.ID, a.FirstName, a.LastName, a.Email, a.PhoneNumber, a.LicenseID, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r Repo) GetAgent(ctx context.Context, id string) (domain.Agent, error) {
	var a domain.Agent
	err := r.DB.QueryRowContext(ctx, `SELECT id,first_name,last_name,email,phone_number,license_id,created_at,updated_at FROM agents WHERE id=?`, id).
		Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PhoneNumber, &a.LicenseID, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (r Repo) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,first_name,last_name,email,phone_number,license_id,created_at,updated_at FROM agents ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Agent
	for rows.Next() {
		var a domain.Agent
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PhoneNumber, &a.LicenseID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, nil
}

func (r Repo) InsertProperty(ctx context.Context, p domain.Property) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO properties(id,name,reference_code,created_at,updated_at) VALUES (?,?,?,?,?)`,
		p.ID, p.Name, p.ReferenceCode, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) InsertPropertyTx(ctx context.Context, tx *sql.Tx, p domain.Property) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO properties(id,name,reference_code,created_at,updated_at) VALUES (?,?,?,?,?)`,
		p.ID, p.Name, p.ReferenceCode, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	var p domain.Property
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,reference_code,created_at,updated_at FROM properties WHERE id=?`, id).
		Scan(&p.ID, &p.Name, &p.ReferenceCode, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) ListProperties(ctx context.Context) ([]domain.Property, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,reference_code,created_at,updated_at FROM properties ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Property
	for rows.Next() {
		var p domain.Property
		if err := rows.Scan(&p.ID, &p.Name, &p.ReferenceCode, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

func (r Repo) UpsertCurrency(ctx context.Context, c domain.Currency) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO currencies(code,name,symbol) VALUES (?,?,?)
ON CONFLICT(code) DO UPDATE SET name=excluded.name, symbol=excluded.symbol`, c.Code, c.Name, c.Symbol)
	return err
}

func (r Repo) GetCurrency(ctx context.Context, code string) (domain.Currency, error) {
	var c domain.Currency
	err := r.DB.QueryRowContext(ctx, `SELECT code,name,symbol FROM currencies WHERE code=?`, code).
		Scan(&c.Code, &c.Name, &c.Symbol)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) UpsertOperationType(ctx context.Context, t domain.OperationType) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO operation_types(code,label) VALUES (?,?)
ON CONFLICT(code) DO UPDATE SET label=excluded.label`, t.Code, t.Label)
	return err
}

func (r Repo) ListOperationTypes(ctx context.Context) ([]domain.OperationType, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT code,label FROM operation_types ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.OperationType
	for rows.Next() {
		var t domain.OperationType
		if err := rows.Scan(&t.Code, &t.Label); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

func (r Repo) InsertListingReferenceTx(ctx context.Context, tx *sql.Tx, ref domain.ListingReference) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO listing_references(id,portal,external_id,ref_code,created_at) VALUES (?,?,?,?,?)`,
		ref.ID, ref.Portal, ref.ExternalID, ref.RefCode, ref.CreatedAt)
	return err
}

func (r Repo) GetListingReference(ctx context.Context, id string) (domain.ListingReference, error) {
	var ref domain.ListingReference
	err := r.DB.QueryRowContext(ctx, `SELECT id,portal,external_id,ref_code,created_at FROM listing_references WHERE id=?`, id).
		Scan(&ref.ID, &ref.Portal, &ref.ExternalID, &ref.RefCode, &ref.CreatedAt)
	if err == sql.ErrNoRows {
		return ref, ErrNotFound
	}
	return ref, err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func marshalList(v []string) string {
	if v == nil {
		v = []string{}
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func unmarshalList(s string) []string {
	if s == "" {
		return nil
	}
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	if len(v) == 0 {
		return nil
	}
	return v
}

func marshalMap(v map[string]any) string {
	if v == nil {
		v = map[string]any{}
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func unmarshalMap(s string) map[string]any {
	if s == "" {
		return nil
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	if len(v) == 0 {
		return nil
	}
	return v
}
