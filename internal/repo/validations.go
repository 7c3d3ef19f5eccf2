package repo

import (
	"context"
	"database/sql"

	"dealflow/internal/domain"
)

const validationCols = `id,opportunity_id,state,presented_at,validated_at,notes,created_at,updated_at`

func scanValidation(row interface{ Scan(...any) error }) (domain.Validation, error) {
	var v domain.Validation
	var presentedAt, validatedAt sql.NullString
	err := row.Scan(&v.ID, &v.OpportunityID, &v.State, &presentedAt, &validatedAt, &v.Notes, &v.CreatedAt, &v.UpdatedAt)
	if err == sql.ErrNoRows {
		return v, ErrNotFound
	}
	if err != nil {
		return v, err
	}
	if presentedAt.Valid {
		v.PresentedAt = &presentedAt.String
	}
	if validatedAt.Valid {
		v.ValidatedAt = &validatedAt.String
	}
	return v, nil
}

func (r Repo) InsertValidationTx(ctx context.Context, tx *sql.Tx, v domain.Validation) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO validations(`+validationCols+`) VALUES (?,?,?,?,?,?,?,?)`,
		v.ID, v.OpportunityID, v.State, nullableStringPtr(v.PresentedAt), nullableStringPtr(v.ValidatedAt), v.Notes, v.CreatedAt, v.UpdatedAt)
	return err
}

func (r Repo) UpdateValidationTx(ctx context.Context, tx *sql.Tx, v domain.Validation) error {
	_, err := tx.ExecContext(ctx, `UPDATE validations SET state=?, presented_at=?, validated_at=?, notes=?, updated_at=? WHERE id=?`,
		v.State, nullableStringPtr(v.PresentedAt), nullableStringPtr(v.ValidatedAt), v.Notes, v.UpdatedAt, v.ID)
	return err
}

func (r Repo) GetValidation(ctx context.Context, id string) (domain.Validation, error) {
	return scanValidation(r.DB.QueryRowContext(ctx, `SELECT `+validationCols+` FROM validations WHERE id=?`, id))
}

func (r Repo) GetValidationTx(ctx context.Context, tx *sql.Tx, id string) (domain.Validation, error) {
	return scanValidation(tx.QueryRowContext(ctx, `SELECT `+validationCols+` FROM validations WHERE id=?`, id))
}

func (r Repo) GetValidationByOpportunity(ctx context.Context, opportunityID string) (domain.Validation, error) {
	return scanValidation(r.DB.QueryRowContext(ctx, `SELECT `+validationCols+` FROM validations WHERE opportunity_id=?`, opportunityID))
}

func (r Repo) GetValidationByOpportunityTx(ctx context.Context, tx *sql.Tx, opportunityID string) (domain.Validation, error) {
	return scanValidation(tx.QueryRowContext(ctx, `SELECT `+validationCols+` FROM validations WHERE opportunity_id=?`, opportunityID))
}

func (r Repo) UpsertDocumentType(ctx context.Context, t domain.ValidationDocumentType) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO validation_document_types(code,label,required,operation_type,accepted_formats) VALUES (?,?,?,?,?)
ON CONFLICT(code) DO UPDATE SET label=excluded.label, required=excluded.required, operation_type=excluded.operation_type, accepted_formats=excluded.accepted_formats`,
		t.Code, t.Label, boolToInt(t.Required), nullableStringPtr(t.OperationType), marshalList(t.AcceptedFormats))
	return err
}

func scanDocumentType(row interface{ Scan(...any) error }) (domain.ValidationDocumentType, error) {
	var t domain.ValidationDocumentType
	var required int
	var opType sql.NullString
	var formats string
	err := row.Scan(&t.Code, &t.Label, &required, &opType, &formats)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Required = required != 0
	if opType.Valid {
		t.OperationType = &opType.String
	}
	t.AcceptedFormats = unmarshalList(formats)
	return t, nil
}

func (r Repo) GetDocumentType(ctx context.Context, code string) (domain.ValidationDocumentType, error) {
	return scanDocumentType(r.DB.QueryRowContext(ctx, `SELECT code,label,required,operation_type,accepted_formats FROM validation_document_types WHERE code=?`, code))
}

func (r Repo) GetDocumentTypeTx(ctx context.Context, tx *sql.Tx, code string) (domain.ValidationDocumentType, error) {
	return scanDocumentType(tx.QueryRowContext(ctx, `SELECT code,label,required,operation_type,accepted_formats FROM validation_document_types WHERE code=?`, code))
}

// ListDocumentTypes returns the catalog entries applying to an operation
// type. Entries with no operation type apply to every operation type.
func (r Repo) ListDocumentTypes(ctx context.Context, operationType string) ([]domain.ValidationDocumentType, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT code,label,required,operation_type,accepted_formats FROM validation_document_types WHERE operation_type IS NULL OR operation_type=? ORDER BY code`, operationType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDocumentTypes(rows)
}

func (r Repo) ListDocumentTypesTx(ctx context.Context, tx *sql.Tx, operationType string) ([]domain.ValidationDocumentType, error) {
	rows, err := tx.QueryContext(ctx, `SELECT code,label,required,operation_type,accepted_formats FROM validation_document_types WHERE operation_type IS NULL OR operation_type=? ORDER BY code`, operationType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDocumentTypes(rows)
}

func collectDocumentTypes(rows *sql.Rows) ([]domain.ValidationDocumentType, error) {
	var res []domain.ValidationDocumentType
	for rows.Next() {
		t, err := scanDocumentType(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

const validationDocumentCols = `id,validation_id,type_code,file_name,observations,status,reviewer_note,uploaded_by,decided_by,decided_at,created_at,updated_at`

func scanValidationDocument(row interface{ Scan(...any) error }) (domain.ValidationDocument, error) {
	var d domain.ValidationDocument
	var typeCode, decidedAt sql.NullString
	err := row.Scan(&d.ID, &d.ValidationID, &typeCode, &d.FileName, &d.Observations, &d.Status, &d.ReviewerNote,
		&d.UploadedBy, &d.DecidedBy, &decidedAt, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	if typeCode.Valid {
		d.TypeCode = &typeCode.String
	}
	if decidedAt.Valid {
		d.DecidedAt = &decidedAt.String
	}
	return d, nil
}

func (r Repo) InsertValidationDocumentTx(ctx context.Context, tx *sql.Tx, d domain.ValidationDocument) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO validation_documents(`+validationDocumentCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.ValidationID, nullableStringPtr(d.TypeCode), d.FileName, d.Observations, d.Status, d.ReviewerNote,
		d.UploadedBy, d.DecidedBy, nullableStringPtr(d.DecidedAt), d.CreatedAt, d.UpdatedAt)
	return err
}

func (r Repo) UpdateValidationDocumentTx(ctx context.Context, tx *sql.Tx, d domain.ValidationDocument) error {
	_, err := tx.ExecContext(ctx, `UPDATE validation_documents SET status=?, observations=?, reviewer_note=?, decided_by=?, decided_at=?, updated_at=? WHERE id=?`,
		d.Status, d.Observations, d.ReviewerNote, d.DecidedBy, nullableStringPtr(d.DecidedAt), d.UpdatedAt, d.ID)
	return err
}

func (r Repo) GetValidationDocument(ctx context.Context, id string) (domain.ValidationDocument, error) {
	return scanValidationDocument(r.DB.QueryRowContext(ctx, `SELECT `+validationDocumentCols+` FROM validation_documents WHERE id=?`, id))
}

func (r Repo) GetValidationDocumentTx(ctx context.Context, tx *sql.Tx, id string) (domain.ValidationDocument, error) {
	return scanValidationDocument(tx.QueryRowContext(ctx, `SELECT `+validationDocumentCols+` FROM validation_documents WHERE id=?`, id))
}

// ListValidationDocuments returns uploads in insertion order. Timestamps
// have second resolution, so rowid is the only reliable tiebreak when the
// latest upload per type decides the dossier status.
func (r Repo) ListValidationDocuments(ctx context.Context, validationID string) ([]domain.ValidationDocument, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+validationDocumentCols+` FROM validation_documents WHERE validation_id=? ORDER BY rowid ASC`, validationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectValidationDocuments(rows)
}

func (r Repo) ListValidationDocumentsTx(ctx context.Context, tx *sql.Tx, validationID string) ([]domain.ValidationDocument, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+validationDocumentCols+` FROM validation_documents WHERE validation_id=? ORDER BY rowid ASC`, validationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectValidationDocuments(rows)
}

func collectValidationDocuments(rows *sql.Rows) ([]domain.ValidationDocument, error) {
	var res []domain.ValidationDocument
	for rows.Next() {
		d, err := scanValidationDocument(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, nil
}
