package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"dealflow/internal/domain"
	"dealflow/internal/fsm"
)

// UploadDocumentOptions are parameters for attaching a typed document to a
// validation.
type UploadDocumentOptions struct {
	ValidationID string
	TypeCode     string
	FileName     string
	Observations string
	ActorID      string
}

// UploadValidationDocument attaches a typed document during the open window
// (preparing or presented). The file extension must be on the document
// type's accepted list; a type with no accepted formats blocks the upload.
func (e Engine) UploadValidationDocument(ctx context.Context, opts UploadDocumentOptions) (domain.ValidationDocument, error) {
	if opts.TypeCode == "" {
		return domain.ValidationDocument{}, errors.New("type_code is required")
	}
	if opts.FileName == "" {
		return domain.ValidationDocument{}, errors.New("file_name is required")
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.ValidationDocument{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, opts.ActorID, PermDocumentUpload); err != nil {
		return domain.ValidationDocument{}, err
	}
	val, err := e.Repo.GetValidationTx(ctx, tx, opts.ValidationID)
	if err != nil {
		return domain.ValidationDocument{}, err
	}
	if val.State == domain.ValidationAccepted {
		return domain.ValidationDocument{}, &ValidationClosedError{ValidationID: val.ID, State: val.State}
	}
	t, err := e.Repo.GetDocumentTypeTx(ctx, tx, opts.TypeCode)
	if err != nil {
		return domain.ValidationDocument{}, err
	}
	if len(t.AcceptedFormats) == 0 {
		return domain.ValidationDocument{}, &MisconfiguredDocumentTypeError{TypeCode: t.Code}
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(opts.FileName), "."))
	if !formatAccepted(t.AcceptedFormats, ext) {
		return domain.ValidationDocument{}, &GuardError{
			Rule:    "document_format",
			Message: fmt.Sprintf("file extension %q not accepted for document type %s", ext, t.Code),
		}
	}
	d := e.newDocument(val.ID, &t.Code, opts.FileName, opts.Observations, opts.ActorID)
	if err := e.Repo.InsertValidationDocumentTx(ctx, tx, d); err != nil {
		return d, err
	}
	if err := tx.Commit(); err != nil {
		return d, err
	}
	return d, nil
}

// UploadAdditionalDocument attaches a free-form document. It shares the open
// window but never counts toward the required set.
func (e Engine) UploadAdditionalDocument(ctx context.Context, opts UploadDocumentOptions) (domain.ValidationDocument, error) {
	if opts.FileName == "" {
		return domain.ValidationDocument{}, errors.New("file_name is required")
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.ValidationDocument{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, opts.ActorID, PermDocumentUpload); err != nil {
		return domain.ValidationDocument{}, err
	}
	val, err := e.Repo.GetValidationTx(ctx, tx, opts.ValidationID)
	if err != nil {
		return domain.ValidationDocument{}, err
	}
	if val.State == domain.ValidationAccepted {
		return domain.ValidationDocument{}, &ValidationClosedError{ValidationID: val.ID, State: val.State}
	}
	d := e.newDocument(val.ID, nil, opts.FileName, opts.Observations, opts.ActorID)
	if err := e.Repo.InsertValidationDocumentTx(ctx, tx, d); err != nil {
		return d, err
	}
	if err := tx.Commit(); err != nil {
		return d, err
	}
	return d, nil
}

func (e Engine) newDocument(validationID string, typeCode *string, fileName, observations, actorID string) domain.ValidationDocument {
	now := e.timestamp()
	return domain.ValidationDocument{
		ID:           uuid.New().String(),
		ValidationID: validationID,
		TypeCode:     typeCode,
		FileName:     fileName,
		Observations: observations,
		Status:       domain.DocumentPending,
		UploadedBy:   actorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func formatAccepted(formats []string, ext string) bool {
	for _, f := range formats {
		if strings.EqualFold(strings.TrimPrefix(f, "."), ext) {
			return true
		}
	}
	return false
}

// ReviewDocumentOptions carry one accept/reject decision.
type ReviewDocumentOptions struct {
	DocumentID string
	Decision   string
	Comment    string
	ActorID    string
}

// ReviewValidationDocument records the reviewer decision on a pending
// document.
func (e Engine) ReviewValidationDocument(ctx context.Context, opts ReviewDocumentOptions) (domain.ValidationDocument, error) {
	var transition string
	switch opts.Decision {
	case domain.DocumentAccepted:
		transition = fsm.Accept
	case domain.DocumentRejected:
		transition = fsm.Reject
	default:
		return domain.ValidationDocument{}, errors.New("decision must be accepted or rejected")
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.ValidationDocument{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, opts.ActorID, PermDocumentReview); err != nil {
		return domain.ValidationDocument{}, err
	}
	d, err := e.Repo.GetValidationDocumentTx(ctx, tx, opts.DocumentID)
	if err != nil {
		return d, err
	}
	val, err := e.Repo.GetValidationTx(ctx, tx, d.ValidationID)
	if err != nil {
		return d, err
	}
	if val.State == domain.ValidationAccepted {
		return d, &ValidationClosedError{ValidationID: val.ID, State: val.State}
	}
	to, err := e.fire(ctx, tx, fsm.ValidationDocument, d.ID, transition, d.Status, opts.ActorID)
	if err != nil {
		return d, err
	}
	now := e.timestamp()
	d.Status = to
	d.ReviewerNote = opts.Comment
	d.DecidedBy = opts.ActorID
	d.DecidedAt = &now
	d.UpdatedAt = now
	if err := e.Repo.UpdateValidationDocumentTx(ctx, tx, d); err != nil {
		return d, err
	}
	if err := tx.Commit(); err != nil {
		return d, err
	}
	return d, nil
}

// requiredDocumentsTx summarizes the required document types for the
// validation's operation type against the latest upload per type.
func (e Engine) requiredDocumentsTx(ctx context.Context, tx *sql.Tx, val domain.Validation, operationType string) ([]domain.RequiredDocumentStatus, error) {
	types, err := e.Repo.ListDocumentTypesTx(ctx, tx, operationType)
	if err != nil {
		return nil, err
	}
	docs, err := e.Repo.ListValidationDocumentsTx(ctx, tx, val.ID)
	if err != nil {
		return nil, err
	}
	return summarizeRequired(types, docs), nil
}

func summarizeRequired(types []domain.ValidationDocumentType, docs []domain.ValidationDocument) []domain.RequiredDocumentStatus {
	latest := map[string]domain.ValidationDocument{}
	for _, d := range docs {
		if d.TypeCode == nil {
			continue
		}
		latest[*d.TypeCode] = d
	}
	var res []domain.RequiredDocumentStatus
	for _, t := range types {
		if !t.Required {
			continue
		}
		s := domain.RequiredDocumentStatus{Code: t.Code, Label: t.Label, Status: "missing"}
		if d, ok := latest[t.Code]; ok {
			doc := d
			s.Status = d.Status
			s.Document = &doc
		}
		res = append(res, s)
	}
	return res
}

// RequiredDocuments reports the readiness of each required document type.
func (e Engine) RequiredDocuments(ctx context.Context, validationID string) ([]domain.RequiredDocumentStatus, error) {
	val, err := e.Repo.GetValidation(ctx, validationID)
	if err != nil {
		return nil, err
	}
	opp, err := e.Repo.GetProviderOpportunity(ctx, val.OpportunityID)
	if err != nil {
		return nil, err
	}
	intent, err := e.Repo.GetProviderIntention(ctx, opp.IntentionID)
	if err != nil {
		return nil, err
	}
	types, err := e.Repo.ListDocumentTypes(ctx, intent.OperationType)
	if err != nil {
		return nil, err
	}
	docs, err := e.Repo.ListValidationDocuments(ctx, validationID)
	if err != nil {
		return nil, err
	}
	return summarizeRequired(types, docs), nil
}

func (e Engine) validationContextTx(ctx context.Context, tx *sql.Tx, validationID string) (domain.Validation, domain.ProviderOpportunity, string, error) {
	val, err := e.Repo.GetValidationTx(ctx, tx, validationID)
	if err != nil {
		return val, domain.ProviderOpportunity{}, "", err
	}
	opp, err := e.Repo.GetProviderOpportunityTx(ctx, tx, val.OpportunityID)
	if err != nil {
		return val, opp, "", err
	}
	intent, err := e.Repo.GetProviderIntentionTx(ctx, tx, opp.IntentionID)
	if err != nil {
		return val, opp, "", err
	}
	return val, opp, intent.OperationType, nil
}

// PresentValidation moves the dossier to presented. Every required document
// type must have an upload; review decisions may still be outstanding.
func (e Engine) PresentValidation(ctx context.Context, validationID, actorID string) (domain.Validation, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Validation{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, actorID, PermValidationPresent); err != nil {
		return domain.Validation{}, err
	}
	val, _, opType, err := e.validationContextTx(ctx, tx, validationID)
	if err != nil {
		return val, err
	}
	statuses, err := e.requiredDocumentsTx(ctx, tx, val, opType)
	if err != nil {
		return val, err
	}
	for _, s := range statuses {
		if s.Status == "missing" {
			return val, &GuardError{
				Rule:    "documents_incomplete",
				Message: fmt.Sprintf("required document %s is missing", s.Code),
			}
		}
	}
	to, err := e.fire(ctx, tx, fsm.Validation, val.ID, fsm.Present, val.State, actorID)
	if err != nil {
		return val, err
	}
	now := e.timestamp()
	val.State = to
	val.PresentedAt = &now
	val.UpdatedAt = now
	if err := e.Repo.UpdateValidationTx(ctx, tx, val); err != nil {
		return val, err
	}
	if err := tx.Commit(); err != nil {
		return val, err
	}
	return val, nil
}

// RevokeValidation returns a presented dossier to preparing.
func (e Engine) RevokeValidation(ctx context.Context, validationID, actorID string) (domain.Validation, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Validation{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, actorID, PermValidationPresent); err != nil {
		return domain.Validation{}, err
	}
	val, err := e.Repo.GetValidationTx(ctx, tx, validationID)
	if err != nil {
		return val, err
	}
	to, err := e.fire(ctx, tx, fsm.Validation, val.ID, fsm.Revoke, val.State, actorID)
	if err != nil {
		return val, err
	}
	val.State = to
	val.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateValidationTx(ctx, tx, val); err != nil {
		return val, err
	}
	if err := tx.Commit(); err != nil {
		return val, err
	}
	return val, nil
}

// AcceptValidation closes the document gate. Every required document must
// carry a review decision; the cascade then moves the opportunity to
// marketing and publishes the active package, all in the same transaction.
func (e Engine) AcceptValidation(ctx context.Context, validationID, actorID string) (domain.Validation, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Validation{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, actorID, PermValidationAccept); err != nil {
		return domain.Validation{}, err
	}
	val, opp, opType, err := e.validationContextTx(ctx, tx, validationID)
	if err != nil {
		return val, err
	}
	statuses, err := e.requiredDocumentsTx(ctx, tx, val, opType)
	if err != nil {
		return val, err
	}
	for _, s := range statuses {
		switch s.Status {
		case "missing":
			return val, &GuardError{
				Rule:    "documents_incomplete",
				Message: fmt.Sprintf("required document %s is missing", s.Code),
			}
		case domain.DocumentPending:
			return val, &GuardError{
				Rule:    "documents_not_reviewed",
				Message: fmt.Sprintf("required document %s has not been reviewed", s.Code),
			}
		}
	}
	to, err := e.fire(ctx, tx, fsm.Validation, val.ID, fsm.Accept, val.State, actorID)
	if err != nil {
		return val, err
	}
	now := e.timestamp()
	val.State = to
	val.ValidatedAt = &now
	val.UpdatedAt = now
	if err := e.Repo.UpdateValidationTx(ctx, tx, val); err != nil {
		return val, err
	}
	if opp.State == domain.OpportunityValidating {
		oppTo, err := e.fire(ctx, tx, fsm.ProviderOpportunity, opp.ID, fsm.StartMarketing, opp.State, actorID)
		if err != nil {
			return val, err
		}
		opp.State = oppTo
		opp.UpdatedAt = now
		if err := e.Repo.UpdateProviderOpportunityTx(ctx, tx, opp); err != nil {
			return val, err
		}
	}
	pkg, err := e.Repo.ActiveMarketingPackageTx(ctx, tx, opp.ID)
	if err != nil {
		return val, err
	}
	pkgTo, err := e.fire(ctx, tx, fsm.MarketingPackage, pkg.ID, fsm.Publish, pkg.State, actorID)
	if err != nil {
		return val, err
	}
	if err := e.Repo.UpdateMarketingPackageStateTx(ctx, tx, pkg.ID, pkgTo, now); err != nil {
		return val, err
	}
	if err := tx.Commit(); err != nil {
		return val, err
	}
	return val, nil
}
