package engine

import (
	"context"
	"database/sql"
	"time"

	"dealflow/internal/config"
	"dealflow/internal/domain"
	"dealflow/internal/engine/auth"
	"dealflow/internal/fsm"
	"dealflow/internal/repo"
	"dealflow/internal/translog"
)

// Capability codes checked by the single authorize call per service.
const (
	PermIntakeManage      = "intake.manage"
	PermIntentionCreate   = "intention.create"
	PermIntentionValuate  = "intention.valuate"
	PermIntentionWithdraw = "intention.withdraw"
	PermIntentionPromote  = "intention.promote"
	PermSeekerManage      = "seeker.manage"
	PermDocumentUpload    = "document.upload"
	PermDocumentReview    = "document.review"
	PermValidationPresent = "validation.present"
	PermValidationAccept  = "validation.accept"
	PermPackageDraft      = "package.draft"
	PermPackagePublish    = "package.publish"
	PermAgreementCreate   = "agreement.create"
	PermAgreementManage   = "agreement.manage"
	PermAgreementSign     = "agreement.sign"
	PermOperationManage   = "operation.manage"
)

// Engine hosts the pipeline services. Every exported method is one unit of
// work: one transaction, one authorize call, transition-log rows appended in
// the same transaction.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Log    translog.Writer
	Auth   auth.Authorizer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Log:    translog.Writer{DB: db},
		Auth:   auth.AllowAll{},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) begin(ctx context.Context) (*sql.Tx, error) {
	return e.DB.BeginTx(ctx, nil)
}

func (e Engine) authorize(ctx context.Context, tx *sql.Tx, actorID, action string) error {
	if e.Auth == nil {
		return nil
	}
	return e.Auth.Authorize(ctx, tx, actorID, action)
}

// actorAgent resolves the agent an actor acts for. Unbound actors act as
// themselves, so tests and single-operator CLIs can pass agent ids directly.
func (e Engine) actorAgent(ctx context.Context, tx *sql.Tx, actorID string) (string, error) {
	if e.Auth == nil {
		return actorID, nil
	}
	agentID, err := e.Auth.ActorAgent(ctx, tx, actorID)
	if err != nil {
		return "", err
	}
	if agentID == "" {
		return actorID, nil
	}
	return agentID, nil
}

// fire resolves the transition target and appends the log row in the same
// transaction. The state write itself stays with the caller.
func (e Engine) fire(ctx context.Context, tx *sql.Tx, m fsm.Machine, entityID, transition, from, actorID string) (string, error) {
	to, err := m.Target(transition, from)
	if err != nil {
		return "", err
	}
	lw := e.Log
	lw.Now = e.Now
	if err := lw.Append(ctx, tx, m.Entity, entityID, transition, from, to, actorID); err != nil {
		return "", err
	}
	return to, nil
}

// Seed loads the config catalog (currencies, operation types, document
// types) into the database. Idempotent.
func (e Engine) Seed(ctx context.Context) error {
	if e.Config == nil {
		return nil
	}
	for _, c := range e.Config.Catalog.Currencies {
		if err := e.Repo.UpsertCurrency(ctx, domain.Currency{Code: c.Code, Name: c.Name, Symbol: c.Symbol}); err != nil {
			return err
		}
	}
	for _, op := range e.Config.Catalog.OperationTypes {
		if err := e.Repo.UpsertOperationType(ctx, domain.OperationType{Code: op.Code, Label: op.Label}); err != nil {
			return err
		}
	}
	for _, dt := range e.Config.Catalog.DocumentTypes {
		t := domain.ValidationDocumentType{
			Code:            dt.Code,
			Label:           dt.Label,
			Required:        dt.Required,
			AcceptedFormats: dt.AcceptedFormats,
		}
		if dt.OperationType != "" {
			op := dt.OperationType
			t.OperationType = &op
		}
		if err := e.Repo.UpsertDocumentType(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// SeedRoles loads the config RBAC roles through the auth service.
func (e Engine) SeedRoles(ctx context.Context) error {
	if e.Config == nil || len(e.Config.RBAC.Roles) == 0 {
		return nil
	}
	svc := auth.Service{DB: e.DB}
	for roleID, role := range e.Config.RBAC.Roles {
		if err := svc.SeedRole(ctx, roleID, role.Description, role.Permissions); err != nil {
			return err
		}
	}
	return nil
}
