package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"dealflow/internal/domain"
	"dealflow/internal/fsm"
	"dealflow/internal/repo"
)

// AgreementCreateOptions pair a marketing provider opportunity with a seeker
// opportunity.
type AgreementCreateOptions struct {
	ProviderOpportunityID string
	SeekerOpportunityID   string
	InitialOfferedAmount  float64
	Notes                 string
	ActorID               string
}

// CreateOperationAgreement opens the offer record for the pair. Only the
// seeker's agent may open it; when provider and seeker share one agent the
// agreement is agreed immediately.
func (e Engine) CreateOperationAgreement(ctx context.Context, opts AgreementCreateOptions) (domain.OperationAgreement, error) {
	if opts.InitialOfferedAmount <= 0 {
		return domain.OperationAgreement{}, &GuardError{Rule: "offer_amount", Message: "initial offered amount must be positive"}
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.OperationAgreement{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, opts.ActorID, PermAgreementCreate); err != nil {
		return domain.OperationAgreement{}, err
	}
	po, err := e.Repo.GetProviderOpportunityTx(ctx, tx, opts.ProviderOpportunityID)
	if err != nil {
		return domain.OperationAgreement{}, err
	}
	so, err := e.Repo.GetSeekerOpportunityTx(ctx, tx, opts.SeekerOpportunityID)
	if err != nil {
		return domain.OperationAgreement{}, err
	}
	pi, err := e.Repo.GetProviderIntentionTx(ctx, tx, po.IntentionID)
	if err != nil {
		return domain.OperationAgreement{}, err
	}
	si, err := e.Repo.GetSeekerIntentionTx(ctx, tx, so.IntentionID)
	if err != nil {
		return domain.OperationAgreement{}, err
	}
	if pi.OperationType != si.OperationType {
		return domain.OperationAgreement{}, &GuardError{Rule: "operation_type_match", Message: "provider and seeker operation types differ"}
	}
	if po.State != domain.OpportunityMarketing {
		return domain.OperationAgreement{}, &GuardError{Rule: "provider_not_marketing", Message: "provider opportunity is not marketing"}
	}
	if so.State == domain.SeekerOppClosed {
		return domain.OperationAgreement{}, &GuardError{Rule: "seeker_closed", Message: "seeker opportunity is closed"}
	}
	agentID, err := e.actorAgent(ctx, tx, opts.ActorID)
	if err != nil {
		return domain.OperationAgreement{}, err
	}
	if agentID != si.AgentID {
		return domain.OperationAgreement{}, &GuardError{Rule: "agreement_actor", Message: "only the seeker's agent may open an agreement"}
	}
	_, err = e.Repo.ActiveAgreementForPairTx(ctx, tx, po.ID, so.ID)
	if err == nil {
		return domain.OperationAgreement{}, &GuardError{Rule: "agreement_exists", Message: "an active agreement already exists for this pair"}
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return domain.OperationAgreement{}, err
	}
	_, err = e.Repo.ActiveOperationForPairTx(ctx, tx, po.ID, so.ID)
	if err == nil {
		return domain.OperationAgreement{}, &GuardError{Rule: "operation_exists", Message: "an active operation already exists for this pair"}
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return domain.OperationAgreement{}, err
	}
	now := e.timestamp()
	a := domain.OperationAgreement{
		ID:                    uuid.New().String(),
		ProviderOpportunityID: po.ID,
		SeekerOpportunityID:   so.ID,
		State:                 domain.AgreementPending,
		InitialOfferedAmount:  opts.InitialOfferedAmount,
		Notes:                 opts.Notes,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := e.Repo.InsertOperationAgreementTx(ctx, tx, a); err != nil {
		return a, translateConstraint(err, "agreement_exists", "an active agreement already exists for this pair")
	}
	if pi.AgentID == si.AgentID {
		to, err := e.fire(ctx, tx, fsm.OperationAgreement, a.ID, fsm.Agree, a.State, opts.ActorID)
		if err != nil {
			return a, err
		}
		a.State = to
		a.AgreedAt = &now
		if err := e.Repo.UpdateOperationAgreementTx(ctx, tx, a); err != nil {
			return a, err
		}
	}
	if err := tx.Commit(); err != nil {
		return a, err
	}
	return a, nil
}

// AgreeAgreement records the provider side's acceptance of the offer.
func (e Engine) AgreeAgreement(ctx context.Context, agreementID, actorID string) (domain.OperationAgreement, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.OperationAgreement{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, actorID, PermAgreementManage); err != nil {
		return domain.OperationAgreement{}, err
	}
	a, err := e.Repo.GetOperationAgreementTx(ctx, tx, agreementID)
	if err != nil {
		return a, err
	}
	to, err := e.fire(ctx, tx, fsm.OperationAgreement, a.ID, fsm.Agree, a.State, actorID)
	if err != nil {
		return a, err
	}
	now := e.timestamp()
	a.State = to
	a.AgreedAt = &now
	a.UpdatedAt = now
	if err := e.Repo.UpdateOperationAgreementTx(ctx, tx, a); err != nil {
		return a, err
	}
	if err := tx.Commit(); err != nil {
		return a, err
	}
	return a, nil
}

// RevokeAgreement returns an agreed agreement to pending.
func (e Engine) RevokeAgreement(ctx context.Context, agreementID, actorID string) (domain.OperationAgreement, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.OperationAgreement{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, actorID, PermAgreementManage); err != nil {
		return domain.OperationAgreement{}, err
	}
	a, err := e.Repo.GetOperationAgreementTx(ctx, tx, agreementID)
	if err != nil {
		return a, err
	}
	to, err := e.fire(ctx, tx, fsm.OperationAgreement, a.ID, fsm.Revoke, a.State, actorID)
	if err != nil {
		return a, err
	}
	a.State = to
	a.AgreedAt = nil
	a.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateOperationAgreementTx(ctx, tx, a); err != nil {
		return a, err
	}
	if err := tx.Commit(); err != nil {
		return a, err
	}
	return a, nil
}

// CancelAgreement ends a pending or agreed agreement, freeing the pair.
func (e Engine) CancelAgreement(ctx context.Context, agreementID, reason, actorID string) (domain.OperationAgreement, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.OperationAgreement{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, actorID, PermAgreementManage); err != nil {
		return domain.OperationAgreement{}, err
	}
	a, err := e.Repo.GetOperationAgreementTx(ctx, tx, agreementID)
	if err != nil {
		return a, err
	}
	to, err := e.fire(ctx, tx, fsm.OperationAgreement, a.ID, fsm.Cancel, a.State, actorID)
	if err != nil {
		return a, err
	}
	now := e.timestamp()
	a.State = to
	a.CancelledAt = &now
	a.CancellationReason = reason
	a.UpdatedAt = now
	if err := e.Repo.UpdateOperationAgreementTx(ctx, tx, a); err != nil {
		return a, err
	}
	if err := tx.Commit(); err != nil {
		return a, err
	}
	return a, nil
}

// SignAgreementOptions carry the reservation terms fixed at signature.
type SignAgreementOptions struct {
	AgreementID   string
	ReserveAmount float64
	ReserveDate   string
	Currency      string
	Notes         string
	ActorID       string
}

// SignAgreement signs an agreed agreement and opens the operation in
// offered, pausing the provider's published package and starting seeker
// negotiation when still matching.
func (e Engine) SignAgreement(ctx context.Context, opts SignAgreementOptions) (domain.Operation, error) {
	if opts.ReserveAmount <= 0 {
		return domain.Operation{}, &GuardError{Rule: "reserve_amount", Message: "reserve amount must be positive"}
	}
	if opts.ReserveDate == "" {
		return domain.Operation{}, &GuardError{Rule: "reserve_deadline", Message: "reserve deadline is required"}
	}
	if opts.Currency == "" {
		return domain.Operation{}, &GuardError{Rule: "reserve_currency", Message: "currency is required"}
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Operation{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, opts.ActorID, PermAgreementSign); err != nil {
		return domain.Operation{}, err
	}
	a, err := e.Repo.GetOperationAgreementTx(ctx, tx, opts.AgreementID)
	if err != nil {
		return domain.Operation{}, err
	}
	to, err := e.fire(ctx, tx, fsm.OperationAgreement, a.ID, fsm.Sign, a.State, opts.ActorID)
	if err != nil {
		return domain.Operation{}, err
	}
	now := e.timestamp()
	a.State = to
	a.SignedAt = &now
	a.UpdatedAt = now
	if err := e.Repo.UpdateOperationAgreementTx(ctx, tx, a); err != nil {
		return domain.Operation{}, err
	}
	op := domain.Operation{
		ID:                    uuid.New().String(),
		AgreementID:           a.ID,
		ProviderOpportunityID: a.ProviderOpportunityID,
		SeekerOpportunityID:   a.SeekerOpportunityID,
		State:                 domain.OperationOffered,
		InitialOfferedAmount:  a.InitialOfferedAmount,
		ReserveAmount:         opts.ReserveAmount,
		ReserveDeadline:       opts.ReserveDate,
		Currency:              opts.Currency,
		Notes:                 opts.Notes,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := e.Repo.InsertOperationTx(ctx, tx, op); err != nil {
		return op, translateConstraint(err, "operation_exists", "an active operation already exists for this pair")
	}
	pkg, err := e.Repo.ActiveMarketingPackageTx(ctx, tx, a.ProviderOpportunityID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return op, err
	}
	if err == nil && pkg.State == domain.PackagePublished {
		pkgTo, err := e.fire(ctx, tx, fsm.MarketingPackage, pkg.ID, fsm.Pause, pkg.State, opts.ActorID)
		if err != nil {
			return op, err
		}
		if err := e.Repo.UpdateMarketingPackageStateTx(ctx, tx, pkg.ID, pkgTo, now); err != nil {
			return op, err
		}
	}
	so, err := e.Repo.GetSeekerOpportunityTx(ctx, tx, a.SeekerOpportunityID)
	if err != nil {
		return op, err
	}
	if so.State == domain.SeekerOppMatching {
		soTo, err := e.fire(ctx, tx, fsm.SeekerOpportunity, so.ID, fsm.StartNegotiation, so.State, opts.ActorID)
		if err != nil {
			return op, err
		}
		so.State = soTo
		so.UpdatedAt = now
		if err := e.Repo.UpdateSeekerOpportunityTx(ctx, tx, so); err != nil {
			return op, err
		}
	}
	if err := tx.Commit(); err != nil {
		return op, err
	}
	return op, nil
}
