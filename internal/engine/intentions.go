package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"dealflow/internal/domain"
	"dealflow/internal/fsm"
)

// ProviderIntentionCreateOptions are parameters for a new provider intention.
type ProviderIntentionCreateOptions struct {
	ID            string
	OwnerID       string
	AgentID       string
	PropertyID    string
	OperationType string
	Notes         string
	ActorID       string
}

func (e Engine) CreateProviderIntention(ctx context.Context, opts ProviderIntentionCreateOptions) (domain.ProviderIntention, error) {
	if opts.OwnerID == "" || opts.AgentID == "" || opts.PropertyID == "" || opts.OperationType == "" {
		return domain.ProviderIntention{}, errors.New("owner, agent, property and operation_type are required")
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.ProviderIntention{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, opts.ActorID, PermIntentionCreate); err != nil {
		return domain.ProviderIntention{}, err
	}
	exists, err := e.Repo.ActiveProviderIntentionExistsTx(ctx, tx, opts.AgentID, opts.PropertyID)
	if err != nil {
		return domain.ProviderIntention{}, err
	}
	if exists {
		return domain.ProviderIntention{}, &GuardError{
			Rule:    "intention_unique",
			Message: "an active intention already exists for this agent and property",
		}
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.timestamp()
	p := domain.ProviderIntention{
		ID:            id,
		OwnerID:       opts.OwnerID,
		AgentID:       opts.AgentID,
		PropertyID:    opts.PropertyID,
		OperationType: opts.OperationType,
		State:         domain.IntentionAssessing,
		Notes:         opts.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Repo.InsertProviderIntentionTx(ctx, tx, p); err != nil {
		return p, translateConstraint(err, "intention_unique", "an active intention already exists for this agent and property")
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

// ValuationOptions carry the analyst snapshot attached by DeliverValuation.
type ValuationOptions struct {
	IntentionID   string
	Amount        float64
	Currency      string
	TestValue     float64
	CloseValue    float64
	ValuationDate string
	Notes         string
	ActorID       string
}

// DeliverValuation attaches the valuation snapshot and moves the intention
// to valuated.
func (e Engine) DeliverValuation(ctx context.Context, opts ValuationOptions) (domain.Valuation, error) {
	if opts.Amount <= 0 {
		return domain.Valuation{}, &GuardError{Rule: "valuation_amount", Message: "valuation amount must be positive"}
	}
	if opts.Currency == "" {
		return domain.Valuation{}, &GuardError{Rule: "valuation_currency", Message: "valuation currency is required"}
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Valuation{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, opts.ActorID, PermIntentionValuate); err != nil {
		return domain.Valuation{}, err
	}
	p, err := e.Repo.GetProviderIntentionTx(ctx, tx, opts.IntentionID)
	if err != nil {
		return domain.Valuation{}, err
	}
	to, err := e.fire(ctx, tx, fsm.ProviderIntention, p.ID, fsm.DeliverValuation, p.State, opts.ActorID)
	if err != nil {
		return domain.Valuation{}, err
	}
	now := e.timestamp()
	if opts.TestValue == 0 {
		opts.TestValue = opts.Amount
	}
	if opts.CloseValue == 0 {
		opts.CloseValue = opts.Amount
	}
	v := domain.Valuation{
		ID:            uuid.New().String(),
		IntentionID:   p.ID,
		AgentID:       p.AgentID,
		Amount:        opts.Amount,
		Currency:      opts.Currency,
		TestValue:     opts.TestValue,
		CloseValue:    opts.CloseValue,
		ValuationDate: opts.ValuationDate,
		DeliveredAt:   now,
		Notes:         opts.Notes,
		CreatedAt:     now,
	}
	if err := e.Repo.InsertValuationTx(ctx, tx, v); err != nil {
		return v, err
	}
	p.State = to
	p.ValuationID = &v.ID
	p.UpdatedAt = now
	if err := e.Repo.UpdateProviderIntentionTx(ctx, tx, p); err != nil {
		return v, err
	}
	if err := tx.Commit(); err != nil {
		return v, err
	}
	return v, nil
}

// WithdrawIntention takes the intention out of the pipeline, freeing the
// (agent, property) pair for a later attempt.
func (e Engine) WithdrawIntention(ctx context.Context, intentionID, reason, actorID string) (domain.ProviderIntention, error) {
	switch reason {
	case domain.WithdrawLackCommitment, domain.WithdrawCannotSell, domain.WithdrawNoResponse:
	default:
		return domain.ProviderIntention{}, &GuardError{
			Rule:    "withdraw_reason",
			Message: fmt.Sprintf("unknown withdraw reason %q", reason),
		}
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.ProviderIntention{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, actorID, PermIntentionWithdraw); err != nil {
		return domain.ProviderIntention{}, err
	}
	p, err := e.Repo.GetProviderIntentionTx(ctx, tx, intentionID)
	if err != nil {
		return p, err
	}
	to, err := e.fire(ctx, tx, fsm.ProviderIntention, p.ID, fsm.Withdraw, p.State, actorID)
	if err != nil {
		return p, err
	}
	p.State = to
	p.WithdrawReason = reason
	p.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateProviderIntentionTx(ctx, tx, p); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

// PromoteOptions are parameters for converting a valuated intention into a
// provider opportunity.
type PromoteOptions struct {
	IntentionID         string
	GrossCommissionPct  float64
	ListingKind         string
	ListingExternalID   string
	ListingRefCode      string
	ContractSignedOn    string
	ContractEffectiveOn string
	ContractExpiresOn   string
	Headline            string
	Description         string
	ActorID             string
}

// PromoteIntention converts a valuated intention: it creates the provider
// opportunity in validating, its validation in preparing, the version 1
// marketing package in preparing, and links a fresh listing reference, all
// in one transaction.
func (e Engine) PromoteIntention(ctx context.Context, opts PromoteOptions) (domain.ProviderOpportunity, error) {
	if opts.GrossCommissionPct <= 0 {
		return domain.ProviderOpportunity{}, &GuardError{Rule: "commission_pct", Message: "gross commission pct must be positive"}
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.ProviderOpportunity{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, opts.ActorID, PermIntentionPromote); err != nil {
		return domain.ProviderOpportunity{}, err
	}
	p, err := e.Repo.GetProviderIntentionTx(ctx, tx, opts.IntentionID)
	if err != nil {
		return domain.ProviderOpportunity{}, err
	}
	if p.ValuationID == nil {
		return domain.ProviderOpportunity{}, &GuardError{Rule: "intention_promotable", Message: "intention has no delivered valuation"}
	}
	to, err := e.fire(ctx, tx, fsm.ProviderIntention, p.ID, fsm.MarkConverted, p.State, opts.ActorID)
	if err != nil {
		return domain.ProviderOpportunity{}, err
	}
	v, err := e.Repo.GetValuationTx(ctx, tx, *p.ValuationID)
	if err != nil {
		return domain.ProviderOpportunity{}, err
	}
	now := e.timestamp()
	portal := "manual"
	if e.Config != nil && e.Config.Listing.Portal != "" {
		portal = e.Config.Listing.Portal
	}
	externalID := opts.ListingExternalID
	if externalID == "" {
		externalID = uuid.New().String()
	}
	ref := domain.ListingReference{
		ID:         uuid.New().String(),
		Portal:     portal,
		ExternalID: externalID,
		RefCode:    opts.ListingRefCode,
		CreatedAt:  now,
	}
	if err := e.Repo.InsertListingReferenceTx(ctx, tx, ref); err != nil {
		return domain.ProviderOpportunity{}, translateConstraint(err, "listing_linked", "listing reference is already linked to an opportunity")
	}
	kind := opts.ListingKind
	if kind == "" {
		kind = domain.ListingExclusive
	}
	opp := domain.ProviderOpportunity{
		ID:                  uuid.New().String(),
		IntentionID:         p.ID,
		ListingReferenceID:  ref.ID,
		ListingKind:         kind,
		State:               domain.OpportunityValidating,
		GrossCommissionPct:  opts.GrossCommissionPct,
		ValuationTestValue:  v.TestValue,
		ValuationCloseValue: v.CloseValue,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if opts.ContractEffectiveOn != "" {
		opp.ContractEffectiveOn = &opts.ContractEffectiveOn
	}
	if opts.ContractExpiresOn != "" {
		opp.ContractExpiresOn = &opts.ContractExpiresOn
	}
	if err := e.Repo.InsertProviderOpportunityTx(ctx, tx, opp); err != nil {
		return opp, translateConstraint(err, "intention_converted", "intention already has an opportunity")
	}
	val := domain.Validation{
		ID:            uuid.New().String(),
		OpportunityID: opp.ID,
		State:         domain.ValidationPreparing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Repo.InsertValidationTx(ctx, tx, val); err != nil {
		return opp, err
	}
	price := v.Amount
	pkg := domain.MarketingPackage{
		ID:            uuid.New().String(),
		OpportunityID: opp.ID,
		Version:       1,
		IsActive:      true,
		State:         domain.PackagePreparing,
		Headline:      opts.Headline,
		Description:   opts.Description,
		Price:         &price,
		Currency:      v.Currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Repo.InsertMarketingPackageTx(ctx, tx, pkg); err != nil {
		return opp, err
	}
	p.State = to
	p.ConvertedAt = &now
	if opts.ContractSignedOn != "" {
		p.ContractSigned = &opts.ContractSignedOn
	}
	p.UpdatedAt = now
	if err := e.Repo.UpdateProviderIntentionTx(ctx, tx, p); err != nil {
		return opp, err
	}
	if err := tx.Commit(); err != nil {
		return opp, err
	}
	return opp, nil
}
