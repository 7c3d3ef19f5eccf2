package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"dealflow/internal/domain"
	"dealflow/internal/fsm"
)

// SeekerIntentionCreateOptions are parameters for a new seeker intention.
type SeekerIntentionCreateOptions struct {
	ID              string
	ContactID       string
	AgentID         string
	OperationType   string
	BudgetMin       *float64
	BudgetMax       *float64
	Currency        string
	DesiredFeatures map[string]any
	Notes           string
	ActorID         string
}

func (e Engine) CreateSeekerIntention(ctx context.Context, opts SeekerIntentionCreateOptions) (domain.SeekerIntention, error) {
	if opts.ContactID == "" || opts.AgentID == "" || opts.OperationType == "" {
		return domain.SeekerIntention{}, errors.New("contact, agent and operation_type are required")
	}
	if opts.BudgetMin != nil && opts.BudgetMax != nil && *opts.BudgetMin > *opts.BudgetMax {
		return domain.SeekerIntention{}, &GuardError{Rule: "budget_range", Message: "budget_min cannot exceed budget_max"}
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.SeekerIntention{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, opts.ActorID, PermSeekerManage); err != nil {
		return domain.SeekerIntention{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.timestamp()
	s := domain.SeekerIntention{
		ID:              id,
		ContactID:       opts.ContactID,
		AgentID:         opts.AgentID,
		OperationType:   opts.OperationType,
		State:           domain.SeekerQualifying,
		BudgetMin:       opts.BudgetMin,
		BudgetMax:       opts.BudgetMax,
		Currency:        opts.Currency,
		DesiredFeatures: opts.DesiredFeatures,
		Notes:           opts.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.Repo.InsertSeekerIntentionTx(ctx, tx, s); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	return s, nil
}

func (e Engine) advanceSeekerIntention(ctx context.Context, intentionID, transition, actorID string) (domain.SeekerIntention, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.SeekerIntention{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, actorID, PermSeekerManage); err != nil {
		return domain.SeekerIntention{}, err
	}
	s, err := e.Repo.GetSeekerIntentionTx(ctx, tx, intentionID)
	if err != nil {
		return s, err
	}
	to, err := e.fire(ctx, tx, fsm.SeekerIntention, s.ID, transition, s.State, actorID)
	if err != nil {
		return s, err
	}
	s.State = to
	s.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateSeekerIntentionTx(ctx, tx, s); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	return s, nil
}

// ActivateSeekerIntention moves a qualifying intention to active once the
// search brief is workable.
func (e Engine) ActivateSeekerIntention(ctx context.Context, intentionID, actorID string) (domain.SeekerIntention, error) {
	return e.advanceSeekerIntention(ctx, intentionID, fsm.Activate, actorID)
}

// MandateSeekerIntention records the signed search mandate.
func (e Engine) MandateSeekerIntention(ctx context.Context, intentionID, actorID string) (domain.SeekerIntention, error) {
	return e.advanceSeekerIntention(ctx, intentionID, fsm.Mandate, actorID)
}

// AbandonSeekerIntention drops a qualifying or active intention.
func (e Engine) AbandonSeekerIntention(ctx context.Context, intentionID, actorID string) (domain.SeekerIntention, error) {
	return e.advanceSeekerIntention(ctx, intentionID, fsm.Abandon, actorID)
}

// SeekerOpportunityCreateOptions are parameters for converting a mandated
// seeker intention.
type SeekerOpportunityCreateOptions struct {
	IntentionID        string
	GrossCommissionPct float64
	Notes              string
	ActorID            string
}

// CreateSeekerOpportunity converts a mandated intention and opens the
// matching opportunity.
func (e Engine) CreateSeekerOpportunity(ctx context.Context, opts SeekerOpportunityCreateOptions) (domain.SeekerOpportunity, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.SeekerOpportunity{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, opts.ActorID, PermSeekerManage); err != nil {
		return domain.SeekerOpportunity{}, err
	}
	s, err := e.Repo.GetSeekerIntentionTx(ctx, tx, opts.IntentionID)
	if err != nil {
		return domain.SeekerOpportunity{}, err
	}
	to, err := e.fire(ctx, tx, fsm.SeekerIntention, s.ID, fsm.MarkConverted, s.State, opts.ActorID)
	if err != nil {
		return domain.SeekerOpportunity{}, err
	}
	now := e.timestamp()
	o := domain.SeekerOpportunity{
		ID:                 uuid.New().String(),
		IntentionID:        s.ID,
		State:              domain.SeekerOppMatching,
		GrossCommissionPct: opts.GrossCommissionPct,
		Notes:              opts.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := e.Repo.InsertSeekerOpportunityTx(ctx, tx, o); err != nil {
		return o, translateConstraint(err, "intention_converted", "intention already has an opportunity")
	}
	s.State = to
	s.UpdatedAt = now
	if err := e.Repo.UpdateSeekerIntentionTx(ctx, tx, s); err != nil {
		return o, err
	}
	if err := tx.Commit(); err != nil {
		return o, err
	}
	return o, nil
}
