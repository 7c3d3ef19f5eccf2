package engine

import (
	"context"

	"dealflow/internal/domain"
	"dealflow/internal/fsm"
)

// ReinforceOptions carry the reinforcement terms.
type ReinforceOptions struct {
	OperationID         string
	OfferedAmount       *float64
	ReinforcementAmount *float64
	DeclaredDeedValue   *float64
	Notes               string
	ActorID             string
}

// ReinforceOperation confirms the offer. The offered amount prefills from
// the initial offer when not restated, and the operation timestamp is set.
func (e Engine) ReinforceOperation(ctx context.Context, opts ReinforceOptions) (domain.Operation, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Operation{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, opts.ActorID, PermOperationManage); err != nil {
		return domain.Operation{}, err
	}
	op, err := e.Repo.GetOperationTx(ctx, tx, opts.OperationID)
	if err != nil {
		return op, err
	}
	to, err := e.fire(ctx, tx, fsm.Operation, op.ID, fsm.Reinforce, op.State, opts.ActorID)
	if err != nil {
		return op, err
	}
	now := e.timestamp()
	op.State = to
	op.OccurredAt = &now
	if opts.OfferedAmount != nil {
		op.OfferedAmount = opts.OfferedAmount
	} else if op.OfferedAmount == nil {
		amount := op.InitialOfferedAmount
		op.OfferedAmount = &amount
	}
	if opts.ReinforcementAmount != nil {
		op.ReinforcementAmount = opts.ReinforcementAmount
	}
	if opts.DeclaredDeedValue != nil {
		op.DeclaredDeedValue = opts.DeclaredDeedValue
	}
	if opts.Notes != "" {
		op.Notes = opts.Notes
	}
	op.UpdatedAt = now
	if err := e.Repo.UpdateOperationTx(ctx, tx, op); err != nil {
		return op, err
	}
	if err := tx.Commit(); err != nil {
		return op, err
	}
	return op, nil
}

// CloseOperation completes the deal. The provider opportunity closes, the
// seeker opportunity closes when negotiating, and the seeker intention is
// fulfilled when converted.
func (e Engine) CloseOperation(ctx context.Context, operationID, actorID string) (domain.Operation, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Operation{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, actorID, PermOperationManage); err != nil {
		return domain.Operation{}, err
	}
	op, err := e.Repo.GetOperationTx(ctx, tx, operationID)
	if err != nil {
		return op, err
	}
	to, err := e.fire(ctx, tx, fsm.Operation, op.ID, fsm.Close, op.State, actorID)
	if err != nil {
		return op, err
	}
	now := e.timestamp()
	op.State = to
	op.UpdatedAt = now
	if err := e.Repo.UpdateOperationTx(ctx, tx, op); err != nil {
		return op, err
	}
	po, err := e.Repo.GetProviderOpportunityTx(ctx, tx, op.ProviderOpportunityID)
	if err != nil {
		return op, err
	}
	poTo, err := e.fire(ctx, tx, fsm.ProviderOpportunity, po.ID, fsm.CloseOpportunity, po.State, actorID)
	if err != nil {
		return op, err
	}
	po.State = poTo
	po.UpdatedAt = now
	if err := e.Repo.UpdateProviderOpportunityTx(ctx, tx, po); err != nil {
		return op, err
	}
	so, err := e.Repo.GetSeekerOpportunityTx(ctx, tx, op.SeekerOpportunityID)
	if err != nil {
		return op, err
	}
	if so.State == domain.SeekerOppNegotiating {
		soTo, err := e.fire(ctx, tx, fsm.SeekerOpportunity, so.ID, fsm.Close, so.State, actorID)
		if err != nil {
			return op, err
		}
		so.State = soTo
		so.UpdatedAt = now
		if err := e.Repo.UpdateSeekerOpportunityTx(ctx, tx, so); err != nil {
			return op, err
		}
	}
	si, err := e.Repo.GetSeekerIntentionTx(ctx, tx, so.IntentionID)
	if err != nil {
		return op, err
	}
	if si.State == domain.SeekerConverted {
		siTo, err := e.fire(ctx, tx, fsm.SeekerIntention, si.ID, fsm.Fulfill, si.State, actorID)
		if err != nil {
			return op, err
		}
		si.State = siTo
		si.UpdatedAt = now
		if err := e.Repo.UpdateSeekerIntentionTx(ctx, tx, si); err != nil {
			return op, err
		}
	}
	if err := tx.Commit(); err != nil {
		return op, err
	}
	return op, nil
}

// LoseOperation marks the deal lost. The seeker opportunity resumes
// matching only when no other active operation remains on it.
func (e Engine) LoseOperation(ctx context.Context, operationID, reason, actorID string) (domain.Operation, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Operation{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, actorID, PermOperationManage); err != nil {
		return domain.Operation{}, err
	}
	op, err := e.Repo.GetOperationTx(ctx, tx, operationID)
	if err != nil {
		return op, err
	}
	to, err := e.fire(ctx, tx, fsm.Operation, op.ID, fsm.Lose, op.State, actorID)
	if err != nil {
		return op, err
	}
	now := e.timestamp()
	op.State = to
	op.LostReason = reason
	op.UpdatedAt = now
	if err := e.Repo.UpdateOperationTx(ctx, tx, op); err != nil {
		return op, err
	}
	so, err := e.Repo.GetSeekerOpportunityTx(ctx, tx, op.SeekerOpportunityID)
	if err != nil {
		return op, err
	}
	if so.State == domain.SeekerOppNegotiating {
		siblings, err := e.Repo.CountActiveOperationsForSeekerTx(ctx, tx, so.ID, op.ID)
		if err != nil {
			return op, err
		}
		if siblings == 0 {
			soTo, err := e.fire(ctx, tx, fsm.SeekerOpportunity, so.ID, fsm.ResumeMatching, so.State, actorID)
			if err != nil {
				return op, err
			}
			so.State = soTo
			so.UpdatedAt = now
			if err := e.Repo.UpdateSeekerOpportunityTx(ctx, tx, so); err != nil {
				return op, err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return op, err
	}
	return op, nil
}
