package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"dealflow/internal/domain"
	"dealflow/internal/fsm"
	"dealflow/internal/repo"
)

// PackageRevisionOptions hold the next version's content. Zero-valued fields
// inherit from the current active version.
type PackageRevisionOptions struct {
	OpportunityID string
	Headline      string
	Description   string
	Price         *float64
	Currency      string
	Features      []string
	MediaAssets   []string
	ActorID       string
}

// ReviseMarketingPackage creates version N+1 and flips the active flag in
// one transaction. Existing versions are never edited.
func (e Engine) ReviseMarketingPackage(ctx context.Context, opts PackageRevisionOptions) (domain.MarketingPackage, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.MarketingPackage{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, opts.ActorID, PermPackageDraft); err != nil {
		return domain.MarketingPackage{}, err
	}
	cur, err := e.Repo.ActiveMarketingPackageTx(ctx, tx, opts.OpportunityID)
	if err != nil {
		return domain.MarketingPackage{}, err
	}
	version, err := e.Repo.NextPackageVersionTx(ctx, tx, opts.OpportunityID)
	if err != nil {
		return domain.MarketingPackage{}, err
	}
	now := e.timestamp()
	next := domain.MarketingPackage{
		ID:            uuid.New().String(),
		OpportunityID: opts.OpportunityID,
		Version:       version,
		IsActive:      true,
		State:         cur.State,
		Headline:      opts.Headline,
		Description:   opts.Description,
		Price:         opts.Price,
		Currency:      opts.Currency,
		Features:      opts.Features,
		MediaAssets:   opts.MediaAssets,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if next.Headline == "" {
		next.Headline = cur.Headline
	}
	if next.Description == "" {
		next.Description = cur.Description
	}
	if next.Price == nil {
		next.Price = cur.Price
	}
	if next.Currency == "" {
		next.Currency = cur.Currency
	}
	if next.Features == nil {
		next.Features = cur.Features
	}
	if next.MediaAssets == nil {
		next.MediaAssets = cur.MediaAssets
	}
	// Flip before insert so the single-active index never sees two rows.
	if err := e.Repo.SetMarketingPackageActiveTx(ctx, tx, cur.ID, false, now); err != nil {
		return next, err
	}
	if err := e.Repo.InsertMarketingPackageTx(ctx, tx, next); err != nil {
		return next, translateConstraint(err, "package_active", "another active package version exists for this opportunity")
	}
	if err := tx.Commit(); err != nil {
		return next, err
	}
	return next, nil
}

// PublishMarketingPackage puts the active version live. Blocked while an
// operation is in flight on the opportunity.
func (e Engine) PublishMarketingPackage(ctx context.Context, packageID, actorID string) (domain.MarketingPackage, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.MarketingPackage{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, actorID, PermPackagePublish); err != nil {
		return domain.MarketingPackage{}, err
	}
	pkg, err := e.Repo.GetMarketingPackageTx(ctx, tx, packageID)
	if err != nil {
		return pkg, err
	}
	if !pkg.IsActive {
		return pkg, &GuardError{Rule: "package_active", Message: "only the active package version can change state"}
	}
	_, err = e.Repo.ActiveOperationForProviderTx(ctx, tx, pkg.OpportunityID)
	if err == nil {
		return pkg, &GuardError{Rule: "operation_in_flight", Message: "an active operation exists for this opportunity"}
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return pkg, err
	}
	to, err := e.fire(ctx, tx, fsm.MarketingPackage, pkg.ID, fsm.Publish, pkg.State, actorID)
	if err != nil {
		return pkg, err
	}
	now := e.timestamp()
	if err := e.Repo.UpdateMarketingPackageStateTx(ctx, tx, pkg.ID, to, now); err != nil {
		return pkg, err
	}
	if err := tx.Commit(); err != nil {
		return pkg, err
	}
	pkg.State = to
	pkg.UpdatedAt = now
	return pkg, nil
}

// PauseMarketingPackage takes the active version off the market.
func (e Engine) PauseMarketingPackage(ctx context.Context, packageID, actorID string) (domain.MarketingPackage, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.MarketingPackage{}, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, actorID, PermPackagePublish); err != nil {
		return domain.MarketingPackage{}, err
	}
	pkg, err := e.Repo.GetMarketingPackageTx(ctx, tx, packageID)
	if err != nil {
		return pkg, err
	}
	if !pkg.IsActive {
		return pkg, &GuardError{Rule: "package_active", Message: "only the active package version can change state"}
	}
	val, err := e.Repo.GetValidationByOpportunityTx(ctx, tx, pkg.OpportunityID)
	if err != nil {
		return pkg, err
	}
	if val.State != domain.ValidationAccepted {
		return pkg, &GuardError{Rule: "validation_not_accepted", Message: "validation must be accepted before pausing marketing"}
	}
	to, err := e.fire(ctx, tx, fsm.MarketingPackage, pkg.ID, fsm.Pause, pkg.State, actorID)
	if err != nil {
		return pkg, err
	}
	now := e.timestamp()
	if err := e.Repo.UpdateMarketingPackageStateTx(ctx, tx, pkg.ID, to, now); err != nil {
		return pkg, err
	}
	if err := tx.Commit(); err != nil {
		return pkg, err
	}
	pkg.State = to
	pkg.UpdatedAt = now
	return pkg, nil
}
