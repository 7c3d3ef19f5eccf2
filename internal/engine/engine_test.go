package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dealflow/internal/config"
	"dealflow/internal/db"
	"dealflow/internal/domain"
	"dealflow/internal/engine"
	"dealflow/internal/fsm"
	"dealflow/internal/migrate"
	"dealflow/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	if _, err := db.EnsureWorkspace(dir); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	if err := eng.Seed(ctx); err != nil {
		t.Fatalf("seed catalogs: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx}
}

// seedIntake creates the owner, two agents and a property used by most flows.
func seedIntake(t *testing.T, env testEnv) {
	t.Helper()
	if _, err := env.Engine.CreateContact(env.Ctx, domain.Contact{ID: "owner-1", FirstName: "Ana", LastName: "Perez"}, "tester"); err != nil {
		t.Fatalf("create owner: %v", err)
	}
	if _, err := env.Engine.CreateContact(env.Ctx, domain.Contact{ID: "buyer-1", FirstName: "Bruno", LastName: "Gomez"}, "tester"); err != nil {
		t.Fatalf("create buyer: %v", err)
	}
	for _, id := range []string{"agent-1", "agent-2"} {
		if _, err := env.Engine.CreateAgent(env.Ctx, domain.Agent{ID: id, FirstName: "Agent", LastName: id}, "tester"); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if _, err := env.Engine.CreateProperty(env.Ctx, domain.Property{ID: "prop-1", Name: "Av. Libertador 1200"}, "tester"); err != nil {
		t.Fatalf("create property: %v", err)
	}
}

func createIntention(t *testing.T, env testEnv) domain.ProviderIntention {
	t.Helper()
	p, err := env.Engine.CreateProviderIntention(env.Ctx, engine.ProviderIntentionCreateOptions{
		OwnerID:       "owner-1",
		AgentID:       "agent-1",
		PropertyID:    "prop-1",
		OperationType: "sale",
		ActorID:       "tester",
	})
	if err != nil {
		t.Fatalf("create intention: %v", err)
	}
	return p
}

// promoteToValidating valuates and converts the intention, returning the
// opportunity, its validation and the version 1 package.
func promoteToValidating(t *testing.T, env testEnv, intentionID string) (domain.ProviderOpportunity, domain.Validation, domain.MarketingPackage) {
	t.Helper()
	_, err := env.Engine.DeliverValuation(env.Ctx, engine.ValuationOptions{
		IntentionID: intentionID,
		Amount:      950000,
		Currency:    "USD",
		ActorID:     "tester",
	})
	if err != nil {
		t.Fatalf("deliver valuation: %v", err)
	}
	opp, err := env.Engine.PromoteIntention(env.Ctx, engine.PromoteOptions{
		IntentionID:        intentionID,
		GrossCommissionPct: 5,
		ActorID:            "tester",
	})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	val, err := env.Engine.Repo.GetValidationByOpportunity(env.Ctx, opp.ID)
	if err != nil {
		t.Fatalf("get validation: %v", err)
	}
	pkg, err := env.Engine.Repo.ActiveMarketingPackage(env.Ctx, opp.ID)
	if err != nil {
		t.Fatalf("active package: %v", err)
	}
	return opp, val, pkg
}

// completeDossier uploads and accepts every required document for a sale.
func completeDossier(t *testing.T, env testEnv, validationID string) {
	t.Helper()
	for _, code := range []string{"title_deed", "tax_clearance", "owner_id"} {
		d, err := env.Engine.UploadValidationDocument(env.Ctx, engine.UploadDocumentOptions{
			ValidationID: validationID,
			TypeCode:     code,
			FileName:     code + ".pdf",
			ActorID:      "tester",
		})
		if err != nil {
			t.Fatalf("upload %s: %v", code, err)
		}
		if _, err := env.Engine.ReviewValidationDocument(env.Ctx, engine.ReviewDocumentOptions{
			DocumentID: d.ID,
			Decision:   domain.DocumentAccepted,
			ActorID:    "tester",
		}); err != nil {
			t.Fatalf("review %s: %v", code, err)
		}
	}
}

// promoteToMarketing runs the intake-to-marketing pipeline end to end.
func promoteToMarketing(t *testing.T, env testEnv) (domain.ProviderOpportunity, domain.Validation) {
	t.Helper()
	p := createIntention(t, env)
	opp, val, _ := promoteToValidating(t, env, p.ID)
	completeDossier(t, env, val.ID)
	if _, err := env.Engine.PresentValidation(env.Ctx, val.ID, "tester"); err != nil {
		t.Fatalf("present: %v", err)
	}
	val2, err := env.Engine.AcceptValidation(env.Ctx, val.ID, "tester")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	opp2, err := env.Engine.Repo.GetProviderOpportunity(env.Ctx, opp.ID)
	if err != nil {
		t.Fatalf("reload opportunity: %v", err)
	}
	return opp2, val2
}

// mandatedSeeker runs a seeker intention through to a matching opportunity.
func mandatedSeeker(t *testing.T, env testEnv, agentID string) domain.SeekerOpportunity {
	t.Helper()
	s, err := env.Engine.CreateSeekerIntention(env.Ctx, engine.SeekerIntentionCreateOptions{
		ContactID:     "buyer-1",
		AgentID:       agentID,
		OperationType: "sale",
		ActorID:       "tester",
	})
	if err != nil {
		t.Fatalf("create seeker intention: %v", err)
	}
	if _, err := env.Engine.ActivateSeekerIntention(env.Ctx, s.ID, "tester"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := env.Engine.MandateSeekerIntention(env.Ctx, s.ID, "tester"); err != nil {
		t.Fatalf("mandate: %v", err)
	}
	so, err := env.Engine.CreateSeekerOpportunity(env.Ctx, engine.SeekerOpportunityCreateOptions{
		IntentionID:        s.ID,
		GrossCommissionPct: 4,
		ActorID:            "tester",
	})
	if err != nil {
		t.Fatalf("convert seeker: %v", err)
	}
	return so
}

func TestIntentionUniquenessAndWithdraw(t *testing.T) {
	env := newTestEnv(t)
	seedIntake(t, env)
	p := createIntention(t, env)

	_, err := env.Engine.CreateProviderIntention(env.Ctx, engine.ProviderIntentionCreateOptions{
		OwnerID: "owner-1", AgentID: "agent-1", PropertyID: "prop-1", OperationType: "sale", ActorID: "tester",
	})
	var guard *engine.GuardError
	if !errors.As(err, &guard) || guard.Rule != "intention_unique" {
		t.Fatalf("expected intention_unique guard, got %v", err)
	}

	if _, err := env.Engine.WithdrawIntention(env.Ctx, p.ID, "bad_reason", "tester"); err == nil {
		t.Fatalf("expected unknown reason to fail")
	}
	withdrawn, err := env.Engine.WithdrawIntention(env.Ctx, p.ID, domain.WithdrawCannotSell, "tester")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if withdrawn.State != domain.IntentionWithdrawn || withdrawn.WithdrawReason != domain.WithdrawCannotSell {
		t.Fatalf("unexpected withdrawn row: %+v", withdrawn)
	}

	// pair is free again after the withdrawal
	if _, err := env.Engine.CreateProviderIntention(env.Ctx, engine.ProviderIntentionCreateOptions{
		OwnerID: "owner-1", AgentID: "agent-1", PropertyID: "prop-1", OperationType: "sale", ActorID: "tester",
	}); err != nil {
		t.Fatalf("recreate after withdraw: %v", err)
	}
}

func TestValuationAndPromotion(t *testing.T) {
	env := newTestEnv(t)
	seedIntake(t, env)
	p := createIntention(t, env)

	// valuation requires assessing state data to be sane
	if _, err := env.Engine.DeliverValuation(env.Ctx, engine.ValuationOptions{IntentionID: p.ID, Amount: -1, Currency: "USD", ActorID: "tester"}); err == nil {
		t.Fatalf("expected negative amount to fail")
	}
	// promote before valuation is an invalid transition
	_, err := env.Engine.PromoteIntention(env.Ctx, engine.PromoteOptions{IntentionID: p.ID, GrossCommissionPct: 5, ActorID: "tester"})
	var inv *fsm.InvalidTransitionError
	if !errors.As(err, &inv) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	v, err := env.Engine.DeliverValuation(env.Ctx, engine.ValuationOptions{
		IntentionID: p.ID, Amount: 950000, Currency: "USD", ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("valuate: %v", err)
	}
	if v.TestValue != 950000 || v.CloseValue != 950000 {
		t.Fatalf("expected test/close values to default to the amount: %+v", v)
	}

	opp, err := env.Engine.PromoteIntention(env.Ctx, engine.PromoteOptions{IntentionID: p.ID, GrossCommissionPct: 5, ActorID: "tester"})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if opp.State != domain.OpportunityValidating {
		t.Fatalf("expected validating opportunity, got %s", opp.State)
	}
	val, err := env.Engine.Repo.GetValidationByOpportunity(env.Ctx, opp.ID)
	if err != nil || val.State != domain.ValidationPreparing {
		t.Fatalf("expected preparing validation: %v %+v", err, val)
	}
	pkg, err := env.Engine.Repo.ActiveMarketingPackage(env.Ctx, opp.ID)
	if err != nil {
		t.Fatalf("active package: %v", err)
	}
	if pkg.Version != 1 || !pkg.IsActive || pkg.State != domain.PackagePreparing {
		t.Fatalf("unexpected v1 package: %+v", pkg)
	}
	if pkg.Price == nil || *pkg.Price != 950000 || pkg.Currency != "USD" {
		t.Fatalf("expected price seeded from valuation: %+v", pkg)
	}

	// converted intentions cannot be promoted twice
	if _, err := env.Engine.PromoteIntention(env.Ctx, engine.PromoteOptions{IntentionID: p.ID, GrossCommissionPct: 5, ActorID: "tester"}); !errors.As(err, &inv) {
		t.Fatalf("expected invalid transition on second promote, got %v", err)
	}
}

func TestDocumentGate(t *testing.T) {
	env := newTestEnv(t)
	seedIntake(t, env)
	p := createIntention(t, env)
	_, val, _ := promoteToValidating(t, env, p.ID)

	// extension not on the accepted list
	_, err := env.Engine.UploadValidationDocument(env.Ctx, engine.UploadDocumentOptions{
		ValidationID: val.ID, TypeCode: "title_deed", FileName: "deed.exe", ActorID: "tester",
	})
	var guard *engine.GuardError
	if !errors.As(err, &guard) || guard.Rule != "document_format" {
		t.Fatalf("expected document_format guard, got %v", err)
	}

	// present blocked while required uploads are missing
	_, err = env.Engine.PresentValidation(env.Ctx, val.ID, "tester")
	if !errors.As(err, &guard) || guard.Rule != "documents_incomplete" {
		t.Fatalf("expected documents_incomplete, got %v", err)
	}

	var docs []domain.ValidationDocument
	for _, code := range []string{"title_deed", "tax_clearance", "owner_id"} {
		d, err := env.Engine.UploadValidationDocument(env.Ctx, engine.UploadDocumentOptions{
			ValidationID: val.ID, TypeCode: code, FileName: code + ".pdf", ActorID: "tester",
		})
		if err != nil {
			t.Fatalf("upload %s: %v", code, err)
		}
		docs = append(docs, d)
	}

	// uploads present but unreviewed: present passes, accept does not
	if _, err := env.Engine.PresentValidation(env.Ctx, val.ID, "tester"); err != nil {
		t.Fatalf("present: %v", err)
	}
	var inv *fsm.InvalidTransitionError
	if _, err := env.Engine.PresentValidation(env.Ctx, val.ID, "tester"); !errors.As(err, &inv) {
		t.Fatalf("expected invalid transition on second present, got %v", err)
	}
	_, err = env.Engine.AcceptValidation(env.Ctx, val.ID, "tester")
	if !errors.As(err, &guard) || guard.Rule != "documents_not_reviewed" {
		t.Fatalf("expected documents_not_reviewed, got %v", err)
	}

	// a rejected document is reviewed; the latest upload per type decides
	if _, err := env.Engine.ReviewValidationDocument(env.Ctx, engine.ReviewDocumentOptions{
		DocumentID: docs[0].ID, Decision: domain.DocumentRejected, Comment: "blurry scan", ActorID: "tester",
	}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	redo, err := env.Engine.UploadValidationDocument(env.Ctx, engine.UploadDocumentOptions{
		ValidationID: val.ID, TypeCode: "title_deed", FileName: "title_deed_v2.pdf", ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("re-upload: %v", err)
	}
	for _, d := range []domain.ValidationDocument{redo, docs[1], docs[2]} {
		if _, err := env.Engine.ReviewValidationDocument(env.Ctx, engine.ReviewDocumentOptions{
			DocumentID: d.ID, Decision: domain.DocumentAccepted, ActorID: "tester",
		}); err != nil {
			t.Fatalf("accept doc: %v", err)
		}
	}

	accepted, err := env.Engine.AcceptValidation(env.Ctx, val.ID, "tester")
	if err != nil {
		t.Fatalf("accept validation: %v", err)
	}
	if accepted.State != domain.ValidationAccepted || accepted.ValidatedAt == nil {
		t.Fatalf("unexpected accepted validation: %+v", accepted)
	}

	// the dossier is closed for good
	_, err = env.Engine.UploadValidationDocument(env.Ctx, engine.UploadDocumentOptions{
		ValidationID: val.ID, TypeCode: "floor_plan", FileName: "plan.pdf", ActorID: "tester",
	})
	var closed *engine.ValidationClosedError
	if !errors.As(err, &closed) {
		t.Fatalf("expected validation closed, got %v", err)
	}
}

func TestLatestUploadPerTypeWins(t *testing.T) {
	env := newTestEnv(t)
	seedIntake(t, env)
	p := createIntention(t, env)
	_, val, _ := promoteToValidating(t, env, p.ID)

	// two uploads of the same type within the same second; the second one
	// must decide the status regardless of id ordering
	first, err := env.Engine.UploadValidationDocument(env.Ctx, engine.UploadDocumentOptions{
		ValidationID: val.ID, TypeCode: "owner_id", FileName: "dni-blurry.pdf", ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("upload first: %v", err)
	}
	if _, err := env.Engine.UploadValidationDocument(env.Ctx, engine.UploadDocumentOptions{
		ValidationID: val.ID, TypeCode: "owner_id", FileName: "dni.pdf", ActorID: "tester",
	}); err != nil {
		t.Fatalf("upload second: %v", err)
	}
	if _, err := env.Engine.ReviewValidationDocument(env.Ctx, engine.ReviewDocumentOptions{
		DocumentID: first.ID, Decision: domain.DocumentRejected, Comment: "unreadable", ActorID: "tester",
	}); err != nil {
		t.Fatalf("reject first: %v", err)
	}

	summary, err := env.Engine.RequiredDocuments(env.Ctx, val.ID)
	if err != nil {
		t.Fatalf("required documents: %v", err)
	}
	for _, s := range summary {
		if s.Code != "owner_id" {
			continue
		}
		if s.Status != domain.DocumentPending {
			t.Fatalf("expected the later upload to decide, got %s", s.Status)
		}
		if s.Document == nil || s.Document.FileName != "dni.pdf" {
			t.Fatalf("expected latest upload in summary, got %+v", s.Document)
		}
	}
}

func TestAcceptCascade(t *testing.T) {
	env := newTestEnv(t)
	seedIntake(t, env)
	opp, val := promoteToMarketing(t, env)

	if opp.State != domain.OpportunityMarketing {
		t.Fatalf("expected marketing opportunity, got %s", opp.State)
	}
	pkg, err := env.Engine.Repo.ActiveMarketingPackage(env.Ctx, opp.ID)
	if err != nil || pkg.State != domain.PackagePublished {
		t.Fatalf("expected published package: %v %+v", err, pkg)
	}

	// the cascade logs one row per entity it moved
	rows, err := env.Engine.Repo.ListTransitions(env.Ctx, repo.TransitionFilters{Transition: "accept", EntityKind: domain.KindValidation})
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one validation accept row: %v %d", err, len(rows))
	}
	rows, err = env.Engine.Repo.ListTransitions(env.Ctx, repo.TransitionFilters{EntityKind: domain.KindProviderOpportunity, EntityID: opp.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one opportunity row: %v %d", err, len(rows))
	}
	rows, err = env.Engine.Repo.ListTransitions(env.Ctx, repo.TransitionFilters{EntityKind: domain.KindMarketingPackage, EntityID: pkg.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one package row: %v %d", err, len(rows))
	}
	_ = val
}

func TestPackageRevisioning(t *testing.T) {
	env := newTestEnv(t)
	seedIntake(t, env)
	opp, _ := promoteToMarketing(t, env)

	price := 899000.0
	v2, err := env.Engine.ReviseMarketingPackage(env.Ctx, engine.PackageRevisionOptions{
		OpportunityID: opp.ID,
		Headline:      "Price drop",
		Price:         &price,
		ActorID:       "tester",
	})
	if err != nil {
		t.Fatalf("revise: %v", err)
	}
	if v2.Version != 2 || !v2.IsActive {
		t.Fatalf("expected active v2, got %+v", v2)
	}
	if v2.State != domain.PackagePublished {
		t.Fatalf("expected revision to inherit the published state, got %s", v2.State)
	}
	if v2.Currency != "USD" {
		t.Fatalf("expected currency inherited from v1, got %q", v2.Currency)
	}

	v3, err := env.Engine.ReviseMarketingPackage(env.Ctx, engine.PackageRevisionOptions{OpportunityID: opp.ID, ActorID: "tester"})
	if err != nil {
		t.Fatalf("revise again: %v", err)
	}
	if v3.Version != 3 || v3.Headline != "Price drop" || v3.Price == nil || *v3.Price != price {
		t.Fatalf("expected v3 to inherit v2 content: %+v", v3)
	}

	all, err := env.Engine.Repo.ListMarketingPackages(env.Ctx, opp.ID)
	if err != nil {
		t.Fatalf("list packages: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(all))
	}
	active := 0
	for i, p := range all {
		if p.Version != len(all)-i {
			t.Fatalf("expected newest version first, got %d at index %d", p.Version, i)
		}
		if p.IsActive {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active version, got %d", active)
	}

	// only the active version can move
	oldest := all[len(all)-1]
	if _, err := env.Engine.PauseMarketingPackage(env.Ctx, oldest.ID, "tester"); err == nil {
		t.Fatalf("expected inactive version to be frozen")
	}
	paused, err := env.Engine.PauseMarketingPackage(env.Ctx, v3.ID, "tester")
	if err != nil || paused.State != domain.PackagePaused {
		t.Fatalf("pause active: %v %+v", err, paused)
	}
	republished, err := env.Engine.PublishMarketingPackage(env.Ctx, v3.ID, "tester")
	if err != nil || republished.State != domain.PackagePublished {
		t.Fatalf("republish: %v %+v", err, republished)
	}
}

func TestSeekerLifecycle(t *testing.T) {
	env := newTestEnv(t)
	seedIntake(t, env)

	low, high := 300000.0, 200000.0
	_, err := env.Engine.CreateSeekerIntention(env.Ctx, engine.SeekerIntentionCreateOptions{
		ContactID: "buyer-1", AgentID: "agent-2", OperationType: "sale",
		BudgetMin: &low, BudgetMax: &high, ActorID: "tester",
	})
	var guard *engine.GuardError
	if !errors.As(err, &guard) || guard.Rule != "budget_range" {
		t.Fatalf("expected budget_range guard, got %v", err)
	}

	so := mandatedSeeker(t, env, "agent-2")
	if so.State != domain.SeekerOppMatching {
		t.Fatalf("expected matching opportunity, got %s", so.State)
	}
	si, err := env.Engine.Repo.GetSeekerIntention(env.Ctx, so.IntentionID)
	if err != nil || si.State != domain.SeekerConverted {
		t.Fatalf("expected converted intention: %v %+v", err, si)
	}

	// converted intentions cannot be abandoned
	var inv *fsm.InvalidTransitionError
	if _, err := env.Engine.AbandonSeekerIntention(env.Ctx, si.ID, "tester"); !errors.As(err, &inv) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestAgreementToClosedOperation(t *testing.T) {
	env := newTestEnv(t)
	seedIntake(t, env)
	opp, _ := promoteToMarketing(t, env)
	so := mandatedSeeker(t, env, "agent-2")

	// only the seeker's agent may open the agreement; unbound actors act as
	// themselves
	_, err := env.Engine.CreateOperationAgreement(env.Ctx, engine.AgreementCreateOptions{
		ProviderOpportunityID: opp.ID,
		SeekerOpportunityID:   so.ID,
		InitialOfferedAmount:  900000,
		ActorID:               "agent-1",
	})
	var guard *engine.GuardError
	if !errors.As(err, &guard) || guard.Rule != "agreement_actor" {
		t.Fatalf("expected agreement_actor guard, got %v", err)
	}

	a, err := env.Engine.CreateOperationAgreement(env.Ctx, engine.AgreementCreateOptions{
		ProviderOpportunityID: opp.ID,
		SeekerOpportunityID:   so.ID,
		InitialOfferedAmount:  900000,
		ActorID:               "agent-2",
	})
	if err != nil {
		t.Fatalf("create agreement: %v", err)
	}
	if a.State != domain.AgreementPending {
		t.Fatalf("expected pending agreement across two agents, got %s", a.State)
	}

	// one open agreement per pair
	_, err = env.Engine.CreateOperationAgreement(env.Ctx, engine.AgreementCreateOptions{
		ProviderOpportunityID: opp.ID, SeekerOpportunityID: so.ID, InitialOfferedAmount: 1, ActorID: "agent-2",
	})
	if !errors.As(err, &guard) || guard.Rule != "agreement_exists" {
		t.Fatalf("expected agreement_exists, got %v", err)
	}

	if _, err := env.Engine.AgreeAgreement(env.Ctx, a.ID, "agent-1"); err != nil {
		t.Fatalf("agree: %v", err)
	}
	op, err := env.Engine.SignAgreement(env.Ctx, engine.SignAgreementOptions{
		AgreementID:   a.ID,
		ReserveAmount: 50000,
		ReserveDate:   "2025-06-15",
		Currency:      "USD",
		ActorID:       "agent-2",
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if op.State != domain.OperationOffered {
		t.Fatalf("expected offered operation, got %s", op.State)
	}

	// signature pauses the published package and starts negotiation
	pkg, err := env.Engine.Repo.ActiveMarketingPackage(env.Ctx, opp.ID)
	if err != nil || pkg.State != domain.PackagePaused {
		t.Fatalf("expected paused package: %v %+v", err, pkg)
	}
	so2, err := env.Engine.Repo.GetSeekerOpportunity(env.Ctx, so.ID)
	if err != nil || so2.State != domain.SeekerOppNegotiating {
		t.Fatalf("expected negotiating seeker: %v %+v", err, so2)
	}

	// publish is blocked while the operation is in flight
	if _, err := env.Engine.PublishMarketingPackage(env.Ctx, pkg.ID, "tester"); err == nil {
		t.Fatalf("expected publish blocked by active operation")
	}

	op2, err := env.Engine.ReinforceOperation(env.Ctx, engine.ReinforceOptions{OperationID: op.ID, ActorID: "tester"})
	if err != nil {
		t.Fatalf("reinforce: %v", err)
	}
	if op2.OfferedAmount == nil || *op2.OfferedAmount != 900000 {
		t.Fatalf("expected offered amount to prefill from initial offer: %+v", op2)
	}

	closed, err := env.Engine.CloseOperation(env.Ctx, op.ID, "tester")
	if err != nil || closed.State != domain.OperationClosed {
		t.Fatalf("close: %v %+v", err, closed)
	}
	po, err := env.Engine.Repo.GetProviderOpportunity(env.Ctx, opp.ID)
	if err != nil || po.State != domain.OpportunityClosed {
		t.Fatalf("expected closed provider opportunity: %v %+v", err, po)
	}
	so3, err := env.Engine.Repo.GetSeekerOpportunity(env.Ctx, so.ID)
	if err != nil || so3.State != domain.SeekerOppClosed {
		t.Fatalf("expected closed seeker opportunity: %v %+v", err, so3)
	}
	si, err := env.Engine.Repo.GetSeekerIntention(env.Ctx, so.IntentionID)
	if err != nil || si.State != domain.SeekerFulfilled {
		t.Fatalf("expected fulfilled seeker intention: %v %+v", err, si)
	}
}

func TestLostOperationResumesMatching(t *testing.T) {
	env := newTestEnv(t)
	seedIntake(t, env)
	opp, _ := promoteToMarketing(t, env)
	so := mandatedSeeker(t, env, "agent-2")

	a, err := env.Engine.CreateOperationAgreement(env.Ctx, engine.AgreementCreateOptions{
		ProviderOpportunityID: opp.ID, SeekerOpportunityID: so.ID, InitialOfferedAmount: 900000, ActorID: "agent-2",
	})
	if err != nil {
		t.Fatalf("create agreement: %v", err)
	}
	if _, err := env.Engine.AgreeAgreement(env.Ctx, a.ID, "agent-1"); err != nil {
		t.Fatalf("agree: %v", err)
	}
	op, err := env.Engine.SignAgreement(env.Ctx, engine.SignAgreementOptions{
		AgreementID: a.ID, ReserveAmount: 50000, ReserveDate: "2025-06-15", Currency: "USD", ActorID: "agent-2",
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	lost, err := env.Engine.LoseOperation(env.Ctx, op.ID, "buyer backed out", "tester")
	if err != nil || lost.State != domain.OperationLost || lost.LostReason != "buyer backed out" {
		t.Fatalf("lose: %v %+v", err, lost)
	}
	so2, err := env.Engine.Repo.GetSeekerOpportunity(env.Ctx, so.ID)
	if err != nil || so2.State != domain.SeekerOppMatching {
		t.Fatalf("expected seeker back to matching: %v %+v", err, so2)
	}
	// losing frees the pair for a fresh agreement
	if _, err := env.Engine.CreateOperationAgreement(env.Ctx, engine.AgreementCreateOptions{
		ProviderOpportunityID: opp.ID, SeekerOpportunityID: so.ID, InitialOfferedAmount: 850000, ActorID: "agent-2",
	}); err != nil {
		t.Fatalf("expected new agreement after loss: %v", err)
	}
}

func TestSeekerStaysNegotiatingWithSiblingOperation(t *testing.T) {
	env := newTestEnv(t)
	seedIntake(t, env)
	opp1, _ := promoteToMarketing(t, env)
	if _, err := env.Engine.CreateProperty(env.Ctx, domain.Property{ID: "prop-2", Name: "Callao 400"}, "tester"); err != nil {
		t.Fatalf("create property: %v", err)
	}
	p2, err := env.Engine.CreateProviderIntention(env.Ctx, engine.ProviderIntentionCreateOptions{
		OwnerID: "owner-1", AgentID: "agent-1", PropertyID: "prop-2", OperationType: "sale", ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create second intention: %v", err)
	}
	opp2, val2, _ := promoteToValidating(t, env, p2.ID)
	completeDossier(t, env, val2.ID)
	if _, err := env.Engine.PresentValidation(env.Ctx, val2.ID, "tester"); err != nil {
		t.Fatalf("present: %v", err)
	}
	if _, err := env.Engine.AcceptValidation(env.Ctx, val2.ID, "tester"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	so := mandatedSeeker(t, env, "agent-2")

	signFor := func(providerOppID string) domain.Operation {
		t.Helper()
		a, err := env.Engine.CreateOperationAgreement(env.Ctx, engine.AgreementCreateOptions{
			ProviderOpportunityID: providerOppID, SeekerOpportunityID: so.ID, InitialOfferedAmount: 900000, ActorID: "agent-2",
		})
		if err != nil {
			t.Fatalf("create agreement for %s: %v", providerOppID, err)
		}
		if _, err := env.Engine.AgreeAgreement(env.Ctx, a.ID, "agent-1"); err != nil {
			t.Fatalf("agree: %v", err)
		}
		op, err := env.Engine.SignAgreement(env.Ctx, engine.SignAgreementOptions{
			AgreementID: a.ID, ReserveAmount: 50000, ReserveDate: "2025-06-15", Currency: "USD", ActorID: "agent-2",
		})
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return op
	}

	op1 := signFor(opp1.ID)
	op2 := signFor(opp2.ID)

	// a sibling operation is still live, so the seeker keeps negotiating
	if _, err := env.Engine.LoseOperation(env.Ctx, op1.ID, "outbid", "tester"); err != nil {
		t.Fatalf("lose first: %v", err)
	}
	so2, err := env.Engine.Repo.GetSeekerOpportunity(env.Ctx, so.ID)
	if err != nil || so2.State != domain.SeekerOppNegotiating {
		t.Fatalf("expected seeker still negotiating: %v %+v", err, so2)
	}

	// losing the last one resumes matching
	if _, err := env.Engine.LoseOperation(env.Ctx, op2.ID, "buyer backed out", "tester"); err != nil {
		t.Fatalf("lose last: %v", err)
	}
	so3, err := env.Engine.Repo.GetSeekerOpportunity(env.Ctx, so.ID)
	if err != nil || so3.State != domain.SeekerOppMatching {
		t.Fatalf("expected seeker back to matching: %v %+v", err, so3)
	}
}

func TestSharedAgentAutoAgrees(t *testing.T) {
	env := newTestEnv(t)
	seedIntake(t, env)
	opp, _ := promoteToMarketing(t, env)
	so := mandatedSeeker(t, env, "agent-1")

	a, err := env.Engine.CreateOperationAgreement(env.Ctx, engine.AgreementCreateOptions{
		ProviderOpportunityID: opp.ID, SeekerOpportunityID: so.ID, InitialOfferedAmount: 900000, ActorID: "agent-1",
	})
	if err != nil {
		t.Fatalf("create agreement: %v", err)
	}
	if a.State != domain.AgreementAgreed || a.AgreedAt == nil {
		t.Fatalf("expected immediate agreement for a shared agent, got %+v", a)
	}
}
