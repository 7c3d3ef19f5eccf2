package fsm

import "dealflow/internal/domain"

// Transition names, shared with the transition log.
const (
	DeliverValuation = "deliver_valuation"
	MarkConverted    = "mark_converted"
	Withdraw         = "withdraw"

	Activate = "activate"
	Mandate  = "mandate"
	Fulfill  = "fulfill"
	Abandon  = "abandon"

	StartMarketing   = "start_marketing"
	CloseOpportunity = "close_opportunity"

	StartNegotiation = "start_negotiation"
	Close            = "close"
	ResumeMatching   = "resume_matching"

	Present = "present"
	Revoke  = "revoke"
	Accept  = "accept"
	Reject  = "reject"

	Publish = "publish"
	Pause   = "pause"

	Agree  = "agree"
	Sign   = "sign"
	Cancel = "cancel"

	Reinforce = "reinforce"
	Lose      = "lose"
)

var ProviderIntention = Machine{
	Entity: domain.KindProviderIntention,
	Rules: map[string]Rule{
		DeliverValuation: {Sources: []string{domain.IntentionAssessing}, Target: domain.IntentionValuated},
		MarkConverted:    {Sources: []string{domain.IntentionValuated}, Target: domain.IntentionConverted},
		// Any state except the terminal pair; converted intentions stay converted.
		Withdraw: {Sources: []string{domain.IntentionAssessing, domain.IntentionValuated}, Target: domain.IntentionWithdrawn},
	},
}

var SeekerIntention = Machine{
	Entity: domain.KindSeekerIntention,
	Rules: map[string]Rule{
		Activate:      {Sources: []string{domain.SeekerQualifying}, Target: domain.SeekerActive},
		Mandate:       {Sources: []string{domain.SeekerActive}, Target: domain.SeekerMandated},
		MarkConverted: {Sources: []string{domain.SeekerMandated}, Target: domain.SeekerConverted},
		Fulfill:       {Sources: []string{domain.SeekerConverted}, Target: domain.SeekerFulfilled},
		Abandon:       {Sources: []string{domain.SeekerQualifying, domain.SeekerActive}, Target: domain.SeekerAbandoned},
	},
}

var ProviderOpportunity = Machine{
	Entity: domain.KindProviderOpportunity,
	Rules: map[string]Rule{
		StartMarketing:   {Sources: []string{domain.OpportunityValidating}, Target: domain.OpportunityMarketing},
		CloseOpportunity: {Sources: []string{domain.OpportunityMarketing}, Target: domain.OpportunityClosed},
	},
}

var SeekerOpportunity = Machine{
	Entity: domain.KindSeekerOpportunity,
	Rules: map[string]Rule{
		StartNegotiation: {Sources: []string{domain.SeekerOppMatching}, Target: domain.SeekerOppNegotiating},
		Close:            {Sources: []string{domain.SeekerOppNegotiating}, Target: domain.SeekerOppClosed},
		ResumeMatching:   {Sources: []string{domain.SeekerOppNegotiating}, Target: domain.SeekerOppMatching},
	},
}

var Validation = Machine{
	Entity: domain.KindValidation,
	Rules: map[string]Rule{
		Present: {Sources: []string{domain.ValidationPreparing}, Target: domain.ValidationPresented},
		Revoke:  {Sources: []string{domain.ValidationPresented}, Target: domain.ValidationPreparing},
		Accept:  {Sources: []string{domain.ValidationPresented}, Target: domain.ValidationAccepted},
	},
}

var ValidationDocument = Machine{
	Entity: domain.KindValidationDocument,
	Rules: map[string]Rule{
		Accept: {Sources: []string{domain.DocumentPending}, Target: domain.DocumentAccepted},
		Reject: {Sources: []string{domain.DocumentPending}, Target: domain.DocumentRejected},
	},
}

var MarketingPackage = Machine{
	Entity: domain.KindMarketingPackage,
	Rules: map[string]Rule{
		Publish: {Sources: []string{domain.PackagePreparing, domain.PackagePaused}, Target: domain.PackagePublished},
		Pause:   {Sources: []string{domain.PackagePublished}, Target: domain.PackagePaused},
	},
}

var OperationAgreement = Machine{
	Entity: domain.KindOperationAgreement,
	Rules: map[string]Rule{
		Agree:  {Sources: []string{domain.AgreementPending}, Target: domain.AgreementAgreed},
		Sign:   {Sources: []string{domain.AgreementAgreed}, Target: domain.AgreementSigned},
		Revoke: {Sources: []string{domain.AgreementAgreed}, Target: domain.AgreementPending},
		Cancel: {Sources: []string{domain.AgreementPending, domain.AgreementAgreed}, Target: domain.AgreementCancelled},
	},
}

var Operation = Machine{
	Entity: domain.KindOperation,
	Rules: map[string]Rule{
		Reinforce: {Sources: []string{domain.OperationOffered}, Target: domain.OperationReinforced},
		Close:     {Sources: []string{domain.OperationReinforced}, Target: domain.OperationClosed},
		Lose:      {Sources: []string{domain.OperationOffered, domain.OperationReinforced}, Target: domain.OperationLost},
	},
}
