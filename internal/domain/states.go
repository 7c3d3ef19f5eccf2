package domain

// Provider intention states.
const (
	IntentionAssessing = "assessing"
	IntentionValuated  = "valuated"
	IntentionConverted = "converted"
	IntentionWithdrawn = "withdrawn"
)

// Withdraw reasons captured when a provider intention is withdrawn.
const (
	WithdrawLackCommitment = "lack_commitment"
	WithdrawCannotSell     = "cannot_sell"
	WithdrawNoResponse     = "no_response"
)

// Seeker intention states.
const (
	SeekerQualifying = "qualifying"
	SeekerActive     = "active"
	SeekerMandated   = "mandated"
	SeekerConverted  = "converted"
	SeekerFulfilled  = "fulfilled"
	SeekerAbandoned  = "abandoned"
)

// Provider opportunity states.
const (
	OpportunityValidating = "validating"
	OpportunityMarketing  = "marketing"
	OpportunityClosed     = "closed"
)

// Seeker opportunity states.
const (
	SeekerOppMatching    = "matching"
	SeekerOppNegotiating = "negotiating"
	SeekerOppClosed      = "closed"
)

// Validation states.
const (
	ValidationPreparing = "preparing"
	ValidationPresented = "presented"
	ValidationAccepted  = "accepted"
)

// Validation document review statuses.
const (
	DocumentPending  = "pending"
	DocumentAccepted = "accepted"
	DocumentRejected = "rejected"
)

// Marketing package states.
const (
	PackagePreparing = "preparing"
	PackagePublished = "published"
	PackagePaused    = "paused"
)

// Operation agreement states.
const (
	AgreementPending   = "pending"
	AgreementAgreed    = "agreed"
	AgreementSigned    = "signed"
	AgreementCancelled = "cancelled"
)

// Operation states.
const (
	OperationOffered    = "offered"
	OperationReinforced = "reinforced"
	OperationClosed     = "closed"
	OperationLost       = "lost"
)

// Listing kinds for provider opportunities.
const (
	ListingExclusive    = "exclusive"
	ListingNonExclusive = "non_exclusive"
)
