package domain

// Entity kinds recorded in the transition log.
const (
	KindProviderIntention   = "provider_intention"
	KindSeekerIntention     = "seeker_intention"
	KindProviderOpportunity = "provider_opportunity"
	KindSeekerOpportunity   = "seeker_opportunity"
	KindValidation          = "validation"
	KindValidationDocument  = "validation_document"
	KindMarketingPackage    = "marketing_package"
	KindOperationAgreement  = "operation_agreement"
	KindOperation           = "operation"
)

type Contact struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Notes       string `json:"notes,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type Agent struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	LicenseID   string `json:"license_id,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type Property struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ReferenceCode string `json:"reference_code,omitempty"`
	CreatedAt     string `json:"created_at" format:"date-time"`
	UpdatedAt     string `json:"updated_at" format:"date-time"`
}

type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol,omitempty"`
}

type OperationType struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// ListingReference identifies a listing on an external portal. The portal
// client itself lives outside the core; only the unique reference is tracked.
type ListingReference struct {
	ID         string `json:"id"`
	Portal     string `json:"portal"`
	ExternalID string `json:"external_id"`
	RefCode    string `json:"ref_code,omitempty"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type ProviderIntention struct {
	ID             string  `json:"id"`
	OwnerID        string  `json:"owner_id"`
	AgentID        string  `json:"agent_id"`
	PropertyID     string  `json:"property_id"`
	OperationType  string  `json:"operation_type"`
	State          string  `json:"state" enum:"assessing,valuated,converted,withdrawn"`
	Notes          string  `json:"notes,omitempty"`
	WithdrawReason string  `json:"withdraw_reason,omitempty"`
	ValuationID    *string `json:"valuation_id,omitempty"`
	ContractSigned *string `json:"contract_signed_on,omitempty" format:"date"`
	ConvertedAt    *string `json:"converted_at,omitempty" format:"date-time"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
	UpdatedAt      string  `json:"updated_at" format:"date-time"`
}

// Valuation is the analyst snapshot attached when a provider intention is
// valuated. Test and close values bracket the recommended listing amount.
type Valuation struct {
	ID            string  `json:"id"`
	IntentionID   string  `json:"intention_id"`
	AgentID       string  `json:"agent_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	TestValue     float64 `json:"test_value"`
	CloseValue    float64 `json:"close_value"`
	ValuationDate string  `json:"valuation_date,omitempty" format:"date"`
	DeliveredAt   string  `json:"delivered_at" format:"date-time"`
	Notes         string  `json:"notes,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
}

type SeekerIntention struct {
	ID              string         `json:"id"`
	ContactID       string         `json:"contact_id"`
	AgentID         string         `json:"agent_id"`
	OperationType   string         `json:"operation_type"`
	State           string         `json:"state" enum:"qualifying,active,mandated,converted,fulfilled,abandoned"`
	BudgetMin       *float64       `json:"budget_min,omitempty"`
	BudgetMax       *float64       `json:"budget_max,omitempty"`
	Currency        string         `json:"currency,omitempty"`
	DesiredFeatures map[string]any `json:"desired_features,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	CreatedAt       string         `json:"created_at" format:"date-time"`
	UpdatedAt       string         `json:"updated_at" format:"date-time"`
}

type ProviderOpportunity struct {
	ID                  string  `json:"id"`
	IntentionID         string  `json:"intention_id"`
	ListingReferenceID  string  `json:"listing_reference_id"`
	ListingKind         string  `json:"listing_kind" enum:"exclusive,non_exclusive"`
	State               string  `json:"state" enum:"validating,marketing,closed"`
	GrossCommissionPct  float64 `json:"gross_commission_pct"`
	ContractEffectiveOn *string `json:"contract_effective_on,omitempty" format:"date"`
	ContractExpiresOn   *string `json:"contract_expires_on,omitempty" format:"date"`
	ValuationTestValue  float64 `json:"valuation_test_value"`
	ValuationCloseValue float64 `json:"valuation_close_value"`
	Notes               string  `json:"notes,omitempty"`
	CreatedAt           string  `json:"created_at" format:"date-time"`
	UpdatedAt           string  `json:"updated_at" format:"date-time"`
}

type SeekerOpportunity struct {
	ID                 string  `json:"id"`
	IntentionID        string  `json:"intention_id"`
	State              string  `json:"state" enum:"matching,negotiating,closed"`
	GrossCommissionPct float64 `json:"gross_commission_pct"`
	Notes              string  `json:"notes,omitempty"`
	CreatedAt          string  `json:"created_at" format:"date-time"`
	UpdatedAt          string  `json:"updated_at" format:"date-time"`
}

type Validation struct {
	ID            string  `json:"id"`
	OpportunityID string  `json:"opportunity_id"`
	State         string  `json:"state" enum:"preparing,presented,accepted"`
	PresentedAt   *string `json:"presented_at,omitempty" format:"date-time"`
	ValidatedAt   *string `json:"validated_at,omitempty" format:"date-time"`
	Notes         string  `json:"notes,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
}

// ValidationDocumentType declares a document requirement. A nil OperationType
// applies the requirement to every operation type. AcceptedFormats is the
// allow-list of file extensions; an empty list blocks uploads of this type.
type ValidationDocumentType struct {
	Code            string   `json:"code"`
	Label           string   `json:"label"`
	Required        bool     `json:"required"`
	OperationType   *string  `json:"operation_type,omitempty"`
	AcceptedFormats []string `json:"accepted_formats,omitempty"`
}

// ValidationDocument is an uploaded file under review. Additional (free-form)
// documents carry a nil TypeCode and never participate in the required set.
type ValidationDocument struct {
	ID           string  `json:"id"`
	ValidationID string  `json:"validation_id"`
	TypeCode     *string `json:"type_code,omitempty"`
	FileName     string  `json:"file_name"`
	Observations string  `json:"observations,omitempty"`
	Status       string  `json:"status" enum:"pending,accepted,rejected"`
	ReviewerNote string  `json:"reviewer_note,omitempty"`
	UploadedBy   string  `json:"uploaded_by,omitempty"`
	DecidedBy    string  `json:"decided_by,omitempty"`
	DecidedAt    *string `json:"decided_at,omitempty" format:"date-time"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
	UpdatedAt    string  `json:"updated_at" format:"date-time"`
}

// MarketingPackage is one immutable version of the listing content for a
// provider opportunity. Exactly one version per opportunity is active; only
// IsActive and, on the active row, State may change after creation.
type MarketingPackage struct {
	ID            string   `json:"id"`
	OpportunityID string   `json:"opportunity_id"`
	Version       int      `json:"version"`
	IsActive      bool     `json:"is_active"`
	State         string   `json:"state" enum:"preparing,published,paused"`
	Headline      string   `json:"headline,omitempty"`
	Description   string   `json:"description,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	Features      []string `json:"features,omitempty"`
	MediaAssets   []string `json:"media_assets,omitempty"`
	CreatedAt     string   `json:"created_at" format:"date-time"`
	UpdatedAt     string   `json:"updated_at" format:"date-time"`
}

type OperationAgreement struct {
	ID                    string  `json:"id"`
	ProviderOpportunityID string  `json:"provider_opportunity_id"`
	SeekerOpportunityID   string  `json:"seeker_opportunity_id"`
	State                 string  `json:"state" enum:"pending,agreed,signed,cancelled"`
	InitialOfferedAmount  float64 `json:"initial_offered_amount"`
	Notes                 string  `json:"notes,omitempty"`
	AgreedAt              *string `json:"agreed_at,omitempty" format:"date-time"`
	SignedAt              *string `json:"signed_at,omitempty" format:"date-time"`
	CancelledAt           *string `json:"cancelled_at,omitempty" format:"date-time"`
	CancellationReason    string  `json:"cancellation_reason,omitempty"`
	CreatedAt             string  `json:"created_at" format:"date-time"`
	UpdatedAt             string  `json:"updated_at" format:"date-time"`
}

type Operation struct {
	ID                    string   `json:"id"`
	AgreementID           string   `json:"agreement_id"`
	ProviderOpportunityID string   `json:"provider_opportunity_id"`
	SeekerOpportunityID   string   `json:"seeker_opportunity_id"`
	State                 string   `json:"state" enum:"offered,reinforced,closed,lost"`
	InitialOfferedAmount  float64  `json:"initial_offered_amount"`
	OfferedAmount         *float64 `json:"offered_amount,omitempty"`
	ReserveAmount         float64  `json:"reserve_amount"`
	ReserveDeadline       string   `json:"reserve_deadline" format:"date"`
	ReinforcementAmount   *float64 `json:"reinforcement_amount,omitempty"`
	DeclaredDeedValue     *float64 `json:"declared_deed_value,omitempty"`
	Currency              string   `json:"currency"`
	OccurredAt            *string  `json:"occurred_at,omitempty" format:"date-time"`
	LostReason            string   `json:"lost_reason,omitempty"`
	Notes                 string   `json:"notes,omitempty"`
	CreatedAt             string   `json:"created_at" format:"date-time"`
	UpdatedAt             string   `json:"updated_at" format:"date-time"`
}

// Transition is one row of the append-only audit log. Every state change on
// a tracked entity writes exactly one row in the same transaction.
type Transition struct {
	ID         int64  `json:"id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Transition string `json:"transition"`
	FromState  string `json:"from_state"`
	ToState    string `json:"to_state"`
	ActorID    string `json:"actor_id"`
	OccurredAt string `json:"occurred_at" format:"date-time"`
}

// RequiredDocumentStatus summarizes one required document type's readiness.
type RequiredDocumentStatus struct {
	Code     string              `json:"code"`
	Label    string              `json:"label"`
	Status   string              `json:"status" enum:"missing,pending,accepted,rejected"`
	Document *ValidationDocument `json:"document,omitempty"`
}
