package server

// Request payloads. Responses reuse the domain types, which carry their own
// JSON tags and enums.

type CreateContactRequest struct {
	ID          *string `json:"id,omitempty"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Email       *string `json:"email,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

type CreateAgentRequest struct {
	ID          *string `json:"id,omitempty"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Email       *string `json:"email,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	LicenseID   *string `json:"license_id,omitempty"`
}

type CreatePropertyRequest struct {
	ID            *string `json:"id,omitempty"`
	Name          string  `json:"name"`
	ReferenceCode *string `json:"reference_code,omitempty"`
}

type CreateProviderIntentionRequest struct {
	ID            *string `json:"id,omitempty"`
	OwnerID       string  `json:"owner_id"`
	AgentID       string  `json:"agent_id"`
	PropertyID    string  `json:"property_id"`
	OperationType string  `json:"operation_type" enum:"sale,rent"`
	Notes         *string `json:"notes,omitempty"`
}

type DeliverValuationRequest struct {
	Amount        float64  `json:"amount"`
	Currency      string   `json:"currency"`
	TestValue     *float64 `json:"test_value,omitempty"`
	CloseValue    *float64 `json:"close_value,omitempty"`
	ValuationDate *string  `json:"valuation_date,omitempty" format:"date"`
	Notes         *string  `json:"notes,omitempty"`
}

type WithdrawIntentionRequest struct {
	Reason string `json:"reason" enum:"lack_commitment,cannot_sell,no_response"`
}

type PromoteIntentionRequest struct {
	GrossCommissionPct  float64 `json:"gross_commission_pct"`
	ListingKind         string  `json:"listing_kind,omitempty" enum:"exclusive,non_exclusive"`
	ListingExternalID   *string `json:"listing_external_id,omitempty"`
	ListingRefCode      *string `json:"listing_ref_code,omitempty"`
	ContractSignedOn    *string `json:"contract_signed_on,omitempty" format:"date"`
	ContractEffectiveOn *string `json:"contract_effective_on,omitempty" format:"date"`
	ContractExpiresOn   *string `json:"contract_expires_on,omitempty" format:"date"`
	Headline            *string `json:"headline,omitempty"`
	Description         *string `json:"description,omitempty"`
}

type CreateSeekerIntentionRequest struct {
	ID              *string        `json:"id,omitempty"`
	ContactID       string         `json:"contact_id"`
	AgentID         string         `json:"agent_id"`
	OperationType   string         `json:"operation_type" enum:"sale,rent"`
	BudgetMin       *float64       `json:"budget_min,omitempty"`
	BudgetMax       *float64       `json:"budget_max,omitempty"`
	Currency        *string        `json:"currency,omitempty"`
	DesiredFeatures map[string]any `json:"desired_features,omitempty"`
	Notes           *string        `json:"notes,omitempty"`
}

type ConvertSeekerIntentionRequest struct {
	GrossCommissionPct float64 `json:"gross_commission_pct"`
	Notes              *string `json:"notes,omitempty"`
}

type UploadDocumentRequest struct {
	TypeCode     string  `json:"type_code,omitempty"`
	FileName     string  `json:"file_name"`
	Observations *string `json:"observations,omitempty"`
}

type ReviewDocumentRequest struct {
	Decision string  `json:"decision" enum:"accepted,rejected"`
	Comment  *string `json:"comment,omitempty"`
}

type RevisePackageRequest struct {
	Headline    *string  `json:"headline,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Currency    *string  `json:"currency,omitempty"`
	Features    []string `json:"features,omitempty"`
	MediaAssets []string `json:"media_assets,omitempty"`
}

type CreateAgreementRequest struct {
	ProviderOpportunityID string  `json:"provider_opportunity_id"`
	SeekerOpportunityID   string  `json:"seeker_opportunity_id"`
	InitialOfferedAmount  float64 `json:"initial_offered_amount"`
	Notes                 *string `json:"notes,omitempty"`
}

type CancelAgreementRequest struct {
	Reason string `json:"reason"`
}

type SignAgreementRequest struct {
	ReserveAmount float64 `json:"reserve_amount"`
	ReserveDate   string  `json:"reserve_date" format:"date"`
	Currency      string  `json:"currency"`
	Notes         *string `json:"notes,omitempty"`
}

type ReinforceOperationRequest struct {
	OfferedAmount       *float64 `json:"offered_amount,omitempty"`
	ReinforcementAmount *float64 `json:"reinforcement_amount,omitempty"`
	DeclaredDeedValue   *float64 `json:"declared_deed_value,omitempty"`
	Notes               *string  `json:"notes,omitempty"`
}

type LoseOperationRequest struct {
	Reason string `json:"reason,omitempty"`
}

type RoleChangeRequest struct {
	ActorID string `json:"actor_id"`
	RoleID  string `json:"role_id"`
}

type BindAgentRequest struct {
	ActorID string `json:"actor_id"`
	AgentID string `json:"agent_id"`
}

type DevLoginRequest struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles,omitempty"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

type WhoAmIResponse struct {
	ActorID     string   `json:"actor_id"`
	AgentID     string   `json:"agent_id,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

func stringOrEmpty(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
