package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"dealflow/internal/domain"
	"dealflow/internal/engine"
	"dealflow/internal/repo"
)

var writeErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusUnprocessableEntity,
	http.StatusInternalServerError,
}

func registerIntake(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-contact",
		Method:        http.MethodPost,
		Path:          "/contacts",
		Summary:       "Create contact",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateContactRequest `json:"body"`
	}) (*struct {
		Body domain.Contact `json:"body"`
	}, error) {
		if input.Body.FirstName == "" || input.Body.LastName == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "first_name and last_name are required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateContact(ctx, domain.Contact{
			ID:          stringOrEmpty(input.Body.ID),
			FirstName:   input.Body.FirstName,
			LastName:    input.Body.LastName,
			Email:       stringOrEmpty(input.Body.Email),
			PhoneNumber: stringOrEmpty(input.Body.PhoneNumber),
			Notes:       stringOrEmpty(input.Body.Notes),
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contact `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-contacts",
		Method:      http.MethodGet,
		Path:        "/contacts",
		Summary:     "List contacts",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Contact `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, engine.PermIntakeManage); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListContacts(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Contact `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-agent",
		Method:        http.MethodPost,
		Path:          "/agents",
		Summary:       "Create agent",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateAgentRequest `json:"body"`
	}) (*struct {
		Body domain.Agent `json:"body"`
	}, error) {
		if input.Body.FirstName == "" || input.Body.LastName == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "first_name and last_name are required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.CreateAgent(ctx, domain.Agent{
			ID:          stringOrEmpty(input.Body.ID),
			FirstName:   input.Body.FirstName,
			LastName:    input.Body.LastName,
			Email:       stringOrEmpty(input.Body.Email),
			PhoneNumber: stringOrEmpty(input.Body.PhoneNumber),
			LicenseID:   stringOrEmpty(input.Body.LicenseID),
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Agent `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-agents",
		Method:      http.MethodGet,
		Path:        "/agents",
		Summary:     "List agents",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Agent `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, engine.PermIntakeManage); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListAgents(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Agent `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-property",
		Method:        http.MethodPost,
		Path:          "/properties",
		Summary:       "Create property",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreatePropertyRequest `json:"body"`
	}) (*struct {
		Body domain.Property `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProperty(ctx, domain.Property{
			ID:            stringOrEmpty(input.Body.ID),
			Name:          input.Body.Name,
			ReferenceCode: stringOrEmpty(input.Body.ReferenceCode),
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Property `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-properties",
		Method:      http.MethodGet,
		Path:        "/properties",
		Summary:     "List properties",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Property `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, engine.PermIntakeManage); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListProperties(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Property `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})
}

func registerCatalog(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-operation-types",
		Method:      http.MethodGet,
		Path:        "/catalog/operation-types",
		Summary:     "List operation types",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.OperationType `json:"body"`
	}, error) {
		items, err := e.Repo.ListOperationTypes(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.OperationType `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-document-types",
		Method:      http.MethodGet,
		Path:        "/catalog/document-types",
		Summary:     "List validation document types",
	}, func(ctx context.Context, input *struct {
		OperationType string `query:"operation_type"`
	}) (*struct {
		Body []domain.ValidationDocumentType `json:"body"`
	}, error) {
		items, err := e.Repo.ListDocumentTypes(ctx, input.OperationType)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ValidationDocumentType `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})
}

func registerProviderIntentions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-provider-intention",
		Method:        http.MethodPost,
		Path:          "/provider-intentions",
		Summary:       "Create provider intention",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateProviderIntentionRequest `json:"body"`
	}) (*struct {
		Body domain.ProviderIntention `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProviderIntention(ctx, engine.ProviderIntentionCreateOptions{
			ID:            stringOrEmpty(input.Body.ID),
			OwnerID:       input.Body.OwnerID,
			AgentID:       input.Body.AgentID,
			PropertyID:    input.Body.PropertyID,
			OperationType: input.Body.OperationType,
			Notes:         stringOrEmpty(input.Body.Notes),
			ActorID:       actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ProviderIntention `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-provider-intentions",
		Method:      http.MethodGet,
		Path:        "/provider-intentions",
		Summary:     "List provider intentions",
	}, func(ctx context.Context, input *struct {
		AgentID    string `query:"agent_id"`
		PropertyID string `query:"property_id"`
		State      string `query:"state" enum:"assessing,valuated,converted,withdrawn,"`
		Limit      int    `query:"limit" default:"50"`
	}) (*struct {
		Body []domain.ProviderIntention `json:"body"`
	}, error) {
		items, err := e.Repo.ListProviderIntentions(ctx, repo.ProviderIntentionFilters{
			AgentID:    input.AgentID,
			PropertyID: input.PropertyID,
			State:      input.State,
			Limit:      normalizeLimit(input.Limit),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ProviderIntention `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-provider-intention",
		Method:      http.MethodGet,
		Path:        "/provider-intentions/{id}",
		Summary:     "Get provider intention",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.ProviderIntention `json:"body"`
	}, error) {
		p, err := e.Repo.GetProviderIntention(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ProviderIntention `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "deliver-valuation",
		Method:        http.MethodPost,
		Path:          "/provider-intentions/{id}/valuation",
		Summary:       "Deliver valuation",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                  `path:"id"`
		Body DeliverValuationRequest `json:"body"`
	}) (*struct {
		Body domain.Valuation `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.ValuationOptions{
			IntentionID:   input.ID,
			Amount:        input.Body.Amount,
			Currency:      input.Body.Currency,
			ValuationDate: stringOrEmpty(input.Body.ValuationDate),
			Notes:         stringOrEmpty(input.Body.Notes),
			ActorID:       actorID,
		}
		if input.Body.TestValue != nil {
			opts.TestValue = *input.Body.TestValue
		}
		if input.Body.CloseValue != nil {
			opts.CloseValue = *input.Body.CloseValue
		}
		v, err := e.DeliverValuation(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Valuation `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-valuations",
		Method:      http.MethodGet,
		Path:        "/provider-intentions/{id}/valuations",
		Summary:     "List valuations for an intention",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body []domain.Valuation `json:"body"`
	}, error) {
		items, err := e.Repo.ListValuationsByIntention(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Valuation `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "withdraw-provider-intention",
		Method:      http.MethodPost,
		Path:        "/provider-intentions/{id}/withdraw",
		Summary:     "Withdraw provider intention",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                   `path:"id"`
		Body WithdrawIntentionRequest `json:"body"`
	}) (*struct {
		Body domain.ProviderIntention `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.WithdrawIntention(ctx, input.ID, input.Body.Reason, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ProviderIntention `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "promote-provider-intention",
		Method:        http.MethodPost,
		Path:          "/provider-intentions/{id}/promote",
		Summary:       "Convert intention into a provider opportunity",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                  `path:"id"`
		Body PromoteIntentionRequest `json:"body"`
	}) (*struct {
		Body domain.ProviderOpportunity `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		o, err := e.PromoteIntention(ctx, engine.PromoteOptions{
			IntentionID:         input.ID,
			GrossCommissionPct:  input.Body.GrossCommissionPct,
			ListingKind:         input.Body.ListingKind,
			ListingExternalID:   stringOrEmpty(input.Body.ListingExternalID),
			ListingRefCode:      stringOrEmpty(input.Body.ListingRefCode),
			ContractSignedOn:    stringOrEmpty(input.Body.ContractSignedOn),
			ContractEffectiveOn: stringOrEmpty(input.Body.ContractEffectiveOn),
			ContractExpiresOn:   stringOrEmpty(input.Body.ContractExpiresOn),
			Headline:            stringOrEmpty(input.Body.Headline),
			Description:         stringOrEmpty(input.Body.Description),
			ActorID:             actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ProviderOpportunity `json:"body"`
		}{Body: o}, nil
	})
}

func registerSeekerIntentions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-seeker-intention",
		Method:        http.MethodPost,
		Path:          "/seeker-intentions",
		Summary:       "Create seeker intention",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateSeekerIntentionRequest `json:"body"`
	}) (*struct {
		Body domain.SeekerIntention `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.CreateSeekerIntention(ctx, engine.SeekerIntentionCreateOptions{
			ID:              stringOrEmpty(input.Body.ID),
			ContactID:       input.Body.ContactID,
			AgentID:         input.Body.AgentID,
			OperationType:   input.Body.OperationType,
			BudgetMin:       input.Body.BudgetMin,
			BudgetMax:       input.Body.BudgetMax,
			Currency:        stringOrEmpty(input.Body.Currency),
			DesiredFeatures: input.Body.DesiredFeatures,
			Notes:           stringOrEmpty(input.Body.Notes),
			ActorID:         actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.SeekerIntention `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-seeker-intentions",
		Method:      http.MethodGet,
		Path:        "/seeker-intentions",
		Summary:     "List seeker intentions",
	}, func(ctx context.Context, input *struct {
		AgentID   string `query:"agent_id"`
		ContactID string `query:"contact_id"`
		State     string `query:"state" enum:"qualifying,active,mandated,converted,fulfilled,abandoned,"`
		Limit     int    `query:"limit" default:"50"`
	}) (*struct {
		Body []domain.SeekerIntention `json:"body"`
	}, error) {
		items, err := e.Repo.ListSeekerIntentions(ctx, repo.SeekerIntentionFilters{
			AgentID:   input.AgentID,
			ContactID: input.ContactID,
			State:     input.State,
			Limit:     normalizeLimit(input.Limit),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.SeekerIntention `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-seeker-intention",
		Method:      http.MethodGet,
		Path:        "/seeker-intentions/{id}",
		Summary:     "Get seeker intention",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.SeekerIntention `json:"body"`
	}, error) {
		s, err := e.Repo.GetSeekerIntention(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.SeekerIntention `json:"body"`
		}{Body: s}, nil
	})

	type seekerAdvance func(context.Context, string, string) (domain.SeekerIntention, error)
	advance := func(opID, path, summary string, fn seekerAdvance) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        path,
			Summary:     summary,
			Errors:      writeErrors,
		}, func(ctx context.Context, input *struct {
			ID string `path:"id"`
		}) (*struct {
			Body domain.SeekerIntention `json:"body"`
		}, error) {
			actorID, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			s, err := fn(ctx, input.ID, actorID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.SeekerIntention `json:"body"`
			}{Body: s}, nil
		})
	}
	advance("activate-seeker-intention", "/seeker-intentions/{id}/activate", "Activate seeker intention", e.ActivateSeekerIntention)
	advance("mandate-seeker-intention", "/seeker-intentions/{id}/mandate", "Mandate seeker intention", e.MandateSeekerIntention)
	advance("abandon-seeker-intention", "/seeker-intentions/{id}/abandon", "Abandon seeker intention", e.AbandonSeekerIntention)

	huma.Register(api, huma.Operation{
		OperationID:   "convert-seeker-intention",
		Method:        http.MethodPost,
		Path:          "/seeker-intentions/{id}/convert",
		Summary:       "Convert intention into a seeker opportunity",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                        `path:"id"`
		Body ConvertSeekerIntentionRequest `json:"body"`
	}) (*struct {
		Body domain.SeekerOpportunity `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		o, err := e.CreateSeekerOpportunity(ctx, engine.SeekerOpportunityCreateOptions{
			IntentionID:        input.ID,
			GrossCommissionPct: input.Body.GrossCommissionPct,
			Notes:              stringOrEmpty(input.Body.Notes),
			ActorID:            actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.SeekerOpportunity `json:"body"`
		}{Body: o}, nil
	})
}

func registerOpportunities(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-provider-opportunities",
		Method:      http.MethodGet,
		Path:        "/provider-opportunities",
		Summary:     "List provider opportunities",
	}, func(ctx context.Context, input *struct {
		State string `query:"state" enum:"validating,marketing,closed,"`
		Limit int    `query:"limit" default:"50"`
	}) (*struct {
		Body []domain.ProviderOpportunity `json:"body"`
	}, error) {
		items, err := e.Repo.ListProviderOpportunities(ctx, repo.ProviderOpportunityFilters{
			State: input.State,
			Limit: normalizeLimit(input.Limit),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ProviderOpportunity `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-provider-opportunity",
		Method:      http.MethodGet,
		Path:        "/provider-opportunities/{id}",
		Summary:     "Get provider opportunity",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.ProviderOpportunity `json:"body"`
	}, error) {
		o, err := e.Repo.GetProviderOpportunity(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ProviderOpportunity `json:"body"`
		}{Body: o}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-provider-opportunity-validation",
		Method:      http.MethodGet,
		Path:        "/provider-opportunities/{id}/validation",
		Summary:     "Get the opportunity's validation",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Validation `json:"body"`
	}, error) {
		v, err := e.Repo.GetValidationByOpportunity(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Validation `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-seeker-opportunities",
		Method:      http.MethodGet,
		Path:        "/seeker-opportunities",
		Summary:     "List seeker opportunities",
	}, func(ctx context.Context, input *struct {
		State string `query:"state" enum:"matching,negotiating,closed,"`
		Limit int    `query:"limit" default:"50"`
	}) (*struct {
		Body []domain.SeekerOpportunity `json:"body"`
	}, error) {
		items, err := e.Repo.ListSeekerOpportunities(ctx, input.State, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.SeekerOpportunity `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-seeker-opportunity",
		Method:      http.MethodGet,
		Path:        "/seeker-opportunities/{id}",
		Summary:     "Get seeker opportunity",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.SeekerOpportunity `json:"body"`
	}, error) {
		o, err := e.Repo.GetSeekerOpportunity(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.SeekerOpportunity `json:"body"`
		}{Body: o}, nil
	})
}

func registerValidations(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-validation",
		Method:      http.MethodGet,
		Path:        "/validations/{id}",
		Summary:     "Get validation",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Validation `json:"body"`
	}, error) {
		v, err := e.Repo.GetValidation(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Validation `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-validation-documents",
		Method:      http.MethodGet,
		Path:        "/validations/{id}/documents",
		Summary:     "List uploaded documents",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body []domain.ValidationDocument `json:"body"`
	}, error) {
		items, err := e.Repo.ListValidationDocuments(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ValidationDocument `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "required-documents",
		Method:      http.MethodGet,
		Path:        "/validations/{id}/required-documents",
		Summary:     "Required document readiness",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body []domain.RequiredDocumentStatus `json:"body"`
	}, error) {
		items, err := e.RequiredDocuments(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.RequiredDocumentStatus `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "upload-validation-document",
		Method:        http.MethodPost,
		Path:          "/validations/{id}/documents",
		Summary:       "Upload a typed document",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                `path:"id"`
		Body UploadDocumentRequest `json:"body"`
	}) (*struct {
		Body domain.ValidationDocument `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.UploadDocumentOptions{
			ValidationID: input.ID,
			TypeCode:     input.Body.TypeCode,
			FileName:     input.Body.FileName,
			Observations: stringOrEmpty(input.Body.Observations),
			ActorID:      actorID,
		}
		var d domain.ValidationDocument
		var err error
		if input.Body.TypeCode == "" {
			d, err = e.UploadAdditionalDocument(ctx, opts)
		} else {
			d, err = e.UploadValidationDocument(ctx, opts)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ValidationDocument `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "review-document",
		Method:      http.MethodPost,
		Path:        "/documents/{id}/review",
		Summary:     "Accept or reject a pending document",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                `path:"id"`
		Body ReviewDocumentRequest `json:"body"`
	}) (*struct {
		Body domain.ValidationDocument `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.ReviewValidationDocument(ctx, engine.ReviewDocumentOptions{
			DocumentID: input.ID,
			Decision:   input.Body.Decision,
			Comment:    stringOrEmpty(input.Body.Comment),
			ActorID:    actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ValidationDocument `json:"body"`
		}{Body: d}, nil
	})

	type validationAdvance func(context.Context, string, string) (domain.Validation, error)
	advance := func(opID, path, summary string, fn validationAdvance) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        path,
			Summary:     summary,
			Errors:      writeErrors,
		}, func(ctx context.Context, input *struct {
			ID string `path:"id"`
		}) (*struct {
			Body domain.Validation `json:"body"`
		}, error) {
			actorID, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			v, err := fn(ctx, input.ID, actorID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.Validation `json:"body"`
			}{Body: v}, nil
		})
	}
	advance("present-validation", "/validations/{id}/present", "Present validation to owner", e.PresentValidation)
	advance("revoke-validation", "/validations/{id}/revoke", "Revoke a presented validation", e.RevokeValidation)
	advance("accept-validation", "/validations/{id}/accept", "Accept validation and start marketing", e.AcceptValidation)
}

func registerMarketing(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-marketing-packages",
		Method:      http.MethodGet,
		Path:        "/provider-opportunities/{id}/packages",
		Summary:     "List package versions",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body []domain.MarketingPackage `json:"body"`
	}, error) {
		items, err := e.Repo.ListMarketingPackages(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.MarketingPackage `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "active-marketing-package",
		Method:      http.MethodGet,
		Path:        "/provider-opportunities/{id}/packages/active",
		Summary:     "Get the active package version",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.MarketingPackage `json:"body"`
	}, error) {
		p, err := e.Repo.ActiveMarketingPackage(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.MarketingPackage `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "revise-marketing-package",
		Method:        http.MethodPost,
		Path:          "/provider-opportunities/{id}/packages",
		Summary:       "Create the next package version",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body RevisePackageRequest `json:"body"`
	}) (*struct {
		Body domain.MarketingPackage `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.ReviseMarketingPackage(ctx, engine.PackageRevisionOptions{
			OpportunityID: input.ID,
			Headline:      stringOrEmpty(input.Body.Headline),
			Description:   stringOrEmpty(input.Body.Description),
			Price:         input.Body.Price,
			Currency:      stringOrEmpty(input.Body.Currency),
			Features:      input.Body.Features,
			MediaAssets:   input.Body.MediaAssets,
			ActorID:       actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.MarketingPackage `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-marketing-package",
		Method:      http.MethodGet,
		Path:        "/packages/{id}",
		Summary:     "Get package version",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.MarketingPackage `json:"body"`
	}, error) {
		p, err := e.Repo.GetMarketingPackage(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.MarketingPackage `json:"body"`
		}{Body: p}, nil
	})

	type packageAdvance func(context.Context, string, string) (domain.MarketingPackage, error)
	advance := func(opID, path, summary string, fn packageAdvance) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        path,
			Summary:     summary,
			Errors:      writeErrors,
		}, func(ctx context.Context, input *struct {
			ID string `path:"id"`
		}) (*struct {
			Body domain.MarketingPackage `json:"body"`
		}, error) {
			actorID, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			p, err := fn(ctx, input.ID, actorID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.MarketingPackage `json:"body"`
			}{Body: p}, nil
		})
	}
	advance("publish-marketing-package", "/packages/{id}/publish", "Publish the active package", e.PublishMarketingPackage)
	advance("pause-marketing-package", "/packages/{id}/pause", "Pause the active package", e.PauseMarketingPackage)
}

func registerAgreements(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-agreement",
		Method:        http.MethodPost,
		Path:          "/agreements",
		Summary:       "Open an operation agreement for a pair",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateAgreementRequest `json:"body"`
	}) (*struct {
		Body domain.OperationAgreement `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.CreateOperationAgreement(ctx, engine.AgreementCreateOptions{
			ProviderOpportunityID: input.Body.ProviderOpportunityID,
			SeekerOpportunityID:   input.Body.SeekerOpportunityID,
			InitialOfferedAmount:  input.Body.InitialOfferedAmount,
			Notes:                 stringOrEmpty(input.Body.Notes),
			ActorID:               actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.OperationAgreement `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-agreements",
		Method:      http.MethodGet,
		Path:        "/agreements",
		Summary:     "List operation agreements",
	}, func(ctx context.Context, input *struct {
		ProviderOpportunityID string `query:"provider_opportunity_id"`
		SeekerOpportunityID   string `query:"seeker_opportunity_id"`
		State                 string `query:"state" enum:"pending,agreed,signed,cancelled,"`
		Limit                 int    `query:"limit" default:"50"`
	}) (*struct {
		Body []domain.OperationAgreement `json:"body"`
	}, error) {
		items, err := e.Repo.ListOperationAgreements(ctx, repo.OperationAgreementFilters{
			ProviderOpportunityID: input.ProviderOpportunityID,
			SeekerOpportunityID:   input.SeekerOpportunityID,
			State:                 input.State,
			Limit:                 normalizeLimit(input.Limit),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.OperationAgreement `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-agreement",
		Method:      http.MethodGet,
		Path:        "/agreements/{id}",
		Summary:     "Get operation agreement",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.OperationAgreement `json:"body"`
	}, error) {
		a, err := e.Repo.GetOperationAgreement(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.OperationAgreement `json:"body"`
		}{Body: a}, nil
	})

	type agreementAdvance func(context.Context, string, string) (domain.OperationAgreement, error)
	advance := func(opID, path, summary string, fn agreementAdvance) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        path,
			Summary:     summary,
			Errors:      writeErrors,
		}, func(ctx context.Context, input *struct {
			ID string `path:"id"`
		}) (*struct {
			Body domain.OperationAgreement `json:"body"`
		}, error) {
			actorID, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			a, err := fn(ctx, input.ID, actorID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.OperationAgreement `json:"body"`
			}{Body: a}, nil
		})
	}
	advance("agree-agreement", "/agreements/{id}/agree", "Mark agreement agreed", e.AgreeAgreement)
	advance("revoke-agreement", "/agreements/{id}/revoke", "Revoke an agreed agreement", e.RevokeAgreement)

	huma.Register(api, huma.Operation{
		OperationID: "cancel-agreement",
		Method:      http.MethodPost,
		Path:        "/agreements/{id}/cancel",
		Summary:     "Cancel agreement",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body CancelAgreementRequest `json:"body"`
	}) (*struct {
		Body domain.OperationAgreement `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.CancelAgreement(ctx, input.ID, input.Body.Reason, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.OperationAgreement `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "sign-agreement",
		Method:        http.MethodPost,
		Path:          "/agreements/{id}/sign",
		Summary:       "Sign agreement and open the operation",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body SignAgreementRequest `json:"body"`
	}) (*struct {
		Body domain.Operation `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		op, err := e.SignAgreement(ctx, engine.SignAgreementOptions{
			AgreementID:   input.ID,
			ReserveAmount: input.Body.ReserveAmount,
			ReserveDate:   input.Body.ReserveDate,
			Currency:      input.Body.Currency,
			Notes:         stringOrEmpty(input.Body.Notes),
			ActorID:       actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Operation `json:"body"`
		}{Body: op}, nil
	})
}

func registerOperations(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-operations",
		Method:      http.MethodGet,
		Path:        "/operations",
		Summary:     "List operations",
	}, func(ctx context.Context, input *struct {
		ProviderOpportunityID string `query:"provider_opportunity_id"`
		SeekerOpportunityID   string `query:"seeker_opportunity_id"`
		State                 string `query:"state" enum:"offered,reinforced,closed,lost,"`
		Limit                 int    `query:"limit" default:"50"`
	}) (*struct {
		Body []domain.Operation `json:"body"`
	}, error) {
		items, err := e.Repo.ListOperations(ctx, repo.OperationFilters{
			ProviderOpportunityID: input.ProviderOpportunityID,
			SeekerOpportunityID:   input.SeekerOpportunityID,
			State:                 input.State,
			Limit:                 normalizeLimit(input.Limit),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Operation `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-operation",
		Method:      http.MethodGet,
		Path:        "/operations/{id}",
		Summary:     "Get operation",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Operation `json:"body"`
	}, error) {
		op, err := e.Repo.GetOperation(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Operation `json:"body"`
		}{Body: op}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reinforce-operation",
		Method:      http.MethodPost,
		Path:        "/operations/{id}/reinforce",
		Summary:     "Reinforce the offer",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                    `path:"id"`
		Body ReinforceOperationRequest `json:"body"`
	}) (*struct {
		Body domain.Operation `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		op, err := e.ReinforceOperation(ctx, engine.ReinforceOptions{
			OperationID:         input.ID,
			OfferedAmount:       input.Body.OfferedAmount,
			ReinforcementAmount: input.Body.ReinforcementAmount,
			DeclaredDeedValue:   input.Body.DeclaredDeedValue,
			Notes:               stringOrEmpty(input.Body.Notes),
			ActorID:             actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Operation `json:"body"`
		}{Body: op}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-operation",
		Method:      http.MethodPost,
		Path:        "/operations/{id}/close",
		Summary:     "Close the operation",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Operation `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		op, err := e.CloseOperation(ctx, input.ID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Operation `json:"body"`
		}{Body: op}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "lose-operation",
		Method:      http.MethodPost,
		Path:        "/operations/{id}/lose",
		Summary:     "Mark the operation lost",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body LoseOperationRequest `json:"body"`
	}) (*struct {
		Body domain.Operation `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		op, err := e.LoseOperation(ctx, input.ID, input.Body.Reason, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Operation `json:"body"`
		}{Body: op}, nil
	})
}

type paginatedTransitions struct {
	Items      []domain.Transition `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

func registerTransitions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-transitions",
		Method:      http.MethodGet,
		Path:        "/transitions",
		Summary:     "List transition log rows, newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		Transition string `query:"transition"`
		ActorID    string `query:"actor_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedTransitions `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		var cursor int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursor = parsed
		}
		items, err := e.Repo.ListTransitions(ctx, repo.TransitionFilters{
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			Transition: input.Transition,
			ActorID:    input.ActorID,
			Limit:      limit + 1,
			Cursor:     cursor,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedTransitions{Items: []domain.Transition{}}
		if len(items) > limit {
			items = items[:limit]
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
		}
		resp.Items = nonNilSlice(items)
		return &struct {
			Body paginatedTransitions `json:"body"`
		}{Body: resp}, nil
	})
}
