package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dealflow/internal/config"
	"dealflow/internal/db"
	"dealflow/internal/domain"
	"dealflow/internal/engine"
	"dealflow/internal/engine/auth"
	"dealflow/internal/migrate"
	"dealflow/internal/notify"
	"dealflow/internal/repo"
	"dealflow/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "dfl",
	Short: "Dealflow CLI",
	Long: `Dealflow runs a brokerage deal pipeline: intentions, opportunities,
validations, marketing packages, agreements and operations, each on its own
state machine with an append-only transition log.
- Workspace: the .dealflow directory holds the database; dealflow.yml next
  to it configures catalogs, roles and the listing portal.
- Provider side: intention (assessing -> valuated -> converted) then
  opportunity (validating -> marketing -> closed).
- Seeker side: intention (qualifying -> active -> mandated -> converted)
  then opportunity (matching -> negotiating -> closed).
- Validation gates marketing behind reviewed documents; marketing packages
  version immutably with exactly one active version.
- Agreements pair both sides; signing opens the operation
  (offered -> reinforced -> closed/lost).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("DEALFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(contactCmd())
	rootCmd.AddCommand(agentCmd())
	rootCmd.AddCommand(propertyCmd())
	rootCmd.AddCommand(intentionCmd())
	rootCmd.AddCommand(seekerCmd())
	rootCmd.AddCommand(validationCmd())
	rootCmd.AddCommand(packageCmd())
	rootCmd.AddCommand(agreementCmd())
	rootCmd.AddCommand(operationCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(rbacCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default dealflow.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load catalogs and roles from dealflow.yml into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.Seed(ctx); err != nil {
					return err
				}
				if err := e.SeedRoles(ctx); err != nil {
					return err
				}
				fmt.Println("Seeded catalogs and roles")
				return nil
			})
		},
	}
}

func contactCmd() *cobra.Command {
	c := &cobra.Command{Use: "contact", Short: "Manage contacts"}
	var contact struct{ ID, First, Last, Email, Phone, Notes string }
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a contact",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.CreateContact(ctx, domain.Contact{
					ID:          contact.ID,
					FirstName:   contact.First,
					LastName:    contact.Last,
					Email:       contact.Email,
					PhoneNumber: contact.Phone,
					Notes:       contact.Notes,
				}, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(out)
			})
		},
	}
	create.Flags().StringVar(&contact.ID, "id", "", "contact id (optional)")
	create.Flags().StringVar(&contact.First, "first-name", "", "first name")
	create.Flags().StringVar(&contact.Last, "last-name", "", "last name")
	create.Flags().StringVar(&contact.Email, "email", "", "email")
	create.Flags().StringVar(&contact.Phone, "phone", "", "phone number")
	create.Flags().StringVar(&contact.Notes, "notes", "", "notes")
	_ = create.MarkFlagRequired("first-name")
	_ = create.MarkFlagRequired("last-name")
	c.AddCommand(create)

	c.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListContacts(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Name", "Email", "Phone")
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.FirstName + " " + it.LastName, it.Email, it.PhoneNumber})
				}
				tw.Render()
				return nil
			})
		},
	})
	return c
}

func agentCmd() *cobra.Command {
	c := &cobra.Command{Use: "agent", Short: "Manage agents"}
	var agent struct{ ID, First, Last, Email, Phone, License string }
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.CreateAgent(ctx, domain.Agent{
					ID:          agent.ID,
					FirstName:   agent.First,
					LastName:    agent.Last,
					Email:       agent.Email,
					PhoneNumber: agent.Phone,
					LicenseID:   agent.License,
				}, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(out)
			})
		},
	}
	create.Flags().StringVar(&agent.ID, "id", "", "agent id (optional)")
	create.Flags().StringVar(&agent.First, "first-name", "", "first name")
	create.Flags().StringVar(&agent.Last, "last-name", "", "last name")
	create.Flags().StringVar(&agent.Email, "email", "", "email")
	create.Flags().StringVar(&agent.Phone, "phone", "", "phone number")
	create.Flags().StringVar(&agent.License, "license-id", "", "license id")
	_ = create.MarkFlagRequired("first-name")
	_ = create.MarkFlagRequired("last-name")
	c.AddCommand(create)

	c.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAgents(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Name", "Email", "License")
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.FirstName + " " + it.LastName, it.Email, it.LicenseID})
				}
				tw.Render()
				return nil
			})
		},
	})
	return c
}

func propertyCmd() *cobra.Command {
	c := &cobra.Command{Use: "property", Short: "Manage properties"}
	var prop struct{ ID, Name, Ref string }
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a property",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.CreateProperty(ctx, domain.Property{
					ID:            prop.ID,
					Name:          prop.Name,
					ReferenceCode: prop.Ref,
				}, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(out)
			})
		},
	}
	create.Flags().StringVar(&prop.ID, "id", "", "property id (optional)")
	create.Flags().StringVar(&prop.Name, "name", "", "property name")
	create.Flags().StringVar(&prop.Ref, "reference-code", "", "reference code")
	_ = create.MarkFlagRequired("name")
	c.AddCommand(create)

	c.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List properties",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListProperties(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Name", "Reference")
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.Name, it.ReferenceCode})
				}
				tw.Render()
				return nil
			})
		},
	})
	return c
}

func intentionCmd() *cobra.Command {
	c := &cobra.Command{Use: "intention", Short: "Manage provider intentions"}
	c.AddCommand(intentionCreateCmd())
	c.AddCommand(intentionListCmd())
	c.AddCommand(intentionValuateCmd())
	c.AddCommand(intentionWithdrawCmd())
	c.AddCommand(intentionPromoteCmd())
	return c
}

func intentionCreateCmd() *cobra.Command {
	var opts engine.ProviderIntentionCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a provider intention",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProviderIntention(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "intention id (optional)")
	cmd.Flags().StringVar(&opts.OwnerID, "owner", "", "owner contact id")
	cmd.Flags().StringVar(&opts.AgentID, "agent", "", "agent id")
	cmd.Flags().StringVar(&opts.PropertyID, "property", "", "property id")
	cmd.Flags().StringVar(&opts.OperationType, "operation-type", "sale", "operation type (sale, rent)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("agent")
	_ = cmd.MarkFlagRequired("property")
	return cmd
}

func intentionListCmd() *cobra.Command {
	var f repo.ProviderIntentionFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List provider intentions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListProviderIntentions(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Property", "Agent", "Type", "State")
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.PropertyID, it.AgentID, it.OperationType, it.State})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.AgentID, "agent", "", "filter by agent")
	cmd.Flags().StringVar(&f.PropertyID, "property", "", "filter by property")
	cmd.Flags().StringVar(&f.State, "state", "", "filter by state")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "max rows")
	return cmd
}

func intentionValuateCmd() *cobra.Command {
	var opts engine.ValuationOptions
	cmd := &cobra.Command{
		Use:   "valuate <intention-id>",
		Short: "Deliver the valuation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.IntentionID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				v, err := e.DeliverValuation(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(v)
			})
		},
	}
	cmd.Flags().Float64Var(&opts.Amount, "amount", 0, "recommended amount")
	cmd.Flags().StringVar(&opts.Currency, "currency", "", "currency code")
	cmd.Flags().Float64Var(&opts.TestValue, "test-value", 0, "test value (defaults to amount)")
	cmd.Flags().Float64Var(&opts.CloseValue, "close-value", 0, "close value (defaults to amount)")
	cmd.Flags().StringVar(&opts.ValuationDate, "date", "", "valuation date")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("currency")
	return cmd
}

func intentionWithdrawCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "withdraw <intention-id>",
		Short: "Withdraw an intention",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.WithdrawIntention(ctx, args[0], reason, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "withdraw reason (lack_commitment, cannot_sell, no_response)")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func intentionPromoteCmd() *cobra.Command {
	var opts engine.PromoteOptions
	cmd := &cobra.Command{
		Use:   "promote <intention-id>",
		Short: "Convert a valuated intention into a provider opportunity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.IntentionID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.PromoteIntention(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
	cmd.Flags().Float64Var(&opts.GrossCommissionPct, "commission", 0, "gross commission pct")
	cmd.Flags().StringVar(&opts.ListingKind, "listing-kind", "exclusive", "listing kind (exclusive, non_exclusive)")
	cmd.Flags().StringVar(&opts.ListingExternalID, "listing-external-id", "", "portal external id")
	cmd.Flags().StringVar(&opts.ListingRefCode, "listing-ref", "", "listing reference code")
	cmd.Flags().StringVar(&opts.ContractSignedOn, "signed-on", "", "contract signed date")
	cmd.Flags().StringVar(&opts.ContractEffectiveOn, "effective-on", "", "contract effective date")
	cmd.Flags().StringVar(&opts.ContractExpiresOn, "expires-on", "", "contract expiry date")
	cmd.Flags().StringVar(&opts.Headline, "headline", "", "initial package headline")
	cmd.Flags().StringVar(&opts.Description, "description", "", "initial package description")
	_ = cmd.MarkFlagRequired("commission")
	return cmd
}

func seekerCmd() *cobra.Command {
	c := &cobra.Command{Use: "seeker", Short: "Manage seeker intentions"}
	c.AddCommand(seekerCreateCmd())
	c.AddCommand(seekerListCmd())
	c.AddCommand(seekerAdvanceCmd("activate", "Activate a qualifying intention", func(e engine.Engine) seekerAdvance { return e.ActivateSeekerIntention }))
	c.AddCommand(seekerAdvanceCmd("mandate", "Mandate an active intention", func(e engine.Engine) seekerAdvance { return e.MandateSeekerIntention }))
	c.AddCommand(seekerAdvanceCmd("abandon", "Abandon an intention", func(e engine.Engine) seekerAdvance { return e.AbandonSeekerIntention }))
	c.AddCommand(seekerConvertCmd())
	return c
}

func seekerCreateCmd() *cobra.Command {
	var opts engine.SeekerIntentionCreateOptions
	var budgetMin, budgetMax float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a seeker intention",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			if cmd.Flags().Changed("budget-min") {
				opts.BudgetMin = &budgetMin
			}
			if cmd.Flags().Changed("budget-max") {
				opts.BudgetMax = &budgetMax
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CreateSeekerIntention(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "intention id (optional)")
	cmd.Flags().StringVar(&opts.ContactID, "contact", "", "seeker contact id")
	cmd.Flags().StringVar(&opts.AgentID, "agent", "", "agent id")
	cmd.Flags().StringVar(&opts.OperationType, "operation-type", "sale", "operation type (sale, rent)")
	cmd.Flags().Float64Var(&budgetMin, "budget-min", 0, "minimum budget")
	cmd.Flags().Float64Var(&budgetMax, "budget-max", 0, "maximum budget")
	cmd.Flags().StringVar(&opts.Currency, "currency", "", "budget currency")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("contact")
	_ = cmd.MarkFlagRequired("agent")
	return cmd
}

func seekerListCmd() *cobra.Command {
	var f repo.SeekerIntentionFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List seeker intentions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListSeekerIntentions(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Contact", "Agent", "Type", "State")
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.ContactID, it.AgentID, it.OperationType, it.State})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.AgentID, "agent", "", "filter by agent")
	cmd.Flags().StringVar(&f.ContactID, "contact", "", "filter by contact")
	cmd.Flags().StringVar(&f.State, "state", "", "filter by state")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "max rows")
	return cmd
}

type seekerAdvance func(context.Context, string, string) (domain.SeekerIntention, error)

func seekerAdvanceCmd(use, short string, pick func(engine.Engine) seekerAdvance) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <intention-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := pick(e)(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
}

func seekerConvertCmd() *cobra.Command {
	var opts engine.SeekerOpportunityCreateOptions
	cmd := &cobra.Command{
		Use:   "convert <intention-id>",
		Short: "Convert a mandated intention into a seeker opportunity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.IntentionID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.CreateSeekerOpportunity(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
	cmd.Flags().Float64Var(&opts.GrossCommissionPct, "commission", 0, "gross commission pct")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("commission")
	return cmd
}

func validationCmd() *cobra.Command {
	c := &cobra.Command{Use: "validation", Short: "Manage validations and documents"}
	c.AddCommand(validationStatusCmd())
	c.AddCommand(validationUploadCmd())
	c.AddCommand(validationReviewCmd())
	c.AddCommand(validationFireCmd("present", "Present the validation to the owner", func(e engine.Engine) validationFire { return e.PresentValidation }))
	c.AddCommand(validationFireCmd("revoke", "Revoke a presented validation", func(e engine.Engine) validationFire { return e.RevokeValidation }))
	c.AddCommand(validationFireCmd("accept", "Accept the validation and start marketing", func(e engine.Engine) validationFire { return e.AcceptValidation }))
	return c
}

func validationStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <validation-id>",
		Short: "Show required document readiness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.RequiredDocuments(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("Type", "Label", "Status")
				for _, it := range items {
					tw.AppendRow(table.Row{it.Code, it.Label, it.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func validationUploadCmd() *cobra.Command {
	var opts engine.UploadDocumentOptions
	cmd := &cobra.Command{
		Use:   "upload <validation-id>",
		Short: "Upload a document (typed or additional)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ValidationID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var (
					d   domain.ValidationDocument
					err error
				)
				if opts.TypeCode == "" {
					d, err = e.UploadAdditionalDocument(ctx, opts)
				} else {
					d, err = e.UploadValidationDocument(ctx, opts)
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&opts.TypeCode, "type", "", "document type code (empty for an additional document)")
	cmd.Flags().StringVar(&opts.FileName, "file", "", "file name")
	cmd.Flags().StringVar(&opts.Observations, "observations", "", "uploader observations")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func validationReviewCmd() *cobra.Command {
	var opts engine.ReviewDocumentOptions
	cmd := &cobra.Command{
		Use:   "review <document-id>",
		Short: "Accept or reject a pending document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DocumentID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.ReviewValidationDocument(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Decision, "decision", "", "accepted or rejected")
	cmd.Flags().StringVar(&opts.Comment, "comment", "", "reviewer comment")
	_ = cmd.MarkFlagRequired("decision")
	return cmd
}

type validationFire func(context.Context, string, string) (domain.Validation, error)

func validationFireCmd(use, short string, pick func(engine.Engine) validationFire) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <validation-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				v, err := pick(e)(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(v)
			})
		},
	}
}

func packageCmd() *cobra.Command {
	c := &cobra.Command{Use: "package", Short: "Manage marketing packages"}
	c.AddCommand(packageListCmd())
	c.AddCommand(packageReviseCmd())
	c.AddCommand(packageFireCmd("publish", "Publish the active package", func(e engine.Engine) packageFire { return e.PublishMarketingPackage }))
	c.AddCommand(packageFireCmd("pause", "Pause the active package", func(e engine.Engine) packageFire { return e.PauseMarketingPackage }))
	return c
}

func packageListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <opportunity-id>",
		Short: "List package versions for a provider opportunity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListMarketingPackages(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Version", "Active", "State", "Headline")
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.Version, it.IsActive, it.State, it.Headline})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func packageReviseCmd() *cobra.Command {
	var opts engine.PackageRevisionOptions
	var price float64
	cmd := &cobra.Command{
		Use:   "revise <opportunity-id>",
		Short: "Create the next package version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.OpportunityID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			if cmd.Flags().Changed("price") {
				opts.Price = &price
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.ReviseMarketingPackage(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Headline, "headline", "", "headline")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().Float64Var(&price, "price", 0, "listed price")
	cmd.Flags().StringVar(&opts.Currency, "currency", "", "currency")
	cmd.Flags().StringArrayVar(&opts.Features, "feature", []string{}, "feature (repeatable)")
	cmd.Flags().StringArrayVar(&opts.MediaAssets, "media", []string{}, "media asset URL (repeatable)")
	return cmd
}

type packageFire func(context.Context, string, string) (domain.MarketingPackage, error)

func packageFireCmd(use, short string, pick func(engine.Engine) packageFire) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <package-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := pick(e)(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func agreementCmd() *cobra.Command {
	c := &cobra.Command{Use: "agreement", Short: "Manage operation agreements"}
	c.AddCommand(agreementCreateCmd())
	c.AddCommand(agreementListCmd())
	c.AddCommand(agreementFireCmd("agree", "Mark the agreement agreed", func(e engine.Engine) agreementFire { return e.AgreeAgreement }))
	c.AddCommand(agreementFireCmd("revoke", "Revoke an agreed agreement", func(e engine.Engine) agreementFire { return e.RevokeAgreement }))
	c.AddCommand(agreementCancelCmd())
	c.AddCommand(agreementSignCmd())
	return c
}

func agreementCreateCmd() *cobra.Command {
	var opts engine.AgreementCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open an agreement for a provider/seeker pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CreateOperationAgreement(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ProviderOpportunityID, "provider", "", "provider opportunity id")
	cmd.Flags().StringVar(&opts.SeekerOpportunityID, "seeker", "", "seeker opportunity id")
	cmd.Flags().Float64Var(&opts.InitialOfferedAmount, "amount", 0, "initial offered amount")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("seeker")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func agreementListCmd() *cobra.Command {
	var f repo.OperationAgreementFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agreements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListOperationAgreements(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Provider", "Seeker", "State", "Offer")
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.ProviderOpportunityID, it.SeekerOpportunityID, it.State, it.InitialOfferedAmount})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProviderOpportunityID, "provider", "", "filter by provider opportunity")
	cmd.Flags().StringVar(&f.SeekerOpportunityID, "seeker", "", "filter by seeker opportunity")
	cmd.Flags().StringVar(&f.State, "state", "", "filter by state")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "max rows")
	return cmd
}

type agreementFire func(context.Context, string, string) (domain.OperationAgreement, error)

func agreementFireCmd(use, short string, pick func(engine.Engine) agreementFire) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <agreement-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := pick(e)(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
}

func agreementCancelCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel <agreement-id>",
		Short: "Cancel the agreement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CancelAgreement(ctx, args[0], reason, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	return cmd
}

func agreementSignCmd() *cobra.Command {
	var opts engine.SignAgreementOptions
	cmd := &cobra.Command{
		Use:   "sign <agreement-id>",
		Short: "Sign the agreement and open the operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.AgreementID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				op, err := e.SignAgreement(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(op)
			})
		},
	}
	cmd.Flags().Float64Var(&opts.ReserveAmount, "reserve", 0, "reserve amount")
	cmd.Flags().StringVar(&opts.ReserveDate, "reserve-date", "", "reserve deadline")
	cmd.Flags().StringVar(&opts.Currency, "currency", "", "currency")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("reserve")
	_ = cmd.MarkFlagRequired("reserve-date")
	_ = cmd.MarkFlagRequired("currency")
	return cmd
}

func operationCmd() *cobra.Command {
	c := &cobra.Command{Use: "operation", Short: "Manage operations"}
	c.AddCommand(operationListCmd())
	c.AddCommand(operationReinforceCmd())
	c.AddCommand(operationCloseCmd())
	c.AddCommand(operationLoseCmd())
	return c
}

func operationListCmd() *cobra.Command {
	var f repo.OperationFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListOperations(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Provider", "Seeker", "State", "Reserve")
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.ProviderOpportunityID, it.SeekerOpportunityID, it.State, it.ReserveAmount})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProviderOpportunityID, "provider", "", "filter by provider opportunity")
	cmd.Flags().StringVar(&f.SeekerOpportunityID, "seeker", "", "filter by seeker opportunity")
	cmd.Flags().StringVar(&f.State, "state", "", "filter by state")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "max rows")
	return cmd
}

func operationReinforceCmd() *cobra.Command {
	var opts engine.ReinforceOptions
	var offered, reinforcement, deed float64
	cmd := &cobra.Command{
		Use:   "reinforce <operation-id>",
		Short: "Reinforce the offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.OperationID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			if cmd.Flags().Changed("offered") {
				opts.OfferedAmount = &offered
			}
			if cmd.Flags().Changed("reinforcement") {
				opts.ReinforcementAmount = &reinforcement
			}
			if cmd.Flags().Changed("deed-value") {
				opts.DeclaredDeedValue = &deed
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				op, err := e.ReinforceOperation(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(op)
			})
		},
	}
	cmd.Flags().Float64Var(&offered, "offered", 0, "restated offered amount")
	cmd.Flags().Float64Var(&reinforcement, "reinforcement", 0, "reinforcement amount")
	cmd.Flags().Float64Var(&deed, "deed-value", 0, "declared deed value")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	return cmd
}

func operationCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <operation-id>",
		Short: "Close a reinforced operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				op, err := e.CloseOperation(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(op)
			})
		},
	}
}

func operationLoseCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "lose <operation-id>",
		Short: "Mark the operation lost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				op, err := e.LoseOperation(ctx, args[0], reason, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(op)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "lost reason")
	return cmd
}

func logCmd() *cobra.Command {
	c := &cobra.Command{Use: "log", Short: "Inspect the transition log"}
	c.AddCommand(logTailCmd())
	return c
}

func logTailCmd() *cobra.Command {
	var f repo.TransitionFilters
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent transitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListTransitions(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Entity", "Transition", "From", "To", "Actor", "At")
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.EntityKind + "/" + it.EntityID, it.Transition, it.FromState, it.ToState, it.ActorID, it.OccurredAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of rows")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind filter")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id filter")
	cmd.Flags().StringVar(&f.Transition, "transition", "", "transition filter")
	cmd.Flags().StringVar(&f.ActorID, "actor", "", "actor filter")
	return cmd
}

func rbacCmd() *cobra.Command {
	c := &cobra.Command{Use: "rbac", Short: "Manage actors and roles"}
	c.AddCommand(rbacGrantCmd())
	c.AddCommand(rbacBindCmd())
	return c
}

func rbacGrantCmd() *cobra.Command {
	var target, role string
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant a seeded role to an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" || role == "" {
				return fmt.Errorf("--actor and --role required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				svc := auth.Service{DB: r.DB}
				return svc.GrantRole(ctx, target, role)
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "actor id")
	cmd.Flags().StringVar(&role, "role", "", "role id")
	return cmd
}

func rbacBindCmd() *cobra.Command {
	var target, agentID string
	cmd := &cobra.Command{
		Use:   "bind-agent",
		Short: "Bind an actor to the agent it acts for",
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" || agentID == "" {
				return fmt.Errorf("--actor and --agent required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				svc := auth.Service{DB: r.DB}
				return svc.BindActorAgent(ctx, target, agentID)
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "actor id")
	cmd.Flags().StringVar(&agentID, "agent", "", "agent id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowActorHeader bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			// RBAC is enforced over HTTP; the local CLI keeps the
			// permissive default.
			e.Auth = auth.Service{DB: conn}
			if err := e.Seed(cmd.Context()); err != nil {
				return err
			}
			if err := e.SeedRoles(cmd.Context()); err != nil {
				return err
			}
			secret := os.Getenv("DEALFLOW_JWT_SECRET")
			if secret == "" {
				secret = cfg.Server.JWTSecret
			}
			if secret == "" {
				return fmt.Errorf("DEALFLOW_JWT_SECRET or server.jwt_secret is required for bearer auth")
			}
			authCfg := server.AuthConfig{JWTSecret: secret, AllowLegacyActorHeader: allowActorHeader}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			notify.Start(e.Repo, cfg)
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Dealflow API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr from dealflow.yml)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	cmd.Flags().BoolVar(&allowActorHeader, "allow-actor-header", false, "accept the legacy X-Actor-Id header (dev only)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	if err := e.Seed(ctx); err != nil {
		return err
	}
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func newTable(cols ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(cols))
	return tw
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
