package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models dealflow.yml.
type Config struct {
	Server struct {
		Addr      string `yaml:"addr"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
	Listing struct {
		Portal       string `yaml:"portal"`
		URL          string `yaml:"url"`
		Secret       string `yaml:"secret"`
		Enabled      bool   `yaml:"enabled"`
		PollInterval int    `yaml:"poll_interval_seconds"`
	} `yaml:"listing"`
	Catalog struct {
		Currencies     []CatalogCurrency     `yaml:"currencies"`
		OperationTypes []CatalogOperation    `yaml:"operation_types"`
		DocumentTypes  []CatalogDocumentType `yaml:"document_types"`
	} `yaml:"catalog"`
	RBAC struct {
		Roles map[string]RBACRole `yaml:"roles"`
	} `yaml:"rbac"`
}

type CatalogCurrency struct {
	Code   string `yaml:"code"`
	Name   string `yaml:"name"`
	Symbol string `yaml:"symbol"`
}

type CatalogOperation struct {
	Code  string `yaml:"code"`
	Label string `yaml:"label"`
}

type CatalogDocumentType struct {
	Code            string   `yaml:"code"`
	Label           string   `yaml:"label"`
	Required        bool     `yaml:"required"`
	OperationType   string   `yaml:"operation_type"`
	AcceptedFormats []string `yaml:"accepted_formats"`
}

type RBACRole struct {
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Listing.Enabled && c.Listing.URL == "" {
		return fmt.Errorf("config.listing.url is required when listing sync is enabled")
	}
	seenCurrencies := map[string]bool{}
	for _, cur := range c.Catalog.Currencies {
		if cur.Code == "" {
			return fmt.Errorf("config.catalog.currencies contains empty code")
		}
		if seenCurrencies[cur.Code] {
			return fmt.Errorf("duplicate currency %s", cur.Code)
		}
		seenCurrencies[cur.Code] = true
	}
	seenOps := map[string]bool{}
	for _, op := range c.Catalog.OperationTypes {
		if op.Code == "" {
			return fmt.Errorf("config.catalog.operation_types contains empty code")
		}
		if seenOps[op.Code] {
			return fmt.Errorf("duplicate operation type %s", op.Code)
		}
		seenOps[op.Code] = true
	}
	for _, dt := range c.Catalog.DocumentTypes {
		if dt.Code == "" {
			return fmt.Errorf("config.catalog.document_types contains empty code")
		}
		if dt.OperationType != "" && len(seenOps) > 0 && !seenOps[dt.OperationType] {
			return fmt.Errorf("document type %s references unknown operation type %s", dt.Code, dt.OperationType)
		}
	}
	for roleID, role := range c.RBAC.Roles {
		if roleID == "" {
			return fmt.Errorf("config.rbac.roles contains empty role id")
		}
		for _, perm := range role.Permissions {
			if perm == "" {
				return fmt.Errorf("role %s has empty permission id", roleID)
			}
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "dealflow.yml")
}

// Default returns the built-in config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// WriteDefault writes the commented default template to path.
func WriteDefault(path string) error {
	return os.WriteFile(path, []byte(defaultTemplate), 0o644)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  addr: :8335
  jwt_secret: ""

listing:
  portal: tokko
  url: ""
  secret: ""
  enabled: false
  poll_interval_seconds: 5

catalog:
  currencies:
    - code: USD
      name: US Dollar
      symbol: $
    - code: ARS
      name: Argentine Peso
      symbol: $

  operation_types:
    - code: sale
      label: Sale
    - code: rent
      label: Rent

  document_types:
    - code: title_deed
      label: Title deed
      required: true
      operation_type: sale
      accepted_formats: [pdf]
    - code: tax_clearance
      label: Tax clearance certificate
      required: true
      accepted_formats: [pdf, jpg, png]
    - code: owner_id
      label: Owner identity document
      required: true
      accepted_formats: [pdf, jpg, png]
    - code: floor_plan
      label: Floor plan
      required: false
      accepted_formats: [pdf, png]

rbac:
  roles:
    broker:
      description: "Full pipeline access"
      permissions:
        - intake.manage
        - intention.create
        - intention.valuate
        - intention.withdraw
        - intention.promote
        - seeker.manage
        - document.upload
        - document.review
        - validation.present
        - validation.accept
        - package.draft
        - package.publish
        - agreement.create
        - agreement.manage
        - agreement.sign
        - operation.manage
    analyst:
      description: "Valuation and document review"
      permissions:
        - intention.valuate
        - document.review
        - validation.present
`
