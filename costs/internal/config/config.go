// Package config loads and saves the cost tool's project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/vattention/facio-superpowers/internal/budget"
	"github.com/vattention/facio-superpowers/internal/pricing"
)

const (
	// Dir is the per-project state directory
	Dir = ".facio-superpowers"

	fileName          = "config.yaml"
	defaultLogFile    = "cost-log.jsonl"
	defaultReportsDir = "reports"

	// DefaultMonthlyBudget is used by the analyzer's monthly budget section
	DefaultMonthlyBudget = 50.0
)

// Budget holds the monthly budget and banding thresholds
type Budget struct {
	Monthly  float64 `yaml:"monthly"`
	Caution  float64 `yaml:"caution"`
	Critical float64 `yaml:"critical"`
}

// Config holds the cost tool configuration
type Config struct {
	LogFile    string        `yaml:"log_file,omitempty"`
	ReportsDir string        `yaml:"reports_dir,omitempty"`
	Pricing    pricing.Table `yaml:"pricing,omitempty"`
	Budget     Budget        `yaml:"budget"`
	Server     string        `yaml:"server,omitempty"`
	APIKey     string        `yaml:"api_key,omitempty"`
	ClientID   string        `yaml:"client_id,omitempty"`

	// project root the relative paths resolve against
	root string
}

// Default returns the configuration used when no file exists
func Default(root string) *Config {
	t := budget.DefaultThresholds()
	return &Config{
		Budget: Budget{
			Monthly:  DefaultMonthlyBudget,
			Caution:  t.Caution,
			Critical: t.Critical,
		},
		root: root,
	}
}

// Path returns the config file location for a project root
func Path(root string) string {
	return filepath.Join(root, Dir, fileName)
}

// Load reads the configuration for the project at root. A missing file yields defaults.
func Load(root string) (*Config, error) {
	cfg := Default(root)

	data, err := os.ReadFile(Path(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", Path(root), err)
	}
	if err := cfg.Thresholds().Validate(); err != nil {
		return nil, fmt.Errorf("invalid budget in %s: %w", Path(root), err)
	}

	return cfg, nil
}

// Save writes the configuration, generating a client ID on first save
func Save(cfg *Config) error {
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}

	path := Path(cfg.root)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// holds the API key
	return os.WriteFile(path, data, 0600)
}

// Root returns the project root
func (c *Config) Root() string {
	return c.root
}

// LogPath returns the absolute usage log location
func (c *Config) LogPath() string {
	return c.resolve(c.LogFile, defaultLogFile)
}

// ReportsPath returns the absolute markdown report directory
func (c *Config) ReportsPath() string {
	return c.resolve(c.ReportsDir, defaultReportsDir)
}

func (c *Config) resolve(value, def string) string {
	if value == "" {
		return filepath.Join(c.root, Dir, def)
	}
	if filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(c.root, value)
}

// Prices returns the built-in table overlaid with configured entries
func (c *Config) Prices() pricing.Table {
	table := pricing.DefaultTable()
	for name, p := range c.Pricing {
		table[name] = p
	}
	return table
}

// Thresholds returns the budget banding thresholds
func (c *Config) Thresholds() budget.Thresholds {
	return budget.Thresholds{Caution: c.Budget.Caution, Critical: c.Budget.Critical}
}

// Configured reports whether team sync has a server and key
func (c *Config) Configured() bool {
	return c.Server != "" && c.APIKey != ""
}

// Keys lists the settable keys, excluding per-model pricing
var Keys = []string{
	"log_file",
	"reports_dir",
	"server",
	"api_key",
	"budget.monthly",
	"budget.caution",
	"budget.critical",
	"pricing.<model>.input",
	"pricing.<model>.output",
}

// Set assigns a single key. Budget and pricing values must be non-negative numbers.
func (c *Config) Set(key, value string) error {
	switch key {
	case "log_file":
		c.LogFile = value
	case "reports_dir":
		c.ReportsDir = value
	case "server":
		c.Server = strings.TrimRight(value, "/")
	case "api_key":
		c.APIKey = value
	case "budget.monthly", "budget.caution", "budget.critical":
		f, err := parseAmount(value)
		if err != nil {
			return err
		}
		next := c.Budget
		switch key {
		case "budget.monthly":
			next.Monthly = f
		case "budget.caution":
			next.Caution = f
		case "budget.critical":
			next.Critical = f
		}
		if err := (budget.Thresholds{Caution: next.Caution, Critical: next.Critical}).Validate(); err != nil {
			return err
		}
		c.Budget = next
	default:
		return c.setPricing(key, value)
	}
	return nil
}

func (c *Config) setPricing(key, value string) error {
	parts := strings.Split(key, ".")
	if len(parts) != 3 || parts[0] != "pricing" || parts[1] == "" {
		return fmt.Errorf("unknown config key %q", key)
	}
	f, err := parseAmount(value)
	if err != nil {
		return err
	}

	if c.Pricing == nil {
		c.Pricing = make(pricing.Table)
	}
	p, ok := c.Pricing[parts[1]]
	if !ok {
		p = c.Prices().GetPricing(parts[1])
	}

	switch parts[2] {
	case "input":
		p.InputPerMillion = f
	case "output":
		p.OutputPerMillion = f
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	c.Pricing[parts[1]] = p
	return nil
}

func parseAmount(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return f, nil
}
