// Package config loads the top-level gateward configuration.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mvolkov/gateward/internal/alert"
	"github.com/mvolkov/gateward/internal/ratelimit"
)

// StoreConfig selects the block/veto store backend.
type StoreConfig struct {
	Backend   string        `yaml:"backend"` // memory | sqlite
	Path      string        `yaml:"path"`    // sqlite file, ignored for memory
	Retention time.Duration `yaml:"retention"`
}

// AbuseConfig holds the detector's escalation parameters.
type AbuseConfig struct {
	EscalationWindow time.Duration `yaml:"escalation_window"`
	VetoThreshold    int           `yaml:"veto_threshold"`
	BlockTTL         time.Duration `yaml:"block_ttl"`
}

// PubSubConfig publishes abuse events to a Cloud Pub/Sub topic.
type PubSubConfig struct {
	Project string `yaml:"project"`
	Topic   string `yaml:"topic"`
}

// RespondConfig overrides the reply templates.
type RespondConfig struct {
	Refusal          string `yaml:"refusal"`
	RedirectPreamble string `yaml:"redirect_preamble"`
}

// Config holds all configurable gateward parameters.
type Config struct {
	CatalogPath string                `yaml:"catalog_path"`
	GateTimeout time.Duration         `yaml:"gate_timeout"`
	Store       StoreConfig           `yaml:"store"`
	Abuse       AbuseConfig           `yaml:"abuse"`
	RateLimits  ratelimit.Limits      `yaml:"rate_limits"`
	Alerts      []alert.WebhookConfig `yaml:"alerts"`
	PubSub      PubSubConfig          `yaml:"pubsub"`
	Respond     RespondConfig         `yaml:"respond"`
	AuditLog    string                `yaml:"audit_log"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		GateTimeout: 5 * time.Second,
		Store: StoreConfig{
			Backend:   "memory",
			Retention: time.Hour,
		},
		Abuse: AbuseConfig{
			EscalationWindow: 10 * time.Minute,
			VetoThreshold:    5,
			BlockTTL:         15 * time.Minute,
		},
	}
}

// Load loads configuration from a YAML file.
// Empty path falls back to ~/.gateward/config.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads configuration and returns its SHA-256 hash.
// The hash is computed over the raw YAML bytes on disk.
// When no file exists (defaults used), the hash is the SHA-256 of empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfig(), emptyHash(), nil
		}
		path = filepath.Join(home, ".gateward", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), emptyHash(), nil
		}
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	// Start with defaults, YAML overwrites only specified fields
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, hash, nil
}

// Validate rejects configurations that cannot be acted on safely.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("sqlite store requires a path")
	}
	if c.Store.Retention > 0 && c.Store.Retention < c.Abuse.EscalationWindow {
		return fmt.Errorf("store retention %s is shorter than the escalation window %s: veto counts would miss events still inside the window",
			c.Store.Retention, c.Abuse.EscalationWindow)
	}
	if c.Abuse.VetoThreshold < 0 {
		return fmt.Errorf("veto_threshold must not be negative")
	}
	for subject, rl := range c.RateLimits {
		if rl != nil && rl.MaxTurns < 0 {
			return fmt.Errorf("rate limit for %q has negative max_turns", subject)
		}
	}
	for i, a := range c.Alerts {
		if a.URL == "" {
			return fmt.Errorf("alert %d has no url", i)
		}
	}
	return nil
}

func emptyHash() string {
	h := sha256.Sum256(nil)
	return "sha256:" + hex.EncodeToString(h[:])
}

// DefaultConfigYAML returns a commented YAML string for init.
func DefaultConfigYAML() string {
	return `# gateward configuration
# Generated by: gateward init

# Pattern catalog file. Empty uses the built-in catalogs.
catalog_path: ""

# Upper bound for a single gate execution.
gate_timeout: 5s

# Block and veto store.
#   backend: memory | sqlite
#   path: sqlite database file (sqlite only)
#   retention: how long veto history is kept (raised to the escalation
#     window when shorter)
store:
  backend: memory
  retention: 1h

# Repeat-offender escalation.
#   escalation_window: sliding window for counting vetoes
#   veto_threshold: vetoes within the window that trigger a block
#   block_ttl: how long an escalation block lasts
abuse:
  escalation_window: 10m
  veto_threshold: 5
  block_ttl: 15m

# Per-subject turn rate limits. Key "*" applies to every subject without
# an explicit entry. Empty map disables flood control.
rate_limits: {}
# rate_limits:
#   "*":
#     max_turns: 30
#     window: 1m

# Webhook notifications. Each entry routes matching events to one endpoint.
# Fields:
#   url: webhook endpoint
#   format: generic | slack | pagerduty
#   events: verdicts or event types to deliver (block, escalate, subject_blocked)
alerts: []
# alerts:
#   - url: https://hooks.slack.com/services/...
#     format: slack
#     events: [block, subject_blocked]

# Cloud Pub/Sub event publishing. Empty project disables it.
pubsub:
  project: ""
  topic: ""

# Hash-chained verdict log. Empty path disables auditing.
audit_log: ""
`
}
