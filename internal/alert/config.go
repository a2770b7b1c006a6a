package alert

// WebhookConfig defines a webhook alert destination.
type WebhookConfig struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["block", "escalate", "subject_blocked"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Event is the payload sent to webhook endpoints.
type Event struct {
	Timestamp   string `json:"timestamp"`
	RunID       string `json:"run_id"`
	Subject     string `json:"subject"`
	Verdict     string `json:"verdict"`
	Reason      string `json:"reason"`
	RiskLevel   string `json:"risk_level"`
	CatalogHash string `json:"catalog_hash"`
	Type        string `json:"type,omitempty"` // "subject_blocked" etc.
}
