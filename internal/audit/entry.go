package audit

// Entry is one line in the hash-chained JSONL audit log, recording the
// verdict of a single pipeline run.
// All fields are flat or slices (no map[string]any) to guarantee
// deterministic json.Marshal field order for reproducible hashing.
type Entry struct {
	Timestamp   string   `json:"ts"`
	RunID       string   `json:"run_id"`
	Subject     string   `json:"subject"`
	Verdict     string   `json:"verdict"`
	RiskLevel   string   `json:"risk_level"`
	Reasons     []string `json:"reasons,omitempty"`
	CatalogHash string   `json:"catalog_hash"`
	Type        string   `json:"type,omitempty"` // "subject_blocked" etc.
	PrevHash    string   `json:"prev_hash"`
}
