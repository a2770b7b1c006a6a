package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	if len(result.Entries) == 0 {
		return fmt.Sprintf("Subject: %s | No entries found.\n", result.Subject)
	}

	var b strings.Builder

	// Header
	first := result.Summary.FirstTimestamp
	last := result.Summary.LastTimestamp
	firstTime := formatDateRange(first)
	lastTime := formatTimeOnly(last)
	b.WriteString(fmt.Sprintf("Subject: %s | %s–%s UTC\n", result.Subject, firstTime, lastTime))
	b.WriteString(separator + "\n")

	// Entries
	for _, e := range result.Entries {
		ts := formatTimeOnly(e.Timestamp)
		verdict := strings.ToUpper(e.Verdict)
		risk := truncate(e.RiskLevel, 8)
		reasons := truncate(strings.Join(e.Reasons, ","), 40)

		tag := ""
		if e.Type == "subject_blocked" {
			tag = "  [blocked]"
		}

		b.WriteString(fmt.Sprintf("%-10s %-10s %-9s %-40s%s\n",
			ts, verdict, risk, reasons, tag))
	}

	// Footer
	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateRange(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s ReplaySummary) string {
	parts := []string{}
	if s.PassCount > 0 {
		parts = append(parts, fmt.Sprintf("%d pass", s.PassCount))
	}
	if s.EscalateCount > 0 {
		parts = append(parts, fmt.Sprintf("%d escalate", s.EscalateCount))
	}
	if s.BlockCount > 0 {
		parts = append(parts, fmt.Sprintf("%d block", s.BlockCount))
	}
	if s.BlockedEvents > 0 {
		parts = append(parts, fmt.Sprintf("%d subject-blocked", s.BlockedEvents))
	}

	maxRisk := s.MaxRisk
	if maxRisk == "" {
		maxRisk = "low"
	}
	return fmt.Sprintf("Summary: %s | Max risk: %s\n",
		strings.Join(parts, ", "), maxRisk)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
