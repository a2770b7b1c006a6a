package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// TimestampFormat is the layout used in audit entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// ReplayFilter holds filtering criteria for subject history replay.
type ReplayFilter struct {
	Subject string
	From    time.Time // zero value = no lower bound
	To      time.Time // zero value = no upper bound
}

// ReplaySummary holds verdict counts and metadata for a replayed history.
type ReplaySummary struct {
	Total          int    `json:"total"`
	PassCount      int    `json:"pass_count"`
	BlockCount     int    `json:"block_count"`
	EscalateCount  int    `json:"escalate_count"`
	BlockedEvents  int    `json:"blocked_events"`
	FirstTimestamp string `json:"first_timestamp"`
	LastTimestamp  string `json:"last_timestamp"`
	MaxRisk        string `json:"max_risk"`
}

// ReplayResult holds filtered entries and summary for a subject's history.
type ReplayResult struct {
	Subject string        `json:"subject"`
	Entries []Entry       `json:"entries"`
	Summary ReplaySummary `json:"summary"`
}

// Replay reads the audit log and returns entries matching the filter.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{
		Subject: filter.Subject,
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue // skip malformed lines
		}

		if entry.Subject != filter.Subject {
			continue
		}

		// Time range filtering
		if !filter.From.IsZero() || !filter.To.IsZero() {
			ts, err := time.Parse(TimestampFormat, entry.Timestamp)
			if err != nil {
				continue // skip unparseable timestamps
			}
			if !filter.From.IsZero() && ts.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && ts.After(filter.To) {
				continue
			}
		}

		result.Entries = append(result.Entries, entry)
		updateSummary(&result.Summary, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	return result, nil
}

var riskOrder = map[string]int{"low": 0, "medium": 1, "high": 2, "critical": 3}

func updateSummary(s *ReplaySummary, entry Entry) {
	s.Total++

	switch strings.ToLower(entry.Verdict) {
	case "pass":
		s.PassCount++
	case "block":
		s.BlockCount++
	case "escalate":
		s.EscalateCount++
	}

	if entry.Type == "subject_blocked" {
		s.BlockedEvents++
	}

	if riskOrder[entry.RiskLevel] >= riskOrder[s.MaxRisk] && entry.RiskLevel != "" {
		s.MaxRisk = entry.RiskLevel
	}

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = entry.Timestamp
	}
	s.LastTimestamp = entry.Timestamp
}
