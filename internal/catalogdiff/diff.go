// Package catalogdiff compares two catalog sets and reports what changed
// in reviewer-friendly terms, for eyeballing catalog updates before they
// ship. Pairs with the scenario runner in CI.
package catalogdiff

import (
	"fmt"

	"github.com/mvolkov/gateward/internal/catalog"
)

// Change represents a scalar field change.
type Change struct {
	Field   string `json:"field"`
	Old     string `json:"old"`
	New     string `json:"new"`
	Comment string `json:"comment,omitempty"`
}

// PatternChange represents a pattern addition, removal, or modification
// within one catalog section.
type PatternChange struct {
	Type    string `json:"type"` // "added", "removed", "changed"
	Section string `json:"section"`
	Pattern string `json:"pattern"`
}

// DiffResult holds the comparison of two catalog sets.
type DiffResult struct {
	OldPath        string          `json:"old_path"`
	NewPath        string          `json:"new_path"`
	Changes        []Change        `json:"changes"`
	PatternChanges []PatternChange `json:"pattern_changes"`
	HasChanges     bool            `json:"has_changes"`
}

// section pairs a YAML section name with its catalog in each set.
type section struct {
	name     string
	old, new *catalog.Catalog
}

// Diff compares two catalog sets and returns the differences.
func Diff(old, new *catalog.Set) *DiffResult {
	r := &DiffResult{}

	if old.Version != new.Version {
		r.Changes = append(r.Changes, Change{
			Field: "version",
			Old:   old.Version,
			New:   new.Version,
		})
	}

	sections := []section{
		{"control_triggers", old.ControlTriggers, new.ControlTriggers},
		{"hard_vetoes", old.HardVetoes, new.HardVetoes},
		{"soft_vetoes", old.SoftVetoes, new.SoftVetoes},
		{"injection", old.Injection, new.Injection},
		{"harassment", old.Harassment, new.Harassment},
		{"spam", old.Spam, new.Spam},
	}
	for _, s := range sections {
		diffSection(r, s.name, s.old.Patterns(), s.new.Patterns())
	}

	r.HasChanges = len(r.Changes) > 0 || len(r.PatternChanges) > 0
	return r
}

func patternLabel(p catalog.Pattern) string {
	expr := p.Match
	if p.Regex != "" {
		expr = "/" + p.Regex + "/"
	}
	return fmt.Sprintf("%s [%s] %q", p.ID, p.Severity, expr)
}

func diffSection(r *DiffResult, name string, oldPatterns, newPatterns []catalog.Pattern) {
	oldMap := make(map[string]catalog.Pattern)
	for _, p := range oldPatterns {
		oldMap[p.ID] = p
	}

	newMap := make(map[string]catalog.Pattern)
	for _, p := range newPatterns {
		newMap[p.ID] = p
	}

	// Check for added and changed
	for _, p := range newPatterns {
		oldP, exists := oldMap[p.ID]
		if !exists {
			r.PatternChanges = append(r.PatternChanges, PatternChange{
				Type:    "added",
				Section: name,
				Pattern: patternLabel(p),
			})
			continue
		}
		if change := describeChange(oldP, p); change != "" {
			r.PatternChanges = append(r.PatternChanges, PatternChange{
				Type:    "changed",
				Section: name,
				Pattern: fmt.Sprintf("%s: %s", p.ID, change),
			})
		}
	}

	// Check for removed
	for _, p := range oldPatterns {
		if _, exists := newMap[p.ID]; !exists {
			r.PatternChanges = append(r.PatternChanges, PatternChange{
				Type:    "removed",
				Section: name,
				Pattern: patternLabel(p),
			})
		}
	}
}

// describeChange renders what differs between two same-ID patterns,
// or "" when nothing relevant changed.
func describeChange(old, new catalog.Pattern) string {
	if old.Severity != new.Severity {
		return fmt.Sprintf("severity %s → %s (%s)",
			old.Severity, new.Severity, severityComment(old.Severity, new.Severity))
	}
	if old.Match != new.Match {
		return fmt.Sprintf("match %q → %q", old.Match, new.Match)
	}
	if old.Regex != new.Regex {
		return fmt.Sprintf("regex %q → %q", old.Regex, new.Regex)
	}
	return ""
}

func severityComment(old, new catalog.Severity) string {
	if catalog.SevRank[new] > catalog.SevRank[old] {
		return "stricter"
	}
	return "looser"
}
