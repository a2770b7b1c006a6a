package catalogdiff

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders the diff result as human-readable text.
func FormatText(r *DiffResult) string {
	if !r.HasChanges {
		return fmt.Sprintf("Catalog diff: %s → %s\n\nNo changes detected.\n", r.OldPath, r.NewPath)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Catalog diff: %s → %s\n", r.OldPath, r.NewPath)

	if len(r.Changes) > 0 {
		b.WriteString("\n")
		for _, c := range r.Changes {
			fmt.Fprintf(&b, "  %-12s %s → %s", c.Field+":", c.Old, c.New)
			if c.Comment != "" {
				fmt.Fprintf(&b, "  (%s)", c.Comment)
			}
			b.WriteString("\n")
		}
	}

	// Group pattern changes by section, in catalog order.
	for _, name := range []string{
		"control_triggers", "hard_vetoes", "soft_vetoes",
		"injection", "harassment", "spam",
	} {
		var lines []string
		for _, pc := range r.PatternChanges {
			if pc.Section != name {
				continue
			}
			switch pc.Type {
			case "added":
				lines = append(lines, fmt.Sprintf("    + %s", pc.Pattern))
			case "removed":
				lines = append(lines, fmt.Sprintf("    - %s", pc.Pattern))
			case "changed":
				lines = append(lines, fmt.Sprintf("    ~ %s", pc.Pattern))
			}
		}
		if len(lines) > 0 {
			fmt.Fprintf(&b, "\n  %s:\n", name)
			for _, l := range lines {
				b.WriteString(l + "\n")
			}
		}
	}

	return b.String()
}

// FormatJSON renders the diff result as JSON.
func FormatJSON(r *DiffResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal diff result: %w", err)
	}
	return string(data), nil
}
