package scenario

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders a list of run results as human-readable text.
func FormatText(results []*RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Checking %d scenario file%s...\n\n", len(results), plural(len(results)))

	totalCases, totalPassed, failedScenarios := 0, 0, 0
	for _, r := range results {
		totalCases += r.Total
		totalPassed += r.Passed
		if r.Failed > 0 {
			failedScenarios++
		}
		renderScenario(&b, r)
	}

	fmt.Fprintf(&b, "\n%d of %d cases passed.", totalPassed, totalCases)
	if failedScenarios > 0 {
		fmt.Fprintf(&b, " %d of %d scenarios failed.", failedScenarios, len(results))
	}
	b.WriteString("\n")

	return b.String()
}

func renderScenario(b *strings.Builder, r *RunResult) {
	if r.Failed == 0 {
		fmt.Fprintf(b, "  PASS  %s (%d/%d)\n", r.Name, r.Passed, r.Total)
		return
	}

	fmt.Fprintf(b, "  FAIL  %s (%d/%d)\n", r.Name, r.Passed, r.Total)
	for _, c := range r.Cases {
		if c.Passed {
			continue
		}
		fmt.Fprintf(b, "    FAIL  case %d: %-40q expected %s, got %s\n",
			c.Index, truncate(c.Message, 40), c.Expected, c.Actual)
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// FormatJSON renders run results as JSON.
func FormatJSON(results []*RunResult) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	return string(data), nil
}
