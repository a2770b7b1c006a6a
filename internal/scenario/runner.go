// Package scenario runs verdict assertions from YAML files, for gating
// catalog changes in CI before they reach a live server.
package scenario

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mvolkov/gateward/internal/config"
	"github.com/mvolkov/gateward/internal/guard"
)

// Run evaluates all cases in a scenario against the given configuration.
// Each case gets a fresh guard over a fresh memory store (cases are
// independent: no veto history or block carries between them).
func Run(ctx context.Context, s *Scenario, cfg *config.Config) (*RunResult, error) {
	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	for i, c := range s.Cases {
		g, err := guard.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("case %d: build guard: %w", i+1, err)
		}

		subject := c.Subject
		if subject == "" {
			subject = fmt.Sprintf("scenario-%d", i+1)
		}

		turn := g.EvaluateTurn(ctx, subject, c.Message)
		g.Close()

		actual := string(turn.Verdict)
		expected := strings.ToLower(c.Expect)

		cr := CaseResult{
			Index:    i + 1,
			Subject:  subject,
			Message:  c.Message,
			Expected: expected,
			Actual:   actual,
			Reason:   strings.Join(turn.Summary.Reasons, ", "),
		}

		if actual == expected {
			cr.Passed = true
			result.Passed++
		} else {
			result.Failed++
		}

		result.Cases = append(result.Cases, cr)
	}

	return result, nil
}

// LoadAndRun loads a scenario YAML file, prepares a dry-run configuration,
// and runs all cases. Scenario runs never write the audit log, fire alerts,
// publish events, or touch a persistent store.
func LoadAndRun(path, configPath, catalogPath string) (*RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if catalogPath != "" {
		cfg.CatalogPath = catalogPath
	}
	if s.Catalog != "" {
		cfg.CatalogPath = s.Catalog
	}

	// Dry run: strip every side effect the config may carry.
	cfg.Store = config.StoreConfig{Backend: "memory"}
	cfg.AuditLog = ""
	cfg.Alerts = nil
	cfg.PubSub = config.PubSubConfig{}

	result, err := Run(context.Background(), &s, cfg)
	if err != nil {
		return nil, err
	}
	result.File = path

	return result, nil
}
