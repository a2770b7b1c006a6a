package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies the pattern family a rule belongs to.
type Kind string

const (
	KindControlTrigger Kind = "control_trigger"
	KindHardVeto       Kind = "hard_veto"
	KindSoftVeto       Kind = "soft_veto"
	KindInjection      Kind = "injection"
	KindHarassment     Kind = "harassment"
	KindSpam           Kind = "spam"
)

// Severity weights a pattern's contribution to risk scoring.
type Severity string

const (
	SevLow      Severity = "low"
	SevMedium   Severity = "medium"
	SevHigh     Severity = "high"
	SevCritical Severity = "critical"
)

// SevRank maps severities to comparable integers.
var SevRank = map[Severity]int{
	SevLow:      0,
	SevMedium:   1,
	SevHigh:     2,
	SevCritical: 3,
}

// Pattern is one immutable detection rule. Match is a case-insensitive
// substring; Regex, when set, takes precedence and is compiled with (?i).
type Pattern struct {
	ID       string   `yaml:"id"`
	Kind     Kind     `yaml:"kind,omitempty"`
	Severity Severity `yaml:"severity"`
	Match    string   `yaml:"match,omitempty"`
	Regex    string   `yaml:"regex,omitempty"`

	re *regexp.Regexp
}

// Matches reports whether the pattern fires on the given message.
// Patterns are independent: no pattern can suppress another.
func (p *Pattern) Matches(message string) bool {
	if p.re != nil {
		return p.re.MatchString(message)
	}
	if p.Match == "" {
		return false
	}
	return strings.Contains(strings.ToLower(message), strings.ToLower(p.Match))
}

// Catalog is a flat ordered sequence of compiled patterns.
// Given the same message and catalog version the matched set is identical
// across calls: matching reads no external state and uses no randomness.
type Catalog struct {
	kind     Kind
	patterns []Pattern
}

// New compiles a catalog from raw patterns. Patterns with an uncompilable
// regex are dropped rather than failing the whole catalog.
func New(kind Kind, patterns []Pattern) *Catalog {
	c := &Catalog{kind: kind}
	for _, p := range patterns {
		if p.Regex != "" {
			re, err := regexp.Compile("(?i)" + p.Regex)
			if err != nil {
				continue
			}
			p.re = re
		}
		if p.Severity == "" {
			p.Severity = SevMedium
		}
		if p.Kind == "" {
			p.Kind = kind
		}
		c.patterns = append(c.patterns, p)
	}
	return c
}

// Kind returns the pattern family this catalog holds.
func (c *Catalog) Kind() Kind {
	return c.kind
}

// Len returns the number of compiled patterns.
func (c *Catalog) Len() int {
	return len(c.patterns)
}

// Patterns returns a copy of the compiled patterns in catalog order.
func (c *Catalog) Patterns() []Pattern {
	out := make([]Pattern, len(c.patterns))
	copy(out, c.patterns)
	return out
}

// Match runs every pattern against the message and returns the matched
// patterns in catalog order.
func (c *Catalog) Match(message string) []Pattern {
	var matched []Pattern
	for i := range c.patterns {
		if c.patterns[i].Matches(message) {
			matched = append(matched, c.patterns[i])
		}
	}
	return matched
}

// MaxSeverity returns the highest severity among matched patterns,
// or ("", false) when the slice is empty.
func MaxSeverity(matched []Pattern) (Severity, bool) {
	if len(matched) == 0 {
		return "", false
	}
	max := matched[0].Severity
	for _, p := range matched[1:] {
		if SevRank[p.Severity] > SevRank[max] {
			max = p.Severity
		}
	}
	return max, true
}

// rawSet is the YAML shape of a catalog file.
type rawSet struct {
	Version         string    `yaml:"version"`
	ControlTriggers []Pattern `yaml:"control_triggers"`
	HardVetoes      []Pattern `yaml:"hard_vetoes"`
	SoftVetoes      []Pattern `yaml:"soft_vetoes"`
	Injection       []Pattern `yaml:"injection"`
	Harassment      []Pattern `yaml:"harassment"`
	Spam            []Pattern `yaml:"spam"`
}

// Set bundles the catalogs the shield gate and abuse detector evaluate.
// Loaded once at process start; immutable afterward.
type Set struct {
	Version         string
	ControlTriggers *Catalog
	HardVetoes      *Catalog
	SoftVetoes      *Catalog
	Injection       *Catalog
	Harassment      *Catalog
	Spam            *Catalog
}

func newSet(raw rawSet) *Set {
	return &Set{
		Version:         raw.Version,
		ControlTriggers: New(KindControlTrigger, raw.ControlTriggers),
		HardVetoes:      New(KindHardVeto, raw.HardVetoes),
		SoftVetoes:      New(KindSoftVeto, raw.SoftVetoes),
		Injection:       New(KindInjection, raw.Injection),
		Harassment:      New(KindHarassment, raw.Harassment),
		Spam:            New(KindSpam, raw.Spam),
	}
}

// AbuseCatalogs returns the catalogs the abuse detector runs, in fixed order.
func (s *Set) AbuseCatalogs() []*Catalog {
	return []*Catalog{s.Injection, s.Harassment, s.Spam}
}

// NewDefaultSet builds a Set from the built-in default patterns.
func NewDefaultSet() *Set {
	return newSet(defaultRaw())
}

// Load reads a catalog set from a YAML file.
// Empty path falls back to ~/.gateward/catalog.yaml.
// Missing file returns the built-in defaults. Invalid YAML is an error.
func Load(path string) (*Set, error) {
	data, err := readCatalogFile(path)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return NewDefaultSet(), nil
	}

	var raw rawSet
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return newSet(raw), nil
}

// LoadWithHash loads a catalog set and returns the SHA-256 of the raw YAML
// bytes on disk. Built-in defaults hash as SHA-256 of empty input.
func LoadWithHash(path string) (*Set, string, error) {
	data, err := readCatalogFile(path)
	if err != nil {
		return nil, "", err
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	if data == nil {
		return NewDefaultSet(), hash, nil
	}

	var raw rawSet
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, "", fmt.Errorf("failed to parse catalog: %w", err)
	}
	return newSet(raw), hash, nil
}

// readCatalogFile resolves the catalog path and reads it.
// Returns (nil, nil) when the file does not exist (defaults apply).
func readCatalogFile(path string) ([]byte, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil
		}
		path = filepath.Join(home, ".gateward", "catalog.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return data, nil
}
