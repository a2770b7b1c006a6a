package ratelimit

import "time"

// TurnRateLimit bounds inbound turns for one subject.
// Zero values mean no limit.
type TurnRateLimit struct {
	MaxTurns int           `yaml:"max_turns"`
	Window   time.Duration `yaml:"window"`
}

// Limits maps subjects to their turn rate limits.
// The "*" key is the fallback for subjects without an explicit entry.
type Limits map[string]*TurnRateLimit

// HasLimits returns true if any subject has a configured limit.
func (l Limits) HasLimits() bool {
	for _, trl := range l {
		if trl != nil && trl.MaxTurns > 0 && trl.Window > 0 {
			return true
		}
	}
	return false
}

// ForSubject returns the limit for subject, falling back to "*".
// Returns nil when neither is configured.
func (l Limits) ForSubject(subject string) *TurnRateLimit {
	if trl := l[subject]; trl != nil {
		return trl
	}
	return l["*"]
}
