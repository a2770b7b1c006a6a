// Package abuse evaluates messages against the abuse pattern catalogs and
// keeps the per-subject block and veto bookkeeping. Other components react
// to detections through the event hook, never by reaching into the detector.
package abuse

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mvolkov/gateward/internal/catalog"
	"github.com/mvolkov/gateward/internal/model"
	"github.com/mvolkov/gateward/internal/store"
)

// Action is the detector's verdict for one message.
type Action string

const (
	ActionAllow Action = "allow"
	ActionWarn  Action = "warn"
	ActionBlock Action = "block"
)

// CheckResult is the outcome of one abuse check.
type CheckResult struct {
	Matched []catalog.Pattern
	Action  Action
	Reason  string
}

// Config holds the escalation parameters.
type Config struct {
	EscalationWindow time.Duration `yaml:"escalation_window"`
	VetoThreshold    int           `yaml:"veto_threshold"`
	BlockTTL         time.Duration `yaml:"block_ttl"`
}

// DefaultConfig returns the built-in escalation parameters.
func DefaultConfig() Config {
	return Config{
		EscalationWindow: 10 * time.Minute,
		VetoThreshold:    5,
		BlockTTL:         15 * time.Minute,
	}
}

// Listener receives abuse events. Delivery is synchronous and best-effort:
// a listener that panics is logged and skipped, never aborting the check.
type Listener func(model.AbuseEvent)

// Subscription is the handle returned by OnEvent, used to remove a listener.
type Subscription struct {
	id uuid.UUID
}

type registration struct {
	id uuid.UUID
	fn Listener
}

// Detector runs the abuse catalogs and maintains block/veto state.
type Detector struct {
	catalogs *catalog.Set
	blocks   store.BlockStore
	vetoes   store.VetoHistory
	cfg      Config
	now      func() time.Time

	mu        sync.Mutex
	listeners []registration
	last      map[string]CheckResult
}

// New creates a Detector over the given catalogs and stores.
func New(set *catalog.Set, stores store.Stores, cfg Config) *Detector {
	if cfg.EscalationWindow <= 0 {
		cfg.EscalationWindow = DefaultConfig().EscalationWindow
	}
	if cfg.VetoThreshold <= 0 {
		cfg.VetoThreshold = DefaultConfig().VetoThreshold
	}
	if cfg.BlockTTL <= 0 {
		cfg.BlockTTL = DefaultConfig().BlockTTL
	}
	return &Detector{
		catalogs: set,
		blocks:   stores.Blocks,
		vetoes:   stores.Vetoes,
		cfg:      cfg,
		now:      time.Now,
		last:     make(map[string]CheckResult),
	}
}

// SetClock overrides the detector's clock. Test harness use only.
func (d *Detector) SetClock(now func() time.Time) {
	d.now = now
}

// OnEvent registers a listener. Listeners are invoked in registration order.
func (d *Detector) OnEvent(fn Listener) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	sub := Subscription{id: uuid.New()}
	d.listeners = append(d.listeners, registration{id: sub.id, fn: fn})
	return sub
}

// Remove unregisters the listener behind sub. No-op for unknown handles.
func (d *Detector) Remove(sub Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, reg := range d.listeners {
		if reg.id == sub.id {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}

// ClearHandlers removes all listeners. Test/reset use.
func (d *Detector) ClearHandlers() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = nil
}

// LastResult returns the most recent check result for subject, if any.
// Consumers (the shield gate) consult this instead of recomputing detection.
func (d *Detector) LastResult(subject string) (CheckResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.last[subject]
	return r, ok
}

// Check evaluates message for subject against all abuse catalogs.
//
// Order:
//  1. Run every catalog; collect matches (independent per pattern).
//  2. Emit a pattern_matched event per match.
//  3. Critical match → immediate block, bypassing veto-count escalation.
//  4. Otherwise any match → track a veto, then compare the sliding-window
//     count against the threshold; crossing it also blocks.
//
// Store writes are skipped when ctx is already cancelled so a cancelled
// pipeline run never applies a partial block or veto.
func (d *Detector) Check(ctx context.Context, subject, message string) (CheckResult, error) {
	if subject == "" {
		return CheckResult{Action: ActionWarn, Reason: "missing subject"},
			fmt.Errorf("%w: empty subject", model.ErrInvalidArgument)
	}

	var matched []catalog.Pattern
	for _, c := range d.catalogs.AbuseCatalogs() {
		matched = append(matched, c.Match(message)...)
	}

	if len(matched) == 0 {
		result := CheckResult{Action: ActionAllow}
		d.remember(subject, result)
		return result, nil
	}

	now := d.now().UTC()
	for _, p := range matched {
		d.emit(model.AbuseEvent{
			Type:      model.EventPatternMatched,
			Subject:   subject,
			PatternID: p.ID,
			Severity:  string(p.Severity),
			Timestamp: now,
		})
	}

	if err := ctx.Err(); err != nil {
		// Cancelled before any store write: report what matched but apply
		// nothing to shared state.
		result := CheckResult{Matched: matched, Action: ActionWarn, Reason: "check cancelled before state update"}
		return result, err
	}

	if sev, _ := catalog.MaxSeverity(matched); sev == catalog.SevCritical {
		reason := fmt.Sprintf("critical abuse pattern: %s", matched[0].ID)
		if err := d.blocks.Block(subject, reason, d.cfg.BlockTTL); err != nil {
			result := CheckResult{Matched: matched, Action: ActionWarn, Reason: reason}
			return result, err
		}
		d.emit(model.AbuseEvent{
			Type:      model.EventSubjectBlocked,
			Subject:   subject,
			PatternID: matched[0].ID,
			Reason:    reason,
			Timestamp: now,
		})
		result := CheckResult{Matched: matched, Action: ActionBlock, Reason: reason}
		d.remember(subject, result)
		return result, nil
	}

	if err := d.vetoes.Track(subject); err != nil {
		result := CheckResult{Matched: matched, Action: ActionWarn, Reason: "veto tracking failed"}
		return result, err
	}
	count, err := d.vetoes.RecentCount(subject, d.cfg.EscalationWindow)
	if err != nil {
		result := CheckResult{Matched: matched, Action: ActionWarn, Reason: "veto count unavailable"}
		return result, err
	}

	if count >= d.cfg.VetoThreshold {
		reason := fmt.Sprintf("veto threshold crossed: %d in %s", count, d.cfg.EscalationWindow)
		d.emit(model.AbuseEvent{
			Type:      model.EventThresholdCrossed,
			Subject:   subject,
			Reason:    reason,
			Timestamp: now,
		})
		if err := d.blocks.Block(subject, reason, d.cfg.BlockTTL); err != nil {
			result := CheckResult{Matched: matched, Action: ActionWarn, Reason: reason}
			return result, err
		}
		d.emit(model.AbuseEvent{
			Type:      model.EventSubjectBlocked,
			Subject:   subject,
			Reason:    reason,
			Timestamp: now,
		})
		result := CheckResult{Matched: matched, Action: ActionBlock, Reason: reason}
		d.remember(subject, result)
		return result, nil
	}

	result := CheckResult{
		Matched: matched,
		Action:  ActionWarn,
		Reason:  fmt.Sprintf("%d abuse pattern(s) matched, %d/%d vetoes in window", len(matched), count, d.cfg.VetoThreshold),
	}
	d.remember(subject, result)
	return result, nil
}

func (d *Detector) remember(subject string, result CheckResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last[subject] = result
}

// emit delivers the event to all listeners in registration order.
// A panicking listener is logged and skipped.
func (d *Detector) emit(event model.AbuseEvent) {
	d.mu.Lock()
	listeners := make([]registration, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.Unlock()

	for _, reg := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("abuse listener %s panicked: %v", reg.id, r)
				}
			}()
			reg.fn(event)
		}()
	}
}
