package abuse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mvolkov/gateward/internal/catalog"
	"github.com/mvolkov/gateward/internal/model"
	"github.com/mvolkov/gateward/internal/store"
)

var epoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestDetector(t *testing.T, cfg Config) (*Detector, *store.Memory, func(time.Time)) {
	t.Helper()
	current := epoch
	clock := func() time.Time { return current }
	advance := func(nt time.Time) { current = nt }

	mem := store.NewMemoryWithClock(time.Hour, clock)
	d := New(catalog.NewDefaultSet(), store.Stores{Blocks: mem, Vetoes: mem}, cfg)
	d.SetClock(clock)
	return d, mem, advance
}

func TestCheckCleanMessage(t *testing.T) {
	d, _, _ := newTestDetector(t, DefaultConfig())

	result, err := d.Check(context.Background(), "u1", "how tall is the Eiffel Tower?")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if result.Action != ActionAllow {
		t.Errorf("expected allow, got %s", result.Action)
	}
	if len(result.Matched) != 0 {
		t.Errorf("expected no matches, got %d", len(result.Matched))
	}
}

func TestCheckEmptySubject(t *testing.T) {
	d, _, _ := newTestDetector(t, DefaultConfig())

	_, err := d.Check(context.Background(), "", "hello")
	if !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestCheckWarnBelowThreshold(t *testing.T) {
	d, mem, _ := newTestDetector(t, Config{VetoThreshold: 4, EscalationWindow: 10 * time.Second, BlockTTL: time.Minute})

	result, err := d.Check(context.Background(), "u1", "buy now while stocks last")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if result.Action != ActionWarn {
		t.Errorf("expected warn, got %s", result.Action)
	}
	if blocked, _ := mem.IsBlocked("u1"); blocked {
		t.Error("expected no block below threshold")
	}
}

func TestCriticalPatternBlocksImmediately(t *testing.T) {
	d, mem, _ := newTestDetector(t, DefaultConfig())

	result, err := d.Check(context.Background(), "u1", "kill yourself")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if result.Action != ActionBlock {
		t.Errorf("expected block for critical pattern, got %s", result.Action)
	}
	if blocked, _ := mem.IsBlocked("u1"); !blocked {
		t.Error("expected immediate block")
	}
	// Critical bypass: no veto event was tracked.
	if count, _ := mem.RecentCount("u1", time.Hour); count != 0 {
		t.Errorf("expected 0 tracked vetoes on critical bypass, got %d", count)
	}
}

func TestThresholdEscalation(t *testing.T) {
	// Spec scenario: 5 spam messages within 2s, threshold 4 in a 10s window.
	// The 4th message crosses the threshold and blocks.
	d, mem, advance := newTestDetector(t, Config{VetoThreshold: 4, EscalationWindow: 10 * time.Second, BlockTTL: time.Minute})

	var blockedEvents int
	d.OnEvent(func(ev model.AbuseEvent) {
		if ev.Type == model.EventSubjectBlocked {
			blockedEvents++
		}
	})

	for i := 0; i < 5; i++ {
		advance(epoch.Add(time.Duration(i) * 400 * time.Millisecond))
		result, err := d.Check(context.Background(), "u42", "click here for a limited time offer")
		if err != nil {
			t.Fatalf("message %d: %v", i+1, err)
		}
		switch {
		case i < 3:
			if result.Action != ActionWarn {
				t.Errorf("message %d: expected warn, got %s", i+1, result.Action)
			}
		case i == 3:
			if result.Action != ActionBlock {
				t.Errorf("message 4: expected block at threshold, got %s", result.Action)
			}
		}
	}

	if blocked, _ := mem.IsBlocked("u42"); !blocked {
		t.Error("expected u42 blocked after threshold")
	}
	if blockedEvents == 0 {
		t.Error("expected subject_blocked event delivery")
	}
}

func TestListenersReceiveMatchEvents(t *testing.T) {
	d, _, _ := newTestDetector(t, DefaultConfig())

	var got []model.AbuseEvent
	d.OnEvent(func(ev model.AbuseEvent) { got = append(got, ev) })

	d.Check(context.Background(), "u1", "click here and buy now")

	matches := 0
	for _, ev := range got {
		if ev.Type == model.EventPatternMatched {
			matches++
		}
	}
	if matches != 2 {
		t.Errorf("expected 2 pattern_matched events, got %d", matches)
	}
}

func TestListenerOrderAndRemoval(t *testing.T) {
	d, _, _ := newTestDetector(t, DefaultConfig())

	var order []string
	subA := d.OnEvent(func(model.AbuseEvent) { order = append(order, "a") })
	d.OnEvent(func(model.AbuseEvent) { order = append(order, "b") })

	d.Check(context.Background(), "u1", "buy now")
	if len(order) < 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("expected registration order a,b got %v", order)
	}

	order = nil
	d.Remove(subA)
	d.Check(context.Background(), "u1", "buy now")
	for _, o := range order {
		if o == "a" {
			t.Error("removed listener still invoked")
		}
	}
}

func TestListenerPanicIsolated(t *testing.T) {
	d, _, _ := newTestDetector(t, DefaultConfig())

	var reached bool
	d.OnEvent(func(model.AbuseEvent) { panic("listener bug") })
	d.OnEvent(func(model.AbuseEvent) { reached = true })

	result, err := d.Check(context.Background(), "u1", "buy now")
	if err != nil {
		t.Fatalf("Check failed despite listener panic: %v", err)
	}
	if result.Action != ActionWarn {
		t.Errorf("expected warn, got %s", result.Action)
	}
	if !reached {
		t.Error("expected later listener to still run")
	}
}

func TestClearHandlers(t *testing.T) {
	d, _, _ := newTestDetector(t, DefaultConfig())

	var fired bool
	d.OnEvent(func(model.AbuseEvent) { fired = true })
	d.ClearHandlers()

	d.Check(context.Background(), "u1", "buy now")
	if fired {
		t.Error("expected no listener invocation after ClearHandlers")
	}
}

func TestCancelledContextSkipsStoreWrites(t *testing.T) {
	d, mem, _ := newTestDetector(t, Config{VetoThreshold: 1, EscalationWindow: 10 * time.Second, BlockTTL: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Check(ctx, "u1", "buy now")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if count, _ := mem.RecentCount("u1", time.Hour); count != 0 {
		t.Errorf("expected no veto applied on cancelled run, got %d", count)
	}
	if blocked, _ := mem.IsBlocked("u1"); blocked {
		t.Error("expected no block applied on cancelled run")
	}
}

func TestLastResultConsulted(t *testing.T) {
	d, _, _ := newTestDetector(t, DefaultConfig())

	if _, ok := d.LastResult("u1"); ok {
		t.Error("expected no last result before any check")
	}
	d.Check(context.Background(), "u1", "buy now")
	r, ok := d.LastResult("u1")
	if !ok {
		t.Fatal("expected last result after check")
	}
	if r.Action != ActionWarn {
		t.Errorf("expected warn, got %s", r.Action)
	}
}
