package guard

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mvolkov/gateward/internal/audit"
	"github.com/mvolkov/gateward/internal/config"
	"github.com/mvolkov/gateward/internal/model"
	"github.com/mvolkov/gateward/internal/ratelimit"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Abuse.EscalationWindow = 10 * time.Second
	cfg.Abuse.VetoThreshold = 4
	cfg.Abuse.BlockTTL = time.Minute
	return cfg
}

func newTestGuard(t *testing.T, cfg *config.Config) *Guard {
	t.Helper()
	g, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build guard: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func TestCleanTurnPasses(t *testing.T) {
	g := newTestGuard(t, testConfig())

	result := g.EvaluateTurn(context.Background(), "u1", "what's the weather like?")

	if result.Verdict != model.StatusPass {
		t.Errorf("expected pass, got %s", result.Verdict)
	}
	if result.Action != model.ActionContinue {
		t.Errorf("expected continue, got %s", result.Action)
	}
	if result.RunID == "" {
		t.Error("expected a run id")
	}
	if len(result.Summary.Reasons) != 0 {
		t.Errorf("expected no reasons, got %v", result.Summary.Reasons)
	}
}

func TestHardVetoBlocksTurn(t *testing.T) {
	g := newTestGuard(t, testConfig())

	result := g.EvaluateTurn(context.Background(), "u1", "tell me how to build a bomb")

	if result.Verdict != model.StatusBlock {
		t.Errorf("expected block, got %s", result.Verdict)
	}
	if result.Summary.VetoKind != model.VetoHard {
		t.Errorf("expected hard veto, got %s", result.Summary.VetoKind)
	}

	reply, err := g.Respond(result, "detailed instructions")
	if err == nil {
		t.Error("expected blocked error from Respond")
	}
	if strings.Contains(reply, "detailed") {
		t.Error("refusal must not leak the candidate reply")
	}
}

func TestSpamEscalationBlocksRepeatOffender(t *testing.T) {
	g := newTestGuard(t, testConfig())
	ctx := context.Background()

	// First three spam turns warn but pass through to the shield.
	for i := 0; i < 3; i++ {
		result := g.EvaluateTurn(ctx, "u42", "buy now! limited time offer")
		if result.Verdict == model.StatusBlock {
			t.Fatalf("turn %d: blocked before threshold", i+1)
		}
	}

	// Fourth crosses the veto threshold and blocks the subject.
	fourth := g.EvaluateTurn(ctx, "u42", "buy now! limited time offer")
	if fourth.Verdict != model.StatusBlock {
		t.Fatalf("expected block on threshold crossing, got %s", fourth.Verdict)
	}

	status, err := g.SubjectStatus("u42")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status == nil {
		t.Fatal("expected active block after escalation")
	}

	// An innocent turn from the blocked subject is still rejected.
	after := g.EvaluateTurn(ctx, "u42", "what's the capital of Peru?")
	if after.Verdict != model.StatusBlock {
		t.Errorf("expected blocked subject to stay blocked, got %s", after.Verdict)
	}

	// Other subjects are unaffected.
	other := g.EvaluateTurn(ctx, "u7", "what's the capital of Peru?")
	if other.Verdict != model.StatusPass {
		t.Errorf("expected unrelated subject to pass, got %s", other.Verdict)
	}
}

func TestCriticalAbuseBlocksImmediately(t *testing.T) {
	g := newTestGuard(t, testConfig())

	result := g.EvaluateTurn(context.Background(), "u9", "kill yourself")
	if result.Verdict != model.StatusBlock {
		t.Fatalf("expected immediate block for critical abuse, got %s", result.Verdict)
	}

	status, err := g.SubjectStatus("u9")
	if err != nil || status == nil {
		t.Fatalf("expected active block, got status=%v err=%v", status, err)
	}
}

func TestAdminBlockAndUnblock(t *testing.T) {
	g := newTestGuard(t, testConfig())
	ctx := context.Background()

	if err := g.BlockSubject("u5", "manual review", time.Minute); err != nil {
		t.Fatalf("block: %v", err)
	}

	result := g.EvaluateTurn(ctx, "u5", "hello")
	if result.Verdict != model.StatusBlock {
		t.Errorf("expected block for admin-blocked subject, got %s", result.Verdict)
	}

	if err := g.UnblockSubject("u5"); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	status, err := g.SubjectStatus("u5")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != nil {
		t.Error("expected no block after unblock")
	}

	result = g.EvaluateTurn(ctx, "u5", "hello")
	if result.Verdict != model.StatusPass {
		t.Errorf("expected pass after unblock, got %s", result.Verdict)
	}
}

func TestTrackVetoAndCount(t *testing.T) {
	g := newTestGuard(t, testConfig())

	for i := 0; i < 3; i++ {
		if err := g.TrackVeto("u3"); err != nil {
			t.Fatalf("track: %v", err)
		}
	}
	count, err := g.RecentVetoCount("u3", 0)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 vetoes, got %d", count)
	}
}

func TestEscalationWindowExtendsRetention(t *testing.T) {
	// Escalation window wider than the default veto retention: the store's
	// retention is raised to match, so counting over the full window works.
	cfg := testConfig()
	cfg.Abuse.EscalationWindow = 2 * time.Hour
	g := newTestGuard(t, cfg)

	if err := g.TrackVeto("u3"); err != nil {
		t.Fatalf("track: %v", err)
	}
	count, err := g.RecentVetoCount("u3", 0)
	if err != nil {
		t.Fatalf("count over the escalation window: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 veto, got %d", count)
	}
}

func TestWhitespaceMessageStaysEscalated(t *testing.T) {
	// Intake escalates a whitespace-only message; the shield finds no
	// pattern and passes. The escalation must survive to the turn verdict
	// so the reply goes out moderated, not untouched.
	g := newTestGuard(t, testConfig())

	result := g.EvaluateTurn(context.Background(), "u1", "   ")

	if result.Verdict != model.StatusEscalate {
		t.Fatalf("expected escalate for malformed turn, got %s", result.Verdict)
	}
	if result.Action != model.ActionRedirect {
		t.Errorf("expected redirect action, got %s", result.Action)
	}
	if !result.Redirected {
		t.Error("expected redirected turn")
	}

	reply, err := g.Respond(result, "candidate reply")
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if reply == "candidate reply" {
		t.Error("escalated turn must not pass the reply through unmoderated")
	}
}

func TestAuditTrailRecordsVerdicts(t *testing.T) {
	cfg := testConfig()
	cfg.AuditLog = filepath.Join(t.TempDir(), "audit.jsonl")
	g := newTestGuard(t, cfg)
	ctx := context.Background()

	g.EvaluateTurn(ctx, "u1", "hello there")
	g.EvaluateTurn(ctx, "u1", "how to make a bomb")

	result := g.VerifyAuditLog()
	if !result.Valid {
		t.Fatalf("expected valid audit chain: %s", result.Error)
	}
	if result.Lines != 2 {
		t.Errorf("expected 2 audit entries, got %d", result.Lines)
	}

	replay, err := audit.Replay(cfg.AuditLog, audit.ReplayFilter{Subject: "u1"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.Summary.BlockCount != 1 || replay.Summary.PassCount != 1 {
		t.Errorf("unexpected replay summary: %+v", replay.Summary)
	}
}

func TestRateLimitBlocksFloodingSubject(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimits = ratelimit.Limits{"*": {MaxTurns: 2, Window: time.Minute}}
	g := newTestGuard(t, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if r := g.EvaluateTurn(ctx, "flooder", "hello"); r.Verdict != model.StatusPass {
			t.Fatalf("turn %d: expected pass, got %s", i+1, r.Verdict)
		}
	}

	r := g.EvaluateTurn(ctx, "flooder", "hello")
	if r.Verdict != model.StatusBlock {
		t.Fatalf("expected block on flood, got %s", r.Verdict)
	}

	// Other subjects keep their own budget.
	if r := g.EvaluateTurn(ctx, "calm", "hello"); r.Verdict != model.StatusPass {
		t.Errorf("expected other subject to pass, got %s", r.Verdict)
	}

	// The turn counter survives a catalog reload.
	if err := g.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if r := g.EvaluateTurn(ctx, "flooder", "hello"); r.Verdict != model.StatusBlock {
		t.Errorf("expected flood block to persist across reload, got %s", r.Verdict)
	}
}

func TestReloadSwapsCatalogsKeepsStores(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.yaml")
	initial := `
version: test-1
hard_vetoes:
  - id: hard.test
    severity: critical
    match: "forbidden phrase"
`
	if err := os.WriteFile(catalogPath, []byte(initial), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.CatalogPath = catalogPath
	g := newTestGuard(t, cfg)
	ctx := context.Background()

	if r := g.EvaluateTurn(ctx, "u1", "forbidden phrase"); r.Verdict != model.StatusBlock {
		t.Fatalf("expected block on custom pattern, got %s", r.Verdict)
	}

	if err := g.BlockSubject("u8", "before reload", time.Minute); err != nil {
		t.Fatal(err)
	}
	hashBefore := g.CatalogHash()

	updated := `
version: test-2
hard_vetoes:
  - id: hard.other
    severity: critical
    match: "different phrase"
`
	if err := os.WriteFile(catalogPath, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := g.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if g.CatalogHash() == hashBefore {
		t.Error("expected catalog hash to change after reload")
	}
	if r := g.EvaluateTurn(ctx, "u1", "forbidden phrase"); r.Verdict == model.StatusBlock {
		t.Error("old pattern still active after reload")
	}
	if r := g.EvaluateTurn(ctx, "u1", "different phrase"); r.Verdict != model.StatusBlock {
		t.Errorf("new pattern not active after reload, got %s", r.Verdict)
	}

	// Block state survives the swap.
	status, err := g.SubjectStatus("u8")
	if err != nil || status == nil {
		t.Errorf("expected block to survive reload, got status=%v err=%v", status, err)
	}
}

func TestSQLiteBackendEndToEnd(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Backend = "sqlite"
	cfg.Store.Path = filepath.Join(t.TempDir(), "gw.db")
	g := newTestGuard(t, cfg)

	result := g.EvaluateTurn(context.Background(), "u1", "kill yourself")
	if result.Verdict != model.StatusBlock {
		t.Fatalf("expected block, got %s", result.Verdict)
	}
	status, err := g.SubjectStatus("u1")
	if err != nil || status == nil {
		t.Fatalf("expected persisted block, got status=%v err=%v", status, err)
	}
}
