// Package guard assembles the full gating stack from configuration and
// exposes the operations the CLI, daemon, and MCP surfaces share: turn
// evaluation, subject administration, and hot reload.
package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mvolkov/gateward/internal/abuse"
	"github.com/mvolkov/gateward/internal/alert"
	"github.com/mvolkov/gateward/internal/audit"
	"github.com/mvolkov/gateward/internal/catalog"
	"github.com/mvolkov/gateward/internal/config"
	"github.com/mvolkov/gateward/internal/events"
	"github.com/mvolkov/gateward/internal/gate"
	"github.com/mvolkov/gateward/internal/gates"
	"github.com/mvolkov/gateward/internal/model"
	"github.com/mvolkov/gateward/internal/pipeline"
	"github.com/mvolkov/gateward/internal/ratelimit"
	"github.com/mvolkov/gateward/internal/respond"
	"github.com/mvolkov/gateward/internal/shield"
	"github.com/mvolkov/gateward/internal/store"
)

// TurnResult is the outcome of evaluating one inbound turn.
type TurnResult struct {
	RunID      string            `json:"run_id"`
	Subject    string            `json:"subject"`
	Verdict    model.GateStatus  `json:"verdict"`
	Action     model.GateAction  `json:"action"`
	Redirected bool              `json:"redirected"`
	Summary    model.RiskSummary `json:"summary"`
	Results    []gate.Result     `json:"results"`
}

// Guard owns the catalogs, stores, detector, and pipeline for one process.
type Guard struct {
	mu          sync.RWMutex
	catalogs    *catalog.Set
	catalogHash string
	detector    *abuse.Detector
	pipe        *pipeline.Pipeline
	dispatcher  *alert.Dispatcher

	stores    store.Stores
	limiter   *ratelimit.Tracker
	closer    func() error
	auditLog  *audit.Log
	emitter   events.Emitter
	responder *respond.Responder
	cfg       *config.Config
}

// New builds a Guard from configuration.
func New(ctx context.Context, cfg *config.Config) (*Guard, error) {
	set, hash, err := catalog.LoadWithHash(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}

	stores, closer, err := openStores(cfg.Store, cfg.Abuse.EscalationWindow)
	if err != nil {
		return nil, err
	}

	var auditLog *audit.Log
	if cfg.AuditLog != "" {
		auditLog, err = audit.Open(cfg.AuditLog)
		if err != nil {
			if closer != nil {
				closer()
			}
			return nil, fmt.Errorf("open audit log: %w", err)
		}
	}

	emitter, err := buildEmitter(ctx, cfg)
	if err != nil {
		if closer != nil {
			closer()
		}
		return nil, err
	}

	g := &Guard{
		catalogs:    set,
		catalogHash: hash,
		dispatcher:  alert.NewDispatcher(cfg.Alerts),
		stores:      stores,
		limiter:     ratelimit.NewTracker(),
		closer:      closer,
		auditLog:    auditLog,
		emitter:     emitter,
		responder: &respond.Responder{
			Refusal:          cfg.Respond.Refusal,
			RedirectPreamble: cfg.Respond.RedirectPreamble,
		},
		cfg: cfg,
	}
	g.rebuild(set, hash)
	return g, nil
}

// rebuild swaps in a detector and pipeline over the given catalogs.
// Caller must not hold g.mu.
func (g *Guard) rebuild(set *catalog.Set, hash string) {
	detector := abuse.New(set, g.stores, abuse.Config{
		EscalationWindow: g.cfg.Abuse.EscalationWindow,
		VetoThreshold:    g.cfg.Abuse.VetoThreshold,
		BlockTTL:         g.cfg.Abuse.BlockTTL,
	})
	detector.OnEvent(g.onAbuseEvent)

	normal := []gate.Gate{gates.NewIntakeGate()}
	if g.cfg.RateLimits.HasLimits() {
		normal = append(normal, gates.NewRateLimitGate(g.limiter, g.cfg.RateLimits))
	}
	normal = append(normal,
		gates.NewBlocklistGate(g.stores.Blocks),
		gates.NewAbuseGate(detector),
	)
	terminal := shield.New(set, detector, g.stores.Blocks)
	pipe := pipeline.New(normal, terminal, g.cfg.GateTimeout)

	g.mu.Lock()
	g.catalogs = set
	g.catalogHash = hash
	g.detector = detector
	g.pipe = pipe
	g.mu.Unlock()
}

// Reload re-reads the catalog file and atomically swaps the detection stack.
// Called by the hot-reloader on file change. Stores and history survive.
func (g *Guard) Reload() error {
	set, hash, err := catalog.LoadWithHash(g.cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("reload catalogs: %w", err)
	}
	g.rebuild(set, hash)
	return nil
}

// CatalogHash returns the hash of the active catalog file.
func (g *Guard) CatalogHash() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.catalogHash
}

// EvaluateTurn runs one inbound turn through the pipeline, records the
// verdict in the audit log, and dispatches alerts for non-pass outcomes.
func (g *Guard) EvaluateTurn(ctx context.Context, subject, message string) *TurnResult {
	g.mu.RLock()
	pipe := g.pipe
	hash := g.catalogHash
	g.mu.RUnlock()

	run := pipe.Run(ctx, subject, message)
	summary, _ := run.Summary()

	result := &TurnResult{
		RunID:      run.State.RunID,
		Subject:    subject,
		Verdict:    run.Verdict,
		Action:     model.ActionFor(run.Verdict),
		Redirected: run.Redirected,
		Summary:    summary,
		Results:    run.Results,
	}

	g.recordAudit(result, hash)
	if result.Verdict != model.StatusPass {
		g.dispatchAlert(result, hash)
	}
	return result
}

// Respond renders the verdict of a turn onto a candidate reply.
func (g *Guard) Respond(result *TurnResult, reply string) (string, error) {
	reason := ""
	if len(result.Summary.Reasons) > 0 {
		reason = result.Summary.Reasons[0]
	}
	return g.responder.Apply(result.RunID, result.Verdict, reason, reply)
}

// BlockSubject applies an administrative block.
func (g *Guard) BlockSubject(subject, reason string, ttl time.Duration) error {
	return g.stores.Blocks.Block(subject, reason, ttl)
}

// UnblockSubject lifts a block. No-op when none is active.
func (g *Guard) UnblockSubject(subject string) error {
	return g.stores.Blocks.Unblock(subject)
}

// SubjectStatus returns the active block for subject, or nil.
func (g *Guard) SubjectStatus(subject string) (*model.BlockStatus, error) {
	return g.stores.Blocks.Status(subject)
}

// TrackVeto records a manual veto event for subject.
func (g *Guard) TrackVeto(subject string) error {
	return g.stores.Vetoes.Track(subject)
}

// RecentVetoCount counts subject's vetoes inside the sliding window.
// window <= 0 uses the configured escalation window.
func (g *Guard) RecentVetoCount(subject string, window time.Duration) (int, error) {
	if window <= 0 {
		window = g.cfg.Abuse.EscalationWindow
	}
	return g.stores.Vetoes.RecentCount(subject, window)
}

// VerifyAuditLog validates the hash chain of the configured audit log.
func (g *Guard) VerifyAuditLog() audit.VerifyResult {
	if g.cfg.AuditLog == "" {
		return audit.VerifyResult{Error: "no audit log configured"}
	}
	return audit.Verify(g.cfg.AuditLog)
}

// Close releases the audit log, store backend, and emitters.
func (g *Guard) Close() error {
	var firstErr error
	if g.auditLog != nil {
		if err := g.auditLog.Close(); err != nil {
			firstErr = err
		}
	}
	if g.closer != nil {
		if err := g.closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c, ok := g.emitter.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (g *Guard) onAbuseEvent(event model.AbuseEvent) {
	if g.emitter != nil {
		g.emitter.Emit(event)
	}
	if g.dispatcher != nil && event.Type == model.EventSubjectBlocked {
		g.dispatcher.Dispatch(alert.Event{
			Timestamp:   event.Timestamp.UTC().Format(audit.TimestampFormat),
			Subject:     event.Subject,
			Reason:      event.Reason,
			RiskLevel:   string(model.RiskCritical),
			CatalogHash: g.CatalogHash(),
			Type:        string(event.Type),
		})
	}
}

func (g *Guard) recordAudit(result *TurnResult, hash string) {
	if g.auditLog == nil {
		return
	}
	g.auditLog.Record(audit.Entry{
		RunID:       result.RunID,
		Subject:     result.Subject,
		Verdict:     string(result.Verdict),
		RiskLevel:   string(result.Summary.RiskLevel),
		Reasons:     result.Summary.Reasons,
		CatalogHash: hash,
	})
}

func (g *Guard) dispatchAlert(result *TurnResult, hash string) {
	if g.dispatcher == nil {
		return
	}
	reason := ""
	if len(result.Summary.Reasons) > 0 {
		reason = result.Summary.Reasons[0]
	}
	g.dispatcher.Dispatch(alert.Event{
		Timestamp:   time.Now().UTC().Format(audit.TimestampFormat),
		RunID:       result.RunID,
		Subject:     result.Subject,
		Verdict:     string(result.Verdict),
		Reason:      reason,
		RiskLevel:   string(result.Summary.RiskLevel),
		CatalogHash: hash,
	})
}

// openStores builds the configured store backend. The returned closer may
// be nil for the memory backend. Retention is raised to at least the
// escalation window so the detector's sliding count never queries past
// pruned history.
func openStores(cfg config.StoreConfig, escalationWindow time.Duration) (store.Stores, func() error, error) {
	retention := cfg.Retention
	if retention <= 0 {
		retention = store.DefaultRetention
	}
	if retention < escalationWindow {
		retention = escalationWindow
	}
	switch cfg.Backend {
	case "", "memory":
		mem := store.NewMemoryWithClock(retention, time.Now)
		return store.Stores{Blocks: mem, Vetoes: mem}, nil, nil
	case "sqlite":
		db, err := store.OpenSQLite(cfg.Path, retention)
		if err != nil {
			return store.Stores{}, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store.Stores{Blocks: db, Vetoes: db}, db.Close, nil
	default:
		return store.Stores{}, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func buildEmitter(ctx context.Context, cfg *config.Config) (events.Emitter, error) {
	if cfg.PubSub.Project == "" {
		return events.NewLogEmitter(), nil
	}
	ps, err := events.NewPubSubEmitter(ctx, cfg.PubSub.Project, cfg.PubSub.Topic)
	if err != nil {
		return nil, fmt.Errorf("connect pubsub: %w", err)
	}
	return events.NewMultiEmitter(events.NewLogEmitter(), ps), nil
}
