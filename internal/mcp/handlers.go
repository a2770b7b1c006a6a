package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mvolkov/gateward/internal/model"
)

// --- Input/Output types ---

// CheckInput defines parameters for the gateward_check tool.
type CheckInput struct {
	Subject string `json:"subject" jsonschema:"stable identifier of the message author"`
	Message string `json:"message" jsonschema:"message text to evaluate"`
}

// CheckOutput contains the pipeline verdict.
type CheckOutput struct {
	RunID            string   `json:"run_id"`
	Verdict          string   `json:"verdict"`
	Action           string   `json:"action"`
	RiskLevel        string   `json:"risk_level"`
	VetoKind         string   `json:"veto_kind"`
	ControlTriggered bool     `json:"control_triggered"`
	Reasons          []string `json:"reasons"`
}

// BlockInput defines parameters for the gateward_block tool.
type BlockInput struct {
	Subject  string `json:"subject" jsonschema:"subject to block"`
	Reason   string `json:"reason,omitempty" jsonschema:"why the block is applied"`
	Duration string `json:"duration,omitempty" jsonschema:"block duration (e.g. 15m), defaults to 15m"`
}

// BlockOutput confirms the block.
type BlockOutput struct {
	Subject   string `json:"subject"`
	ExpiresAt string `json:"expires_at"`
}

// UnblockInput defines parameters for the gateward_unblock tool.
type UnblockInput struct {
	Subject string `json:"subject" jsonschema:"subject to unblock"`
}

// UnblockOutput confirms the unblock.
type UnblockOutput struct {
	Subject string `json:"subject"`
	Status  string `json:"status"`
}

// StatusInput defines parameters for the gateward_status tool.
type StatusInput struct {
	Subject string `json:"subject" jsonschema:"subject to look up"`
	Window  string `json:"window,omitempty" jsonschema:"veto count window (e.g. 10m), defaults to the escalation window"`
}

// StatusOutput describes a subject's current standing.
type StatusOutput struct {
	Subject     string `json:"subject"`
	Blocked     bool   `json:"blocked"`
	BlockReason string `json:"block_reason,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	RecentVetos int    `json:"recent_vetoes"`
}

// ReloadInput is empty — no parameters needed.
type ReloadInput struct{}

// ReloadOutput reports the active catalog hash after the reload.
type ReloadOutput struct {
	CatalogHash string `json:"catalog_hash"`
}

// --- Handlers ---

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	result := s.guard.EvaluateTurn(ctx, input.Subject, input.Message)

	out := CheckOutput{
		RunID:            result.RunID,
		Verdict:          string(result.Verdict),
		Action:           string(result.Action),
		RiskLevel:        string(result.Summary.RiskLevel),
		VetoKind:         string(result.Summary.VetoKind),
		ControlTriggered: result.Summary.ControlTriggered,
		Reasons:          result.Summary.Reasons,
	}
	if result.Verdict == model.StatusBlock {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleBlock(ctx context.Context, req *mcpsdk.CallToolRequest, input BlockInput) (*mcpsdk.CallToolResult, BlockOutput, error) {
	ttl := 15 * time.Minute
	if input.Duration != "" {
		var err error
		ttl, err = time.ParseDuration(input.Duration)
		if err != nil {
			return nil, BlockOutput{}, fmt.Errorf("invalid duration %q: %w", input.Duration, err)
		}
	}
	reason := input.Reason
	if reason == "" {
		reason = "administrative block"
	}

	if err := s.guard.BlockSubject(input.Subject, reason, ttl); err != nil {
		return nil, BlockOutput{}, err
	}

	return nil, BlockOutput{
		Subject:   input.Subject,
		ExpiresAt: time.Now().UTC().Add(ttl).Format(time.RFC3339),
	}, nil
}

func (s *Server) handleUnblock(ctx context.Context, req *mcpsdk.CallToolRequest, input UnblockInput) (*mcpsdk.CallToolResult, UnblockOutput, error) {
	if err := s.guard.UnblockSubject(input.Subject); err != nil {
		return nil, UnblockOutput{}, err
	}
	return nil, UnblockOutput{Subject: input.Subject, Status: "unblocked"}, nil
}

func (s *Server) handleStatus(ctx context.Context, req *mcpsdk.CallToolRequest, input StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	var window time.Duration
	if input.Window != "" {
		var err error
		window, err = time.ParseDuration(input.Window)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("invalid window %q: %w", input.Window, err)
		}
	}

	status, err := s.guard.SubjectStatus(input.Subject)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	count, err := s.guard.RecentVetoCount(input.Subject, window)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	out := StatusOutput{Subject: input.Subject, RecentVetos: count}
	if status != nil {
		out.Blocked = true
		out.BlockReason = status.Reason
		out.ExpiresAt = status.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleReload(ctx context.Context, req *mcpsdk.CallToolRequest, input ReloadInput) (*mcpsdk.CallToolResult, ReloadOutput, error) {
	if err := s.guard.Reload(); err != nil {
		return nil, ReloadOutput{}, err
	}
	return nil, ReloadOutput{CatalogHash: s.guard.CatalogHash()}, nil
}
