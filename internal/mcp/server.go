// Package mcp exposes gateward over the Model Context Protocol so agent
// hosts can screen turns and administer blocks without linking the library.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mvolkov/gateward/internal/config"
	"github.com/mvolkov/gateward/internal/guard"
)

// Server wraps the MCP SDK server around a Guard.
type Server struct {
	mcpServer *mcpsdk.Server
	guard     *guard.Guard
}

// New creates an MCP server over a fully built Guard.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	g, err := guard.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build guard: %w", err)
	}

	s := &Server{guard: g}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "gateward",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Guard returns the underlying guard, for hot-reload wiring.
func (s *Server) Guard() *guard.Guard {
	return s.guard
}

// Close releases the guard's resources.
func (s *Server) Close() error {
	return s.guard.Close()
}

// registerTools adds all gateward tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "gateward_check",
		Description: "Evaluate a message through the gate pipeline. Returns the verdict (pass/escalate/block) with risk level and reasons.",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "gateward_block",
		Description: "Apply an administrative block to a subject for a duration. Blocked subjects are rejected at the gate regardless of message content.",
	}, s.handleBlock)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "gateward_unblock",
		Description: "Lift an active block from a subject.",
	}, s.handleUnblock)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "gateward_status",
		Description: "Look up a subject's block status and recent veto count.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "gateward_reload",
		Description: "Reload the pattern catalogs from disk. Block and veto history are preserved.",
	}, s.handleReload)
}
