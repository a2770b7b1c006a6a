package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvolkov/gateward/internal/config"
	"github.com/mvolkov/gateward/internal/guard"
	gwmcp "github.com/mvolkov/gateward/internal/mcp"
)

var (
	serveConfig   string
	serveCatalog  string
	serveAuditLog string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveConfig, "config", "c", "", "Path to config YAML (default ~/.gateward/config.yaml)")
	serveCmd.Flags().StringVar(&serveCatalog, "catalog", "", "Path to catalog YAML (overrides config)")
	serveCmd.Flags().StringVar(&serveAuditLog, "audit-log", "", "Path to audit log JSONL file (overrides config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the screening server",
	Long:  "Runs gateward as an MCP (Model Context Protocol) server over stdio.\nExposes the tools: gateward_check, gateward_block, gateward_unblock,\ngateward_status, gateward_reload. Catalog edits hot-reload.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfig)
	if err != nil {
		return err
	}
	if serveCatalog != "" {
		cfg.CatalogPath = serveCatalog
	}
	if serveAuditLog != "" {
		cfg.AuditLog = serveAuditLog
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := gwmcp.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	// Start hot-reload watcher for the catalog file
	reloader, err := guard.NewReloader(srv.Guard(), []string{cfg.CatalogPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
	}
	if reloader != nil {
		go reloader.Run(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down gateward...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "gateward server running on stdio")
	fmt.Fprintf(os.Stderr, "Catalogs: %s\n", srv.Guard().CatalogHash())
	if cfg.AuditLog != "" {
		fmt.Fprintf(os.Stderr, "Audit log: %s\n", cfg.AuditLog)
	}
	fmt.Fprintln(os.Stderr)

	return srv.Run(ctx)
}
