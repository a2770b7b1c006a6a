package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvolkov/gateward/internal/config"
	"github.com/mvolkov/gateward/internal/guard"
)

var (
	subjectConfig string
	blockReason   string
	blockTTL      time.Duration
	statusWindow  time.Duration
)

func init() {
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(unblockCmd)
	rootCmd.AddCommand(statusCmd)

	blockCmd.Flags().StringVarP(&subjectConfig, "config", "c", "", "Path to config YAML (default ~/.gateward/config.yaml)")
	blockCmd.Flags().StringVarP(&blockReason, "reason", "r", "administrative block", "Why the block is applied")
	blockCmd.Flags().DurationVar(&blockTTL, "ttl", 15*time.Minute, "How long the block lasts")
	unblockCmd.Flags().StringVarP(&subjectConfig, "config", "c", "", "Path to config YAML (default ~/.gateward/config.yaml)")
	statusCmd.Flags().StringVarP(&subjectConfig, "config", "c", "", "Path to config YAML (default ~/.gateward/config.yaml)")
	statusCmd.Flags().DurationVarP(&statusWindow, "window", "w", 0, "Veto count window (0 uses the configured escalation window)")
}

var blockCmd = &cobra.Command{
	Use:   "block <subject>",
	Short: "Apply an administrative block to a subject",
	Long:  "Blocks a subject for the given TTL. Blocked subjects are rejected\nat the gate regardless of message content.\n\nRequires the sqlite store backend to be visible to a running server.",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlock,
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <subject>",
	Short: "Lift an active block from a subject",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnblock,
}

var statusCmd = &cobra.Command{
	Use:   "status <subject>",
	Short: "Show a subject's block status and recent veto count",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func openGuard() (*guard.Guard, error) {
	cfg, err := config.Load(subjectConfig)
	if err != nil {
		return nil, err
	}
	g, err := guard.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build guard: %w", err)
	}
	return g, nil
}

func runBlock(cmd *cobra.Command, args []string) error {
	g, err := openGuard()
	if err != nil {
		return err
	}
	defer g.Close()

	subject := args[0]
	if err := g.BlockSubject(subject, blockReason, blockTTL); err != nil {
		return err
	}
	fmt.Printf("blocked %s until %s (%s)\n",
		subject, time.Now().UTC().Add(blockTTL).Format(time.RFC3339), blockReason)
	return nil
}

func runUnblock(cmd *cobra.Command, args []string) error {
	g, err := openGuard()
	if err != nil {
		return err
	}
	defer g.Close()

	subject := args[0]
	if err := g.UnblockSubject(subject); err != nil {
		return err
	}
	fmt.Printf("unblocked %s\n", subject)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	g, err := openGuard()
	if err != nil {
		return err
	}
	defer g.Close()

	subject := args[0]
	status, err := g.SubjectStatus(subject)
	if err != nil {
		return err
	}
	count, err := g.RecentVetoCount(subject, statusWindow)
	if err != nil {
		return err
	}

	if status != nil {
		fmt.Printf("subject: %s\n", subject)
		fmt.Printf("blocked: yes\n")
		fmt.Printf("reason:  %s\n", status.Reason)
		fmt.Printf("expires: %s\n", status.ExpiresAt.UTC().Format(time.RFC3339))
	} else {
		fmt.Printf("subject: %s\n", subject)
		fmt.Printf("blocked: no\n")
	}
	fmt.Printf("recent vetoes: %d\n", count)
	return nil
}
