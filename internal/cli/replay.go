package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvolkov/gateward/internal/audit"
)

var (
	replayLog    string
	replayFrom   string
	replayTo     string
	replayFormat string
)

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVarP(&replayLog, "log", "l", "", "Path to audit log (defaults to configured audit_log)")
	replayCmd.Flags().StringVar(&replayFrom, "from", "", "Start time filter (RFC3339)")
	replayCmd.Flags().StringVar(&replayTo, "to", "", "End time filter (RFC3339)")
	replayCmd.Flags().StringVarP(&replayFormat, "format", "f", "text", "Output format (text|json)")
}

var replayCmd = &cobra.Command{
	Use:   "replay <subject>",
	Short: "Replay a subject's history from the audit log",
	Long:  "Reads the audit log, filters by subject and optional time range,\nand renders a human-readable verdict timeline with summary.",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	logPath := replayLog
	if logPath == "" {
		var err error
		if logPath, err = auditLogPath(nil); err != nil {
			return err
		}
	}

	filter := audit.ReplayFilter{Subject: args[0]}
	if err := parseTimeFlag(replayFrom, "--from", &filter.From); err != nil {
		return err
	}
	if err := parseTimeFlag(replayTo, "--to", &filter.To); err != nil {
		return err
	}

	result, err := audit.Replay(logPath, filter)
	if err != nil {
		return err
	}

	switch replayFormat {
	case "json":
		out, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(audit.FormatTimeline(result))
	}

	return nil
}

func parseTimeFlag(value, name string, dst *time.Time) error {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return fmt.Errorf("invalid %s time %q: %w", name, value, err)
	}
	*dst = t
	return nil
}
