package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvolkov/gateward/internal/audit"
	"github.com/mvolkov/gateward/internal/config"
)

var (
	auditConfig string
	tailLines   int
	tailJSON    bool
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditCmd.PersistentFlags().StringVarP(&auditConfig, "config", "c", "", "Path to config file")
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent entries to show")
	auditTailCmd.Flags().BoolVar(&tailJSON, "json", false, "Print entries as pretty JSON")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for verifying and inspecting the hash-chained verdict log.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify hash chain integrity of an audit log",
	Long: "Walks the JSONL audit log and validates that every entry's prev_hash\n" +
		"matches the SHA-256 of the previous entry. With no path argument the\n" +
		"configured audit_log is checked. Exits 0 if valid, 1 if tampered.",
	Args: cobra.MaximumNArgs(1),
	RunE: runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail [path]",
	Short: "Show recent verdicts from the audit log",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditTail,
}

// auditLogPath resolves the log path from the argument or the config.
func auditLogPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := config.Load(auditConfig)
	if err != nil {
		return "", err
	}
	if cfg.AuditLog == "" {
		return "", fmt.Errorf("no path given and no audit_log configured")
	}
	return cfg.AuditLog, nil
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	path, err := auditLogPath(args)
	if err != nil {
		return err
	}

	result := audit.Verify(path)
	if result.Valid {
		fmt.Printf("OK: %d entries verified\n", result.Lines)
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	os.Exit(1)
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	path, err := auditLogPath(args)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}

	start := len(lines) - tailLines
	if start < 0 {
		start = 0
	}

	for _, line := range lines[start:] {
		var entry audit.Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			// Corrupt line: show it raw rather than hiding it.
			fmt.Println(line)
			continue
		}
		if tailJSON {
			out, _ := json.MarshalIndent(entry, "", "  ")
			fmt.Println(string(out))
			continue
		}
		fmt.Println(formatTailEntry(entry))
	}

	return nil
}

func formatTailEntry(e audit.Entry) string {
	label := e.Verdict
	if e.Type != "" {
		label = e.Type
	}
	line := fmt.Sprintf("%s  %-8s  %-12s  risk=%s",
		e.Timestamp, strings.ToUpper(label), e.Subject, e.RiskLevel)
	if len(e.Reasons) > 0 {
		line += "  [" + strings.Join(e.Reasons, ", ") + "]"
	}
	return line
}
