package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvolkov/gateward/internal/config"
	"github.com/mvolkov/gateward/internal/guard"
	"github.com/mvolkov/gateward/internal/model"
)

var (
	checkConfig  string
	checkCatalog string
	checkSubject string
	checkFormat  string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkConfig, "config", "c", "", "Path to config YAML (default ~/.gateward/config.yaml)")
	checkCmd.Flags().StringVar(&checkCatalog, "catalog", "", "Path to catalog YAML (overrides config)")
	checkCmd.Flags().StringVarP(&checkSubject, "subject", "s", "local", "Subject identifier for the message author")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
}

var checkCmd = &cobra.Command{
	Use:   "check <message>",
	Short: "Evaluate one message through the gate pipeline",
	Long: "Runs a single message through the full pipeline and prints the verdict.\n\n" +
		"Exit code 0 for pass or escalate, 1 for block.\n" +
		"Use to test catalog changes before deploying them.",
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(checkConfig)
	if err != nil {
		return err
	}
	if checkCatalog != "" {
		cfg.CatalogPath = checkCatalog
	}

	ctx := context.Background()
	g, err := guard.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build guard: %w", err)
	}
	defer g.Close()

	message := strings.Join(args, " ")
	result := g.EvaluateTurn(ctx, checkSubject, message)

	switch checkFormat {
	case "json":
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		fmt.Printf("run:     %s\n", result.RunID)
		fmt.Printf("verdict: %s\n", result.Verdict)
		fmt.Printf("action:  %s\n", result.Action)
		fmt.Printf("risk:    %s\n", result.Summary.RiskLevel)
		if len(result.Summary.Reasons) > 0 {
			fmt.Printf("reasons: %s\n", strings.Join(result.Summary.Reasons, ", "))
		}
	}

	if result.Verdict == model.StatusBlock {
		os.Exit(1)
	}
	return nil
}
