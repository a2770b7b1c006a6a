package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvolkov/gateward/internal/scenario"
)

var (
	testScenario string
	testConfig   string
	testCatalog  string
	testFormat   string
)

func init() {
	rootCmd.AddCommand(testCmd)
	testCmd.Flags().StringVar(&testScenario, "scenario", "", "Glob of scenario YAML files (required)")
	testCmd.Flags().StringVarP(&testConfig, "config", "c", "", "Path to config file")
	testCmd.Flags().StringVar(&testCatalog, "catalog", "", "Catalog file overriding the config")
	testCmd.Flags().StringVarP(&testFormat, "format", "f", "text", "Output format (text|json)")
	testCmd.MarkFlagRequired("scenario")
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run verdict assertions from scenario files",
	Long: "Evaluates every case in the matched scenario files and compares the\n" +
		"verdict against the expectation. Runs are dry: no audit log, alerts,\n" +
		"events, or persistent store. Exits non-zero when any case fails.",
	RunE: runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	matches, err := filepath.Glob(testScenario)
	if err != nil {
		return fmt.Errorf("bad scenario glob %q: %w", testScenario, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no scenario files match %q", testScenario)
	}

	var results []*scenario.RunResult
	failed := false

	for _, path := range matches {
		r, err := scenario.LoadAndRun(path, testConfig, testCatalog)
		if err != nil {
			return err
		}
		if r.Failed > 0 {
			failed = true
		}
		results = append(results, r)
	}

	switch testFormat {
	case "json":
		out, err := scenario.FormatJSON(results)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(scenario.FormatText(results))
	}

	if failed {
		os.Exit(1)
	}
	return nil
}
