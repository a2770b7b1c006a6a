package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvolkov/gateward/internal/catalog"
	"github.com/mvolkov/gateward/internal/catalogdiff"
)

var diffFormat string

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text", "Output format (text|json)")
}

var diffCmd = &cobra.Command{
	Use:   "diff <old.yaml> <new.yaml>",
	Short: "Compare two catalog files and show changes",
	Long:  "Loads two catalog YAML files and shows what changed in human-readable terms:\nversion bump, patterns added/removed, severity or match expression changes.",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	oldSet, err := catalog.Load(args[0])
	if err != nil {
		return fmt.Errorf("load old catalog: %w", err)
	}

	newSet, err := catalog.Load(args[1])
	if err != nil {
		return fmt.Errorf("load new catalog: %w", err)
	}

	result := catalogdiff.Diff(oldSet, newSet)
	result.OldPath = args[0]
	result.NewPath = args[1]

	switch diffFormat {
	case "json":
		out, err := catalogdiff.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(catalogdiff.FormatText(result))
	}

	return nil
}
