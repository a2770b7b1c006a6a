package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvolkov/gateward/internal/integrity"
)

var rootCmd = &cobra.Command{
	Use:   "gateward",
	Short: "Safety gate for conversational agents",
	Long:  "Screens every inbound turn through an ordered gate pipeline before it reaches the model. Hard vetoes block, soft vetoes escalate, repeat offenders get rate-blocked.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := integrity.Verify(); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			os.Exit(78) // EX_CONFIG
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
