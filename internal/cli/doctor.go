package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/mvolkov/gateward/internal/audit"
	"github.com/mvolkov/gateward/internal/catalog"
	"github.com/mvolkov/gateward/internal/config"
	"github.com/mvolkov/gateward/internal/systemd"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system readiness and diagnose configuration issues",
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []checkResult

	// 1. Binary location and version.
	execPath, _ := os.Executable()
	if execPath != "" {
		checks = append(checks, checkResult{
			label:  "gateward binary",
			ok:     true,
			detail: fmt.Sprintf("%s (v%s)", execPath, version),
		})
	} else {
		checks = append(checks, checkResult{
			label:  "gateward binary",
			ok:     false,
			detail: "cannot determine executable path",
		})
	}

	// 2. Config directory.
	home, homeErr := os.UserHomeDir()
	configDir := ""
	if homeErr == nil {
		configDir = filepath.Join(home, ".gateward")
	}

	if configDir != "" {
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			checks = append(checks, checkResult{
				label:  "config directory",
				ok:     true,
				detail: configDir,
			})
		} else {
			checks = append(checks, checkResult{
				label:  "config directory",
				ok:     false,
				detail: "missing",
				fix:    "gateward init",
			})
		}
	} else {
		checks = append(checks, checkResult{
			label:  "config directory",
			ok:     false,
			detail: "cannot determine home directory",
		})
	}

	// 3. config.yaml parses and validates.
	cfg, cfgErr := config.Load("")
	if cfgErr == nil {
		checks = append(checks, checkResult{
			label:  "config.yaml",
			ok:     true,
			detail: fmt.Sprintf("store=%s", cfg.Store.Backend),
		})
	} else {
		checks = append(checks, checkResult{
			label:  "config.yaml",
			ok:     false,
			detail: cfgErr.Error(),
			fix:    "gateward init --force",
		})
	}

	// 4. Catalogs load and compile.
	catalogPath := ""
	if cfg != nil {
		catalogPath = cfg.CatalogPath
	}
	if set, err := catalog.Load(catalogPath); err == nil {
		total := set.ControlTriggers.Len() + set.HardVetoes.Len() + set.SoftVetoes.Len() +
			set.Injection.Len() + set.Harassment.Len() + set.Spam.Len()
		checks = append(checks, checkResult{
			label:  "catalogs",
			ok:     true,
			detail: fmt.Sprintf("%d patterns (%s)", total, set.Version),
		})
	} else {
		checks = append(checks, checkResult{
			label:  "catalogs",
			ok:     false,
			detail: err.Error(),
			fix:    "gateward init --force",
		})
	}

	// 5. Audit log chain (only when configured and present).
	if cfg != nil && cfg.AuditLog != "" {
		if _, err := os.Stat(cfg.AuditLog); err == nil {
			result := audit.Verify(cfg.AuditLog)
			if result.Valid {
				checks = append(checks, checkResult{
					label:  "audit log",
					ok:     true,
					detail: fmt.Sprintf("%d entries, chain intact", result.Lines),
				})
			} else {
				checks = append(checks, checkResult{
					label:  "audit log",
					ok:     false,
					detail: fmt.Sprintf("chain broken at line %d: %s", result.ErrorLine, result.Error),
				})
			}
		}
	}

	// 6. systemd (Linux only).
	if runtime.GOOS == "linux" {
		unitPath := "/etc/systemd/system/gateward-server.service"
		if _, err := os.Stat(unitPath); err == nil {
			if warn := systemd.CheckUnitFileIntegrity(); warn != "" {
				checks = append(checks, checkResult{
					label:  "server unit",
					ok:     false,
					detail: warn,
				})
			} else {
				checks = append(checks, checkResult{
					label:  "server unit",
					ok:     true,
					detail: "installed",
				})
			}
		} else {
			checks = append(checks, checkResult{
				label:  "server unit",
				ok:     false,
				detail: "not installed",
				fix:    "sudo gateward init --install-systemd",
			})
		}
	}

	// Print results.
	hasFailures := false
	for _, c := range checks {
		mark := "\u2713" // ✓
		if !c.ok {
			mark = "\u2717" // ✗
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-20s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Println(line)
	}

	if hasFailures {
		fmt.Println()
		fmt.Println("Some checks failed. Run the suggested commands to fix.")
		return fmt.Errorf("doctor found issues")
	}

	fmt.Println()
	fmt.Println("All checks passed.")
	return nil
}
