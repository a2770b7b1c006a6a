package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/mvolkov/gateward/internal/catalog"
	"github.com/mvolkov/gateward/internal/config"
	"github.com/mvolkov/gateward/internal/systemd"
)

var (
	initMode           string
	initInstallSystemd bool
	initForce          bool
)

func init() {
	initCmd.Flags().StringVar(&initMode, "mode", "user", "Config location: user (~/.gateward) or system (/etc/gateward)")
	initCmd.Flags().BoolVar(&initInstallSystemd, "install-systemd", false, "Install gateward-server systemd unit (requires root)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap gateward configuration and optional systemd integration",
	Long: `Creates the config directory with a default config and pattern catalogs.

User mode (default):  writes to ~/.gateward/
System mode:          writes to /etc/gateward/ (requires root)

With --install-systemd: installs gateward-server.service so the
screening server runs under systemd:
  systemctl enable --now gateward-server`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := initConfigDir()
	if err != nil {
		return err
	}

	var created []string

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	// Write config.yaml.
	configPath := filepath.Join(configDir, "config.yaml")
	if wrote, err := writeIfMissing(configPath, config.DefaultConfigYAML()); err != nil {
		return err
	} else if wrote {
		created = append(created, configPath)
	}

	// Write catalog.yaml.
	catalogPath := filepath.Join(configDir, "catalog.yaml")
	catalogContent, err := defaultCatalogYAML()
	if err != nil {
		return fmt.Errorf("generate default catalog: %w", err)
	}
	if wrote, err := writeIfMissing(catalogPath, catalogContent); err != nil {
		return err
	} else if wrote {
		created = append(created, catalogPath)
	}

	// Install systemd unit if requested.
	if initInstallSystemd {
		if runtime.GOOS != "linux" {
			return fmt.Errorf("--install-systemd is only supported on Linux")
		}
		if os.Geteuid() != 0 {
			return fmt.Errorf("--install-systemd requires root; run with sudo")
		}

		unitPath := "/etc/systemd/system/gateward-server.service"
		content := systemd.ServerTemplate()
		if err := os.WriteFile(unitPath, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write systemd unit: %w", err)
		}
		created = append(created, unitPath)

		// Record the install-time unit hash for tamper detection.
		if err := systemd.RecordUnitFileHash(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot record unit file hash: %v\n", err)
		}

		// Reload systemd.
		if err := exec.Command("systemctl", "daemon-reload").Run(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: systemctl daemon-reload failed: %v\n", err)
		}
	}

	// Print summary.
	fmt.Println("gateward init complete.")
	fmt.Println()
	if len(created) > 0 {
		fmt.Println("Created:")
		for _, path := range created {
			fmt.Printf("  %s\n", path)
		}
		fmt.Println()
	} else {
		fmt.Println("All files already exist (use --force to overwrite).")
		fmt.Println()
	}

	// Print next steps.
	fmt.Println("Verify:")
	fmt.Println("  gateward doctor")
	fmt.Println()
	fmt.Println("Test a message against the catalogs:")
	fmt.Println("  gateward check \"hello there\"")

	if initInstallSystemd {
		fmt.Println()
		fmt.Println("Enable the screening server:")
		fmt.Println("  sudo systemctl enable --now gateward-server")
	}

	return nil
}

// initConfigDir returns the configuration directory based on mode.
func initConfigDir() (string, error) {
	switch initMode {
	case "system":
		return "/etc/gateward", nil
	case "user", "":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(home, ".gateward"), nil
	default:
		return "", fmt.Errorf("unknown mode %q: use 'user' or 'system'", initMode)
	}
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// defaultCatalogYAML generates a commented default catalog.yaml.
func defaultCatalogYAML() (string, error) {
	data, err := catalog.DefaultYAML()
	if err != nil {
		return "", err
	}
	header := "# Gateward pattern catalogs.\n" +
		"# Patterns are matched against every inbound turn.\n" +
		"# match: case-insensitive substring. regex: compiled with (?i), takes precedence.\n" +
		"#\n" +
		"# Edit this file to customize what gateward blocks; the running\n" +
		"# server hot-reloads it on save.\n\n"
	return header + string(data), nil
}
