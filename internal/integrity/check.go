// Package integrity verifies the binary checksum at startup.
// The expected hash is embedded at build time via ldflags; dev builds
// fall back to a checksum file. On mismatch a tamper event is recorded
// and the process refuses to start.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mvolkov/gateward/internal/alert"
	"github.com/mvolkov/gateward/internal/config"
)

// ExpectedHash is set at build time via:
//
//	-ldflags "-X github.com/mvolkov/gateward/internal/integrity.ExpectedHash=<sha256hex>"
//
// When empty (dev builds), verification falls back to a checksum file.
var ExpectedHash string

// TamperLogDir is the directory where tamper events are written.
// Defaults to /var/log/gateward. Override for testing.
var TamperLogDir = "/var/log/gateward"

// ChecksumPaths are the paths checked (in order) for a sha256 checksum file.
// The file should contain a single hex-encoded SHA-256 hash.
// Override for testing.
var ChecksumPaths = []string{
	"/etc/gateward/binary.sha256",
	"$HOME/.gateward/binary.sha256",
}

// TamperEvent records a binary integrity violation.
type TamperEvent struct {
	Timestamp    string `json:"timestamp"`
	Binary       string `json:"binary"`
	ExpectedHash string `json:"expected_hash"`
	ActualHash   string `json:"actual_hash"`
	Hostname     string `json:"hostname"`
	Type         string `json:"type"`
}

// Verify checks the running binary against the expected hash. With no
// build-time hash and no checksum file the check is skipped (dev mode).
// On mismatch a tamper event is logged and alerted before the error returns.
func Verify() error {
	expected := expectedHash()
	if expected == "" {
		fmt.Fprintf(os.Stderr, "integrity: WARNING no build-time hash or checksum file found (dev build, integrity check skipped)\n")
		return nil
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("integrity: cannot resolve executable path: %w", err)
	}
	actual, err := hashFile(exePath)
	if err != nil {
		return fmt.Errorf("integrity: cannot hash binary: %w", err)
	}

	if actual != expected {
		recordTamper(exePath, expected, actual)
		return fmt.Errorf("integrity: binary checksum mismatch (expected %s, got %s)", expected, actual)
	}

	fmt.Fprintf(os.Stderr, "integrity: binary checksum verified (%s...%s)\n",
		actual[:8], actual[len(actual)-8:])
	return nil
}

// HashSelf returns the SHA-256 hex digest of the running binary.
// Used to write the checksum file after install.
func HashSelf() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("integrity: cannot resolve executable path: %w", err)
	}
	return hashFile(exePath)
}

// expectedHash resolves the build-time hash, falling back to the first
// readable checksum file that holds a plausible SHA-256 digest.
func expectedHash() string {
	if ExpectedHash != "" {
		return ExpectedHash
	}
	for _, p := range ChecksumPaths {
		data, err := os.ReadFile(os.ExpandEnv(p))
		if err != nil {
			continue
		}
		hash := strings.TrimSpace(string(data))
		if len(hash) == 64 && isHex(hash) {
			return hash
		}
	}
	return ""
}

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// recordTamper appends the event to the tamper log, prints it to stderr
// for the systemd journal, and fires configured webhook alerts.
func recordTamper(binary, expected, actual string) {
	event := TamperEvent{
		Timestamp:    time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Binary:       binary,
		ExpectedHash: expected,
		ActualHash:   actual,
		Type:         "binary_tamper",
	}
	event.Hostname, _ = os.Hostname()

	line, err := json.Marshal(event)
	if err != nil {
		return
	}

	logPath := filepath.Join(TamperLogDir, "tamper.jsonl")
	if err := os.MkdirAll(TamperLogDir, 0700); err == nil {
		if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600); err == nil {
			f.Write(append(line, '\n'))
			f.Sync()
			f.Close()
		}
	}

	fmt.Fprintf(os.Stderr, "TAMPER ALERT: %s\n", string(line))

	dispatchTamperAlert(event)
}

// dispatchTamperAlert sends the tamper event through the regular alert
// webhooks. Delivery is synchronous: the process exits right after this.
func dispatchTamperAlert(event TamperEvent) {
	cfg, err := config.Load("")
	if err != nil || len(cfg.Alerts) == 0 {
		return
	}

	alertEvent := alert.Event{
		Timestamp: event.Timestamp,
		Subject:   event.Hostname,
		Verdict:   "block",
		RiskLevel: "critical",
		Type:      event.Type,
		Reason: fmt.Sprintf("binary checksum mismatch on %s: expected %s, got %s",
			event.Binary, event.ExpectedHash, event.ActualHash),
	}

	for _, wh := range cfg.Alerts {
		for _, e := range wh.Events {
			if e == event.Type || e == alertEvent.Verdict {
				if err := alert.Send(wh, alertEvent); err != nil {
					fmt.Fprintf(os.Stderr, "TAMPER ALERT webhook failed: %v\n", err)
				}
				break
			}
		}
	}
}
