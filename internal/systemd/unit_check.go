package systemd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// UnitFilePaths are the paths checked for the server unit file.
var UnitFilePaths = []string{
	"/etc/systemd/system/gateward-server.service",
	"/etc/systemd/system/gateward.service",
}

// UnitHashPath is where the install-time hash of the unit file is stored.
var UnitHashPath = "/var/lib/gateward/unit-file.sha256"

// CheckUnitFileIntegrity compares the current unit file against the
// install-time hash. Returns a warning when the file was modified, or ""
// when it matches or the check does not apply (no unit file, no baseline).
func CheckUnitFileIntegrity() string {
	unitPath := findUnitFile()
	if unitPath == "" {
		return ""
	}
	expected := storedUnitHash()
	if expected == "" {
		return ""
	}

	data, err := os.ReadFile(unitPath)
	if err != nil {
		return fmt.Sprintf("cannot read unit file %s: %v", unitPath, err)
	}
	actual := hashBytes(data)
	if actual == expected {
		return ""
	}

	return fmt.Sprintf("systemd unit file %s has been modified since installation (expected %s, got %s)",
		unitPath, expected[:16], actual[:16])
}

// RecordUnitFileHash writes the SHA-256 of the installed unit file to
// UnitHashPath, establishing the baseline for later checks.
func RecordUnitFileHash() error {
	for _, p := range UnitFilePaths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		return os.WriteFile(UnitHashPath, []byte(hashBytes(data)+"\n"), 0600)
	}
	return fmt.Errorf("no unit file found at expected paths")
}

func findUnitFile() string {
	for _, p := range UnitFilePaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// storedUnitHash reads the baseline, returning "" when absent or implausible.
func storedUnitHash() string {
	data, err := os.ReadFile(UnitHashPath)
	if err != nil {
		return ""
	}
	hash := strings.TrimSpace(string(data))
	if len(hash) != 64 {
		return ""
	}
	return hash
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
