package config

import (
	"os"
	"path/filepath"
)

// DefaultAuditDir returns the per-user gt-audit directory (~/.gt-audit),
// falling back to a relative .gt-audit when no home directory is available.
func DefaultAuditDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gt-audit"
	}
	return filepath.Join(home, ".gt-audit")
}
