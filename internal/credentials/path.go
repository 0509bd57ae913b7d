package credentials

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultTokensPath resolves the token file location once, following XDG
// conventions: $XDG_CONFIG_HOME/etrade-mcp/tokens.json, falling back to
// ~/.config/etrade-mcp/tokens.json.
func DefaultTokensPath() string {
	xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfigHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		xdgConfigHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(xdgConfigHome, "etrade-mcp", "tokens.json")
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
