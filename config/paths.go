package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	dataDirName = "esvideo"
	snapshotDir = "snapshots"
)

// GetBaseDir returns the per-user data directory:
//   - macOS: ~/Library/Application Support/esvideo
//   - Linux: $XDG_DATA_HOME/esvideo or ~/.local/share/esvideo
//   - Windows: %APPDATA%/esvideo
func GetBaseDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", dataDirName), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, dataDirName), nil
	}

	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}
