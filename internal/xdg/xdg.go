// Package xdg resolves XDG Base Directory paths for dbrevel.
package xdg

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the XDG config directory for dbrevel.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/dbrevel when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return appDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for dbrevel, falling back to
// ~/.local/state/dbrevel. Log files default here.
func StateDir() (string, error) {
	return appDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func appDir(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	dir := filepath.Join(base, "dbrevel")
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
