// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dbrevel/cli/internal/xdg"
)

const stateFile = "auth.json"

// State is the non-secret record of the last login, kept next to the logs
// in the XDG state directory. The key itself lives in the keychain.
type State struct {
	LoggedIn   bool      `json:"logged_in"`
	KeyHint    string    `json:"key_hint"`
	BaseURL    string    `json:"base_url,omitempty"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

func statePath() (string, error) {
	dir, err := xdg.StateDir()
	if err != nil {
		return "", fmt.Errorf("resolve state dir: %w", err)
	}
	return filepath.Join(dir, stateFile), nil
}

// Load reads the auth state. Missing state yields the zero value.
func Load() (State, error) {
	var s State
	path, err := statePath()
	if err != nil {
		return s, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read auth state: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse auth state: %w", err)
	}
	return s, nil
}

// Save writes the auth state with private permissions.
func Save(s State) error {
	path, err := statePath()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// Clear removes the auth state.
func Clear() error {
	path, err := statePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
