// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain stores DbRevel CLI secrets in the OS credential store:
// the project API key, an optional dashboard access token and verified
// database URLs saved by `dbrevel connect`.
//
// The query client never reads the keychain. Commands resolve credentials
// here and pass them to the client explicitly.
package keychain

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	mu            sync.Mutex
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "dbrevel"

// Keys used for storing secrets in the OS keychain.
const (
	KeyAPIKey      = "project_api_key"
	KeyAccessToken = "dashboard_access_token"
	KeyPostgresURL = "postgres_url"
	KeyMongoDBURL  = "mongodb_url"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found in keychain")

// Manager provides thread-safe operations on a keyring.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// NewManager opens the OS keyring.
func NewManager() (*Manager, error) {
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return &Manager{ring: ring}, nil
}

// NewWithRing wraps an already opened keyring, e.g. keyring.NewArrayKeyring
// in tests.
func NewWithRing(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

// GetManager returns the global keychain manager instance.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return globalManager, nil
}

// SetManager replaces the global instance. Tests use it to inject an
// in-memory ring.
func SetManager(m *Manager) {
	mu.Lock()
	defer mu.Unlock()
	globalManager = m
}

// openRing opens the OS keyring using native platform backends only.
// There is no encrypted-file fallback.
func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux", "freebsd", "openbsd":
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, fmt.Errorf("secure storage not supported on %s", runtime.GOOS)
	}

	cfg := keyring.Config{
		ServiceName:              ServiceName,
		AllowedBackends:          allowed,
		PassPrefix:               ServiceName,
		WinCredPrefix:            ServiceName,
		KeychainTrustApplication: true,
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. Install 'pass' as a fallback: brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}

func (m *Manager) set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key}); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func (m *Manager) get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, err := m.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	if len(it.Data) == 0 {
		return "", ErrNotFound
	}
	return string(it.Data), nil
}

func (m *Manager) remove(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		if err := m.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("remove %s: %w", key, err)
		}
	}
	return nil
}

// SaveAPIKey stores the project API key.
func (m *Manager) SaveAPIKey(key string) error {
	if key == "" {
		return errors.New("empty API key")
	}
	return m.set(KeyAPIKey, key)
}

// LoadAPIKey returns the stored project API key or ErrNotFound.
func (m *Manager) LoadAPIKey() (string, error) { return m.get(KeyAPIKey) }

// SaveAccessToken stores the dashboard bearer token.
func (m *Manager) SaveAccessToken(token string) error {
	if token == "" {
		return errors.New("empty access token")
	}
	return m.set(KeyAccessToken, token)
}

func (m *Manager) LoadAccessToken() (string, error) { return m.get(KeyAccessToken) }

// ClearAuth removes the API key and access token.
func (m *Manager) ClearAuth() error {
	return m.remove(KeyAPIKey, KeyAccessToken)
}

// DatabaseKey maps a database kind ("postgres" or "mongodb") to its key.
func DatabaseKey(kind string) (string, error) {
	switch kind {
	case "postgres", "postgresql":
		return KeyPostgresURL, nil
	case "mongodb", "mongo":
		return KeyMongoDBURL, nil
	}
	return "", fmt.Errorf("unsupported database kind %q", kind)
}

// SaveDatabaseURL stores a verified connection URL for kind.
func (m *Manager) SaveDatabaseURL(kind, url string) error {
	key, err := DatabaseKey(kind)
	if err != nil {
		return err
	}
	return m.set(key, url)
}

// LoadDatabaseURL returns the saved URL for kind or ErrNotFound.
func (m *Manager) LoadDatabaseURL(kind string) (string, error) {
	key, err := DatabaseKey(kind)
	if err != nil {
		return "", err
	}
	return m.get(key)
}

// ClearDatabaseURLs removes every saved connection URL.
func (m *Manager) ClearDatabaseURLs() error {
	return m.remove(KeyPostgresURL, KeyMongoDBURL)
}

// ClearAll removes all secrets from the keychain.
func (m *Manager) ClearAll() error {
	return m.remove(KeyAPIKey, KeyAccessToken, KeyPostgresURL, KeyMongoDBURL)
}
