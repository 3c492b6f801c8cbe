// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package auth resolves the project API key the CLI hands to the query
// client and manages the login state around it.
//
// Resolution order is flag, environment, config file, keychain. The client
// package never calls into here.
package auth

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"dbrevel/cli/internal/keychain"
	"dbrevel/cli/internal/logging"
)

// EnvAPIKey is the environment variable viper maps onto api.api_key.
const EnvAPIKey = "DBREVEL_API_API_KEY"

// Source tells where a credential came from.
type Source string

const (
	SourceFlag     Source = "flag"
	SourceEnv      Source = "env"
	SourceConfig   Source = "config"
	SourceKeychain Source = "keychain"
)

// ErrNoCredential is returned when no source provides an API key.
var ErrNoCredential = errors.New("no project API key configured; run 'dbrevel login' or pass --api-key")

// Credential is a resolved API key.
type Credential struct {
	Key    string
	Source Source
}

// Masked returns the key safe for display.
func (c Credential) Masked() string { return logging.MaskKey(c.Key) }

// Verifier checks a key against the backend before it is stored.
type Verifier func(ctx context.Context, key string) error

// Service centralizes credential operations against local secure storage.
type Service struct {
	km     func() (*keychain.Manager, error)
	getenv func(string) string
	now    func() time.Time
}

// NewService returns a Service backed by the global keychain manager.
func NewService() *Service {
	return &Service{km: keychain.GetManager, getenv: os.Getenv, now: time.Now}
}

// NewServiceWith is NewService with an explicit keychain and environment.
func NewServiceWith(km *keychain.Manager, getenv func(string) string) *Service {
	return &Service{
		km:     func() (*keychain.Manager, error) { return km, nil },
		getenv: getenv,
		now:    time.Now,
	}
}

// Resolve picks the API key from flagKey, the environment, configKey and
// finally the keychain.
func (s *Service) Resolve(flagKey, configKey string) (Credential, error) {
	if k := strings.TrimSpace(flagKey); k != "" {
		return Credential{Key: k, Source: SourceFlag}, nil
	}
	if k := strings.TrimSpace(s.getenv(EnvAPIKey)); k != "" {
		return Credential{Key: k, Source: SourceEnv}, nil
	}
	if k := strings.TrimSpace(configKey); k != "" {
		return Credential{Key: k, Source: SourceConfig}, nil
	}

	km, err := s.km()
	if err != nil {
		// Keychain unavailable means nothing stored.
		return Credential{}, ErrNoCredential
	}
	k, err := km.LoadAPIKey()
	if errors.Is(err, keychain.ErrNotFound) {
		return Credential{}, ErrNoCredential
	}
	if err != nil {
		return Credential{}, err
	}
	return Credential{Key: k, Source: SourceKeychain}, nil
}

// Login verifies key (when verify is non-nil), stores it in the keychain and
// records the login state.
func (s *Service) Login(ctx context.Context, key, baseURL string, verify Verifier) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key must not be empty")
	}
	if verify != nil {
		if err := verify(ctx, key); err != nil {
			return err
		}
	}

	km, err := s.km()
	if err != nil {
		return err
	}
	if err := km.SaveAPIKey(key); err != nil {
		return err
	}
	return Save(State{
		LoggedIn:   true,
		KeyHint:    logging.MaskKey(key),
		BaseURL:    baseURL,
		LoggedInAt: s.now().UTC(),
	})
}

// Logout removes stored credentials and local state.
func (s *Service) Logout() error {
	km, err := s.km()
	if err == nil {
		if err := km.ClearAuth(); err != nil {
			return err
		}
	}
	return Clear()
}

// Identity is what `whoami` reports.
type Identity struct {
	Credential
	State State
}

// WhoAmI resolves the active key and attaches the stored login state.
func (s *Service) WhoAmI(flagKey, configKey string) (Identity, error) {
	cred, err := s.Resolve(flagKey, configKey)
	if err != nil {
		return Identity{}, err
	}
	st, err := Load()
	if err != nil {
		return Identity{}, err
	}
	return Identity{Credential: cred, State: st}, nil
}
