// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the DbRevel CLI.
// Commands turn natural-language intents into database queries through the
// DbRevel service, inspect schemas and manage local credentials.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"dbrevel/cli/internal/auth"
	"dbrevel/cli/internal/client"
	"dbrevel/cli/internal/config"
	"dbrevel/cli/internal/keychain"
	"dbrevel/cli/internal/logger"
	"dbrevel/cli/internal/metrics"
	"dbrevel/cli/internal/render"
	"dbrevel/cli/internal/xdg"
)

var (
	showVersion bool

	flagConfig     string
	flagBaseURL    string
	flagAPIKey     string
	flagLogLevel   string
	flagLogFormat  string
	flagOutput     string
	flagTimeout    time.Duration
	flagMaxRetries int
)

// runtimeState is what PersistentPreRunE prepares for every command.
type runtimeState struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	format  render.Format
}

var rt = runtimeState{
	cfg:    config.DefaultConfig(),
	log:    logger.NewNop(),
	format: render.FormatTable,
}

// newAPI builds the query client. Tests replace it with a fake.
var newAPI = func(cfg client.Config) (client.API, error) {
	c, err := client.New(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dbrevel",
	Short: "Query your PostgreSQL and MongoDB databases in plain language",
	Long: `DbRevel turns natural-language intents into database queries. The service plans
the query across your connected PostgreSQL and MongoDB databases, applies your
project's security rules and returns the rows.

Get started:
  dbrevel login
  dbrevel query "Get all users from Lagos"`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Fprintf(cmd.OutOrStdout(), "dbrevel %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// setup loads configuration, applies flag overrides and builds the logger
// and metrics registry.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	o := config.Overrides{
		BaseURL:   flagBaseURL,
		APIKey:    flagAPIKey,
		LogLevel:  flagLogLevel,
		LogFormat: flagLogFormat,
		Timeout:   flagTimeout,
	}
	if cmd.Flags().Changed("max-retries") {
		o.MaxRetries = &flagMaxRetries
	}
	cfg.ApplyOverrides(o)
	if err := cfg.Validate(); err != nil {
		return err
	}

	format, err := render.ParseFormat(flagOutput)
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(prometheus.NewRegistry(), cfg.Metrics.Namespace)
	}

	rt = runtimeState{cfg: cfg, log: log, metrics: m, format: format}
	return nil
}

func teardown() error {
	defer func() { _ = rt.log.Sync() }()
	if rt.metrics == nil {
		return nil
	}
	path := rt.cfg.Metrics.Textfile
	if path == "" {
		dir, err := xdg.StateDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "metrics.prom")
	}
	if err := rt.metrics.WriteTextfile(path); err != nil {
		rt.log.Warnw("failed to write metrics", "path", path, "error", err)
	}
	return nil
}

// apiClient resolves the project key and builds a client for it.
func apiClient() (client.API, auth.Credential, error) {
	cred, err := auth.NewService().Resolve(flagAPIKey, rt.cfg.API.APIKey)
	if err != nil {
		return nil, cred, err
	}
	api, err := clientFor(cred.Key)
	return api, cred, err
}

func clientFor(key string) (client.API, error) {
	policy := rt.cfg.Retry.Policy()
	return newAPI(client.Config{
		BaseURL:     rt.cfg.API.BaseURL,
		APIKey:      key,
		AccessToken: accessToken(),
		Timeout:     rt.cfg.API.Timeout,
		Retry:       &policy,
		Logger:      rt.log,
		Metrics:     rt.metrics,
		UserAgent:   userAgent(),
	})
}

// accessToken prefers the configured token over the keychain.
func accessToken() string {
	if rt.cfg.API.AccessToken != "" {
		return rt.cfg.API.AccessToken
	}
	if km, err := keychain.GetManager(); err == nil {
		if tok, err := km.LoadAccessToken(); err == nil {
			return tok
		}
	}
	return ""
}

func userAgent() string {
	if rt.cfg.API.UserAgent != "" {
		return rt.cfg.API.UserAgent
	}
	return "dbrevel-cli/" + Version
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var shown *shownError
		if !errors.As(err, &shown) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI version information")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/dbrevel/config.yaml)")
	pf.StringVar(&flagBaseURL, "base-url", "", "DbRevel API base URL")
	pf.StringVar(&flagAPIKey, "api-key", "", "Project API key (overrides env, config and keychain)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: text or json")
	pf.StringVarP(&flagOutput, "output", "o", "table", "Output format: table, json or yaml")
	pf.DurationVar(&flagTimeout, "timeout", 0, "Per-attempt request timeout (e.g. 45s)")
	pf.IntVar(&flagMaxRetries, "max-retries", 3, "Retries for transient failures")
}
