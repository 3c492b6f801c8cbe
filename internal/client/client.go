// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package client is the DbRevel query client. Every call runs the same
// pipeline: request interceptors, the transport wrapped in the retry engine,
// response interceptors, then structural validation and decoding. Failures
// pass through the error interceptors and surface as *errors.E values.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "dbrevel/cli/internal/errors"
	"dbrevel/cli/internal/interceptor"
	"dbrevel/cli/internal/logger"
	"dbrevel/cli/internal/metrics"
	"dbrevel/cli/internal/model"
	"dbrevel/cli/internal/retry"
	"dbrevel/cli/internal/transport"
)

const (
	// DefaultBaseURL is the hosted DbRevel API.
	DefaultBaseURL = "https://api.dbrevel.io"
	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "dbrevel-cli/dev"
)

// Header names sent on every request.
const (
	HeaderProjectKey = "X-Project-Key"
	HeaderRequestID  = "X-Request-ID"
)

// API is the surface commands depend on. *Client implements it; tests
// substitute fakes.
type API interface {
	Query(ctx context.Context, intent string, opts model.QueryOptions) (model.QueryResult[model.Row], error)
	GetSchemas(ctx context.Context) (model.SchemaSnapshot, error)
	GetSchema(ctx context.Context, databaseName string) (model.DatabaseSchema, error)
	Health(ctx context.Context) (model.HealthSnapshot, error)
	DeepHealth(ctx context.Context) (model.HealthSnapshot, error)
	TestConnection(ctx context.Context, targets model.ConnectionTargets) (model.ConnectionTestResult, error)
}

// Config configures a Client. APIKey is required.
type Config struct {
	BaseURL string
	// APIKey is the project key sent as X-Project-Key. It is fixed for the
	// lifetime of the client.
	APIKey string
	// AccessToken is an optional dashboard bearer token. Only TestConnection
	// sends it.
	AccessToken string
	// Timeout bounds each attempt; zero means DefaultTimeout.
	Timeout time.Duration
	// Retry overrides retry.DefaultPolicy when set.
	Retry      *retry.Policy
	HTTPClient *http.Client
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
	UserAgent  string
}

// Client talks to the DbRevel backend. It is safe for concurrent use once
// interceptors have been registered.
type Client struct {
	baseURL     string
	apiKey      string
	accessToken string
	timeout     time.Duration
	policy      retry.Policy
	userAgent   string

	transport *transport.HTTP
	pipeline  *interceptor.Pipeline
	log       *logger.Logger
	metrics   *metrics.Metrics
}

var _ API = (*Client)(nil)

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperrors.NewValidation("api_key", "project API key is required")
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperrors.NewValidation("base_url", fmt.Sprintf("must be an absolute http(s) URL, got %q", cfg.BaseURL))
	}

	if cfg.Timeout < 0 {
		return nil, apperrors.NewValidation("timeout", "must not be negative")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	policy := retry.DefaultPolicy()
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	return &Client{
		baseURL:     base,
		apiKey:      cfg.APIKey,
		accessToken: cfg.AccessToken,
		timeout:     timeout,
		policy:      policy,
		userAgent:   ua,
		transport:   transport.New(cfg.HTTPClient),
		pipeline:    interceptor.New(),
		log:         log,
		metrics:     cfg.Metrics,
	}, nil
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

// UseRequestInterceptor appends fn to the request chain.
func (c *Client) UseRequestInterceptor(fn interceptor.RequestInterceptor) {
	c.pipeline.UseRequest(fn)
}

// UseResponseInterceptor appends fn to the response chain.
func (c *Client) UseResponseInterceptor(fn interceptor.ResponseInterceptor) {
	c.pipeline.UseResponse(fn)
}

// UseErrorInterceptor appends fn to the error chain.
func (c *Client) UseErrorInterceptor(fn interceptor.ErrorInterceptor) {
	c.pipeline.UseError(fn)
}

// ClearInterceptors empties all three chains at once. The project key,
// request id and user agent headers are part of request building and are
// not affected.
func (c *Client) ClearInterceptors() {
	c.pipeline.Clear()
}
