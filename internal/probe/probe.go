// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package probe checks database connection strings from the user's machine,
// before they are saved or handed to the service.
package probe

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/mattn/go-runewidth"

	"dbrevel/cli/internal/dsn"
	"dbrevel/cli/internal/httperrors"
	"dbrevel/cli/internal/logging"
	"dbrevel/cli/internal/model"
)

// DefaultTimeout bounds a local probe.
const DefaultTimeout = 10 * time.Second

// Friendly messages for the common connection failures.
const (
	MsgAuthFailed   = "Authentication failed - check username and password"
	MsgNoDatabase   = "Database does not exist"
	MsgRefused      = "Connection refused - check host and port"
	MsgTimeout      = "Connection timeout - database may be unreachable"
	MsgMongoRemote  = "Local probing supports PostgreSQL only; run without --local to test MongoDB through DbRevel"
	driverName      = "pgx"
	maxErrorMessage = 200
)

// Opener opens a database handle; sql.Open in production.
type Opener func(driverName, dataSourceName string) (*sql.DB, error)

// Prober runs local connection checks.
type Prober struct {
	open    Opener
	timeout time.Duration
}

// New returns a Prober using database/sql with the pgx driver.
func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{open: sql.Open, timeout: timeout}
}

// NewWithOpener is New with an injectable opener, e.g. for sqlmock.
func NewWithOpener(open Opener, timeout time.Duration) *Prober {
	p := New(timeout)
	p.open = open
	return p
}

// Postgres parses rawURL, connects, pings and builds a schema preview.
// Failures are reported in the result, never as a Go error.
func (p *Prober) Postgres(ctx context.Context, rawURL string) model.ConnectionResult {
	info, err := dsn.ParseInfo(rawURL)
	if err != nil {
		return failed(err.Error())
	}
	if info.Type != dsn.DBTypePostgreSQL {
		return failed("not a PostgreSQL URL")
	}
	normalized, err := dsn.Parse(rawURL)
	if err != nil {
		return failed(err.Error())
	}

	db, err := p.open(driverName, normalized)
	if err != nil {
		return failed(Friendly(err))
	}
	defer db.Close()

	return p.Check(ctx, db)
}

// Check pings an already opened handle and builds the preview.
func (p *Prober) Check(ctx context.Context, db *sql.DB) model.ConnectionResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return failed(Friendly(err))
	}
	preview, err := NewInspector(db).Preview(ctx)
	if err != nil {
		return failed(Friendly(err))
	}
	return model.ConnectionResult{Success: true, SchemaPreview: preview}
}

// Inspect connects to rawURL and returns its full public schema.
func (p *Prober) Inspect(ctx context.Context, rawURL string) (model.DatabaseSchema, error) {
	normalized, err := dsn.Parse(rawURL)
	if err != nil {
		return model.DatabaseSchema{}, err
	}
	if dsn.DetectDBType(rawURL) != dsn.DBTypePostgreSQL {
		return model.DatabaseSchema{}, errors.New("schema inspection supports PostgreSQL only")
	}
	db, err := p.open(driverName, normalized)
	if err != nil {
		return model.DatabaseSchema{}, errors.New(Friendly(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return model.DatabaseSchema{}, errors.New(Friendly(err))
	}
	return NewInspector(db).Inspect(ctx)
}

// Local probes targets from this machine. PostgreSQL URLs are connected to;
// MongoDB URLs are only validated.
func (p *Prober) Local(ctx context.Context, targets model.ConnectionTargets) model.ConnectionTestResult {
	var out model.ConnectionTestResult
	if u := strings.TrimSpace(targets.PostgresURL); u != "" {
		r := p.Postgres(ctx, u)
		out.Postgres = &r
	}
	if u := strings.TrimSpace(targets.MongoDBURL); u != "" {
		r := failed(MsgMongoRemote)
		if err := dsn.Validate(u); err != nil {
			r = failed(err.Error())
		}
		out.MongoDB = &r
	}
	return out
}

// Friendly maps driver errors onto short, actionable messages. Anything
// unrecognised is masked and truncated.
func Friendly(err error) string {
	if err == nil {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "28P01", "28000":
			return MsgAuthFailed
		case "3D000":
			return MsgNoDatabase
		}
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "authentication failed"):
		return MsgAuthFailed
	case strings.Contains(lower, "database") && strings.Contains(lower, "does not exist"):
		return MsgNoDatabase
	case httperrors.IsConnectionRefused(err):
		return MsgRefused
	case httperrors.IsTimeout(err):
		return MsgTimeout
	}

	return runewidth.Truncate(logging.Mask(err.Error()), maxErrorMessage, "...")
}

func failed(msg string) model.ConnectionResult {
	return model.ConnectionResult{Success: false, Error: msg}
}
