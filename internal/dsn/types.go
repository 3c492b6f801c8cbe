// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dsn parses and normalizes the PostgreSQL and MongoDB connection
// strings users hand to `connect` and `test-connection`.
package dsn

import (
	"fmt"
	"net/url"
	"strings"
)

// DBType represents the type of database
type DBType string

const (
	DBTypePostgreSQL DBType = "postgresql"
	DBTypeMongoDB    DBType = "mongodb"
	DBTypeUnknown    DBType = "unknown"
)

// Kind returns the short name used by the keychain and the API
// ("postgres" or "mongodb").
func (t DBType) Kind() string {
	switch t {
	case DBTypePostgreSQL:
		return "postgres"
	case DBTypeMongoDB:
		return "mongodb"
	}
	return string(t)
}

// Info contains parsed information from a DSN string.
type Info struct {
	Type   DBType
	Scheme string
	// Hosts holds every host[:port] of a MongoDB seed list; Host and Port
	// mirror the first one.
	Hosts    []string
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Params   map[string]string
	Original string
}

// String returns the DSN as given.
func (d *Info) String() string {
	return d.Original
}

// Redacted returns the normalized DSN with the password replaced.
func (d *Info) Redacted() string {
	if d == nil {
		return ""
	}
	cp := *d
	if cp.Password != "" {
		cp.Password = "xxxxx"
	}
	r := resolverFor(cp.Type)
	if r == nil {
		return ""
	}
	s, err := r.Normalize(&cp)
	if err != nil {
		return ""
	}
	return s
}

// Resolver is an interface for database-specific DSN resolution
type Resolver interface {
	// Parse parses a DSN string and returns normalized DSN info
	Parse(dsn string) (*Info, error)

	// Normalize converts DSN info to a properly formatted connection string
	Normalize(info *Info) (string, error)

	// Validate checks if the DSN is valid for the database type
	Validate(dsn string) error
}

// ParseError represents an error that occurred during DSN parsing
type ParseError struct {
	DSN    string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid DSN format: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid DSN format: %s", e.Reason)
}

// NewParseError creates a new ParseError
func NewParseError(dsn, reason, hint string) *ParseError {
	return &ParseError{
		DSN:    dsn,
		Reason: reason,
		Hint:   hint,
	}
}

// lenient splits "[user[:password]@]hosts[/database][?params]" without
// requiring percent-encoding, for passwords url.Parse rejects.
type lenient struct {
	user, password string
	hosts          string
	database       string
	params         map[string]string
	hasAuth        bool
	hasPath        bool
}

func splitLenient(remainder string) lenient {
	var l lenient
	l.params = map[string]string{}

	// The last @ before the path separates credentials from hosts.
	authority := remainder
	rest := ""
	if at := strings.LastIndex(remainder, "@"); at >= 0 {
		l.hasAuth = true
		auth := remainder[:at]
		if c := strings.Index(auth, ":"); c >= 0 {
			l.user, l.password = auth[:c], auth[c+1:]
		} else {
			l.user = auth
		}
		authority = remainder[at+1:]
	}
	if s := strings.Index(authority, "/"); s >= 0 {
		l.hasPath = true
		rest = authority[s+1:]
		authority = authority[:s]
	} else if q := strings.Index(authority, "?"); q >= 0 {
		rest = authority[q:]
		authority = authority[:q]
	}
	l.hosts = authority

	db, query, _ := strings.Cut(rest, "?")
	l.database = strings.TrimSpace(db)
	for _, param := range strings.Split(query, "&") {
		if kv := strings.SplitN(param, "=", 2); len(kv) == 2 {
			l.params[kv[0]] = kv[1]
		}
	}
	return l
}

func splitHostPort(hostport, defaultPort string) (string, string) {
	if strings.HasPrefix(hostport, "[") {
		if end := strings.Index(hostport, "]"); end > 0 {
			host := hostport[1:end]
			if port := strings.TrimPrefix(hostport[end+1:], ":"); port != "" {
				return host, port
			}
			return host, defaultPort
		}
	}
	if i := strings.LastIndex(hostport, ":"); i >= 0 {
		return hostport[:i], hostport[i+1:]
	}
	return hostport, defaultPort
}

func queryParams(v url.Values) map[string]string {
	out := make(map[string]string, len(v))
	for key, values := range v {
		if len(values) > 0 {
			out[key] = values[0]
		}
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func writeAuth(b *strings.Builder, user, password string) {
	if user == "" {
		return
	}
	ui := url.User(user)
	if password != "" {
		ui = url.UserPassword(user, password)
	}
	b.WriteString(ui.String())
	b.WriteString("@")
}

func writeParams(b *strings.Builder, params map[string]string) {
	if len(params) == 0 {
		return
	}
	b.WriteString("?")
	v := url.Values{}
	for key, value := range params {
		v.Set(key, value)
	}
	// Encode sorts by key.
	b.WriteString(v.Encode())
}
