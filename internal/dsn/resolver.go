// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import "strings"

// DetectDBType detects the database type from a DSN string
func DetectDBType(dsn string) DBType {
	lower := strings.ToLower(strings.TrimSpace(dsn))

	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DBTypePostgreSQL
	case strings.HasPrefix(lower, "mongodb://"), strings.HasPrefix(lower, "mongodb+srv://"):
		return DBTypeMongoDB
	}
	return DBTypeUnknown
}

func resolverFor(t DBType) Resolver {
	switch t {
	case DBTypePostgreSQL:
		return NewPostgreSQLResolver()
	case DBTypeMongoDB:
		return NewMongoDBResolver()
	}
	return nil
}

func resolve(dsn string) (Resolver, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, NewParseError(dsn, "empty DSN", "provide a valid database connection string")
	}
	r := resolverFor(DetectDBType(dsn))
	if r == nil {
		return nil, NewParseError(dsn, "unsupported database type", "use postgres://, postgresql://, mongodb:// or mongodb+srv://")
	}
	return r, nil
}

// Parse parses a DSN string and returns the normalized connection string.
func Parse(dsn string) (string, error) {
	r, err := resolve(dsn)
	if err != nil {
		return "", err
	}
	info, err := r.Parse(strings.TrimSpace(dsn))
	if err != nil {
		return "", err
	}
	return r.Normalize(info)
}

// Validate validates a DSN string without normalizing it
func Validate(dsn string) error {
	r, err := resolve(dsn)
	if err != nil {
		return err
	}
	return r.Validate(strings.TrimSpace(dsn))
}

// ParseInfo parses a DSN string and returns detailed DSN info
func ParseInfo(dsn string) (*Info, error) {
	r, err := resolve(dsn)
	if err != nil {
		return nil, err
	}
	return r.Parse(strings.TrimSpace(dsn))
}
