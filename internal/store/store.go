// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store is the PostgreSQL record store for categories, rules and
// their follow/violate history.
package store

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is returned by mutations whose target row does not exist.
// Lookups return (nil, nil) instead.
var ErrNotFound = errors.New("record not found")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
