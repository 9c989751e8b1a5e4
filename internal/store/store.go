// Package store persists the marketplace in Postgres.
package store

import (
	"context"
	"errors"
	"strings"

	"mutari/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Unavailable reports errors meaning the database could not be reached or
// did not answer in time, as opposed to a rejected statement.
func Unavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, types.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08: connection exception, 53: insufficient resources, 57P0x: shutdown
		return strings.HasPrefix(pgErr.Code, "08") ||
			strings.HasPrefix(pgErr.Code, "53") ||
			strings.HasPrefix(pgErr.Code, "57P0")
	}

	return false
}

func uniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// unavailableOr tags connectivity failures with types.ErrUnavailable so
// handlers can answer 503.
func unavailableOr(err error) error {
	if err == nil || errors.Is(err, types.ErrUnavailable) || !Unavailable(err) {
		return err
	}
	return errors.Join(types.ErrUnavailable, err)
}
