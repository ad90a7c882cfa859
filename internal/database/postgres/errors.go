package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koustreak/multidatasource/internal/errs"
)

// PostgreSQL SQLSTATE classes (read-relevant only)
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnection    = "08"
	pgClassInvalidAuth   = "28"
	pgClassInsufficient  = "53" // too many connections, out of memory
	pgClassOperatorIntvn = "57" // admin shutdown, query canceled
	pgQueryCanceled      = "57014"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	// Context cancellation / deadline exceeded
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifySQLState(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Fallthrough: connection-level errors (TLS, network, dial)
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifySQLState maps a SQLSTATE code to an ErrKind.
func classifySQLState(code string) errs.ErrKind {
	if code == pgQueryCanceled {
		return errs.ErrKindTimeout
	}
	if len(code) < 2 {
		return errs.ErrKindQueryFailed
	}
	switch code[:2] {
	case pgClassConnection, pgClassInsufficient, pgClassOperatorIntvn:
		return errs.ErrKindConnectionFailed
	case pgClassInvalidAuth:
		return errs.ErrKindPermissionDenied
	default:
		// 42 syntax / undefined table / undefined column, 22 data exceptions, …
		return errs.ErrKindQueryFailed
	}
}
