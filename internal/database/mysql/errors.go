package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/koustreak/multidatasource/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDBAccessDenied  = 1044
	errAccessDenied    = 1045
	errNoDatabase      = 1046
	errUnknownDatabase = 1049
	errTooManyConns    = 1040
	errUserTooManyConn = 1203
	errBadFieldError   = 1054
	errParseError      = 1064
	errNoSuchTable     = 1146
	errQueryTimeout    = 3024 // max_execution_time exceeded
)

// mapError translates go-sql-driver/mysql errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	// Fallthrough: sql.ErrConnDone, driver.ErrBadConn, dial and TLS errors
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case errDBAccessDenied, errAccessDenied:
		return errs.ErrKindPermissionDenied
	case errNoDatabase, errUnknownDatabase, errTooManyConns, errUserTooManyConn:
		return errs.ErrKindConnectionFailed
	case errQueryTimeout:
		return errs.ErrKindTimeout
	case errBadFieldError, errParseError, errNoSuchTable:
		return errs.ErrKindQueryFailed
	default:
		return errs.ErrKindQueryFailed
	}
}
