package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/koustreak/multidatasource/internal/errs"
)

// SQL Server error numbers. Anything not listed, including syntax errors
// (102, 156) and invalid column or object names (207, 208), is a query failure.
// Full list: https://learn.microsoft.com/en-us/sql/relational-databases/errors-events/database-engine-events-and-errors
const (
	errPermissionDenied = 229
	errLockTimeout      = 1222
	errCannotOpenDB     = 4060
	errLoginFailed      = 18456
)

// mapError translates go-mssqldb errors into *errs.Error.
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

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return errs.Wrap(classifyNumber(msErr.Number), fmt.Sprintf("%s: %s", msg, msErr.Message), err)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

func classifyNumber(n int32) errs.ErrKind {
	switch n {
	case errLoginFailed, errPermissionDenied:
		return errs.ErrKindPermissionDenied
	case errCannotOpenDB:
		return errs.ErrKindConnectionFailed
	case errLockTimeout:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
