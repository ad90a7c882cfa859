package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/koustreak/multidatasource/internal/errs"
)

// RowMapper converts one result row into a value. Mappers must be pure:
// they read fields from the Record and nothing else.
type RowMapper[T any] func(rec Record) (T, error)

// Observer receives one callback per executed query.
type Observer interface {
	ObserveQuery(datasource string, rows int, elapsed time.Duration, err error)
}

// Executor runs SQL against exactly one pool. It holds no per-request
// state and is safe for concurrent use.
type Executor struct {
	name     string
	db       DB
	dialect  Dialect
	timeout  time.Duration
	observer Observer
}

// ExecutorOption customises an Executor.
type ExecutorOption func(*Executor)

// WithQueryTimeout bounds every query run by the executor. Zero leaves the
// caller's context untouched.
func WithQueryTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// WithObserver reports each query outcome to o.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

// NewExecutor binds an executor named name to db.
func NewExecutor(name string, db DB, dialect Dialect, opts ...ExecutorOption) *Executor {
	e := &Executor{name: name, db: db, dialect: dialect}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name is the datasource the executor is bound to.
func (e *Executor) Name() string { return e.name }

// Dialect is the SQL dialect of the bound pool.
func (e *Executor) Dialect() Dialect { return e.dialect }

// Query runs sql on the executor's pool and maps every row, in result order,
// through mapper. The borrowed connection is released on every return path.
// Any failure yields a query error and no partial results.
func Query[T any](ctx context.Context, e *Executor, sql string, mapper RowMapper[T], args ...any) (result []T, err error) {
	start := time.Now()
	defer func() {
		if e.observer != nil {
			e.observer.ObserveQuery(e.name, len(result), time.Since(start), err)
		}
	}()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	rows, err := e.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, queryError(ctx, err, "query failed")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, queryError(ctx, err, "failed to read column names")
	}

	out := make([]T, 0)
	for rows.Next() {
		rec, err := scanRecord(rows, columns)
		if err != nil {
			return nil, queryError(ctx, err, "failed to scan row")
		}
		v, err := mapper(rec)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("failed to map row %d", len(out)+1), err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ctx, err, "error during row iteration")
	}

	return out, nil
}

// queryError makes sure err is reported as a query error. Errors already
// classified by a driver keep their kind.
func queryError(ctx context.Context, err error, msg string) error {
	if errs.IsQueryError(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}
