// Package dbtest provides an in-memory database.DB for tests.
//
// The fake records every statement it receives and counts result sets that
// have been handed out but not closed, so tests can assert that a borrowed
// connection is always returned.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/koustreak/multidatasource/internal/database"
)

// ErrClosed is returned by a DB after Close.
var ErrClosed = errors.New("dbtest: pool closed")

// DB is a scripted database.DB.
type DB struct {
	mu sync.Mutex

	columns []string
	rows    [][]any

	// QueryErr is returned by Query instead of a result set.
	QueryErr error
	// PingErr is returned by Ping.
	PingErr error
	// ScanErrAt makes Scan fail on the given 1-based row with ScanErr.
	ScanErrAt int
	ScanErr   error
	// IterErr is reported by Rows.Err after the last row.
	IterErr error

	queries     []string
	args        [][]any
	outstanding int
	closed      bool
}

// New returns a DB whose every query yields columns and rows.
func New(columns []string, rows ...[]any) *DB {
	return &DB{columns: columns, rows: rows}
}

func (d *DB) Ping(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.PingErr
}

func (d *DB) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *DB) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.queries = append(d.queries, sql)
	d.args = append(d.args, args)

	if d.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.QueryErr != nil {
		return nil, d.QueryErr
	}
	d.outstanding++
	return &rows{db: d, pos: -1}, nil
}

// Queries returns every statement received so far.
func (d *DB) Queries() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.queries...)
}

// Args returns the arguments of the i-th statement.
func (d *DB) Args(i int) []any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.args[i]
}

// Outstanding is the number of result sets not yet closed.
func (d *DB) Outstanding() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outstanding
}

// Closed reports whether Close was called.
func (d *DB) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type rows struct {
	db     *DB
	pos    int
	closed bool
}

func (r *rows) Next() bool {
	if r.closed {
		return false
	}
	r.pos++
	return r.pos < len(r.db.rows)
}

func (r *rows) Scan(dest ...any) error {
	if r.db.ScanErrAt == r.pos+1 && r.db.ScanErr != nil {
		return r.db.ScanErr
	}
	row := r.db.rows[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("dbtest: expected %d destination arguments in Scan, not %d", len(row), len(dest))
	}
	for i, d := range dest {
		p, ok := d.(*any)
		if !ok {
			return fmt.Errorf("dbtest: unsupported Scan destination %T", d)
		}
		*p = row[i]
	}
	return nil
}

func (r *rows) Columns() ([]string, error) {
	return r.db.columns, nil
}

func (r *rows) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.db.mu.Lock()
	r.db.outstanding--
	r.db.mu.Unlock()
}

func (r *rows) Err() error {
	if r.pos >= len(r.db.rows) {
		return r.db.IterErr
	}
	return nil
}

var _ database.DB = (*DB)(nil)
