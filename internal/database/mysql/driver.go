package mysql

import (
	"context"
	"database/sql"

	"github.com/koustreak/multidatasource/internal/database"
	"github.com/koustreak/multidatasource/internal/errs"

	_ "github.com/go-sql-driver/mysql" // register "mysql" driver
)

// Driver is a MySQL implementation of database.DB backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db *sql.DB
}

// New opens a MySQL connection pool using the provided Config and returns a Driver.
// database/sql dials on first use; New only rejects a malformed configuration.
func New(_ context.Context, cfg *database.Config) (*Driver, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfiguration, "invalid DSN", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfiguration, "invalid DSN", err)
	}
	applyPoolSettings(db, cfg)

	return &Driver{db: db}, nil
}

// --- database.DB implementation ---

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

// Query runs a statement on a pooled connection; the connection returns to
// the pool when the Rows is closed.
func (d *Driver) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &mysqlRows{rows: rows}, nil
}

// --- sql.DB type wrappers ---

type mysqlRows struct {
	rows *sql.Rows
}

func (r *mysqlRows) Next() bool                 { return r.rows.Next() }
func (r *mysqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *mysqlRows) Close()                     { _ = r.rows.Close() }

func (r *mysqlRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return mapError(err, "failed to scan row")
	}
	return nil
}

func (r *mysqlRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return mapError(err, "error during row iteration")
	}
	return nil
}

var _ database.DB = (*Driver)(nil)
