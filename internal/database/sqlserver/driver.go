// Package sqlserver implements database.DB for Microsoft SQL Server and
// Azure SQL using go-mssqldb over database/sql.
package sqlserver

import (
	"context"
	"database/sql"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/koustreak/multidatasource/internal/database"
	"github.com/koustreak/multidatasource/internal/errs"
)

// Driver is a SQL Server implementation of database.DB.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db *sql.DB
}

// New opens a SQL Server pool for cfg. The connection string is validated
// here; the server is first contacted on Ping or the first query.
func New(_ context.Context, cfg *database.Config) (*Driver, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildDSN(cfg)
	}

	connector, err := mssql.NewConnector(dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfiguration, "invalid sqlserver connection string", err)
	}

	db := sql.OpenDB(connector)
	applyPoolSettings(db, cfg)

	return &Driver{db: db}, nil
}

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

// Query runs a statement on a pooled connection. Parameters are referenced
// as @p1, @p2, … in the SQL text.
func (d *Driver) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &mssqlRows{rows: rows}, nil
}

type mssqlRows struct {
	rows *sql.Rows
}

func (r *mssqlRows) Next() bool                 { return r.rows.Next() }
func (r *mssqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *mssqlRows) Close()                     { _ = r.rows.Close() }

func (r *mssqlRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return mapError(err, "failed to scan row")
	}
	return nil
}

func (r *mssqlRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return mapError(err, "error during row iteration")
	}
	return nil
}

var _ database.DB = (*Driver)(nil)
