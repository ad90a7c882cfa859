package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koustreak/multidatasource/internal/database"
	"github.com/koustreak/multidatasource/internal/errs"
)

// Driver is a PostgreSQL implementation of database.DB backed by pgxpool.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	pool *pgxpool.Pool
}

// New builds a PostgreSQL pool from cfg. Connections are established lazily,
// so an unreachable server is reported by Ping or the first query, not here.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	poolCfg, err := buildPoolConfig(cfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfiguration, "invalid postgres config", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create connection pool", err)
	}

	return &Driver{pool: pool}, nil
}

// --- database.DB implementation ---

// Ping verifies the database is reachable by acquiring and releasing a connection.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool. Call when the application shuts down.
func (d *Driver) Close() {
	d.pool.Close()
}

// Query executes a SQL statement that returns multiple rows. The pooled
// connection is held until the returned Rows is closed.
func (d *Driver) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &pgxRows{rows: rows}, nil
}

// --- pgx type wrappers ---

// pgxRows wraps pgx.Rows to satisfy database.Rows.
type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool { return r.rows.Next() }
func (r *pgxRows) Close()     { r.rows.Close() }

func (r *pgxRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return mapError(err, "failed to scan row")
	}
	return nil
}

func (r *pgxRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return mapError(err, "error during row iteration")
	}
	return nil
}

func (r *pgxRows) Columns() ([]string, error) {
	descs := r.rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}
	return cols, nil
}

var _ database.DB = (*Driver)(nil)
