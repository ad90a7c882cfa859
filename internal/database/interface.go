package database

import "context"

// DB is the contract every pool implementation satisfies.
// Only the datasource registry imports the postgres, mysql and sqlserver
// packages; everything above it talks to this interface.
type DB interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Query borrows a connection and executes a SQL statement that returns
	// rows. The connection goes back to the pool when Rows is closed.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Columns returns the column names of the result set.
	Columns() ([]string, error)

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}
