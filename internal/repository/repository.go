// Package repository holds the two fixed reads the service exposes.
package repository

import (
	"context"

	"github.com/koustreak/multidatasource/internal/database"
)

const (
	// Table is the table both datasources are read from.
	Table = "test_table"

	// FirstLimit caps the rows read from the first datasource.
	FirstLimit = 10
)

// Repository runs QueryOne against the first datasource and QueryTwo
// against the second. It holds no state besides the executors.
type Repository struct {
	first  *database.Executor
	second *database.Executor
}

// New binds a repository to one executor per datasource.
func New(first, second *database.Executor) *Repository {
	return &Repository{first: first, second: second}
}

// QueryOne returns at most FirstLimit rows of test_table from the first
// datasource, each rendered as "<id>, <name>". Row order is whatever the
// database returns.
func (r *Repository) QueryOne(ctx context.Context) ([]string, error) {
	sql, args, err := database.Select(Table, r.first.Dialect()).Limit(FirstLimit).Build()
	if err != nil {
		return nil, err
	}
	return database.Query(ctx, r.first, sql, MapIDName, args...)
}

// QueryTwo returns every row of test_table from the second datasource.
func (r *Repository) QueryTwo(ctx context.Context) ([]string, error) {
	sql, args, err := database.Select(Table, r.second.Dialect()).Build()
	if err != nil {
		return nil, err
	}
	return database.Query(ctx, r.second, sql, MapIDName, args...)
}

// MapIDName renders a row as "<id>, <name>".
func MapIDName(rec database.Record) (string, error) {
	id, err := rec.String("id")
	if err != nil {
		return "", err
	}
	name, err := rec.String("name")
	if err != nil {
		return "", err
	}
	return id + ", " + name, nil
}
