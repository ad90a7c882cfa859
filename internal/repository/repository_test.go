package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/multidatasource/internal/database"
	"github.com/koustreak/multidatasource/internal/database/dbtest"
	"github.com/koustreak/multidatasource/internal/errs"
)

var idName = []string{"id", "name"}

func newRepo(first, second *dbtest.DB, d database.Dialect) *Repository {
	return New(
		database.NewExecutor("first", first, d),
		database.NewExecutor("second", second, d),
	)
}

func TestQueryOne_FormatsRowsInOrder(t *testing.T) {
	first := dbtest.New(idName, []any{int64(1), "Alice"}, []any{int64(2), "Bob"})
	second := dbtest.New(idName)
	repo := newRepo(first, second, database.DialectSQLServer)

	got, err := repo.QueryOne(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1, Alice", "2, Bob"}, got)

	assert.Empty(t, second.Queries(), "QueryOne must never touch the second pool")
	assert.Zero(t, first.Outstanding())
}

func TestQueryOne_SQLPerDialect(t *testing.T) {
	tests := []struct {
		dialect database.Dialect
		sql     string
	}{
		{database.DialectSQLServer, "SELECT TOP (@p1) * FROM [test_table]"},
		{database.DialectPostgres, `SELECT * FROM "test_table" LIMIT $1`},
		{database.DialectMySQL, "SELECT * FROM `test_table` LIMIT ?"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.String(), func(t *testing.T) {
			first := dbtest.New(idName)
			repo := newRepo(first, dbtest.New(idName), tt.dialect)

			_, err := repo.QueryOne(context.Background())
			require.NoError(t, err)

			require.Equal(t, []string{tt.sql}, first.Queries())
			assert.Equal(t, []any{FirstLimit}, first.Args(0))
		})
	}
}

func TestQueryTwo_ReadsEveryRowFromSecond(t *testing.T) {
	rows := make([][]any, 25)
	want := make([]string, 25)
	for i := range rows {
		rows[i] = []any{int64(i + 1), fmt.Sprintf("row-%d", i+1)}
		want[i] = fmt.Sprintf("%d, row-%d", i+1, i+1)
	}
	first := dbtest.New(idName)
	second := dbtest.New(idName, rows...)
	repo := newRepo(first, second, database.DialectPostgres)

	got, err := repo.QueryTwo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.Equal(t, []string{`SELECT * FROM "test_table"`}, second.Queries())
	assert.Empty(t, second.Args(0))
	assert.Empty(t, first.Queries(), "QueryTwo must never touch the first pool")
}

func TestQueryTwo_Empty(t *testing.T) {
	repo := newRepo(dbtest.New(idName), dbtest.New(idName), database.DialectMySQL)

	got, err := repo.QueryTwo(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestQuery_MissingColumnIsQueryError(t *testing.T) {
	first := dbtest.New([]string{"id", "title"}, []any{int64(1), "x"})
	repo := newRepo(first, dbtest.New(idName), database.DialectPostgres)

	got, err := repo.QueryOne(context.Background())
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errs.IsQueryError(err))
	assert.Contains(t, err.Error(), `"name"`)
	assert.Zero(t, first.Outstanding())
}

func TestQuery_DriverErrorPropagates(t *testing.T) {
	second := dbtest.New(idName)
	second.QueryErr = errs.Wrap(errs.ErrKindConnectionFailed, "query failed", errors.New("connection refused"))
	repo := newRepo(dbtest.New(idName), second, database.DialectPostgres)

	_, err := repo.QueryTwo(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestMapIDName(t *testing.T) {
	tests := []struct {
		name string
		cols []string
		vals []any
		want string
	}{
		{"int and string", idName, []any{int64(7), "Grace"}, "7, Grace"},
		{"bytes", idName, []any{[]byte("7"), []byte("Grace")}, "7, Grace"},
		{"null name", idName, []any{int64(3), nil}, "3, null"},
		{"upper-case columns", []string{"ID", "NAME"}, []any{int32(4), "Ada"}, "4, Ada"},
		{"extra columns", []string{"id", "created", "name"}, []any{int64(5), "2024-01-01", "Lin"}, "5, Lin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MapIDName(database.NewRecord(tt.cols, tt.vals))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapIDName_MissingID(t *testing.T) {
	_, err := MapIDName(database.NewRecord([]string{"name"}, []any{"Alice"}))
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
}
