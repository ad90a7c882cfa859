// Package schema inspects tables through information_schema, which all
// supported engines expose. Lookups are scoped to the connection's current
// schema (current_schema() on PostgreSQL, DATABASE() on MySQL and
// SCHEMA_NAME() on SQL Server).
package schema

import (
	"context"
	"strings"

	"github.com/koustreak/multidatasource/internal/database"
	"github.com/koustreak/multidatasource/internal/errs"
)

var columnQueries = map[database.Dialect]string{
	database.DialectPostgres: `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`,

	database.DialectMySQL: `
		SELECT column_name AS column_name, data_type AS data_type, is_nullable AS is_nullable
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`,

	database.DialectSQLServer: `
		SELECT COLUMN_NAME AS column_name, DATA_TYPE AS data_type, IS_NULLABLE AS is_nullable
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_NAME = @p1
		ORDER BY ORDINAL_POSITION`,
}

// Inspector reads table metadata from one datasource.
type Inspector struct {
	exec *database.Executor
}

// NewInspector returns an Inspector running its queries through exec.
func NewInspector(exec *database.Executor) *Inspector {
	return &Inspector{exec: exec}
}

// InspectTable returns the columns of table in ordinal order. A table with
// no visible columns is reported as not found.
func (i *Inspector) InspectTable(ctx context.Context, table string) (*TableInfo, error) {
	q, ok := columnQueries[i.exec.Dialect()]
	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "no column query for dialect %s", i.exec.Dialect())
	}

	cols, err := database.Query(ctx, i.exec, q, mapColumn, table)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found on datasource %q", table, i.exec.Name())
	}

	return &TableInfo{Datasource: i.exec.Name(), Name: table, Columns: cols}, nil
}

// RequireColumns fails unless table exists and has every listed column.
func (i *Inspector) RequireColumns(ctx context.Context, table string, columns ...string) error {
	info, err := i.InspectTable(ctx, table)
	if err != nil {
		return err
	}

	var missing []string
	for _, c := range columns {
		if _, ok := info.Column(c); !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return errs.Newf(errs.ErrKindNotFound, "table %q on datasource %q is missing columns: %s",
			table, i.exec.Name(), strings.Join(missing, ", "))
	}
	return nil
}

func mapColumn(rec database.Record) (ColumnInfo, error) {
	name, err := rec.String("column_name")
	if err != nil {
		return ColumnInfo{}, err
	}
	dataType, err := rec.String("data_type")
	if err != nil {
		return ColumnInfo{}, err
	}
	nullable, err := rec.String("is_nullable")
	if err != nil {
		return ColumnInfo{}, err
	}
	return ColumnInfo{Name: name, DataType: dataType, IsNullable: nullable == "YES"}, nil
}
