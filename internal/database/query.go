package database

import (
	"fmt"
	"strings"

	"github.com/koustreak/multidatasource/internal/errs"
)

// Dialect controls placeholder style, identifier quoting and how row
// limits are rendered.
type Dialect int

const (
	// DialectPostgres uses $1, $2, … placeholders and LIMIT n.
	DialectPostgres Dialect = iota

	// DialectMySQL uses ? placeholders and LIMIT n.
	DialectMySQL

	// DialectSQLServer uses @p1, @p2, … placeholders and SELECT TOP (n).
	DialectSQLServer
)

func (d Dialect) String() string {
	switch d {
	case DialectMySQL:
		return "mysql"
	case DialectSQLServer:
		return "sqlserver"
	default:
		return "postgres"
	}
}

// validOps is the allowlist of comparison operators for WHERE clauses.
// The operator position cannot be parameterized, so anything else is rejected.
var validOps = map[string]bool{
	"=":     true,
	"!=":    true,
	"<>":    true,
	"<":     true,
	">":     true,
	"<=":    true,
	">=":    true,
	"LIKE":  true,
	"ILIKE": true,
}

// SelectBuilder constructs a parameterized SELECT query using a fluent API.
// Values are never interpolated into the SQL string; they are always passed as args.
//
// Usage:
//
//	sql, args, err := Select("test_table", DialectSQLServer).
//	    Limit(10).
//	    Build()
//	// SELECT TOP (@p1) * FROM [test_table]   args: [10]
type SelectBuilder struct {
	table   string
	dialect Dialect
	columns []string
	where   []whereClause
	orderBy []orderClause
	limit   *int
	offset  *int
}

// SortDirection controls the ORDER BY direction.
type SortDirection bool

const (
	Asc  SortDirection = false
	Desc SortDirection = true
)

type whereClause struct {
	column string
	op     string
	value  any
}

type orderClause struct {
	column string
	dir    SortDirection
}

// Select starts a new SelectBuilder for the given table and dialect.
func Select(table string, d Dialect) *SelectBuilder {
	return &SelectBuilder{table: table, dialect: d}
}

// Columns restricts the SELECT to the specified columns.
// If not called, SELECT * is used.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// Where adds a WHERE condition. Multiple calls are combined with AND.
func (b *SelectBuilder) Where(column, op string, value any) *SelectBuilder {
	b.where = append(b.where, whereClause{column, op, value})
	return b
}

// OrderBy appends an ORDER BY clause for the given column and direction.
func (b *SelectBuilder) OrderBy(column string, dir SortDirection) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{column, dir})
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Offset sets the number of rows to skip.
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = &n
	return b
}

// Build produces the final SQL string and argument slice.
func (b *SelectBuilder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "table name is required")
	}
	if b.limit != nil && *b.limit < 0 {
		return "", nil, errs.Newf(errs.ErrKindInvalidInput, "negative limit: %d", *b.limit)
	}
	if b.offset != nil && *b.offset < 0 {
		return "", nil, errs.Newf(errs.ErrKindInvalidInput, "negative offset: %d", *b.offset)
	}
	// SQL Server only pages through OFFSET ... FETCH, which needs ORDER BY.
	useFetch := b.dialect == DialectSQLServer && b.offset != nil
	if useFetch && len(b.orderBy) == 0 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "sqlserver OFFSET requires ORDER BY")
	}

	var args []any
	next := func(v any) string {
		args = append(args, v)
		return b.placeholder(len(args))
	}

	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			quoted[i] = QuoteIdent(b.dialect, c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if b.dialect == DialectSQLServer && b.limit != nil && !useFetch {
		fmt.Fprintf(&sb, "TOP (%s) ", next(*b.limit))
	}
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(QuoteIdent(b.dialect, b.table))

	if len(b.where) > 0 {
		parts := make([]string, 0, len(b.where))
		for _, w := range b.where {
			op := strings.ToUpper(w.op)
			if !validOps[op] || (op == "ILIKE" && b.dialect != DialectPostgres) {
				return "", nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported WHERE operator: %q", w.op)
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", QuoteIdent(b.dialect, w.column), op, next(w.value)))
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			dir := "ASC"
			if o.dir == Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("%s %s", QuoteIdent(b.dialect, o.column), dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if useFetch {
		fmt.Fprintf(&sb, " OFFSET %s ROWS", next(*b.offset))
		if b.limit != nil {
			fmt.Fprintf(&sb, " FETCH NEXT %s ROWS ONLY", next(*b.limit))
		}
		return sb.String(), args, nil
	}

	if b.dialect != DialectSQLServer {
		if b.limit != nil {
			fmt.Fprintf(&sb, " LIMIT %s", next(*b.limit))
		}
		if b.offset != nil {
			fmt.Fprintf(&sb, " OFFSET %s", next(*b.offset))
		}
	}

	return sb.String(), args, nil
}

// placeholder returns the parameter placeholder for the idx-th argument.
func (b *SelectBuilder) placeholder(idx int) string {
	switch b.dialect {
	case DialectMySQL:
		return "?"
	case DialectSQLServer:
		return fmt.Sprintf("@p%d", idx)
	default:
		return fmt.Sprintf("$%d", idx)
	}
}

// QuoteIdent quotes a SQL identifier for the dialect: "x" for Postgres,
// `x` for MySQL (double quotes are string literals outside ANSI_QUOTES) and
// [x] for SQL Server.
func QuoteIdent(d Dialect, name string) string {
	switch d {
	case DialectMySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case DialectSQLServer:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}
