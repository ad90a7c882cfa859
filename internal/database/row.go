package database

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/koustreak/multidatasource/internal/errs"
)

// Record is one scanned result row, addressable by column name.
// A Record is only valid inside the RowMapper call that received it.
type Record struct {
	columns []string
	index   map[string]int
	values  []any
}

// NewRecord builds a Record from parallel column and value slices.
// When a column name repeats, the first occurrence wins.
func NewRecord(columns []string, values []any) Record {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	return Record{columns: columns, index: index, values: values}
}

// Columns returns the result-set column names in select order.
func (r Record) Columns() []string {
	return r.columns
}

// Value returns the driver value of the named column. Names match exactly
// first, then case-insensitively, since engines differ in how they fold
// unquoted identifiers.
func (r Record) Value(column string) (any, error) {
	if i, ok := r.index[column]; ok {
		return r.values[i], nil
	}
	for i, c := range r.columns {
		if strings.EqualFold(c, column) {
			return r.values[i], nil
		}
	}
	return nil, errs.Newf(errs.ErrKindQueryFailed, "column %q not found in result set", column)
}

// String returns the named column rendered as text. NULL renders as "null".
func (r Record) String(column string) (string, error) {
	v, err := r.Value(column)
	if err != nil {
		return "", err
	}
	return FormatValue(v), nil
}

// FormatValue renders a driver value as text.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int8:
		return strconv.FormatInt(int64(t), 10)
	case int:
		return strconv.Itoa(t)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case driver.Valuer:
		// pgtype values such as Numeric and UUID
		inner, err := t.Value()
		if err != nil {
			return fmt.Sprint(t)
		}
		if _, again := inner.(driver.Valuer); again {
			return fmt.Sprint(inner)
		}
		return FormatValue(inner)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// scanRecord reads the current row of rows into a Record.
func scanRecord(rows Rows, columns []string) (Record, error) {
	// Allocate scan targets as *any so the driver can write any type.
	dest := make([]any, len(columns))
	destPtrs := make([]any, len(columns))
	for i := range dest {
		destPtrs[i] = &dest[i]
	}
	if err := rows.Scan(destPtrs...); err != nil {
		return Record{}, err
	}
	return NewRecord(columns, dest), nil
}
