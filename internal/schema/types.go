package schema

import "strings"

// ColumnInfo describes a single column in a table
type ColumnInfo struct {
	Name       string
	DataType   string // engine type name: text, int, nvarchar, etc.
	IsNullable bool
}

// TableInfo describes a table and its columns
type TableInfo struct {
	Datasource string
	Name       string
	Columns    []ColumnInfo
}

// Column returns the named column, matching case-insensitively.
func (t *TableInfo) Column(name string) (ColumnInfo, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ColumnInfo{}, false
}
