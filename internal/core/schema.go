package core

import (
	"context"
	"fmt"
	"strings"
)

// SchemaResolver reports the declared storage type of each column of a table.
type SchemaResolver interface {
	ColumnTypes(ctx context.Context, table string) (map[string]ColumnType, error)
}

// PgSchema resolves column types from information_schema in the current schema.
type PgSchema struct {
	DB DBTX
}

// ColumnTypes implements SchemaResolver. An unknown table is an error.
func (s PgSchema) ColumnTypes(ctx context.Context, table string) (map[string]ColumnType, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("resolve columns of %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]ColumnType)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, fmt.Errorf("resolve columns of %s: %w", table, err)
		}
		out[name] = ColumnTypeOf(dataType)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resolve columns of %s: %w", table, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("table not found: %s", table)
	}
	return out, nil
}

// ColumnTypeOf maps an information_schema data_type to a ColumnType.
func ColumnTypeOf(dataType string) ColumnType {
	switch strings.ToLower(dataType) {
	case "boolean":
		return ColumnBool
	case "smallint", "integer", "bigint":
		return ColumnInt
	case "numeric", "decimal", "real", "double precision", "money":
		return ColumnNumeric
	case "uuid":
		return ColumnUUID
	default:
		return ColumnPassthrough
	}
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteIdentifier(c)
	}
	return out
}
