package core

import (
	"fmt"
	"strings"
	"time"
)

// WhereBuilder assembles a parameterized WHERE clause. Placeholders are
// numbered in the order conditions are added.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder creates an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "column = $n". An empty value adds nothing.
func (wb *WhereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = $%d", quoteIdentifier(column), wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// AddNotNull appends "column IS NOT NULL" when enabled.
func (wb *WhereBuilder) AddNotNull(column string, enabled bool) {
	if !enabled {
		return
	}
	wb.conditions = append(wb.conditions, quoteIdentifier(column)+" IS NOT NULL")
}

// AddTimestampRange appends an inclusive lower and exclusive upper bound.
// A zero time leaves that side open.
func (wb *WhereBuilder) AddTimestampRange(column string, from, to time.Time) {
	col := quoteIdentifier(column)
	if !from.IsZero() {
		wb.conditions = append(wb.conditions, fmt.Sprintf("%s >= $%d", col, wb.argIndex))
		wb.args = append(wb.args, from)
		wb.argIndex++
	}
	if !to.IsZero() {
		wb.conditions = append(wb.conditions, fmt.Sprintf("%s < $%d", col, wb.argIndex))
		wb.args = append(wb.args, to)
		wb.argIndex++
	}
}

// NextArgIndex returns the number of the next placeholder, for LIMIT/OFFSET.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns " WHERE a AND b" and its args, or "" and nil when empty.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}
