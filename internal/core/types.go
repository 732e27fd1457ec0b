package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/combokiosk/internal/combo"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Beginner starts transactions. Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// FieldType represents the expected data type for a source field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInt
	FieldNumeric
	FieldBool
)

// FieldSpec defines parsing rules for a single source column.
type FieldSpec struct {
	Name       string              // Column header name (matched case-insensitively)
	Type       FieldType           // Expected data type
	Required   bool                // Column must exist in the source header
	AllowEmpty bool                // If true, empty values are allowed even when Required
	Normalizer func(string) string // Optional transformation function
}

// ColumnType is the storage type of a target column as declared in the
// database schema. Values are coerced to it before insert.
type ColumnType int

const (
	ColumnPassthrough ColumnType = iota
	ColumnBool
	ColumnInt
	ColumnNumeric
	ColumnUUID
)

func (c ColumnType) String() string {
	switch c {
	case ColumnBool:
		return "bool"
	case ColumnInt:
		return "int"
	case ColumnNumeric:
		return "numeric"
	case ColumnUUID:
		return "uuid"
	default:
		return "passthrough"
	}
}

// Source kinds a table is loaded from.
const (
	SourceCombos   = "combos"
	SourceProducts = "products"
)

// TableInfo contains display information about a table.
type TableInfo struct {
	Key     string   // Table name: "combo_groups"
	Label   string   // Display name: "Combo groups"
	Source  string   // SourceCombos or SourceProducts
	Order   int      // Load order within a sync run
	Columns []string // Database columns, in the order Extract returns values
}

// Batch is everything one sync run parsed from its sources.
type Batch struct {
	Products []combo.Product
	Catalog  *combo.Normalized
}

// ExtractFunc returns the rows a table should hold after a sync, one value
// per TableInfo.Columns entry.
type ExtractFunc func(b *Batch) [][]any

// TableDefinition contains everything needed to load a table.
type TableDefinition struct {
	Info    TableInfo
	Extract ExtractFunc
}

// TableResult is the outcome of loading one table.
type TableResult struct {
	Table    string        `json:"table"`
	Rows     int           `json:"rows"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// SyncResult is the outcome of one sync run.
type SyncResult struct {
	RunID     string        `json:"runId"`
	Trigger   string        `json:"trigger"`
	Source    string        `json:"source"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Tables    []TableResult `json:"tables"`
	Warnings  []string      `json:"warnings,omitempty"`
	Error     string        `json:"error,omitempty"`
	Code      string        `json:"code,omitempty"`
}

// Total is the number of rows written across all tables.
func (r SyncResult) Total() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Rows
	}
	return n
}

// Counts maps table name to rows written.
func (r SyncResult) Counts() map[string]int {
	out := make(map[string]int, len(r.Tables))
	for _, t := range r.Tables {
		out[t.Table] = t.Rows
	}
	return out
}

// Succeeded reports whether every table loaded.
func (r SyncResult) Succeeded() bool {
	return r.Error == ""
}
