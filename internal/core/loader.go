package core

// loader.go replaces the contents of one table with a new set of rows.
//
// Rows are written in chunks with one multi-row INSERT per chunk. The table
// is cleared inside the first chunk's transaction, so readers never see an
// empty table between the clear and the first insert. Two atomicity modes
// exist:
//
//   - LoadPerChunk commits every chunk on its own. A failure in chunk N keeps
//     chunks 0..N-1, leaving the table truncated and partially reloaded. The
//     returned *LoadError says how many rows were committed.
//   - LoadAtomic runs the clear and every chunk in one transaction. A failure
//     leaves the previous contents untouched.

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// DefaultChunkSize is the number of rows per INSERT statement.
const DefaultChunkSize = 1000

// MaxParams is the PostgreSQL limit on bind parameters per statement.
const MaxParams = 65535

// LoadMode selects the transaction boundary of a load.
type LoadMode int

const (
	LoadPerChunk LoadMode = iota
	LoadAtomic
)

func (m LoadMode) String() string {
	if m == LoadAtomic {
		return "atomic"
	}
	return "per_chunk"
}

// LoadError reports a failed load. Committed is the number of rows that
// remain in the table from earlier chunks (always 0 in LoadAtomic mode).
type LoadError struct {
	Table     string
	Chunk     int
	Committed int
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s chunk %d (%d rows committed): %v", e.Table, e.Chunk, e.Committed, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader writes rows into tables in chunks.
type Loader struct {
	DB        Beginner
	Schema    SchemaResolver
	ChunkSize int
	Mode      LoadMode
}

// NewLoader creates a per-chunk loader with the default chunk size.
func NewLoader(db Beginner, schema SchemaResolver) *Loader {
	return &Loader{DB: db, Schema: schema, ChunkSize: DefaultChunkSize}
}

// chunkSize caps the configured size so a chunk stays under MaxParams.
func (l *Loader) chunkSize(cols int) int {
	size := l.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	if cols > 0 && size*cols > MaxParams {
		size = MaxParams / cols
	}
	return size
}

// Load replaces every row of table with rows. columns names the target
// columns in the order of each row's values. Zero rows still clear the table.
// Returns the number of rows written.
func (l *Loader) Load(ctx context.Context, table string, columns []string, rows [][]any) (int, error) {
	if len(columns) == 0 {
		return 0, &LoadError{Table: table, Err: fmt.Errorf("no columns")}
	}

	types, err := l.Schema.ColumnTypes(ctx, table)
	if err != nil {
		return 0, &LoadError{Table: table, Err: err}
	}
	colTypes := make([]ColumnType, len(columns))
	for i, c := range columns {
		ct, ok := types[c]
		if !ok {
			return 0, &LoadError{Table: table, Err: fmt.Errorf("column not found: %s.%s", table, c)}
		}
		colTypes[i] = ct
	}

	chunks := chunkRows(rows, l.chunkSize(len(columns)))
	if l.Mode == LoadAtomic {
		return l.loadAtomic(ctx, table, columns, colTypes, chunks)
	}
	return l.loadPerChunk(ctx, table, columns, colTypes, chunks)
}

func (l *Loader) loadPerChunk(ctx context.Context, table string, columns []string, colTypes []ColumnType, chunks [][][]any) (int, error) {
	written := 0
	for i, chunk := range chunks {
		args, err := coerceChunk(chunk, colTypes)
		if err != nil {
			return written, &LoadError{Table: table, Chunk: i, Committed: written, Err: err}
		}

		err = pgx.BeginFunc(ctx, l.DB, func(tx pgx.Tx) error {
			if i == 0 {
				if err := clearTable(ctx, tx, table); err != nil {
					return err
				}
			}
			return insertChunk(ctx, tx, table, columns, len(chunk), args)
		})
		if err != nil {
			return written, &LoadError{Table: table, Chunk: i, Committed: written, Err: err}
		}
		written += len(chunk)
	}
	return written, nil
}

func (l *Loader) loadAtomic(ctx context.Context, table string, columns []string, colTypes []ColumnType, chunks [][][]any) (int, error) {
	chunkIdx := 0
	written := 0
	err := pgx.BeginFunc(ctx, l.DB, func(tx pgx.Tx) error {
		if err := clearTable(ctx, tx, table); err != nil {
			return err
		}
		for i, chunk := range chunks {
			chunkIdx = i
			if len(chunk) == 0 {
				continue
			}
			args, err := coerceChunk(chunk, colTypes)
			if err != nil {
				return err
			}
			if err := insertChunk(ctx, tx, table, columns, len(chunk), args); err != nil {
				return err
			}
			written += len(chunk)
		}
		return nil
	})
	if err != nil {
		return 0, &LoadError{Table: table, Chunk: chunkIdx, Err: err}
	}
	return written, nil
}

// chunkRows splits rows into chunks of at most size. Zero rows yield one
// empty chunk so the table is still cleared.
func chunkRows(rows [][]any, size int) [][][]any {
	if len(rows) == 0 {
		return [][][]any{nil}
	}
	var out [][][]any
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}

func coerceChunk(chunk [][]any, colTypes []ColumnType) ([]any, error) {
	args := make([]any, 0, len(chunk)*len(colTypes))
	for r, row := range chunk {
		if len(row) != len(colTypes) {
			return nil, fmt.Errorf("row %d has %d values, want %d", r, len(row), len(colTypes))
		}
		for c, v := range row {
			cv, err := Coerce(v, colTypes[c])
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", r, c, err)
			}
			args = append(args, cv)
		}
	}
	return args, nil
}

func clearTable(ctx context.Context, tx pgx.Tx, table string) error {
	if _, err := tx.Exec(ctx, "DELETE FROM "+quoteIdentifier(table)); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	return nil
}

func insertChunk(ctx context.Context, tx pgx.Tx, table string, columns []string, n int, args []any) error {
	if n == 0 {
		return nil
	}
	if _, err := tx.Exec(ctx, buildInsert(table, columns, n), args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// buildInsert returns INSERT INTO "t" ("a","b") VALUES ($1,$2),($3,$4)...
func buildInsert(table string, columns []string, rows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdentifier(table))
	b.WriteString(" (")
	b.WriteString(strings.Join(quoteColumns(columns), ", "))
	b.WriteString(") VALUES ")

	p := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(p))
			p++
		}
		b.WriteByte(')')
	}
	return b.String()
}
