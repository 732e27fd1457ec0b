// Package admin provides administrative operations for database management.
package admin

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/combokiosk/internal/core"
)

// ResetTimeout is the maximum duration for database reset operations.
const ResetTimeout = 30 * time.Second

// Reset empties every registered catalog table, and the sync history when
// withHistory is set, in one transaction. Readers see either the old
// catalog or an empty one. This is a destructive operation.
func Reset(ctx context.Context, db core.Beginner, withHistory bool) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	tables := ResetTables(withHistory)
	if len(tables) == 0 {
		return nil, nil
	}
	quoted := make([]string, len(tables))
	for i, t := range tables {
		quoted[i] = pgx.Identifier{t}.Sanitize()
	}
	stmt := "TRUNCATE " + strings.Join(quoted, ", ")

	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, stmt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reset %s: %w", strings.Join(tables, ", "), err)
	}
	return tables, nil
}

// ResetTables lists what Reset truncates: registered tables in reverse load
// order, then sync_runs.
func ResetTables(withHistory bool) []string {
	var tables []string
	for _, def := range core.All() {
		tables = append(tables, def.Info.Key)
	}
	slices.Reverse(tables)
	if withHistory {
		tables = append(tables, "sync_runs")
	}
	return tables
}
