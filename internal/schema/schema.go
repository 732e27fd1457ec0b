// Package schema holds the DDL of the catalog database.
//
// Every statement is idempotent (IF NOT EXISTS), so Apply is safe to run on
// each deploy.
package schema

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

//go:embed schema.sql
var ddl string

// Statements returns the DDL split into single statements, comments removed.
func Statements() []string {
	var (
		out []string
		cur strings.Builder
	)
	for _, line := range strings.Split(ddl, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			out = append(out, strings.TrimSuffix(strings.TrimSpace(cur.String()), ";"))
			cur.Reset()
		}
	}
	return out
}

// Apply creates every missing table and index in one transaction.
func Apply(ctx context.Context, db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}) error {
	return pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		for _, stmt := range Statements() {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply %q: %w", stmt[:min(len(stmt), 60)], err)
			}
		}
		return nil
	})
}
