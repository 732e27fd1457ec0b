package schema

import (
	"strings"
	"testing"

	"github.com/JonMunkholm/combokiosk/internal/core"
	_ "github.com/JonMunkholm/combokiosk/internal/core/tables"
)

func TestStatements(t *testing.T) {
	stmts := Statements()
	if len(stmts) != 9 {
		t.Fatalf("statements = %d, want 9", len(stmts))
	}
	for _, s := range stmts {
		if strings.HasSuffix(s, ";") || strings.HasPrefix(s, "--") {
			t.Errorf("statement not cleaned: %q", s)
		}
		if !strings.Contains(s, "IF NOT EXISTS") {
			t.Errorf("statement is not idempotent: %q", s)
		}
	}
}

// Every registered table and column must exist in the DDL, or the loader
// fails at sync time with "column not found".
func TestRegisteredTablesMatchDDL(t *testing.T) {
	for _, def := range core.All() {
		body := tableBody(def.Info.Key)
		if body == "" {
			t.Errorf("table %s missing from schema.sql", def.Info.Key)
			continue
		}
		for _, col := range def.Info.Columns {
			if !strings.Contains(body, "\n    "+col+" ") {
				t.Errorf("column %s.%s missing from schema.sql", def.Info.Key, col)
			}
		}
	}
}

func tableBody(table string) string {
	for _, s := range Statements() {
		if strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			return s
		}
	}
	return ""
}
