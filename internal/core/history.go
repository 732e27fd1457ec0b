package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultHistoryLimit is how many runs RecentRuns returns when asked for 0.
const DefaultHistoryLimit = 20

// RunFilter narrows a history listing. Zero fields match everything.
type RunFilter struct {
	Trigger    string
	Since      time.Time
	FailedOnly bool
	Limit      int
}

// RunStore persists sync run history.
type RunStore interface {
	RecordRun(ctx context.Context, r SyncResult) error
	RecentRuns(ctx context.Context, f RunFilter) ([]SyncResult, error)
}

// PgRunStore keeps run history in the sync_runs table.
type PgRunStore struct {
	DB DBTX
}

// RecordRun implements RunStore.
func (s PgRunStore) RecordRun(ctx context.Context, r SyncResult) error {
	tables, err := json.Marshal(r.Tables)
	if err != nil {
		return fmt.Errorf("encode tables: %w", err)
	}
	warnings, err := json.Marshal(r.Warnings)
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}

	_, err = s.DB.Exec(ctx, `
		INSERT INTO sync_runs (id, trigger, source, started_at, duration_ms, total_rows, tables, warnings, error, code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ToPgUUID(r.RunID), r.Trigger, r.Source, r.StartedAt, r.Duration.Milliseconds(), r.Total(),
		tables, warnings, ToPgText(r.Error), ToPgText(r.Code),
	)
	if err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}
	return nil
}

// RecentRuns implements RunStore, newest first.
func (s PgRunStore) RecentRuns(ctx context.Context, f RunFilter) ([]SyncResult, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultHistoryLimit
	}

	wb := NewWhereBuilder()
	wb.Add("trigger", f.Trigger)
	wb.AddTimestampRange("started_at", f.Since, time.Time{})
	wb.AddNotNull("error", f.FailedOnly)
	where, args := wb.Build()

	query := `SELECT id, trigger, source, started_at, duration_ms, tables, warnings, error, code
		FROM sync_runs` + where + fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", wb.NextArgIndex())
	args = append(args, f.Limit)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	defer rows.Close()

	var out []SyncResult
	for rows.Next() {
		var (
			id         pgtype.UUID
			r          SyncResult
			durationMs int64
			tables     []byte
			warnings   []byte
			errText    pgtype.Text
			code       pgtype.Text
		)
		if err := rows.Scan(&id, &r.Trigger, &r.Source, &r.StartedAt, &durationMs, &tables, &warnings, &errText, &code); err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		r.RunID = PgUUIDToString(id)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.Error = errText.String
		r.Code = code.String
		if len(tables) > 0 {
			if err := json.Unmarshal(tables, &r.Tables); err != nil {
				return nil, fmt.Errorf("decode tables of run %s: %w", r.RunID, err)
			}
		}
		if len(warnings) > 0 {
			if err := json.Unmarshal(warnings, &r.Warnings); err != nil {
				return nil, fmt.Errorf("decode warnings of run %s: %w", r.RunID, err)
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	return out, nil
}
