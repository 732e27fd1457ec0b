package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/combokiosk/internal/combo"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"contract error", fmt.Errorf("transform: %w", &combo.ContractError{Row: 3, Field: "ComboKey", Err: combo.ErrMissingKey}), "SRC001"},
		{"missing column", errors.New("missing required columns: ComboKey"), "SRC002"},
		{"no header row", errors.New("column not found: header row"), "SRC002"},
		{"empty source", ErrEmptySource, "SRC003"},
		{"bad csv", errors.New("invalid csv: record on line 3: wrong number of fields"), "SRC004"},
		{"missing file", errors.New("open combos.csv: no such file or directory"), "SRC006"},
		{"sync in progress", fmt.Errorf("sync: %w", ErrSyncInProgress), "SYNC001"},
		{"cancelled", fmt.Errorf("load: %w", context.Canceled), "SYNC002"},
		{"deadline", context.DeadlineExceeded, "SYNC003"},
		{"missing table", &LoadError{Table: "combo_groups", Err: errors.New("table not found: combo_groups")}, "SYNC004"},
		{"missing column in table", &LoadError{Table: "combo_groups", Err: errors.New("column not found: combo_groups.x")}, "DB003"},
		{"partial load", &LoadError{Table: "combo_details", Chunk: 2, Committed: 2000, Err: errors.New("insert failed")}, "DB001"},
		{"failed load", &LoadError{Table: "combo_details", Err: errors.New("insert failed")}, "DB002"},
		{"connection refused", errors.New("dial tcp: connection refused"), "DB004"},
		{"bad number", &LoadError{Table: "products", Err: errors.New(`row 1 column 3: invalid number: "abc"`)}, "DB008"},
		{"unknown error", errors.New("something strange"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(ErrSyncInProgress)
	want := "Another sync is already running (Code: SYNC001). Wait for it to finish and check the run history"
	if got != want {
		t.Errorf("FormatUserError = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true, want false")
	}
	if !IsUserFacing(ErrEmptySource) {
		t.Error("IsUserFacing(ErrEmptySource) = false, want true")
	}
	if IsUserFacing(errors.New("boom")) {
		t.Error("IsUserFacing(boom) = true, want false")
	}
}
