// Package core provides the catalog sync pipeline.
//
// # Error Codes Reference
//
// This file maps technical sync errors to operator messages with codes for
// support reference. Messages are shown on the operator endpoints and the
// combosync CLI only; ordering customers never see them.
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Missing key: a combo row has no ComboKey or ProductKey
//	         Action: Fix the export; nothing was loaded
//	SRC002 - Missing column: a required column is missing from the export
//	         Action: Check the export column headers
//	SRC003 - Empty source: the export has no rows
//	         Action: Check the export path or query
//	SRC004 - Invalid file: the file could not be parsed
//	         Action: Export again as CSV (UTF-8) or XLSX
//	SRC005 - Encoding error: the file contains undecodable bytes
//	         Action: Save the export as UTF-8
//	SRC006 - Source unreachable: the file or query could not be read
//	         Action: Check SYNC_SOURCE_PATH / SYNC_SOURCE_QUERY
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Partial load: a table was cleared and only partly reloaded
//	DB002 - Load failed: a table could not be reloaded, previous rows kept
//	DB003 - Unknown column: target table lacks a column the sync writes
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//	DB007 - Deadlock
//	DB008 - Invalid value: a value could not be converted for its column
//
// # Sync Errors (SYNC001-SYNC099)
//
//	SYNC001 - Sync in progress: another sync run holds the lock
//	SYNC002 - Sync cancelled
//	SYNC003 - Sync timed out
//	SYNC004 - Table not found: the schema has not been applied
//
// # Default Error (ERR000)
//
// Typed errors are matched first (errors.Is / errors.As), then message
// patterns case-insensitively with strings.Contains. The first match wins.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/combokiosk/internal/combo"
)

// UserMessage provides operator-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgMissingKey = UserMessage{
		Message: "A combo row is missing its ComboKey or ProductKey",
		Action:  "Fix the export; nothing was loaded",
		Code:    "SRC001",
	}
	msgPartialLoad = UserMessage{
		Message: "A table was cleared and only partly reloaded",
		Action:  "Run the sync again; the catalog is incomplete until it succeeds",
		Code:    "DB001",
	}
	msgLoadFailed = UserMessage{
		Message: "A table could not be reloaded; its previous rows were kept",
		Action:  "Check the database logs and run the sync again",
		Code:    "DB002",
	}
	msgSyncInProgress = UserMessage{
		Message: "Another sync is already running",
		Action:  "Wait for it to finish and check the run history",
		Code:    "SYNC001",
	}
	msgCancelled = UserMessage{
		Message: "Sync was cancelled",
		Action:  "Start a new sync when ready",
		Code:    "SYNC002",
	}
	msgTimedOut = UserMessage{
		Message: "Sync timed out",
		Action:  "Raise SYNC_TIMEOUT or check database load",
		Code:    "SYNC003",
	}
)

// errorPatterns maps technical error patterns (case-insensitive) to messages.
// Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "A required column is missing from the export",
			Action:  "Check the export column headers",
			Code:    "SRC002",
		},
	},
	{
		pattern: "column not found: header",
		msg: UserMessage{
			Message: "No header row with the required columns was found",
			Action:  "Check the export column headers",
			Code:    "SRC002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The export has no rows",
			Action:  "Check the export path or query",
			Code:    "SRC003",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "The export could not be parsed",
			Action:  "Export again as CSV (UTF-8) or XLSX",
			Code:    "SRC004",
		},
	},
	{
		pattern: "open workbook",
		msg: UserMessage{
			Message: "The workbook could not be opened",
			Action:  "Export again as CSV (UTF-8) or XLSX",
			Code:    "SRC004",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "The export contains characters that could not be decoded",
			Action:  "Save the export as UTF-8",
			Code:    "SRC005",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "The export file could not be found",
			Action:  "Check SYNC_SOURCE_PATH",
			Code:    "SRC006",
		},
	},
	{
		pattern: "source query",
		msg: UserMessage{
			Message: "The source query failed",
			Action:  "Check SYNC_SOURCE_QUERY against the point-of-sale database",
			Code:    "SRC006",
		},
	},
	{
		pattern: "table not found",
		msg: UserMessage{
			Message: "A catalog table does not exist",
			Action:  "Apply the database schema (combosync migrate)",
			Code:    "SYNC004",
		},
	},
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "A catalog table is missing a column",
			Action:  "Apply the latest database schema",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "A value could not be stored as a number",
			Action:  "Check numeric columns in the export",
			Code:    "DB008",
		},
	},
	{
		pattern: "invalid bool",
		msg: UserMessage{
			Message: "A value could not be stored as a yes/no flag",
			Action:  "Use yes/no, true/false, or 1/0",
			Code:    "DB008",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the application logs",
	Code:    "ERR000",
}

// MapError converts a technical error to an operator-friendly message.
// If nothing matches, a generic fallback with code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ce *combo.ContractError
	if errors.As(err, &ce) || errors.Is(err, combo.ErrMissingKey) {
		return msgMissingKey
	}
	switch {
	case errors.Is(err, ErrSyncInProgress):
		return msgSyncInProgress
	case errors.Is(err, context.Canceled):
		return msgCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimedOut
	}

	// A partly reloaded table outranks whatever caused it.
	var le *LoadError
	isLoad := errors.As(err, &le)
	if isLoad && le.Committed > 0 {
		return msgPartialLoad
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if isLoad {
		return msgLoadFailed
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether an error matches a known code rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
