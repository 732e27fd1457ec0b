package core

// validation.go checks source headers and cells against FieldSpecs.
//
// Header validation is strict: a missing required column fails the whole
// source. Cell validation is lenient for numbers, matching how the catalog
// export is consumed: a malformed or empty numeric cell becomes 0 and is
// reported as a warning rather than rejecting the row.

import (
	"fmt"
	"strings"
)

// HeaderIndex maps column names (lowercase) to their position in the source row.
type HeaderIndex map[string]int

// Cell returns the cleaned value of the named column, or "" when the column
// is absent or the row is short.
func (h HeaderIndex) Cell(row []string, name string) string {
	pos, ok := h[strings.ToLower(name)]
	if !ok || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}

// Has reports whether the header contains the named column.
func (h HeaderIndex) Has(name string) bool {
	_, ok := h[strings.ToLower(name)]
	return ok
}

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Row     int    // 1-based data row, 0 for header errors
	Field   string // Field/column name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	switch {
	case e.Row > 0 && e.Field != "":
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidateCell validates a single cell value against a field specification.
// Returns nil if valid, or an error describing the problem.
func ValidateCell(value string, spec FieldSpec) error {
	if value == "" {
		return nil
	}

	switch spec.Type {
	case FieldInt:
		if !ToPgNumeric(value).Valid {
			return fmt.Errorf("invalid number format")
		}
	case FieldNumeric:
		if !ToPgNumeric(value).Valid {
			return fmt.Errorf("invalid number format")
		}
	case FieldBool:
		if !ToPgBool(value).Valid {
			return fmt.Errorf("must be yes/no, true/false, or 1/0")
		}
	}
	return nil
}

// ValidateHeaders validates that all required columns exist in the source headers.
// Returns a mapping from column name to index, or an error listing missing columns.
func ValidateHeaders(headers []string, specs []FieldSpec) (HeaderIndex, error) {
	idx := MakeHeaderIndex(headers)
	var missing []string

	for _, spec := range specs {
		if spec.Required && !idx.Has(spec.Name) {
			missing = append(missing, spec.Name)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return idx, nil
}

// RowValidator checks cells of one source against its specs.
type RowValidator struct {
	specs     []FieldSpec
	headerIdx HeaderIndex
}

// NewRowValidator creates a validator for the given specs and header index.
func NewRowValidator(specs []FieldSpec, headerIdx HeaderIndex) *RowValidator {
	return &RowValidator{specs: specs, headerIdx: headerIdx}
}

// ValidateRow returns every problem in the row. rowNum is 1-based.
func (v *RowValidator) ValidateRow(rowNum int, row []string) []ValidationError {
	var errs []ValidationError
	for _, spec := range v.specs {
		raw := v.headerIdx.Cell(row, spec.Name)
		if raw == "" {
			if spec.Required && !spec.AllowEmpty {
				errs = append(errs, ValidationError{Row: rowNum, Field: spec.Name, Message: "required field is empty"})
			}
			continue
		}
		if spec.Normalizer != nil {
			raw = spec.Normalizer(raw)
		}
		if err := ValidateCell(raw, spec); err != nil {
			errs = append(errs, ValidationError{Row: rowNum, Field: spec.Name, Value: raw, Message: err.Error()})
		}
	}
	return errs
}
