package core

// convert.go provides type conversion for source cells and loader values.
//
// Source cells arrive as strings from CSV, XLSX or a SQL export and carry the
// usual artifacts: Excel formula prefixes (="value"), thousands separators,
// currency symbols, yes/no booleans. Parse* functions turn a cell into a Go
// value and fall back to the zero value on empty or malformed input; ToPg*
// functions produce pgtype values with Valid=false instead. Coerce converts a
// loader value to the storage type the database declares for its column.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// cleanNumeric strips currency symbols and separators. When both "," and
// "." appear, the last one is the decimal separator ("1.234,56" and
// "1,234.56" are both 1234.56). A lone comma followed by one or two digits
// is a decimal comma ("12,50"); dots grouping digits in threes are
// thousands separators ("1.250.000").
func cleanNumeric(s string) string {
	s = strings.TrimSpace(s)

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	for _, sym := range []string{"$", "€", "£", "₺", "TL", "TRY"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(s)

	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case comma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-comma-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1 && groupedThousands(s, "."):
		s = strings.ReplaceAll(s, ".", "")
	}
	s = strings.ReplaceAll(s, ",", "")

	if isNegative {
		s = "-" + s
	}
	return s
}

// groupedThousands reports whether every part after the first has three digits.
func groupedThousands(s, sep string) bool {
	parts := strings.Split(s, sep)
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return parts[0] != ""
}

// ToPgNumeric converts a string to pgtype.Numeric.
// Handles currency symbols, thousands separators, and accounting format (parentheses for negative).
func ToPgNumeric(s string) pgtype.Numeric {
	s = cleanNumeric(s)
	if s == "" || !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// ToPgBool converts a string to pgtype.Bool.
// Accepts various representations: true/false, yes/no, t/f, y/n, 1/0.
func ToPgBool(s string) pgtype.Bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return pgtype.Bool{Valid: false}
	}

	switch s {
	case "true", "t", "yes", "y", "1", "evet":
		return pgtype.Bool{Bool: true, Valid: true}
	case "false", "f", "no", "n", "0", "hayir", "hayır":
		return pgtype.Bool{Bool: false, Valid: true}
	default:
		return pgtype.Bool{Valid: false}
	}
}

// ToPgUUID converts a string to pgtype.UUID.
// Returns invalid if the string is empty or not a valid UUID.
func ToPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// PgUUIDToString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// ParseInt parses an integer cell. Empty or malformed input is 0.
// Decimal input is truncated ("2.0" from spreadsheet exports is 2).
func ParseInt(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int(f)
	}
	return 0
}

// ParseDecimal parses a monetary cell. Empty or malformed input is 0.
func ParseDecimal(s string) decimal.Decimal {
	s = cleanNumeric(s)
	if s == "" || !numericRegex.MatchString(s) {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseBool parses a boolean cell. Empty or unrecognized input is false.
func ParseBool(s string) bool {
	b := ToPgBool(s)
	return b.Valid && b.Bool
}

// NumericToDecimal converts a pgtype.Numeric to decimal. NULL is 0.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

// MakeHeaderIndex creates a HeaderIndex from a source header row.
// Keys are lowercased for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

// CleanCell removes common export artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// Coerce converts a loader value to the given column storage type.
// nil stays nil (NULL). Values that cannot be represented return an error
// naming the expected type.
func Coerce(v any, ct ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch ct {
	case ColumnBool:
		return coerceBool(v)
	case ColumnInt:
		return coerceInt(v)
	case ColumnNumeric:
		return coerceNumeric(v)
	case ColumnUUID:
		return coerceUUID(v)
	default:
		return v, nil
	}
}

func coerceBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int:
		return x != 0, nil
	case int64:
		return x != 0, nil
	case string:
		b := ToPgBool(x)
		if !b.Valid {
			if strings.TrimSpace(x) == "" {
				return nil, nil
			}
			return nil, fmt.Errorf("invalid bool: %q", x)
		}
		return b.Bool, nil
	}
	return nil, fmt.Errorf("invalid bool: %T", v)
}

func coerceInt(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case decimal.Decimal:
		return x.IntPart(), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		if n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64); err == nil {
			return n, nil
		}
		d := ToPgNumeric(s)
		if !d.Valid {
			return nil, fmt.Errorf("invalid number: %q", x)
		}
		return NumericToDecimal(d).IntPart(), nil
	}
	return nil, fmt.Errorf("invalid number: %T", v)
}

func coerceNumeric(v any) (any, error) {
	var s string
	switch x := v.(type) {
	case pgtype.Numeric:
		return x, nil
	case decimal.Decimal:
		s = x.String()
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		s = x
	default:
		return nil, fmt.Errorf("invalid number: %T", v)
	}
	n := ToPgNumeric(s)
	if !n.Valid {
		return nil, fmt.Errorf("invalid number: %q", s)
	}
	return n, nil
}

func coerceUUID(v any) (any, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return pgtype.UUID{Bytes: x, Valid: true}, nil
	case pgtype.UUID:
		return x, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		u := ToPgUUID(strings.TrimSpace(x))
		if !u.Valid {
			return nil, fmt.Errorf("invalid uuid: %q", x)
		}
		return u, nil
	}
	return nil, fmt.Errorf("invalid uuid: %T", v)
}
