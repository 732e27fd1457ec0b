package core

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ----------------------------------------------------------------------------
// ToPgNumeric Tests
// ----------------------------------------------------------------------------

func TestToPgNumeric(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantValue string // String representation of expected numeric value
	}{
		{name: "positive integer", input: "123", wantValid: true, wantValue: "123"},
		{name: "zero", input: "0", wantValid: true, wantValue: "0"},
		{name: "negative integer", input: "-456", wantValid: true, wantValue: "-456"},
		{name: "decimal number", input: "123.45", wantValid: true, wantValue: "123.45"},

		// Currency and separators
		{name: "dollar with thousands", input: "$1,234.56", wantValid: true, wantValue: "1234.56"},
		{name: "lira symbol", input: "₺45", wantValid: true, wantValue: "45"},
		{name: "TL suffix", input: "45,50 TL", wantValid: true, wantValue: "45.5"},
		{name: "decimal comma", input: "12,50", wantValid: true, wantValue: "12.5"},
		{name: "thousands comma", input: "1,234", wantValid: true, wantValue: "1234"},
		{name: "turkish thousands and decimal", input: "1.234,56", wantValid: true, wantValue: "1234.56"},
		{name: "lira turkish format", input: "₺1.250,00", wantValid: true, wantValue: "1250"},
		{name: "turkish millions", input: "1.250.000,5 TL", wantValid: true, wantValue: "1250000.5"},
		{name: "dot thousands only", input: "1.250.000", wantValid: true, wantValue: "1250000"},
		{name: "english millions", input: "1,250,000.75", wantValid: true, wantValue: "1250000.75"},
		{name: "accounting negative", input: "(100)", wantValid: true, wantValue: "-100"},
		{name: "surrounding whitespace", input: "  7.5  ", wantValid: true, wantValue: "7.5"},

		// Invalid
		{name: "empty", input: "", wantValid: false},
		{name: "whitespace only", input: "   ", wantValid: false},
		{name: "letters", input: "abc", wantValid: false},
		{name: "mixed", input: "12abc", wantValid: false},
		{name: "two dots", input: "1.2.3", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPgNumeric(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("ToPgNumeric(%q).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
			if !tt.wantValid {
				return
			}
			if s := NumericToDecimal(got).String(); s != tt.wantValue {
				t.Errorf("ToPgNumeric(%q) = %s, want %s", tt.input, s, tt.wantValue)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Cell Parsing Tests
// ----------------------------------------------------------------------------

func TestParseInt(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"3", 3},
		{" 7 ", 7},
		{"1,000", 1000},
		{"2.0", 2},
		{"-1", -1},
		{"", 0},
		{"two", 0},
		{"NaN", 0},
	}

	for _, tt := range tests {
		if got := ParseInt(tt.input); got != tt.want {
			t.Errorf("ParseInt(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"10", "10"},
		{"12,50 TL", "12.5"},
		{"€3.20", "3.2"},
		{"1.234,56", "1234.56"},
		{"₺1.250,00", "1250"},
		{"", "0"},
		{"n/a", "0"},
	}

	for _, tt := range tests {
		got := ParseDecimal(tt.input)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseDecimal(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"Evet", true},
		{"false", false},
		{"0", false},
		{"Hayır", false},
		{"", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		if got := ParseBool(tt.input); got != tt.want {
			t.Errorf("ParseBool(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestToPgBool_Invalid(t *testing.T) {
	for _, s := range []string{"", "maybe", "2"} {
		if ToPgBool(s).Valid {
			t.Errorf("ToPgBool(%q).Valid = true, want false", s)
		}
	}
}

func TestPgUUIDRoundTrip(t *testing.T) {
	id := uuid.NewString()
	if got := PgUUIDToString(ToPgUUID(id)); got != id {
		t.Errorf("round trip = %q, want %q", got, id)
	}
	if ToPgUUID("not-a-uuid").Valid {
		t.Error("ToPgUUID(not-a-uuid).Valid = true, want false")
	}
	if got := PgUUIDToString(pgtype.UUID{}); got != "" {
		t.Errorf("PgUUIDToString(invalid) = %q, want empty", got)
	}
}

func TestNumericToDecimal_Null(t *testing.T) {
	if got := NumericToDecimal(pgtype.Numeric{}); !got.IsZero() {
		t.Errorf("NumericToDecimal(NULL) = %s, want 0", got)
	}
}

// ----------------------------------------------------------------------------
// Header Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`="00123"`, "00123"},
		{"=5", "5"},
		{` 'abc' `, "abc"},
		{`"quoted"`, "quoted"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := CleanCell(tt.input); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestMakeHeaderIndex(t *testing.T) {
	idx := MakeHeaderIndex([]string{"ComboKey", ` ="GroupName" `, "ProductKey", "comboKey"})

	if pos := idx["combokey"]; pos != 0 {
		t.Errorf("combokey = %d, want 0 (first occurrence wins)", pos)
	}
	if !idx.Has("GROUPNAME") {
		t.Error("Has(GROUPNAME) = false, want true")
	}
	if got := idx.Cell([]string{"C1", "Drinks"}, "ProductKey"); got != "" {
		t.Errorf("Cell on short row = %q, want empty", got)
	}
	if got := idx.Cell([]string{"C1", " Drinks "}, "GroupName"); got != "Drinks" {
		t.Errorf("Cell = %q, want Drinks", got)
	}
}

// ----------------------------------------------------------------------------
// Coerce Tests
// ----------------------------------------------------------------------------

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		ct      ColumnType
		want    any
		wantErr bool
	}{
		{name: "nil stays nil", value: nil, ct: ColumnInt, want: nil},
		{name: "passthrough", value: "x", ct: ColumnPassthrough, want: "x"},
		{name: "int from int", value: 7, ct: ColumnInt, want: int64(7)},
		{name: "int from string", value: "12", ct: ColumnInt, want: int64(12)},
		{name: "int from decimal string", value: "12.7", ct: ColumnInt, want: int64(12)},
		{name: "int from bool", value: true, ct: ColumnInt, want: int64(1)},
		{name: "empty string int is null", value: " ", ct: ColumnInt, want: nil},
		{name: "bad int", value: "twelve", ct: ColumnInt, wantErr: true},
		{name: "bool from string", value: "yes", ct: ColumnBool, want: true},
		{name: "bool from int", value: 0, ct: ColumnBool, want: false},
		{name: "bad bool", value: "perhaps", ct: ColumnBool, wantErr: true},
		{name: "bad uuid", value: "not-a-uuid", ct: ColumnUUID, wantErr: true},
		{name: "bad numeric type", value: struct{}{}, ct: ColumnNumeric, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.value, tt.ct)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Coerce(%v, %v) error = nil, want error", tt.value, tt.ct)
				}
				return
			}
			if err != nil {
				t.Fatalf("Coerce(%v, %v) unexpected error: %v", tt.value, tt.ct, err)
			}
			if got != tt.want {
				t.Errorf("Coerce(%v, %v) = %#v, want %#v", tt.value, tt.ct, got, tt.want)
			}
		})
	}
}

func TestCoerce_Numeric(t *testing.T) {
	for _, v := range []any{decimal.RequireFromString("10.5"), "10.50", 10.5} {
		got, err := Coerce(v, ColumnNumeric)
		if err != nil {
			t.Fatalf("Coerce(%v) error: %v", v, err)
		}
		n, ok := got.(pgtype.Numeric)
		if !ok {
			t.Fatalf("Coerce(%v) = %T, want pgtype.Numeric", v, got)
		}
		if d := NumericToDecimal(n); !d.Equal(decimal.RequireFromString("10.5")) {
			t.Errorf("Coerce(%v) = %s, want 10.5", v, d)
		}
	}
}

func TestCoerce_UUID(t *testing.T) {
	id := uuid.New()
	got, err := Coerce(id.String(), ColumnUUID)
	if err != nil {
		t.Fatalf("Coerce uuid: %v", err)
	}
	u, ok := got.(pgtype.UUID)
	if !ok || !u.Valid || uuid.UUID(u.Bytes) != id {
		t.Errorf("Coerce uuid = %#v, want %s", got, id)
	}
}
