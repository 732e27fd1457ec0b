package core

// source.go reads point-of-sale exports into header + rows.
//
// Three kinds of source are supported:
//
//   - CSV files, decoded through golang.org/x/text so a UTF-8 or UTF-16 BOM is
//     honored and invalid bytes become U+FFFD instead of failing the parse.
//     Semicolon-delimited exports are detected from the first line.
//   - XLSX workbooks, first sheet unless one is named (excelize).
//   - A SQL query against a PostgreSQL replica of the point-of-sale database.
//
// Every source returns the same shape so parsing does not care where rows
// came from.

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxHeaderSearchRows is the maximum number of rows to scan for the header.
var MaxHeaderSearchRows = 20

// ContextCheckInterval is how often (in rows) readers check for cancellation.
var ContextCheckInterval = 500

// ErrEmptySource is returned when a source has no header row.
var ErrEmptySource = errors.New("empty file: source has no rows")

// Source yields the raw records of one export. The header row is located
// later, against the field specs of what is being parsed.
type Source interface {
	Name() string
	Records(ctx context.Context) ([][]string, error)
}

// OpenSource picks a file source by extension: .xlsx/.xlsm are workbooks,
// everything else is read as CSV.
func OpenSource(path string) Source {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return &XLSXSource{Path: path}
	default:
		return &CSVSource{Path: path}
	}
}

// ReaderSource is OpenSource for an upload: name picks the format and is
// reported as the source name, r supplies the bytes.
func ReaderSource(name string, r io.Reader) Source {
	switch src := OpenSource(name).(type) {
	case *XLSXSource:
		src.Reader = r
		return src
	case *CSVSource:
		src.Reader = r
		return src
	default:
		return src
	}
}

// CSVSource reads a delimited text export from Path, or from Reader when set.
type CSVSource struct {
	Path   string
	Reader io.Reader
}

func (s *CSVSource) Name() string {
	if s.Path != "" {
		return s.Path
	}
	return "csv"
}

// Records implements Source.
func (s *CSVSource) Records(ctx context.Context) ([][]string, error) {
	r := s.Reader
	if r == nil {
		f, err := os.Open(s.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", s.Path, err)
		}
		defer f.Close()
		r = f
	}
	return readCSV(ctx, r)
}

// NewDecodingReader wraps r so a leading BOM selects the encoding (UTF-8
// when absent) and invalid sequences are replaced rather than rejected.
func NewDecodingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

func readCSV(ctx context.Context, r io.Reader) ([][]string, error) {
	br := bufio.NewReader(NewDecodingReader(r))

	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(first)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	var records [][]string
	for i := 0; ; i++ {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// sniffDelimiter returns ';' or '\t' when the first line uses it more often
// than commas.
func sniffDelimiter(head []byte) rune {
	line := string(head)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	best, bestN := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// XLSXSource reads one sheet of a workbook from Path, or from Reader when set.
// Sheet defaults to the first sheet.
type XLSXSource struct {
	Path   string
	Reader io.Reader
	Sheet  string
}

func (s *XLSXSource) Name() string {
	if s.Path != "" {
		return s.Path
	}
	return "xlsx"
}

// Records implements Source.
func (s *XLSXSource) Records(ctx context.Context) ([][]string, error) {
	var (
		f   *excelize.File
		err error
	)
	if s.Reader != nil {
		f, err = excelize.OpenReader(s.Reader)
	} else {
		f, err = excelize.OpenFile(s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.Name(), err)
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptySource
		}
		sheet = sheets[0]
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// QuerySource runs SQL against a database and uses the result column names
// as the header row.
type QuerySource struct {
	DB   DBTX
	SQL  string
	Args []any
}

func (s *QuerySource) Name() string { return "query" }

// Records implements Source.
func (s *QuerySource) Records(ctx context.Context) ([][]string, error) {
	rows, err := s.DB.Query(ctx, s.SQL, s.Args...)
	if err != nil {
		return nil, fmt.Errorf("source query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}
	records := [][]string{header}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("source query: %w", err)
		}
		rec := make([]string, len(vals))
		for i, v := range vals {
			rec[i] = cellString(v)
		}
		records = append(records, rec)
		if len(records)%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source query: %w", err)
	}
	return records, nil
}

// cellString renders a database value the way a CSV export would.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case pgtype.Numeric:
		return NumericToDecimal(x).String()
	case [16]byte:
		return PgUUIDToString(pgtype.UUID{Bytes: x, Valid: true})
	case time.Time:
		return x.Format(time.RFC3339)
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}

// locateHeader returns the index of the first row, within the first
// MaxHeaderSearchRows, that contains every required column of specs.
func locateHeader(records [][]string, specs []FieldSpec) int {
	limit := MaxHeaderSearchRows
	if len(records) < limit {
		limit = len(records)
	}
	for i := 0; i < limit; i++ {
		idx := MakeHeaderIndex(records[i])
		ok := true
		for _, s := range specs {
			if s.Required && !idx.Has(s.Name) {
				ok = false
				break
			}
		}
		if ok {
			return i
		}
	}
	return -1
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
