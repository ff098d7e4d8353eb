package reader

import (
	"log/slog"
	"strings"

	"github.com/harufinance/repayment-ledger/internal/models"
)

// Reader turns a delimited-text spreadsheet export into RawRows. It carries
// no state between calls; the same blob always yields the same rows.
type Reader struct {
	Delimiter rune
	Logger    *slog.Logger
}

// New returns a Reader with the default comma delimiter.
func New() *Reader {
	return &Reader{Delimiter: ','}
}

// headerScanLimit bounds how far down the blob we look for a header line.
// Real exports bury the header under merged title/KPI rows, but never deep.
const headerScanLimit = 10

// headerKeywords mark identity/amount columns. A candidate header line must
// contain at least one of these in some field.
var headerKeywords = []string{
	"NO", "ID", "번호", "대상자", "차용자", "이름", "금액", "환수", "요청",
}

// Read parses the blob into one RawRow per data line after the discovered
// header. Blank lines and lines with an empty first field are skipped.
func (r *Reader) Read(blob string) []models.RawRow {
	lines := splitLines(blob)
	matrix := make([][]string, len(lines))
	for i, line := range lines {
		matrix[i] = r.SplitLine(line)
	}
	return r.ReadFields(matrix)
}

// ReadFields runs header discovery and row extraction over already-split
// field rows, e.g. a value range fetched from the Sheets API.
func (r *Reader) ReadFields(matrix [][]string) []models.RawRow {
	if len(matrix) < 2 {
		r.log().Warn("source too short to contain data", "lines", len(matrix))
		return nil
	}

	headerIdx, headers := r.findHeader(matrix)

	var rows []models.RawRow
	for _, fields := range matrix[headerIdx+1:] {
		if len(fields) == 0 || strings.TrimSpace(fields[0]) == "" {
			continue
		}
		values := make(map[string]string, len(headers))
		cols := make([]string, 0, len(headers))
		for i, h := range headers {
			h = strings.TrimSpace(h)
			if h == "" {
				continue
			}
			cols = append(cols, h)
			if i < len(fields) {
				values[h] = strings.TrimSpace(fields[i])
			} else {
				values[h] = ""
			}
		}
		rows = append(rows, models.RawRow{Columns: cols, Values: values})
	}
	return rows
}

// findHeader scans the first rows for one that looks like a column header:
// more than 3 fields, at least one of them naming an identity/amount column.
// This is a heuristic; when nothing qualifies, row 0 is used unconditionally.
func (r *Reader) findHeader(matrix [][]string) (int, []string) {
	limit := headerScanLimit
	if len(matrix) < limit {
		limit = len(matrix)
	}
	for i := 0; i < limit; i++ {
		if len(matrix[i]) > 3 && containsHeaderKeyword(matrix[i]) {
			return i, matrix[i]
		}
	}
	r.log().Warn("no header line found, falling back to first line")
	return 0, matrix[0]
}

func containsHeaderKeyword(fields []string) bool {
	for _, f := range fields {
		upper := strings.ToUpper(f)
		for _, kw := range headerKeywords {
			if strings.Contains(upper, kw) {
				return true
			}
		}
	}
	return false
}

// SplitLine splits one line on the delimiter, honoring double-quote quoting.
// A doubled quote inside a quoted field is a literal quote; a delimiter
// inside quotes does not end the field. An unterminated quote consumes the
// rest of the line rather than failing. Fields are trimmed.
func (r *Reader) SplitLine(line string) []string {
	delim := r.Delimiter
	if delim == 0 {
		delim = ','
	}

	var fields []string
	var cur strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == delim && !inQuotes:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	fields = append(fields, strings.TrimSpace(cur.String()))
	return fields
}

func splitLines(blob string) []string {
	var lines []string
	for _, line := range strings.Split(blob, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func (r *Reader) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
