package pipeline

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/harufinance/repayment-ledger/internal/models"
	"github.com/harufinance/repayment-ledger/internal/normalize"
	"github.com/harufinance/repayment-ledger/internal/reader"
	"github.com/harufinance/repayment-ledger/internal/stats"
)

// Source is one of the two shapes a transport can hand us: a delimited-text
// blob, or field-maps an intermediary already structured. Both collapse into
// RawRows so the rest of the pipeline is shared.
type Source interface {
	Rows(rd *reader.Reader) []models.RawRow
	Name() string
}

// RawTextSource wraps a delimited-text export blob.
type RawTextSource struct {
	Blob string
}

func (s RawTextSource) Rows(rd *reader.Reader) []models.RawRow { return rd.Read(s.Blob) }
func (s RawTextSource) Name() string                           { return "csv" }

// PreNormalizedSource wraps field-maps from a JSON endpoint. Values are
// stringified so the normalizer sees the same shape either way; its
// canonical-key short-circuit keeps them from being re-guessed.
type PreNormalizedSource struct {
	Maps []map[string]any
}

func (s PreNormalizedSource) Name() string { return "structured" }

func (s PreNormalizedSource) Rows(_ *reader.Reader) []models.RawRow {
	rows := make([]models.RawRow, 0, len(s.Maps))
	for _, m := range s.Maps {
		values := make(map[string]string, len(m))
		cols := make([]string, 0, len(m))
		for k, v := range m {
			cols = append(cols, k)
			values[k] = Stringify(v)
		}
		rows = append(rows, models.RawRow{Columns: cols, Values: values})
	}
	return rows
}

// FieldMatrixSource wraps rows whose fields are already split, e.g. a value
// range from the Sheets API. Header discovery still applies.
type FieldMatrixSource struct {
	Fields [][]string
}

func (s FieldMatrixSource) Rows(rd *reader.Reader) []models.RawRow { return rd.ReadFields(s.Fields) }
func (s FieldMatrixSource) Name() string                           { return "sheets" }

// Stringify renders a JSON-decoded cell value the way the spreadsheet showed
// it, keeping large amounts out of exponent notation.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// Pipeline runs one full rebuild: source → raw rows → records → stats.
// Every call constructs fresh output; nothing is cached between runs.
type Pipeline struct {
	Reader *reader.Reader
	Logger *slog.Logger
	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func New() *Pipeline {
	return NewWithLogger(nil)
}

// NewWithLogger builds a Pipeline whose reader shares the given logger.
func NewWithLogger(logger *slog.Logger) *Pipeline {
	rd := reader.New()
	rd.Logger = logger
	return &Pipeline{Reader: rd, Logger: logger}
}

// Run folds the source into a Dashboard relative to a single "now".
func (p *Pipeline) Run(src Source) models.Dashboard {
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}
	// Run must not mutate shared state: handlers call it concurrently on one
	// Pipeline instance. The reader's logger is wired at construction.
	rd := p.Reader
	if rd == nil {
		rd = &reader.Reader{Delimiter: ',', Logger: p.Logger}
	}

	rows := src.Rows(rd)
	records := normalize.All(rows, now)
	if records == nil {
		records = []models.Record{}
	}
	p.log().Info("pipeline run complete",
		"source", src.Name(), "raw_rows", len(rows), "records", len(records))

	return models.Dashboard{
		Records:   records,
		Stats:     stats.Aggregate(records),
		Source:    src.Name(),
		FetchedAt: now,
	}
}

func (p *Pipeline) log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
