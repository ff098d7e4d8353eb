package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/harufinance/repayment-ledger/internal/models"
)

// CSVWriter renders normalized records to CSV, optionally preceded by
// summary rows with the aggregate figures.
type CSVWriter struct {
	IncludeSummary bool
}

// WriteToFile writes the dashboard to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, dash *models.Dashboard) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, dash)
}

// Write renders the dashboard as CSV to the given writer.
func (w *CSVWriter) Write(out io.Writer, dash *models.Dashboard) error {
	cw := csv.NewWriter(out)
	defer cw.Flush()

	if w.IncludeSummary {
		s := dash.Stats
		cw.Write([]string{"# 총 환수요청금액", formatAmount(s.TotalLoanAmount)})
		cw.Write([]string{"# 총 상환완료금액", formatAmount(s.TotalRepaidAmount)})
		cw.Write([]string{"# 총 잔여금액", formatAmount(s.TotalRemainingAmount)})
		cw.Write([]string{"# 환수율", strconv.FormatFloat(s.RepaymentRate*100, 'f', 1, 64) + "%"})
		for _, st := range []models.Status{
			models.StatusCompleted, models.StatusNormal, models.StatusWarning,
			models.StatusOverdue, models.StatusUndetermined,
		} {
			if n := s.StatusCounts[st]; n > 0 {
				cw.Write([]string{"# " + st.Label(), strconv.Itoa(n)})
			}
		}
	}

	header := []string{"ID", "대상자", "환수요청금액", "상환완료금액", "잔여금액", "대출일", "상환예정일", "D-day", "상태", "비고"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range dash.Records {
		row := []string{
			rec.ID,
			rec.BorrowerName,
			formatAmount(rec.LoanAmount),
			formatAmount(rec.RepaidAmount),
			formatAmount(rec.RemainingAmount),
			formatDate(rec.LoanDate),
			formatDate(rec.RepaymentDate),
			formatDays(rec.DaysUntilRepayment),
			rec.Status.Label(),
			rec.Note,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return nil
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDays(d *int) string {
	if d == nil {
		return ""
	}
	return strconv.Itoa(*d)
}
