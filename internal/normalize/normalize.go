package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/harufinance/repayment-ledger/internal/models"
)

// Candidate column names per semantic field, in priority order. Source
// spreadsheets never agree on a schema; the first candidate present with a
// non-blank value wins.
var (
	idCandidates        = []string{"ID", "id", "NO", "no", "번호", "관리번호"}
	nameCandidates      = []string{"대상자", "차용자", "이름", "성명", "name"}
	loanCandidates      = []string{"환수요청금액", "대출금액", "원금", "금액", "requestAmount"}
	remainingCandidates = []string{"잔여금액", "잔액", "남은금액", "미상환금액"}
	repaidCandidates    = []string{"상환완료금액", "상환금액", "상환액"}
	loanDateCandidates  = []string{"대출일", "대출일자", "계약일자", "계약일"}
	dueDateCandidates   = []string{"상환예정일", "상환기한", "만기일", "상환일"}
	noteCandidates      = []string{"비고", "메모", "특이사항"}
)

// canonicalKey is the discriminator: a field-map carrying it has already been
// normalized by an upstream service, so column guessing is skipped and values
// are only re-typed.
const canonicalKey = "borrowerName"

// warningWindowDays is the due-date horizon inside which a record with an
// outstanding balance is flagged Warning rather than Normal.
const warningWindowDays = 7

// All normalizes every raw row against the same "now", then applies the
// noise-row policy. Row order is preserved.
func All(rows []models.RawRow, now time.Time) []models.Record {
	records := make([]models.Record, 0, len(rows))
	for i, row := range rows {
		rec := One(row, i, now)
		if IsNoiseRow(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// One maps a single raw row to a Record. index is the row's zero-based
// position, used only for fallback identity. Rows that already carry the
// canonical shape take the short-circuit path.
func One(row models.RawRow, index int, now time.Time) models.Record {
	if IsCanonical(row) {
		return fromCanonical(row, index, now)
	}
	return fromRaw(row, index, now)
}

// IsCanonical reports whether a field-map was produced by an upstream
// normalizer and should bypass column guessing.
func IsCanonical(row models.RawRow) bool {
	_, ok := row.Values[canonicalKey]
	return ok
}

func fromRaw(row models.RawRow, index int, now time.Time) models.Record {
	rec := models.Record{Original: row}

	if v, ok := resolve(row, idCandidates); ok {
		rec.ID = v
	} else {
		rec.ID = fmt.Sprintf("record_%d", index+1)
	}
	if v, ok := resolve(row, nameCandidates); ok {
		rec.BorrowerName = v
	} else {
		rec.BorrowerName = fmt.Sprintf("대상자%d", index+1)
		rec.NameFallback = true
	}

	rec.LoanAmount = 0
	if v, ok := resolve(row, loanCandidates); ok {
		rec.LoanAmount = ParseAmount(v)
	}

	remaining, hasRemaining := resolve(row, remainingCandidates)
	repaid, hasRepaid := resolve(row, repaidCandidates)
	switch {
	case hasRemaining && hasRepaid:
		rec.RemainingAmount = ParseAmount(remaining)
		rec.RepaidAmount = ParseAmount(repaid)
	case hasRemaining:
		rec.RemainingAmount = ParseAmount(remaining)
		rec.RepaidAmount = math.Max(0, rec.LoanAmount-rec.RemainingAmount)
	case hasRepaid:
		rec.RepaidAmount = ParseAmount(repaid)
		rec.RemainingAmount = math.Max(0, rec.LoanAmount-rec.RepaidAmount)
	default:
		rec.RemainingAmount = rec.LoanAmount
	}
	rec.RemainingAmount = math.Max(0, rec.RemainingAmount)

	if v, ok := resolve(row, loanDateCandidates); ok {
		rec.LoanDate = ParseDate(v)
	}
	if v, ok := resolve(row, dueDateCandidates); ok {
		rec.RepaymentDate = ParseDate(v)
	}
	if v, ok := resolve(row, noteCandidates); ok {
		rec.Note = v
	}

	rec.Status, rec.DaysUntilRepayment = DeriveStatus(rec.RemainingAmount, rec.RepaymentDate, now)
	return rec
}

// fromCanonical re-types an already-normalized field-map. Amounts and dates
// pass through coercion only; status and day counts are still recomputed so
// they can never go stale.
func fromCanonical(row models.RawRow, index int, now time.Time) models.Record {
	rec := models.Record{Original: row}

	rec.ID = strings.TrimSpace(row.Get("id"))
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("record_%d", index+1)
	}
	rec.BorrowerName = strings.TrimSpace(row.Get(canonicalKey))
	if rec.BorrowerName == "" {
		rec.BorrowerName = fmt.Sprintf("대상자%d", index+1)
		rec.NameFallback = true
	}

	rec.LoanAmount = ParseAmount(row.Get("loanAmount"))
	if v := strings.TrimSpace(row.Get("remainingAmount")); v != "" {
		rec.RemainingAmount = ParseAmount(v)
	} else {
		rec.RemainingAmount = math.Max(0, rec.LoanAmount-ParseAmount(row.Get("repaidAmount")))
	}
	rec.RemainingAmount = math.Max(0, rec.RemainingAmount)
	if v := strings.TrimSpace(row.Get("repaidAmount")); v != "" {
		rec.RepaidAmount = ParseAmount(v)
	} else {
		rec.RepaidAmount = math.Max(0, rec.LoanAmount-rec.RemainingAmount)
	}

	rec.LoanDate = ParseDate(row.Get("loanDate"))
	rec.RepaymentDate = ParseDate(row.Get("repaymentDate"))
	rec.Note = row.Get("note")

	rec.Status, rec.DaysUntilRepayment = DeriveStatus(rec.RemainingAmount, rec.RepaymentDate, now)
	return rec
}

// resolve returns the first candidate column present with a non-blank value.
func resolve(row models.RawRow, candidates []string) (string, bool) {
	for _, c := range candidates {
		if v, ok := row.Values[c]; ok {
			v = strings.TrimSpace(v)
			if v != "" {
				return v, true
			}
		}
	}
	return "", false
}

var nonNumeric = regexp.MustCompile(`[^\d.\-]`)

// ParseAmount coerces strings like "1,234,567원" or "₩5,000,000" to a number.
// Anything unparsable is 0.
func ParseAmount(s string) float64 {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// dateLayouts are tried in order; the tail entries are the generic fallback.
var dateLayouts = []string{
	"2006-01-02",
	"2006.01.02",
	"2006/01/02",
	"01/02/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006년 1월 2일",
}

// ParseDate coerces a cell to a calendar date, or nil when nothing matches.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}

// DeriveStatus classifies a record from its outstanding balance and due date.
// The day count d = ceil((due - now) / 24h) splits into Overdue (d < 0),
// Warning (0 <= d <= 7) and Normal (d > 7); a settled balance always wins.
func DeriveStatus(remaining float64, due *time.Time, now time.Time) (models.Status, *int) {
	var days *int
	if due != nil {
		d := daysUntil(*due, now)
		days = &d
	}

	if remaining <= 0 {
		return models.StatusCompleted, days
	}
	if due == nil {
		return models.StatusUndetermined, nil
	}
	switch d := *days; {
	case d < 0:
		return models.StatusOverdue, days
	case d <= warningWindowDays:
		return models.StatusWarning, days
	default:
		return models.StatusNormal, days
	}
}

func daysUntil(due, now time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}

// IsNoiseRow is the filter that drops rows which carry no usable identity and
// no money: the name is still the synthesized placeholder and both amounts
// are zero. A sheet cell that literally reads "대상자3" is a real name, not a
// placeholder, and is kept. This is a heuristic: a genuinely nameless
// zero-balance row would be discarded too.
func IsNoiseRow(rec models.Record) bool {
	return rec.NameFallback && rec.LoanAmount == 0 && rec.RemainingAmount == 0
}
