package normalize

import (
	"strconv"
	"testing"
	"time"

	"github.com/harufinance/repayment-ledger/internal/models"
)

// Fixed "now" for every derivation test: 2024-06-15 00:00 UTC.
var now = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func rawRow(values map[string]string) models.RawRow {
	return models.RawRow{Values: values}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"1000000", 1000000},
		{"1,234,567원", 1234567},
		{"₩5,000,000", 5000000},
		{"1234.56", 1234.56},
		{"-500", -500},
		{"", 0},
		{"미정", 0},
		{"  3,000 원 ", 3000},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseAmount(tt.input); got != tt.expected {
				t.Errorf("ParseAmount(%q): got %f, want %f", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		input string
		match bool
	}{
		{"2024-01-15", true},
		{"2024.01.15", true},
		{"2024/01/15", true},
		{"01/15/2024", true},
		{"2024년 1월 15일", true},
		{"", false},
		{"-", false},
		{"내일", false},
		{"15일", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseDate(tt.input)
			if !tt.match {
				if got != nil {
					t.Errorf("ParseDate(%q): expected nil, got %v", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParseDate(%q): expected a date, got nil", tt.input)
			}
			if !got.Equal(want) {
				t.Errorf("ParseDate(%q): got %v, want %v", tt.input, got, want)
			}
		})
	}
}

// The three date-driven statuses must partition every integer day count with
// no gap or overlap.
func TestDeriveStatusPartition(t *testing.T) {
	for d := -30; d <= 30; d++ {
		due := now.AddDate(0, 0, d)
		status, days := DeriveStatus(1000, &due, now)

		if days == nil || *days != d {
			t.Fatalf("d=%d: expected day count %d, got %v", d, d, days)
		}

		var want models.Status
		switch {
		case d < 0:
			want = models.StatusOverdue
		case d <= 7:
			want = models.StatusWarning
		default:
			want = models.StatusNormal
		}
		if status != want {
			t.Errorf("d=%d: got %s, want %s", d, status, want)
		}
	}
}

func TestDeriveStatus(t *testing.T) {
	due3 := now.AddDate(0, 0, 3)
	duePast := now.AddDate(0, 0, -10)

	tests := []struct {
		name       string
		remaining  float64
		due        *time.Time
		wantStatus models.Status
		wantDays   *int
	}{
		{"warning inside window", 500000, &due3, models.StatusWarning, intPtr(3)},
		{"completed overrides date", 0, &duePast, models.StatusCompleted, intPtr(-10)},
		{"completed without date", 0, nil, models.StatusCompleted, nil},
		{"undetermined without date", 100, nil, models.StatusUndetermined, nil},
		{"negative remaining is completed", -50, &due3, models.StatusCompleted, intPtr(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, days := DeriveStatus(tt.remaining, tt.due, now)
			if status != tt.wantStatus {
				t.Errorf("status: got %s, want %s", status, tt.wantStatus)
			}
			if (days == nil) != (tt.wantDays == nil) {
				t.Fatalf("days: got %v, want %v", days, tt.wantDays)
			}
			if days != nil && *days != *tt.wantDays {
				t.Errorf("days: got %d, want %d", *days, *tt.wantDays)
			}
		})
	}
}

func TestOneResolvesCandidates(t *testing.T) {
	rec := One(rawRow(map[string]string{
		"NO":     "7",
		"차용자":    "김철수",
		"환수요청금액": "5,000,000원",
		"상환완료금액": "1,500,000",
		"상환예정일":  "2024.06.18",
		"비고":     "분할 납부",
	}), 0, now)

	if rec.ID != "7" {
		t.Errorf("ID: got %q, want 7", rec.ID)
	}
	if rec.BorrowerName != "김철수" {
		t.Errorf("name: got %q", rec.BorrowerName)
	}
	if rec.LoanAmount != 5000000 {
		t.Errorf("loan: got %f", rec.LoanAmount)
	}
	if rec.RepaidAmount != 1500000 {
		t.Errorf("repaid: got %f", rec.RepaidAmount)
	}
	// remaining derived from loan - repaid
	if rec.RemainingAmount != 3500000 {
		t.Errorf("remaining: got %f", rec.RemainingAmount)
	}
	if rec.Status != models.StatusWarning {
		t.Errorf("status: got %s, want warning", rec.Status)
	}
	if rec.DaysUntilRepayment == nil || *rec.DaysUntilRepayment != 3 {
		t.Errorf("days: got %v, want 3", rec.DaysUntilRepayment)
	}
	if rec.Note != "분할 납부" {
		t.Errorf("note: got %q", rec.Note)
	}
	if rec.Original.Get("차용자") != "김철수" {
		t.Error("original raw row not retained")
	}
}

func TestOneDerivesRepaidFromRemaining(t *testing.T) {
	rec := One(rawRow(map[string]string{
		"ID":     "1",
		"대상자":    "이영희",
		"금액":     "3000000",
		"잔여금액":   "1000000",
	}), 0, now)

	if rec.RemainingAmount != 1000000 {
		t.Errorf("remaining: got %f", rec.RemainingAmount)
	}
	if rec.RepaidAmount != 2000000 {
		t.Errorf("repaid: got %f, want loan-remaining", rec.RepaidAmount)
	}
}

func TestOneFallbackIdentity(t *testing.T) {
	rec := One(rawRow(map[string]string{
		"알수없는열": "값",
		"금액":    "1000",
	}), 4, now)

	if rec.ID != "record_5" {
		t.Errorf("ID: got %q, want record_5", rec.ID)
	}
	if rec.BorrowerName != "대상자5" {
		t.Errorf("name: got %q, want 대상자5", rec.BorrowerName)
	}
}

func TestAllDropsNoiseRows(t *testing.T) {
	rows := []models.RawRow{
		// no name, no amounts: noise
		rawRow(map[string]string{"비고": "합계 행"}),
		// real name with zero amounts: kept
		rawRow(map[string]string{"NO": "2", "대상자": "이영희", "금액": "0"}),
		// no name but has money: kept
		rawRow(map[string]string{"금액": "1000000"}),
		// sheet name that happens to match this row's placeholder, zero
		// amounts: still a real name, kept
		rawRow(map[string]string{"NO": "4", "대상자": "대상자4", "금액": "0"}),
	}

	records := All(rows, now)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].BorrowerName != "이영희" {
		t.Errorf("first kept record: got %q", records[0].BorrowerName)
	}
	if records[1].LoanAmount != 1000000 {
		t.Errorf("second kept record loan: got %f", records[1].LoanAmount)
	}
	if records[2].BorrowerName != "대상자4" {
		t.Errorf("third kept record: got %q", records[2].BorrowerName)
	}
}

func TestIsNoiseRow(t *testing.T) {
	tests := []struct {
		name     string
		rec      models.Record
		expected bool
	}{
		{"synthesized name and zero", models.Record{BorrowerName: "대상자3", NameFallback: true}, true},
		{"synthesized name with loan", models.Record{BorrowerName: "대상자3", NameFallback: true, LoanAmount: 1}, false},
		{"synthesized name with remaining", models.Record{BorrowerName: "대상자3", NameFallback: true, RemainingAmount: 1}, false},
		{"real name zero amounts", models.Record{BorrowerName: "이영희"}, false},
		{"placeholder-looking sheet name", models.Record{BorrowerName: "대상자3"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNoiseRow(tt.rec); got != tt.expected {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestShortCircuitSkipsColumnGuessing(t *testing.T) {
	// A canonical map whose extra columns would mislead the raw path.
	rec := One(rawRow(map[string]string{
		"borrowerName":    "박민수",
		"id":              "42",
		"loanAmount":      "8000000",
		"remainingAmount": "2000000",
		"repaidAmount":    "6000000",
		"loanDate":        "2023-06-10",
		"repaymentDate":   "2024-06-30",
		"note":            "정기 상환",
		"대상자":             "무시할 이름",
	}), 0, now)

	if rec.BorrowerName != "박민수" {
		t.Errorf("name: got %q, want canonical value", rec.BorrowerName)
	}
	if rec.LoanAmount != 8000000 || rec.RemainingAmount != 2000000 || rec.RepaidAmount != 6000000 {
		t.Errorf("amounts not passed through: %f %f %f",
			rec.LoanAmount, rec.RemainingAmount, rec.RepaidAmount)
	}
	if rec.Status != models.StatusNormal {
		t.Errorf("status: got %s, want normal (15 days out)", rec.Status)
	}
}

// Normalizing a record's own canonical form must reproduce the record.
func TestShortCircuitIdempotence(t *testing.T) {
	first := One(rawRow(map[string]string{
		"NO":     "3",
		"대상자":    "김철수",
		"환수요청금액": "5,000,000",
		"상환완료금액": "2,000,000",
		"대출일":    "2023-01-10",
		"상환예정일":  "2024-07-01",
		"비고":     "비고란",
	}), 0, now)

	canonical := rawRow(map[string]string{
		"id":              first.ID,
		"borrowerName":    first.BorrowerName,
		"loanAmount":      strconv.FormatFloat(first.LoanAmount, 'f', -1, 64),
		"remainingAmount": strconv.FormatFloat(first.RemainingAmount, 'f', -1, 64),
		"repaidAmount":    strconv.FormatFloat(first.RepaidAmount, 'f', -1, 64),
		"loanDate":        first.LoanDate.Format("2006-01-02"),
		"repaymentDate":   first.RepaymentDate.Format("2006-01-02"),
		"note":            first.Note,
	})

	second := One(canonical, 0, now)

	if second.ID != first.ID || second.BorrowerName != first.BorrowerName {
		t.Error("identity changed across re-normalization")
	}
	if second.LoanAmount != first.LoanAmount ||
		second.RemainingAmount != first.RemainingAmount ||
		second.RepaidAmount != first.RepaidAmount {
		t.Error("amounts changed across re-normalization")
	}
	if !second.LoanDate.Equal(*first.LoanDate) || !second.RepaymentDate.Equal(*first.RepaymentDate) {
		t.Error("dates changed across re-normalization")
	}
	if second.Status != first.Status {
		t.Errorf("status changed: %s → %s", first.Status, second.Status)
	}
	if *second.DaysUntilRepayment != *first.DaysUntilRepayment {
		t.Error("day count changed across re-normalization")
	}
	if second.Note != first.Note {
		t.Error("note changed across re-normalization")
	}
}

func TestStatusLabels(t *testing.T) {
	tests := []struct {
		status models.Status
		label  string
	}{
		{models.StatusCompleted, "완료"},
		{models.StatusNormal, "정상"},
		{models.StatusWarning, "주의"},
		{models.StatusOverdue, "연체"},
		{models.StatusUndetermined, "미정"},
	}
	for _, tt := range tests {
		if got := tt.status.Label(); got != tt.label {
			t.Errorf("%s: got %q, want %q", tt.status, got, tt.label)
		}
	}
}

func intPtr(v int) *int { return &v }
