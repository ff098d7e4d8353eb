package stats

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/harufinance/repayment-ledger/internal/models"
)

func intPtr(v int) *int { return &v }

func sampleRecords() []models.Record {
	return []models.Record{
		{LoanAmount: 5000000, RemainingAmount: 0, RepaidAmount: 5000000,
			Status: models.StatusCompleted, DaysUntilRepayment: intPtr(-3)},
		{LoanAmount: 3000000, RemainingAmount: 1500000, RepaidAmount: 1500000,
			Status: models.StatusWarning, DaysUntilRepayment: intPtr(5)},
		{LoanAmount: 8000000, RemainingAmount: 8000000, RepaidAmount: 0,
			Status: models.StatusNormal, DaysUntilRepayment: intPtr(20)},
		{LoanAmount: 2000000, RemainingAmount: 2000000, RepaidAmount: 0,
			Status: models.StatusOverdue, DaysUntilRepayment: intPtr(-10)},
		{LoanAmount: 1000000, RemainingAmount: 1000000, RepaidAmount: 0,
			Status: models.StatusUndetermined},
	}
}

func TestAggregateTotals(t *testing.T) {
	s := Aggregate(sampleRecords())

	if s.TotalLoanAmount != 19000000 {
		t.Errorf("total loan: got %f", s.TotalLoanAmount)
	}
	if s.TotalRemainingAmount != 12500000 {
		t.Errorf("total remaining: got %f", s.TotalRemainingAmount)
	}
	if s.TotalRepaidAmount != 6500000 {
		t.Errorf("total repaid: got %f", s.TotalRepaidAmount)
	}
	if s.RecordCount != 5 {
		t.Errorf("record count: got %d", s.RecordCount)
	}

	wantCounts := map[models.Status]int{
		models.StatusCompleted:    1,
		models.StatusWarning:      1,
		models.StatusNormal:       1,
		models.StatusOverdue:      1,
		models.StatusUndetermined: 1,
	}
	if !reflect.DeepEqual(s.StatusCounts, wantCounts) {
		t.Errorf("status counts: got %v, want %v", s.StatusCounts, wantCounts)
	}
}

// Only non-negative, defined day counts enter the average: (5+20)/2 = 13
// (rounded to nearest).
func TestAggregateAverageDays(t *testing.T) {
	s := Aggregate(sampleRecords())
	if s.AverageDaysUntilDue != 13 {
		t.Errorf("average days: got %d, want 13", s.AverageDaysUntilDue)
	}
}

func TestAggregateAverageRounding(t *testing.T) {
	records := []models.Record{
		{DaysUntilRepayment: intPtr(1)},
		{DaysUntilRepayment: intPtr(2)},
		{DaysUntilRepayment: intPtr(2)},
	}
	// 5/3 = 1.67 → 2
	if s := Aggregate(records); s.AverageDaysUntilDue != 2 {
		t.Errorf("average days: got %d, want 2", s.AverageDaysUntilDue)
	}
}

func TestAggregateRepaymentRate(t *testing.T) {
	records := []models.Record{
		{LoanAmount: 4000000, RepaidAmount: 1000000},
		{LoanAmount: 4000000, RepaidAmount: 1000000},
	}
	if s := Aggregate(records); s.RepaymentRate != 0.25 {
		t.Errorf("repayment rate: got %f, want 0.25", s.RepaymentRate)
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)
	if s.TotalLoanAmount != 0 || s.AverageDaysUntilDue != 0 || s.RepaymentRate != 0 {
		t.Errorf("empty input should aggregate to zeroes, got %+v", s)
	}
	if s.RecordCount != 0 || len(s.StatusCounts) != 0 {
		t.Errorf("empty input counts: got %+v", s)
	}
}

// Shuffling the input must not change any aggregate field.
func TestAggregateCommutativity(t *testing.T) {
	records := sampleRecords()
	want := Aggregate(records)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		rng.Shuffle(len(records), func(a, b int) {
			records[a], records[b] = records[b], records[a]
		})
		got := Aggregate(records)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("shuffle %d changed the result:\n got  %+v\n want %+v", i, got, want)
		}
	}
}
