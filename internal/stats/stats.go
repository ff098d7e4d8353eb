package stats

import (
	"math"

	"github.com/harufinance/repayment-ledger/internal/models"
)

// Aggregate folds a record set into its roll-up statistics in one pass.
// The fold is commutative: record order never changes the result.
func Aggregate(records []models.Record) models.Stats {
	s := models.Stats{
		StatusCounts: map[models.Status]int{},
		RecordCount:  len(records),
	}

	var daysSum, daysCount int
	for _, rec := range records {
		s.TotalLoanAmount += rec.LoanAmount
		s.TotalRemainingAmount += rec.RemainingAmount
		s.TotalRepaidAmount += rec.RepaidAmount
		s.StatusCounts[rec.Status]++

		if rec.DaysUntilRepayment != nil && *rec.DaysUntilRepayment >= 0 {
			daysSum += *rec.DaysUntilRepayment
			daysCount++
		}
	}

	if daysCount > 0 {
		s.AverageDaysUntilDue = int(math.Round(float64(daysSum) / float64(daysCount)))
	}
	if s.TotalLoanAmount > 0 {
		s.RepaymentRate = s.TotalRepaidAmount / s.TotalLoanAmount
	}
	return s
}
