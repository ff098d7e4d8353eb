package source

import "github.com/harufinance/repayment-ledger/internal/pipeline"

// SampleSource is the built-in illustrative dataset. It is only served when
// the fallback policy is explicitly enabled; by default a dead transport is
// an error, not a demo.
func SampleSource() pipeline.Source {
	return pipeline.PreNormalizedSource{Maps: []map[string]any{
		{
			"id":              "1",
			"borrowerName":    "김철수",
			"loanAmount":      5000000.0,
			"remainingAmount": 0.0,
			"repaidAmount":    5000000.0,
			"loanDate":        "2022-01-15",
			"repaymentDate":   "2024-01-15",
			"note":            "전액 상환",
		},
		{
			"id":              "2",
			"borrowerName":    "이영희",
			"loanAmount":      3000000.0,
			"remainingAmount": 1500000.0,
			"repaidAmount":    1500000.0,
			"loanDate":        "2022-03-01",
			"repaymentDate":   "2024-08-01",
			"note":            "분할 상환 중",
		},
		{
			"id":              "3",
			"borrowerName":    "박민수",
			"loanAmount":      8000000.0,
			"remainingAmount": 8000000.0,
			"repaidAmount":    0.0,
			"loanDate":        "2023-06-10",
			"note":            "상환 일정 협의 중",
		},
	}}
}
