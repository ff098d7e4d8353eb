package models

import "time"

// RawRow is one source row as an untyped column→value map, plus the column
// order it arrived in. It only lives between the reader and the normalizer;
// normalized records keep a reference for traceability.
type RawRow struct {
	Columns []string          `json:"columns,omitempty"`
	Values  map[string]string `json:"values"`
}

// Get returns the trimmed value of a column, or "" when absent.
func (r RawRow) Get(col string) string {
	return r.Values[col]
}

// Status classifies a record's repayment urgency. It is always derived from
// (remaining amount, due date, now) and never stored independently.
type Status string

const (
	StatusCompleted    Status = "completed"
	StatusNormal       Status = "normal"
	StatusWarning      Status = "warning"
	StatusOverdue      Status = "overdue"
	StatusUndetermined Status = "undetermined"
)

// Label returns the Korean display label used by the dashboard.
func (s Status) Label() string {
	switch s {
	case StatusCompleted:
		return "완료"
	case StatusNormal:
		return "정상"
	case StatusWarning:
		return "주의"
	case StatusOverdue:
		return "연체"
	default:
		return "미정"
	}
}

// Record is the normalized repayment record.
type Record struct {
	ID                 string     `json:"id"`
	BorrowerName       string     `json:"borrowerName"`
	LoanAmount         float64    `json:"loanAmount"`
	RemainingAmount    float64    `json:"remainingAmount"`
	RepaidAmount       float64    `json:"repaidAmount"`
	LoanDate           *time.Time `json:"loanDate"`
	RepaymentDate      *time.Time `json:"repaymentDate"`
	DaysUntilRepayment *int       `json:"daysUntilRepayment"`
	Status             Status     `json:"status"`
	Note               string     `json:"note"`
	Original           RawRow     `json:"original"`
	// NameFallback marks BorrowerName as a synthesized positional
	// placeholder rather than a sheet value. The noise-row filter keys off
	// it, so a real borrower who happens to be named like a placeholder is
	// never mistaken for one.
	NameFallback bool `json:"-"`
}

// Stats is the one-pass roll-up over a record set. It is recomputed on every
// fetch and never persisted.
type Stats struct {
	TotalLoanAmount      float64        `json:"totalLoanAmount"`
	TotalRemainingAmount float64        `json:"totalRemainingAmount"`
	TotalRepaidAmount    float64        `json:"totalRepaidAmount"`
	RepaymentRate        float64        `json:"repaymentRate"`
	StatusCounts         map[Status]int `json:"statusCounts"`
	AverageDaysUntilDue  int            `json:"averageDaysUntilDue"`
	RecordCount          int            `json:"recordCount"`
}

// Dashboard is what a synchronization run hands to callers: the full record
// set plus its aggregates. A new one replaces the old wholesale.
type Dashboard struct {
	Records   []Record  `json:"records"`
	Stats     Stats     `json:"stats"`
	Source    string    `json:"source,omitempty"`
	FetchedAt time.Time `json:"fetchedAt"`
}
