package event

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanCheckedOutEvent struct {
	LoanID   int64     `json:"loanId"`
	ItemCode string    `json:"itemCode"`
	MemberID string    `json:"memberId"`
	LoanDate time.Time `json:"loanDate"`
	DueDate  time.Time `json:"dueDate"`
}

type LoanReturnedEvent struct {
	LoanID      int64           `json:"loanId"`
	ItemCode    string          `json:"itemCode"`
	MemberID    string          `json:"memberId"`
	ReturnDate  time.Time       `json:"returnDate"`
	OverdueDays int             `json:"overdueDays"`
	Fine        decimal.Decimal `json:"fine"`
}

type LoanRenewedEvent struct {
	LoanID   int64     `json:"loanId"`
	ItemCode string    `json:"itemCode"`
	MemberID string    `json:"memberId"`
	DueDate  time.Time `json:"dueDate"`
}

type LoanOverdueEvent struct {
	LoanID      int64     `json:"loanId"`
	ItemCode    string    `json:"itemCode"`
	MemberID    string    `json:"memberId"`
	DueDate     time.Time `json:"dueDate"`
	OverdueDays int       `json:"overdueDays"`
	ScannedAt   time.Time `json:"scannedAt"`
}
