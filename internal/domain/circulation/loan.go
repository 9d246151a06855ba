package circulation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan is a circulation transaction for one item. Loans are never
// deleted: the terminal state is returned (IsReturn=true), retained for
// history. The central invariant is that at most one loan per item may be
// "currently out" (IsLent && !IsReturn) at any time.
type Loan struct {
	ID         int64
	ItemCode   string
	MemberID   string
	RuleID     int64
	LoanDate   time.Time
	DueDate    time.Time
	Renewed    int
	IsLent     bool
	IsReturn   bool
	ReturnDate *time.Time
	InputDate  time.Time
	LastUpdate time.Time
}

// StagedLoan is a pending, not-yet-committed intent to borrow. It exists
// only between AddLoanSession and FinishLoanSession and is never
// persisted directly.
type StagedLoan struct {
	ItemCode       string
	Title          string
	Classification string
	RuleID         int64
	LoanDate       time.Time
	DueDate        time.Time
}

// Fine is created as a side effect of an overdue return that is not
// suppressed by a grace period or holiday exclusion.
type Fine struct {
	ID          int64
	MemberID    string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
}
