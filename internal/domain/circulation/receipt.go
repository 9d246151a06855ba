package circulation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Receipt accumulates the line items of a circulation transaction for
// downstream printing. It is purely additive: the engine writes to it but
// never reads it back.
type Receipt struct {
	ID         uuid.UUID
	MemberID   string
	MemberName string
	MemberType string
	Date       time.Time

	Loans    []LoanLine
	Returns  []ReturnLine
	Extends  []ExtendLine
	Fines    []FineLine
	Failures []FlushFailure
}

type LoanLine struct {
	LoanID         int64
	ItemCode       string
	Title          string
	Classification string
	LoanDate       time.Time
	DueDate        time.Time
}

type ReturnLine struct {
	LoanID      int64
	ItemCode    string
	ReturnDate  time.Time
	OverdueDays int
	OnGrace     bool
	Fine        decimal.Decimal
}

type ExtendLine struct {
	LoanID   int64
	ItemCode string
	LoanDate time.Time
	DueDate  time.Time
}

type FineLine struct {
	Days    int
	OnGrace bool
	Value   decimal.Decimal
}

// FlushFailure records one staged item whose persistence failed during
// commit. Other items in the batch are unaffected.
type FlushFailure struct {
	ItemCode string
	Status   Status
	Reason   string
}

func NewReceipt() *Receipt {
	return &Receipt{ID: uuid.New()}
}
