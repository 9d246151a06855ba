package member

import (
	"time"

	"github.com/shopspring/decimal"

	"circulation-engine/internal/domain/calendar"
	"circulation-engine/internal/domain/loanrule"
)

type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusPending Status = "PENDING"
	StatusExpired Status = "EXPIRED"
)

// Member is the read-only membership context the engine operates under.
// The record is owned by the membership service; the circulation engine
// only derives state from it. The loan properties are the member type's
// baseline, used when no specific loan rule resolves.
type Member struct {
	ID            string
	Name          string
	TypeID        int64
	TypeName      string
	Pending       bool
	ExpireDate    time.Time
	LoanLimit     int
	LoanPeriod    int
	ReborrowLimit int
	FinePerDay    decimal.Decimal
	GracePeriod   int
}

// StatusAt derives the membership state for a circulation day.
func (m *Member) StatusAt(today time.Time) Status {
	if calendar.DateOnly(m.ExpireDate).Before(calendar.DateOnly(today)) {
		return StatusExpired
	}
	if m.Pending {
		return StatusPending
	}
	return StatusActive
}

// BaselinePolicy is the member-type fallback used by rule resolution.
func (m *Member) BaselinePolicy() loanrule.Policy {
	return loanrule.Policy{
		RuleID:        0,
		LoanLimit:     m.LoanLimit,
		LoanPeriod:    m.LoanPeriod,
		ReborrowLimit: m.ReborrowLimit,
		FinePerDay:    m.FinePerDay,
		GracePeriod:   m.GracePeriod,
	}
}
