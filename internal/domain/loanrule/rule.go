package loanrule

import "github.com/shopspring/decimal"

// Rule is a row of the loan rules master table. CollTypeID and GMDID are
// zero when the rule does not constrain that dimension.
type Rule struct {
	ID           int64
	MemberTypeID int64
	CollTypeID   int64
	GMDID        int64
	LoanLimit    int
	LoanPeriod   int
	ReborrowLimit int
	FinePerDay   decimal.Decimal
	GracePeriod  int
}

// Policy is the resolved set of circulation parameters applied to a loan.
// RuleID is 0 when the member-type baseline was used.
type Policy struct {
	RuleID        int64
	LoanLimit     int
	LoanPeriod    int
	ReborrowLimit int
	FinePerDay    decimal.Decimal
	GracePeriod   int
}

func (r *Rule) Policy() Policy {
	return Policy{
		RuleID:        r.ID,
		LoanLimit:     r.LoanLimit,
		LoanPeriod:    r.LoanPeriod,
		ReborrowLimit: r.ReborrowLimit,
		FinePerDay:    r.FinePerDay,
		GracePeriod:   r.GracePeriod,
	}
}
