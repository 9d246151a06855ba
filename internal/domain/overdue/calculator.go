package overdue

import (
	"time"

	"github.com/shopspring/decimal"

	"circulation-engine/internal/domain/calendar"
	"circulation-engine/internal/domain/loanrule"
)

// Assessment is the outcome of an overdue check. OnGrace marks a return
// inside a grace period: the fine is zero and no fine record may be
// created. Days is zero when on grace.
type Assessment struct {
	Days    int
	OnGrace bool
	Fine    decimal.Decimal
}

// Calculator computes overdue days and fine amounts for returned loans.
// When excludeHolidays is set, holidays falling inside the overdue window
// do not accrue fines.
type Calculator struct {
	cal             *calendar.Calendar
	excludeHolidays bool
}

func NewCalculator(cal *calendar.Calendar, excludeHolidays bool) *Calculator {
	return &Calculator{cal: cal, excludeHolidays: excludeHolidays}
}

// Assess returns nil when the return is not overdue. The baseline policy
// comes from the member type; rule is the loan's resolved rule, nil when
// the loan was made on the baseline. Either grace period (baseline or
// rule) suffices to suppress the fine, and the rule's daily rate always
// replaces the baseline rate once a rule is attached to the loan.
func (c *Calculator) Assess(dueDate, returnDate time.Time, baseline loanrule.Policy, rule *loanrule.Policy) *Assessment {
	due := calendar.DateOnly(dueDate)
	returned := calendar.DateOnly(returnDate)
	if !returned.After(due) {
		return nil
	}

	days := calendar.DaysBetween(due, returned)
	if c.excludeHolidays {
		days -= c.cal.CountHolidaysBetween(due, returned)
		if days < 0 {
			return nil
		}
	}
	if days < 1 {
		return nil
	}

	onGrace := withinGrace(due, returned, baseline.GracePeriod)
	rate := baseline.FinePerDay
	if rule != nil {
		rate = rule.FinePerDay
		if withinGrace(due, returned, rule.GracePeriod) {
			onGrace = true
		}
	}

	if onGrace {
		return &Assessment{OnGrace: true, Fine: decimal.Zero}
	}
	return &Assessment{Days: days, Fine: rate.Mul(decimal.NewFromInt(int64(days)))}
}

func withinGrace(due, returned time.Time, graceDays int) bool {
	if graceDays <= 0 {
		return false
	}
	return !calendar.AddDays(due, graceDays).Before(returned)
}
