package circulation

import (
	"context"
	"time"
)

type Repository interface {
	// CreateLoan persists a new loan with IsLent set and IsReturn clear.
	// The insert is conditional on no other non-returned loan existing
	// for the same item; a losing concurrent checkout gets
	// apperrors.ErrItemAlreadyOnLoan instead of overwriting the winner.
	CreateLoan(ctx context.Context, loan *Loan) (int64, error)

	GetLoanByID(ctx context.Context, loanID int64) (*Loan, error)

	// IsItemOnLoan reports whether the item has a loan with is_lent set
	// and is_return clear.
	IsItemOnLoan(ctx context.Context, itemCode string) (bool, error)

	// CountActiveLoans counts the member's non-returned loans under the
	// given rule. Rule id 0 counts all of the member's active loans.
	CountActiveLoans(ctx context.Context, memberID string, ruleID int64) (int, error)

	// MarkReturned settles the loan: is_return set, return_date recorded.
	MarkReturned(ctx context.Context, loanID int64, memberID string, returnDate time.Time) error

	// RenewLoan increments the renewal count, moves the due date and
	// clears is_return again.
	RenewLoan(ctx context.Context, loanID int64, memberID string, dueDate time.Time) error

	CreateFine(ctx context.Context, fine *Fine) error

	// ListOverdueLoans returns loans still out whose due date lies
	// strictly before asOf. Used by the nightly overdue scan.
	ListOverdueLoans(ctx context.Context, asOf time.Time) ([]Loan, error)
}

// Ledger is the audit mirror of loan state transitions. Implementations
// are best-effort collaborators: the engine logs ledger failures as
// warnings and never rolls back the primary loan mutation because of
// them.
type Ledger interface {
	RecordLoan(ctx context.Context, loan *Loan) error
	RecordReturn(ctx context.Context, loanID int64, returnDate time.Time) error
	RecordRenewal(ctx context.Context, loanID int64, dueDate time.Time) error
}
