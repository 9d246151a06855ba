package loanrule

import "context"

type Repository interface {
	// Find returns the first rule for the member type constrained by the
	// non-zero dimensions. A zero collTypeID or gmdID means "unfiltered".
	// Returns apperrors.ErrNotFound when no rule matches.
	Find(ctx context.Context, memberTypeID, collTypeID, gmdID int64) (*Rule, error)

	// GetByID returns a rule by its identifier, apperrors.ErrNotFound when absent.
	GetByID(ctx context.Context, ruleID int64) (*Rule, error)
}
