package loanrule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"circulation-engine/internal/pkg/apperrors"
)

// Resolver picks the loan policy for a borrow attempt. Absence of a
// specific rule is never an error: resolution degrades level by level down
// to the member-type baseline passed in as fallback.
type Resolver struct {
	repo   Repository
	logger *slog.Logger
}

func NewResolver(repo Repository, logger *slog.Logger) *Resolver {
	return &Resolver{repo: repo, logger: logger.With("component", "LoanRuleResolver")}
}

// Resolve applies the precedence order:
//  1. member type + collection type + material designation
//  2. member type + collection type
//  3. member type + material designation
//  4. member-type baseline (fallback, RuleID 0)
//
// Only database faults are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, memberTypeID, collTypeID, gmdID int64, fallback Policy) (Policy, error) {
	if collTypeID == 0 && gmdID == 0 {
		return fallback, nil
	}

	lookups := [][2]int64{
		{collTypeID, gmdID},
		{collTypeID, 0},
		{0, gmdID},
	}
	var prev [2]int64
	for i, l := range lookups {
		if l[0] == 0 && l[1] == 0 {
			continue
		}
		if i > 0 && l == prev {
			continue
		}
		prev = l
		rule, err := r.repo.Find(ctx, memberTypeID, l[0], l[1])
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return Policy{}, fmt.Errorf("resolving loan rule for member type %d: %w", memberTypeID, err)
		}
		r.logger.DebugContext(ctx, "Loan rule resolved",
			"rule_id", rule.ID,
			"member_type_id", memberTypeID,
			"coll_type_id", l[0],
			"gmd_id", l[1],
		)
		return rule.Policy(), nil
	}

	r.logger.DebugContext(ctx, "No specific loan rule, using member type baseline",
		"member_type_id", memberTypeID)
	return fallback, nil
}

// PolicyForRule loads the stored rule referenced by a persisted loan.
// RuleID 0 yields the fallback unchanged.
func (r *Resolver) PolicyForRule(ctx context.Context, ruleID int64, fallback Policy) (Policy, error) {
	if ruleID == 0 {
		return fallback, nil
	}
	rule, err := r.repo.GetByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Rule deleted since the loan was made: degrade to baseline.
			r.logger.WarnContext(ctx, "Loan references a missing rule", "rule_id", ruleID)
			return fallback, nil
		}
		return Policy{}, fmt.Errorf("loading loan rule %d: %w", ruleID, err)
	}
	return rule.Policy(), nil
}
