package postgres

import (
	"circulation-engine/internal/domain/loanrule"
	"circulation-engine/internal/pkg/apperrors"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

const ruleColumns = `loan_rule_id, member_type_id, coll_type_id, gmd_id, loan_limit, loan_periode, reborrow_limit, fine_each_day, grace_periode`

type RuleRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ loanrule.Repository = (*RuleRepository)(nil)

func NewRuleRepository(db DBPool, logger *slog.Logger) *RuleRepository {
	return &RuleRepository{db: db, logger: logger.With("component", "RuleRepository")}
}

// Find constrains the lookup by the non-zero dimensions only. The rule
// table keeps 0 in a column to mean "any", so a zero argument both skips
// the filter and still matches rows that declare it explicitly.
func (r *RuleRepository) Find(ctx context.Context, memberTypeID, collTypeID, gmdID int64) (*loanrule.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM loan_rules WHERE member_type_id = $1`
	args := []any{memberTypeID}

	if collTypeID != 0 {
		args = append(args, collTypeID)
		query += fmt.Sprintf(" AND coll_type_id = $%d", len(args))
	}
	if gmdID != 0 {
		args = append(args, gmdID)
		query += fmt.Sprintf(" AND gmd_id = $%d", len(args))
	}
	query += " ORDER BY loan_rule_id ASC LIMIT 1"

	rule, err := r.scanRule(ctx, query, args...)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		r.logger.ErrorContext(ctx, "Failed to find loan rule", "member_type_id", memberTypeID, "coll_type_id", collTypeID, "gmd_id", gmdID, "error", err)
		return nil, err
	}
	return rule, nil
}

func (r *RuleRepository) GetByID(ctx context.Context, ruleID int64) (*loanrule.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM loan_rules WHERE loan_rule_id = $1`

	rule, err := r.scanRule(ctx, query, ruleID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			r.logger.WarnContext(ctx, "Loan rule not found", "rule_id", ruleID)
			return nil, err
		}
		r.logger.ErrorContext(ctx, "Failed to get loan rule", "rule_id", ruleID, "error", err)
		return nil, err
	}
	return rule, nil
}

func (r *RuleRepository) scanRule(ctx context.Context, query string, args ...any) (*loanrule.Rule, error) {
	var rule loanrule.Rule
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&rule.ID, &rule.MemberTypeID, &rule.CollTypeID, &rule.GMDID,
		&rule.LoanLimit, &rule.LoanPeriod, &rule.ReborrowLimit,
		&rule.FinePerDay, &rule.GracePeriod,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &rule, nil
}
