package postgres

import (
	"circulation-engine/internal/domain/circulation"
	"circulation-engine/internal/pkg/apperrors"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// HistoryRepository mirrors loan state transitions into a denormalized
// ledger table that survives catalog edits. It implements
// circulation.Ledger; the engine treats failures here as warnings, so
// the methods only wrap and report.
type HistoryRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ circulation.Ledger = (*HistoryRepository)(nil)

func NewHistoryRepository(db DBPool, logger *slog.Logger) *HistoryRepository {
	return &HistoryRepository{db: db, logger: logger.With("component", "HistoryRepository")}
}

func (r *HistoryRepository) RecordLoan(ctx context.Context, loan *circulation.Loan) error {
	sql := `
        INSERT INTO loan_history (loan_id, item_code, member_id, loan_rule_id, loan_date, due_date, title, call_number, member_name, input_date)
        SELECT l.loan_id, l.item_code, l.member_id, l.loan_rule_id, l.loan_date, l.due_date,
               b.title, i.call_number, m.member_name, NOW()
        FROM loans l
        JOIN items i ON i.item_code = l.item_code
        JOIN biblio b ON b.biblio_id = i.biblio_id
        JOIN members m ON m.member_id = l.member_id
        WHERE l.loan_id = $1`

	if _, err := r.db.Exec(ctx, sql, loan.ID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to record loan history", "loan_id", loan.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *HistoryRepository) RecordReturn(ctx context.Context, loanID int64, returnDate time.Time) error {
	sql := `UPDATE loan_history SET is_return = TRUE, return_date = $1 WHERE loan_id = $2`

	if _, err := r.db.Exec(ctx, sql, returnDate, loanID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to record return in history", "loan_id", loanID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *HistoryRepository) RecordRenewal(ctx context.Context, loanID int64, dueDate time.Time) error {
	sql := `UPDATE loan_history SET renewed = renewed + 1, due_date = $1, is_return = FALSE, return_date = NULL WHERE loan_id = $2`

	if _, err := r.db.Exec(ctx, sql, dueDate, loanID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to record renewal in history", "loan_id", loanID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}
