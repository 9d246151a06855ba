package postgres

import (
	"circulation-engine/internal/domain/circulation"
	"circulation-engine/internal/infrastructure/monitoring"
	"circulation-engine/internal/pkg/apperrors"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

const loanColumns = `loan_id, item_code, member_id, loan_rule_id, loan_date, due_date, renewed, is_lent, is_return, return_date, input_date, last_update`

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ circulation.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

// CreateLoan inserts the loan only when the item has no other loan that
// is out (is_lent and not is_return). The guard plus the partial unique
// index on open loans makes a concurrent double checkout lose cleanly
// with ErrItemAlreadyOnLoan instead of producing two open loans.
func (r *LoanRepository) CreateLoan(ctx context.Context, loan *circulation.Loan) (int64, error) {
	sql := `
        INSERT INTO loans (item_code, member_id, loan_rule_id, loan_date, due_date, renewed, is_lent, is_return, input_date, last_update)
        SELECT $1, $2, $3, $4, $5, 0, TRUE, FALSE, NOW(), NOW()
        WHERE NOT EXISTS (
            SELECT 1 FROM loans WHERE item_code = $1 AND is_lent = TRUE AND is_return = FALSE
        )
        RETURNING loan_id`

	status := "success"
	startTime := time.Now()

	var loanID int64
	err := r.db.QueryRow(ctx, sql,
		loan.ItemCode, loan.MemberID, loan.RuleID, loan.LoanDate, loan.DueDate,
	).Scan(&loanID)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("CreateLoan", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Checkout lost to an existing open loan", "item_code", loan.ItemCode, "member_id", loan.MemberID)
			return 0, apperrors.ErrItemAlreadyOnLoan
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.WarnContext(ctx, "Checkout lost a concurrent insert race", "item_code", loan.ItemCode, "constraint", pgErr.ConstraintName)
			return 0, apperrors.ErrItemAlreadyOnLoan
		}
		r.logger.ErrorContext(ctx, "Failed to insert loan", "item_code", loan.ItemCode, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", loanID, "item_code", loan.ItemCode, "member_id", loan.MemberID)
	return loanID, nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*circulation.Loan, error) {
	query := `
        SELECT ` + loanColumns + `
        FROM loans
        WHERE loan_id = $1`

	status := "success"
	startTime := time.Now()

	var l circulation.Loan
	err := r.db.QueryRow(ctx, query, loanID).Scan(
		&l.ID, &l.ItemCode, &l.MemberID, &l.RuleID, &l.LoanDate, &l.DueDate,
		&l.Renewed, &l.IsLent, &l.IsReturn, &l.ReturnDate, &l.InputDate, &l.LastUpdate,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetLoanByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &l, nil
}

func (r *LoanRepository) IsItemOnLoan(ctx context.Context, itemCode string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM loans WHERE item_code = $1 AND is_lent = TRUE AND is_return = FALSE)`

	var onLoan bool
	err := r.db.QueryRow(ctx, query, itemCode).Scan(&onLoan)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to check open loan for item", "item_code", itemCode, "error", err)
		return false, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return onLoan, nil
}

func (r *LoanRepository) CountActiveLoans(ctx context.Context, memberID string, ruleID int64) (int, error) {
	query := `SELECT COUNT(*) FROM loans WHERE member_id = $1 AND is_lent = TRUE AND is_return = FALSE`
	args := []any{memberID}
	if ruleID != 0 {
		query += ` AND loan_rule_id = $2`
		args = append(args, ruleID)
	}

	var count int
	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count active loans", "member_id", memberID, "rule_id", ruleID, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count, nil
}

func (r *LoanRepository) MarkReturned(ctx context.Context, loanID int64, memberID string, returnDate time.Time) error {
	sql := `
        UPDATE loans
        SET is_return = TRUE, return_date = $1, last_update = NOW()
        WHERE loan_id = $2 AND member_id = $3 AND is_return = FALSE`

	status := "success"
	startTime := time.Now()

	cmdTag, err := r.db.Exec(ctx, sql, returnDate, loanID, memberID)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("MarkReturned", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to mark loan returned", "loan_id", loanID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Return update affected zero rows", "loan_id", loanID, "member_id", memberID)
		return apperrors.ErrNotFound
	}
	r.logger.InfoContext(ctx, "Loan marked returned", "loan_id", loanID, "return_date", returnDate)
	return nil
}

func (r *LoanRepository) RenewLoan(ctx context.Context, loanID int64, memberID string, dueDate time.Time) error {
	sql := `
        UPDATE loans
        SET renewed = renewed + 1, due_date = $1, is_lent = TRUE, is_return = FALSE, return_date = NULL, last_update = NOW()
        WHERE loan_id = $2 AND member_id = $3`

	status := "success"
	startTime := time.Now()

	cmdTag, err := r.db.Exec(ctx, sql, dueDate, loanID, memberID)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("RenewLoan", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to renew loan", "loan_id", loanID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Renewal update affected zero rows", "loan_id", loanID, "member_id", memberID)
		return apperrors.ErrNotFound
	}
	r.logger.InfoContext(ctx, "Loan renewed", "loan_id", loanID, "due_date", dueDate)
	return nil
}

func (r *LoanRepository) CreateFine(ctx context.Context, fine *circulation.Fine) error {
	sql := `
        INSERT INTO fines (member_id, fine_date, debit, description, input_date, last_update)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        RETURNING fine_id`

	status := "success"
	startTime := time.Now()

	err := r.db.QueryRow(ctx, sql, fine.MemberID, fine.Date, fine.Amount, fine.Description).Scan(&fine.ID)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("CreateFine", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert fine", "member_id", fine.MemberID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	r.logger.InfoContext(ctx, "Fine created in DB", "fine_id", fine.ID, "member_id", fine.MemberID, "amount", fine.Amount)
	return nil
}

func (r *LoanRepository) ListOverdueLoans(ctx context.Context, asOf time.Time) ([]circulation.Loan, error) {
	query := `
        SELECT ` + loanColumns + `
        FROM loans
        WHERE is_lent = TRUE AND is_return = FALSE AND due_date < $1
        ORDER BY due_date ASC`

	rows, err := r.db.Query(ctx, query, asOf)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query overdue loans", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loans := make([]circulation.Loan, 0)
	for rows.Next() {
		var l circulation.Loan
		err := rows.Scan(
			&l.ID, &l.ItemCode, &l.MemberID, &l.RuleID, &l.LoanDate, &l.DueDate,
			&l.Renewed, &l.IsLent, &l.IsReturn, &l.ReturnDate, &l.InputDate, &l.LastUpdate,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan overdue loan row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		loans = append(loans, l)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating overdue loan rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return loans, nil
}
