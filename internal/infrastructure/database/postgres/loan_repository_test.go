package postgres

import (
	"circulation-engine/internal/domain/circulation"
	"circulation-engine/internal/pkg/apperrors"
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

const pgxmockExpectationsNotMetMsg = "there were unfulfilled pgxmock expectations"

func setupLoanRepo(t *testing.T) (context.Context, *LoanRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}

	ctx := context.Background()
	repo := NewLoanRepository(mockPool, logger)

	return ctx, repo, mockPool
}

func TestCreateLoanWhenItemIsFree(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	loanDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	dueDate := loanDate.AddDate(0, 0, 7)
	newLoan := &circulation.Loan{
		ItemCode: "B0001",
		MemberID: "M001",
		RuleID:   3,
		LoanDate: loanDate,
		DueDate:  dueDate,
	}

	mockPool.ExpectQuery(regexp.QuoteMeta("INSERT INTO loans")).WithArgs(
		newLoan.ItemCode, newLoan.MemberID, newLoan.RuleID, newLoan.LoanDate, newLoan.DueDate,
	).WillReturnRows(pgxmock.NewRows([]string{"loan_id"}).AddRow(int64(42)))

	loanID, err := repo.CreateLoan(ctx, newLoan)

	assert.NoError(t, err)
	assert.Equal(t, int64(42), loanID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestCreateLoanWhenItemAlreadyOut(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	newLoan := &circulation.Loan{ItemCode: "B0001", MemberID: "M002"}

	// The guarded insert returns no row when another open loan exists.
	mockPool.ExpectQuery(regexp.QuoteMeta("INSERT INTO loans")).WithArgs(
		newLoan.ItemCode, newLoan.MemberID, newLoan.RuleID, newLoan.LoanDate, newLoan.DueDate,
	).WillReturnRows(pgxmock.NewRows([]string{"loan_id"}))

	_, err := repo.CreateLoan(ctx, newLoan)

	assert.ErrorIs(t, err, apperrors.ErrItemAlreadyOnLoan)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetLoanByID(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	loanDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	dueDate := loanDate.AddDate(0, 0, 7)
	now := time.Now()

	mockPool.ExpectQuery(regexp.QuoteMeta("FROM loans")).WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{
			"loan_id", "item_code", "member_id", "loan_rule_id", "loan_date", "due_date",
			"renewed", "is_lent", "is_return", "return_date", "input_date", "last_update",
		}).AddRow(int64(42), "B0001", "M001", int64(3), loanDate, dueDate, 0, true, false, nil, now, now))

	l, err := repo.GetLoanByID(ctx, 42)

	assert.NoError(t, err)
	assert.Equal(t, "B0001", l.ItemCode)
	assert.Equal(t, "M001", l.MemberID)
	assert.True(t, l.IsLent)
	assert.False(t, l.IsReturn)
	assert.Nil(t, l.ReturnDate)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetLoanByIDWhenMissing(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta("FROM loans")).WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows([]string{"loan_id"}))

	_, err := repo.GetLoanByID(ctx, 99)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestCountActiveLoansForRule(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM loans")).WithArgs("M001", int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountActiveLoans(ctx, "M001", 3)

	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestCountActiveLoansUnfiltered(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	// Rule id 0 counts every open loan of the member.
	mockPool.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM loans")).WithArgs("M001").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))

	count, err := repo.CountActiveLoans(ctx, "M001", 0)

	assert.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestMarkReturned(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	returnDate := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectExec(regexp.QuoteMeta("UPDATE loans")).WithArgs(returnDate, int64(42), "M001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.MarkReturned(ctx, 42, "M001", returnDate)

	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestMarkReturnedWhenAlreadySettled(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	returnDate := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectExec(regexp.QuoteMeta("UPDATE loans")).WithArgs(returnDate, int64(42), "M001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MarkReturned(ctx, 42, "M001", returnDate)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestRenewLoan(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	dueDate := time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectExec(regexp.QuoteMeta("UPDATE loans")).WithArgs(dueDate, int64(42), "M001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.RenewLoan(ctx, 42, "M001", dueDate)

	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestCreateFine(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	fine := &circulation.Fine{
		MemberID:    "M001",
		Date:        time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.NewFromInt(2500),
		Description: "Overdue fines for item B0001",
	}

	mockPool.ExpectQuery(regexp.QuoteMeta("INSERT INTO fines")).WithArgs(
		fine.MemberID, fine.Date, fine.Amount, fine.Description,
	).WillReturnRows(pgxmock.NewRows([]string{"fine_id"}).AddRow(int64(7)))

	err := repo.CreateFine(ctx, fine)

	assert.NoError(t, err)
	assert.Equal(t, int64(7), fine.ID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestListOverdueLoans(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	asOf := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	loanDate := asOf.AddDate(0, 0, -10)
	dueDate := asOf.AddDate(0, 0, -3)
	now := time.Now()

	mockPool.ExpectQuery(regexp.QuoteMeta("FROM loans")).WithArgs(asOf).
		WillReturnRows(pgxmock.NewRows([]string{
			"loan_id", "item_code", "member_id", "loan_rule_id", "loan_date", "due_date",
			"renewed", "is_lent", "is_return", "return_date", "input_date", "last_update",
		}).
			AddRow(int64(1), "B0001", "M001", int64(3), loanDate, dueDate, 0, true, false, nil, now, now).
			AddRow(int64(2), "B0002", "M002", int64(0), loanDate, dueDate, 1, true, false, nil, now, now))

	loans, err := repo.ListOverdueLoans(ctx, asOf)

	assert.NoError(t, err)
	assert.Len(t, loans, 2)
	assert.Equal(t, "B0001", loans[0].ItemCode)
	assert.Equal(t, 1, loans[1].Renewed)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}
