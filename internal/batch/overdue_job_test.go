package batch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"circulation-engine/internal/domain/circulation"
	"circulation-engine/internal/event"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) CreateLoan(ctx context.Context, loan *circulation.Loan) (int64, error) {
	args := m.Called(ctx, loan)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*circulation.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*circulation.Loan), args.Error(1)
}

func (m *MockLoanRepository) IsItemOnLoan(ctx context.Context, itemCode string) (bool, error) {
	args := m.Called(ctx, itemCode)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoanRepository) CountActiveLoans(ctx context.Context, memberID string, ruleID int64) (int, error) {
	args := m.Called(ctx, memberID, ruleID)
	return args.Int(0), args.Error(1)
}

func (m *MockLoanRepository) MarkReturned(ctx context.Context, loanID int64, memberID string, returnDate time.Time) error {
	return m.Called(ctx, loanID, memberID, returnDate).Error(0)
}

func (m *MockLoanRepository) RenewLoan(ctx context.Context, loanID int64, memberID string, dueDate time.Time) error {
	return m.Called(ctx, loanID, memberID, dueDate).Error(0)
}

func (m *MockLoanRepository) CreateFine(ctx context.Context, fine *circulation.Fine) error {
	return m.Called(ctx, fine).Error(0)
}

func (m *MockLoanRepository) ListOverdueLoans(ctx context.Context, asOf time.Time) ([]circulation.Loan, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]circulation.Loan), args.Error(1)
}

type capturePublisher struct {
	event.NoopPublisher
	overdue []event.LoanOverdueEvent
	fail    bool
}

func (p *capturePublisher) PublishLoanOverdue(ctx context.Context, e event.LoanOverdueEvent) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.overdue = append(p.overdue, e)
	return nil
}

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestOverdueScanPublishesPerLoan(t *testing.T) {
	loans := new(MockLoanRepository)
	pub := &capturePublisher{}
	job := NewOverdueScanJob(loans, pub, testLogger)
	job.now = func() time.Time { return time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC) }

	due := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	loans.On("ListOverdueLoans", mock.Anything, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)).
		Return([]circulation.Loan{
			{ID: 1, ItemCode: "B0001", MemberID: "M001", DueDate: due},
			{ID: 2, ItemCode: "B0002", MemberID: "M002", DueDate: due.AddDate(0, 0, 2)},
		}, nil)

	err := job.Run(context.Background())

	assert.NoError(t, err)
	assert.Len(t, pub.overdue, 2)
	assert.Equal(t, 5, pub.overdue[0].OverdueDays)
	assert.Equal(t, 3, pub.overdue[1].OverdueDays)
	loans.AssertExpectations(t)
}

func TestOverdueScanWithNothingDue(t *testing.T) {
	loans := new(MockLoanRepository)
	pub := &capturePublisher{}
	job := NewOverdueScanJob(loans, pub, testLogger)

	loans.On("ListOverdueLoans", mock.Anything, mock.Anything).
		Return([]circulation.Loan{}, nil)

	err := job.Run(context.Background())

	assert.NoError(t, err)
	assert.Empty(t, pub.overdue)
}

func TestOverdueScanAbortsWhenListingFails(t *testing.T) {
	loans := new(MockLoanRepository)
	pub := &capturePublisher{}
	job := NewOverdueScanJob(loans, pub, testLogger)

	loans.On("ListOverdueLoans", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	err := job.Run(context.Background())

	assert.Error(t, err)
}

func TestOverdueScanReportsPublishErrors(t *testing.T) {
	loans := new(MockLoanRepository)
	pub := &capturePublisher{fail: true}
	job := NewOverdueScanJob(loans, pub, testLogger)

	loans.On("ListOverdueLoans", mock.Anything, mock.Anything).
		Return([]circulation.Loan{{ID: 1, ItemCode: "B0001", DueDate: time.Now().AddDate(0, 0, -3)}}, nil)

	err := job.Run(context.Background())

	assert.ErrorContains(t, err, "1 errors")
}
