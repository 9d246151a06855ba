package batch

import (
	"circulation-engine/internal/domain/calendar"
	"circulation-engine/internal/domain/circulation"
	"circulation-engine/internal/event"
	"circulation-engine/internal/infrastructure/monitoring"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// OverdueScanJob walks the open loans past their due date and publishes
// one overdue event per loan. It never mutates loans or books fines;
// fines are only assessed when the item actually comes back.
type OverdueScanJob struct {
	loans  circulation.Repository
	events event.Publisher
	logger *slog.Logger
	now    func() time.Time
}

func NewOverdueScanJob(loans circulation.Repository, events event.Publisher, logger *slog.Logger) *OverdueScanJob {
	if loans == nil || events == nil || logger == nil {
		panic("OverdueScanJob dependencies cannot be nil")
	}
	return &OverdueScanJob{
		loans:  loans,
		events: events,
		logger: logger.With("job", "OverdueScan"),
		now:    time.Now,
	}
}

func (j *OverdueScanJob) Run(ctx context.Context) error {
	startTime := time.Now()
	today := calendar.DateOnly(j.now())
	j.logger.InfoContext(ctx, "Starting nightly overdue scan.", "as_of", today.Format(time.DateOnly))

	overdueLoans, err := j.loans.ListOverdueLoans(ctx, today)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to list overdue loans, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to list overdue loans: %w", err)
	}

	errorCount := 0
	for _, l := range overdueLoans {
		days := calendar.DaysBetween(l.DueDate, today)
		if perr := j.events.PublishLoanOverdue(ctx, event.LoanOverdueEvent{
			LoanID:      l.ID,
			ItemCode:    l.ItemCode,
			MemberID:    l.MemberID,
			DueDate:     l.DueDate,
			OverdueDays: days,
			ScannedAt:   today,
		}); perr != nil {
			j.logger.ErrorContext(ctx, "Failed to publish overdue event",
				"loan_id", l.ID, slog.Any("error", perr))
			errorCount++
		}
	}

	duration := time.Since(startTime)
	monitoring.RecordOverdueScan(len(overdueLoans), duration)

	summaryLog := j.logger.With(
		slog.Duration("duration", duration),
		slog.Int("overdue_loans", len(overdueLoans)),
		slog.Int("errors_encountered", errorCount),
	)
	if errorCount > 0 {
		summaryLog.WarnContext(ctx, "Overdue scan finished with errors.")
		return fmt.Errorf("job completed with %d errors", errorCount)
	}
	summaryLog.InfoContext(ctx, "Overdue scan finished successfully.")
	return nil
}
