package circulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"circulation-engine/internal/domain/calendar"
	"circulation-engine/internal/domain/catalog"
	"circulation-engine/internal/domain/loanrule"
	"circulation-engine/internal/domain/member"
	"circulation-engine/internal/domain/overdue"
	"circulation-engine/internal/domain/reservation"
	"circulation-engine/internal/event"
	"circulation-engine/internal/infrastructure/monitoring"
	"circulation-engine/internal/pkg/apperrors"
)

// ReturnResult is the outcome of a single item return. StatusItemReserved
// is informational: the return itself succeeded, but another member holds
// a reservation and pickup handling is needed.
type ReturnResult struct {
	Status  Status
	Overdue *overdue.Assessment
}

type CirculationService interface {
	// AddLoanSession stages an item into the member's cart after the
	// eligibility checks. ignoreRules bypasses the reservation and
	// loan-limit checks only.
	AddLoanSession(ctx context.Context, session *LoanSession, itemCode string, ignoreRules bool) (Status, error)

	// RemoveLoanSession unstages an item. Idempotent.
	RemoveLoanSession(session *LoanSession, itemCode string)

	// FinishLoanSession commits the cart. Each staged item is persisted
	// independently; one item's failure never rolls back the others. The
	// cart is cleared unconditionally.
	FinishLoanSession(ctx context.Context, session *LoanSession, receipt *Receipt) (Status, error)

	ReturnItem(ctx context.Context, loanID int64, receipt *Receipt) (*ReturnResult, error)

	// ExtendLoan renews a loan unless another member's reservation
	// blocks it. session may be nil when no staging cart is open; it is
	// only used for the renewal-audit list.
	ExtendLoan(ctx context.Context, session *LoanSession, loanID int64, receipt *Receipt) (Status, error)
}

type engineImpl struct {
	loans        Repository
	members      member.Repository
	items        catalog.Repository
	rules        *loanrule.Resolver
	reservations reservation.Repository
	guard        *reservation.PriorityGuard
	ledger       Ledger
	events       event.Publisher
	calc         *overdue.Calculator
	cal          *calendar.Calendar
	logger       *slog.Logger
	now          func() time.Time
}

func NewCirculationService(
	loans Repository,
	members member.Repository,
	items catalog.Repository,
	rules *loanrule.Resolver,
	reservations reservation.Repository,
	ledger Ledger,
	events event.Publisher,
	calc *overdue.Calculator,
	cal *calendar.Calendar,
	logger *slog.Logger,
) CirculationService {
	return &engineImpl{
		loans:        loans,
		members:      members,
		items:        items,
		rules:        rules,
		reservations: reservations,
		guard:        reservation.NewPriorityGuard(reservations, logger),
		ledger:       ledger,
		events:       events,
		calc:         calc,
		cal:          cal,
		logger:       logger.With("component", "CirculationEngine"),
		now:          time.Now,
	}
}

func (e *engineImpl) AddLoanSession(ctx context.Context, session *LoanSession, itemCode string, ignoreRules bool) (Status, error) {
	status, err := e.addLoanSession(ctx, session, itemCode, ignoreRules)
	if err != nil {
		return "", err
	}
	monitoring.RecordStaging(string(status))
	return status, nil
}

func (e *engineImpl) addLoanSession(ctx context.Context, session *LoanSession, itemCode string, ignoreRules bool) (Status, error) {
	today := calendar.DateOnly(e.now())

	m, err := e.members.GetMember(ctx, session.MemberID)
	if err != nil {
		return "", fmt.Errorf("loading member %s: %w", session.MemberID, err)
	}
	switch m.StatusAt(today) {
	case member.StatusExpired:
		return StatusLoanNotPermitted, nil
	case member.StatusPending:
		return StatusLoanNotPermittedPending, nil
	}

	item, err := e.items.GetItem(ctx, itemCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return StatusItemNotFound, nil
		}
		return "", fmt.Errorf("loading item %s: %w", itemCode, err)
	}

	onLoan, err := e.loans.IsItemOnLoan(ctx, itemCode)
	if err != nil {
		return "", fmt.Errorf("checking availability of item %s: %w", itemCode, err)
	}
	if onLoan {
		return StatusItemUnavailable, nil
	}

	if item.LoanForbidden {
		return StatusItemLoanForbid, nil
	}

	if !ignoreRules {
		ok, err := e.guard.MayTake(ctx, itemCode, session.MemberID)
		if err != nil {
			return "", err
		}
		if !ok {
			return StatusItemReserved, nil
		}
	}

	pol, err := e.rules.Resolve(ctx, m.TypeID, item.CollTypeID, item.GMDID, m.BaselinePolicy())
	if err != nil {
		return "", err
	}

	dueDate := e.cal.NextNonHoliday(calendar.AddDays(today, pol.LoanPeriod))
	dueDate = clampToExpiry(dueDate, m.ExpireDate)

	if !ignoreRules {
		current, err := e.loans.CountActiveLoans(ctx, session.MemberID, pol.RuleID)
		if err != nil {
			return "", fmt.Errorf("counting active loans for member %s: %w", session.MemberID, err)
		}
		if pol.LoanLimit <= current+session.CountByRule(pol.RuleID) {
			return StatusLoanLimitReached, nil
		}
	}

	session.Add(StagedLoan{
		ItemCode:       itemCode,
		Title:          item.Title,
		Classification: item.Classification,
		RuleID:         pol.RuleID,
		LoanDate:       today,
		DueDate:        dueDate,
	})
	e.logger.InfoContext(ctx, "Item staged for loan",
		"member_id", session.MemberID,
		"item_code", itemCode,
		"rule_id", pol.RuleID,
		"due_date", dueDate.Format(time.DateOnly),
	)
	return StatusItemSessionAdded, nil
}

func (e *engineImpl) RemoveLoanSession(session *LoanSession, itemCode string) {
	session.Remove(itemCode)
}

func (e *engineImpl) FinishLoanSession(ctx context.Context, session *LoanSession, receipt *Receipt) (Status, error) {
	e.finalizeReceipt(ctx, session.MemberID, receipt)

	staged := session.Staged()
	if len(staged) == 0 {
		session.Clear()
		return StatusTransFlushSuccess, nil
	}

	now := e.now()
	failures := 0
	for _, sl := range staged {
		loan := &Loan{
			ItemCode:   sl.ItemCode,
			MemberID:   session.MemberID,
			RuleID:     sl.RuleID,
			LoanDate:   sl.LoanDate,
			DueDate:    sl.DueDate,
			IsLent:     true,
			InputDate:  now,
			LastUpdate: now,
		}
		loanID, err := e.loans.CreateLoan(ctx, loan)
		if err != nil {
			failures++
			status := StatusTransFlushError
			if errors.Is(err, apperrors.ErrItemAlreadyOnLoan) {
				// Lost the race against a concurrent checkout.
				status = StatusItemUnavailable
			}
			receipt.Failures = append(receipt.Failures, FlushFailure{
				ItemCode: sl.ItemCode,
				Status:   status,
				Reason:   err.Error(),
			})
			monitoring.RecordCheckout("failure")
			e.logger.ErrorContext(ctx, "Failed to persist staged loan",
				"member_id", session.MemberID,
				"item_code", sl.ItemCode,
				"error", err,
			)
			continue
		}
		loan.ID = loanID

		if lerr := e.ledger.RecordLoan(ctx, loan); lerr != nil {
			e.logger.WarnContext(ctx, "Failed to mirror loan into history ledger",
				"loan_id", loanID, "error", lerr)
		}
		if derr := e.reservations.DeleteForMember(ctx, session.MemberID, sl.ItemCode); derr != nil {
			e.logger.WarnContext(ctx, "Failed to clear satisfied reservation",
				"member_id", session.MemberID, "item_code", sl.ItemCode, "error", derr)
		}
		if perr := e.events.PublishLoanCheckedOut(ctx, event.LoanCheckedOutEvent{
			LoanID:   loanID,
			ItemCode: sl.ItemCode,
			MemberID: session.MemberID,
			LoanDate: sl.LoanDate,
			DueDate:  sl.DueDate,
		}); perr != nil {
			e.logger.WarnContext(ctx, "Failed to publish checkout event", "loan_id", loanID, "error", perr)
		}

		receipt.Loans = append(receipt.Loans, LoanLine{
			LoanID:         loanID,
			ItemCode:       sl.ItemCode,
			Title:          sl.Title,
			Classification: sl.Classification,
			LoanDate:       sl.LoanDate,
			DueDate:        sl.DueDate,
		})
		monitoring.RecordCheckout("success")
	}

	session.Clear()

	if failures > 0 {
		return StatusTransFlushError, nil
	}
	return StatusTransFlushSuccess, nil
}

func (e *engineImpl) ReturnItem(ctx context.Context, loanID int64, receipt *Receipt) (*ReturnResult, error) {
	loan, err := e.loans.GetLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	m, err := e.members.GetMember(ctx, loan.MemberID)
	if err != nil {
		return nil, fmt.Errorf("loading member %s: %w", loan.MemberID, err)
	}

	assessment, err := e.settleReturn(ctx, loan, m, receipt)
	if err != nil {
		return nil, err
	}

	result := &ReturnResult{Status: StatusSuccess, Overdue: assessment}
	heldByOther, err := e.guard.HeldByOther(ctx, loan.ItemCode, loan.MemberID)
	if err != nil {
		// The return itself already succeeded; the reservation signal
		// is informational only.
		e.logger.WarnContext(ctx, "Failed to check reservations after return",
			"loan_id", loanID, "error", err)
	} else if heldByOther {
		result.Status = StatusItemReserved
	}
	monitoring.RecordReturn(string(result.Status))
	return result, nil
}

func (e *engineImpl) ExtendLoan(ctx context.Context, session *LoanSession, loanID int64, receipt *Receipt) (Status, error) {
	loan, err := e.loans.GetLoanByID(ctx, loanID)
	if err != nil {
		return "", err
	}

	heldByOther, err := e.guard.HeldByOther(ctx, loan.ItemCode, loan.MemberID)
	if err != nil {
		return "", err
	}
	if heldByOther {
		monitoring.RecordRenewal(string(StatusItemReserved))
		return StatusItemReserved, nil
	}

	m, err := e.members.GetMember(ctx, loan.MemberID)
	if err != nil {
		return "", fmt.Errorf("loading member %s: %w", loan.MemberID, err)
	}

	// Settle the current term first so any accrued fine is booked.
	if _, err := e.settleReturn(ctx, loan, m, receipt); err != nil {
		return "", err
	}

	pol, err := e.rules.PolicyForRule(ctx, loan.RuleID, m.BaselinePolicy())
	if err != nil {
		return "", err
	}

	today := calendar.DateOnly(e.now())
	dueDate := e.cal.NextNonHoliday(calendar.AddDays(today, pol.LoanPeriod))
	dueDate = clampToExpiry(dueDate, m.ExpireDate)

	if err := e.loans.RenewLoan(ctx, loanID, loan.MemberID, dueDate); err != nil {
		return "", fmt.Errorf("renewing loan %d: %w", loanID, err)
	}
	if lerr := e.ledger.RecordRenewal(ctx, loanID, dueDate); lerr != nil {
		e.logger.WarnContext(ctx, "Failed to mirror renewal into history ledger",
			"loan_id", loanID, "error", lerr)
	}
	if perr := e.events.PublishLoanRenewed(ctx, event.LoanRenewedEvent{
		LoanID:   loanID,
		ItemCode: loan.ItemCode,
		MemberID: loan.MemberID,
		DueDate:  dueDate,
	}); perr != nil {
		e.logger.WarnContext(ctx, "Failed to publish renewal event", "loan_id", loanID, "error", perr)
	}

	if session != nil {
		session.TrackRenewal(loanID)
	}
	receipt.Extends = append(receipt.Extends, ExtendLine{
		LoanID:   loanID,
		ItemCode: loan.ItemCode,
		LoanDate: today,
		DueDate:  dueDate,
	})
	e.logger.InfoContext(ctx, "Loan extended",
		"loan_id", loanID,
		"member_id", loan.MemberID,
		"due_date", dueDate.Format(time.DateOnly),
	)
	monitoring.RecordRenewal(string(StatusSuccess))
	return StatusSuccess, nil
}

// settleReturn books the overdue fine (if any) and marks the loan
// returned. It is shared by ReturnItem and ExtendLoan; the reservation
// post-check is the caller's business.
func (e *engineImpl) settleReturn(ctx context.Context, loan *Loan, m *member.Member, receipt *Receipt) (*overdue.Assessment, error) {
	today := calendar.DateOnly(e.now())
	baseline := m.BaselinePolicy()

	var rulePolicy *loanrule.Policy
	if loan.RuleID != 0 {
		pol, err := e.rules.PolicyForRule(ctx, loan.RuleID, baseline)
		if err != nil {
			return nil, err
		}
		if pol.RuleID != 0 {
			rulePolicy = &pol
		}
	}

	assessment := e.calc.Assess(loan.DueDate, today, baseline, rulePolicy)
	if assessment != nil {
		receipt.Fines = append(receipt.Fines, FineLine{
			Days:    assessment.Days,
			OnGrace: assessment.OnGrace,
			Value:   assessment.Fine,
		})
		if !assessment.OnGrace && assessment.Days > 0 {
			fine := &Fine{
				MemberID:    loan.MemberID,
				Date:        today,
				Amount:      assessment.Fine,
				Description: fmt.Sprintf("Overdue fines for item %s", loan.ItemCode),
			}
			if err := e.loans.CreateFine(ctx, fine); err != nil {
				return nil, fmt.Errorf("recording fine for loan %d: %w", loan.ID, err)
			}
			amount, _ := assessment.Fine.Float64()
			monitoring.RecordFine(amount)
			e.logger.InfoContext(ctx, "Overdue fine assessed",
				"loan_id", loan.ID,
				"member_id", loan.MemberID,
				"overdue_days", assessment.Days,
				"fine", assessment.Fine.String(),
			)
		}
	}

	if err := e.loans.MarkReturned(ctx, loan.ID, loan.MemberID, today); err != nil {
		return nil, fmt.Errorf("marking loan %d returned: %w", loan.ID, err)
	}
	if lerr := e.ledger.RecordReturn(ctx, loan.ID, today); lerr != nil {
		e.logger.WarnContext(ctx, "Failed to mirror return into history ledger",
			"loan_id", loan.ID, "error", lerr)
	}

	line := ReturnLine{
		LoanID:     loan.ID,
		ItemCode:   loan.ItemCode,
		ReturnDate: today,
	}
	returnedEvent := event.LoanReturnedEvent{
		LoanID:     loan.ID,
		ItemCode:   loan.ItemCode,
		MemberID:   loan.MemberID,
		ReturnDate: today,
	}
	if assessment != nil {
		line.OverdueDays = assessment.Days
		line.OnGrace = assessment.OnGrace
		line.Fine = assessment.Fine
		returnedEvent.OverdueDays = assessment.Days
		returnedEvent.Fine = assessment.Fine
	}
	receipt.Returns = append(receipt.Returns, line)
	if perr := e.events.PublishLoanReturned(ctx, returnedEvent); perr != nil {
		e.logger.WarnContext(ctx, "Failed to publish return event", "loan_id", loan.ID, "error", perr)
	}
	return assessment, nil
}

func (e *engineImpl) finalizeReceipt(ctx context.Context, memberID string, receipt *Receipt) {
	receipt.Date = e.now()
	receipt.MemberID = memberID
	m, err := e.members.GetMember(ctx, memberID)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to load member for receipt header",
			"member_id", memberID, "error", err)
		return
	}
	receipt.MemberName = m.Name
	receipt.MemberType = m.TypeName
}

// clampToExpiry caps a computed due date at the membership expiry date.
// A due date equal to the expiry date is not clamped.
func clampToExpiry(dueDate, expireDate time.Time) time.Time {
	if expireDate.IsZero() {
		return dueDate
	}
	expiry := calendar.DateOnly(expireDate)
	if dueDate.After(expiry) {
		return expiry
	}
	return dueDate
}
