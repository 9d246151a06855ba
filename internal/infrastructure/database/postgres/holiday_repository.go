package postgres

import (
	"circulation-engine/internal/domain/calendar"
	"circulation-engine/internal/pkg/apperrors"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// HolidayRepository reads the holiday master data the Calendar is built
// from. Weekly closing days are stored as a weekday number (0=Sunday)
// with a NULL date; dated holidays carry the concrete date.
type HolidayRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewHolidayRepository(db DBPool, logger *slog.Logger) *HolidayRepository {
	return &HolidayRepository{db: db, logger: logger.With("component", "HolidayRepository")}
}

func (r *HolidayRepository) LoadCalendar(ctx context.Context) (*calendar.Calendar, error) {
	query := `SELECT holiday_dayname, holiday_date FROM holidays`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query holidays", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	var weekdays []time.Weekday
	var dates []time.Time
	for rows.Next() {
		var dayName *int
		var date *time.Time
		if err := rows.Scan(&dayName, &date); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan holiday row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		switch {
		case date != nil:
			dates = append(dates, *date)
		case dayName != nil:
			weekdays = append(weekdays, time.Weekday(*dayName))
		}
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating holiday rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Holiday calendar loaded", "weekly_closings", len(weekdays), "dated_holidays", len(dates))
	return calendar.New(weekdays, dates), nil
}
