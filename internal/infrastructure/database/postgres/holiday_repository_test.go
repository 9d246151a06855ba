package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
)

func TestLoadCalendar(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}
	defer mockPool.Close()

	repo := NewHolidayRepository(mockPool, logger)

	sunday := 0
	newYear := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery(regexp.QuoteMeta("FROM holidays")).
		WillReturnRows(pgxmock.NewRows([]string{"holiday_dayname", "holiday_date"}).
			AddRow(&sunday, nil).
			AddRow(nil, &newYear))

	cal, err := repo.LoadCalendar(context.Background())

	assert.NoError(t, err)
	assert.True(t, cal.IsHoliday(time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC))) // a Sunday
	assert.True(t, cal.IsHoliday(newYear))
	assert.False(t, cal.IsHoliday(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}
