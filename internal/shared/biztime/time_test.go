package biztime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthWindowUTC(t *testing.T) {
	MustInit(DefaultTimezone)

	start, end := MonthWindowUTC(2025, time.March)

	// Helsinki is UTC+2 before the DST switch on the last Sunday of March
	assert.Equal(t, time.Date(2025, time.February, 28, 22, 0, 0, 0, time.UTC), start)
	// and UTC+3 after it
	assert.Equal(t, time.Date(2025, time.March, 31, 21, 0, 0, 0, time.UTC), end)
}

func TestPreviousMonth(t *testing.T) {
	MustInit(DefaultTimezone)

	tests := []struct {
		name      string
		at        time.Time
		wantYear  int
		wantMonth time.Month
	}{
		{"mid year", time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC), 2025, time.May},
		{"january rolls back a year", time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC), 2024, time.December},
		{"utc evening already next month in helsinki", time.Date(2025, time.April, 30, 22, 30, 0, 0, time.UTC), 2025, time.April},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, m := PreviousMonth(tt.at)
			assert.Equal(t, tt.wantYear, y)
			assert.Equal(t, tt.wantMonth, m)
		})
	}
}

func TestStartOfDayUTC(t *testing.T) {
	MustInit(DefaultTimezone)

	got := StartOfDayUTC(time.Date(2025, time.January, 5, 23, 30, 0, 0, time.UTC))

	assert.Equal(t, time.Date(2025, time.January, 5, 22, 0, 0, 0, time.UTC), got)
}
