package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NiftyPulse/internal/domain/models"
)

func newTestCalendar(t *testing.T) *Calendar {
	t.Helper()
	c, err := New(NewIndiaHolidays(), "IN", DefaultTradingStart, DefaultTradingEnd)
	require.NoError(t, err)
	return c
}

func TestWeekendIsNeverTrading(t *testing.T) {
	c := newTestCalendar(t)

	sat := time.Date(2024, 6, 8, 10, 30, 0, 0, time.UTC) // Saturday
	sun := time.Date(2024, 6, 9, 10, 30, 0, 0, time.UTC) // Sunday
	assert.False(t, c.IsTradingInstant(sat))
	assert.False(t, c.IsTradingInstant(sun))

	// Regardless of time-of-day.
	assert.False(t, c.IsTradingInstant(time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)))
	assert.False(t, c.IsTradingInstant(time.Date(2024, 6, 9, 23, 59, 59, 0, time.UTC)))
}

func TestHolidayOnWeekdayIsNonTrading(t *testing.T) {
	c := newTestCalendar(t)

	// Independence Day 2024 falls on a Thursday.
	independence := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	require.Equal(t, time.Thursday, independence.Weekday())
	assert.False(t, c.IsTradingInstant(independence))

	reason, name, nonTrading := c.ClassifyDay(independence)
	require.True(t, nonTrading)
	assert.Equal(t, models.ReasonHoliday, reason)
	assert.Equal(t, "Independence Day", name)
}

func TestTradingWindowInclusiveBounds(t *testing.T) {
	c := newTestCalendar(t)

	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC) // Monday, no holiday
	at := func(h, m, s int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, time.UTC)
	}

	assert.True(t, c.IsTradingInstant(at(9, 15, 0)), "window start is inclusive")
	assert.True(t, c.IsTradingInstant(at(15, 30, 0)), "window end is inclusive")
	assert.True(t, c.IsTradingInstant(at(15, 29, 59)), "15:29:xx bars are inside")
	assert.False(t, c.IsTradingInstant(at(9, 14, 59)))
	assert.False(t, c.IsTradingInstant(at(15, 30, 1)))
	assert.False(t, c.IsTradingInstant(at(3, 0, 0)))
}

func TestZeroInstantIsNonTrading(t *testing.T) {
	c := newTestCalendar(t)
	assert.False(t, c.IsTradingInstant(time.Time{}))
}

type failingProvider struct{}

func (failingProvider) HolidaysFor(string, []int) (map[string]string, error) {
	return nil, errors.New("no such calendar")
}

func TestUnknownProviderDegradesToNoHolidays(t *testing.T) {
	c, err := New(failingProvider{}, "XX", DefaultTradingStart, DefaultTradingEnd)
	require.NoError(t, err)

	// Would be a holiday under the India calendar; with a failing
	// provider the weekday session counts as trading.
	independence := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	assert.True(t, c.IsTradingInstant(independence))
}

func TestNilProviderNoHolidays(t *testing.T) {
	c, err := New(nil, "IN", DefaultTradingStart, DefaultTradingEnd)
	require.NoError(t, err)
	assert.True(t, c.IsTradingInstant(time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)))
}

func TestHolidaySetsCachedPerYear(t *testing.T) {
	c := newTestCalendar(t)
	c.EnsureYears([]int{2023, 2024})

	_, ok := c.HolidayName(time.Date(2023, 11, 12, 10, 0, 0, 0, time.UTC)) // Diwali 2023
	assert.True(t, ok)
	_, ok = c.HolidayName(time.Date(2024, 11, 1, 10, 0, 0, 0, time.UTC)) // Diwali 2024
	assert.True(t, ok)
}

func TestWindowLabel(t *testing.T) {
	c := newTestCalendar(t)
	assert.Equal(t, "09:15-15:30", c.WindowLabel())
}

func TestParseClockRejectsGarbage(t *testing.T) {
	_, err := ParseClock("not-a-time")
	assert.Error(t, err)
}

func TestInvalidWindowOrder(t *testing.T) {
	_, err := New(nil, "IN", "15:30:00", "09:15:00")
	assert.Error(t, err)
}
