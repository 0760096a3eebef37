package calendar

import (
	"fmt"
	"time"
)

// IndiaHolidays provides the Indian national holiday calendar without
// network access. Fixed-date holidays are generated per year; movable
// festival dates come from a built-in table covering recent years.
// Years outside the table only carry the fixed-date set.
type IndiaHolidays struct{}

// NewIndiaHolidays returns the provider for country code "IN".
func NewIndiaHolidays() *IndiaHolidays { return &IndiaHolidays{} }

// HolidaysFor implements repository.HolidayProvider. Unknown country
// codes yield an error so callers can degrade to an empty set.
func (p *IndiaHolidays) HolidaysFor(countryCode string, years []int) (map[string]string, error) {
	if countryCode != "IN" {
		return nil, fmt.Errorf("unknown holiday country code %q", countryCode)
	}
	out := make(map[string]string)
	for _, y := range years {
		addFixed(out, y)
		for _, h := range movableByYear[y] {
			out[h.date] = h.name
		}
	}
	return out, nil
}

func addFixed(out map[string]string, year int) {
	fixed := []struct {
		month time.Month
		day   int
		name  string
	}{
		{time.January, 26, "Republic Day"},
		{time.August, 15, "Independence Day"},
		{time.October, 2, "Gandhi Jayanti"},
		{time.December, 25, "Christmas"},
	}
	for _, f := range fixed {
		d := time.Date(year, f.month, f.day, 0, 0, 0, 0, time.UTC)
		out[d.Format(dateKeyLayout)] = f.name
	}
}

type movable struct {
	date string
	name string
}

// NSE-observed movable holidays. Extended as new exchange calendars publish.
var movableByYear = map[int][]movable{
	2023: {
		{"2023-03-07", "Holi"},
		{"2023-03-30", "Ram Navami"},
		{"2023-04-07", "Good Friday"},
		{"2023-04-22", "Id-ul-Fitr"},
		{"2023-05-05", "Buddha Purnima"},
		{"2023-06-29", "Bakri Id"},
		{"2023-09-19", "Ganesh Chaturthi"},
		{"2023-10-24", "Dussehra"},
		{"2023-11-12", "Diwali"},
		{"2023-11-27", "Guru Nanak Jayanti"},
	},
	2024: {
		{"2024-03-08", "Mahashivratri"},
		{"2024-03-25", "Holi"},
		{"2024-03-29", "Good Friday"},
		{"2024-04-11", "Id-ul-Fitr"},
		{"2024-04-17", "Ram Navami"},
		{"2024-06-17", "Bakri Id"},
		{"2024-07-17", "Muharram"},
		{"2024-11-01", "Diwali"},
		{"2024-11-15", "Guru Nanak Jayanti"},
	},
	2025: {
		{"2025-02-26", "Mahashivratri"},
		{"2025-03-14", "Holi"},
		{"2025-03-31", "Id-ul-Fitr"},
		{"2025-04-10", "Mahavir Jayanti"},
		{"2025-04-18", "Good Friday"},
		{"2025-05-01", "Maharashtra Day"},
		{"2025-10-21", "Diwali"},
		{"2025-10-22", "Diwali Balipratipada"},
		{"2025-11-05", "Guru Nanak Jayanti"},
	},
	2026: {
		{"2026-03-03", "Holi"},
		{"2026-03-21", "Id-ul-Fitr"},
		{"2026-04-03", "Good Friday"},
		{"2026-05-01", "Maharashtra Day"},
		{"2026-11-08", "Diwali"},
		{"2026-11-24", "Guru Nanak Jayanti"},
	},
}
