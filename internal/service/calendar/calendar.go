package calendar

import (
	"fmt"
	"sync"
	"time"

	"NiftyPulse/internal/domain/models"
	drepo "NiftyPulse/internal/domain/repository"
)

const (
	// DefaultTradingStart and DefaultTradingEnd bound the NSE session.
	// The end is 15:30:00 so that bars timestamped 15:29:xx stay inside
	// the inclusive window.
	DefaultTradingStart = "09:15:00"
	DefaultTradingEnd   = "15:30:00"

	dateKeyLayout = "2006-01-02"
)

// Calendar classifies instants as trading or non-trading given weekday,
// a per-year holiday set and a trading-hours window (inclusive both ends).
// Holiday sets are built lazily per year and kept for the calendar's lifetime.
type Calendar struct {
	provider drepo.HolidayProvider
	country  string
	start    time.Duration // offset from midnight
	end      time.Duration

	mu       sync.Mutex
	holidays map[int]map[string]string // year -> date -> holiday name
}

// New creates a Calendar. start and end are clock times like "09:15:00".
// provider may be nil, in which case no day is treated as a holiday.
func New(provider drepo.HolidayProvider, country, start, end string) (*Calendar, error) {
	s, err := ParseClock(start)
	if err != nil {
		return nil, fmt.Errorf("trading start: %w", err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return nil, fmt.Errorf("trading end: %w", err)
	}
	if e < s {
		return nil, fmt.Errorf("trading window end %s before start %s", end, start)
	}
	return &Calendar{
		provider: provider,
		country:  country,
		start:    s,
		end:      e,
		holidays: make(map[int]map[string]string),
	}, nil
}

// ParseClock parses a time-of-day string ("15:04:05") into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

// IsTradingInstant reports whether t falls on a weekday that is not a
// holiday, with a time-of-day inside the trading window.
func (c *Calendar) IsTradingInstant(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	if isWeekend(t) {
		return false
	}
	if _, holiday := c.HolidayName(t); holiday {
		return false
	}
	return c.InWindow(t)
}

// InWindow reports whether the time-of-day of t is inside the trading
// window, inclusive at both ends. The date is ignored.
func (c *Calendar) InWindow(t time.Time) bool {
	tod := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
	return tod >= c.start && tod <= c.end
}

// ClassifyDay reports whether the date of t is a non-trading day and why.
// The trading window is not considered here.
func (c *Calendar) ClassifyDay(t time.Time) (models.NonTradingReason, string, bool) {
	if isWeekend(t) {
		return models.ReasonWeekend, "", true
	}
	if name, ok := c.HolidayName(t); ok {
		return models.ReasonHoliday, name, true
	}
	return "", "", false
}

// HolidayName returns the holiday name for the date of t, loading the
// year's holiday set on first use. A failing provider degrades to an
// empty set rather than an error.
func (c *Calendar) HolidayName(t time.Time) (string, bool) {
	year := t.Year()

	c.mu.Lock()
	set, ok := c.holidays[year]
	if !ok {
		set = c.loadYear(year)
		c.holidays[year] = set
	}
	c.mu.Unlock()

	name, ok := set[t.Format(dateKeyLayout)]
	return name, ok
}

// EnsureYears pre-loads holiday sets for the given years.
func (c *Calendar) EnsureYears(years []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, y := range years {
		if _, ok := c.holidays[y]; !ok {
			c.holidays[y] = c.loadYear(y)
		}
	}
}

// Window returns the trading window as offsets from midnight.
func (c *Calendar) Window() (start, end time.Duration) {
	return c.start, c.end
}

// WindowLabel renders the trading window as "09:15-15:30" for issue messages.
func (c *Calendar) WindowLabel() string {
	return fmt.Sprintf("%s-%s", clockLabel(c.start), clockLabel(c.end))
}

func clockLabel(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

func (c *Calendar) loadYear(year int) map[string]string {
	if c.provider == nil {
		return map[string]string{}
	}
	set, err := c.provider.HolidaysFor(c.country, []int{year})
	if err != nil || set == nil {
		return map[string]string{}
	}
	return set
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
