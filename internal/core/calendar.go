package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

const displayLayout = "Monday, January 2, 2006"

type (
	// DateParts is the numeric form of an ISO date.
	DateParts struct {
		Year  int
		Month int
		Day   int
	}

	// Calendar holds the reference year, locale and clock the date helpers
	// work against. The zero value uses PlanningYear, en_US and time.Now in
	// the local zone.
	Calendar struct {
		Year     int
		Locale   monday.Locale
		Now      func() time.Time
		Location *time.Location
	}

	CalendarDay struct {
		Date           string
		DayOfMonth     int
		IsCurrentMonth bool
		IsToday        bool
		Events         []Event
		HasPhotos      bool
	}
)

func NewCalendar(year int, locale monday.Locale) Calendar {
	return Calendar{Year: year, Locale: locale}
}

func (c Calendar) year(y int) int {
	if y > 0 {
		return y
	}
	if c.Year > 0 {
		return c.Year
	}
	return PlanningYear
}

func (c Calendar) locale() monday.Locale {
	if c.Locale == "" {
		return monday.LocaleEnUS
	}
	return c.Locale
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c Calendar) now() time.Time {
	if c.Now == nil {
		return time.Now().In(c.location())
	}
	return c.Now().In(c.location())
}

// DaysInMonth returns the Gregorian day count; year <= 0 uses the reference year.
func (c Calendar) DaysInMonth(month, year int) int {
	return daysIn(month, c.year(year))
}

// FirstWeekday returns the weekday of the 1st, 0 being Sunday.
func (c Calendar) FirstWeekday(month, year int) int {
	return int(time.Date(c.year(year), time.Month(month), 1, 0, 0, 0, 0, time.UTC).Weekday())
}

func FormatDate(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// ToISODate formats the calendar date of t in t's own zone.
func ToISODate(t time.Time) string {
	return FormatDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate splits an ISO date into its parts. It accepts only real dates.
func ParseDate(s string) (DateParts, error) {
	fields := strings.Split(strings.TrimSpace(s), "-")
	if len(fields) != 3 {
		return DateParts{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	var nums [3]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return DateParts{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		nums[i] = n
	}
	p := DateParts{Year: nums[0], Month: nums[1], Day: nums[2]}
	if p.Month < 1 || p.Month > 12 {
		return DateParts{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	if p.Day < 1 || p.Day > daysIn(p.Month, p.Year) {
		return DateParts{}, fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return p, nil
}

func (p DateParts) String() string {
	return FormatDate(p.Year, p.Month, p.Day)
}

// Date converts the parts into a Date.
func (p DateParts) Date() Date {
	return NewDate(p.Year, p.Month, p.Day)
}

// Today is the ISO date of the clock in the calendar's location.
func (c Calendar) Today() string {
	return ToISODate(c.now())
}

// IsToday compares iso with the clock's date rendered by the same formatter.
func (c Calendar) IsToday(iso string) bool {
	return iso == c.Today()
}

// MonthName returns the localized full month name.
func (c Calendar) MonthName(month int) string {
	t := time.Date(c.year(0), time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return monday.Format(t, "January", c.locale())
}

func (c Calendar) DayName(iso string) (string, error) {
	t, err := parseLocal(iso)
	if err != nil {
		return "", err
	}
	return monday.Format(t, "Monday", c.locale()), nil
}

// FormatDisplayDate renders iso as weekday, month name, day and year.
func (c Calendar) FormatDisplayDate(iso string) (string, error) {
	t, err := parseLocal(iso)
	if err != nil {
		return "", err
	}
	return monday.Format(t, displayLayout, c.locale()), nil
}

// GenerateDateRange enumerates every date from start to end inclusive.
// An end before start yields an empty slice.
func GenerateDateRange(start, end string) ([]string, error) {
	s, err := parseLocal(start)
	if err != nil {
		return nil, err
	}
	e, err := parseLocal(end)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		out = append(out, ToISODate(d))
	}
	return out, nil
}

// MonthRange returns the first and last date of a month.
func (c Calendar) MonthRange(month, year int) (Date, Date) {
	y := c.year(year)
	return NewDate(y, month, 1), NewDate(y, month, daysIn(month, y))
}

// MonthGrid lays out a month in Sunday-first weeks, padding with the
// trailing days of the previous month and the leading days of the next.
func (c Calendar) MonthGrid(month, year int, events []Event, photoDates map[string]bool) []CalendarDay {
	y := c.year(year)
	first := time.Date(y, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	last := first.AddDate(0, 1, -1)
	end := last.AddDate(0, 0, 6-int(last.Weekday()))

	byDate := make(map[string][]Event)
	for _, ev := range events {
		key := ev.Date.String()
		byDate[key] = append(byDate[key], ev)
	}
	today := c.Today()

	var days []CalendarDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		iso := ToISODate(d)
		days = append(days, CalendarDay{
			Date:           iso,
			DayOfMonth:     d.Day(),
			IsCurrentMonth: int(d.Month()) == month,
			IsToday:        iso == today,
			Events:         byDate[iso],
			HasPhotos:      photoDates[iso],
		})
	}
	return days
}

func parseLocal(iso string) (time.Time, error) {
	p, err := ParseDate(iso)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(p.Year, time.Month(p.Month), p.Day, 0, 0, 0, 0, time.UTC), nil
}
