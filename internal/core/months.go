package core

import "time"

// PlanningYear is the default reference year of the planner.
const PlanningYear = 2026

type MonthData struct {
	Number      int
	Name        string
	ShortName   string
	DaysInMonth int
}

// Months returns the month registry for the given year; year <= 0 selects
// PlanningYear.
func Months(year int) []MonthData {
	if year <= 0 {
		year = PlanningYear
	}
	out := make([]MonthData, 0, 12)
	for m := time.January; m <= time.December; m++ {
		name := m.String()
		out = append(out, MonthData{
			Number:      int(m),
			Name:        name,
			ShortName:   name[:3],
			DaysInMonth: daysIn(int(m), year),
		})
	}
	return out
}

// Month looks up one entry of the registry.
func Month(number, year int) (MonthData, bool) {
	if number < 1 || number > 12 {
		return MonthData{}, false
	}
	return Months(year)[number-1], true
}

func daysIn(month, year int) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
