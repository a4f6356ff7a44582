package core

import (
	"reflect"
	"testing"
	"time"

	"github.com/goodsign/monday"
)

func TestDaysInMonth(t *testing.T) {
	var c Calendar
	cases := []struct {
		month, year, want int
	}{
		{2, 2026, 28},
		{2, 2028, 29},
		{2, 2100, 28},
		{2, 2000, 29},
		{1, 2026, 31},
		{4, 2026, 30},
		{12, 2026, 31},
		{2, 0, 28}, // reference year 2026
	}
	for _, tc := range cases {
		if got := c.DaysInMonth(tc.month, tc.year); got != tc.want {
			t.Fatalf("DaysInMonth(%d, %d) = %d, want %d", tc.month, tc.year, got, tc.want)
		}
	}
	leap := Calendar{Year: 2028}
	if got := leap.DaysInMonth(2, 0); got != 29 {
		t.Fatalf("reference year 2028: got %d", got)
	}
}

func TestFirstWeekday(t *testing.T) {
	var c Calendar
	// 2026-01-01 is a Thursday, 2026-02-01 a Sunday.
	if got := c.FirstWeekday(1, 2026); got != 4 {
		t.Fatalf("January 2026: got %d", got)
	}
	if got := c.FirstWeekday(2, 0); got != 0 {
		t.Fatalf("February 2026: got %d", got)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, year := range []int{2026, 2028} {
		for month := 1; month <= 12; month++ {
			for day := 1; day <= daysIn(month, year); day++ {
				p, err := ParseDate(FormatDate(year, month, day))
				if err != nil {
					t.Fatalf("%d-%d-%d: %v", year, month, day, err)
				}
				if p != (DateParts{Year: year, Month: month, Day: day}) {
					t.Fatalf("round trip mismatch: %+v", p)
				}
			}
		}
	}
}

func TestParseDateRejects(t *testing.T) {
	for _, in := range []string{"", "2026-02-29", "2026-13-01", "2026-1", "abcd-01-01", "2026-04-31"} {
		if _, err := ParseDate(in); err == nil {
			t.Fatalf("%q expected error", in)
		}
	}
}

func TestGenerateDateRange(t *testing.T) {
	got, err := GenerateDateRange("2026-01-30", "2026-02-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2026-01-30", "2026-01-31", "2026-02-01", "2026-02-02"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	single, _ := GenerateDateRange("2026-06-20", "2026-06-20")
	if !reflect.DeepEqual(single, []string{"2026-06-20"}) {
		t.Fatalf("single day range: %v", single)
	}

	empty, _ := GenerateDateRange("2026-06-21", "2026-06-20")
	if len(empty) != 0 {
		t.Fatalf("reversed range should be empty, got %v", empty)
	}

	leap, _ := GenerateDateRange("2028-02-28", "2028-03-01")
	if len(leap) != 3 || leap[1] != "2028-02-29" {
		t.Fatalf("leap range: %v", leap)
	}
}

func TestIsToday(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("tz data unavailable: %v", err)
	}
	// 23:30 UTC on the 14th is already the 15th in Rome.
	c := Calendar{
		Location: rome,
		Now:      func() time.Time { return time.Date(2026, 10, 14, 23, 30, 0, 0, time.UTC) },
	}
	if !c.IsToday("2026-10-15") {
		t.Fatalf("expected 2026-10-15 to be today in Rome")
	}
	if c.IsToday("2026-10-14") {
		t.Fatalf("2026-10-14 must not be today in Rome")
	}
	if c.IsToday(ToISODate(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC))) {
		t.Fatalf("tomorrow must not be today")
	}
}

func TestLocalizedNames(t *testing.T) {
	en := Calendar{}
	if got := en.MonthName(6); got != "June" {
		t.Fatalf("MonthName: %q", got)
	}
	if got, _ := en.DayName("2026-06-20"); got != "Saturday" {
		t.Fatalf("DayName: %q", got)
	}
	if got, _ := en.FormatDisplayDate("2026-06-20"); got != "Saturday, June 20, 2026" {
		t.Fatalf("FormatDisplayDate: %q", got)
	}
	it := Calendar{Locale: monday.LocaleItIT}
	if got := it.MonthName(6); got != "giugno" {
		t.Fatalf("italian MonthName: %q", got)
	}
	if _, err := en.DayName("not-a-date"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMonthRange(t *testing.T) {
	var c Calendar
	from, to := c.MonthRange(2, 2028)
	if from.String() != "2028-02-01" || to.String() != "2028-02-29" {
		t.Fatalf("got %s..%s", from, to)
	}
}

func TestMonthGrid(t *testing.T) {
	c := Calendar{Location: time.UTC, Now: func() time.Time { return time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC) }}
	events := []Event{{ID: "e1", Date: NewDate(2026, 2, 14), Title: "Dinner"}}
	days := c.MonthGrid(2, 2026, events, map[string]bool{"2026-02-03": true})

	// February 2026 starts on Sunday and ends on Saturday: exactly four weeks.
	if len(days) != 28 {
		t.Fatalf("expected 28 cells, got %d", len(days))
	}
	if days[0].Date != "2026-02-01" || !days[0].IsCurrentMonth {
		t.Fatalf("unexpected first cell: %+v", days[0])
	}
	d14 := days[13]
	if !d14.IsToday || len(d14.Events) != 1 {
		t.Fatalf("unexpected 14th: %+v", d14)
	}
	if !days[2].HasPhotos {
		t.Fatalf("expected photos on the 3rd")
	}

	march := c.MonthGrid(3, 2026, nil, nil)
	if len(march)%7 != 0 || march[0].IsCurrentMonth {
		t.Fatalf("march grid should start with padding and be whole weeks: %d cells", len(march))
	}
}

func TestMonthsRegistry(t *testing.T) {
	ms := Months(0)
	if len(ms) != 12 || ms[1].DaysInMonth != 28 || ms[1].ShortName != "Feb" {
		t.Fatalf("unexpected registry: %+v", ms[1])
	}
	if m, ok := Month(2, 2028); !ok || m.DaysInMonth != 29 {
		t.Fatalf("leap february: %+v", m)
	}
	if _, ok := Month(13, 0); ok {
		t.Fatalf("month 13 must not exist")
	}
}
