package fixedcalendar

import (
	"errors"
	"testing"
	"time"
)

func gregorian(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFromGregorianKnownDates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Time
		want Date
	}{
		{name: "new year", in: gregorian(2026, time.March, 20), want: Date{Year: 2026, Month: 1, Day: 1}},
		{name: "end of first month", in: gregorian(2026, time.April, 16), want: Date{Year: 2026, Month: 1, Day: 28}},
		{name: "second month", in: gregorian(2026, time.April, 17), want: Date{Year: 2026, Month: 2, Day: 1}},
		{name: "before march 20 belongs to previous year", in: gregorian(2026, time.January, 15), want: Date{Year: 2025, Month: 11, Day: 22}},
		{name: "sol in common year", in: gregorian(2026, time.September, 4), want: Date{Year: 2026, Month: 7, Day: 1}},
		{name: "year day common", in: gregorian(2027, time.March, 19), want: Date{Year: 2026, Special: YearDay}},
		{name: "last june day leap", in: gregorian(2027, time.September, 3), want: Date{Year: 2027, Month: 6, Day: 28}},
		{name: "leap day", in: gregorian(2027, time.September, 4), want: Date{Year: 2027, Special: LeapDay}},
		{name: "sol after leap day", in: gregorian(2027, time.September, 5), want: Date{Year: 2027, Month: 7, Day: 1}},
		{name: "february 29 is ordinary", in: gregorian(2028, time.February, 29), want: Date{Year: 2027, Month: 13, Day: 10}},
		{name: "year day leap", in: gregorian(2028, time.March, 19), want: Date{Year: 2027, Special: YearDay}},
	}
	for _, tt := range tests {
		if got := FromGregorian(tt.in); got != tt.want {
			t.Fatalf("%s: FromGregorian(%s) = %+v, want %+v", tt.name, tt.in.Format(time.DateOnly), got, tt.want)
		}
	}
}

func TestFromGregorianUsesCivilDateOfLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC-10", -10*3600)
	late := time.Date(2026, time.March, 19, 23, 30, 0, 0, loc)
	if got := FromGregorian(late); got != (Date{Year: 2025, Special: YearDay}) {
		t.Fatalf("FromGregorian = %+v, want Year Day 2025", got)
	}
	if got := Today(late, time.UTC); got != (Date{Year: 2026, Month: 1, Day: 1}) {
		t.Fatalf("Today(UTC) = %+v, want January 1 2026", got)
	}
}

func TestRoundTripEveryDay(t *testing.T) {
	t.Parallel()

	day := gregorian(2024, time.March, 20)
	end := gregorian(2032, time.March, 20)
	prev := FromGregorian(day.AddDate(0, 0, -1))
	for ; day.Before(end); day = day.AddDate(0, 0, 1) {
		fixed := FromGregorian(day)
		back, err := ToGregorian(fixed)
		if err != nil {
			t.Fatalf("ToGregorian(%+v): %v", fixed, err)
		}
		if !back.Equal(day) {
			t.Fatalf("round trip %s -> %+v -> %s", day.Format(time.DateOnly), fixed, back.Format(time.DateOnly))
		}
		if fixed == prev {
			t.Fatalf("%s repeats fixed date %+v", day.Format(time.DateOnly), fixed)
		}
		prev = fixed
	}
}

func TestYearLength(t *testing.T) {
	t.Parallel()

	for year := 2020; year < 2032; year++ {
		start, _ := ToGregorian(Date{Year: year, Month: 1, Day: 1})
		next, _ := ToGregorian(Date{Year: year + 1, Month: 1, Day: 1})
		days := int(next.Sub(start).Hours() / 24)
		if days != YearLength(year) {
			t.Fatalf("year %d spans %d days, YearLength = %d", year, days, YearLength(year))
		}
	}
	if !IsLeapYear(2027) || IsLeapYear(2026) || IsLeapYear(2099) || !IsLeapYear(2399) {
		t.Fatal("IsLeapYear disagrees with the Gregorian year that follows")
	}
}

func TestToGregorianRejectsInvalidDates(t *testing.T) {
	t.Parallel()

	invalid := []Date{
		{Year: 2026, Month: 0, Day: 1},
		{Year: 2026, Month: 14, Day: 1},
		{Year: 2026, Month: 1, Day: 29},
		{Year: 2026, Month: 1, Day: 0},
		{Year: 2026, Special: LeapDay},
		{Year: 2026, Special: Special(9)},
	}
	for _, d := range invalid {
		if _, err := ToGregorian(d); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("ToGregorian(%+v) err = %v, want ErrInvalidDate", d, err)
		}
	}
}

func TestDateString(t *testing.T) {
	t.Parallel()

	tests := map[Date]string{
		{Year: 2026, Month: 7, Day: 14}:  "Sol 14, 2026",
		{Year: 2026, Month: 13, Day: 28}: "December 28, 2026",
		{Year: 2027, Special: LeapDay}:   "Leap Day 2027",
		{Year: 2026, Special: YearDay}:   "Year Day 2026",
	}
	for d, want := range tests {
		if got := d.String(); got != want {
			t.Fatalf("String() = %q, want %q", got, want)
		}
	}
}

func TestWeekdayAndWeek(t *testing.T) {
	t.Parallel()

	tests := []struct {
		day  int
		want time.Weekday
		week int
	}{
		{1, time.Sunday, 1},
		{7, time.Saturday, 1},
		{8, time.Sunday, 2},
		{28, time.Saturday, 4},
	}
	for _, tt := range tests {
		d := Date{Year: 2026, Month: 3, Day: tt.day}
		got, ok := d.Weekday()
		if !ok || got != tt.want {
			t.Fatalf("day %d Weekday = %v, %v; want %v", tt.day, got, ok, tt.want)
		}
		if w := d.Week(); w != tt.week {
			t.Fatalf("day %d Week = %d, want %d", tt.day, w, tt.week)
		}
	}
	if _, ok := (Date{Year: 2026, Special: YearDay}).Weekday(); ok {
		t.Fatal("Year Day must not have a weekday")
	}
}

func TestDayOfYearCountsSpecials(t *testing.T) {
	t.Parallel()

	if got := (Date{Year: 2027, Special: LeapDay}).DayOfYear(); got != 169 {
		t.Fatalf("leap day DayOfYear = %d, want 169", got)
	}
	if got := (Date{Year: 2027, Month: 7, Day: 1}).DayOfYear(); got != 170 {
		t.Fatalf("Sol 1 DayOfYear = %d, want 170", got)
	}
	if got := (Date{Year: 2027, Special: YearDay}).DayOfYear(); got != 366 {
		t.Fatalf("year day DayOfYear = %d, want 366", got)
	}
}

func TestAddDaysCrossesSpecials(t *testing.T) {
	t.Parallel()

	got, err := Date{Year: 2027, Month: 6, Day: 28}.AddDays(2)
	if err != nil {
		t.Fatalf("AddDays: %v", err)
	}
	if got != (Date{Year: 2027, Month: 7, Day: 1}) {
		t.Fatalf("AddDays = %+v, want Sol 1 2027", got)
	}
}

func TestYearGrid(t *testing.T) {
	t.Parallel()

	grid, err := Year(2027)
	if err != nil {
		t.Fatalf("Year: %v", err)
	}
	if len(grid.Months) != MonthsPerYear {
		t.Fatalf("months = %d, want %d", len(grid.Months), MonthsPerYear)
	}
	if grid.LeapDay == nil || !grid.LeapDay.Gregorian.Equal(gregorian(2027, time.September, 4)) {
		t.Fatalf("leap day cell = %+v", grid.LeapDay)
	}
	sol := grid.Months[6]
	if sol.Name != "Sol" || !sol.Weeks[0][0].Gregorian.Equal(gregorian(2027, time.September, 5)) {
		t.Fatalf("Sol grid starts %s (%s)", sol.Weeks[0][0].Gregorian.Format(time.DateOnly), sol.Name)
	}
	last := grid.Months[12].Weeks[3][6]
	if last.Date != (Date{Year: 2027, Month: 13, Day: 28}) {
		t.Fatalf("last cell = %+v", last.Date)
	}
	if !grid.YearDay.Gregorian.Equal(gregorian(2028, time.March, 19)) {
		t.Fatalf("year day = %s", grid.YearDay.Gregorian.Format(time.DateOnly))
	}

	common, err := Year(2026)
	if err != nil {
		t.Fatalf("Year: %v", err)
	}
	if common.LeapDay != nil {
		t.Fatal("common year must not have a leap day")
	}
	if _, err := Month(2026, 14); err == nil {
		t.Fatal("expected error for month 14")
	}
}
