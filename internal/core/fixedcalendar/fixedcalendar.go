// Package fixedcalendar converts between Gregorian dates and a fixed
// calendar of 13 months with 28 days each.
//
// A fixed year Y starts on Gregorian March 20 of Y. The 364 regular days
// are followed by Year Day, which belongs to no month and no week. When the
// span contains a February 29 (Gregorian Y+1 is a leap year) a Leap Day is
// inserted between month 6 day 28 and month 7 day 1. Every month starts on
// Sunday.
package fixedcalendar

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MonthsPerYear is the number of regular months.
	MonthsPerYear = 13
	// DaysPerMonth is the length of every regular month.
	DaysPerMonth = 28
	// DaysPerWeek is the length of a fixed week.
	DaysPerWeek = 7

	startMonth    = time.March
	startDay      = 20
	regularDays   = MonthsPerYear * DaysPerMonth
	leapDayOffset = 6 * DaysPerMonth
)

// Special marks the intercalary days that belong to no month.
type Special int

const (
	None Special = iota
	LeapDay
	YearDay
)

var monthNames = [MonthsPerYear]string{
	"January", "February", "March", "April", "May", "June", "Sol",
	"July", "August", "September", "October", "November", "December",
}

// ErrInvalidDate is returned for dates that do not exist in the fixed calendar.
var ErrInvalidDate = errors.New("invalid fixed date")

// Date is a day in the fixed calendar. Month and Day are zero for special days.
type Date struct {
	Year    int
	Month   int
	Day     int
	Special Special
}

// IsLeapYear reports whether fixed year contains a Leap Day.
func IsLeapYear(year int) bool {
	g := year + 1
	return g%4 == 0 && (g%100 != 0 || g%400 == 0)
}

// YearLength returns the number of days in fixed year.
func YearLength(year int) int {
	if IsLeapYear(year) {
		return regularDays + 2
	}
	return regularDays + 1
}

// MonthName returns the name of month 1..13, or "" when out of range.
func MonthName(month int) string {
	if month < 1 || month > MonthsPerYear {
		return ""
	}
	return monthNames[month-1]
}

// FromGregorian converts the civil date of t, read in t's own location.
func FromGregorian(t time.Time) Date {
	civil := civilDate(t.Year(), t.Month(), t.Day())
	year := t.Year()
	if civil.Before(yearStart(year)) {
		year--
	}
	offset := daysBetween(yearStart(year), civil)
	return fromOffset(year, offset)
}

// Today returns the fixed date of now in loc.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return FromGregorian(now.In(loc))
}

// ToGregorian returns midnight UTC of the Gregorian day matching d.
func ToGregorian(d Date) (time.Time, error) {
	offset, err := d.offset()
	if err != nil {
		return time.Time{}, err
	}
	return yearStart(d.Year).AddDate(0, 0, offset), nil
}

// Validate reports whether d exists.
func (d Date) Validate() error {
	_, err := d.offset()
	return err
}

// DayOfYear returns the 1-based position of d in its fixed year, counting
// special days.
func (d Date) DayOfYear() int {
	offset, err := d.offset()
	if err != nil {
		return 0
	}
	return offset + 1
}

// Weekday returns the weekday of a regular day. Special days report false.
func (d Date) Weekday() (time.Weekday, bool) {
	if d.Special != None || d.Day < 1 {
		return 0, false
	}
	return time.Weekday((d.Day - 1) % DaysPerWeek), true
}

// Week returns the 1-based week of a regular day within its month.
func (d Date) Week() int {
	if d.Special != None || d.Day < 1 {
		return 0
	}
	return (d.Day-1)/DaysPerWeek + 1
}

// MonthName returns the month name, or "" for special days.
func (d Date) MonthName() string {
	if d.Special != None {
		return ""
	}
	return MonthName(d.Month)
}

// String formats d as "Sol 14, 2026", "Leap Day 2026" or "Year Day 2026".
func (d Date) String() string {
	switch d.Special {
	case LeapDay:
		return fmt.Sprintf("Leap Day %d", d.Year)
	case YearDay:
		return fmt.Sprintf("Year Day %d", d.Year)
	}
	return fmt.Sprintf("%s %d, %d", MonthName(d.Month), d.Day, d.Year)
}

// AddDays moves d by n days, crossing special days and year boundaries.
func (d Date) AddDays(n int) (Date, error) {
	g, err := ToGregorian(d)
	if err != nil {
		return Date{}, err
	}
	return FromGregorian(g.AddDate(0, 0, n)), nil
}

func (d Date) offset() (int, error) {
	switch d.Special {
	case LeapDay:
		if !IsLeapYear(d.Year) {
			return 0, fmt.Errorf("%w: year %d has no leap day", ErrInvalidDate, d.Year)
		}
		return leapDayOffset, nil
	case YearDay:
		return YearLength(d.Year) - 1, nil
	case None:
	default:
		return 0, fmt.Errorf("%w: unknown special %d", ErrInvalidDate, d.Special)
	}
	if d.Month < 1 || d.Month > MonthsPerYear {
		return 0, fmt.Errorf("%w: month %d", ErrInvalidDate, d.Month)
	}
	if d.Day < 1 || d.Day > DaysPerMonth {
		return 0, fmt.Errorf("%w: day %d", ErrInvalidDate, d.Day)
	}
	offset := (d.Month-1)*DaysPerMonth + d.Day - 1
	if IsLeapYear(d.Year) && offset >= leapDayOffset {
		offset++
	}
	return offset, nil
}

func fromOffset(year, offset int) Date {
	if IsLeapYear(year) {
		if offset == leapDayOffset {
			return Date{Year: year, Special: LeapDay}
		}
		if offset > leapDayOffset {
			offset--
		}
	}
	if offset >= regularDays {
		return Date{Year: year, Special: YearDay}
	}
	return Date{Year: year, Month: offset/DaysPerMonth + 1, Day: offset%DaysPerMonth + 1}
}

func yearStart(year int) time.Time {
	return civilDate(year, startMonth, startDay)
}

func civilDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int((to.Unix() - from.Unix()) / (24 * 60 * 60))
}
