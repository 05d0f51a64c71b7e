package fixedcalendar

import (
	"fmt"
	"time"
)

// Cell is one day in a month grid.
type Cell struct {
	Date      Date
	Gregorian time.Time
}

// MonthGrid lays a fixed month out as four Sunday-first weeks.
type MonthGrid struct {
	Year  int
	Month int
	Name  string
	Weeks [DaysPerMonth / DaysPerWeek][DaysPerWeek]Cell
}

// YearGrid is a whole fixed year for display.
type YearGrid struct {
	Year    int
	Months  []MonthGrid
	LeapDay *Cell
	YearDay Cell
}

// Month returns the display grid for month of year.
func Month(year, month int) (MonthGrid, error) {
	if month < 1 || month > MonthsPerYear {
		return MonthGrid{}, fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	first, err := ToGregorian(Date{Year: year, Month: month, Day: 1})
	if err != nil {
		return MonthGrid{}, err
	}
	grid := MonthGrid{Year: year, Month: month, Name: MonthName(month)}
	for day := 1; day <= DaysPerMonth; day++ {
		idx := day - 1
		grid.Weeks[idx/DaysPerWeek][idx%DaysPerWeek] = Cell{
			Date:      Date{Year: year, Month: month, Day: day},
			Gregorian: first.AddDate(0, 0, idx),
		}
	}
	return grid, nil
}

// Year returns every month grid plus the special days of year.
func Year(year int) (YearGrid, error) {
	out := YearGrid{Year: year, Months: make([]MonthGrid, 0, MonthsPerYear)}
	for month := 1; month <= MonthsPerYear; month++ {
		grid, err := Month(year, month)
		if err != nil {
			return YearGrid{}, err
		}
		out.Months = append(out.Months, grid)
	}
	if IsLeapYear(year) {
		leap := Date{Year: year, Special: LeapDay}
		g, err := ToGregorian(leap)
		if err != nil {
			return YearGrid{}, err
		}
		out.LeapDay = &Cell{Date: leap, Gregorian: g}
	}
	yearDay := Date{Year: year, Special: YearDay}
	g, err := ToGregorian(yearDay)
	if err != nil {
		return YearGrid{}, err
	}
	out.YearDay = Cell{Date: yearDay, Gregorian: g}
	return out, nil
}
