package calendar

import (
	"strconv"

	"github.com/a-h/templ"
	"github.com/doosr/doosr/internal/core/fixedcalendar"
	"github.com/doosr/doosr/internal/services/web/routepath"
	ui "github.com/doosr/doosr/internal/services/web/templates"
)

var weekdayKeys = [fixedcalendar.DaysPerWeek]string{
	"web.weekday.Sunday", "web.weekday.Monday", "web.weekday.Tuesday", "web.weekday.Wednesday",
	"web.weekday.Thursday", "web.weekday.Friday", "web.weekday.Saturday",
}

func yearPage(grid fixedcalendar.YearGrid, today fixedcalendar.Date, loc ui.Localizer) templ.Component {
	months := make([]templ.Component, 0, len(grid.Months)+2)
	for _, month := range grid.Months {
		months = append(months, monthTable(month, today, loc))
		if month.Month == 6 && grid.LeapDay != nil {
			months = append(months, specialDay(*grid.LeapDay, "web.calendar.leap_day", today, loc))
		}
	}
	months = append(months, specialDay(grid.YearDay, "web.calendar.year_day", today, loc))
	return ui.El("section", ui.A("class", "calendar", "data-year", strconv.Itoa(grid.Year)),
		ui.El("header", nil,
			ui.El("h1", nil, ui.Text(ui.T(loc, "web.calendar.heading", grid.Year))),
			ui.El("nav", nil,
				ui.Link(routepath.CalendarYear(strconv.Itoa(grid.Year-1)), ui.T(loc, "web.days.previous")),
				ui.Text(" "),
				ui.Link(routepath.CalendarYear(strconv.Itoa(grid.Year+1)), ui.T(loc, "web.days.next")),
			),
		),
		ui.El("div", ui.A("class", "months"), months...),
	)
}

func monthTable(month fixedcalendar.MonthGrid, today fixedcalendar.Date, loc ui.Localizer) templ.Component {
	head := make([]templ.Component, 0, fixedcalendar.DaysPerWeek)
	for _, key := range weekdayKeys {
		head = append(head, ui.El("th", ui.A("scope", "col"), ui.Text(ui.T(loc, key))))
	}
	rows := make([]templ.Component, 0, len(month.Weeks))
	for _, week := range month.Weeks {
		cells := make([]templ.Component, 0, len(week))
		for _, cell := range week {
			cells = append(cells, dayCell(cell, today))
		}
		rows = append(rows, ui.El("tr", nil, cells...))
	}
	return ui.El("table", ui.A("class", "month", "data-month", strconv.Itoa(month.Month)),
		ui.El("caption", nil, ui.Text(month.Name)),
		ui.El("thead", nil, ui.El("tr", nil, head...)),
		ui.El("tbody", nil, rows...),
	)
}

func dayCell(cell fixedcalendar.Cell, today fixedcalendar.Date) templ.Component {
	date := cell.Gregorian.Format(dateLayout)
	attrs := ui.A("data-date", date)
	if cell.Date == today {
		attrs = append(attrs, ui.A("class", "today", "aria-current", "date")...)
	}
	return ui.El("td", attrs, ui.Link(routepath.Day(date), strconv.Itoa(cell.Date.Day), ui.A("title", date)...))
}

func specialDay(cell fixedcalendar.Cell, key string, today fixedcalendar.Date, loc ui.Localizer) templ.Component {
	date := cell.Gregorian.Format(dateLayout)
	class := "special"
	if cell.Date == today {
		class += " today"
	}
	return ui.El("p", ui.A("class", class, "data-date", date),
		ui.Link(routepath.Day(date), ui.T(loc, key), ui.A("title", date)...),
	)
}
