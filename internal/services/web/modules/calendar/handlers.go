package calendar

import (
	"net/http"
	"strconv"
	"time"

	"github.com/doosr/doosr/internal/core/fixedcalendar"
	apperrors "github.com/doosr/doosr/internal/platform/errors"
	"github.com/doosr/doosr/internal/services/web/platform/httpx"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/routepath"
)

const dateLayout = "2006-01-02"

var errInvalidDate = apperrors.New(apperrors.KindInvalidInput, "web.calendar.invalid_date", "date does not exist")

type handlers struct {
	modulehandler.Base
	now func() time.Time
}

// FixedDate is the JSON form of a fixed calendar date.
type FixedDate struct {
	Year      int    `json:"year"`
	Month     int    `json:"month,omitempty"`
	Day       int    `json:"day,omitempty"`
	Special   string `json:"special,omitempty"`
	MonthName string `json:"month_name,omitempty"`
	Weekday   string `json:"weekday,omitempty"`
	Week      int    `json:"week,omitempty"`
	DayOfYear int    `json:"day_of_year"`
	Display   string `json:"display"`
}

// Conversion pairs a Gregorian civil date with its fixed date.
type Conversion struct {
	Gregorian string    `json:"gregorian"`
	Fixed     FixedDate `json:"fixed"`
}

// Convert describes the fixed date of a Gregorian civil date.
func Convert(gregorian time.Time) Conversion {
	d := fixedcalendar.FromGregorian(gregorian)
	out := FixedDate{
		Year:      d.Year,
		Month:     d.Month,
		Day:       d.Day,
		MonthName: d.MonthName(),
		Week:      d.Week(),
		DayOfYear: d.DayOfYear(),
		Display:   d.String(),
	}
	switch d.Special {
	case fixedcalendar.LeapDay:
		out.Special = "leap_day"
	case fixedcalendar.YearDay:
		out.Special = "year_day"
	}
	if weekday, ok := d.Weekday(); ok {
		out.Weekday = weekday.String()
	}
	return Conversion{Gregorian: gregorian.Format(dateLayout), Fixed: out}
}

func (h handlers) handleCurrentYear(w http.ResponseWriter, r *http.Request) {
	today := fixedcalendar.Today(h.now(), h.Location(r))
	httpx.WriteRedirect(w, r, routepath.CalendarYear(strconv.Itoa(today.Year)))
}

func (h handlers) handleYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil || year < 1 || year > 9998 {
		h.WriteError(w, r, errInvalidDate)
		return
	}
	grid, err := fixedcalendar.Year(year)
	if err != nil {
		h.WriteError(w, r, apperrors.Wrap(apperrors.KindInvalidInput, errInvalidDate.Key, "build year grid", err))
		return
	}
	if httpx.WantsJSON(r) {
		days := make([]Conversion, 0, fixedcalendar.YearLength(year))
		start, _ := fixedcalendar.ToGregorian(fixedcalendar.Date{Year: year, Month: 1, Day: 1})
		for i := 0; i < fixedcalendar.YearLength(year); i++ {
			days = append(days, Convert(start.AddDate(0, 0, i)))
		}
		h.WriteJSON(w, days)
		return
	}
	today := fixedcalendar.Today(h.now(), h.Location(r))
	loc := h.Printer(r)
	h.WritePage(w, r, strconv.Itoa(grid.Year), yearPage(grid, today, loc))
}

// handleConvert answers ?date=YYYY-MM-DD with its fixed date, and
// ?year=&month=&day= or ?year=&special=leap_day|year_day with the matching
// Gregorian date.
func (h handlers) handleConvert(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if raw := query.Get("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.WriteError(w, r, errInvalidDate)
			return
		}
		h.WriteJSON(w, Convert(parsed))
		return
	}
	d, err := parseFixed(query.Get("year"), query.Get("month"), query.Get("day"), query.Get("special"))
	if err != nil {
		h.WriteError(w, r, errInvalidDate)
		return
	}
	gregorian, err := fixedcalendar.ToGregorian(d)
	if err != nil {
		h.WriteError(w, r, errInvalidDate)
		return
	}
	h.WriteJSON(w, Convert(gregorian))
}

func parseFixed(rawYear, rawMonth, rawDay, special string) (fixedcalendar.Date, error) {
	year, err := strconv.Atoi(rawYear)
	if err != nil {
		return fixedcalendar.Date{}, err
	}
	switch special {
	case "leap_day":
		return fixedcalendar.Date{Year: year, Special: fixedcalendar.LeapDay}, nil
	case "year_day":
		return fixedcalendar.Date{Year: year, Special: fixedcalendar.YearDay}, nil
	case "":
	default:
		return fixedcalendar.Date{}, fixedcalendar.ErrInvalidDate
	}
	month, err := strconv.Atoi(rawMonth)
	if err != nil {
		return fixedcalendar.Date{}, err
	}
	day, err := strconv.Atoi(rawDay)
	if err != nil {
		return fixedcalendar.Date{}, err
	}
	return fixedcalendar.Date{Year: year, Month: month, Day: day}, nil
}
