package calendar

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/platform/requestmeta"
	"github.com/doosr/doosr/internal/services/web/platform/webctx"
	"github.com/google/go-cmp/cmp"
)

var testNow = time.Date(2026, 9, 17, 10, 0, 0, 0, time.UTC)

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	m, err := New(modulehandler.NewBase(requestmeta.SchemePolicy{}, nil)).WithClock(func() time.Time { return testNow }).Mount()
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	return m.Handler
}

func get(h http.Handler, target string, wantJSON bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if wantJSON {
		req.Header.Set("Accept", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCurrentYearRedirect(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	rec := get(h, "/calendar/", false)
	if got := rec.Header().Get("Location"); rec.Code != http.StatusSeeOther || got != "/calendar/2026" {
		t.Fatalf("status %d Location %q", rec.Code, got)
	}

	// Noon UTC on 2026-03-19 is already 2026-03-20 in UTC+14.
	early := httptest.NewRequest(http.MethodGet, "/calendar/", nil)
	zone := time.FixedZone("UTC+14", 14*60*60)
	early = early.WithContext(webctx.WithViewer(early.Context(), module.Viewer{UserID: "u1", Location: zone}))
	m, err := New(modulehandler.NewBase(requestmeta.SchemePolicy{}, nil)).WithClock(func() time.Time {
		return time.Date(2026, 3, 19, 12, 0, 0, 0, time.UTC)
	}).Mount()
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	rec = httptest.NewRecorder()
	m.Handler.ServeHTTP(rec, early)
	if got := rec.Header().Get("Location"); got != "/calendar/2026" {
		t.Fatalf("Location in UTC+14 = %q, want /calendar/2026", got)
	}
}

func TestConvertGregorianToFixed(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	tests := map[string]Conversion{
		"date=2026-09-17": {Gregorian: "2026-09-17", Fixed: FixedDate{
			Year: 2026, Month: 7, Day: 14, MonthName: "Sol", Weekday: "Saturday", Week: 2, DayOfYear: 182, Display: "Sol 14, 2026",
		}},
		"year=2026&special=year_day": {Gregorian: "2027-03-19", Fixed: FixedDate{
			Year: 2026, Special: "year_day", DayOfYear: 365, Display: "Year Day 2026",
		}},
		"year=2027&special=leap_day": {Gregorian: "2027-09-04", Fixed: FixedDate{
			Year: 2027, Special: "leap_day", DayOfYear: 169, Display: "Leap Day 2027",
		}},
		"year=2026&month=1&day=1": {Gregorian: "2026-03-20", Fixed: FixedDate{
			Year: 2026, Month: 1, Day: 1, MonthName: "January", Weekday: "Sunday", Week: 1, DayOfYear: 1, Display: "January 1, 2026",
		}},
	}
	for query, want := range tests {
		rec := get(h, "/calendar/convert?"+query, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", query, rec.Code)
		}
		var got Conversion
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("%s: decode: %v", query, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s: conversion mismatch (-want +got):\n%s", query, diff)
		}
	}
}

func TestConvertRejectsImpossibleDates(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	for _, query := range []string{"date=2026-02-30", "year=2026&special=leap_day", "year=2026&month=14&day=1", "year=2026&month=1&day=29", "year=x", "year=2026&special=moon"} {
		if rec := get(h, "/calendar/convert?"+query, true); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want %d", query, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestYearPage(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	body := get(h, "/calendar/2026", false).Body.String()
	for _, want := range []string{
		`<caption>Sol</caption>`,
		`<td data-date="2026-09-17" class="today" aria-current="date"><a href="/days/2026-09-17" title="2026-09-17">14</a></td>`,
		`data-date="2027-03-19"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("year page missing %q", want)
		}
	}
	if strings.Count(body, `<table class="month"`) != 13 {
		t.Fatalf("year page should render 13 months")
	}

	var days []Conversion
	if err := json.NewDecoder(get(h, "/calendar/2027", true).Body).Decode(&days); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(days) != 366 || days[168].Fixed.Special != "leap_day" {
		t.Fatalf("2027 has %d days, day 169 = %+v", len(days), days[168].Fixed)
	}

	if rec := get(h, "/calendar/nope", true); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad year status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
