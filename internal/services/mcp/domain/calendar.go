package domain

import (
	"context"

	"github.com/doosr/doosr/internal/core/fixedcalendar"
	"github.com/doosr/doosr/internal/core/tokens"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FixedDateInput represents the MCP tool input for a calendar conversion.
type FixedDateInput struct {
	Date string `json:"date,omitempty" jsonschema:"Gregorian civil date YYYY-MM-DD; defaults to today"`
}

// FixedDateResult represents the MCP tool output for a calendar conversion.
type FixedDateResult struct {
	Date      string `json:"date" jsonschema:"Gregorian civil date YYYY-MM-DD"`
	Fixed     string `json:"fixed" jsonschema:"formatted fixed date, e.g. Sol 13, 2026"`
	Year      int    `json:"year" jsonschema:"fixed year, starting on March 20"`
	Month     int    `json:"month,omitempty" jsonschema:"month 1 to 13; absent on special days"`
	MonthName string `json:"month_name,omitempty" jsonschema:"month name; absent on special days"`
	Day       int    `json:"day,omitempty" jsonschema:"day of month 1 to 28; absent on special days"`
	Weekday   string `json:"weekday,omitempty" jsonschema:"weekday; every month starts on Sunday"`
	Week      int    `json:"week,omitempty" jsonschema:"week of month 1 to 4"`
	DayOfYear int    `json:"day_of_year" jsonschema:"1-based position in the fixed year"`
	Special   string `json:"special,omitempty" jsonschema:"leap_day or year_day for days outside any month"`
}

// FixedDateTool defines the MCP tool schema for calendar conversion.
func FixedDateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "fixed_date",
		Description: "Converts a Gregorian date to the 13-month, 28-day fixed calendar.",
	}
}

// FixedDateHandler converts a date to the fixed calendar.
func FixedDateHandler(scope Scope) mcp.ToolHandlerFor[FixedDateInput, FixedDateResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input FixedDateInput) (*mcp.CallToolResult, FixedDateResult, error) {
		civil, date, err := scope.civil(input.Date)
		if err != nil {
			return nil, FixedDateResult{}, err
		}
		fixed := fixedcalendar.FromGregorian(civil)
		result := FixedDateResult{
			Date:      date,
			Fixed:     fixed.String(),
			Year:      fixed.Year,
			Month:     fixed.Month,
			MonthName: fixed.MonthName(),
			Day:       fixed.Day,
			Week:      fixed.Week(),
			DayOfYear: fixed.DayOfYear(),
		}
		if weekday, ok := fixed.Weekday(); ok {
			result.Weekday = weekday.String()
		}
		switch fixed.Special {
		case fixedcalendar.LeapDay:
			result.Special = "leap_day"
		case fixedcalendar.YearDay:
			result.Special = "year_day"
		}
		return nil, result, nil
	}
}

// InterpolateInput represents the MCP tool input for placeholder expansion.
type InterpolateInput struct {
	Text string `json:"text" jsonschema:"text containing {{placeholders}} such as {{weekday}} or {{days_until:2026-12-25}}"`
	Date string `json:"date,omitempty" jsonschema:"civil date YYYY-MM-DD the placeholders resolve against; defaults to today"`
}

// InterpolateResult represents the MCP tool output for placeholder expansion.
type InterpolateResult struct {
	Date    string   `json:"date" jsonschema:"civil date used"`
	Text    string   `json:"text" jsonschema:"text with known placeholders replaced"`
	Unknown []string `json:"unknown,omitempty" jsonschema:"placeholder names left verbatim because they are not supported"`
}

// InterpolateTool defines the MCP tool schema for placeholder expansion.
func InterpolateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "interpolate",
		Description: "Expands title placeholders the way the planner renders them on a given day.",
	}
}

// InterpolateHandler expands placeholders in text for a date.
func InterpolateHandler(scope Scope) mcp.ToolHandlerFor[InterpolateInput, InterpolateResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input InterpolateInput) (*mcp.CallToolResult, InterpolateResult, error) {
		civil, date, err := scope.civil(input.Date)
		if err != nil {
			return nil, InterpolateResult{}, err
		}
		result := InterpolateResult{
			Date: date,
			Text: tokens.Interpolate(input.Text, tokens.NewContext(civil)),
		}
		seen := map[string]bool{}
		for _, name := range tokens.Tokens(input.Text) {
			if tokens.Known(name) || seen[name] {
				continue
			}
			seen[name] = true
			result.Unknown = append(result.Unknown, name)
		}
		return nil, result, nil
	}
}
