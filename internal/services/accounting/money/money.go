// Package money formats integer minor-unit amounts for display.
package money

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Unit parses an ISO 4217 code.
func Unit(code string) (currency.Unit, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return currency.Unit{}, fmt.Errorf("currency %q: %w", code, err)
	}
	return unit, nil
}

// Scale returns the number of minor-unit digits for unit.
func Scale(unit currency.Unit) int {
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

// Format renders minor units of code in the conventions of tag, such as
// "$ 1,234.56" for en-US. Unknown codes fall back to the plain number.
func Format(minor int64, code string, tag language.Tag) string {
	printer := message.NewPrinter(tag)
	unit, err := Unit(code)
	if err != nil {
		return printer.Sprintf("%d %s", minor, code)
	}
	value := float64(minor) / math.Pow10(Scale(unit))
	return printer.Sprint(currency.Symbol(unit.Amount(value)))
}

// ParseMinor parses a plain decimal such as "12.5" or "-3" into an integer
// scaled by 10^scale. Extra fractional digits are rejected, not rounded.
func ParseMinor(value string, scale int) (int64, error) {
	value = strings.TrimSpace(value)
	negative := strings.HasPrefix(value, "-")
	whole, frac, _ := strings.Cut(strings.TrimPrefix(value, "-"), ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("amount %q is empty", value)
	}
	if len(frac) > scale {
		return 0, fmt.Errorf("amount %q has more than %d decimals", value, scale)
	}
	digits := whole + frac + strings.Repeat("0", scale-len(frac))
	var out int64
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("amount %q is not a decimal number", value)
		}
		if out > (math.MaxInt64-int64(r-'0'))/10 {
			return 0, fmt.Errorf("amount %q is too large", value)
		}
		out = out*10 + int64(r-'0')
	}
	if negative {
		out = -out
	}
	return out, nil
}
