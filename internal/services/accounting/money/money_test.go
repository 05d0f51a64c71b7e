package money

import (
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func TestFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		minor  int64
		code   string
		tag    language.Tag
		number string
		symbol string
	}{
		{minor: 123456, code: "USD", tag: language.AmericanEnglish, number: "1,234.56", symbol: "$"},
		{minor: 123456, code: "brl", tag: language.BrazilianPortuguese, number: "1.234,56", symbol: "R$"},
		{minor: 1500, code: "JPY", tag: language.AmericanEnglish, number: "1,500", symbol: ""},
	}
	for _, tc := range tests {
		got := Format(tc.minor, tc.code, tc.tag)
		if !strings.Contains(got, tc.number) || !strings.Contains(got, tc.symbol) {
			t.Fatalf("Format(%d, %s) = %q, want %s and %s", tc.minor, tc.code, got, tc.symbol, tc.number)
		}
	}
}

func TestScale(t *testing.T) {
	t.Parallel()
	usd, err := Unit("usd")
	if err != nil {
		t.Fatalf("unit: %v", err)
	}
	if Scale(usd) != 2 {
		t.Fatalf("Scale(USD) = %d, want 2", Scale(usd))
	}
	if _, err := Unit("ZZZ"); err == nil {
		t.Fatal("expected error for unknown currency")
	}
}

func TestFormatUnknownCurrency(t *testing.T) {
	t.Parallel()
	if got := Format(42, "??", language.AmericanEnglish); got != "42 ??" {
		t.Fatalf("Format = %q", got)
	}
}

func TestParseMinor(t *testing.T) {
	t.Parallel()
	valid := map[string]int64{
		"12.5":   1250,
		"12.05":  1205,
		"0.99":   99,
		" 7 ":    700,
		".5":     50,
		"-3":     -300,
		"1000.":  100000,
		"0":      0,
		"-0.01":  -1,
		"42.10":  4210,
		"000.10": 10,
	}
	for input, want := range valid {
		got, err := ParseMinor(input, 2)
		if err != nil || got != want {
			t.Fatalf("ParseMinor(%q, 2) = %d, %v; want %d", input, got, err, want)
		}
	}
	for _, input := range []string{"", "-", ".", "1.234", "1,5", "abc", "1.2.3", "99999999999999999999"} {
		if _, err := ParseMinor(input, 2); err == nil {
			t.Fatalf("ParseMinor(%q, 2) succeeded, want error", input)
		}
	}
	if got, err := ParseMinor("1.5", 3); err != nil || got != 1500 {
		t.Fatalf("ParseMinor(1.5, 3) = %d, %v; want 1500", got, err)
	}
}
