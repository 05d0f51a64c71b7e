package domain

import (
	"errors"
	"math"
	"testing"
)

func TestLineAmountRoundsHalfUp(t *testing.T) {
	t.Parallel()
	tests := []struct {
		qty, unit, want int64
	}{
		{qty: 1000, unit: 1999, want: 1999},
		{qty: 1500, unit: 333, want: 500},  // 499.5
		{qty: 333, unit: 100, want: 33},    // 33.3
		{qty: 2500, unit: 1, want: 3},      // 2.5
		{qty: 1000, unit: -1250, want: -1250},
		{qty: 500, unit: -5, want: -3},     // -2.5
	}
	for _, tc := range tests {
		got, ok := LineAmount(tc.qty, tc.unit)
		if !ok || got != tc.want {
			t.Fatalf("LineAmount(%d, %d) = %d, %t, want %d", tc.qty, tc.unit, got, ok, tc.want)
		}
	}
}

func TestComputeTotals(t *testing.T) {
	t.Parallel()
	lines := []Line{
		{QuantityMilli: 2000, UnitPriceMinor: 5000},
		{QuantityMilli: 1500, UnitPriceMinor: 333},
	}
	got, err := ComputeTotals(lines, 825)
	if err != nil {
		t.Fatalf("ComputeTotals: %v", err)
	}
	want := Totals{Subtotal: 10500, Tax: 866, Total: 11366} // 866.25
	if got != want {
		t.Fatalf("ComputeTotals = %+v, want %+v", got, want)
	}
	if got, err := ComputeTotals(nil, 2000); err != nil || got != (Totals{}) {
		t.Fatalf("empty totals = %+v, %v", got, err)
	}
}

func TestLineAmountLargeProducts(t *testing.T) {
	t.Parallel()
	// The product exceeds int64 while the rounded amount still fits.
	if got, ok := LineAmount(1e12, 1e9); !ok || got != 1e18 {
		t.Fatalf("LineAmount(1e12, 1e9) = %d, %t, want 1e18", got, ok)
	}
	if got, ok := LineAmount(1e12, 1e10); ok {
		t.Fatalf("LineAmount(1e12, 1e10) = %d, want out of range", got)
	}
}

func TestComputeTotalsRejectsOverflow(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		lines []Line
		tax   int64
	}{
		{name: "line", lines: []Line{{QuantityMilli: 1e12, UnitPriceMinor: 1e10}}},
		{name: "subtotal", lines: []Line{
			{QuantityMilli: 1000, UnitPriceMinor: math.MaxInt64},
			{QuantityMilli: 1000, UnitPriceMinor: 1},
		}},
		{name: "total", lines: []Line{{QuantityMilli: 1000, UnitPriceMinor: math.MaxInt64/2 + 1}}, tax: 10000},
	}
	for _, tc := range tests {
		if got, err := ComputeTotals(tc.lines, tc.tax); !errors.Is(err, ErrAmountTooLarge) {
			t.Fatalf("%s: ComputeTotals = %+v, %v, want ErrAmountTooLarge", tc.name, got, err)
		}
	}
}
