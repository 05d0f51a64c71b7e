package domain

import "math/big"

// Totals are the derived amounts of an invoice in minor units.
type Totals struct {
	Subtotal int64
	Tax      int64
	Total    int64
}

var (
	milli       = big.NewInt(1000)
	basisPoints = big.NewInt(10000)
)

// LineAmount is quantity (thousandths) times unit price, rounded half up.
// Amounts outside int64 report false.
func LineAmount(quantityMilli, unitPriceMinor int64) (int64, bool) {
	amount := lineAmount(quantityMilli, unitPriceMinor)
	if !amount.IsInt64() {
		return 0, false
	}
	return amount.Int64(), true
}

// ComputeTotals sums lines and applies a tax rate in basis points. It
// returns ErrAmountTooLarge when any line or total leaves int64.
func ComputeTotals(lines []Line, taxRateBP int64) (Totals, error) {
	subtotal := new(big.Int)
	for _, line := range lines {
		amount := lineAmount(line.QuantityMilli, line.UnitPriceMinor)
		if !amount.IsInt64() {
			return Totals{}, ErrAmountTooLarge
		}
		subtotal.Add(subtotal, amount)
	}
	tax := divRound(new(big.Int).Mul(subtotal, big.NewInt(taxRateBP)), basisPoints)
	total := new(big.Int).Add(subtotal, tax)
	if !subtotal.IsInt64() || !tax.IsInt64() || !total.IsInt64() {
		return Totals{}, ErrAmountTooLarge
	}
	return Totals{Subtotal: subtotal.Int64(), Tax: tax.Int64(), Total: total.Int64()}, nil
}

func lineAmount(quantityMilli, unitPriceMinor int64) *big.Int {
	product := new(big.Int).Mul(big.NewInt(quantityMilli), big.NewInt(unitPriceMinor))
	return divRound(product, milli)
}

// divRound divides n by a positive d rounding halves away from zero, so
// credits round symmetrically with charges.
func divRound(n, d *big.Int) *big.Int {
	half := new(big.Int).Quo(d, big.NewInt(2))
	abs := new(big.Int).Abs(n)
	abs.Add(abs, half).Quo(abs, d)
	if n.Sign() < 0 {
		abs.Neg(abs)
	}
	return abs
}
