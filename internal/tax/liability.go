package tax

import (
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// PreCessTax is the bracket tax on taxable before cess. Negative input is
// treated as zero.
func PreCessTax(taxable decimal.Decimal, regime domain.Regime) decimal.Decimal {
	remaining := decimal.Max(taxable, decimal.Zero)
	total := decimal.Zero

	for _, slab := range SlabsFor(regime) {
		if !remaining.IsPositive() {
			break
		}

		portion := remaining
		if !slab.Unbounded() {
			portion = decimal.Min(remaining, slab.width())
		}

		total = total.Add(portion.Mul(decimal.NewFromInt(slab.RatePercent)).Div(hundred))
		remaining = remaining.Sub(portion)
	}

	return total
}

// ComputeLiability returns the bracket tax plus 4% cess, rounded to the
// nearest whole rupee (halves away from zero). It is defined for every input.
func ComputeLiability(taxable decimal.Decimal, regime domain.Regime) decimal.Decimal {
	pre := PreCessTax(taxable, regime)
	return pre.Add(pre.Mul(CessRate)).Round(0)
}
