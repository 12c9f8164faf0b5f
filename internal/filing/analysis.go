package filing

import (
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/tax"
	"github.com/shopspring/decimal"
)

// DefaultWhatIfInvestment is the amount used when no investment is given.
var DefaultWhatIfInvestment = decimal.NewFromInt(50000)

var (
	rateLow     = decimal.RequireFromString("0.05")
	rateMid     = decimal.RequireFromString("0.2")
	rateHigh    = decimal.RequireFromString("0.3")
	twoHalfLakh = decimal.NewFromInt(250000)
	fiveLakh    = decimal.NewFromInt(500000)
	tenLakh     = decimal.NewFromInt(1000000)
)

// CategoryTotal is the summed amount of one category.
type CategoryTotal struct {
	Category domain.Category `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// WhatIf estimates the tax saved by an additional deductible investment.
type WhatIf struct {
	Investment decimal.Decimal `json:"investment"`
	Rate       decimal.Decimal `json:"rate"`
	Savings    decimal.Decimal `json:"savings"`
}

// Analysis is the per-category view plus the what-if estimate.
type Analysis struct {
	Income     []CategoryTotal `json:"incomeBreakdown"`
	Deductions []CategoryTotal `json:"deductionBreakdown"`
	WhatIf     WhatIf          `json:"whatIf"`
}

// Analyze builds the analysis. A non-positive investment selects
// DefaultWhatIfInvestment.
func Analyze(txs []domain.Transaction, calc tax.Calculation, investment decimal.Decimal) Analysis {
	if !investment.IsPositive() {
		investment = DefaultWhatIfInvestment
	}
	return Analysis{
		Income:     Breakdown(txs, domain.TypeIncome),
		Deductions: Breakdown(txs, domain.TypeDeduction),
		WhatIf:     WhatIfSavings(calc, investment),
	}
}

// MarginalRate is the flat rate applied to a what-if investment, keyed on
// old-regime taxable income. Income at or below 2.5 lakh, zero included,
// uses the 20% default.
func MarginalRate(taxable decimal.Decimal) decimal.Decimal {
	switch {
	case taxable.GreaterThan(tenLakh):
		return rateHigh
	case taxable.GreaterThan(fiveLakh):
		return rateMid
	case taxable.GreaterThan(twoHalfLakh):
		return rateLow
	}
	return rateMid
}

// WhatIfSavings applies MarginalRate to investment.
func WhatIfSavings(calc tax.Calculation, investment decimal.Decimal) WhatIf {
	rate := MarginalRate(calc.OldRegime.TaxableIncome)
	return WhatIf{
		Investment: investment,
		Rate:       rate,
		Savings:    investment.Mul(rate),
	}
}

// Breakdown sums the amounts of typ per category, in the order each category
// first appears in txs.
func Breakdown(txs []domain.Transaction, typ domain.TransactionType) []CategoryTotal {
	out := []CategoryTotal{}
	index := map[domain.Category]int{}
	for _, tx := range txs {
		if tx.Type != typ {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(out)
			index[tx.Category] = i
			out = append(out, CategoryTotal{Category: tx.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
	}
	return out
}
