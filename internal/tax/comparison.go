package tax

import (
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/money"
	"github.com/shopspring/decimal"
)

// RegimeResult is the full breakdown for one regime.
type RegimeResult struct {
	GrossIncome     decimal.Decimal `json:"grossIncome"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`
	TaxableIncome   decimal.Decimal `json:"taxableIncome"`
	TaxLiability    decimal.Decimal `json:"taxLiability"`
	EffectiveRate   decimal.Decimal `json:"effectiveRate"`
}

// Recommendation names the cheaper regime.
type Recommendation struct {
	Regime  domain.Regime   `json:"regime"`
	Savings decimal.Decimal `json:"savings"`
	Reason  string          `json:"reason"`
}

// Calculation is the regime comparison snapshot. It is replaced wholesale on
// every transaction mutation.
type Calculation struct {
	OldRegime      RegimeResult   `json:"oldRegime"`
	NewRegime      RegimeResult   `json:"newRegime"`
	Recommendation Recommendation `json:"recommendation"`
}

// Totals are the aggregates the comparison is built from.
type Totals struct {
	GrossIncome     decimal.Decimal
	Deductions      decimal.Decimal
	ProfessionalTax decimal.Decimal
	Projected       bool
}

// Aggregate sums income, deductions and professional tax. With projections
// enabled, income and deductions become the monthly average over months that
// have any transaction, times twelve. Professional tax is annualized only when
// projections are on and at least one transaction was AI-extracted.
func Aggregate(txs []domain.Transaction, settings domain.TaxSettings) Totals {
	var t Totals
	aiExtracted := false

	type monthKey struct {
		year  int
		month int
	}
	months := make(map[monthKey]struct{})

	for _, tx := range txs {
		switch tx.Type {
		case domain.TypeIncome:
			t.GrossIncome = t.GrossIncome.Add(tx.Amount)
		case domain.TypeDeduction:
			t.Deductions = t.Deductions.Add(tx.Amount)
		}
		if tx.Category == domain.CategoryProfessionalTax {
			t.ProfessionalTax = t.ProfessionalTax.Add(tx.Amount)
		}
		if tx.Source == domain.SourceAIExtracted {
			aiExtracted = true
		}
		months[monthKey{tx.Date.Year, int(tx.Date.Month)}] = struct{}{}
	}

	if settings.IncludeProjections && len(months) > 0 {
		n := decimal.NewFromInt(int64(len(months)))
		t.GrossIncome = t.GrossIncome.Mul(monthsPerYear).Div(n)
		t.Deductions = t.Deductions.Mul(monthsPerYear).Div(n)
		t.Projected = true
	}

	if settings.IncludeProjections && aiExtracted {
		t.ProfessionalTax = t.ProfessionalTax.Mul(monthsPerYear)
	}

	return t
}

// ComputeRegimeComparison builds both regime breakdowns and recommends the
// one with the lower liability. Ties go to the old regime.
func ComputeRegimeComparison(txs []domain.Transaction, settings domain.TaxSettings) Calculation {
	return CompareTotals(Aggregate(txs, settings))
}

// CompareTotals is the comparison over precomputed aggregates.
func CompareTotals(t Totals) Calculation {
	pt := decimal.Min(t.ProfessionalTax, ProfessionalTaxCap)

	oldTaxable := decimal.Max(decimal.Zero, t.GrossIncome.Sub(t.Deductions).Sub(pt).Sub(StandardDeduction))
	newTaxable := decimal.Max(decimal.Zero, t.GrossIncome.Sub(StandardDeduction))

	oldTax := ComputeLiability(oldTaxable, domain.RegimeOld)
	newTax := ComputeLiability(newTaxable, domain.RegimeNew)

	calc := Calculation{
		OldRegime: RegimeResult{
			GrossIncome:     t.GrossIncome,
			TotalDeductions: t.Deductions.Add(StandardDeduction).Add(pt),
			TaxableIncome:   oldTaxable,
			TaxLiability:    oldTax,
			EffectiveRate:   effectiveRate(oldTax, t.GrossIncome),
		},
		NewRegime: RegimeResult{
			GrossIncome:     t.GrossIncome,
			TotalDeductions: StandardDeduction,
			TaxableIncome:   newTaxable,
			TaxLiability:    newTax,
			EffectiveRate:   effectiveRate(newTax, t.GrossIncome),
		},
	}

	savings := oldTax.Sub(newTax).Abs()
	if oldTax.LessThanOrEqual(newTax) {
		calc.Recommendation = Recommendation{
			Regime:  domain.RegimeOld,
			Savings: savings,
			Reason:  "Old regime saves " + money.Rupees(savings) + " due to deduction utilization",
		}
	} else {
		calc.Recommendation = Recommendation{
			Regime:  domain.RegimeNew,
			Savings: savings,
			Reason:  "New regime saves " + money.Rupees(savings) + " with simplified tax structure",
		}
	}

	return calc
}

// Liability returns the result for regime.
func (c Calculation) Liability(regime domain.Regime) RegimeResult {
	if regime == domain.RegimeNew {
		return c.NewRegime
	}
	return c.OldRegime
}

func effectiveRate(liability, gross decimal.Decimal) decimal.Decimal {
	if !gross.IsPositive() {
		return decimal.Zero
	}
	return liability.Mul(hundred).Div(gross)
}
