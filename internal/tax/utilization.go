package tax

import (
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// SectionUtilization is how much of one deduction section has been used.
// Used never exceeds Limit and Utilization never exceeds 100.
type SectionUtilization struct {
	Used        decimal.Decimal `json:"used"`
	Limit       decimal.Decimal `json:"limit"`
	Utilization decimal.Decimal `json:"utilization"`
}

// Remaining is the headroom left in the section.
func (s SectionUtilization) Remaining() decimal.Decimal {
	return decimal.Max(decimal.Zero, s.Limit.Sub(s.Used))
}

// Utilization covers the tracked sections.
type Utilization struct {
	Section80C SectionUtilization `json:"section80C"`
	Section80D SectionUtilization `json:"section80D"`
	HRA        SectionUtilization `json:"hra"`
}

// ComputeUtilization sums deduction transactions per section. hraLimit is a
// configured placeholder, not derived from salary or rent; zero or negative
// selects DefaultHRALimit.
func ComputeUtilization(txs []domain.Transaction, hraLimit decimal.Decimal) Utilization {
	if !hraLimit.IsPositive() {
		hraLimit = DefaultHRALimit
	}

	var sum80C, sum80D, sumHRA decimal.Decimal
	for _, tx := range txs {
		if tx.Type != domain.TypeDeduction {
			continue
		}
		switch tx.Category {
		case domain.CategorySection80C:
			sum80C = sum80C.Add(tx.Amount)
		case domain.CategorySection80D:
			sum80D = sum80D.Add(tx.Amount)
		case domain.CategoryHRA:
			sumHRA = sumHRA.Add(tx.Amount)
		}
	}

	return Utilization{
		Section80C: section(sum80C, Section80CLimit),
		Section80D: section(sum80D, Section80DLimit),
		HRA:        section(sumHRA, hraLimit),
	}
}

func section(sum, limit decimal.Decimal) SectionUtilization {
	return SectionUtilization{
		Used:        decimal.Min(sum, limit),
		Limit:       limit,
		Utilization: decimal.Min(sum.Mul(hundred).Div(limit), hundred),
	}
}
