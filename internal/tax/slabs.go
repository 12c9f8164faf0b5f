// Package tax computes income-tax liability under the old and new regimes
// and tracks how much of each deduction section has been used.
package tax

import (
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// Slab is one progressive bracket. Max == 0 marks the open-ended top slab.
type Slab struct {
	Min         int64
	Max         int64
	RatePercent int64
}

// Unbounded reports whether s has no upper limit.
func (s Slab) Unbounded() bool {
	return s.Max == 0
}

// width is max - min + 1, so the first slab is one unit wider than its
// nominal range.
func (s Slab) width() decimal.Decimal {
	return decimal.NewFromInt(s.Max - s.Min + 1)
}

// Slab tables for FY 2023-24.
var (
	OldRegimeSlabs = []Slab{
		{Min: 0, Max: 250000, RatePercent: 0},
		{Min: 250001, Max: 500000, RatePercent: 5},
		{Min: 500001, Max: 1000000, RatePercent: 20},
		{Min: 1000001, RatePercent: 30},
	}
	NewRegimeSlabs = []Slab{
		{Min: 0, Max: 300000, RatePercent: 0},
		{Min: 300001, Max: 600000, RatePercent: 5},
		{Min: 600001, Max: 900000, RatePercent: 10},
		{Min: 900001, Max: 1200000, RatePercent: 15},
		{Min: 1200001, Max: 1500000, RatePercent: 20},
		{Min: 1500001, RatePercent: 30},
	}
)

// SlabsFor returns the slab table of regime. Anything but "new" is old.
func SlabsFor(regime domain.Regime) []Slab {
	if regime == domain.RegimeNew {
		return NewRegimeSlabs
	}
	return OldRegimeSlabs
}

// Statutory limits and constants.
var (
	Section80CLimit       = decimal.NewFromInt(150000)
	Section80DLimit       = decimal.NewFromInt(25000)
	Section80DSeniorLimit = decimal.NewFromInt(50000)
	Section80CCD1BLimit   = decimal.NewFromInt(50000)
	StandardDeduction     = decimal.NewFromInt(50000)
	ProfessionalTaxCap    = decimal.NewFromInt(2500)
	DefaultHRALimit       = decimal.NewFromInt(360000)
	CessRate              = decimal.RequireFromString("0.04")
	assumedMarginalRate   = decimal.RequireFromString("0.3")
	hundred               = decimal.NewFromInt(100)
	monthsPerYear         = decimal.NewFromInt(12)
)

// AssumedMarginalRate is the flat rate used to estimate savings from unused
// deduction headroom.
func AssumedMarginalRate() decimal.Decimal {
	return assumedMarginalRate
}
