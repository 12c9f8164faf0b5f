package filing

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var apr = civil.Date{Year: 2024, Month: time.April, Day: 10}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func tx(typ domain.TransactionType, cat domain.Category, amount int64) domain.Transaction {
	return domain.Transaction{
		ID:          string(cat),
		Date:        apr,
		Description: string(cat),
		Amount:      d(amount),
		Type:        typ,
		Category:    cat,
		Source:      domain.SourceManual,
	}
}

func profile(ut domain.UserType) *domain.UserProfile {
	return &domain.UserProfile{UserType: ut}
}

func grossOld(v int64) tax.Calculation {
	return tax.Calculation{OldRegime: tax.RegimeResult{GrossIncome: d(v)}}
}

func TestRecommendForm(t *testing.T) {
	salary := tx(domain.TypeIncome, domain.CategorySalaryIncome, 90000)
	gains := tx(domain.TypeIncome, domain.CategoryCapitalGains, 10000)

	tests := []struct {
		name string
		in   Input
		want Form
	}{
		{"no profile", Input{Transactions: []domain.Transaction{gains}, Calculation: grossOld(9000000)}, FormITR1},
		{"salaried", Input{Profile: profile(domain.UserSalaried), Transactions: []domain.Transaction{salary}}, FormITR1},
		{"business", Input{Profile: profile(domain.UserBusiness)}, FormITR3},
		{"both wins over capital gains", Input{Profile: profile(domain.UserBoth), Transactions: []domain.Transaction{gains}}, FormITR3},
		{"capital gains", Input{Profile: profile(domain.UserSalaried), Transactions: []domain.Transaction{salary, gains}}, FormITR2},
		{"gross above 50 lakh", Input{Profile: profile(domain.UserSalaried), Calculation: grossOld(5000001)}, FormITR2},
		{"gross at 50 lakh", Input{Profile: profile(domain.UserSalaried), Calculation: grossOld(5000000)}, FormITR1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecommendForm(tt.in))
		})
	}
}

func TestChecklist(t *testing.T) {
	txs := []domain.Transaction{
		tx(domain.TypeIncome, domain.CategorySalaryIncome, 90000),
		tx(domain.TypeDeduction, domain.CategorySection80C, 20000),
	}
	calc := tax.ComputeRegimeComparison(txs, domain.DefaultTaxSettings())

	tests := []struct {
		name      string
		in        Input
		wantDone  []int
		wantDescs map[int]string
		wantPct   string
	}{
		{
			name:     "fresh install",
			in:       Input{Calculation: tax.ComputeRegimeComparison(nil, domain.DefaultTaxSettings())},
			wantDone: []int{},
			wantDescs: map[int]string{
				1: "0 transactions recorded",
				2: "P&L and business documents needed",
				4: "Add transactions to get recommendation",
				6: "0 documents uploaded",
			},
			wantPct: "0",
		},
		{
			name: "salaried with transactions",
			in: Input{
				Profile:      profile(domain.UserSalaried),
				Transactions: txs,
				Calculation:  calc,
			},
			wantDone: []int{1, 2, 3, 4},
			wantDescs: map[int]string{
				1: "2 transactions recorded",
				2: "Form 16 and salary slips needed",
				4: string(calc.Recommendation.Regime) + " regime recommended",
			},
			wantPct: "66.67",
		},
		{
			name: "everything in place",
			in: Input{
				Profile:      &domain.UserProfile{Name: "Asha", PAN: "ABCDE1234F", UserType: domain.UserBusiness},
				Transactions: txs,
				Calculation:  calc,
				Uploads:      []domain.UploadedFile{{ID: "f1"}, {ID: "f2"}, {ID: "f3"}},
			},
			wantDone:  []int{1, 2, 3, 4, 5, 6},
			wantDescs: map[int]string{6: "3 documents uploaded"},
			wantPct:   "100",
		},
		{
			name:     "name without PAN",
			in:       Input{Profile: &domain.UserProfile{Name: "Asha"}},
			wantDone: []int{},
			wantPct:  "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := BuildReport(tt.in)
			require.Len(t, r.Checklist, 6)

			done := []int{}
			for i, it := range r.Checklist {
				assert.Equal(t, i+1, it.ID)
				if it.Done() {
					done = append(done, it.ID)
				}
			}
			assert.Equal(t, tt.wantDone, done)
			assert.Equal(t, len(tt.wantDone), r.Completed)
			assert.Equal(t, len(tt.wantDone) == 6, r.Ready())
			assert.True(t, r.CompletionPercentage.Equal(decimal.RequireFromString(tt.wantPct)), "got %s", r.CompletionPercentage)

			for id, want := range tt.wantDescs {
				assert.Equal(t, want, r.Checklist[id-1].Description, "item %d", id)
			}
		})
	}
}

func TestMarginalRate(t *testing.T) {
	tests := []struct {
		taxable string
		want    string
	}{
		{"0", "0.2"},
		{"250000", "0.2"},
		{"250001", "0.05"},
		{"500000", "0.05"},
		{"500001", "0.2"},
		{"1000000", "0.2"},
		{"1000001", "0.3"},
	}

	for _, tt := range tests {
		t.Run(tt.taxable, func(t *testing.T) {
			got := MarginalRate(decimal.RequireFromString(tt.taxable))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestAnalyze(t *testing.T) {
	txs := []domain.Transaction{
		tx(domain.TypeIncome, domain.CategoryBusinessIncome, 40000),
		tx(domain.TypeDeduction, domain.CategorySection80D, 5000),
		tx(domain.TypeIncome, domain.CategorySalaryIncome, 90000),
		tx(domain.TypeExpense, domain.CategoryTaxPaid, 9000),
		tx(domain.TypeIncome, domain.CategoryBusinessIncome, 10000),
		tx(domain.TypeDeduction, domain.CategorySection80C, 15000),
		tx(domain.TypeDeduction, domain.CategorySection80D, 2500),
	}
	calc := tax.Calculation{OldRegime: tax.RegimeResult{TaxableIncome: d(1200000)}}

	tests := []struct {
		name        string
		investment  decimal.Decimal
		wantInvest  string
		wantSavings string
	}{
		{"given amount", d(150000), "150000", "45000"},
		{"zero selects default", decimal.Zero, "50000", "15000"},
		{"negative selects default", d(-1), "50000", "15000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Analyze(txs, calc, tt.investment)

			require.Len(t, a.Income, 2)
			assert.Equal(t, domain.CategoryBusinessIncome, a.Income[0].Category)
			assert.True(t, a.Income[0].Amount.Equal(d(50000)))
			assert.Equal(t, domain.CategorySalaryIncome, a.Income[1].Category)
			assert.True(t, a.Income[1].Amount.Equal(d(90000)))

			require.Len(t, a.Deductions, 2)
			assert.Equal(t, domain.CategorySection80D, a.Deductions[0].Category)
			assert.True(t, a.Deductions[0].Amount.Equal(d(7500)))
			assert.Equal(t, domain.CategorySection80C, a.Deductions[1].Category)

			assert.True(t, a.WhatIf.Investment.Equal(decimal.RequireFromString(tt.wantInvest)))
			assert.True(t, a.WhatIf.Rate.Equal(decimal.RequireFromString("0.3")))
			assert.True(t, a.WhatIf.Savings.Equal(decimal.RequireFromString(tt.wantSavings)), "got %s", a.WhatIf.Savings)
		})
	}
}

func TestBreakdown_EmptyIsNotNil(t *testing.T) {
	got := Breakdown(nil, domain.TypeIncome)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
