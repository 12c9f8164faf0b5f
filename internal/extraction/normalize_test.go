package extraction

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = civil.Date{Year: 2024, Month: time.June, Day: 30}

func opts() NormalizeOptions {
	return NormalizeOptions{DocumentID: "slip.pdf", Today: today}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		description  string
		declaredType string
		declaredCat  string
		wantType     domain.TransactionType
		wantCategory domain.Category
	}{
		{"basic pay overrides declared", "Basic Pay", "Deduction", "80C Deduction", domain.TypeIncome, domain.CategorySalaryIncome},
		{"hra is income", "HRA", "Deduction", "HRA", domain.TypeIncome, domain.CategorySalaryIncome},
		{"bonus", "Performance Bonus", "", "", domain.TypeIncome, domain.CategorySalaryIncome},
		{"provident fund", "Employee PF contribution", "Expense", "", domain.TypeDeduction, domain.CategorySection80C},
		{"medical premium", "Medical Insurance Premium", "Expense", "", domain.TypeDeduction, domain.CategorySection80D},
		{"medical alone does not match", "Medical reimbursement", "Income", "Other Income", domain.TypeIncome, domain.CategoryOtherIncome},
		{"professional tax", "Professional Tax", "Deduction", "", domain.TypeExpense, domain.CategoryProfessionalTax},
		{"pt substring quirk", "Receipt for office desk", "Expense", "Business Expense", domain.TypeExpense, domain.CategoryProfessionalTax},
		{"tds", "TDS deducted", "Income", "", domain.TypeExpense, domain.CategoryTaxPaid},
		{"esi", "ESI contribution", "", "", domain.TypeExpense, domain.CategoryProfessionalTax},
		{"other deductions", "Other deductions", "Deduction", "", domain.TypeExpense, domain.CategoryOtherExpense},
		{"declared pair kept", "Consulting fees", "Income", "Business Income", domain.TypeIncome, domain.CategoryBusinessIncome},
		{"declared key form accepted", "Consulting fees", "Income", "BUSINESS_INCOME", domain.TypeIncome, domain.CategoryBusinessIncome},
		{"invalid type becomes income", "Dividend", "Gift", "Capital Gains", domain.TypeIncome, domain.CategoryCapitalGains},
		{"category outside family falls back", "Office chair", "Expense", "80C Deduction", domain.TypeExpense, domain.CategoryBusinessExpense},
		{"unknown category falls back", "Office chair", "Deduction", "Shoes", domain.TypeDeduction, domain.CategorySection80C},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, cat := Classify(tt.description, tt.declaredType, tt.declaredCat)
			assert.Equal(t, tt.wantType, typ)
			assert.Equal(t, tt.wantCategory, cat)
		})
	}
}

func TestNormalizeCandidate_Amount(t *testing.T) {
	tests := []struct {
		name   string
		amount any
		want   string
	}{
		{"number", 45000.0, "45000"},
		{"negative number", -1800.0, "1800"},
		{"rupee string", "₹1,23,456.50", "123456.5"},
		{"rs prefix", "Rs. 2,500", "2500"},
		{"garbage", "n/a", "0"},
		{"missing", nil, "0"},
		{"wrong type", true, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := map[string]any{"description": "Basic Pay", "amount": tt.amount}
			got := NormalizeCandidate(raw, opts())
			assert.True(t, got.Amount.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got.Amount, tt.want)
			assert.False(t, got.Amount.IsNegative())
		})
	}
}

func TestNormalizeCandidate_Date(t *testing.T) {
	tests := []struct {
		name string
		date any
		want civil.Date
	}{
		{"iso", "2024-04-30", civil.Date{Year: 2024, Month: time.April, Day: 30}},
		{"rfc3339", "2024-05-01T10:00:00Z", civil.Date{Year: 2024, Month: time.May, Day: 1}},
		{"day first", "15/04/2024", civil.Date{Year: 2024, Month: time.April, Day: 15}},
		{"missing", nil, today},
		{"invalid", "last month", today},
		{"impossible", "2024-02-31", today},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeCandidate(map[string]any{"date": tt.date}, opts())
			assert.Equal(t, tt.want, got.Date)
		})
	}
}

func TestNormalizeCandidate_Defaults(t *testing.T) {
	got := NormalizeCandidate(map[string]any{"type": "Deduction", "category": "80D Medical", "hasReceipt": false}, opts())

	assert.Equal(t, FallbackDescription, got.Description)
	assert.Equal(t, domain.TypeDeduction, got.Type)
	assert.Equal(t, domain.CategorySection80D, got.Category)
	assert.True(t, got.HasReceipt)
	assert.Equal(t, domain.SourceAIExtracted, got.Source)
	assert.Equal(t, "slip.pdf", got.DocumentID)
	assert.True(t, got.Amount.IsZero())
}

func TestNormalizeCandidate_TruncatesDescription(t *testing.T) {
	long := strings.Repeat("अ", 250)
	got := NormalizeCandidate(map[string]any{"description": long}, opts())

	assert.Equal(t, 200, utf8.RuneCountInString(got.Description))
	require.NoError(t, domain.ValidateCandidate(withValidAmount(got)))
}

func TestNormalizeCandidate_ClassifiesBeforeTruncating(t *testing.T) {
	desc := strings.Repeat("x", 210) + " tds deducted"
	got := NormalizeCandidate(map[string]any{"description": desc, "amount": 1200}, opts())

	assert.Equal(t, 200, utf8.RuneCountInString(got.Description))
	assert.Equal(t, domain.TypeExpense, got.Type)
	assert.Equal(t, domain.CategoryTaxPaid, got.Category)
}

func withValidAmount(c domain.Candidate) domain.Candidate {
	c.Amount = decimal.NewFromInt(1)
	return c
}

func TestNormalizeAll_SkipsNonObjects(t *testing.T) {
	items := []any{
		map[string]any{"description": "Basic Pay", "amount": 50000.0},
		"junk",
		42.0,
		map[string]any{"description": "PF", "amount": 1800.0},
	}

	got := NormalizeAll(items, opts())
	require.Len(t, got, 2)
	assert.Equal(t, domain.CategorySalaryIncome, got[0].Category)
	assert.Equal(t, domain.CategorySection80C, got[1].Category)
}

func TestParseModelOutput(t *testing.T) {
	t.Run("fenced object", func(t *testing.T) {
		text := "```json\n{\"documentType\":\"form16\",\"confidence\":0.95," +
			"\"employeeDetails\":{\"name\":\"Asha\",\"pan\":\"abcde1234f\"}," +
			"\"transactions\":[{\"type\":\"Income\",\"category\":\"Salary Income\",\"amount\":800000,\"description\":\"Gross Salary\",\"date\":\"2024-03-31\"}]}\n```"

		data, err := ParseModelOutput(text, domain.DocSalarySlip, opts())
		require.NoError(t, err)

		assert.Equal(t, domain.DocForm16, data.DocumentType)
		assert.Equal(t, 0.95, data.Confidence)
		require.NotNil(t, data.EmployeeDetails)
		assert.Equal(t, "ABCDE1234F", data.EmployeeDetails.PAN)
		require.Len(t, data.Transactions, 1)
		assert.True(t, data.Transactions[0].Amount.Equal(decimal.NewFromInt(800000)))
	})

	t.Run("bare array with prose", func(t *testing.T) {
		text := "Here you go:\n[{\"description\":\"Professional Tax\",\"amount\":200}]\nThanks"

		data, err := ParseModelOutput(text, domain.DocSalarySlip, opts())
		require.NoError(t, err)

		assert.Equal(t, domain.DocSalarySlip, data.DocumentType)
		assert.Equal(t, DefaultConfidence, data.Confidence)
		require.Len(t, data.Transactions, 1)
		assert.Equal(t, domain.CategoryProfessionalTax, data.Transactions[0].Category)
	})

	t.Run("no transactions", func(t *testing.T) {
		data, err := ParseModelOutput(`{"transactions": []}`, domain.DocForm16, opts())
		require.NoError(t, err)
		assert.Empty(t, data.Transactions)
		assert.NotNil(t, data.Transactions)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := ParseModelOutput("{not json", domain.DocForm16, opts())
		assert.Error(t, err)
	})

	t.Run("scalar", func(t *testing.T) {
		_, err := ParseModelOutput("42", domain.DocForm16, opts())
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseModelOutput("  ", domain.DocForm16, opts())
		assert.Error(t, err)
	})
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"prose around object", "Sure! {\"a\":[1]} done", `{"a":[1]}`},
		{"array before object", "[{\"a\":1}]", `[{"a":1}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelJSON(tt.in))
		})
	}
}
