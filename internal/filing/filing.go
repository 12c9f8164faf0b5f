// Package filing derives return-filing guidance from the tracked state: the
// ITR form to file, a readiness checklist and the analysis figures.
package filing

import (
	"fmt"

	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/tax"
	"github.com/shopspring/decimal"
)

// Form is an income tax return form.
type Form string

const (
	FormITR1 Form = "ITR-1"
	FormITR2 Form = "ITR-2"
	FormITR3 Form = "ITR-3"
)

// highIncomeThreshold is the old-regime gross income above which ITR-1 is
// not available.
var highIncomeThreshold = decimal.NewFromInt(5000000)

// Status of a checklist item.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
)

// ChecklistItem is one step towards a fileable return.
type ChecklistItem struct {
	ID          int    `json:"id"`
	Item        string `json:"item"`
	Status      Status `json:"status"`
	Description string `json:"description"`
}

// Done reports whether the item is completed.
func (c ChecklistItem) Done() bool { return c.Status == StatusCompleted }

// Input is the state the report is derived from. Profile may be nil.
type Input struct {
	Profile      *domain.UserProfile
	Transactions []domain.Transaction
	Calculation  tax.Calculation
	Uploads      []domain.UploadedFile
}

// Report is the filing overview.
type Report struct {
	Form                 Form            `json:"itrForm"`
	Checklist            []ChecklistItem `json:"checklist"`
	Completed            int             `json:"completed"`
	CompletionPercentage decimal.Decimal `json:"completionPercentage"`
}

// Ready reports whether every checklist item is done.
func (r Report) Ready() bool { return r.Completed == len(r.Checklist) }

// BuildReport assembles the filing overview.
func BuildReport(in Input) Report {
	items := Checklist(in)
	done := 0
	for _, it := range items {
		if it.Done() {
			done++
		}
	}
	return Report{
		Form:                 RecommendForm(in),
		Checklist:            items,
		Completed:            done,
		CompletionPercentage: percentage(done, len(items)),
	}
}

// RecommendForm picks the return form. Business income needs ITR-3; capital
// gains or old-regime gross income above 50 lakh need ITR-2. Without a
// profile the simplest form is assumed.
func RecommendForm(in Input) Form {
	if in.Profile == nil {
		return FormITR1
	}
	if in.Profile.UserType == domain.UserBusiness || in.Profile.UserType == domain.UserBoth {
		return FormITR3
	}
	if hasCategory(in.Transactions, domain.CategoryCapitalGains) ||
		in.Calculation.OldRegime.GrossIncome.GreaterThan(highIncomeThreshold) {
		return FormITR2
	}
	return FormITR1
}

// Checklist evaluates the six readiness items in display order.
func Checklist(in Input) []ChecklistItem {
	incomeDocs := "P&L and business documents needed"
	if in.Profile != nil && in.Profile.UserType == domain.UserSalaried {
		incomeDocs = "Form 16 and salary slips needed"
	}

	regime := "Add transactions to get recommendation"
	hasRegime := len(in.Transactions) > 0 && in.Calculation.Recommendation.Regime != ""
	if hasRegime {
		regime = fmt.Sprintf("%s regime recommended", in.Calculation.Recommendation.Regime)
	}

	return []ChecklistItem{
		item(1, "All transactions recorded", len(in.Transactions) > 0,
			fmt.Sprintf("%d transactions recorded", len(in.Transactions))),
		item(2, "Income statements verified", hasType(in.Transactions, domain.TypeIncome), incomeDocs),
		item(3, "Deduction documents uploaded", hasType(in.Transactions, domain.TypeDeduction),
			"80C, 80D, and HRA supporting documents"),
		item(4, "Tax regime selected", hasRegime, regime),
		item(5, "Personal details updated", in.Profile != nil && in.Profile.Name != "" && in.Profile.PAN != "",
			"Name and PAN in profile"),
		item(6, "Required documents uploaded", len(in.Uploads) > 0,
			fmt.Sprintf("%d documents uploaded", len(in.Uploads))),
	}
}

func item(id int, name string, done bool, desc string) ChecklistItem {
	st := StatusPending
	if done {
		st = StatusCompleted
	}
	return ChecklistItem{ID: id, Item: name, Status: st, Description: desc}
}

func percentage(done, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(done)).Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(total)), 2)
}

func hasType(txs []domain.Transaction, t domain.TransactionType) bool {
	for _, tx := range txs {
		if tx.Type == t {
			return true
		}
	}
	return false
}

func hasCategory(txs []domain.Transaction, c domain.Category) bool {
	for _, tx := range txs {
		if tx.Category == c {
			return true
		}
	}
	return false
}
