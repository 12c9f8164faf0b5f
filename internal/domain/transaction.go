package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionType is the family a transaction belongs to.
type TransactionType string

const (
	TypeIncome    TransactionType = "Income"
	TypeDeduction TransactionType = "Deduction"
	TypeExpense   TransactionType = "Expense"
)

// TransactionTypes lists every valid type in display order.
var TransactionTypes = []TransactionType{TypeIncome, TypeDeduction, TypeExpense}

// Valid reports whether t is one of the known types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeDeduction, TypeExpense:
		return true
	}
	return false
}

// ParseTransactionType matches s case-insensitively against the known types.
func ParseTransactionType(s string) (TransactionType, bool) {
	s = strings.TrimSpace(s)
	for _, t := range TransactionTypes {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// Category is one of the fixed transaction categories. The string value is
// the display name and is what gets persisted.
type Category string

const (
	CategorySalaryIncome    Category = "Salary Income"
	CategoryBusinessIncome  Category = "Business Income"
	CategoryCapitalGains    Category = "Capital Gains"
	CategoryOtherIncome     Category = "Other Income"
	CategorySection80C      Category = "80C Deduction"
	CategorySection80D      Category = "80D Medical"
	CategoryHRA             Category = "HRA"
	CategoryBusinessExpense Category = "Business Expense"
	CategoryProfessionalTax Category = "Professional Tax"
	CategoryTaxPaid         Category = "Tax Paid (TDS)"
	CategoryOtherExpense    Category = "Other Expense"
)

var categoryFamilies = map[TransactionType][]Category{
	TypeIncome:    {CategorySalaryIncome, CategoryBusinessIncome, CategoryCapitalGains, CategoryOtherIncome},
	TypeDeduction: {CategorySection80C, CategorySection80D, CategoryHRA},
	TypeExpense:   {CategoryBusinessExpense, CategoryProfessionalTax, CategoryTaxPaid, CategoryOtherExpense},
}

// categoryKeys maps the enumeration keys used by older clients and by the
// model prompts to display names.
var categoryKeys = map[string]Category{
	"SALARY_INCOME":    CategorySalaryIncome,
	"BUSINESS_INCOME":  CategoryBusinessIncome,
	"CAPITAL_GAINS":    CategoryCapitalGains,
	"OTHER_INCOME":     CategoryOtherIncome,
	"SECTION_80C":      CategorySection80C,
	"SECTION_80D":      CategorySection80D,
	"HRA":              CategoryHRA,
	"BUSINESS_EXPENSE": CategoryBusinessExpense,
	"PROFESSIONAL_TAX": CategoryProfessionalTax,
	"TAX_PAID":         CategoryTaxPaid,
	"OTHER_EXPENSE":    CategoryOtherExpense,
}

// Categories returns every category, grouped by family.
func Categories() []Category {
	var out []Category
	for _, t := range TransactionTypes {
		out = append(out, categoryFamilies[t]...)
	}
	return out
}

// CategoriesFor returns the categories valid for t.
func CategoriesFor(t TransactionType) []Category {
	return append([]Category(nil), categoryFamilies[t]...)
}

// Family returns the transaction type c belongs to, or "" for unknown categories.
func (c Category) Family() TransactionType {
	for t, cats := range categoryFamilies {
		for _, candidate := range cats {
			if candidate == c {
				return t
			}
		}
	}
	return ""
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c.Family() != ""
}

// ValidFor reports whether c may be paired with t.
func (c Category) ValidFor(t TransactionType) bool {
	return c.Family() == t
}

// DefaultCategory is the category substituted when a declared category does
// not fit the type.
func DefaultCategory(t TransactionType) Category {
	switch t {
	case TypeDeduction:
		return CategorySection80C
	case TypeExpense:
		return CategoryBusinessExpense
	default:
		return CategorySalaryIncome
	}
}

// ParseCategory accepts a display name or an enumeration key, ignoring case
// and surrounding whitespace.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, c := range Categories() {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	key := strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_").Replace(s))
	if c, ok := categoryKeys[key]; ok {
		return c, true
	}
	return "", false
}

// Source records where a transaction came from.
type Source string

const (
	SourceManual      Source = "manual"
	SourceAIExtracted Source = "ai_extracted"
)

// Transaction is a permanent financial record.
type Transaction struct {
	ID          string          `json:"id"`
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    Category        `json:"category"`
	HasReceipt  bool            `json:"hasReceipt"`
	Source      Source          `json:"source,omitempty"`
	DocumentID  string          `json:"documentId,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Candidate is a transaction that has not been committed yet: manual input
// before validation, or an extracted record waiting in the pending batch.
type Candidate struct {
	Date        civil.Date      `json:"date"`
	Description string          `json:"description" validate:"required,max=200"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type" validate:"required,oneof=Income Deduction Expense"`
	Category    Category        `json:"category" validate:"required"`
	HasReceipt  bool            `json:"hasReceipt"`
	Source      Source          `json:"source,omitempty"`
	DocumentID  string          `json:"documentId,omitempty"`
	Notes       string          `json:"notes,omitempty" validate:"max=500"`
	Tags        []string        `json:"tags,omitempty"`
}

// NewTransaction turns a candidate into a permanent record.
func NewTransaction(id string, c Candidate, now time.Time) Transaction {
	source := c.Source
	if source == "" {
		source = SourceManual
	}
	return Transaction{
		ID:          id,
		Date:        c.Date,
		Description: c.Description,
		Amount:      c.Amount,
		Type:        c.Type,
		Category:    c.Category,
		HasReceipt:  c.HasReceipt,
		Source:      source,
		DocumentID:  c.DocumentID,
		Notes:       c.Notes,
		Tags:        append([]string(nil), c.Tags...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Candidate returns the mutable fields of t.
func (t Transaction) Candidate() Candidate {
	return Candidate{
		Date:        t.Date,
		Description: t.Description,
		Amount:      t.Amount,
		Type:        t.Type,
		Category:    t.Category,
		HasReceipt:  t.HasReceipt,
		Source:      t.Source,
		DocumentID:  t.DocumentID,
		Notes:       t.Notes,
		Tags:        append([]string(nil), t.Tags...),
	}
}

// WithCandidate returns t with its mutable fields replaced by c.
func (t Transaction) WithCandidate(c Candidate, now time.Time) Transaction {
	out := NewTransaction(t.ID, c, t.CreatedAt)
	if c.Source == "" {
		out.Source = t.Source
	}
	out.UpdatedAt = now
	return out
}

// TransactionUpdate is a partial update. Nil fields are left unchanged.
type TransactionUpdate struct {
	Date        *civil.Date      `json:"date,omitempty"`
	Description *string          `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Type        *TransactionType `json:"type,omitempty"`
	Category    *Category        `json:"category,omitempty"`
	HasReceipt  *bool            `json:"hasReceipt,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
	Tags        *[]string        `json:"tags,omitempty"`
}

// Empty reports whether u changes nothing.
func (u TransactionUpdate) Empty() bool {
	return u.Date == nil && u.Description == nil && u.Amount == nil && u.Type == nil &&
		u.Category == nil && u.HasReceipt == nil && u.Notes == nil && u.Tags == nil
}

// Apply returns c with the non-nil fields of u applied.
func (u TransactionUpdate) Apply(c Candidate) Candidate {
	if u.Date != nil {
		c.Date = *u.Date
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.Amount != nil {
		c.Amount = *u.Amount
	}
	if u.Type != nil {
		c.Type = *u.Type
	}
	if u.Category != nil {
		c.Category = *u.Category
	}
	if u.HasReceipt != nil {
		c.HasReceipt = *u.HasReceipt
	}
	if u.Notes != nil {
		c.Notes = *u.Notes
	}
	if u.Tags != nil {
		c.Tags = append([]string(nil), (*u.Tags)...)
	}
	return c
}
