package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	// FallbackDescription replaces a missing description.
	FallbackDescription = "Extracted transaction"
	maxDescriptionRunes = 200
)

// rule reclassifies a candidate when its lowercased description contains
// every word in all and at least one word in any. Matching is by substring,
// so short keywords such as "pt" also hit longer words.
type rule struct {
	all      []string
	any      []string
	typ      domain.TransactionType
	category domain.Category
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{any: []string{"basic pay", "salary"}, typ: domain.TypeIncome, category: domain.CategorySalaryIncome},
	{any: []string{"hra", "house rent"}, typ: domain.TypeIncome, category: domain.CategorySalaryIncome},
	{any: []string{"allowance", "overtime", "bonus"}, typ: domain.TypeIncome, category: domain.CategorySalaryIncome},
	{any: []string{"provident fund", "pf", "epf"}, typ: domain.TypeDeduction, category: domain.CategorySection80C},
	{all: []string{"medical"}, any: []string{"insurance", "premium"}, typ: domain.TypeDeduction, category: domain.CategorySection80D},
	{any: []string{"professional tax", "pt"}, typ: domain.TypeExpense, category: domain.CategoryProfessionalTax},
	{any: []string{"tds", "income tax"}, typ: domain.TypeExpense, category: domain.CategoryTaxPaid},
	{any: []string{"esi", "employee state insurance"}, typ: domain.TypeExpense, category: domain.CategoryProfessionalTax},
	{any: []string{"other deductions"}, typ: domain.TypeExpense, category: domain.CategoryOtherExpense},
}

func (r rule) matches(desc string) bool {
	for _, w := range r.all {
		if !strings.Contains(desc, w) {
			return false
		}
	}
	for _, w := range r.any {
		if strings.Contains(desc, w) {
			return true
		}
	}
	return false
}

// Classify picks the type and category for a description, falling back to
// the declared values. An invalid declared type becomes Income; a declared
// category outside the type's family becomes the type's default.
func Classify(description, declaredType, declaredCategory string) (domain.TransactionType, domain.Category) {
	desc := strings.ToLower(description)
	for _, r := range rules {
		if r.matches(desc) {
			return r.typ, r.category
		}
	}

	typ, ok := domain.ParseTransactionType(declaredType)
	if !ok {
		typ = domain.TypeIncome
	}
	if cat, ok := domain.ParseCategory(declaredCategory); ok && cat.ValidFor(typ) {
		return typ, cat
	}
	return typ, domain.DefaultCategory(typ)
}

// NormalizeOptions carries the values a raw record cannot supply itself.
type NormalizeOptions struct {
	// DocumentID links the candidate to its source file.
	DocumentID string
	// Today replaces a missing or unparseable date.
	Today civil.Date
}

// NormalizeCandidate coerces one raw model record into a candidate. It never
// fails: every malformed field is replaced by a safe default.
func NormalizeCandidate(raw map[string]any, opts NormalizeOptions) domain.Candidate {
	desc := getStringField(raw, "description")
	if desc == "" {
		desc = FallbackDescription
	}
	// Keywords match on the full text; only the stored description is cut.
	typ, cat := Classify(desc, getStringField(raw, "type"), getStringField(raw, "category"))
	if utf8.RuneCountInString(desc) > maxDescriptionRunes {
		desc = string([]rune(desc)[:maxDescriptionRunes])
	}

	amount, err := getDecimalField(raw, "amount")
	if err != nil {
		amount = decimal.Zero
	}

	date, ok := parseDate(getStringField(raw, "date"))
	if !ok {
		date = opts.Today
	}

	return domain.Candidate{
		Date:        date,
		Description: desc,
		Amount:      amount.Abs(),
		Type:        typ,
		Category:    cat,
		HasReceipt:  true,
		Source:      domain.SourceAIExtracted,
		DocumentID:  opts.DocumentID,
	}
}

// NormalizeAll normalizes every object in items, skipping non-objects.
func NormalizeAll(items []any, opts NormalizeOptions) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, NormalizeCandidate(obj, opts))
	}
	return out
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "02/01/2006", "02-01-2006"}

func parseDate(s string) (civil.Date, bool) {
	if s == "" {
		return civil.Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}

// ParseModelOutput decodes the model's reply into normalized extracted data.
// A bare array is accepted as the transaction list.
func ParseModelOutput(text string, docType domain.DocumentType, opts NormalizeOptions) (ExtractedData, error) {
	clean := cleanModelJSON(text)
	if clean == "" {
		return ExtractedData{}, errors.New("ParseModelOutput: empty model output")
	}

	var parsed any
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return ExtractedData{}, fmt.Errorf("ParseModelOutput: unmarshal JSON: %w", err)
	}

	var payload map[string]any
	switch v := parsed.(type) {
	case map[string]any:
		payload = v
	case []any:
		payload = map[string]any{"transactions": v}
	default:
		return ExtractedData{}, fmt.Errorf("ParseModelOutput: top level is %T, want object or array", parsed)
	}

	data := ExtractedData{
		DocumentType: docType,
		Confidence:   DefaultConfidence,
	}
	if dt := getStringField(payload, "documentType"); dt != "" {
		data.DocumentType = domain.ParseDocumentType(dt)
	}
	if c, err := getDecimalField(payload, "confidence"); err == nil && c.IsPositive() {
		data.Confidence = c.InexactFloat64()
	}

	items, _ := payload["transactions"].([]any)
	data.Transactions = NormalizeAll(items, opts)

	if emp, ok := payload["employeeDetails"].(map[string]any); ok {
		data.EmployeeDetails = &EmployeeDetails{
			Name:           getStringField(emp, "name"),
			PAN:            strings.ToUpper(getStringField(emp, "pan")),
			EmployerName:   getStringField(emp, "employerName"),
			AssessmentYear: getStringField(emp, "assessmentYear"),
		}
	}

	return data, nil
}
