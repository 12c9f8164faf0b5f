package extraction

import (
	"fmt"
	"strings"

	"github.com/dvloznov/tax-tracker/internal/domain"
)

const transactionShape = "      {\n" +
	"        \"type\": \"%s\",\n" +
	"        \"category\": \"%s\",\n" +
	"        \"amount\": number,\n" +
	"        \"description\": \"string\",\n" +
	"        \"date\": \"YYYY-MM-DD\",\n" +
	"        \"hasReceipt\": true\n" +
	"      }\n"

func transactionsBlock(types, categories string) string {
	return "  \"transactions\": [\n" + fmt.Sprintf(transactionShape, types, categories) + "  ],\n"
}

var documentPrompts = map[domain.DocumentType]string{
	domain.DocForm16: "Analyze this Form 16 document and extract the financial information as JSON:\n\n" +
		"{\n" +
		"  \"documentType\": \"form16\",\n" +
		"  \"employeeDetails\": {\n" +
		"    \"name\": \"string\",\n" +
		"    \"pan\": \"string\",\n" +
		"    \"employerName\": \"string\",\n" +
		"    \"assessmentYear\": \"string\"\n" +
		"  },\n" +
		transactionsBlock("Income|Deduction|Expense", "Salary Income|80C Deduction|80D Medical|HRA|Professional Tax") +
		"  \"confidence\": number (0-1)\n" +
		"}\n\n" +
		"Extract ALL salary components, deductions and TDS details. Be precise with amounts.\n",

	domain.DocSalarySlip: "Extract the salary data as JSON.\n\n" +
		"Rules:\n" +
		"- Basic Pay/Allowances -> \"Income\", \"Salary Income\"\n" +
		"- PF/EPF -> \"Deduction\", \"80C Deduction\"\n" +
		"- Medical Insurance -> \"Deduction\", \"80D Medical\"\n" +
		"- Professional Tax -> \"Expense\", \"Professional Tax\"\n" +
		"- TDS -> \"Expense\", \"Tax Paid (TDS)\"\n\n" +
		"{\n" +
		"  \"documentType\": \"salary_slip\",\n" +
		transactionsBlock("Income|Deduction|Expense", "Salary Income|80C Deduction|80D Medical|Professional Tax|Tax Paid (TDS)") +
		"  \"confidence\": number (0-1)\n" +
		"}\n\n" +
		"Extract all salary components.\n",

	domain.DocInvestmentProof: "Analyze this investment or deduction proof and extract:\n\n" +
		"{\n" +
		"  \"documentType\": \"investment_proof\",\n" +
		transactionsBlock("Deduction", "80C Deduction|80D Medical") +
		"  \"confidence\": number (0-1)\n" +
		"}\n\n" +
		"Use the investment type or policy details as the description.\n",

	domain.DocBusinessDocument: "Analyze this business document (P&L, invoice, expense receipt) and extract:\n\n" +
		"{\n" +
		"  \"documentType\": \"business_document\",\n" +
		transactionsBlock("Income|Expense", "Business Income|Business Expense") +
		"  \"confidence\": number (0-1)\n" +
		"}\n",
}

// BuildPrompt returns the extraction prompt for docType with the user
// context appended. Unknown document types use the salary slip prompt.
func BuildPrompt(docType domain.DocumentType, uc UserContext) string {
	base, ok := documentPrompts[docType]
	if !ok {
		base = documentPrompts[domain.DocSalarySlip]
	}

	userType := string(uc.UserType)
	if userType == "" {
		userType = string(domain.UserSalaried)
	}
	year := uc.AssessmentYear
	if year == "" {
		year = domain.DefaultAssessmentYear
	}
	regime := string(uc.Regime)
	if regime == "" {
		regime = string(domain.RegimeOld)
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\nUser Context:\n")
	b.WriteString("- User Type: " + userType + "\n")
	b.WriteString("- Assessment Year: " + year + "\n")
	b.WriteString("- Preferred Tax Regime: " + regime + "\n\n")
	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences or add any other text.\n")
	return b.String()
}
