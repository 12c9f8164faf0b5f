// Package export renders transactions and the tax summary for download.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/tax"
)

// CSVHeader is the first row of every transactions export.
var CSVHeader = []string{"Date", "Description", "Amount", "Type", "Category", "Has Receipt"}

// WriteTransactionsCSV writes one row per transaction in the given order.
func WriteTransactionsCSV(w io.Writer, txs []domain.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("WriteTransactionsCSV: header: %w", err)
	}

	for _, tx := range txs {
		receipt := "No"
		if tx.HasReceipt {
			receipt = "Yes"
		}
		row := []string{
			tx.Date.String(),
			tx.Description,
			tx.Amount.String(),
			string(tx.Type),
			string(tx.Category),
			receipt,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("WriteTransactionsCSV: row %s: %w", tx.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("WriteTransactionsCSV: flush: %w", err)
	}
	return nil
}

// UserInfo identifies the taxpayer in a summary.
type UserInfo struct {
	Name           string `json:"name"`
	PAN            string `json:"pan"`
	AssessmentYear string `json:"assessmentYear"`
}

// Summary is the tax summary document.
type Summary struct {
	UserInfo        UserInfo        `json:"userInfo"`
	TaxCalculations tax.Calculation `json:"taxCalculations"`
	ExportedAt      time.Time       `json:"exportedAt"`
}

// NewSummary builds a summary. A nil profile leaves the user info empty.
func NewSummary(p *domain.UserProfile, calc tax.Calculation, now time.Time) Summary {
	s := Summary{TaxCalculations: calc, ExportedAt: now.UTC()}
	if p != nil {
		s.UserInfo = UserInfo{Name: p.Name, PAN: p.PAN, AssessmentYear: p.AssessmentYear}
	}
	return s
}

// WriteSummaryJSON writes s as indented JSON.
func WriteSummaryJSON(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("WriteSummaryJSON: %w", err)
	}
	return nil
}

// TransactionsFileName is the download name of a CSV export made on day.
func TransactionsFileName(day time.Time) string {
	return "transactions_" + day.Format(time.DateOnly) + ".csv"
}

// SummaryFileName is the download name of a summary export made on day.
func SummaryFileName(day time.Time) string {
	return "tax_summary_" + day.Format(time.DateOnly) + ".json"
}
