// Package assistant answers tax questions using the user's current numbers.
package assistant

import (
	"context"
	"time"

	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/tax"
	"github.com/shopspring/decimal"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

const (
	// Greeting opens every conversation.
	Greeting = "Hello! I am your personal tax assistant. How can I help you today?"
	// Apology replaces the reply when the model call fails.
	Apology = "I'm sorry, I encountered an error while processing your request. Please try again."
)

// Message is one chat turn.
type Message struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at,omitempty"`
}

// InitialHistory is the history of a fresh conversation.
func InitialHistory() []Message {
	return []Message{{Role: RoleModel, Text: Greeting}}
}

// Liabilities holds the tax due under each regime.
type Liabilities struct {
	OldRegime decimal.Decimal `json:"oldRegime"`
	NewRegime decimal.Decimal `json:"newRegime"`
}

// Snapshot is the financial context given to the model.
type Snapshot struct {
	Profile          *domain.UserProfile `json:"profile,omitempty"`
	TaxLiability     Liabilities         `json:"taxLiability"`
	Recommendation   tax.Recommendation  `json:"recommendation"`
	Deductions       tax.Utilization     `json:"deductions"`
	TotalIncome      decimal.Decimal     `json:"totalIncome"`
	TransactionCount int                 `json:"transactionCount"`
}

// BuildSnapshot summarises the current state for the model.
func BuildSnapshot(profile *domain.UserProfile, calc tax.Calculation, util tax.Utilization, txCount int) Snapshot {
	return Snapshot{
		Profile: profile,
		TaxLiability: Liabilities{
			OldRegime: calc.OldRegime.TaxLiability,
			NewRegime: calc.NewRegime.TaxLiability,
		},
		Recommendation:   calc.Recommendation,
		Deductions:       util,
		TotalIncome:      calc.OldRegime.GrossIncome,
		TransactionCount: txCount,
	}
}

// Assistant produces the next model reply for history, whose last message is
// the user's question.
type Assistant interface {
	Reply(ctx context.Context, snap Snapshot, history []Message) (string, error)
}
