// Package store persists the application state as one JSON document.
package store

import (
	"context"

	"github.com/dvloznov/tax-tracker/internal/assistant"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/insights"
	"github.com/dvloznov/tax-tracker/internal/pending"
)

// StateKey is the key the state document is stored under.
const StateKey = "livetax-storage"

// State is the persisted layout. Tax calculation and deduction utilization
// are not stored; they are rebuilt from Transactions on load. Insights are
// regenerated too, and only their read flags survive a restart.
// TempExtractedData carries the pending batch metadata while its candidates
// live in PendingTransactions.
type State struct {
	UserProfile         *domain.UserProfile   `json:"userProfile"`
	IsNewUser           bool                  `json:"isNewUser"`
	Transactions        []domain.Transaction  `json:"transactions"`
	TaxSettings         domain.TaxSettings    `json:"taxSettings"`
	UploadedFiles       []domain.UploadedFile `json:"uploadedFiles"`
	TempExtractedData   *pending.Batch        `json:"tempExtractedData"`
	PendingTransactions []domain.Candidate    `json:"pendingTransactions"`
	AIInsights          []insights.Insight    `json:"aiInsights,omitempty"`
	ChatHistory         []assistant.Message   `json:"chatHistory,omitempty"`
}

// NewState is the state of a fresh install.
func NewState() *State {
	return &State{
		IsNewUser:           true,
		Transactions:        []domain.Transaction{},
		TaxSettings:         domain.DefaultTaxSettings(),
		UploadedFiles:       []domain.UploadedFile{},
		PendingTransactions: []domain.Candidate{},
	}
}

// Store loads and saves the whole state document.
type Store interface {
	// Load returns the stored state, or NewState when nothing was saved yet.
	Load(ctx context.Context) (*State, error)
	// Save replaces the stored state in a single write.
	Save(ctx context.Context, s *State) error
	Close() error
}
