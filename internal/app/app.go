// Package app owns the application state and exposes one entry point per
// user action. Every mutation recomputes derived tax state, persists the
// whole document and notifies observers.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/tax-tracker/internal/assistant"
	"github.com/dvloznov/tax-tracker/internal/clock"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/extraction"
	"github.com/dvloznov/tax-tracker/internal/insights"
	"github.com/dvloznov/tax-tracker/internal/pending"
	"github.com/dvloznov/tax-tracker/internal/store"
	"github.com/dvloznov/tax-tracker/internal/tax"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Deps are the collaborators of an App. Store is required; the rest have
// usable defaults or disable the features that need them.
type Deps struct {
	Store     store.Store
	Extractor extraction.Extractor
	Assistant assistant.Assistant
	Clock     clock.Clock
	NewID     func() string
	Logger    zerolog.Logger
	// HRALimit is the placeholder HRA ceiling; zero selects tax.DefaultHRALimit.
	HRALimit decimal.Decimal
}

// App is the single owner of user state. It is safe for concurrent use.
type App struct {
	store     store.Store
	extractor extraction.Extractor
	assistant assistant.Assistant
	clock     clock.Clock
	newID     func() string
	log       zerolog.Logger
	hraLimit  decimal.Decimal

	seq pending.Sequencer

	mu        sync.Mutex
	profile   *domain.UserProfile
	isNewUser bool
	txs       []domain.Transaction
	settings  domain.TaxSettings
	files     []domain.UploadedFile
	staging   *pending.Staging
	calc      tax.Calculation
	util      tax.Utilization
	insights  []insights.Insight
	chat      []assistant.Message

	obsMu     sync.RWMutex
	observers []Observer
}

// New creates an App with fresh-install state. Call Load to restore the
// persisted state.
func New(deps Deps) *App {
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.New().String() }
	}

	a := &App{
		store:     deps.Store,
		extractor: deps.Extractor,
		assistant: deps.Assistant,
		clock:     deps.Clock,
		newID:     deps.NewID,
		log:       deps.Logger,
		hraLimit:  deps.HRALimit,
		staging:   pending.NewStaging(),
	}
	a.resetLocked(store.NewState())
	return a
}

// Load replaces the in-memory state with the persisted one and rebuilds all
// derived values from the loaded transactions.
func (a *App) Load(ctx context.Context) error {
	st, err := a.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("Load: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.resetLocked(st)
	a.log.Info().
		Int("transactions", len(a.txs)).
		Int("pending", a.staging.Len()).
		Msg("state loaded")
	return nil
}

func (a *App) resetLocked(st *store.State) {
	a.profile = st.UserProfile
	a.isNewUser = st.IsNewUser
	a.txs = append([]domain.Transaction(nil), st.Transactions...)
	a.settings = st.TaxSettings
	a.files = append([]domain.UploadedFile(nil), st.UploadedFiles...)

	a.staging.Clear()
	var batch pending.Batch
	if st.TempExtractedData != nil {
		batch = *st.TempExtractedData
	}
	batch.Candidates = st.PendingTransactions
	a.staging.Stage(batch)
	a.seq.Restore(batch.Sequence)

	a.chat = append([]assistant.Message(nil), st.ChatHistory...)
	if len(a.chat) == 0 {
		a.chat = assistant.InitialHistory()
	}

	a.recomputeLocked()
	a.insights = nil
	if len(a.txs) > 0 {
		a.insights = insights.Carry(st.AIInsights, a.generateLocked(), a.newID, a.clock.Now())
	}
}

func (a *App) snapshotLocked() *store.State {
	st := &store.State{
		UserProfile:         a.profile,
		IsNewUser:           a.isNewUser,
		Transactions:        a.txs,
		TaxSettings:         a.settings,
		UploadedFiles:       a.files,
		PendingTransactions: a.staging.Candidates(),
		AIInsights:          a.insights,
		ChatHistory:         a.chat,
	}
	if st.PendingTransactions == nil {
		st.PendingTransactions = []domain.Candidate{}
	}
	if a.staging.State() == pending.StateStaged {
		meta := a.staging.Snapshot()
		meta.Candidates = nil
		st.TempExtractedData = &meta
	}
	return st
}

func (a *App) recomputeLocked() {
	a.calc = tax.ComputeRegimeComparison(a.txs, a.settings)
	a.util = tax.ComputeUtilization(a.txs, a.hraLimit)
}

func (a *App) generateLocked() []insights.Insight {
	return insights.Generate(a.txs, a.util, a.calc, clock.Today(a.clock))
}

func (a *App) refreshInsightsLocked() {
	a.insights = insights.Merge(a.insights, a.generateLocked(), a.newID, a.clock.Now())
}

// mutate runs fn under the state lock, persists when fn produced events and
// notifies observers after the lock is released. A persistence failure is
// reported only when fn itself succeeded.
func (a *App) mutate(ctx context.Context, fn func() ([]Event, error)) error {
	a.mu.Lock()
	events, err := fn()
	var saveErr error
	if len(events) > 0 {
		saveErr = a.store.Save(ctx, a.snapshotLocked())
	}
	a.mu.Unlock()

	if saveErr != nil {
		a.log.Error().Err(saveErr).Msg("failed to persist state")
		saveErr = fmt.Errorf("persist state: %w", saveErr)
	}
	a.notify(ctx, events)

	if err != nil {
		return err
	}
	return saveErr
}

func (a *App) now() time.Time {
	return a.clock.Now()
}
