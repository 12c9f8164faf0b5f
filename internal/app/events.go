package app

import (
	"context"
	"time"

	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/tax"
)

// EventKind names what changed.
type EventKind string

const (
	EventTransactionAdded   EventKind = "transaction_added"
	EventTransactionUpdated EventKind = "transaction_updated"
	EventTransactionDeleted EventKind = "transaction_deleted"
	EventProfileChanged     EventKind = "profile_changed"
	EventSettingsChanged    EventKind = "settings_changed"
	EventExtraction         EventKind = "extraction"
	EventPendingChanged     EventKind = "pending_changed"
	EventPendingConfirmed   EventKind = "pending_confirmed"
	EventPendingRejected    EventKind = "pending_rejected"
	EventInsightRead        EventKind = "insight_read"
	EventUploadChanged      EventKind = "upload_changed"
	EventAssistantReply     EventKind = "assistant_reply"
)

// ChangesTax reports whether events of kind k can change the transactions
// or the tax calculation.
func (k EventKind) ChangesTax() bool {
	switch k {
	case EventTransactionAdded, EventTransactionUpdated, EventTransactionDeleted, EventSettingsChanged:
		return true
	}
	return false
}

// Event describes one state change. Transaction is set for transaction
// events; Calculation and Utilization are the values after the change.
type Event struct {
	Kind        EventKind
	At          time.Time
	Transaction *domain.Transaction
	Calculation tax.Calculation
	Utilization tax.Utilization
	Outcome     ExtractionOutcome
}

// Observer is notified after a change has been applied and persisted.
// Observers run synchronously on the caller's goroutine after the state lock
// has been released.
type Observer func(ctx context.Context, ev Event)

// Subscribe registers an observer.
func (a *App) Subscribe(o Observer) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.observers = append(a.observers, o)
}

func (a *App) notify(ctx context.Context, events []Event) {
	if len(events) == 0 {
		return
	}
	a.obsMu.RLock()
	observers := append([]Observer(nil), a.observers...)
	a.obsMu.RUnlock()

	for _, ev := range events {
		for _, o := range observers {
			o(ctx, ev)
		}
	}
}

func (a *App) eventLocked(kind EventKind, tx *domain.Transaction) Event {
	return Event{
		Kind:        kind,
		At:          a.now(),
		Transaction: tx,
		Calculation: a.calc,
		Utilization: a.util,
	}
}
