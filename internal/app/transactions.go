package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/tax-tracker/internal/domain"
)

// AddTransaction validates c and appends it as a permanent transaction.
func (a *App) AddTransaction(ctx context.Context, c domain.Candidate) (domain.Transaction, error) {
	var tx domain.Transaction
	err := a.mutate(ctx, func() ([]Event, error) {
		added, err := a.addLocked(c)
		if err != nil {
			return nil, err
		}
		tx = added
		return []Event{a.eventLocked(EventTransactionAdded, &added)}, nil
	})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("AddTransaction: %w", err)
	}

	a.log.Info().Str("transaction_id", tx.ID).Str("category", string(tx.Category)).Msg("transaction added")
	return tx, nil
}

// addLocked appends one transaction and recomputes derived state.
func (a *App) addLocked(c domain.Candidate) (domain.Transaction, error) {
	if err := domain.ValidateCandidate(c); err != nil {
		return domain.Transaction{}, err
	}
	tx := domain.NewTransaction(a.newID(), c, a.now())
	a.txs = append(a.txs, tx)
	a.recomputeLocked()
	return tx, nil
}

// UpdateTransaction applies a partial update to the transaction with id.
func (a *App) UpdateTransaction(ctx context.Context, id string, u domain.TransactionUpdate) (domain.Transaction, error) {
	var tx domain.Transaction
	err := a.mutate(ctx, func() ([]Event, error) {
		i := a.indexLocked(id)
		if i < 0 {
			return nil, fmt.Errorf("transaction %q: %w", id, domain.ErrNotFound)
		}
		c := u.Apply(a.txs[i].Candidate())
		if err := domain.ValidateCandidate(c); err != nil {
			return nil, err
		}
		a.txs[i] = a.txs[i].WithCandidate(c, a.now())
		a.recomputeLocked()
		tx = a.txs[i]
		return []Event{a.eventLocked(EventTransactionUpdated, &tx)}, nil
	})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("UpdateTransaction: %w", err)
	}
	return tx, nil
}

// DeleteTransaction removes the transaction with id.
func (a *App) DeleteTransaction(ctx context.Context, id string) error {
	err := a.mutate(ctx, func() ([]Event, error) {
		i := a.indexLocked(id)
		if i < 0 {
			return nil, fmt.Errorf("transaction %q: %w", id, domain.ErrNotFound)
		}
		removed := a.txs[i]
		a.txs = append(a.txs[:i], a.txs[i+1:]...)
		a.recomputeLocked()
		return []Event{a.eventLocked(EventTransactionDeleted, &removed)}, nil
	})
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

func (a *App) indexLocked(id string) int {
	for i := range a.txs {
		if a.txs[i].ID == id {
			return i
		}
	}
	return -1
}

// Transaction returns the transaction with id.
func (a *App) Transaction(id string) (domain.Transaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := a.indexLocked(id)
	if i < 0 {
		return domain.Transaction{}, fmt.Errorf("transaction %q: %w", id, domain.ErrNotFound)
	}
	return a.txs[i], nil
}

// TransactionFilter narrows Transactions. Zero values match everything.
type TransactionFilter struct {
	Type     domain.TransactionType
	Category domain.Category
	Source   domain.Source
	Search   string
	Limit    int
	Offset   int
}

// Transactions returns a copy of the transactions matching f, newest date
// first.
func (a *App) Transactions(f TransactionFilter) []domain.Transaction {
	a.mu.Lock()
	out := make([]domain.Transaction, 0, len(a.txs))
	for _, tx := range a.txs {
		if f.matches(tx) {
			out = append(out, tx)
		}
	}
	a.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []domain.Transaction{}
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}
