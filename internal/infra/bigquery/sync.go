package bigquery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/tax-tracker/internal/clock"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/logger"
	"github.com/dvloznov/tax-tracker/internal/tax"
	"github.com/google/uuid"
)

// SyncInput is the state pushed to the warehouse.
type SyncInput struct {
	Transactions []domain.Transaction
	Calculation  tax.Calculation
	Utilization  tax.Utilization
}

// SyncReport summarises one warehouse sync.
type SyncReport struct {
	Inserted   int    `json:"inserted"`
	Deleted    int    `json:"deleted"`
	Unchanged  int    `json:"unchanged"`
	SnapshotID string `json:"snapshotId"`
}

// Syncer appends changed transactions and a tax snapshot on every call.
// It remembers what it pushed so unchanged rows are not appended again;
// a fresh Syncer pushes everything once.
type Syncer struct {
	repo  WarehouseRepository
	clock clock.Clock

	mu     sync.Mutex
	pushed map[string]time.Time
}

// NewSyncer creates a Syncer writing to repo.
func NewSyncer(repo WarehouseRepository, clk clock.Clock) *Syncer {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Syncer{repo: repo, clock: clk, pushed: make(map[string]time.Time)}
}

// Sync pushes the transactions changed since the previous call, tombstones
// for removed ones, and a snapshot of the regime comparison.
func (s *Syncer) Sync(ctx context.Context, in SyncInput) (SyncReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logger.FromContext(ctx)
	now := s.clock.Now()
	var report SyncReport

	current := make(map[string]bool, len(in.Transactions))
	var rows []*TransactionRow
	for _, tx := range in.Transactions {
		current[tx.ID] = true
		if last, ok := s.pushed[tx.ID]; ok && last.Equal(tx.UpdatedAt) {
			report.Unchanged++
			continue
		}
		rows = append(rows, TransactionRowFrom(tx, now))
	}
	report.Inserted = len(rows)

	for id := range s.pushed {
		if !current[id] {
			rows = append(rows, DeletedRow(id, now))
			report.Deleted++
		}
	}

	if err := s.repo.InsertTransactions(ctx, rows); err != nil {
		return SyncReport{}, fmt.Errorf("Sync: %w", err)
	}

	for _, tx := range in.Transactions {
		s.pushed[tx.ID] = tx.UpdatedAt
	}
	for id := range s.pushed {
		if !current[id] {
			delete(s.pushed, id)
		}
	}

	snapshot := TaxSnapshotRowFrom(uuid.NewString(), in.Calculation, in.Utilization, len(in.Transactions), now)
	if err := s.repo.InsertTaxSnapshot(ctx, snapshot); err != nil {
		return report, fmt.Errorf("Sync: %w", err)
	}
	report.SnapshotID = snapshot.SnapshotID

	log.Info().
		Int("inserted", report.Inserted).
		Int("deleted", report.Deleted).
		Int("unchanged", report.Unchanged).
		Str("snapshot_id", report.SnapshotID).
		Msg("Warehouse sync completed")

	return report, nil
}
