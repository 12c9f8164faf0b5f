package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/extraction"
	"github.com/dvloznov/tax-tracker/internal/pending"
)

// ExtractionOutcome is what applying an extraction result did.
type ExtractionOutcome string

const (
	// OutcomeFailed means the extractor reported an error; nothing was staged.
	OutcomeFailed ExtractionOutcome = "failed"
	// OutcomeEmpty means extraction succeeded with zero transactions.
	OutcomeEmpty ExtractionOutcome = "empty"
	// OutcomeStaged means a batch is waiting for confirmation.
	OutcomeStaged ExtractionOutcome = "staged"
	// OutcomeStale means a newer extraction started and this result was dropped.
	OutcomeStale ExtractionOutcome = "stale"
)

// ExtractionReport summarises an applied extraction.
type ExtractionReport struct {
	Sequence   uint64            `json:"sequence"`
	Outcome    ExtractionOutcome `json:"outcome"`
	Error      string            `json:"error,omitempty"`
	Staged     int               `json:"staged"`
	Confidence float64           `json:"confidence,omitempty"`
}

// ErrNoExtractor is returned by Extract when no extractor is configured.
var ErrNoExtractor = errors.New("no document extractor configured")

// BeginExtraction reserves a sequence number for a new extraction attempt.
// Any result carrying an older number is dropped as stale.
func (a *App) BeginExtraction() uint64 {
	return a.seq.Next()
}

// ExtractionContext returns the prompt context derived from the current
// profile and settings.
func (a *App) ExtractionContext() extraction.UserContext {
	a.mu.Lock()
	defer a.mu.Unlock()

	var p domain.UserProfile
	if a.profile != nil {
		p = *a.profile
	}
	return extraction.UserContextFor(p, a.settings)
}

// ApplyExtraction folds an extractor result into the staging slot.
func (a *App) ApplyExtraction(ctx context.Context, seq uint64, res extraction.Result) (ExtractionReport, error) {
	report := ExtractionReport{Sequence: seq}

	err := a.mutate(ctx, func() ([]Event, error) {
		if !a.seq.Current(seq) {
			report.Outcome = OutcomeStale
			return nil, nil
		}

		switch {
		case !res.Success:
			report.Outcome = OutcomeFailed
			report.Error = res.Error
		case len(res.ExtractedData.Transactions) == 0:
			report.Outcome = OutcomeEmpty
		default:
			a.staging.Stage(pending.Batch{
				Sequence:     seq,
				Candidates:   res.ExtractedData.Transactions,
				Confidence:   res.ExtractedData.Confidence,
				DocumentType: res.Metadata.DocumentType,
				FileName:     res.Metadata.FileName,
				StagedAt:     a.now(),
			})
			report.Outcome = OutcomeStaged
			report.Staged = a.staging.Len()
			report.Confidence = res.ExtractedData.Confidence
		}

		ev := a.eventLocked(EventExtraction, nil)
		ev.Outcome = report.Outcome
		return []Event{ev}, nil
	})
	if err != nil {
		return report, fmt.Errorf("ApplyExtraction: %w", err)
	}

	log := a.log.Info()
	if report.Outcome == OutcomeFailed {
		log = a.log.Warn().Str("error", report.Error)
	}
	log.Uint64("sequence", seq).
		Str("file", res.Metadata.FileName).
		Str("outcome", string(report.Outcome)).
		Int("staged", report.Staged).
		Msg("extraction applied")

	return report, nil
}

// Extract runs the configured extractor on doc and applies the result.
func (a *App) Extract(ctx context.Context, doc extraction.Document, docType domain.DocumentType) (ExtractionReport, error) {
	if a.extractor == nil {
		return ExtractionReport{}, fmt.Errorf("Extract: %w", ErrNoExtractor)
	}

	seq := a.BeginExtraction()
	res := a.extractor.Extract(ctx, doc, docType, a.ExtractionContext())
	return a.ApplyExtraction(ctx, seq, res)
}

// PendingView is the confirmation surface.
type PendingView struct {
	State   pending.State `json:"state"`
	Visible bool          `json:"visible"`
	Batch   pending.Batch `json:"batch"`
}

// Pending returns the staged batch.
func (a *App) Pending() PendingView {
	a.mu.Lock()
	defer a.mu.Unlock()

	return PendingView{
		State:   a.staging.State(),
		Visible: a.staging.Visible(),
		Batch:   a.staging.Snapshot(),
	}
}

// EditPending applies u to the staged candidate at index. It reports false
// for out-of-range indexes or when nothing is staged.
func (a *App) EditPending(ctx context.Context, index int, u domain.TransactionUpdate) (bool, error) {
	var ok bool
	err := a.mutate(ctx, func() ([]Event, error) {
		if ok = a.staging.Edit(index, u); !ok {
			return nil, nil
		}
		return []Event{a.eventLocked(EventPendingChanged, nil)}, nil
	})
	if err != nil {
		return ok, fmt.Errorf("EditPending: %w", err)
	}
	return ok, nil
}

// RemovePending drops the staged candidate at index.
func (a *App) RemovePending(ctx context.Context, index int) (bool, error) {
	var ok bool
	err := a.mutate(ctx, func() ([]Event, error) {
		if ok = a.staging.Remove(index); !ok {
			return nil, nil
		}
		return []Event{a.eventLocked(EventPendingChanged, nil)}, nil
	})
	if err != nil {
		return ok, fmt.Errorf("RemovePending: %w", err)
	}
	return ok, nil
}

// ConfirmResult reports what ConfirmPending committed.
type ConfirmResult struct {
	Committed []domain.Transaction `json:"committed"`
	Remaining int                  `json:"remaining"`
}

// ConfirmPending commits the staged candidates one at a time, in order. On
// the first failure it stops: already committed transactions stay and the
// rest remain staged. When every candidate commits the batch is cleared and
// insights are generated once.
func (a *App) ConfirmPending(ctx context.Context) (ConfirmResult, error) {
	var result ConfirmResult

	err := a.mutate(ctx, func() ([]Event, error) {
		if a.staging.State() != pending.StateStaged {
			return nil, domain.ErrNoPending
		}

		var (
			events []Event
			failed error
		)
		for i, c := range a.staging.Candidates() {
			tx, err := a.addLocked(c)
			if err != nil {
				failed = fmt.Errorf("candidate %d: %w", i, err)
				break
			}
			result.Committed = append(result.Committed, tx)
			events = append(events, a.eventLocked(EventTransactionAdded, &tx))
		}

		a.staging.Drop(len(result.Committed))
		result.Remaining = a.staging.Len()

		if failed != nil {
			if len(events) > 0 {
				events = append(events, a.eventLocked(EventPendingChanged, nil))
			}
			return events, failed
		}

		a.staging.Clear()
		a.refreshInsightsLocked()
		return append(events, a.eventLocked(EventPendingConfirmed, nil)), nil
	})
	if err != nil {
		return result, fmt.Errorf("ConfirmPending: %w", err)
	}

	a.log.Info().Int("committed", len(result.Committed)).Msg("pending transactions confirmed")
	return result, nil
}

// RejectPending discards the staged batch.
func (a *App) RejectPending(ctx context.Context) error {
	err := a.mutate(ctx, func() ([]Event, error) {
		if err := a.staging.Reject(); err != nil {
			return nil, err
		}
		return []Event{a.eventLocked(EventPendingRejected, nil)}, nil
	})
	if err != nil {
		return fmt.Errorf("RejectPending: %w", err)
	}
	return nil
}
