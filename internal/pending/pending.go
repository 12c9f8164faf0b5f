// Package pending holds the single batch of extracted candidates waiting for
// the user to confirm or reject them.
package pending

import (
	"time"

	"github.com/dvloznov/tax-tracker/internal/domain"
)

// State is the lifecycle of the staging slot.
type State string

const (
	StateEmpty  State = "EMPTY"
	StateStaged State = "STAGED"
)

// Batch is one extraction's worth of candidates plus where they came from.
type Batch struct {
	Sequence     uint64              `json:"sequence"`
	Candidates   []domain.Candidate  `json:"candidates"`
	Confidence   float64             `json:"confidence"`
	DocumentType domain.DocumentType `json:"documentType,omitempty"`
	FileName     string              `json:"fileName,omitempty"`
	StagedAt     time.Time           `json:"stagedAt"`
}

func (b Batch) clone() Batch {
	b.Candidates = append([]domain.Candidate(nil), b.Candidates...)
	return b
}

// Staging is a single-slot arena. Staging a new batch replaces whatever was
// there. It is not safe for concurrent use; the owner serializes access.
type Staging struct {
	state State
	batch Batch
}

// NewStaging returns an empty staging slot.
func NewStaging() *Staging {
	return &Staging{state: StateEmpty}
}

// State reports the current lifecycle state.
func (s *Staging) State() State {
	return s.state
}

// Stage installs b, overwriting any existing batch. An empty batch leaves the
// slot empty.
func (s *Staging) Stage(b Batch) {
	if len(b.Candidates) == 0 {
		s.Clear()
		return
	}
	s.batch = b.clone()
	s.state = StateStaged
}

// Visible reports whether the confirmation surface should be shown.
func (s *Staging) Visible() bool {
	return s.state == StateStaged && len(s.batch.Candidates) > 0
}

// Len is the number of staged candidates.
func (s *Staging) Len() int {
	return len(s.batch.Candidates)
}

// Snapshot returns a copy of the batch.
func (s *Staging) Snapshot() Batch {
	return s.batch.clone()
}

// Candidates returns a copy of the staged candidates.
func (s *Staging) Candidates() []domain.Candidate {
	return append([]domain.Candidate(nil), s.batch.Candidates...)
}

// Edit applies u to the candidate at index. Out-of-range indexes and edits
// outside STAGED are no-ops and return false.
func (s *Staging) Edit(index int, u domain.TransactionUpdate) bool {
	if !s.inRange(index) {
		return false
	}
	s.batch.Candidates[index] = u.Apply(s.batch.Candidates[index])
	return true
}

// Remove drops the candidate at index. Removing the last one empties the
// slot.
func (s *Staging) Remove(index int) bool {
	if !s.inRange(index) {
		return false
	}
	s.batch.Candidates = append(s.batch.Candidates[:index], s.batch.Candidates[index+1:]...)
	if len(s.batch.Candidates) == 0 {
		s.Clear()
	}
	return true
}

// Drop removes the first n candidates, the ones already committed. When
// nothing remains the slot is cleared.
func (s *Staging) Drop(n int) {
	if n <= 0 {
		return
	}
	if n >= len(s.batch.Candidates) {
		s.Clear()
		return
	}
	s.batch.Candidates = append([]domain.Candidate(nil), s.batch.Candidates[n:]...)
}

// Reject discards the batch. It returns domain.ErrNoPending outside STAGED.
func (s *Staging) Reject() error {
	if s.state != StateStaged {
		return domain.ErrNoPending
	}
	s.Clear()
	return nil
}

// Clear empties the slot unconditionally.
func (s *Staging) Clear() {
	s.batch = Batch{}
	s.state = StateEmpty
}

func (s *Staging) inRange(index int) bool {
	return s.state == StateStaged && index >= 0 && index < len(s.batch.Candidates)
}
