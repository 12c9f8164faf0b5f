package pending

import "sync/atomic"

// Sequencer numbers extraction attempts so that a result arriving after a
// newer attempt started can be recognised and dropped.
type Sequencer struct {
	latest atomic.Uint64
}

// Next issues a new, strictly larger sequence number.
func (s *Sequencer) Next() uint64 {
	return s.latest.Add(1)
}

// Latest is the most recently issued number, or zero.
func (s *Sequencer) Latest() uint64 {
	return s.latest.Load()
}

// Current reports whether n is the latest issued number.
func (s *Sequencer) Current(n uint64) bool {
	return n != 0 && n == s.latest.Load()
}

// Restore raises the counter to at least n, used after loading persisted
// state so new attempts never reuse an old number.
func (s *Sequencer) Restore(n uint64) {
	for {
		cur := s.latest.Load()
		if n <= cur || s.latest.CompareAndSwap(cur, n) {
			return
		}
	}
}
