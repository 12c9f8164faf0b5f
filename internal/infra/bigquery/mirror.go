package bigquery

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Mirror keeps the warehouse in step with the application state. Notify
// marks the state as changed; Run syncs in the background, at most once per
// interval, so a burst of changes becomes one sync.
type Mirror struct {
	syncer   *Syncer
	source   func() SyncInput
	interval time.Duration
	log      zerolog.Logger
	dirty    chan struct{}
}

// NewMirror creates a mirror that reads the current state from source.
func NewMirror(syncer *Syncer, source func() SyncInput, interval time.Duration, log zerolog.Logger) *Mirror {
	return &Mirror{
		syncer:   syncer,
		source:   source,
		interval: interval,
		log:      log,
		dirty:    make(chan struct{}, 1),
	}
}

// Notify schedules a sync. It never blocks.
func (m *Mirror) Notify() {
	select {
	case m.dirty <- struct{}{}:
	default:
	}
}

// Run syncs after every Notify until ctx is done. Changes still pending when
// ctx ends are flushed with a detached context.
func (m *Mirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			select {
			case <-m.dirty:
				m.sync(context.WithoutCancel(ctx))
			default:
			}
			return
		case <-m.dirty:
		}
		if ctx.Err() != nil {
			m.sync(context.WithoutCancel(ctx))
			return
		}

		m.sync(ctx)

		if m.interval <= 0 {
			continue
		}
		timer := time.NewTimer(m.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

// sync pushes the current state. A failed sync is retried after the next
// interval.
func (m *Mirror) sync(ctx context.Context) {
	if _, err := m.syncer.Sync(ctx, m.source()); err != nil {
		m.log.Error().Err(err).Msg("Warehouse mirror sync failed")
		if m.interval > 0 && ctx.Err() == nil {
			m.Notify()
		}
	}
}
