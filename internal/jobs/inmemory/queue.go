package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/tax-tracker/internal/clock"
	"github.com/dvloznov/tax-tracker/internal/jobs"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options configures a Queue. Zero values select the defaults.
type Options struct {
	// BufferSize is how many jobs can wait before PublishExtractDocument blocks.
	BufferSize int
	// Workers is the number of concurrent handlers.
	Workers int
	// Backoff returns the delay before retry n (1-based).
	Backoff func(retry int) time.Duration
	Clock   clock.Clock
	Logger  zerolog.Logger
	// Observe, when set, is called after every status change with the
	// number of jobs still waiting.
	Observe func(job *jobs.ExtractDocumentJob, queued int)
}

func (o Options) withDefaults() Options {
	if o.BufferSize <= 0 {
		o.BufferSize = 100
	}
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.Backoff == nil {
		o.Backoff = func(retry int) time.Duration { return time.Duration(retry) * time.Second }
	}
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	return o
}

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// This implementation is suitable for single-instance deployments and testing.
type Queue struct {
	opts      Options
	jobChan   chan *jobs.ExtractDocumentJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool
}

// NewQueue creates a new in-memory job queue. store may be nil.
func NewQueue(opts Options, store jobs.JobStore) *Queue {
	opts = opts.withDefaults()
	return &Queue{
		opts:      opts,
		jobChan:   make(chan *jobs.ExtractDocumentJob, opts.BufferSize),
		closeChan: make(chan struct{}),
		store:     store,
	}
}

// Len reports how many jobs are waiting.
func (q *Queue) Len() int {
	return len(q.jobChan)
}

// PublishExtractDocument implements the Publisher interface.
func (q *Queue) PublishExtractDocument(ctx context.Context, job *jobs.ExtractDocumentJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("PublishExtractDocument: queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = q.opts.Clock.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = jobs.DefaultMaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("PublishExtractDocument: save job: %w", err)
		}
	}

	// Enqueue job with context cancellation support
	if q.opts.Observe != nil {
		q.opts.Observe(job, len(q.jobChan)+1)
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("PublishExtractDocument: queue is closed")
	}
}

// Start implements the Consumer interface. It starts Options.Workers
// goroutines that call handler for each job.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("Start: queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}

			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job with retry logic.
func (q *Queue) processJob(ctx context.Context, job *jobs.ExtractDocumentJob, handler jobs.JobHandler) {
	log := q.opts.Logger.With().Str("job_id", job.JobID).Str("file", job.FileName).Logger()

	job.Status = jobs.JobStatusRunning
	now := q.opts.Clock.Now()
	job.StartedAt = &now
	q.save(ctx, job)

	err := handler(ctx, job)

	completedAt := q.opts.Clock.Now()
	job.CompletedAt = &completedAt

	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		log.Info().Msg("job completed")
	case jobs.WillRetry(job, err):
		job.Error = err.Error()
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		log.Warn().Err(err).Int("retry", job.RetryCount).Msg("job failed, retrying")
	default:
		job.Error = err.Error()
		job.Status = jobs.JobStatusFailed
		log.Error().Err(err).Msg("job failed")
	}

	// Saved before the retry is scheduled so the retry's own updates win.
	q.save(ctx, job)
	q.observe(job)

	if job.Status == jobs.JobStatusRetrying {
		retry := *job
		retry.Status = jobs.JobStatusPending
		retry.StartedAt = nil
		retry.CompletedAt = nil
		time.AfterFunc(q.opts.Backoff(job.RetryCount), func() {
			if err := q.PublishExtractDocument(ctx, &retry); err != nil {
				log.Error().Err(err).Msg("failed to re-enqueue job")
			}
		})
	}
}

func (q *Queue) save(ctx context.Context, job *jobs.ExtractDocumentJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		q.opts.Logger.Error().Err(err).Str("job_id", job.JobID).Msg("failed to save job")
	}
}

func (q *Queue) observe(job *jobs.ExtractDocumentJob) {
	if q.opts.Observe != nil {
		q.opts.Observe(job, len(q.jobChan))
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
