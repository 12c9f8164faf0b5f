package inmemory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions() Options {
	return Options{
		BufferSize: 10,
		Workers:    2,
		Backoff:    func(int) time.Duration { return time.Millisecond },
	}
}

func waitForStatus(t *testing.T, store *Store, id string, want jobs.JobStatus) *jobs.ExtractDocumentJob {
	t.Helper()
	var got *jobs.ExtractDocumentJob
	require.Eventually(t, func() bool {
		j, err := store.GetJob(context.Background(), id)
		if err != nil {
			return false
		}
		got = j
		return j.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueue_CompletesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(fastOptions(), store)
	defer q.Close()

	require.NoError(t, q.Start(ctx, func(_ context.Context, job *jobs.ExtractDocumentJob) error {
		job.Outcome = "staged"
		job.Staged = 2
		return nil
	}))

	job := &jobs.ExtractDocumentJob{JobID: "job-1", FileName: "form16.pdf", DocumentType: domain.DocForm16}
	require.NoError(t, q.PublishExtractDocument(ctx, job))

	got := waitForStatus(t, store, "job-1", jobs.JobStatusCompleted)
	assert.Equal(t, "staged", got.Outcome)
	assert.Equal(t, 2, got.Staged)
	assert.Equal(t, jobs.DefaultMaxRetries, got.MaxRetries)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
	assert.True(t, got.Done())
}

func TestQueue_RetriesThenSucceeds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(fastOptions(), store)
	defer q.Close()

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(context.Context, *jobs.ExtractDocumentJob) error {
		if calls.Add(1) < 3 {
			return errors.New("model overloaded")
		}
		return nil
	}))

	require.NoError(t, q.PublishExtractDocument(ctx, &jobs.ExtractDocumentJob{JobID: "job-2"}))

	got := waitForStatus(t, store, "job-2", jobs.JobStatusCompleted)
	assert.Equal(t, 2, got.RetryCount)
	assert.Empty(t, got.Error)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueue_FailsAfterMaxRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(fastOptions(), store)
	defer q.Close()

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(context.Context, *jobs.ExtractDocumentJob) error {
		calls.Add(1)
		return errors.New("unreadable document")
	}))

	require.NoError(t, q.PublishExtractDocument(ctx, &jobs.ExtractDocumentJob{JobID: "job-3", MaxRetries: 1}))

	got := waitForStatus(t, store, "job-3", jobs.JobStatusFailed)
	assert.Equal(t, "unreadable document", got.Error)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueue_PermanentErrorSkipsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(fastOptions(), store)
	defer q.Close()

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(context.Context, *jobs.ExtractDocumentJob) error {
		calls.Add(1)
		return jobs.Permanent(errors.New("not a pdf"))
	}))

	require.NoError(t, q.PublishExtractDocument(ctx, &jobs.ExtractDocumentJob{JobID: "job-p", MaxRetries: 3}))

	got := waitForStatus(t, store, "job-p", jobs.JobStatusFailed)
	assert.Equal(t, "permanent failure: not a pdf", got.Error)
	assert.Equal(t, 0, got.RetryCount)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(Options{}, nil)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	err := q.PublishExtractDocument(context.Background(), &jobs.ExtractDocumentJob{})
	assert.Error(t, err)
	assert.Error(t, q.Start(context.Background(), func(context.Context, *jobs.ExtractDocumentJob) error { return nil }))
}

func TestQueue_PublishAssignsDefaults(t *testing.T) {
	q := NewQueue(Options{BufferSize: 1}, nil)
	defer q.Close()

	job := &jobs.ExtractDocumentJob{}
	require.NoError(t, q.PublishExtractDocument(context.Background(), job))
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, jobs.JobStatusPending, job.Status)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Equal(t, 1, q.Len())

	// Buffer full: publishing blocks until the context gives up.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := q.PublishExtractDocument(ctx, &jobs.ExtractDocumentJob{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveJob(ctx, &jobs.ExtractDocumentJob{
			JobID:     id,
			UploadID:  "up-" + id,
			Status:    jobs.JobStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	assert.Error(t, s.SaveJob(ctx, &jobs.ExtractDocumentJob{}))

	all, err := s.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].JobID)

	require.NoError(t, s.UpdateJobStatus(ctx, "b", jobs.JobStatusFailed, "boom"))
	failed, err := s.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].Error)

	byUpload, err := s.ListJobs(ctx, jobs.JobFilter{UploadID: "up-a"})
	require.NoError(t, err)
	require.Len(t, byUpload, 1)

	page, err := s.ListJobs(ctx, jobs.JobFilter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].JobID)

	empty, err := s.ListJobs(ctx, jobs.JobFilter{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, empty)

	got, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	got.Status = jobs.JobStatusCompleted
	again, _ := s.GetJob(ctx, "a")
	assert.Equal(t, jobs.JobStatusPending, again.Status)

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""), jobs.ErrJobNotFound)
}

func TestQueue_ObserveSeesEveryTransition(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		statuses []jobs.JobStatus
	)
	opts := fastOptions()
	opts.Observe = func(job *jobs.ExtractDocumentJob, _ int) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, job.Status)
	}

	store := NewStore()
	q := NewQueue(opts, store)
	defer q.Close()

	require.NoError(t, q.PublishExtractDocument(ctx, &jobs.ExtractDocumentJob{JobID: "job-1", MaxRetries: 1}))
	require.NoError(t, q.Start(ctx, func(context.Context, *jobs.ExtractDocumentJob) error {
		return errors.New("model timeout")
	}))

	waitForStatus(t, store, "job-1", jobs.JobStatusFailed)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(statuses) == 4
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []jobs.JobStatus{
		jobs.JobStatusPending,
		jobs.JobStatusRetrying,
		jobs.JobStatusPending,
		jobs.JobStatusFailed,
	}, statuses)
}

func TestStore_Prune(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	old := now.Add(-48 * time.Hour)
	recent := now.Add(-time.Hour)

	for _, job := range []*jobs.ExtractDocumentJob{
		{JobID: "old-done", Status: jobs.JobStatusCompleted, CompletedAt: &old},
		{JobID: "old-failed", Status: jobs.JobStatusFailed, CompletedAt: &old},
		{JobID: "recent-done", Status: jobs.JobStatusCompleted, CompletedAt: &recent},
		{JobID: "retrying", Status: jobs.JobStatusRetrying},
		{JobID: "pending", Status: jobs.JobStatusPending},
	} {
		require.NoError(t, s.SaveJob(ctx, job))
	}

	assert.Equal(t, 2, s.Prune(now.Add(-24*time.Hour)))

	left, err := s.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	ids := make([]string, 0, len(left))
	for _, j := range left {
		ids = append(ids, j.JobID)
	}
	assert.ElementsMatch(t, []string{"recent-done", "retrying", "pending"}, ids)

	_, err = s.GetJob(ctx, "old-done")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}
