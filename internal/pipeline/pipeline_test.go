package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/tax-tracker/internal/app"
	bq "github.com/dvloznov/tax-tracker/internal/bigquery"
	"github.com/dvloznov/tax-tracker/internal/clock"
	"github.com/dvloznov/tax-tracker/internal/docs"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/extraction"
	"github.com/dvloznov/tax-tracker/internal/gcsuploader"
	"github.com/dvloznov/tax-tracker/internal/jobs"
	"github.com/dvloznov/tax-tracker/internal/jobs/inmemory"
	"github.com/dvloznov/tax-tracker/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now     = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	pngData = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
)

// MockSource implements DocumentSource for testing.
type MockSource struct {
	GetFunc func(ctx context.Context, uri string) ([]byte, error)
}

func (m *MockSource) Get(ctx context.Context, uri string) ([]byte, error) {
	return m.GetFunc(ctx, uri)
}

// MockExtractor implements extraction.Extractor for testing.
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, doc extraction.Document, docType domain.DocumentType, uc extraction.UserContext) extraction.Result
	calls       int
}

func (m *MockExtractor) Extract(ctx context.Context, doc extraction.Document, docType domain.DocumentType, uc extraction.UserContext) extraction.Result {
	m.calls++
	return m.ExtractFunc(ctx, doc, docType, uc)
}

// MockWorkflow implements Workflow for testing and records upload statuses.
type MockWorkflow struct {
	ApplyExtractionFunc func(ctx context.Context, seq uint64, res extraction.Result) (app.ExtractionReport, error)

	mu       sync.Mutex
	seq      uint64
	statuses []domain.FileStatus
	lastErr  string
}

func (m *MockWorkflow) BeginExtraction() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return m.seq
}

func (m *MockWorkflow) ExtractionContext() extraction.UserContext {
	return extraction.UserContext{UserType: domain.UserSalaried, AssessmentYear: "2024-25", Regime: domain.RegimeOld}
}

func (m *MockWorkflow) ApplyExtraction(ctx context.Context, seq uint64, res extraction.Result) (app.ExtractionReport, error) {
	return m.ApplyExtractionFunc(ctx, seq, res)
}

func (m *MockWorkflow) UpdateUploadStatus(_ context.Context, _ string, status domain.FileStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
	m.lastErr = errMsg
	return nil
}

// MockRecorder implements RunRecorder for testing.
type MockRecorder struct {
	rows []*bq.ExtractionRunRow
}

func (m *MockRecorder) RecordExtractionRun(_ context.Context, row *bq.ExtractionRunRow) error {
	m.rows = append(m.rows, row)
	return nil
}

func stagedReport(seq uint64, res extraction.Result) app.ExtractionReport {
	return app.ExtractionReport{
		Sequence:   seq,
		Outcome:    app.OutcomeStaged,
		Staged:     len(res.ExtractedData.Transactions),
		Confidence: res.ExtractedData.Confidence,
	}
}

func twoCandidates(doc extraction.Document, docType domain.DocumentType) extraction.Result {
	c := domain.Candidate{
		Date:        civil.Date{Year: 2024, Month: time.April, Day: 30},
		Description: "April salary",
		Amount:      decimal.NewFromInt(95000),
		Type:        domain.TypeIncome,
		Category:    domain.CategorySalaryIncome,
	}
	return extraction.Result{
		Success: true,
		ExtractedData: extraction.ExtractedData{
			Transactions: []domain.Candidate{c, c},
			Confidence:   0.9,
		},
		Metadata: extraction.Metadata{DocumentType: docType, FileName: doc.Name},
	}
}

func newJob() *jobs.ExtractDocumentJob {
	return &jobs.ExtractDocumentJob{
		JobID:        "job-1",
		UploadID:     "upload-1",
		ArchiveURI:   "mem://uploads/payslip.png",
		FileName:     "payslip.png",
		MIMEType:     "image/png",
		DocumentType: domain.DocSalarySlip,
	}
}

func TestHandler_StagesCandidates(t *testing.T) {
	source := &MockSource{GetFunc: func(_ context.Context, uri string) ([]byte, error) {
		assert.Equal(t, "mem://uploads/payslip.png", uri)
		return pngData, nil
	}}
	extractor := &MockExtractor{ExtractFunc: func(_ context.Context, doc extraction.Document, docType domain.DocumentType, uc extraction.UserContext) extraction.Result {
		assert.Equal(t, "image/png", doc.MIMEType)
		assert.Equal(t, domain.DocSalarySlip, docType)
		assert.Equal(t, "2024-25", uc.AssessmentYear)
		return twoCandidates(doc, docType)
	}}
	workflow := &MockWorkflow{ApplyExtractionFunc: func(_ context.Context, seq uint64, res extraction.Result) (app.ExtractionReport, error) {
		assert.Equal(t, uint64(1), seq)
		return stagedReport(seq, res), nil
	}}
	recorder := &MockRecorder{}

	handler := Handler(Deps{
		Source:    source,
		Extractor: extractor,
		Workflow:  workflow,
		Recorder:  recorder,
		Clock:     clock.FixedClock{T: now},
	})

	job := newJob()
	require.NoError(t, handler(context.Background(), job))

	assert.Equal(t, "staged", job.Outcome)
	assert.Equal(t, 2, job.Staged)
	assert.Equal(t, []domain.FileStatus{domain.FileProcessing, domain.FileCompleted}, workflow.statuses)

	require.Len(t, recorder.rows, 1)
	row := recorder.rows[0]
	assert.Equal(t, "job-1", row.JobID)
	assert.Equal(t, "upload-1", row.UploadID)
	assert.Equal(t, "salary_slip", row.DocumentType)
	assert.Equal(t, "staged", row.Outcome)
	assert.Equal(t, int64(2), row.Staged.Int64)
	assert.True(t, row.Staged.Valid)
	assert.InDelta(t, 0.9, row.Confidence.Float64, 1e-9)
	assert.True(t, row.StartedTS.Equal(now))
}

func TestHandler_Failures(t *testing.T) {
	tests := []struct {
		name          string
		data          []byte
		fetchErr      error
		result        func(extraction.Document, domain.DocumentType) extraction.Result
		wantIs        error
		wantPermanent bool
		wantExtracted bool
		wantMessage   string
	}{
		{
			name:          "archived file gone",
			fetchErr:      gcsuploader.ErrNotFound,
			wantIs:        gcsuploader.ErrNotFound,
			wantPermanent: true,
			wantMessage:   "pipeline step 2",
		},
		{
			name:        "archive unreachable on the last attempt",
			fetchErr:    errors.New("connection reset by peer"),
			wantMessage: "connection reset",
		},
		{
			name:          "not an allowed document",
			data:          []byte("just some plain text, definitely not a payslip"),
			wantIs:        docs.ErrInvalidFile,
			wantPermanent: true,
			wantMessage:   "pipeline step 3",
		},
		{
			name: "extractor reports failure",
			data: pngData,
			result: func(doc extraction.Document, docType domain.DocumentType) extraction.Result {
				return extraction.Failed(doc, docType, now, extraction.ErrSafety)
			},
			wantPermanent: true,
			wantExtracted: true,
			wantMessage:   extraction.ErrSafety.Error(),
		},
		{
			name: "retryable failure on the last attempt",
			data: pngData,
			result: func(doc extraction.Document, docType domain.DocumentType) extraction.Result {
				res := extraction.Failed(doc, docType, now, errors.New("model overloaded"))
				res.Retryable = true
				return res
			},
			wantExtracted: true,
			wantMessage:   "model overloaded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &MockSource{GetFunc: func(context.Context, string) ([]byte, error) {
				return tt.data, tt.fetchErr
			}}
			extractor := &MockExtractor{ExtractFunc: func(_ context.Context, doc extraction.Document, docType domain.DocumentType, _ extraction.UserContext) extraction.Result {
				return tt.result(doc, docType)
			}}
			workflow := &MockWorkflow{ApplyExtractionFunc: func(_ context.Context, seq uint64, res extraction.Result) (app.ExtractionReport, error) {
				return app.ExtractionReport{Sequence: seq, Outcome: app.OutcomeFailed, Error: res.Error}, nil
			}}
			recorder := &MockRecorder{}

			job := newJob()
			err := Handler(Deps{
				Source:    source,
				Extractor: extractor,
				Workflow:  workflow,
				Recorder:  recorder,
				Clock:     clock.FixedClock{T: now},
			})(context.Background(), job)

			require.Error(t, err)
			assert.Equal(t, tt.wantPermanent, errors.Is(err, jobs.ErrPermanent))
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			assert.Contains(t, workflow.lastErr, tt.wantMessage)

			assert.Equal(t, tt.wantExtracted, extractor.calls > 0)
			assert.Equal(t, "failed", job.Outcome)
			assert.Equal(t, domain.FileFailed, workflow.statuses[len(workflow.statuses)-1])

			require.Len(t, recorder.rows, 1)
			assert.Equal(t, "failed", recorder.rows[0].Outcome)
			assert.NotEmpty(t, recorder.rows[0].ErrorMessage)
		})
	}
}

func TestHandler_RetryableFailureKeepsUploadProcessing(t *testing.T) {
	source := &MockSource{GetFunc: func(context.Context, string) ([]byte, error) {
		return pngData, nil
	}}
	attempts := 0
	extractor := &MockExtractor{ExtractFunc: func(_ context.Context, doc extraction.Document, docType domain.DocumentType, _ extraction.UserContext) extraction.Result {
		attempts++
		if attempts == 1 {
			res := extraction.Failed(doc, docType, now, errors.New("model overloaded"))
			res.Retryable = true
			return res
		}
		return twoCandidates(doc, docType)
	}}
	applied := 0
	workflow := &MockWorkflow{ApplyExtractionFunc: func(_ context.Context, seq uint64, res extraction.Result) (app.ExtractionReport, error) {
		applied++
		return stagedReport(seq, res), nil
	}}
	recorder := &MockRecorder{}
	handler := Handler(Deps{
		Source:    source,
		Extractor: extractor,
		Workflow:  workflow,
		Recorder:  recorder,
		Clock:     clock.FixedClock{T: now},
	})

	job := newJob()
	job.MaxRetries = 2

	err := handler(context.Background(), job)
	require.Error(t, err)
	assert.False(t, errors.Is(err, jobs.ErrPermanent))
	assert.True(t, jobs.WillRetry(job, err))
	assert.Zero(t, applied, "a retryable failure is not applied")
	assert.Empty(t, job.Outcome)
	assert.Equal(t, domain.FileProcessing, workflow.statuses[len(workflow.statuses)-1])
	assert.Contains(t, workflow.lastErr, "model overloaded")
	require.Len(t, recorder.rows, 1)
	assert.Equal(t, "retrying", recorder.rows[0].Outcome)

	job.RetryCount++
	require.NoError(t, handler(context.Background(), job))
	assert.Equal(t, 1, applied)
	assert.Equal(t, "staged", job.Outcome)
	assert.Equal(t, domain.FileCompleted, workflow.statuses[len(workflow.statuses)-1])
}

func TestQueue_RetriesTransientExtraction(t *testing.T) {
	ctx := context.Background()
	clk := clock.FixedClock{T: now}

	a := app.New(app.Deps{Store: store.NewMemoryStore(), Clock: clk, Logger: zerolog.Nop()})
	archive := gcsuploader.NewMemoryArchive(clk)
	uri, err := archive.Put(ctx, "payslip.png", "image/png", pngData)
	require.NoError(t, err)
	upload, err := a.RecordUpload(ctx, domain.UploadedFile{FileName: "payslip.png", DocumentType: domain.DocSalarySlip})
	require.NoError(t, err)

	var mu sync.Mutex
	attempts := 0
	extractor := &MockExtractor{ExtractFunc: func(_ context.Context, doc extraction.Document, docType domain.DocumentType, _ extraction.UserContext) extraction.Result {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			res := extraction.Failed(doc, docType, now, errors.New("model overloaded"))
			res.Retryable = true
			return res
		}
		return twoCandidates(doc, docType)
	}}

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(inmemory.Options{
		Workers: 1,
		Backoff: func(int) time.Duration { return time.Millisecond },
		Logger:  zerolog.Nop(),
	}, jobStore)
	require.NoError(t, queue.Start(ctx, Handler(Deps{Source: archive, Extractor: extractor, Workflow: a, Clock: clk})))
	defer queue.Stop(ctx)

	job := newJob()
	job.UploadID = upload.ID
	job.ArchiveURI = uri
	require.NoError(t, queue.PublishExtractDocument(ctx, job))

	require.Eventually(t, func() bool {
		got, err := jobStore.GetJob(ctx, job.JobID)
		return err == nil && got.Status == jobs.JobStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	got, err := jobStore.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, "staged", got.Outcome)
	assert.Len(t, a.Pending().Batch.Candidates, 2)
	assert.Equal(t, domain.FileCompleted, a.UploadedFiles()[0].Status)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "abc", 5, "abc"},
		{"ascii", "abcdef", 3, "abc"},
		{"multibyte kept whole", "₹₹₹₹", 2, "₹₹"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

type stepFunc func(ctx context.Context, state *PipelineState) error

func (f stepFunc) Execute(ctx context.Context, state *PipelineState) error {
	return f(ctx, state)
}

func TestPipeline_StopsAtFirstFailure(t *testing.T) {
	var ran []int
	step := func(n int, err error) PipelineStep {
		return stepFunc(func(context.Context, *PipelineState) error {
			ran = append(ran, n)
			return err
		})
	}

	boom := errors.New("boom")
	p := NewPipeline(step(1, nil), step(2, boom), step(3, nil))

	err := p.Execute(context.Background(), NewState(newJob(), now))
	require.ErrorIs(t, err, boom)
	assert.EqualError(t, err, "pipeline step 2 failed: boom")
	assert.Equal(t, []int{1, 2}, ran)
}

func TestHandler_WithApp(t *testing.T) {
	ctx := context.Background()
	clk := clock.FixedClock{T: now}

	a := app.New(app.Deps{Store: store.NewMemoryStore(), Clock: clk, Logger: zerolog.Nop()})
	archive := gcsuploader.NewMemoryArchive(clk)

	uri, err := archive.Put(ctx, "payslip.png", "image/png", pngData)
	require.NoError(t, err)
	upload, err := a.RecordUpload(ctx, domain.UploadedFile{FileName: "payslip.png", DocumentType: domain.DocSalarySlip})
	require.NoError(t, err)

	handler := Handler(Deps{
		Source: archive,
		Extractor: &MockExtractor{ExtractFunc: func(_ context.Context, doc extraction.Document, docType domain.DocumentType, _ extraction.UserContext) extraction.Result {
			return twoCandidates(doc, docType)
		}},
		Workflow: a,
		Clock:    clk,
	})

	job := newJob()
	job.UploadID = upload.ID
	job.ArchiveURI = uri
	require.NoError(t, handler(ctx, job))

	view := a.Pending()
	assert.True(t, view.Visible)
	assert.Len(t, view.Batch.Candidates, 2)
	assert.Equal(t, domain.FileCompleted, a.UploadedFiles()[0].Status)
}

func TestHandler_NoExtractorIsPermanent(t *testing.T) {
	source := &MockSource{GetFunc: func(context.Context, string) ([]byte, error) {
		return pngData, nil
	}}
	workflow := &MockWorkflow{}

	err := Handler(Deps{Source: source, Workflow: workflow, Clock: clock.FixedClock{T: now}})(context.Background(), newJob())

	require.Error(t, err)
	assert.ErrorIs(t, err, jobs.ErrPermanent)
	assert.ErrorIs(t, err, app.ErrNoExtractor)
	assert.Equal(t, domain.FileFailed, workflow.statuses[len(workflow.statuses)-1])
}
