package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/dvloznov/tax-tracker/internal/clock"
	"github.com/dvloznov/tax-tracker/internal/docs"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/extraction"
	"github.com/dvloznov/tax-tracker/internal/gcsuploader"
	"github.com/dvloznov/tax-tracker/internal/jobs"
	"github.com/dvloznov/tax-tracker/internal/metrics"
)

// PipelineStep represents a single step in the extraction pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Job        *jobs.ExtractDocumentJob
	StartedAt  time.Time
	Data       []byte
	Validation docs.Result
	Document   extraction.Document
	Sequence   uint64
	Result     extraction.Result
	Report     app.ExtractionReport
}

// NewState starts the state for job.
func NewState(job *jobs.ExtractDocumentJob, now time.Time) *PipelineState {
	return &PipelineState{Job: job, StartedAt: now}
}

// Step 1: MarkProcessingStep moves the upload record to processing.
type MarkProcessingStep struct {
	Workflow Workflow
}

func (s *MarkProcessingStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Job.UploadID == "" {
		return nil
	}
	return s.Workflow.UpdateUploadStatus(ctx, state.Job.UploadID, domain.FileProcessing, "")
}

// Step 2: FetchDocumentStep reads the archived bytes. A missing object fails
// the job permanently.
type FetchDocumentStep struct {
	Source DocumentSource
}

func (s *FetchDocumentStep) Execute(ctx context.Context, state *PipelineState) error {
	data, err := s.Source.Get(ctx, state.Job.ArchiveURI)
	if errors.Is(err, gcsuploader.ErrNotFound) {
		return jobs.Permanent(fmt.Errorf("fetching %s: %w", state.Job.ArchiveURI, err))
	}
	if err != nil {
		return fmt.Errorf("fetching %s: %w", state.Job.ArchiveURI, err)
	}
	state.Data = data
	return nil
}

// Step 3: ValidateDocumentStep re-checks the bytes before they reach the
// model. Invalid documents fail permanently.
type ValidateDocumentStep struct{}

func (s *ValidateDocumentStep) Execute(_ context.Context, state *PipelineState) error {
	res := docs.Validate(docs.File{Name: state.Job.FileName, Data: state.Data}, state.Job.DocumentType)
	state.Validation = res
	if err := res.Err(); err != nil {
		return jobs.Permanent(err)
	}

	mimeType := res.Info.MIMEType
	if mimeType == "" {
		mimeType = state.Job.MIMEType
	}
	state.Document = extraction.Document{
		Name:     state.Job.FileName,
		MIMEType: mimeType,
		Data:     state.Data,
	}
	return nil
}

// Step 4: ExtractStep reserves a sequence number and calls the extractor.
// A retryable failure ends the attempt with an error so the queue runs it
// again; other failures are left for ApplyExtractionStep.
type ExtractStep struct {
	Extractor extraction.Extractor
	Workflow  Workflow
}

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Extractor == nil {
		return jobs.Permanent(app.ErrNoExtractor)
	}
	state.Sequence = s.Workflow.BeginExtraction()

	start := time.Now()
	state.Result = s.Extractor.Extract(ctx, state.Document, state.Job.DocumentType, s.Workflow.ExtractionContext())
	metrics.ObserveExtraction(start)

	if !state.Result.Success && state.Result.Retryable {
		return fmt.Errorf("extracting %s: %s", state.Job.FileName, state.Result.Error)
	}
	return nil
}

// Step 5: ApplyExtractionStep stages the extracted candidates. A failed
// extraction is recorded on the workflow and then fails the job permanently.
type ApplyExtractionStep struct {
	Workflow Workflow
}

func (s *ApplyExtractionStep) Execute(ctx context.Context, state *PipelineState) error {
	report, err := s.Workflow.ApplyExtraction(ctx, state.Sequence, state.Result)
	state.Report = report
	if err != nil {
		return err
	}
	if report.Outcome == app.OutcomeFailed {
		return jobs.Permanent(errors.New(report.Error))
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Deps are the collaborators of the document pipeline. Recorder and Clock
// are optional.
type Deps struct {
	Source    DocumentSource
	Extractor extraction.Extractor
	Workflow  Workflow
	Recorder  RunRecorder
	Clock     clock.Clock
}

// NewDocumentPipeline creates the pipeline that turns an archived upload
// into staged candidates.
func NewDocumentPipeline(d Deps) *Pipeline {
	return NewPipeline(
		&MarkProcessingStep{Workflow: d.Workflow},
		&FetchDocumentStep{Source: d.Source},
		&ValidateDocumentStep{},
		&ExtractStep{Extractor: d.Extractor, Workflow: d.Workflow},
		&ApplyExtractionStep{Workflow: d.Workflow},
	)
}
