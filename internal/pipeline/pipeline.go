// Package pipeline processes uploaded documents in the background: it fetches
// the archived bytes, validates them, runs the extractor and stages the
// result for confirmation.
package pipeline

import (
	"context"
	"fmt"
	"unicode/utf8"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/tax-tracker/internal/app"
	bq "github.com/dvloznov/tax-tracker/internal/bigquery"
	"github.com/dvloznov/tax-tracker/internal/clock"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/jobs"
	"github.com/dvloznov/tax-tracker/internal/logger"
	"github.com/google/uuid"
)

const maxErrorLength = 2000

// outcomeRetrying marks a recorded run whose job will be attempted again.
const outcomeRetrying = "retrying"

// Handler returns the job handler that runs the document pipeline for every
// extraction job and reports the outcome on the upload record.
func Handler(d Deps) jobs.JobHandler {
	if d.Clock == nil {
		d.Clock = clock.RealClock{}
	}
	p := NewDocumentPipeline(d)

	return func(ctx context.Context, job *jobs.ExtractDocumentJob) error {
		log := logger.FromContext(ctx).With().
			Str("job_id", job.JobID).
			Str("upload_id", job.UploadID).
			Str("file", job.FileName).
			Logger()
		ctx = logger.WithContext(ctx, log)

		state := NewState(job, d.Clock.Now())
		err := p.Execute(ctx, state)
		retrying := jobs.WillRetry(job, err)

		job.Outcome = string(state.Report.Outcome)
		job.Staged = state.Report.Staged
		if err != nil && !retrying && job.Outcome == "" {
			job.Outcome = string(app.OutcomeFailed)
		}

		status, msg := uploadStatus(state, err, retrying)
		if job.UploadID != "" {
			if uerr := d.Workflow.UpdateUploadStatus(ctx, job.UploadID, status, msg); uerr != nil {
				log.Warn().Err(uerr).Msg("failed to update upload status")
			}
		}

		if d.Recorder != nil {
			if rerr := d.Recorder.RecordExtractionRun(ctx, runRow(state, d.Clock, err, retrying)); rerr != nil {
				log.Warn().Err(rerr).Msg("failed to record extraction run")
			}
		}

		if err != nil {
			return fmt.Errorf("extract %s: %w", job.FileName, err)
		}

		log.Info().
			Str("outcome", job.Outcome).
			Int("staged", job.Staged).
			Msg("document processed")
		return nil
	}
}

// uploadStatus maps an attempt to the upload record. An upload stays
// processing while its job is being retried.
func uploadStatus(state *PipelineState, err error, retrying bool) (domain.FileStatus, string) {
	switch {
	case retrying:
		return domain.FileProcessing, err.Error()
	case state.Report.Outcome == app.OutcomeFailed:
		return domain.FileFailed, state.Report.Error
	case err != nil:
		return domain.FileFailed, err.Error()
	default:
		return domain.FileCompleted, ""
	}
}

func runRow(state *PipelineState, clk clock.Clock, err error, retrying bool) *bq.ExtractionRunRow {
	job := state.Job
	row := &bq.ExtractionRunRow{
		RunID:        uuid.NewString(),
		JobID:        job.JobID,
		UploadID:     job.UploadID,
		FileName:     job.FileName,
		DocumentType: string(job.DocumentType),
		StartedTS:    state.StartedAt,
		FinishedTS:   bigquery.NullTimestamp{Timestamp: clk.Now(), Valid: true},
		Outcome:      string(state.Report.Outcome),
	}

	errMsg := state.Report.Error
	if err != nil {
		row.Outcome = string(app.OutcomeFailed)
		if retrying {
			row.Outcome = outcomeRetrying
		}
		errMsg = err.Error()
	}
	row.ErrorMessage = truncate(errMsg, maxErrorLength)

	if state.Report.Outcome == app.OutcomeStaged {
		row.Staged = bigquery.NullInt64{Int64: int64(state.Report.Staged), Valid: true}
		row.Confidence = bigquery.NullFloat64{Float64: state.Report.Confidence, Valid: true}
	}
	return row
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
