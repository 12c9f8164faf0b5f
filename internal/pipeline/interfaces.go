package pipeline

import (
	"context"

	"github.com/dvloznov/tax-tracker/internal/app"
	bq "github.com/dvloznov/tax-tracker/internal/bigquery"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/extraction"
)

// DocumentSource fetches archived document bytes.
type DocumentSource interface {
	Get(ctx context.Context, uri string) ([]byte, error)
}

// Workflow is the part of the application state the pipeline drives.
// *app.App implements it.
type Workflow interface {
	BeginExtraction() uint64
	ExtractionContext() extraction.UserContext
	ApplyExtraction(ctx context.Context, seq uint64, res extraction.Result) (app.ExtractionReport, error)
	UpdateUploadStatus(ctx context.Context, id string, status domain.FileStatus, errMsg string) error
}

// RunRecorder stores extraction runs for later analysis.
type RunRecorder interface {
	RecordExtractionRun(ctx context.Context, row *bq.ExtractionRunRow) error
}
