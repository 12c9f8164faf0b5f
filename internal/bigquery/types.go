package bigquery

import (
	"context"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// WarehouseRepository provides an interface for analytics warehouse operations.
type WarehouseRepository interface {
	// InsertTransactions inserts a batch of TransactionRow into the warehouse.
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error

	// InsertTaxSnapshot inserts one regime comparison snapshot.
	InsertTaxSnapshot(ctx context.Context, row *TaxSnapshotRow) error

	// RecordExtractionRun inserts the outcome of one document extraction.
	RecordExtractionRun(ctx context.Context, row *ExtractionRunRow) error

	// QueryTransactionsByDateRange returns the latest synced version of every
	// transaction dated within [start, end].
	QueryTransactionsByDateRange(ctx context.Context, start, end civil.Date) ([]*TransactionRow, error)

	// ListTaxSnapshots returns the most recent snapshots, newest first.
	ListTaxSnapshots(ctx context.Context, limit int) ([]*TaxSnapshotRow, error)
}

// TransactionRow is one synced version of a transaction. Rows are append-only;
// the latest synced_ts per transaction_id wins.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Description     string     `bigquery:"description"`      // REQUIRED
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC

	Type     string `bigquery:"type"`     // REQUIRED
	Category string `bigquery:"category"` // REQUIRED
	Source   string `bigquery:"source"`   // REQUIRED

	HasReceipt bool                `bigquery:"has_receipt"`
	DocumentID bigquery.NullString `bigquery:"document_id"` // NULLABLE
	Notes      bigquery.NullString `bigquery:"notes"`       // NULLABLE
	Tags       []string            `bigquery:"tags"`        // REPEATED STRING
	Deleted    bool                `bigquery:"deleted"`

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
	SyncedTS  time.Time              `bigquery:"synced_ts"`  // REQUIRED
}

// TaxSnapshotRow is the regime comparison and utilization at one point in time.
type TaxSnapshotRow struct {
	SnapshotID string    `bigquery:"snapshot_id"` // REQUIRED
	TakenTS    time.Time `bigquery:"taken_ts"`    // REQUIRED

	GrossIncome  *big.Rat `bigquery:"gross_income"`
	OldTaxable   *big.Rat `bigquery:"old_taxable_income"`
	OldLiability *big.Rat `bigquery:"old_tax_liability"`
	NewTaxable   *big.Rat `bigquery:"new_taxable_income"`
	NewLiability *big.Rat `bigquery:"new_tax_liability"`

	RecommendedRegime string   `bigquery:"recommended_regime"`
	Savings           *big.Rat `bigquery:"savings"`

	Utilization80C float64 `bigquery:"utilization_80c"`
	Utilization80D float64 `bigquery:"utilization_80d"`
	UtilizationHRA float64 `bigquery:"utilization_hra"`

	TransactionCount int64 `bigquery:"transaction_count"`
}

// ExtractionRunRow records one attempt to extract transactions from a document.
type ExtractionRunRow struct {
	RunID    string `bigquery:"run_id"` // REQUIRED
	JobID    string `bigquery:"job_id"`
	UploadID string `bigquery:"upload_id"`

	FileName     string `bigquery:"file_name"`
	DocumentType string `bigquery:"document_type"`

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Outcome      string `bigquery:"outcome"`       // staged, empty, failed, stale
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	Staged     bigquery.NullInt64   `bigquery:"staged"`     // NULLABLE
	Confidence bigquery.NullFloat64 `bigquery:"confidence"` // NULLABLE
}
