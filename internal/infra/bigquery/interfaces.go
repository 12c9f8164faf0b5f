// Package bigquery mirrors transactions, tax snapshots and extraction runs
// into a BigQuery dataset for reporting.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/tax-tracker/internal/bigquery"
)

// Re-export the shared types so callers need a single import.
type (
	WarehouseRepository = bq.WarehouseRepository
	TransactionRow      = bq.TransactionRow
	TaxSnapshotRow      = bq.TaxSnapshotRow
	ExtractionRunRow    = bq.ExtractionRunRow
)

const (
	transactionsTable   = "transactions"
	taxSnapshotsTable   = "tax_snapshots"
	extractionRunsTable = "extraction_runs"
)

// BigQueryWarehouse is the concrete implementation of WarehouseRepository.
// It holds a shared client to avoid creating a new connection for each
// operation.
type BigQueryWarehouse struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQueryWarehouse creates a warehouse writing to dataset in projectID.
func NewBigQueryWarehouse(ctx context.Context, projectID, dataset string) (*BigQueryWarehouse, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryWarehouse: creating client: %w", err)
	}
	return &BigQueryWarehouse{client: client, dataset: dataset}, nil
}

// Close closes the BigQuery client connection.
func (w *BigQueryWarehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

// EnsureSchema creates the dataset and tables if they do not exist yet.
func (w *BigQueryWarehouse) EnsureSchema(ctx context.Context) error {
	return EnsureSchemaWithClient(ctx, w.client, w.dataset)
}

// InsertTransactions delegates to InsertTransactionsWithClient with the shared client.
func (w *BigQueryWarehouse) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	return InsertTransactionsWithClient(ctx, w.client, w.dataset, rows)
}

// InsertTaxSnapshot delegates to InsertTaxSnapshotWithClient with the shared client.
func (w *BigQueryWarehouse) InsertTaxSnapshot(ctx context.Context, row *TaxSnapshotRow) error {
	return InsertTaxSnapshotWithClient(ctx, w.client, w.dataset, row)
}

// RecordExtractionRun delegates to RecordExtractionRunWithClient with the shared client.
func (w *BigQueryWarehouse) RecordExtractionRun(ctx context.Context, row *ExtractionRunRow) error {
	return RecordExtractionRunWithClient(ctx, w.client, w.dataset, row)
}

// QueryTransactionsByDateRange delegates to QueryTransactionsByDateRangeWithClient with the shared client.
func (w *BigQueryWarehouse) QueryTransactionsByDateRange(ctx context.Context, start, end civil.Date) ([]*TransactionRow, error) {
	return QueryTransactionsByDateRangeWithClient(ctx, w.client, w.dataset, start, end)
}

// ListTaxSnapshots delegates to ListTaxSnapshotsWithClient with the shared client.
func (w *BigQueryWarehouse) ListTaxSnapshots(ctx context.Context, limit int) ([]*TaxSnapshotRow, error) {
	return ListTaxSnapshotsWithClient(ctx, w.client, w.dataset, limit)
}
