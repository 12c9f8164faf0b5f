package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// InsertTaxSnapshotWithClient appends one snapshot to dataset.tax_snapshots.
func InsertTaxSnapshotWithClient(ctx context.Context, client *bigquery.Client, dataset string, row *TaxSnapshotRow) error {
	inserter := client.Dataset(dataset).Table(taxSnapshotsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertTaxSnapshot: inserting row: %w", err)
	}
	return nil
}

// ListTaxSnapshotsWithClient returns up to limit snapshots, newest first.
func ListTaxSnapshotsWithClient(ctx context.Context, client *bigquery.Client, dataset string, limit int) ([]*TaxSnapshotRow, error) {
	if limit <= 0 {
		limit = 30
	}

	q := client.Query(fmt.Sprintf(`
		SELECT *
		FROM `+"`%s.%s`"+`
		ORDER BY taken_ts DESC
		LIMIT @limit
	`, dataset, taxSnapshotsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTaxSnapshots: reading query: %w", err)
	}

	var rows []*TaxSnapshotRow
	for {
		var r TaxSnapshotRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTaxSnapshots: iterating: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// RecordExtractionRunWithClient appends one run to dataset.extraction_runs.
func RecordExtractionRunWithClient(ctx context.Context, client *bigquery.Client, dataset string, row *ExtractionRunRow) error {
	inserter := client.Dataset(dataset).Table(extractionRunsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("RecordExtractionRun: inserting row: %w", err)
	}
	return nil
}
