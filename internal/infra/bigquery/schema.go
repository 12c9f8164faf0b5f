package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
)

// EnsureSchemaWithClient creates the dataset and the three tables, inferring
// each schema from its row type. Existing objects are left untouched.
func EnsureSchemaWithClient(ctx context.Context, client *bigquery.Client, dataset string) error {
	ds := client.Dataset(dataset)
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: "US"}); err != nil && !alreadyExists(err) {
		return fmt.Errorf("EnsureSchema: creating dataset %s: %w", dataset, err)
	}

	tables := []struct {
		name      string
		row       any
		partition string
	}{
		{transactionsTable, TransactionRow{}, "synced_ts"},
		{taxSnapshotsTable, TaxSnapshotRow{}, "taken_ts"},
		{extractionRunsTable, ExtractionRunRow{}, "started_ts"},
	}

	for _, t := range tables {
		schema, err := bigquery.InferSchema(t.row)
		if err != nil {
			return fmt.Errorf("EnsureSchema: inferring %s schema: %w", t.name, err)
		}

		meta := &bigquery.TableMetadata{
			Schema: schema,
			TimePartitioning: &bigquery.TimePartitioning{
				Type:  bigquery.DayPartitioningType,
				Field: t.partition,
			},
		}
		if err := ds.Table(t.name).Create(ctx, meta); err != nil && !alreadyExists(err) {
			return fmt.Errorf("EnsureSchema: creating table %s: %w", t.name, err)
		}
	}

	return nil
}

func alreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}
