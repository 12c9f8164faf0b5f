package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

// InsertTransactionsWithClient appends a batch of TransactionRow to
// dataset.transactions using the provided BigQuery client.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, dataset string, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.Dataset(dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}

	return nil
}

// QueryTransactionsByDateRangeWithClient returns the latest synced version of
// every transaction dated within [start, end], skipping deleted ones.
func QueryTransactionsByDateRangeWithClient(ctx context.Context, client *bigquery.Client, dataset string, start, end civil.Date) ([]*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			transaction_date,
			description,
			amount,
			type,
			category,
			source,
			has_receipt,
			document_id,
			notes,
			tags,
			deleted,
			created_ts,
			updated_ts,
			synced_ts
		FROM `+"`%s.%s`"+`
		WHERE transaction_date >= @start_date
		  AND transaction_date <= @end_date
		QUALIFY ROW_NUMBER() OVER (PARTITION BY transaction_id ORDER BY synced_ts DESC) = 1
		  AND NOT deleted
		ORDER BY transaction_date, created_ts
	`, dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByDateRange: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByDateRange: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
