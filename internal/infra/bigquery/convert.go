package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/tax"
	"github.com/shopspring/decimal"
)

// numericScale is the number of fractional digits BigQuery NUMERIC keeps.
const numericScale = 9

// TransactionRowFrom converts a transaction into a warehouse row stamped with
// syncedAt.
func TransactionRowFrom(tx domain.Transaction, syncedAt time.Time) *TransactionRow {
	row := &TransactionRow{
		TransactionID:   tx.ID,
		TransactionDate: tx.Date,
		Description:     tx.Description,
		Amount:          tx.Amount.Rat(),
		Type:            string(tx.Type),
		Category:        string(tx.Category),
		Source:          string(tx.Source),
		HasReceipt:      tx.HasReceipt,
		DocumentID:      nullString(tx.DocumentID),
		Notes:           nullString(tx.Notes),
		Tags:            tx.Tags,
		CreatedTS:       tx.CreatedAt,
		SyncedTS:        syncedAt,
	}
	if !tx.UpdatedAt.IsZero() {
		row.UpdatedTS = bigquery.NullTimestamp{Timestamp: tx.UpdatedAt, Valid: true}
	}
	return row
}

// DeletedRow is a tombstone for a transaction removed since the last sync.
func DeletedRow(id string, syncedAt time.Time) *TransactionRow {
	return &TransactionRow{
		TransactionID: id,
		Amount:        new(big.Rat),
		Deleted:       true,
		CreatedTS:     syncedAt,
		SyncedTS:      syncedAt,
	}
}

// TransactionFromRow converts a warehouse row back into a transaction.
func TransactionFromRow(row *TransactionRow) (domain.Transaction, error) {
	amount := decimal.Zero
	if row.Amount != nil {
		var err error
		amount, err = decimal.NewFromString(row.Amount.FloatString(numericScale))
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("TransactionFromRow: amount of %s: %w", row.TransactionID, err)
		}
	}

	tx := domain.Transaction{
		ID:          row.TransactionID,
		Date:        row.TransactionDate,
		Description: row.Description,
		Amount:      amount,
		Type:        domain.TransactionType(row.Type),
		Category:    domain.Category(row.Category),
		HasReceipt:  row.HasReceipt,
		Source:      domain.Source(row.Source),
		DocumentID:  row.DocumentID.StringVal,
		Notes:       row.Notes.StringVal,
		Tags:        row.Tags,
		CreatedAt:   row.CreatedTS,
		UpdatedAt:   row.UpdatedTS.Timestamp,
	}
	return tx, nil
}

// TaxSnapshotRowFrom converts a regime comparison and utilization into a
// snapshot row.
func TaxSnapshotRowFrom(id string, calc tax.Calculation, util tax.Utilization, count int, takenAt time.Time) *TaxSnapshotRow {
	return &TaxSnapshotRow{
		SnapshotID:        id,
		TakenTS:           takenAt,
		GrossIncome:       calc.OldRegime.GrossIncome.Rat(),
		OldTaxable:        calc.OldRegime.TaxableIncome.Rat(),
		OldLiability:      calc.OldRegime.TaxLiability.Rat(),
		NewTaxable:        calc.NewRegime.TaxableIncome.Rat(),
		NewLiability:      calc.NewRegime.TaxLiability.Rat(),
		RecommendedRegime: string(calc.Recommendation.Regime),
		Savings:           calc.Recommendation.Savings.Rat(),
		Utilization80C:    util.Section80C.Utilization.InexactFloat64(),
		Utilization80D:    util.Section80D.Utilization.InexactFloat64(),
		UtilizationHRA:    util.HRA.Utilization.InexactFloat64(),
		TransactionCount:  int64(count),
	}
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
