package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/money"
	"github.com/shopspring/decimal"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTransactions(w io.Writer, txs []domain.Transaction) error {
	if len(txs) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.Date, tx.Type, tx.Category, money.Rupees(tx.Amount), tx.Description)
	}
	return tw.Flush()
}

func printCandidates(w io.Writer, cs []domain.Candidate) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tDATE\tTYPE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for i, c := range cs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i, c.Date, c.Type, c.Category, money.Rupees(c.Amount), c.Description)
	}
	return tw.Flush()
}

// printFieldErrors lists the failed fields of a validation error, if any.
func printFieldErrors(w io.Writer, err error) {
	for _, fe := range domain.Fields(err) {
		fmt.Fprintf(w, "  %s: %s\n", fe.Field, fe.Message)
	}
}

func sumAmounts(txs []domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}
