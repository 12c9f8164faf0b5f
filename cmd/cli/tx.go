package main

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/money"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// txFlags are the transaction fields shared by tx add, tx update and
// pending edit.
type txFlags struct {
	date        string
	description string
	amount      string
	txType      string
	category    string
	notes       string
	receipt     bool
	tags        []string
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "Date as YYYY-MM-DD")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Description")
	cmd.Flags().StringVarP(&f.amount, "amount", "a", "", "Amount in rupees")
	cmd.Flags().StringVarP(&f.txType, "type", "t", "", "Income, Deduction or Expense")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "Category name or key, e.g. \"80C Deduction\" or SECTION_80C")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Free-form notes")
	cmd.Flags().BoolVar(&f.receipt, "receipt", false, "A receipt is on file")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "Tag (repeatable)")
}

// candidate builds a new manual transaction. The category defaults to the
// type's default category.
func (f *txFlags) candidate() (domain.Candidate, error) {
	date, err := civil.ParseDate(f.date)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("invalid --date %q: %w", f.date, err)
	}
	amount, err := decimal.NewFromString(f.amount)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("invalid --amount %q: %w", f.amount, err)
	}
	t, ok := domain.ParseTransactionType(f.txType)
	if !ok {
		return domain.Candidate{}, fmt.Errorf("invalid --type %q", f.txType)
	}
	category := domain.DefaultCategory(t)
	if f.category != "" {
		if category, ok = domain.ParseCategory(f.category); !ok {
			return domain.Candidate{}, fmt.Errorf("invalid --category %q", f.category)
		}
	}

	return domain.Candidate{
		Date:        date,
		Description: f.description,
		Amount:      amount,
		Type:        t,
		Category:    category,
		HasReceipt:  f.receipt,
		Source:      domain.SourceManual,
		Notes:       f.notes,
		Tags:        f.tags,
	}, nil
}

// update builds a partial update from the flags that were set explicitly.
func (f *txFlags) update(cmd *cobra.Command) (domain.TransactionUpdate, error) {
	var u domain.TransactionUpdate
	changed := cmd.Flags().Changed

	if changed("date") {
		d, err := civil.ParseDate(f.date)
		if err != nil {
			return u, fmt.Errorf("invalid --date %q: %w", f.date, err)
		}
		u.Date = &d
	}
	if changed("description") {
		u.Description = &f.description
	}
	if changed("amount") {
		a, err := decimal.NewFromString(f.amount)
		if err != nil {
			return u, fmt.Errorf("invalid --amount %q: %w", f.amount, err)
		}
		u.Amount = &a
	}
	if changed("type") {
		t, ok := domain.ParseTransactionType(f.txType)
		if !ok {
			return u, fmt.Errorf("invalid --type %q", f.txType)
		}
		u.Type = &t
	}
	if changed("category") {
		c, ok := domain.ParseCategory(f.category)
		if !ok {
			return u, fmt.Errorf("invalid --category %q", f.category)
		}
		u.Category = &c
	}
	if changed("receipt") {
		u.HasReceipt = &f.receipt
	}
	if changed("notes") {
		u.Notes = &f.notes
	}
	if changed("tag") {
		u.Tags = &f.tags
	}

	if u.Empty() {
		return u, fmt.Errorf("nothing to update: set at least one field flag")
	}
	return u, nil
}

func (c *cli) txCmd() *cobra.Command {
	txCmd := &cobra.Command{
		Use:   "tx",
		Short: "Manage transactions",
	}
	txCmd.AddCommand(c.txAddCmd(), c.txListCmd(), c.txUpdateCmd(), c.txDeleteCmd())
	return txCmd
}

func (c *cli) txAddCmd() *cobra.Command {
	var f txFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a manual transaction",
		Example: `  taxtracker tx add --date 2024-04-30 -d "April salary" -a 95000 -t Income
  taxtracker tx add --date 2024-05-10 -d "ELSS SIP" -a 12500 -t Deduction -c SECTION_80C --receipt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cand, err := f.candidate()
			if err != nil {
				return err
			}
			tx, err := c.svc.App.AddTransaction(cmd.Context(), cand)
			if err != nil {
				printFieldErrors(cmd.ErrOrStderr(), err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s %s (%s)\n", tx.ID, tx.Type, money.Rupees(tx.Amount), tx.Category)
			return nil
		},
	}
	f.register(cmd)
	for _, name := range []string{"date", "description", "amount", "type"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (c *cli) txListCmd() *cobra.Command {
	var (
		txType, category, source, search string
		limit, offset                    int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := app.TransactionFilter{
				Source: domain.Source(strings.TrimSpace(source)),
				Search: search,
				Limit:  limit,
				Offset: offset,
			}
			if txType != "" {
				t, ok := domain.ParseTransactionType(txType)
				if !ok {
					return fmt.Errorf("invalid --type %q", txType)
				}
				filter.Type = t
			}
			if category != "" {
				cat, ok := domain.ParseCategory(category)
				if !ok {
					return fmt.Errorf("invalid --category %q", category)
				}
				filter.Category = cat
			}
			return printTransactions(cmd.OutOrStdout(), c.svc.App.Transactions(filter))
		},
	}
	cmd.Flags().StringVarP(&txType, "type", "t", "", "Only this type")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Only this category")
	cmd.Flags().StringVar(&source, "source", "", "Only this source (manual or ai_extracted)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Match description or notes")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	return cmd
}

func (c *cli) txUpdateCmd() *cobra.Command {
	var f txFlags
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := f.update(cmd)
			if err != nil {
				return err
			}
			tx, err := c.svc.App.UpdateTransaction(cmd.Context(), args[0], u)
			if err != nil {
				printFieldErrors(cmd.ErrOrStderr(), err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s %s (%s)\n", tx.ID, tx.Type, money.Rupees(tx.Amount), tx.Category)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (c *cli) txDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.svc.App.DeleteTransaction(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
