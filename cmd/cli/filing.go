package main

import (
	"fmt"
	"io"

	"github.com/dvloznov/tax-tracker/internal/filing"
	"github.com/dvloznov/tax-tracker/internal/money"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (c *cli) filingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filing",
		Short: "Show the recommended ITR form and filing readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := c.svc.App.FilingReport()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Recommended form: %s\n", r.Form)
			fmt.Fprintf(out, "Readiness: %d/%d (%s%%)\n\n", r.Completed, len(r.Checklist), r.CompletionPercentage.StringFixed(0))

			tw := newTable(out)
			for _, it := range r.Checklist {
				mark := "[ ]"
				if it.Done() {
					mark = "[x]"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", mark, it.Item, it.Description)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) analysisCmd() *cobra.Command {
	var invest string
	cmd := &cobra.Command{
		Use:   "analysis",
		Short: "Break income and deductions down by category and estimate what-if savings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			investment := decimal.Zero
			if invest != "" {
				v, err := decimal.NewFromString(invest)
				if err != nil || v.IsNegative() {
					return fmt.Errorf("invalid --invest %q: must be a non-negative amount", invest)
				}
				investment = v
			}

			a := c.svc.App.Analysis(investment)
			out := cmd.OutOrStdout()

			tw := newTable(out)
			printBreakdown(tw, "INCOME", a.Income)
			fmt.Fprintln(tw)
			printBreakdown(tw, "DEDUCTIONS", a.Deductions)
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nInvesting %s more saves about %s (%s%% bracket, old regime)\n",
				money.Rupees(a.WhatIf.Investment), money.Rupees(a.WhatIf.Savings),
				a.WhatIf.Rate.Mul(decimal.NewFromInt(100)).String())
			return nil
		},
	}
	cmd.Flags().StringVar(&invest, "invest", "", fmt.Sprintf("Additional investment in rupees (default %s)", filing.DefaultWhatIfInvestment))
	return cmd
}

func printBreakdown(w io.Writer, title string, totals []filing.CategoryTotal) {
	fmt.Fprintf(w, "%s\tAMOUNT\n", title)
	if len(totals) == 0 {
		fmt.Fprintln(w, "(none)\t")
		return
	}
	for _, t := range totals {
		fmt.Fprintf(w, "%s\t%s\n", t.Category, money.Rupees(t.Amount))
	}
}
