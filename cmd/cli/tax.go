package main

import (
	"fmt"

	"github.com/dvloznov/tax-tracker/internal/insights"
	"github.com/dvloznov/tax-tracker/internal/money"
	"github.com/dvloznov/tax-tracker/internal/tax"
	"github.com/spf13/cobra"
)

func (c *cli) taxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tax",
		Short: "Compare the old and new tax regimes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			calc := c.svc.App.Calculation()
			out := cmd.OutOrStdout()

			tw := newTable(out)
			fmt.Fprintln(tw, "\tOLD REGIME\tNEW REGIME")
			row := func(label string, get func(tax.RegimeResult) string) {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", label, get(calc.OldRegime), get(calc.NewRegime))
			}
			row("Gross income", func(r tax.RegimeResult) string { return money.Rupees(r.GrossIncome) })
			row("Deductions", func(r tax.RegimeResult) string { return money.Rupees(r.TotalDeductions) })
			row("Taxable income", func(r tax.RegimeResult) string { return money.Rupees(r.TaxableIncome) })
			row("Tax liability", func(r tax.RegimeResult) string { return money.Rupees(r.TaxLiability) })
			row("Effective rate", func(r tax.RegimeResult) string { return r.EffectiveRate.StringFixed(2) + "%" })
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nRecommended: %s regime. %s\n", calc.Recommendation.Regime, calc.Recommendation.Reason)
			return nil
		},
	}
}

func (c *cli) utilizationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "utilization",
		Short: "Show how much of each deduction limit is used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			util := c.svc.App.Utilization()

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "SECTION\tUSED\tLIMIT\tREMAINING\tUTILIZATION")
			for _, s := range []struct {
				name string
				u    tax.SectionUtilization
			}{
				{"80C", util.Section80C},
				{"80D", util.Section80D},
				{"HRA", util.HRA},
			} {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%%\n",
					s.name, money.Rupees(s.u.Used), money.Rupees(s.u.Limit),
					money.Rupees(s.u.Remaining()), s.u.Utilization.StringFixed(1))
			}
			return tw.Flush()
		},
	}
}

func (c *cli) insightsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "List tax-saving insights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list := c.svc.App.Insights()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "%d insights, %d unread\n", len(list), insights.Unread(list))
			for _, in := range list {
				if in.IsRead && !all {
					continue
				}
				mark := "*"
				if in.IsRead {
					mark = " "
				}
				fmt.Fprintf(out, "\n%s [%s] %s (%s)\n  %s\n", mark, in.Priority, in.Title, in.ID, in.Message)
				if in.Action != "" {
					fmt.Fprintf(out, "  -> %s\n", in.Action)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include insights already read")

	cmd.AddCommand(&cobra.Command{
		Use:   "read ID",
		Short: "Mark an insight as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.svc.App.MarkInsightRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as read\n", args[0])
			return nil
		},
	})
	return cmd
}
