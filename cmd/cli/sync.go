package main

import (
	"fmt"

	"github.com/dvloznov/tax-tracker/internal/app"
	infrabq "github.com/dvloznov/tax-tracker/internal/infra/bigquery"
	"github.com/dvloznov/tax-tracker/internal/notionsync"
	"github.com/spf13/cobra"
)

func (c *cli) syncCmd() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Push transactions to Notion or BigQuery",
	}

	var dryRun bool
	notionCmd := &cobra.Command{
		Use:   "notion",
		Short: "Mirror transactions into the configured Notion database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.svc.Notion == nil {
				return fmt.Errorf("notion sync is not configured (set NOTION_TOKEN and NOTION_DATABASE_ID)")
			}
			report, err := notionsync.SyncTransactions(cmd.Context(), c.svc.Notion, c.svc.App.Transactions(app.TransactionFilter{}), dryRun)
			if err != nil {
				return err
			}
			prefix := ""
			if report.DryRun {
				prefix = "[dry run] "
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%screated %d, updated %d, archived %d, unchanged %d, failed %d\n",
				prefix, report.Created, report.Updated, report.Archived, report.Skipped, report.Failed)
			return nil
		},
	}
	notionCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report changes without writing to Notion")
	syncCmd.AddCommand(notionCmd)

	syncCmd.AddCommand(&cobra.Command{
		Use:   "warehouse",
		Short: "Append transactions and a tax snapshot to BigQuery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.svc.Syncer == nil {
				return fmt.Errorf("warehouse sync is not configured (set GCP_PROJECT)")
			}
			report, err := c.svc.Syncer.Sync(cmd.Context(), infrabq.SyncInput{
				Transactions: c.svc.App.Transactions(app.TransactionFilter{}),
				Calculation:  c.svc.App.Calculation(),
				Utilization:  c.svc.App.Utilization(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d, deleted %d, unchanged %d, snapshot %s\n",
				report.Inserted, report.Deleted, report.Unchanged, report.SnapshotID)
			return nil
		},
	})

	return syncCmd
}
