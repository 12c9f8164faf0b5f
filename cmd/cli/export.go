package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/dvloznov/tax-tracker/internal/export"
	"github.com/spf13/cobra"
)

func (c *cli) exportCmd() *cobra.Command {
	var out string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions or the tax summary",
		Long: `Writes an export to stdout, to the file named by --out, or into the
directory named by --out using the dated download name.`,
	}
	exportCmd.PersistentFlags().StringVarP(&out, "out", "o", "", "Output file or directory (default stdout)")

	exportCmd.AddCommand(&cobra.Command{
		Use:   "csv",
		Short: "Export transactions as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txs := c.svc.App.Transactions(app.TransactionFilter{})
			return writeExport(cmd, out, export.TransactionsFileName(time.Now()), func(w io.Writer) error {
				return export.WriteTransactionsCSV(w, txs)
			})
		},
	})

	exportCmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Export the tax summary as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			summary := export.NewSummary(c.svc.App.Profile(), c.svc.App.Calculation(), now)
			return writeExport(cmd, out, export.SummaryFileName(now), func(w io.Writer) error {
				return export.WriteSummaryJSON(w, summary)
			})
		},
	})

	return exportCmd
}

// writeExport sends the rendered export to stdout or to path. When path is
// a directory the file is created inside it as name.
func writeExport(cmd *cobra.Command, path, name string, render func(io.Writer) error) error {
	if path == "" {
		return render(cmd.OutOrStdout())
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, name)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	return nil
}
