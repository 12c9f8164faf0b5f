package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/dvloznov/tax-tracker/internal/docs"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/extraction"
	"github.com/dvloznov/tax-tracker/internal/money"
	"github.com/spf13/cobra"
)

func (c *cli) extractCmd() *cobra.Command {
	var docType string
	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Extract transactions from a document and stage them for review",
		Args:  cobra.ExactArgs(1),
		Long: `Validates FILE, archives it and sends it to the extraction model. The
extracted transactions are staged; review them with 'taxtracker pending list'
and commit them with 'taxtracker pending confirm'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.svc.Extractor == nil {
				return fmt.Errorf("extract: %w (set GEMINI_API_KEY)", app.ErrNoExtractor)
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			dt := domain.ParseDocumentType(docType)

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read document: %w", err)
			}
			name := filepath.Base(args[0])

			res := docs.Validate(docs.File{Name: name, Data: data}, dt)
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			if err := res.Err(); err != nil {
				return err
			}

			uri, err := c.svc.Archive.Put(ctx, name, res.Info.MIMEType, data)
			if err != nil {
				return fmt.Errorf("failed to archive document: %w", err)
			}
			upload, err := c.svc.App.RecordUpload(ctx, domain.UploadedFile{
				FileName:     name,
				MIMEType:     res.Info.MIMEType,
				Size:         res.Info.Size,
				DocumentType: dt,
				ArchiveURI:   uri,
				Status:       domain.FileProcessing,
			})
			if err != nil {
				return err
			}

			report, err := c.svc.App.Extract(ctx, extraction.Document{
				Name:     name,
				MIMEType: res.Info.MIMEType,
				Data:     data,
			}, dt)
			status, msg := domain.FileCompleted, ""
			switch {
			case err != nil:
				status, msg = domain.FileFailed, err.Error()
			case report.Outcome == app.OutcomeFailed:
				status, msg = domain.FileFailed, report.Error
			}
			if serr := c.svc.App.UpdateUploadStatus(ctx, upload.ID, status, msg); serr != nil {
				err = errors.Join(err, serr)
			}
			if err != nil {
				return err
			}

			switch report.Outcome {
			case app.OutcomeFailed:
				return fmt.Errorf("extraction failed: %s", report.Error)
			case app.OutcomeEmpty:
				fmt.Fprintf(out, "No transactions found in %s\n", name)
				return nil
			case app.OutcomeStale:
				fmt.Fprintln(out, "A newer extraction replaced this one")
				return nil
			}

			fmt.Fprintf(out, "Staged %d transactions from %s (confidence %.0f%%)\n\n", report.Staged, name, report.Confidence*100)
			return printCandidates(out, c.svc.App.Pending().Batch.Candidates)
		},
	}
	cmd.Flags().StringVarP(&docType, "type", "t", string(domain.DocSalarySlip), "Document type: form16, salary_slip, investment_proof or business_document")
	return cmd
}

func (c *cli) pendingCmd() *cobra.Command {
	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "Review transactions staged by extraction",
	}

	pendingCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the staged transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view := c.svc.App.Pending()
			out := cmd.OutOrStdout()
			if !view.Visible {
				fmt.Fprintln(out, "Nothing pending.")
				return nil
			}
			if view.Batch.FileName != "" {
				fmt.Fprintf(out, "From %s (%s), confidence %.0f%%\n\n", view.Batch.FileName, view.Batch.DocumentType, view.Batch.Confidence*100)
			}
			return printCandidates(out, view.Batch.Candidates)
		},
	})

	var f txFlags
	editCmd := &cobra.Command{
		Use:   "edit INDEX",
		Short: "Change fields of a staged transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			u, err := f.update(cmd)
			if err != nil {
				return err
			}
			ok, err := c.svc.App.EditPending(cmd.Context(), index, u)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no staged transaction at index %d", index)
			}
			return printCandidates(cmd.OutOrStdout(), c.svc.App.Pending().Batch.Candidates)
		},
	}
	f.register(editCmd)
	pendingCmd.AddCommand(editCmd)

	pendingCmd.AddCommand(&cobra.Command{
		Use:   "remove INDEX",
		Short: "Drop a staged transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			ok, err := c.svc.App.RemovePending(cmd.Context(), index)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no staged transaction at index %d", index)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed staged transaction %d, %d left\n", index, len(c.svc.App.Pending().Batch.Candidates))
			return nil
		},
	})

	pendingCmd.AddCommand(&cobra.Command{
		Use:   "confirm",
		Short: "Commit every staged transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.svc.App.ConfirmPending(cmd.Context())
			out := cmd.OutOrStdout()
			total := money.Rupees(sumAmounts(res.Committed))
			if err != nil {
				if len(res.Committed) > 0 {
					fmt.Fprintf(out, "Committed %d transactions (%s) before a failure, %d still staged\n", len(res.Committed), total, res.Remaining)
				}
				printFieldErrors(cmd.ErrOrStderr(), err)
				return err
			}
			fmt.Fprintf(out, "Committed %d transactions (%s)\n", len(res.Committed), total)
			return nil
		},
	})

	pendingCmd.AddCommand(&cobra.Command{
		Use:   "reject",
		Short: "Discard the staged transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.svc.App.RejectPending(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Discarded staged transactions")
			return nil
		},
	})

	return pendingCmd
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return i, nil
}
