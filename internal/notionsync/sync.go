// Package notionsync mirrors the committed transactions into a Notion
// database. The local transaction list is the source of truth.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/logger"
	"github.com/jomei/notionapi"
)

// Report summarises one sync.
type Report struct {
	Created  int  `json:"created"`
	Updated  int  `json:"updated"`
	Archived int  `json:"archived"`
	Skipped  int  `json:"skipped"`
	Failed   int  `json:"failed"`
	DryRun   bool `json:"dryRun"`
}

// SyncTransactions makes the Notion database match txs:
//  1. queries all existing pages
//  2. archives pages whose transaction no longer exists, or duplicates
//  3. creates pages for new transactions and updates changed ones
//
// Individual page failures are counted and logged; only a failed query
// aborts the sync.
func SyncTransactions(ctx context.Context, notionClient NotionService, txs []domain.Transaction, dryRun bool) (Report, error) {
	log := logger.FromContext(ctx)
	report := Report{DryRun: dryRun}

	log.Info().
		Int("transaction_count", len(txs)).
		Bool("dry_run", dryRun).
		Msg("Starting transaction sync to Notion")

	pages, err := queryAllNotionPages(ctx, notionClient)
	if err != nil {
		return report, fmt.Errorf("SyncTransactions: %w", err)
	}

	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	valid := make(map[string]bool, len(txs))
	for _, tx := range txs {
		valid[tx.ID] = true
	}

	existing := make(map[string]notionapi.Page, len(pages))
	for _, page := range pages {
		txID := extractTransactionID(page)
		_, dup := existing[txID]

		if txID != "" && valid[txID] && !dup {
			existing[txID] = page
			continue
		}

		if dryRun {
			log.Info().Str("transaction_id", txID).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive stale Notion page")
			report.Archived++
			continue
		}
		if err := notionClient.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("transaction_id", txID).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
			report.Failed++
			continue
		}
		report.Archived++
	}

	for _, tx := range txs {
		page, ok := existing[tx.ID]
		if ok && extractVersion(page) == Version(tx) {
			report.Skipped++
			continue
		}

		if dryRun {
			if ok {
				report.Updated++
			} else {
				report.Created++
			}
			continue
		}

		props := TransactionToNotionProperties(tx)

		if ok {
			if _, err := notionClient.UpdatePage(ctx, string(page.ID), props); err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.ID).Str("page_id", string(page.ID)).Msg("Failed to update Notion page")
				report.Failed++
				continue
			}
			report.Updated++
			continue
		}

		created, err := notionClient.CreatePage(ctx, props)
		if err != nil {
			log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
			report.Failed++
			continue
		}
		log.Debug().Str("transaction_id", tx.ID).Str("page_id", string(created.ID)).Msg("Created Notion page")
		report.Created++
	}

	log.Info().
		Int("created", report.Created).
		Int("updated", report.Updated).
		Int("archived", report.Archived).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("Transaction sync completed")

	return report, nil
}

// queryAllNotionPages follows the cursor until every page is read.
func queryAllNotionPages(ctx context.Context, notionClient NotionService) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		resp, err := notionClient.QueryPages(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
