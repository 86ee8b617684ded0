// Package notionsync mirrors a user's stored transactions into a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/statement-ingest/internal/logger"
	"github.com/dvloznov/statement-ingest/internal/store"
)

// pageSize is the Notion maximum for database queries.
const pageSize = 100

// SyncStats counts what a sync did, or would do in dry-run mode.
type SyncStats struct {
	Total    int
	Created  int
	Updated  int
	Archived int
	Skipped  int
	Failed   int
}

// SyncTransactions makes the Notion database reflect the user's transactions.
// Pages are matched on the Reference property: missing transactions get a new
// page, pages whose category drifted are updated and pages whose reference no
// longer exists are archived. Pages without a reference are left alone.
// Per-page failures are logged and counted; only listing errors abort the sync.
func SyncTransactions(ctx context.Context, lister TransactionLister, notion NotionService, dbID, userID string, dryRun bool) (SyncStats, error) {
	log := logger.FromContext(ctx)
	var stats SyncStats

	log.Info().
		Str("user_id", userID).
		Bool("dry_run", dryRun).
		Msg("Starting transaction sync to Notion")

	transactions, err := lister.ListTransactions(ctx, userID, store.TransactionFilter{})
	if err != nil {
		return stats, fmt.Errorf("SyncTransactions: listing transactions: %w", err)
	}
	stats.Total = len(transactions)

	pages, err := queryAllNotionPages(ctx, notion, dbID)
	if err != nil {
		return stats, fmt.Errorf("SyncTransactions: %w", err)
	}

	log.Info().
		Int("transaction_count", len(transactions)).
		Int("notion_page_count", len(pages)).
		Msg("Loaded transactions and Notion pages")

	existing := make(map[string]notionapi.Page, len(pages))
	for _, page := range pages {
		if ref := pageReference(page); ref != "" {
			existing[ref] = page
		}
	}

	valid := make(map[string]bool, len(transactions))
	for _, tx := range transactions {
		valid[tx.Reference] = true

		page, found := existing[tx.Reference]
		switch {
		case found && pageCategory(page) == categoryName(tx):
			stats.Skipped++

		case found:
			if dryRun {
				log.Info().Str("reference", tx.Reference).Msg("[DRY RUN] Would update Notion page")
				stats.Updated++
				continue
			}
			if _, err := notion.UpdatePage(ctx, string(page.ID), TransactionToNotionProperties(tx)); err != nil {
				log.Warn().Err(err).Str("reference", tx.Reference).Str("page_id", string(page.ID)).Msg("Failed to update Notion page")
				stats.Failed++
				continue
			}
			stats.Updated++

		default:
			if dryRun {
				log.Info().Str("reference", tx.Reference).Msg("[DRY RUN] Would create Notion page")
				stats.Created++
				continue
			}
			created, err := notion.CreatePage(ctx, dbID, TransactionToNotionProperties(tx))
			if err != nil {
				log.Warn().Err(err).Str("reference", tx.Reference).Msg("Failed to create Notion page")
				stats.Failed++
				continue
			}
			log.Debug().Str("reference", tx.Reference).Str("page_id", string(created.ID)).Msg("Created Notion page")
			stats.Created++
		}
	}

	for ref, page := range existing {
		if valid[ref] {
			continue
		}
		if dryRun {
			log.Info().Str("reference", ref).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive stale Notion page")
			stats.Archived++
			continue
		}
		if err := notion.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("reference", ref).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
			stats.Failed++
			continue
		}
		stats.Archived++
	}

	log.Info().
		Int("total", stats.Total).
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("archived", stats.Archived).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("Transaction sync completed")

	return stats, nil
}

func queryAllNotionPages(ctx context.Context, notion NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: pageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
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
