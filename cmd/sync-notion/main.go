package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/statement-ingest/internal/bootstrap"
	"github.com/dvloznov/statement-ingest/internal/config"
	"github.com/dvloznov/statement-ingest/internal/logger"
	"github.com/dvloznov/statement-ingest/internal/notionsync"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (or set CONFIG_FILE env)")
	userID := flag.String("user", "", "User whose transactions are synced (required)")
	notionToken := flag.String("notion-token", "", "Notion API token (defaults to NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (defaults to NOTION_DATABASE_ID)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New(logger.Options{})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if *notionToken == "" {
		*notionToken = cfg.Notion.Token
	}
	if *notionDBID == "" {
		*notionDBID = cfg.Notion.DatabaseID
	}

	// Validate required flags
	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token or NOTION_TOKEN is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id or NOTION_DATABASE_ID is required")
	}
	if cfg.Store.Backend == config.BackendMemory {
		log.Warn().Msg("STORE_BACKEND is memory: there is nothing to sync")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := bootstrap.OpenRepository(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer repo.Close()

	stats, err := notionsync.SyncTransactions(ctx, repo, notionsync.NewNotionClient(*notionToken), *notionDBID, *userID, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d updated, %d archived, %d unchanged, %d failed.\n",
		stats.Created, stats.Updated, stats.Archived, stats.Skipped, stats.Failed)
}
