// Package bootstrap builds the storage backend and ingestion pipeline from
// configuration. The API server and the CLI share it.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/config"
	"github.com/dvloznov/statement-ingest/internal/extract"
	"github.com/dvloznov/statement-ingest/internal/filestore"
	"github.com/dvloznov/statement-ingest/internal/gcsuploader"
	"github.com/dvloznov/statement-ingest/internal/infra/bigquery"
	"github.com/dvloznov/statement-ingest/internal/infra/memory"
	"github.com/dvloznov/statement-ingest/internal/infra/sqlite"
	"github.com/dvloznov/statement-ingest/internal/pipeline"
	"github.com/dvloznov/statement-ingest/internal/store"
)

// OpenRepository opens the backend named by cfg.Backend.
func OpenRepository(ctx context.Context, cfg config.StoreConfig) (store.Repository, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return memory.NewStore(), nil
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("OpenRepository: %w", err)
		}
		return s, nil
	case config.BackendBigQuery:
		r, err := bigquery.NewRepository(ctx, cfg.BQProject, cfg.BQDataset)
		if err != nil {
			return nil, fmt.Errorf("OpenRepository: %w", err)
		}
		return r, nil
	}
	return nil, fmt.Errorf("OpenRepository: unknown store backend %q", cfg.Backend)
}

// NewIngestor wires the extractor registry, the spool directory and, when a
// bucket is configured, the GCS archiver. The returned cleanup releases the
// storage client and is never nil.
func NewIngestor(ctx context.Context, cfg *config.Config, repo store.Repository, log zerolog.Logger) (*pipeline.Ingestor, func(), error) {
	cleanup := func() {}

	text, err := extract.NewTextExtractor(cfg.Upload.PDFExtractor)
	if err != nil {
		return nil, cleanup, fmt.Errorf("NewIngestor: %w", err)
	}

	spool, err := filestore.NewSpool(cfg.Upload.TmpDir)
	if err != nil {
		return nil, cleanup, fmt.Errorf("NewIngestor: %w", err)
	}

	ic := pipeline.IngestorConfig{
		Registry: extract.NewRegistry(
			extract.NewJSONExtractor(),
			extract.NewCSVExtractor(),
			extract.NewPDFExtractor(text, log),
		),
		Spool:   spool,
		Repo:    repo,
		MaxSize: cfg.Upload.MaxSizeBytes,
		Log:     log,
	}

	if cfg.Upload.ArchiveBucket != "" {
		gcs, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			return nil, cleanup, fmt.Errorf("NewIngestor: %w", err)
		}
		cleanup = func() {
			if err := gcs.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close storage client")
			}
		}
		ic.Archiver = gcsuploader.NewArchiver(gcs, cfg.Upload.ArchiveBucket)
		log.Info().Str("bucket", cfg.Upload.ArchiveBucket).Msg("Archiving uploads to GCS")
	}

	return pipeline.NewIngestor(ic), cleanup, nil
}
