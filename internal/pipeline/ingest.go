// Package pipeline turns uploaded statements into stored transactions:
// dispatch, extract, normalize, dedupe, persist.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/extract"
	"github.com/dvloznov/statement-ingest/internal/filestore"
	"github.com/dvloznov/statement-ingest/internal/statement"
	"github.com/dvloznov/statement-ingest/internal/store"
)

// IngestorConfig wires an Ingestor. Archiver is optional.
type IngestorConfig struct {
	Registry *extract.Registry
	Spool    *filestore.Spool
	Repo     store.Repository
	Archiver Archiver
	MaxSize  int64
	Log      zerolog.Logger
}

// Ingestor runs the upload pipeline and manual entry.
type Ingestor struct {
	pipeline   *Pipeline
	normalizer *Normalizer
	resolver   *DuplicateResolver
	log        zerolog.Logger
}

// NewIngestor builds the standard upload pipeline.
func NewIngestor(cfg IngestorConfig) *Ingestor {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = domain.MaxUploadSize
	}
	normalizer := NewNormalizer(cfg.Log)
	resolver := NewDuplicateResolver(cfg.Repo, cfg.Log)

	steps := []PipelineStep{
		&AuthorizeStep{},
		&SizeLimitStep{Limit: cfg.MaxSize},
		&DispatchStep{Registry: cfg.Registry},
		&SpoolStep{Spool: cfg.Spool, Limit: cfg.MaxSize},
		&ExtractStep{},
	}
	if cfg.Archiver != nil {
		steps = append(steps, &ArchiveStep{Archiver: cfg.Archiver, Log: cfg.Log})
	}
	steps = append(steps,
		&NormalizeStep{Normalizer: normalizer},
		&PersistStep{Resolver: resolver, Log: cfg.Log},
		&AccountInfoStep{Repo: cfg.Repo, Log: cfg.Log},
	)

	return &Ingestor{
		pipeline:   NewPipeline(steps...),
		normalizer: normalizer,
		resolver:   resolver,
		log:        cfg.Log,
	}
}

// HandleUpload ingests one statement for userID. The spooled file is removed
// on every exit path and panics come back as errors.
func (i *Ingestor) HandleUpload(ctx context.Context, userID string, up Upload) (result *UploadResult, err error) {
	state := &PipelineState{UserID: userID, Upload: up}

	defer func() {
		if rmErr := state.File.Remove(); rmErr != nil {
			i.log.Warn().Err(rmErr).Str("path", state.File.Path).Msg("Failed to remove spooled upload")
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			i.log.Error().
				Str("user_id", userID).
				Str("filename", up.Filename).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Recovered from panic during upload")
			result = nil
			err = fmt.Errorf("HandleUpload: panic: %v", r)
		}
	}()

	if err := i.pipeline.Execute(ctx, state); err != nil {
		i.log.Info().Err(err).
			Str("user_id", userID).
			Str("filename", up.Filename).
			Str("kind", string(domain.KindOf(err))).
			Msg("Upload rejected")
		return nil, err
	}

	result = NewUploadResult(state)
	i.log.Info().
		Str("user_id", userID).
		Str("filename", up.Filename).
		Str("bank_type", string(result.BankType)).
		Int("total", result.Processed.TotalTransactions).
		Int("saved", result.Processed.SavedTransactions).
		Int("skipped", result.Processed.SkippedTransactions).
		Msg("Upload processed")
	return result, nil
}

// AddManual normalizes and stores a single hand-entered transaction. It
// returns written=false when the user already has it.
func (i *Ingestor) AddManual(ctx context.Context, userID string, raw domain.RawTransaction) (domain.Transaction, bool, error) {
	if userID == "" {
		return domain.Transaction{}, false, domain.AuthError("Authentication required")
	}

	refs := statement.NewRefGenerator(statement.PrefixManual)
	tx, err := i.normalizer.Transaction(userID, raw, domain.BankTraditional, domain.SourceManual, refs)
	if err != nil {
		return domain.Transaction{}, false, domain.ValidationError(domain.FormatJSON, "Invalid transaction: "+err.Error())
	}

	written, err := i.resolver.WriteOrSkip(ctx, tx, domain.BankTraditional)
	if err != nil {
		return domain.Transaction{}, false, fmt.Errorf("AddManual: %w", err)
	}
	return tx, written, nil
}
