package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/extract"
	"github.com/dvloznov/statement-ingest/internal/filestore"
	"github.com/dvloznov/statement-ingest/internal/store"
)

// Upload is one statement file as received from a client.
type Upload struct {
	Filename string
	Size     int64 // declared size; -1 when unknown
	Body     io.Reader
}

// Archiver keeps a copy of the original upload.
type Archiver interface {
	Archive(ctx context.Context, userID, filename string, data []byte) (string, error)
}

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	UserID string
	Upload Upload

	Format    domain.FileFormat
	Extractor extract.Extractor
	File      *filestore.File
	Data      []byte

	Raw        *domain.RawStatement
	ArchiveURI string
	Normalized NormalizedStatement

	Saved              int
	Duplicates         int
	Failed             int
	AccountInfoUpdated bool
}

// AuthorizeStep rejects anonymous uploads.
type AuthorizeStep struct{}

func (s *AuthorizeStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.UserID == "" {
		return domain.AuthError("Authentication required")
	}
	return nil
}

// SizeLimitStep rejects uploads whose declared size is over Limit.
type SizeLimitStep struct {
	Limit int64
}

func (s *SizeLimitStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Upload.Size > s.Limit {
		return domain.TooLargeError(state.Upload.Size, s.Limit)
	}
	return nil
}

// DispatchStep picks the extractor by extension before any I/O.
type DispatchStep struct {
	Registry *extract.Registry
}

func (s *DispatchStep) Execute(ctx context.Context, state *PipelineState) error {
	x, format, err := s.Registry.For(state.Upload.Filename)
	if err != nil {
		return err
	}
	state.Extractor, state.Format = x, format
	return nil
}

// SpoolStep streams the body to a temp file, enforcing Limit on the bytes
// actually received.
type SpoolStep struct {
	Spool *filestore.Spool
	Limit int64
}

func (s *SpoolStep) Execute(ctx context.Context, state *PipelineState) error {
	f, err := s.Spool.Save(state.Upload.Filename, state.Upload.Body, s.Limit)
	if err != nil {
		return err
	}
	state.File = f

	data, err := f.ReadAll()
	if err != nil {
		return err
	}
	state.Data = data
	return nil
}

// ExtractStep runs the extractor chosen by DispatchStep.
type ExtractStep struct{}

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	raw, err := state.Extractor.Extract(ctx, state.Data, state.Upload.Filename)
	if err != nil {
		return err
	}
	if raw.Source == "" {
		raw.Source = domain.SourceUpload
	}
	state.Raw = raw
	return nil
}

// ArchiveStep copies the original file to the archive. Failures are logged only.
type ArchiveStep struct {
	Archiver Archiver
	Log      zerolog.Logger
}

func (s *ArchiveStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Archiver == nil {
		return nil
	}
	uri, err := s.Archiver.Archive(ctx, state.UserID, state.Upload.Filename, state.Data)
	if err != nil {
		s.Log.Warn().Err(err).
			Str("user_id", state.UserID).
			Str("filename", state.Upload.Filename).
			Msg("Failed to archive upload")
		return nil
	}
	state.ArchiveURI = uri
	return nil
}

// NormalizeStep validates the raw statement.
type NormalizeStep struct {
	Normalizer *Normalizer
}

func (s *NormalizeStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Normalized = s.Normalizer.Normalize(state.UserID, state.Raw)
	return nil
}

// PersistStep writes transactions one at a time in document order. A failed
// write is logged and counted; the batch continues.
type PersistStep struct {
	Resolver *DuplicateResolver
	Log      zerolog.Logger
}

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	for _, tx := range state.Normalized.Transactions {
		written, err := s.Resolver.WriteOrSkip(ctx, tx, state.Normalized.BankType)
		switch {
		case err != nil:
			state.Failed++
			s.Log.Error().Err(err).
				Str("user_id", state.UserID).
				Str("reference", tx.Reference).
				Msg("Failed to persist transaction")
		case written:
			state.Saved++
		default:
			state.Duplicates++
		}
	}
	return nil
}

// AccountInfoStep upserts the account snapshot when the statement had one.
type AccountInfoStep struct {
	Repo store.AccountInfoRepository
	Log  zerolog.Logger
}

func (s *AccountInfoStep) Execute(ctx context.Context, state *PipelineState) error {
	info := state.Normalized.AccountInfo
	if info == nil {
		return nil
	}
	if err := s.Repo.UpsertAccountInfo(ctx, info); err != nil {
		s.Log.Error().Err(err).Str("user_id", state.UserID).Msg("Failed to update account info")
		return nil
	}
	state.AccountInfoUpdated = true
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
