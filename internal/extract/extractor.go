// Package extract turns uploaded statement files into raw statements.
// Each accepted format has one Extractor; the Registry picks it by extension.
package extract

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/dvloznov/statement-ingest/internal/domain"
)

// Extractor reads one file format into an unvalidated statement.
type Extractor interface {
	Extract(ctx context.Context, data []byte, filename string) (*domain.RawStatement, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, data []byte, filename string) (*domain.RawStatement, error)

func (f ExtractorFunc) Extract(ctx context.Context, data []byte, filename string) (*domain.RawStatement, error) {
	return f(ctx, data, filename)
}

// Registry dispatches uploads to an extractor by file extension.
type Registry struct {
	byFormat map[domain.FileFormat]Extractor
}

// NewRegistry wires the three supported formats.
func NewRegistry(jsonX, csvX, pdfX Extractor) *Registry {
	return &Registry{
		byFormat: map[domain.FileFormat]Extractor{
			domain.FormatJSON: jsonX,
			domain.FormatCSV:  csvX,
			domain.FormatPDF:  pdfX,
		},
	}
}

// For returns the extractor for filename. Unknown extensions yield an
// unsupported_format error.
func (r *Registry) For(filename string) (Extractor, domain.FileFormat, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	format := domain.FileFormat(strings.TrimPrefix(ext, "."))
	x, ok := r.byFormat[format]
	if !ok || x == nil {
		return nil, "", domain.UnsupportedFormatError(ext)
	}
	return x, format, nil
}

func mentionsWalletBrand(s string) bool {
	return strings.Contains(strings.ToLower(s), domain.WalletBrand)
}
