package extract

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/detect"
	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/statement"
)

// minTextLength is the shortest extracted text treated as a text PDF.
// Anything shorter is almost always a scanned image.
const minTextLength = 50

var pdfMagic = []byte("%PDF")

// PDFExtractor validates the PDF header, extracts text, detects the bank
// type and runs the matching line parser.
type PDFExtractor struct {
	text    TextExtractor
	parsers map[domain.BankType]statement.TransactionLineParser
	log     zerolog.Logger
}

// NewPDFExtractor uses the built-in wallet and traditional parsers.
func NewPDFExtractor(text TextExtractor, log zerolog.Logger) *PDFExtractor {
	return NewPDFExtractorWithParsers(text, log, statement.NewWalletParser(), statement.NewTraditionalParser())
}

// NewPDFExtractorWithParsers registers one parser per bank type.
func NewPDFExtractorWithParsers(text TextExtractor, log zerolog.Logger, parsers ...statement.TransactionLineParser) *PDFExtractor {
	byType := make(map[domain.BankType]statement.TransactionLineParser, len(parsers))
	for _, p := range parsers {
		byType[p.BankType()] = p
	}
	return &PDFExtractor{text: text, parsers: byType, log: log}
}

func (x *PDFExtractor) Extract(ctx context.Context, data []byte, filename string) (*domain.RawStatement, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, domain.InvalidFileError(domain.FormatPDF, "File is not a valid PDF")
	}

	text, err := x.text.ExtractText(ctx, data)
	if errors.Is(err, ErrTextExtractorUnavailable) {
		return nil, domain.ServiceUnavailableError(domain.FormatPDF,
			"PDF text extraction is not available on this server", err)
	}
	if err != nil {
		return nil, domain.EmptyContentError(domain.FormatPDF, "Could not read text from the PDF", err)
	}
	if len(strings.TrimSpace(text)) < minTextLength {
		e := domain.EmptyContentError(domain.FormatPDF,
			"PDF contains little or no text; scanned or image-based statements are not supported", nil)
		// A header line is often enough to pick the right template.
		e.BankType = detect.Detect(text)
		return nil, e
	}

	scores := detect.Score(text)
	bankType := scores.Winner()
	parser, ok := x.parsers[bankType]
	if !ok {
		parser = statement.NewWalletParser()
	}

	stmt := parser.Parse(text)
	x.log.Debug().
		Str("filename", filename).
		Str("bank_type", string(bankType)).
		Int("wallet_score", scores.Wallet).
		Int("traditional_score", scores.Traditional).
		Int("text_length", len(text)).
		Int("transactions", len(stmt.Transactions)).
		Msg("Parsed PDF statement")
	return stmt, nil
}
