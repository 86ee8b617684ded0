package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrTextExtractorUnavailable means no PDF text backend is usable in this
// deployment. Uploads see it as service_unavailable.
var ErrTextExtractorUnavailable = errors.New("pdf text extractor unavailable")

// TextExtractor pulls the plain text out of a PDF.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// NewTextExtractor builds the extractor selected by mode: auto, library,
// pdftotext or none.
func NewTextExtractor(mode string) (TextExtractor, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return NewChainTextExtractor(&LibraryTextExtractor{}, &CommandTextExtractor{}), nil
	case "library":
		return &LibraryTextExtractor{}, nil
	case "pdftotext":
		return &CommandTextExtractor{}, nil
	case "none":
		return UnavailableTextExtractor{}, nil
	}
	return nil, fmt.Errorf("NewTextExtractor: unknown pdf extractor %q", mode)
}

// LibraryTextExtractor reads PDFs in-process with ledongthuc/pdf.
type LibraryTextExtractor struct{}

// ExtractText rebuilds page text row by row and falls back to the reader's
// plain-text stream when rows come back empty.
func (e *LibraryTextExtractor) ExtractText(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("LibraryTextExtractor: pdf library panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("LibraryTextExtractor: opening pdf: %w", err)
	}
	if r.NumPage() == 0 {
		return "", fmt.Errorf("LibraryTextExtractor: pdf has no pages")
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			parts := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if l := strings.TrimSpace(strings.Join(parts, " ")); l != "" {
				lines = append(lines, l)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}

	text = strings.Join(pages, "\n\n")
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("LibraryTextExtractor: reading plain text: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("LibraryTextExtractor: reading plain text: %w", err)
	}
	return string(b), nil
}

// CommandTextExtractor shells out to poppler's pdftotext, feeding the PDF on
// stdin so nothing touches disk.
type CommandTextExtractor struct {
	// Binary defaults to "pdftotext" on PATH.
	Binary string
}

func (e *CommandTextExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	name := e.Binary
	if name == "" {
		name = "pdftotext"
	}
	bin, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("CommandTextExtractor: %w: %v", ErrTextExtractorUnavailable, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("CommandTextExtractor: running %s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// ChainTextExtractor tries each member in order and returns the first text
// long enough to parse. It reports unavailable only if every member did.
type ChainTextExtractor struct {
	members []TextExtractor
}

func NewChainTextExtractor(members ...TextExtractor) *ChainTextExtractor {
	return &ChainTextExtractor{members: members}
}

func (c *ChainTextExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	var (
		best        string
		failures    []error
		unavailable = 0
	)
	for _, m := range c.members {
		text, err := m.ExtractText(ctx, data)
		if err != nil {
			if errors.Is(err, ErrTextExtractorUnavailable) {
				unavailable++
			}
			failures = append(failures, err)
			continue
		}
		if len(strings.TrimSpace(text)) >= minTextLength {
			return text, nil
		}
		if len(text) > len(best) {
			best = text
		}
	}

	if best != "" {
		return best, nil
	}
	if len(c.members) == 0 || unavailable == len(c.members) {
		return "", ErrTextExtractorUnavailable
	}
	if len(failures) == 0 {
		return "", nil
	}
	// %v keeps ErrTextExtractorUnavailable out of the chain: some member ran.
	return "", fmt.Errorf("ChainTextExtractor: %v", errors.Join(failures...))
}

// UnavailableTextExtractor is used where PDF support is switched off.
type UnavailableTextExtractor struct{}

func (UnavailableTextExtractor) ExtractText(context.Context, []byte) (string, error) {
	return "", ErrTextExtractorUnavailable
}
