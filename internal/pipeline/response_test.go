package pipeline

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/filestore"
)

func TestNewUploadResult(t *testing.T) {
	raw := &domain.RawStatement{Transactions: make([]domain.RawTransaction, 4)}

	tests := []struct {
		name        string
		state       *PipelineState
		wantSkipped int
		wantWarning string
		wantSize    int64
	}{
		{
			name: "mixed outcome",
			state: &PipelineState{
				Upload:     Upload{Filename: "s.csv", Size: 10},
				File:       &filestore.File{Size: 42},
				Raw:        raw,
				Normalized: NormalizedStatement{BankType: domain.BankTraditional, Rejected: 1},
				Saved:      2,
				Duplicates: 1,
			},
			wantSkipped: 2,
			wantSize:    42,
		},
		{
			name: "all duplicates",
			state: &PipelineState{
				Upload:     Upload{Filename: "s.csv", Size: 10},
				Raw:        raw,
				Normalized: NormalizedStatement{BankType: domain.BankWallet},
				Duplicates: 4,
			},
			wantSkipped: 4,
			wantWarning: "All transactions in this statement already exist",
			wantSize:    10,
		},
		{
			name: "nothing found",
			state: &PipelineState{
				Upload:     Upload{Filename: "s.json", Size: 2},
				Raw:        &domain.RawStatement{},
				Normalized: NormalizedStatement{BankType: domain.BankTraditional},
			},
			wantWarning: "No transactions were found in the statement",
			wantSize:    2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewUploadResult(tt.state)
			if !res.Success {
				t.Error("Success = false")
			}
			if res.Processed.SkippedTransactions != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", res.Processed.SkippedTransactions, tt.wantSkipped)
			}
			if res.Warning != tt.wantWarning {
				t.Errorf("warning = %q, want %q", res.Warning, tt.wantWarning)
			}
			if res.Size != tt.wantSize {
				t.Errorf("size = %d, want %d", res.Size, tt.wantSize)
			}
			if res.Processed.BankDetected != tt.state.Normalized.BankType {
				t.Errorf("bank detected = %s", res.Processed.BankDetected)
			}
			want := fmt.Sprintf("Statement processed: %d saved, %d skipped", tt.state.Saved, tt.wantSkipped)
			if res.Message != want {
				t.Errorf("message = %q, want %q", res.Message, want)
			}
		})
	}
}

func TestBuildErrorResponse(t *testing.T) {
	t.Run("unclassified", func(t *testing.T) {
		status, body := BuildErrorResponse(errors.New("connection reset"))
		if status != http.StatusInternalServerError {
			t.Errorf("status = %d", status)
		}
		if body.Error != "Internal server error" || body.JSONTemplate != nil {
			t.Errorf("body = %+v", body)
		}
	})

	t.Run("unsupported format lists formats", func(t *testing.T) {
		status, body := BuildErrorResponse(domain.UnsupportedFormatError(".txt"))
		if status != http.StatusBadRequest {
			t.Errorf("status = %d", status)
		}
		if len(body.SupportedFormats) != 3 {
			t.Errorf("supported formats = %v", body.SupportedFormats)
		}
		if len(body.Suggestions) == 0 {
			t.Error("missing suggestions")
		}
	})

	t.Run("wrapped pdf failure carries template", func(t *testing.T) {
		err := fmt.Errorf("pipeline step 4 failed: %w", domain.EmptyContentError(domain.FormatPDF, "no text", nil))
		status, body := BuildErrorResponse(err)
		if status != http.StatusBadRequest {
			t.Errorf("status = %d", status)
		}
		if body.JSONTemplate == nil || len(body.JSONTemplate.Transactions) == 0 {
			t.Errorf("template = %+v", body.JSONTemplate)
		}
	})

	t.Run("pdf template follows detected bank type", func(t *testing.T) {
		de := domain.EmptyContentError(domain.FormatPDF, "no text", nil)
		de.BankType = domain.BankTraditional
		_, body := BuildErrorResponse(de)
		if body.JSONTemplate == nil || body.JSONTemplate.BankType != domain.BankTraditional {
			t.Errorf("template = %+v", body.JSONTemplate)
		}

		_, body = BuildErrorResponse(domain.EmptyContentError(domain.FormatPDF, "no text", nil))
		if body.JSONTemplate == nil || body.JSONTemplate.BankType != domain.BankWallet {
			t.Errorf("default template = %+v", body.JSONTemplate)
		}
	})

	t.Run("malformed falls back to cause", func(t *testing.T) {
		cause := errors.New("unexpected EOF")
		_, body := BuildErrorResponse(&domain.Error{Kind: domain.KindMalformedInput, Message: "bad", Format: domain.FormatJSON, Err: cause})
		if body.Details != "unexpected EOF" {
			t.Errorf("details = %q", body.Details)
		}
		if body.JSONTemplate != nil {
			t.Error("json failures should not carry a template")
		}
	})

	t.Run("too large", func(t *testing.T) {
		status, _ := BuildErrorResponse(domain.TooLargeError(11<<20, domain.MaxUploadSize))
		if status != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d", status)
		}
	})
}
