package pipeline

import (
	"fmt"
	"net/http"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/extract"
)

// ProcessedStats summarises one upload.
type ProcessedStats struct {
	TotalTransactions   int             `json:"total_transactions"`
	SavedTransactions   int             `json:"saved_transactions"`
	SkippedTransactions int             `json:"skipped_transactions"`
	AccountInfoUpdated  bool            `json:"account_info_updated"`
	BankDetected        domain.BankType `json:"bank_detected"`
}

// UploadResult is the success body of an upload.
type UploadResult struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	BankType  domain.BankType `json:"bankType"`
	Filename  string          `json:"filename"`
	Size      int64           `json:"size"`
	Processed ProcessedStats  `json:"processed"`
	Warning   string          `json:"warning,omitempty"`

	ArchiveURI string `json:"-"`
}

// NewUploadResult summarises a finished pipeline run. Skipped covers
// rejected rows, duplicates and failed writes.
func NewUploadResult(state *PipelineState) *UploadResult {
	total := 0
	if state.Raw != nil {
		total = len(state.Raw.Transactions)
	}
	n := state.Normalized

	size := state.Upload.Size
	if state.File != nil {
		size = state.File.Size
	}

	res := &UploadResult{
		Success:  true,
		Message:  fmt.Sprintf("Statement processed: %d saved, %d skipped", state.Saved, n.Rejected+state.Duplicates+state.Failed),
		BankType: n.BankType,
		Filename: state.Upload.Filename,
		Size:     size,
		Processed: ProcessedStats{
			TotalTransactions:   total,
			SavedTransactions:   state.Saved,
			SkippedTransactions: n.Rejected + state.Duplicates + state.Failed,
			AccountInfoUpdated:  state.AccountInfoUpdated,
			BankDetected:        n.BankType,
		},
		ArchiveURI: state.ArchiveURI,
	}

	switch {
	case total == 0:
		res.Warning = "No transactions were found in the statement"
	case state.Saved == 0 && state.Duplicates == total:
		res.Warning = "All transactions in this statement already exist"
	}
	return res
}

// ErrorResponse is the failure body of every ingestion endpoint.
type ErrorResponse struct {
	Error            string               `json:"error"`
	Details          string               `json:"details,omitempty"`
	Suggestions      []string             `json:"suggestions,omitempty"`
	JSONTemplate     *domain.RawStatement `json:"jsonTemplate,omitempty"`
	SupportedFormats []string             `json:"supportedFormats,omitempty"`
}

// BuildErrorResponse maps err to a status code and a client-actionable body.
// Anything that is not a classified domain error becomes a generic 500.
func BuildErrorResponse(err error) (int, ErrorResponse) {
	de, ok := domain.AsError(err)
	if !ok {
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal server error",
			Details: "An unexpected error occurred while processing your statement. If the problem persists, contact support.",
		}
	}

	resp := ErrorResponse{
		Error:       de.Message,
		Details:     de.Details,
		Suggestions: suggestionsFor(de),
	}
	if resp.Details == "" && de.Err != nil && de.Kind == domain.KindMalformedInput {
		resp.Details = de.Err.Error()
	}
	if de.Kind == domain.KindUnsupportedFormat {
		resp.SupportedFormats = append([]string(nil), domain.SupportedFormats...)
	}
	if de.Format == domain.FormatPDF {
		tmpl := extract.Template(de.BankType)
		resp.JSONTemplate = &tmpl
	}
	return de.Kind.HTTPStatus(), resp
}

func suggestionsFor(de *domain.Error) []string {
	switch de.Kind {
	case domain.KindAuth:
		return []string{"Sign in again and retry the upload"}
	case domain.KindTooLarge:
		return []string{
			"Upload a file smaller than 10 MB",
			"Split the statement into shorter date ranges",
		}
	case domain.KindUnsupportedFormat:
		return []string{"Export the statement from your bank as PDF or CSV, or fill in the JSON template"}
	case domain.KindMalformedInput:
		if de.Format == domain.FormatCSV {
			return []string{
				"Make sure the first row is a header with date, description and amount columns",
				"Save the file as comma-separated values with UTF-8 encoding",
			}
		}
		return []string{
			"Check that the file is valid JSON",
			"Use the documented upload format with a transactions array",
		}
	case domain.KindValidation:
		return []string{"Include a transactions array or an accountInfo object"}
	case domain.KindInvalidFile:
		return []string{
			"Download the statement again directly from your bank",
			"Upload the statement as CSV or JSON instead",
		}
	case domain.KindEmptyContent:
		if de.Format == domain.FormatPDF {
			return []string{
				"Scanned or image-based PDFs cannot be read; download a text-based statement",
				"Fill in the JSON template and upload it as a .json file",
			}
		}
		return []string{"Check that the file contains at least one transaction row"}
	case domain.KindServiceUnavailable:
		return []string{
			"PDF processing is temporarily unavailable",
			"Fill in the JSON template and upload it as a .json file",
			"Export the statement as CSV if your bank supports it",
		}
	}
	return nil
}
