package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/api/middleware"
	"github.com/dvloznov/statement-ingest/internal/auth"
	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/pipeline"
)

const (
	// UploadField is the multipart form field carrying the statement.
	UploadField = "statement"

	// multipartOverhead allows for boundaries and headers on top of the file.
	multipartOverhead = 64 << 10

	// multipartMemory is how much of a form is held in memory before
	// spilling to temp files.
	multipartMemory = 1 << 20
)

// Uploader runs the ingestion pipeline for one uploaded file.
type Uploader interface {
	HandleUpload(ctx context.Context, userID string, up pipeline.Upload) (*pipeline.UploadResult, error)
}

// UploadHandler handles statement uploads.
type UploadHandler struct {
	ingestor Uploader
	maxSize  int64
	log      zerolog.Logger
}

// NewUploadHandler creates a new upload handler. maxSize <= 0 means the
// default upload limit.
func NewUploadHandler(ingestor Uploader, maxSize int64, log zerolog.Logger) *UploadHandler {
	if maxSize <= 0 {
		maxSize = domain.MaxUploadSize
	}
	return &UploadHandler{ingestor: ingestor, maxSize: maxSize, log: log}
}

// Upload handles POST /bank/upload
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isBodyTooLarge(err) {
			writeDomainError(w, h.log, domain.TooLargeError(r.ContentLength, h.maxSize))
			return
		}
		writeDomainError(w, h.log, domain.ValidationError("", "Expected a multipart/form-data upload"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		writeDomainError(w, h.log, domain.ValidationError("",
			`No file uploaded. Send the statement in the "`+UploadField+`" form field`))
		return
	}
	defer file.Close()

	result, err := h.ingestor.HandleUpload(ctx, userID, pipeline.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// writeDomainError renders err with the client-actionable error body.
// Unclassified errors are logged since the client only sees a generic 500.
func writeDomainError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status, body := pipeline.BuildErrorResponse(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	middleware.WriteJSON(w, status, body)
}
