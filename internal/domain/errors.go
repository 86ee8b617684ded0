package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MaxUploadSize is the ceiling for a single statement upload.
const MaxUploadSize int64 = 10 << 20

// FileFormat is an accepted upload format.
type FileFormat string

const (
	FormatJSON FileFormat = "json"
	FormatCSV  FileFormat = "csv"
	FormatPDF  FileFormat = "pdf"
)

// SupportedFormats lists the accepted upload formats in the order clients display them.
var SupportedFormats = []string{"JSON (.json)", "PDF (.pdf)", "CSV (.csv)"}

// ErrorKind classifies ingestion failures for the HTTP edge.
type ErrorKind string

const (
	KindAuth               ErrorKind = "auth"
	KindUnsupportedFormat  ErrorKind = "unsupported_format"
	KindMalformedInput     ErrorKind = "malformed_input"
	KindValidation         ErrorKind = "validation"
	KindInvalidFile        ErrorKind = "invalid_file"
	KindEmptyContent       ErrorKind = "empty_content"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindTooLarge           ErrorKind = "too_large"
)

// HTTPStatus maps a kind to its response code. Extractor failures are all
// client-correctable, including an unavailable text extractor.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindAuth:
		return http.StatusUnauthorized
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindUnsupportedFormat, KindMalformedInput, KindValidation,
		KindInvalidFile, KindEmptyContent, KindServiceUnavailable:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error is a classified ingestion failure.
type Error struct {
	Kind     ErrorKind
	Message  string
	Details  string
	Format   FileFormat
	BankType BankType
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString(" (")
		b.WriteString(e.Details)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts the classified error from a chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) ErrorKind {
	if de, ok := AsError(err); ok {
		return de.Kind
	}
	return ""
}

// StatusCode returns the HTTP status for err.
func StatusCode(err error) int {
	return KindOf(err).HTTPStatus()
}

func AuthError(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

func UnsupportedFormatError(ext string) *Error {
	details := "file has no extension"
	if ext != "" {
		details = fmt.Sprintf("extension %q is not accepted", ext)
	}
	return &Error{
		Kind:    KindUnsupportedFormat,
		Message: "Unsupported file format",
		Details: details,
	}
}

func MalformedInputError(format FileFormat, details string, err error) *Error {
	return &Error{
		Kind:    KindMalformedInput,
		Message: fmt.Sprintf("Invalid %s file", strings.ToUpper(string(format))),
		Details: details,
		Format:  format,
		Err:     err,
	}
}

func ValidationError(format FileFormat, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Format: format}
}

func InvalidFileError(format FileFormat, message string) *Error {
	return &Error{Kind: KindInvalidFile, Message: message, Format: format}
}

func EmptyContentError(format FileFormat, message string, err error) *Error {
	return &Error{Kind: KindEmptyContent, Message: message, Format: format, Err: err}
}

func ServiceUnavailableError(format FileFormat, message string, err error) *Error {
	return &Error{Kind: KindServiceUnavailable, Message: message, Format: format, Err: err}
}

func TooLargeError(size, limit int64) *Error {
	return &Error{
		Kind:    KindTooLarge,
		Message: "File too large",
		Details: fmt.Sprintf("%d bytes exceeds the %d byte limit", size, limit),
	}
}
