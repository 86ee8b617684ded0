package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/auth"
	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/pipeline"
	"github.com/dvloznov/statement-ingest/internal/store"
)

type mockUploader struct {
	HandleUploadFunc func(ctx context.Context, userID string, up pipeline.Upload) (*pipeline.UploadResult, error)
}

func (m *mockUploader) HandleUpload(ctx context.Context, userID string, up pipeline.Upload) (*pipeline.UploadResult, error) {
	return m.HandleUploadFunc(ctx, userID, up)
}

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/bank/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req.WithContext(auth.WithUser(req.Context(), "alice"))
}

func TestUploadHandler(t *testing.T) {
	var got pipeline.Upload
	var gotUser string
	var gotBody []byte
	uploader := &mockUploader{HandleUploadFunc: func(ctx context.Context, userID string, up pipeline.Upload) (*pipeline.UploadResult, error) {
		got, gotUser = up, userID
		gotBody, _ = io.ReadAll(up.Body)
		return &pipeline.UploadResult{Success: true, Filename: up.Filename}, nil
	}}
	h := NewUploadHandler(uploader, 1024, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, UploadField, "s.csv", []byte("date,description,amount\n")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body.String())
	}
	if gotUser != "alice" || got.Filename != "s.csv" || got.Size != 24 || string(gotBody) != "date,description,amount\n" {
		t.Errorf("upload = %q %+v %q", gotUser, got, gotBody)
	}
}

func TestUploadHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "wrong field",
			req:        func(t *testing.T) *http.Request { return multipartRequest(t, "file", "s.csv", []byte("x")) },
			wantStatus: http.StatusBadRequest,
			wantError:  "No file uploaded",
		},
		{
			name: "body over limit",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, UploadField, "s.csv", make([]byte, 200<<10))
			},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantError:  "File too large",
		},
		{
			name:       "pipeline rejection",
			req:        func(t *testing.T) *http.Request { return multipartRequest(t, UploadField, "s.txt", []byte("x")) },
			err:        domain.UnsupportedFormatError(".txt"),
			wantStatus: http.StatusBadRequest,
			wantError:  "Unsupported file format",
		},
		{
			name:       "unexpected failure",
			req:        func(t *testing.T) *http.Request { return multipartRequest(t, UploadField, "s.csv", []byte("x")) },
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploader := &mockUploader{HandleUploadFunc: func(ctx context.Context, userID string, up pipeline.Upload) (*pipeline.UploadResult, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return &pipeline.UploadResult{Success: true}, nil
			}}
			h := NewUploadHandler(uploader, 1024, zerolog.Nop())

			rec := httptest.NewRecorder()
			h.Upload(rec, tt.req(t))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var body pipeline.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !strings.Contains(body.Error, tt.wantError) {
				t.Errorf("error = %q, want %q", body.Error, tt.wantError)
			}
			if strings.Contains(rec.Body.String(), "disk on fire") {
				t.Error("internal error details leaked to client")
			}
		})
	}
}

type mockTransactionRepo struct {
	ListTransactionsFunc  func(ctx context.Context, userID string, f store.TransactionFilter) ([]domain.Transaction, error)
	DeleteTransactionFunc func(ctx context.Context, userID, id string) error
}

func (m *mockTransactionRepo) FindDuplicate(ctx context.Context, q store.DuplicateQuery) (bool, error) {
	return false, nil
}

func (m *mockTransactionRepo) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	return nil
}

func (m *mockTransactionRepo) ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) ([]domain.Transaction, error) {
	return m.ListTransactionsFunc(ctx, userID, f)
}

func (m *mockTransactionRepo) DeleteTransaction(ctx context.Context, userID, id string) error {
	return m.DeleteTransactionFunc(ctx, userID, id)
}

func TestListTransactions_Filters(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		check      func(t *testing.T, f store.TransactionFilter)
	}{
		{
			name:       "all filters",
			query:      "?from=2024-01-01&to=2024-01-31&type=credit&category=salary&limit=5",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, f store.TransactionFilter) {
				if f.From == nil || f.From.Format(domain.DateLayout) != "2024-01-01" || f.To == nil {
					t.Errorf("dates = %v %v", f.From, f.To)
				}
				if f.Type != domain.TxCredit || f.Category != "salary" || f.Limit != 5 {
					t.Errorf("filter = %+v", f)
				}
			},
		},
		{
			name:       "limit capped",
			query:      "?limit=50000",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, f store.TransactionFilter) {
				if f.Limit != maxListLimit {
					t.Errorf("limit = %d", f.Limit)
				}
			},
		},
		{name: "bad date", query: "?from=01/01/2024", wantStatus: http.StatusBadRequest},
		{name: "bad type", query: "?type=refund", wantStatus: http.StatusBadRequest},
		{name: "bad limit", query: "?limit=-1", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got store.TransactionFilter
			repo := &mockTransactionRepo{ListTransactionsFunc: func(ctx context.Context, userID string, f store.TransactionFilter) ([]domain.Transaction, error) {
				got = f
				return nil, nil
			}}
			h := NewTransactionsHandler(repo, nil, zerolog.Nop())

			req := httptest.NewRequest(http.MethodGet, "/api/transactions"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.ListTransactions(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.check != nil {
				tt.check(t, got)
				if strings.TrimSpace(rec.Body.String()) != "[]" {
					t.Errorf("body = %s, want []", rec.Body.String())
				}
			}
		})
	}
}

func TestDeleteTransaction_StoreFailure(t *testing.T) {
	repo := &mockTransactionRepo{DeleteTransactionFunc: func(ctx context.Context, userID, id string) error {
		return errors.New("connection reset")
	}}
	h := NewTransactionsHandler(repo, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.DeleteTransaction(rec, httptest.NewRequest(http.MethodDelete, "/api/transactions/t1", nil), "t1")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}
