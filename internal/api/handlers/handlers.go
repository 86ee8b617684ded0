package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/advice"
	"github.com/dvloznov/statement-ingest/internal/api/middleware"
	"github.com/dvloznov/statement-ingest/internal/auth"
	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/jobs"
	"github.com/dvloznov/statement-ingest/internal/store"
)

// maxListLimit caps the limit query parameter.
const maxListLimit = 1000

// ManualEntry stores a single hand-entered transaction.
type ManualEntry interface {
	AddManual(ctx context.Context, userID string, raw domain.RawTransaction) (domain.Transaction, bool, error)
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	repo   store.TransactionRepository
	manual ManualEntry
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo store.TransactionRepository, manual ManualEntry, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		repo:   repo,
		manual: manual,
		log:    log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := parseTransactionFilter(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	transactions, err := h.repo.ListTransactions(ctx, auth.UserFromContext(ctx), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.RawTransaction
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, written, err := h.manual.AddManual(ctx, auth.UserFromContext(ctx), req)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	if !written {
		middleware.WriteError(w, http.StatusConflict, "Transaction already exists")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	err := h.repo.DeleteTransaction(ctx, auth.UserFromContext(ctx), id)
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AccountHandler serves the stored account snapshot.
type AccountHandler struct {
	repo store.AccountInfoRepository
	log  zerolog.Logger
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(repo store.AccountInfoRepository, log zerolog.Logger) *AccountHandler {
	return &AccountHandler{repo: repo, log: log}
}

// GetAccount handles GET /api/account
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, err := h.repo.GetAccountInfo(ctx, auth.UserFromContext(ctx))
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "No account information yet. Upload a statement first.")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get account info")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get account info")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, info)
}

// SummaryHandler serves totals and the category breakdown.
type SummaryHandler struct {
	repo advice.TransactionLister
	log  zerolog.Logger
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(repo advice.TransactionLister, log zerolog.Logger) *SummaryHandler {
	return &SummaryHandler{repo: repo, log: log}
}

// GetSummary handles GET /api/summary
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := parseTransactionFilter(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.Limit = 0

	transactions, err := h.repo.ListTransactions(ctx, auth.UserFromContext(ctx), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, advice.Summarize(transactions))
}

// AdviceHandler enqueues advice generation.
type AdviceHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewAdviceHandler creates a new advice handler.
func NewAdviceHandler(publisher jobs.Publisher, log zerolog.Logger) *AdviceHandler {
	return &AdviceHandler{publisher: publisher, log: log}
}

// RequestAdvice handles POST /api/advice
func (h *AdviceHandler) RequestAdvice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	// An empty body asks for advice over all transactions.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job := &jobs.GenerateAdviceJob{UserID: auth.UserFromContext(ctx)}
	var err error
	if job.From, err = parseDate("from", req.From); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if job.To, err = parseDate("to", req.To); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.publisher.PublishGenerateAdvice(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue advice job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue advice job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("user_id", job.UserID).Msg("Advice job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}. Other users' jobs look like missing ones.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if errors.Is(err, jobs.ErrJobNotFound) || (err == nil && job.UserID != auth.UserFromContext(ctx)) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: auth.UserFromContext(ctx),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

func parseTransactionFilter(r *http.Request) (store.TransactionFilter, error) {
	query := r.URL.Query()
	var f store.TransactionFilter
	var err error

	if f.From, err = parseDate("from", query.Get("from")); err != nil {
		return f, err
	}
	if f.To, err = parseDate("to", query.Get("to")); err != nil {
		return f, err
	}

	if t := query.Get("type"); t != "" {
		typ, ok := domain.ParseTxType(t)
		if !ok {
			return f, fmt.Errorf("Invalid type %q: use credit or debit", t)
		}
		f.Type = typ
	}
	f.Category = strings.TrimSpace(query.Get("category"))

	if l := query.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 0 {
			return f, fmt.Errorf("Invalid limit %q", l)
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		f.Limit = limit
	}
	return f, nil
}

func parseDate(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("Invalid %s date %q: use YYYY-MM-DD", name, value)
	}
	return &t, nil
}
