// Package api wires HTTP routes and middleware for the ingestion service.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/api/handlers"
	"github.com/dvloznov/statement-ingest/internal/api/middleware"
	"github.com/dvloznov/statement-ingest/internal/auth"
)

// HealthPath is served without authentication.
const HealthPath = "/health"

// Handlers groups every endpoint handler the router serves.
type Handlers struct {
	Upload       *handlers.UploadHandler
	Transactions *handlers.TransactionsHandler
	Account      *handlers.AccountHandler
	Summary      *handlers.SummaryHandler
	Advice       *handlers.AdviceHandler
	Jobs         *handlers.JobsHandler
}

// NewRouter builds the mux and wraps it in the middleware chain:
// Recovery, Logger, RequestID, CORS, Auth.
func NewRouter(h Handlers, provider auth.Provider, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/bank/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Upload.Upload(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Transactions.ListTransactions(w, r)
		case http.MethodPost:
			h.Transactions.CreateTransaction(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" || strings.Contains(id, "/") {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		h.Transactions.DeleteTransaction(w, r, id)
	})

	mux.HandleFunc("/api/account", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Account.GetAccount(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Summary.GetSummary(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/advice", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Advice.RequestAdvice(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Jobs.ListJobs(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		h.Jobs.GetJob(w, r, jobID)
	})

	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(provider, HealthPath)(mux),
				),
			),
		),
	)
}

func methodNotAllowed(w http.ResponseWriter) {
	middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
