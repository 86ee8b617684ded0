package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/auth"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"user": auth.UserFromContext(r.Context())})
	})
}

func TestAuth(t *testing.T) {
	provider := auth.NewStaticTokens(map[string]string{"secret": "alice"})
	h := Auth(provider, "/health")(echoUser())

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"valid bearer", "/api/transactions", "Bearer secret", http.StatusOK, "alice"},
		{"lowercase scheme", "/api/transactions", "bearer secret", http.StatusOK, "alice"},
		{"missing header", "/api/transactions", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "/api/transactions", "Basic secret", http.StatusUnauthorized, ""},
		{"unknown token", "/api/transactions", "Bearer nope", http.StatusUnauthorized, ""},
		{"public path", "/health", "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tt.wantStatus == http.StatusOK && body["user"] != tt.wantUser {
				t.Errorf("user = %q, want %q", body["user"], tt.wantUser)
			}
			if tt.wantStatus == http.StatusUnauthorized && body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated id = %q, header = %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("propagated id = %q", seen)
	}

	if GetRequestID(context.Background()) != "" {
		t.Error("empty context should have no request id")
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/bank/upload", nil))
	if rec.Code != http.StatusNoContent || called {
		t.Errorf("status = %d, called = %v", rec.Code, called)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	log := zerolog.New(buf)
	h := Logger(log)(RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/bank/upload", nil))

	out := buf.String()
	for _, want := range []string{`"status":418`, `"path":"/bank/upload"`, `"request_id":"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s: %s", want, out)
		}
	}
}
