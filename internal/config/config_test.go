package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var configEnvKeys = []string{
	"CONFIG_FILE", "PORT", "LOG_LEVEL", "LOG_FORMAT", "STORE_BACKEND", "SQLITE_PATH",
	"BQ_PROJECT", "BQ_DATASET", "ARCHIVE_BUCKET", "UPLOAD_TMP_DIR", "PDF_EXTRACTOR",
	"ADVICE_PROVIDER", "GEMINI_MODEL", "AUTH_TOKENS", "NOTION_TOKEN", "NOTION_DATABASE_ID",
	"MAX_UPLOAD_BYTES",
}

// clearEnv blanks every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Store.Backend != BackendMemory || cfg.Upload.PDFExtractor != "auto" ||
		cfg.Advice.Provider != "rules" || cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeYAML(t, `
server:
  port: "9000"
store:
  backend: SQLite
  sqlite_path: /var/lib/ingest.db
advice:
  provider: gemini
  model: gemini-2.5-pro
auth:
  tokens: "tok1:alice"
`)
	t.Setenv("PORT", "9100")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9100" {
		t.Errorf("port = %s, env should win", cfg.Server.Port)
	}
	if cfg.Store.Backend != BackendSQLite || cfg.Store.SQLitePath != "/var/lib/ingest.db" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Advice.Provider != "gemini" || cfg.Advice.Model != "gemini-2.5-pro" {
		t.Errorf("advice = %+v", cfg.Advice)
	}
	if cfg.Log.Format != "json" || cfg.Auth.Tokens != "tok1:alice" {
		t.Errorf("log/auth = %+v %+v", cfg.Log, cfg.Auth)
	}
}

func TestLoad_ConfigFileEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeYAML(t, "upload:\n  archive_bucket: statements-archive\n"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Upload.ArchiveBucket != "statements-archive" {
		t.Errorf("bucket = %q", cfg.Upload.ArchiveBucket)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		yaml    string
		wantErr string
	}{
		{"bigquery without project", map[string]string{"STORE_BACKEND": "bigquery"}, "", "BQ_PROJECT"},
		{"unknown backend", map[string]string{"STORE_BACKEND": "postgres"}, "", "unknown store backend"},
		{"unknown provider", map[string]string{"ADVICE_PROVIDER": "oracle"}, "", "unknown advice provider"},
		{"unknown extractor", map[string]string{"PDF_EXTRACTOR": "ocr"}, "", "unknown pdf extractor"},
		{"bad port", map[string]string{"PORT": "http"}, "", "invalid port"},
		{"bad tokens", map[string]string{"AUTH_TOKENS": "justatoken"}, "", "token:user"},
		{"bad max size", map[string]string{"MAX_UPLOAD_BYTES": "ten"}, "", "MAX_UPLOAD_BYTES"},
		{"bad yaml", nil, "server: [", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeYAML(t, tt.yaml)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestParseTokens(t *testing.T) {
	got, err := ParseTokens(" tok1:alice, tok2 : bob ,")
	if err != nil {
		t.Fatalf("ParseTokens: %v", err)
	}
	if len(got) != 2 || got["tok1"] != "alice" || got["tok2"] != "bob" {
		t.Errorf("tokens = %v", got)
	}
	if got, _ := ParseTokens(""); len(got) != 0 {
		t.Errorf("empty = %v", got)
	}
	if _, err := ParseTokens("tok1:"); err == nil {
		t.Error("expected error for missing user")
	}
}
