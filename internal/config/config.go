// Package config loads service settings from .env, an optional YAML file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendBigQuery = "bigquery"
)

// Config is the full service configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Store  StoreConfig  `yaml:"store"`
	Upload UploadConfig `yaml:"upload"`
	Advice AdviceConfig `yaml:"advice"`
	Auth   AuthConfig   `yaml:"auth"`
	Notion NotionConfig `yaml:"notion"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StoreConfig struct {
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
	BQProject  string `yaml:"bq_project"`
	BQDataset  string `yaml:"bq_dataset"`
}

type UploadConfig struct {
	ArchiveBucket string `yaml:"archive_bucket"`
	TmpDir        string `yaml:"tmp_dir"`
	PDFExtractor  string `yaml:"pdf_extractor"`
	MaxSizeBytes  int64  `yaml:"max_size_bytes"`
}

type AdviceConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// AuthConfig holds bearer tokens as "token:user" pairs separated by commas.
type AuthConfig struct {
	Tokens string `yaml:"tokens"`
}

type NotionConfig struct {
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
}

// Load reads .env if present, then the YAML file at path (or CONFIG_FILE
// when path is empty), then environment overrides, then defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("Load: reading .env: %w", err)
	}

	cfg := &Config{}
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("Load: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("Load: parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	overrides := map[string]*string{
		"PORT":               &c.Server.Port,
		"LOG_LEVEL":          &c.Log.Level,
		"LOG_FORMAT":         &c.Log.Format,
		"STORE_BACKEND":      &c.Store.Backend,
		"SQLITE_PATH":        &c.Store.SQLitePath,
		"BQ_PROJECT":         &c.Store.BQProject,
		"BQ_DATASET":         &c.Store.BQDataset,
		"ARCHIVE_BUCKET":     &c.Upload.ArchiveBucket,
		"UPLOAD_TMP_DIR":     &c.Upload.TmpDir,
		"PDF_EXTRACTOR":      &c.Upload.PDFExtractor,
		"ADVICE_PROVIDER":    &c.Advice.Provider,
		"GEMINI_MODEL":       &c.Advice.Model,
		"AUTH_TOKENS":        &c.Auth.Tokens,
		"NOTION_TOKEN":       &c.Notion.Token,
		"NOTION_DATABASE_ID": &c.Notion.DatabaseID,
	}
	for key, dst := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		c.Upload.MaxSizeBytes = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendMemory
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "statements.db"
	}
	if c.Upload.PDFExtractor == "" {
		c.Upload.PDFExtractor = "auto"
	}
	if c.Advice.Provider == "" {
		c.Advice.Provider = "rules"
	}
	c.Store.Backend = strings.ToLower(c.Store.Backend)
	c.Advice.Provider = strings.ToLower(c.Advice.Provider)
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	case BackendBigQuery:
		if c.Store.BQProject == "" || c.Store.BQDataset == "" {
			return fmt.Errorf("Validate: bigquery backend requires BQ_PROJECT and BQ_DATASET")
		}
	default:
		return fmt.Errorf("Validate: unknown store backend %q", c.Store.Backend)
	}

	switch c.Advice.Provider {
	case "rules", "gemini":
	default:
		return fmt.Errorf("Validate: unknown advice provider %q", c.Advice.Provider)
	}

	switch strings.ToLower(c.Upload.PDFExtractor) {
	case "auto", "library", "pdftotext", "none":
	default:
		return fmt.Errorf("Validate: unknown pdf extractor %q", c.Upload.PDFExtractor)
	}

	if c.Upload.MaxSizeBytes < 0 {
		return fmt.Errorf("Validate: max upload size must not be negative")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("Validate: invalid port %q", c.Server.Port)
	}
	if _, err := ParseTokens(c.Auth.Tokens); err != nil {
		return fmt.Errorf("Validate: %w", err)
	}
	return nil
}

// ParseTokens splits "token:user,token2:user2" into a token to user map.
func ParseTokens(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, user, ok := strings.Cut(pair, ":")
		token, user = strings.TrimSpace(token), strings.TrimSpace(user)
		if !ok || token == "" || user == "" {
			return nil, fmt.Errorf("auth token entry %q must be token:user", pair)
		}
		out[token] = user
	}
	return out, nil
}
