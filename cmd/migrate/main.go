package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	infraBQ "github.com/dvloznov/statement-ingest/internal/infra/bigquery"
	"github.com/dvloznov/statement-ingest/internal/logger"
)

const migrationsTable = "schema_migrations"

// migrationPattern matches 0001_name.sql.
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

type migrator struct {
	client    *bigquery.Client
	dataset   infraBQ.Dataset
	appliedBy string
	log       zerolog.Logger
}

func main() {
	var (
		projectID     = flag.String("project", os.Getenv("BQ_PROJECT"), "GCP project ID (or set BQ_PROJECT env)")
		datasetID     = flag.String("dataset", envOr("BQ_DATASET", "statements"), "BigQuery dataset ID (or set BQ_DATASET env)")
		appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		migrationsDir = flag.String("migrations", "migrations/bigquery", "Path to migrations directory")
		dryRun        = flag.Bool("dry-run", false, "List pending migrations without applying them")
	)
	flag.Parse()

	log := logger.New(logger.Options{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")})
	ctx := logger.WithContext(context.Background(), log)

	if *projectID == "" {
		log.Fatal().Msg("Error: -project flag is required. Please specify your GCP project ID.")
	}
	ds := infraBQ.Dataset{ProjectID: *projectID, DatasetID: *datasetID}

	migrations, err := readMigrations(resolveDir(*migrationsDir), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	m := &migrator{client: client, dataset: ds, appliedBy: *appliedBy, log: log}
	log.Info().Str("project", ds.ProjectID).Str("dataset", ds.DatasetID).Msg("Connected to BigQuery")

	if err := m.exec(ctx, schemaMigrationsDDL(ds)); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema_migrations table")
	}

	applied, err := m.applied(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get applied migrations")
	}
	log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	todo, changed := pending(migrations, applied)
	for _, mg := range changed {
		log.Warn().
			Int("version", mg.Version).
			Str("name", mg.Name).
			Msg("Applied migration file has changed since it was run; it will not be re-applied")
	}

	if len(todo) == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
		return
	}

	for _, mg := range todo {
		l := log.With().Int("version", mg.Version).Str("name", mg.Name).Logger()
		if *dryRun {
			l.Info().Msg("[DRY RUN] Would apply migration")
			continue
		}

		l.Info().Msg("Applying migration")
		if err := m.exec(ctx, render(mg.SQL, ds)); err != nil {
			l.Fatal().Err(err).Msg("Failed to execute migration")
		}
		if err := m.record(ctx, mg); err != nil {
			l.Fatal().Err(err).Msg("Failed to record migration")
		}
		l.Info().Msg("Migration applied")
	}

	if !*dryRun {
		log.Info().Int("applied", len(todo)).Msg("Successfully applied migrations")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// resolveDir also tries the path from the repository root when run from cmd/migrate.
func resolveDir(dir string) string {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if alt := filepath.Join("..", "..", dir); dirExists(alt) {
			return alt
		}
	}
	return dir
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// readMigrations reads all migration files from dir, sorted by version.
// Checksums cover the file as written, before placeholders are rendered, so
// applying the same file to another dataset does not look like a change.
func readMigrations(dir string, log zerolog.Logger) ([]Migration, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("readMigrations: reading directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		matches := migrationPattern.FindStringSubmatch(file.Name())
		if matches == nil {
			log.Warn().Str("file", file.Name()).Msg("Skipping file with invalid format")
			continue
		}

		version, _ := strconv.Atoi(matches[1])
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("readMigrations: version %04d used by both %s and %s", version, prev, file.Name())
		}
		seen[version] = file.Name()

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("readMigrations: reading %s: %w", file.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: file.Name(),
			SQL:      string(content),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// render substitutes the project and dataset placeholders.
func render(sql string, ds infraBQ.Dataset) string {
	sql = strings.ReplaceAll(sql, "{{PROJECT_ID}}", ds.ProjectID)
	return strings.ReplaceAll(sql, "{{DATASET_ID}}", ds.DatasetID)
}

// pending returns the migrations not applied yet and the applied ones whose
// file checksum no longer matches the recorded one.
func pending(migrations []Migration, applied []AppliedMigration) (todo, changed []Migration) {
	byVersion := make(map[int]AppliedMigration, len(applied))
	for _, am := range applied {
		byVersion[am.Version] = am
	}

	for _, mg := range migrations {
		am, ok := byVersion[mg.Version]
		switch {
		case !ok:
			todo = append(todo, mg)
		case am.Checksum != "" && am.Checksum != mg.Checksum:
			changed = append(changed, mg)
		}
	}
	return todo, changed
}

func schemaMigrationsDDL(ds infraBQ.Dataset) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, ds.Table(migrationsTable))
}

func (m *migrator) applied(ctx context.Context) ([]AppliedMigration, error) {
	sql := fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, m.dataset.Table(migrationsTable))

	it, err := m.client.Query(sql).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("applied: reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("applied: iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}

	return applied, nil
}

func (m *migrator) record(ctx context.Context, mg Migration) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, m.dataset.Table(migrationsTable))

	q := m.client.Query(sql)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: mg.Version},
		{Name: "name", Value: mg.Name},
		{Name: "checksum", Value: mg.Checksum},
		{Name: "applied_by", Value: m.appliedBy},
	}
	return m.wait(ctx, q)
}

func (m *migrator) exec(ctx context.Context, sql string) error {
	return m.wait(ctx, m.client.Query(sql))
}

func (m *migrator) wait(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
