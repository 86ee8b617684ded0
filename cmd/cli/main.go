package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/bootstrap"
	"github.com/dvloznov/statement-ingest/internal/config"
	"github.com/dvloznov/statement-ingest/internal/detect"
	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/extract"
	"github.com/dvloznov/statement-ingest/internal/gcsuploader"
	"github.com/dvloznov/statement-ingest/internal/logger"
	"github.com/dvloznov/statement-ingest/internal/pipeline"
	"github.com/dvloznov/statement-ingest/internal/store"
)

var (
	credit  = color.New(color.FgGreen)
	debit   = color.New(color.FgRed)
	warning = color.New(color.FgYellow)
	heading = color.New(color.Bold)
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Out: os.Stderr})

	switch os.Args[1] {
	case "ingest":
		runIngest(cfg, log)
	case "upload":
		runUpload(log)
	case "inspect":
		runInspect(cfg, log)
	case "detect":
		runDetect(cfg, log)
	case "template":
		runTemplate(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Ingest CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  ingest    Ingest a statement file from disk or GCS for a user")
	fmt.Println("  upload    Upload a file to GCS")
	fmt.Println("  inspect   List a user's stored transactions")
	fmt.Println("  detect    Score a PDF or text statement as wallet or traditional")
	fmt.Println("  template  Print the JSON statement template")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runIngest(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a local PDF, CSV or JSON statement")
	gcsURI := fs.String("gcs-uri", "", "GCS URI of the statement")
	userID := fs.String("user", "", "User the transactions belong to (required)")
	fs.Parse(os.Args[2:])

	if *userID == "" || (*filePath == "") == (*gcsURI == "") {
		log.Fatal().Msg("Usage: cli ingest -user ID (-file PATH | -gcs-uri gs://bucket/object)")
	}
	if cfg.Store.Backend == config.BackendMemory {
		warning.Fprintln(os.Stderr, "STORE_BACKEND is memory: nothing will be kept after this command exits")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var (
		data     []byte
		filename string
		err      error
	)
	if *filePath != "" {
		data, err = os.ReadFile(*filePath)
		filename = filepath.Base(*filePath)
	} else {
		data, err = fetchFromGCS(ctx, *gcsURI)
		filename = gcsuploader.ExtractFilenameFromGCSURI(*gcsURI)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read statement")
	}

	repo, err := bootstrap.OpenRepository(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer repo.Close()

	ingestor, cleanup, err := bootstrap.NewIngestor(ctx, cfg, repo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build ingestion pipeline")
	}
	defer cleanup()

	log.Info().Str("file", filename).Str("user_id", *userID).Msg("Starting ingestion")

	res, err := ingestor.HandleUpload(ctx, *userID, pipeline.Upload{
		Filename: filename,
		Size:     int64(len(data)),
		Body:     bytes.NewReader(data),
	})
	if err != nil {
		_, body := pipeline.BuildErrorResponse(err)
		debit.Fprintf(os.Stderr, "%s\n", body.Error)
		if body.Details != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", body.Details)
		}
		for _, s := range body.Suggestions {
			fmt.Fprintf(os.Stderr, "  - %s\n", s)
		}
		os.Exit(1)
	}

	heading.Println(res.Message)
	fmt.Printf("Bank type: %s\n", res.BankType)
	fmt.Printf("Total:     %d\n", res.Processed.TotalTransactions)
	credit.Printf("Saved:     %d\n", res.Processed.SavedTransactions)
	fmt.Printf("Skipped:   %d\n", res.Processed.SkippedTransactions)
	if res.Warning != "" {
		warning.Println(res.Warning)
	}
}

func fetchFromGCS(ctx context.Context, uri string) ([]byte, error) {
	gcs, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		return nil, err
	}
	defer gcs.Close()
	return gcs.FetchFromGCS(ctx, uri)
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", "", "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	gcs, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer gcs.Close()

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	if err := gcs.UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	credit.Printf("Uploaded %s to gs://%s/%s\n", *filePath, *bucketName, *objectName)
}

func runInspect(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	userID := fs.String("user", "", "User to inspect (required)")
	limit := fs.Int("limit", 20, "Maximum number of transactions to show")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Error: -user is required")
	}

	ctx := logger.WithContext(context.Background(), log)

	repo, err := bootstrap.OpenRepository(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer repo.Close()

	info, err := repo.GetAccountInfo(ctx, *userID)
	switch {
	case err == nil:
		heading.Println("\n=== Account ===")
		fmt.Printf("Name:    %s\n", info.AccountName)
		fmt.Printf("Number:  %s\n", info.AccountNumber)
		fmt.Printf("Bank:    %s\n", info.BankName)
		fmt.Printf("Closing: %s %s\n", info.Currency, info.ClosingBalance.StringFixed(2))
	case !errors.Is(err, store.ErrNotFound):
		log.Error().Err(err).Msg("Failed to get account info")
	}

	txs, err := repo.ListTransactions(ctx, *userID, store.TransactionFilter{Limit: *limit})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query transactions")
	}

	heading.Printf("\n=== Transactions (%d) ===\n", len(txs))
	for _, tx := range txs {
		c := credit
		sign := "+"
		if tx.Type == domain.TxDebit {
			c, sign = debit, "-"
		}
		fmt.Printf("%s  %-40s ", tx.Date.Format(domain.DateLayout), truncate(tx.Description, 40))
		c.Printf("%s%12s", sign, tx.Amount.StringFixed(2))
		fmt.Printf("  %s\n", tx.Category)
	}
	fmt.Println()
}

func runDetect(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a PDF or text statement")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Error: -file is required")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read file")
	}

	text := string(data)
	if strings.EqualFold(filepath.Ext(*filePath), ".pdf") {
		extractor, err := extract.NewTextExtractor(cfg.Upload.PDFExtractor)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create PDF text extractor")
		}
		if text, err = extractor.ExtractText(context.Background(), data); err != nil {
			log.Fatal().Err(err).Msg("Failed to extract PDF text")
		}
	}

	scores := detect.Score(text)
	fmt.Printf("Wallet score:      %d\n", scores.Wallet)
	fmt.Printf("Traditional score: %d\n", scores.Traditional)
	heading.Printf("Detected:          %s\n", scores.Winner())
}

func runTemplate(log zerolog.Logger) {
	fs := flag.NewFlagSet("template", flag.ExitOnError)
	bank := fs.String("bank", string(domain.BankWallet), "Bank type: wallet or traditional")
	fs.Parse(os.Args[2:])

	bankType, ok := domain.ParseBankType(*bank)
	if !ok {
		log.Fatal().Str("bank", *bank).Msg("Error: -bank must be wallet or traditional")
	}

	out, err := json.MarshalIndent(extract.Template(bankType), "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render template")
	}
	fmt.Println(string(out))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
