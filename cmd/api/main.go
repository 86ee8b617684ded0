package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-ingest/internal/advice"
	"github.com/dvloznov/statement-ingest/internal/api"
	"github.com/dvloznov/statement-ingest/internal/api/handlers"
	"github.com/dvloznov/statement-ingest/internal/auth"
	"github.com/dvloznov/statement-ingest/internal/bootstrap"
	"github.com/dvloznov/statement-ingest/internal/config"
	"github.com/dvloznov/statement-ingest/internal/jobs/inmemory"
	"github.com/dvloznov/statement-ingest/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (or set CONFIG_FILE env)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New(logger.Options{})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	ctx := logger.WithContext(context.Background(), log)

	repo, err := bootstrap.OpenRepository(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("Failed to open store")
	}
	defer repo.Close()
	log.Info().Str("backend", cfg.Store.Backend).Msg("Store ready")

	ingestor, closeIngestor, err := bootstrap.NewIngestor(ctx, cfg, repo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build ingestion pipeline")
	}
	defer closeIngestor()

	provider, err := advice.NewProvider(ctx, cfg.Advice.Provider, cfg.Advice.Model, log)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Advice.Provider).Msg("Failed to create advice provider")
	}

	tokens, err := auth.ParseStaticTokens(cfg.Auth.Tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid AUTH_TOKENS")
	}
	if tokens.Len() == 0 {
		log.Warn().Msg("No auth tokens configured - every authenticated request will be rejected")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore, log)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := jobQueue.Start(workerCtx, advice.NewJobHandler(repo, provider, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	router := api.NewRouter(api.Handlers{
		Upload:       handlers.NewUploadHandler(ingestor, cfg.Upload.MaxSizeBytes, log),
		Transactions: handlers.NewTransactionsHandler(repo, ingestor, log),
		Account:      handlers.NewAccountHandler(repo, log),
		Summary:      handlers.NewSummaryHandler(repo, log),
		Advice:       handlers.NewAdviceHandler(jobQueue, log),
		Jobs:         handlers.NewJobsHandler(jobStore, log),
	}, tokens, log)

	// Extraction runs inside the handler, so writes get more time than reads.
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
