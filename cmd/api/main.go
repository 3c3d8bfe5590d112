package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/finance-assistant/internal/api/handlers"
	"github.com/dvloznov/finance-assistant/internal/api/middleware"
	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/delegate"
	"github.com/dvloznov/finance-assistant/internal/extract"
	"github.com/dvloznov/finance-assistant/internal/jobs/inmemory"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/orchestrator"
	"github.com/dvloznov/finance-assistant/internal/receipts"
	"github.com/dvloznov/finance-assistant/internal/search"
	"github.com/dvloznov/finance-assistant/internal/store"
	bqstore "github.com/dvloznov/finance-assistant/internal/store/bigquery"
	"github.com/dvloznov/finance-assistant/internal/store/memory"
	"github.com/dvloznov/finance-assistant/internal/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	ctx := context.Background()

	// Record store: BigQuery when a project is configured, in-memory
	// otherwise.
	var recordStore store.Store
	if cfg.ProjectID != "" {
		bq, err := bqstore.New(ctx, cfg.ProjectID, cfg.DatasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		recordStore = bq
	} else {
		log.Warn().Msg("GCP_PROJECT_ID not set - using in-memory record store")
		recordStore = memory.New()
	}
	defer recordStore.Close()

	// Delegate client for reasoning, extraction, and embeddings.
	engine := extract.NewEngine()
	delegateCfg := delegate.DefaultConfig()
	if cfg.Model != "" {
		delegateCfg.Model = cfg.Model
	}
	if cfg.EmbedModel != "" {
		delegateCfg.EmbedModel = cfg.EmbedModel
	}
	ai, err := delegate.New(ctx, delegateCfg, engine, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create delegate client")
	}

	searcher := search.New(ai, recordStore, log)
	registry := tools.New(recordStore, searcher, ai, log)
	orch := orchestrator.New(ai, registry, log)

	// Receipt image storage.
	var objects receipts.ObjectStore
	if cfg.ReceiptBucket != "" {
		gcs, err := receipts.NewGCSStore(ctx, cfg.ReceiptBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS object store")
		}
		objects = gcs
	} else {
		log.Warn().Msg("RECEIPT_BUCKET not set - using in-memory receipt storage")
		objects = receipts.NewMemoryStore()
	}
	defer objects.Close()

	// Scan job infrastructure with an in-process consumer.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)
	scanner := receipts.NewScanner(objects, ai, recordStore, ai, log)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	go func() {
		log.Info().Msg("Starting receipt scan worker")
		if err := jobQueue.Start(workerCtx, scanner.Handle); err != nil {
			log.Error().Err(err).Msg("Scan worker stopped with error")
		}
	}()

	// Handlers.
	extractHandler := handlers.NewExtractHandler(engine, ai, cfg.DefaultCurrency, log)
	converseHandler := handlers.NewConverseHandler(orch, cfg.DefaultCurrency, log)
	budgetsHandler := handlers.NewBudgetsHandler(recordStore, cfg.DefaultCurrency, log)
	receiptsHandler := handlers.NewReceiptsHandler(objects, jobQueue, cfg.DefaultCurrency, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/extract", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			extractHandler.Extract(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/parse", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			extractHandler.Parse(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/converse", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			converseHandler.Converse(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/budgets", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			budgetsHandler.SetBudget(w, r)
		case http.MethodGet:
			budgetsHandler.ListBudgets(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/receipts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			receiptsHandler.Upload(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// RequestID sits outside Logger so the access log sees the assigned ID.
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping scan queue")
	}

	log.Info().Msg("Server exited")
}
