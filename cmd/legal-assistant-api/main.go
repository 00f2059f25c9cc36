package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LucassCPS/private-legal-assistant/internal/api"
	"github.com/LucassCPS/private-legal-assistant/internal/assistant"
	"github.com/LucassCPS/private-legal-assistant/internal/config"
	"github.com/LucassCPS/private-legal-assistant/internal/embedding"
	"github.com/LucassCPS/private-legal-assistant/internal/llm"
	"github.com/LucassCPS/private-legal-assistant/internal/rag/loaders"
	"github.com/LucassCPS/private-legal-assistant/internal/rag/pipeline"
	"github.com/LucassCPS/private-legal-assistant/internal/rag/splitters"
	"github.com/LucassCPS/private-legal-assistant/internal/rag/storages/vectorstore"
	"github.com/LucassCPS/private-legal-assistant/internal/sensitive"
	"github.com/LucassCPS/private-legal-assistant/pkg/logger"
	"github.com/LucassCPS/private-legal-assistant/pkg/ratelimiter"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Server.LogLevel)
	appLogger := logger.New("legal-assistant-api")
	appLogger.Info("Starting legal assistant API...")

	ctx := context.Background()

	store, err := vectorstore.NewMilvusStore(ctx, cfg.Milvus.Address, cfg.Milvus.Collection, cfg.Milvus.VectorDim, logger.New("milvus"))
	if err != nil {
		log.Fatalf("Failed to connect to Milvus: %v", err)
	}
	defer store.Close()

	embedder, err := embedding.NewOllama(cfg.Ollama.EmbeddingModel, cfg.Ollama.BaseURL, cfg.Ollama.RequestTimeout)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}
	anonymizationModel, err := llm.NewOllama(cfg.Ollama.AnonymizationModel, cfg.Ollama.BaseURL, llm.Options{
		Temperature: 0.1,
		NumCtx:      4096,
		Timeout:     cfg.Ollama.RequestTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create anonymization model client: %v", err)
	}
	generationModel, err := llm.NewOllama(cfg.Ollama.GenerationModel, cfg.Ollama.BaseURL, llm.Options{
		Temperature: 0.4,
		NumCtx:      2048,
		Timeout:     cfg.Ollama.RequestTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create generation model client: %v", err)
	}

	indexing := pipeline.NewIndexingPipeline(
		loaders.NewPDFLoader(),
		splitters.NewCharacterSplitter(cfg.Documents.ChunkSize, cfg.Documents.ChunkOverlap),
		embedder,
		store,
		cfg.Documents.Path,
		logger.New("indexing"),
	)
	retrieval := pipeline.NewRetrievalPipeline(embedder, store, logger.New("retrieval"))

	handler := sensitive.NewHandler(anonymizationModel, cfg.Retrieval.ExtractionRetries, logger.New("sensitive"))
	legalAssistant := assistant.New(handler, retrieval, generationModel, cfg.Retrieval.TopK, cfg.Retrieval.RetainHistory, logger.New("assistant"))

	// First run only; an existing store is left untouched.
	if err := indexing.Populate(ctx); err != nil {
		appLogger.Errorf("Initial population failed: %v", err)
	}

	var limiter ratelimiter.RateLimiter
	if cfg.Server.QueryRatePerSecond > 0 {
		limiter = ratelimiter.NewTokenBucket(cfg.Server.QueryRatePerSecond, cfg.Server.QueryBurst)
	}

	apiHandler := api.NewHandler(legalAssistant, indexing, store, logger.New("api"))
	router := api.SetupRouter(apiHandler, limiter)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		appLogger.Infof("Listening on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorf("Forced shutdown: %v", err)
	}
	appLogger.Info("Server stopped")
}
