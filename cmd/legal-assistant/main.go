package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

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
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Server.LogLevel)
	appLogger := logger.New("legal-assistant")

	ctx := context.Background()

	// Vector store
	store, err := vectorstore.NewMilvusStore(ctx, cfg.Milvus.Address, cfg.Milvus.Collection, cfg.Milvus.VectorDim, logger.New("milvus"))
	if err != nil {
		log.Fatalf("Failed to connect to Milvus: %v", err)
	}
	defer store.Close()

	// Model clients
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

	// Pipelines
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

	appLogger.Info("Legal assistant ready")
	runMenu(ctx, indexing, legalAssistant)
}

func runMenu(ctx context.Context, indexing *pipeline.IndexingPipeline, legalAssistant *assistant.LegalAssistant) {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println("\n-- Legal Assistant --")
		fmt.Println("Select an action to perform:")
		fmt.Println("1. Populate database with PDF files")
		fmt.Println("2. Update database (clear and repopulate)")
		fmt.Println("3. Clear database")
		fmt.Println("4. Ask a question")
		fmt.Println("0. Exit")
		fmt.Print("Enter your choice: ")

		choice, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nExiting.")
			return
		}

		switch strings.TrimSpace(choice) {
		case "1":
			if err := indexing.Populate(ctx); err != nil {
				fmt.Printf("Populate failed: %v\n", err)
			}
		case "2":
			if err := indexing.Update(ctx); err != nil {
				fmt.Printf("Update failed: %v\n", err)
			}
		case "3":
			if err := indexing.Clear(ctx); err != nil {
				fmt.Printf("Clear failed: %v\n", err)
			} else {
				fmt.Println("Database cleared.")
			}
		case "4":
			fmt.Print("Enter your legal query: ")
			query, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			query = strings.TrimSpace(query)
			if query == "" {
				fmt.Println("Query cannot be empty.")
				continue
			}
			result := legalAssistant.ProcessQuery(ctx, query)
			printResult(result)
		case "0":
			fmt.Println("Exiting. Goodbye!")
			return
		default:
			fmt.Println("Invalid choice. Please enter a number from the menu.")
		}
	}
}

func printResult(result *assistant.QueryResult) {
	fmt.Println("\n----------------------")
	fmt.Println(result.FinalResponse)
	if result.Failure != assistant.FailureNone {
		fmt.Println("----------------------")
		return
	}
	fmt.Println("\n--- Processing details ---")
	fmt.Printf("Anonymized query: %s\n", result.AnonymizedQuery)
	if result.NoSensitiveData {
		fmt.Println("Sensitive data: none detected")
	} else {
		fmt.Println("Detected replacements:")
		for placeholder, original := range result.Replacements {
			fmt.Printf("  %s -> %s\n", placeholder, original)
		}
	}
	fmt.Println("----------------------")
}
