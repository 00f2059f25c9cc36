package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP API settings. QueryRatePerSecond throttles the
// query endpoint (each query drives two model generations); zero disables the
// limiter. QueryBurst is the number of requests allowed to arrive at once.
type ServerConfig struct {
	Address            string  `yaml:"address"`  // listen address, e.g. ":8080"
	LogLevel           string  `yaml:"logLevel"` // logrus level name
	QueryRatePerSecond float64 `yaml:"queryRatePerSecond"`
	QueryBurst         int     `yaml:"queryBurst"`
}

// OllamaConfig holds the connection and model settings for the Ollama server.
// RequestTimeout bounds every call to the model server; zero means no timeout.
type OllamaConfig struct {
	BaseURL            string        `yaml:"baseURL"`            // e.g. "http://localhost:11434"
	GenerationModel    string        `yaml:"generationModel"`    // model used to answer questions
	AnonymizationModel string        `yaml:"anonymizationModel"` // model used to extract sensitive data
	EmbeddingModel     string        `yaml:"embeddingModel"`     // model used to embed text
	RequestTimeout     time.Duration `yaml:"requestTimeout"`
}

// MilvusConfig holds the connection settings for the vector store.
type MilvusConfig struct {
	Address    string `yaml:"address"`    // Milvus endpoint, e.g. "localhost:19530"
	Collection string `yaml:"collection"` // collection name for document chunks
	VectorDim  int    `yaml:"vectorDim"`  // embedding dimension
}

// DocumentsConfig holds the ingestion settings.
type DocumentsConfig struct {
	Path         string `yaml:"path"`         // directory of source PDF files
	ChunkSize    int    `yaml:"chunkSize"`    // characters per chunk
	ChunkOverlap int    `yaml:"chunkOverlap"` // characters shared between consecutive chunks
}

// RetrievalConfig holds the query-time settings.
type RetrievalConfig struct {
	TopK              int  `yaml:"topK"`              // number of chunks retrieved per query
	RetainHistory     bool `yaml:"retainHistory"`     // keep conversation history across queries
	ExtractionRetries int  `yaml:"extractionRetries"` // attempts before extraction is declared failed
}

// Config is the root configuration for the legal assistant.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Milvus    MilvusConfig    `yaml:"milvus"`
	Documents DocumentsConfig `yaml:"documents"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// Default returns a Config populated with the stock settings. A YAML file and
// environment variables only need to override what differs.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:  ":8080",
			LogLevel: "info",
		},
		Ollama: OllamaConfig{
			BaseURL:            "http://localhost:11434",
			GenerationModel:    "gemma3:1b",
			AnonymizationModel: "mistral:instruct",
			EmbeddingModel:     "nomic-embed-text",
		},
		Milvus: MilvusConfig{
			Address:    "localhost:19530",
			Collection: "legal_documents",
			VectorDim:  768,
		},
		Documents: DocumentsConfig{
			Path:         "./documents",
			ChunkSize:    800,
			ChunkOverlap: 80,
		},
		Retrieval: RetrievalConfig{
			TopK:              5,
			ExtractionRetries: 3,
		},
	}
}

// Load reads the configuration file at path and applies environment overrides.
// A missing file is not an error; defaults plus environment are used instead.
func Load(path string) (*Config, error) {
	// Best effort: a .env file is optional.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays LEGAL_ASSISTANT_* environment variables on the config.
func (c *Config) applyEnv() {
	setString(&c.Server.Address, "LEGAL_ASSISTANT_ADDRESS")
	setString(&c.Server.LogLevel, "LEGAL_ASSISTANT_LOG_LEVEL")
	setString(&c.Ollama.BaseURL, "LEGAL_ASSISTANT_OLLAMA_URL")
	setString(&c.Ollama.GenerationModel, "LEGAL_ASSISTANT_GENERATION_MODEL")
	setString(&c.Ollama.AnonymizationModel, "LEGAL_ASSISTANT_ANONYMIZATION_MODEL")
	setString(&c.Ollama.EmbeddingModel, "LEGAL_ASSISTANT_EMBEDDING_MODEL")
	setString(&c.Milvus.Address, "LEGAL_ASSISTANT_MILVUS_ADDRESS")
	setString(&c.Milvus.Collection, "LEGAL_ASSISTANT_MILVUS_COLLECTION")
	setString(&c.Documents.Path, "LEGAL_ASSISTANT_DOCUMENTS_PATH")
	setInt(&c.Retrieval.TopK, "LEGAL_ASSISTANT_TOP_K")

	if v := os.Getenv("LEGAL_ASSISTANT_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Ollama.RequestTimeout = d
		}
	}
}

func (c *Config) validate() error {
	if c.Documents.ChunkSize <= 0 {
		return fmt.Errorf("documents.chunkSize must be positive, got %d", c.Documents.ChunkSize)
	}
	if c.Documents.ChunkOverlap < 0 || c.Documents.ChunkOverlap >= c.Documents.ChunkSize {
		return fmt.Errorf("documents.chunkOverlap must be in [0, chunkSize), got %d", c.Documents.ChunkOverlap)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.topK must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.ExtractionRetries <= 0 {
		return fmt.Errorf("retrieval.extractionRetries must be positive, got %d", c.Retrieval.ExtractionRetries)
	}
	if c.Milvus.VectorDim <= 0 {
		return fmt.Errorf("milvus.vectorDim must be positive, got %d", c.Milvus.VectorDim)
	}
	if c.Server.QueryRatePerSecond < 0 {
		return fmt.Errorf("server.queryRatePerSecond must not be negative, got %g", c.Server.QueryRatePerSecond)
	}
	if c.Server.QueryRatePerSecond > 0 && c.Server.QueryBurst <= 0 {
		return fmt.Errorf("server.queryBurst must be positive when rate limiting is enabled, got %d", c.Server.QueryBurst)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
