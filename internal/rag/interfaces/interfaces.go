package interfaces

import (
	"context"

	"github.com/LucassCPS/private-legal-assistant/internal/rag/schema"
)

// Loader is the interface for loading data from a source (e.g., a PDF file)
// and converting it into a list of Document objects.
type Loader interface {
	Load(ctx context.Context, path string) ([]*schema.Document, error)
}

// Splitter is the interface for splitting a list of Documents into smaller chunks.
type Splitter interface {
	Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error)
}

// VectorStore is the interface for persisting and querying document chunks.
// Implementations must key storage by Document.ID so that re-adding a chunk
// with a known ID is detectable through AllIDs.
type VectorStore interface {
	// Add persists the given chunks (text, embedding and metadata).
	Add(ctx context.Context, docs []*schema.Document) error
	// AllIDs returns the set of chunk IDs already persisted.
	AllIDs(ctx context.Context) (map[string]struct{}, error)
	// Search returns the topK most similar chunks to the given embedding,
	// most relevant first, with their relevance score in the metadata.
	Search(ctx context.Context, embedding []float32, topK int) ([]*schema.Document, error)
	// Exists reports whether the persisted store has been created.
	Exists(ctx context.Context) (bool, error)
	// Drop deletes the persisted store entirely.
	Drop(ctx context.Context) error
}

// EmbeddingModel is the interface for a text embedding model.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM is the interface for a large language model that can generate text.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StreamingLLM is implemented by models that can additionally stream their
// output. The returned channel delivers a finite sequence of text fragments
// and is closed when generation finishes; it cannot be restarted.
type StreamingLLM interface {
	LLM
	GenerateStream(ctx context.Context, prompt string) (<-chan string, error)
}
