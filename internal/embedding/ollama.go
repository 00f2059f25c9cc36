package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	olla "github.com/ollama/ollama/api"

	"github.com/LucassCPS/private-legal-assistant/internal/rag/interfaces"
)

// Ollama is an embedding model client backed by an Ollama server.
type Ollama struct {
	client *olla.Client
	model  string
}

// NewOllama creates an embedding client for the given model. An empty baseURL
// defaults to "http://localhost:11434". A zero timeout means no timeout.
func NewOllama(model, baseURL string, timeout time.Duration) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	hc := &http.Client{Timeout: timeout}

	return &Ollama{
		client: olla.NewClient(parsedURL, hc),
		model:  model,
	}, nil
}

// Embed generates one embedding vector per input text, in input order.
// The same model is used for chunk ingestion and query embedding.
func (m *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := m.client.Embed(ctx, &olla.EmbedRequest{
		Model: m.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get embeddings from ollama: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

// compile-time check to ensure Ollama implements the EmbeddingModel interface
var _ interfaces.EmbeddingModel = (*Ollama)(nil)
