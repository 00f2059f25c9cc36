package pipeline

import (
	"context"
	"fmt"

	"github.com/LucassCPS/private-legal-assistant/internal/rag/interfaces"
	"github.com/LucassCPS/private-legal-assistant/internal/rag/schema"
	"github.com/LucassCPS/private-legal-assistant/pkg/logger"
)

// RetrievalPipeline retrieves the chunks most relevant to a query.
type RetrievalPipeline struct {
	embedder interfaces.EmbeddingModel
	store    interfaces.VectorStore
	log      *logger.Logger
}

// NewRetrievalPipeline creates a new RetrievalPipeline.
func NewRetrievalPipeline(
	embedder interfaces.EmbeddingModel,
	store interfaces.VectorStore,
	log *logger.Logger,
) *RetrievalPipeline {
	return &RetrievalPipeline{
		embedder: embedder,
		store:    store,
		log:      log,
	}
}

// Run embeds the query and returns the topK most similar chunks with their
// relevance scores, in the order the store ranked them.
func (p *RetrievalPipeline) Run(ctx context.Context, query string, topK int) ([]*schema.Document, error) {
	embeddings, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding model returned no vector for the query")
	}

	docs, err := p.store.Search(ctx, embeddings[0], topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search store: %w", err)
	}
	p.log.Infof("Retrieved %d chunk(s)", len(docs))
	return docs, nil
}
