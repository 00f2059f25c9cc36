package pipeline

import (
	"context"
	"fmt"

	"github.com/LucassCPS/private-legal-assistant/internal/rag/interfaces"
	"github.com/LucassCPS/private-legal-assistant/internal/rag/schema"
	"github.com/LucassCPS/private-legal-assistant/pkg/logger"
)

// DirLoader loads every supported document in a directory.
type DirLoader interface {
	LoadDir(ctx context.Context, dir string) ([]*schema.Document, error)
}

// IndexingPipeline orchestrates loading, splitting, identifying, embedding and
// storing document chunks.
type IndexingPipeline struct {
	loader   DirLoader
	splitter interfaces.Splitter
	embedder interfaces.EmbeddingModel
	store    interfaces.VectorStore
	docsPath string
	log      *logger.Logger
}

// NewIndexingPipeline creates a new IndexingPipeline over the given documents
// directory.
func NewIndexingPipeline(
	loader DirLoader,
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	store interfaces.VectorStore,
	docsPath string,
	log *logger.Logger,
) *IndexingPipeline {
	return &IndexingPipeline{
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		store:    store,
		docsPath: docsPath,
		log:      log,
	}
}

// Populate ingests the document directory into the store on first run. When
// the persisted store already exists it does nothing; Update is the explicit
// refresh operation.
func (p *IndexingPipeline) Populate(ctx context.Context) error {
	exists, err := p.store.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		p.log.Info("Store already populated, skipping")
		return nil
	}
	p.log.Info("Populating store")
	return p.Ingest(ctx)
}

// Update clears the store unconditionally and repopulates it from the
// document directory.
func (p *IndexingPipeline) Update(ctx context.Context) error {
	p.log.Info("Updating store")
	if err := p.store.Drop(ctx); err != nil {
		return err
	}
	return p.Ingest(ctx)
}

// Clear deletes the persisted store.
func (p *IndexingPipeline) Clear(ctx context.Context) error {
	p.log.Info("Clearing store")
	return p.store.Drop(ctx)
}

// Ingest loads the documents, splits them into chunks, assigns deterministic
// chunk identifiers, and adds only the chunks not already stored. Because the
// identifiers are stable across runs, re-ingesting unchanged documents adds
// zero new chunks.
func (p *IndexingPipeline) Ingest(ctx context.Context) error {
	docs, err := p.loader.LoadDir(ctx, p.docsPath)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	p.log.Infof("Loaded %d page document(s)", len(docs))

	chunks, err := p.splitter.Split(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to split documents: %w", err)
	}
	p.log.Infof("Split into %d chunk(s)", len(chunks))

	AssignChunkIDs(chunks)

	existing, err := p.store.AllIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list existing chunks: %w", err)
	}
	p.log.Infof("Number of existing chunks in store: %d", len(existing))

	var newChunks []*schema.Document
	for _, chunk := range chunks {
		if _, ok := existing[chunk.ID]; !ok {
			newChunks = append(newChunks, chunk)
		}
	}
	if len(newChunks) == 0 {
		p.log.Info("No new chunks to add")
		return nil
	}

	texts := make([]string, len(newChunks))
	for i, chunk := range newChunks {
		texts[i] = chunk.Text
	}
	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(newChunks) {
		return fmt.Errorf("expected %d embeddings, got %d", len(newChunks), len(embeddings))
	}
	for i, chunk := range newChunks {
		chunk.Embedding = embeddings[i]
	}

	if err := p.store.Add(ctx, newChunks); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	p.log.Infof("Added %d new chunk(s)", len(newChunks))
	return nil
}

// AssignChunkIDs gives each chunk the deterministic identifier
// "source:page:chunk_index". The index starts at 0 and increments for
// consecutive chunks sharing the same (source, page), resetting whenever the
// page changes. The chunk order produced by the loader and splitter is
// therefore part of the identifier contract.
func AssignChunkIDs(chunks []*schema.Document) {
	lastPageKey := ""
	index := 0

	for _, chunk := range chunks {
		pageKey := fmt.Sprintf("%s:%d", chunk.Source(), chunk.Page())
		if pageKey == lastPageKey {
			index++
		} else {
			index = 0
		}
		lastPageKey = pageKey

		chunk.ID = fmt.Sprintf("%s:%d", pageKey, index)
		if chunk.Metadata == nil {
			chunk.Metadata = make(map[string]interface{})
		}
		chunk.Metadata[schema.MetadataKeyChunkIndex] = index
	}
}
