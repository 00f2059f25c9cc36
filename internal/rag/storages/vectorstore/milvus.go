package vectorstore

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/LucassCPS/private-legal-assistant/internal/rag/interfaces"
	"github.com/LucassCPS/private-legal-assistant/internal/rag/schema"
	"github.com/LucassCPS/private-legal-assistant/pkg/logger"
)

const (
	// Schema fields of the Milvus collection.
	FieldID         = "id"
	FieldContent    = "content"
	FieldSource     = "source"
	FieldPage       = "page"
	FieldChunkIndex = "chunk_index"
	FieldEmbedding  = "embedding"

	maxIDLength      = 512
	maxContentLength = 4096
	maxSourceLength  = 512
)

// MilvusStore implements the VectorStore interface on top of a Milvus
// collection. Chunks are keyed by their deterministic ID so that repeated
// ingestion of the same documents can be detected through AllIDs.
type MilvusStore struct {
	log        *logger.Logger
	client     client.Client
	collection string
	dim        int
}

// NewMilvusStore connects to Milvus and returns a store bound to the given
// collection. The collection itself is created lazily by EnsureCollection.
func NewMilvusStore(ctx context.Context, address, collection string, dim int, log *logger.Logger) (*MilvusStore, error) {
	c, err := client.NewClient(ctx, client.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus at %s: %w", address, err)
	}
	return &MilvusStore{
		log:        log,
		client:     c,
		collection: collection,
		dim:        dim,
	}, nil
}

// Close releases the underlying Milvus connection.
func (s *MilvusStore) Close() error {
	return s.client.Close()
}

// Exists reports whether the collection has been created.
func (s *MilvusStore) Exists(ctx context.Context) (bool, error) {
	has, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", s.collection, err)
	}
	return has, nil
}

// Drop deletes the collection and everything stored in it.
func (s *MilvusStore) Drop(ctx context.Context) error {
	has, err := s.Exists(ctx)
	if err != nil {
		return err
	}
	if !has {
		return nil
	}
	if err := s.client.DropCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", s.collection, err)
	}
	s.log.Infof("Dropped collection %q", s.collection)
	return nil
}

// EnsureCollection creates the collection, its index and loads it into memory
// if it does not exist yet. Calling it on an existing collection only loads it.
func (s *MilvusStore) EnsureCollection(ctx context.Context) error {
	has, err := s.Exists(ctx)
	if err != nil {
		return err
	}

	if !has {
		sch := entity.NewSchema().
			WithName(s.collection).
			WithDescription("legal document chunks with embeddings").
			WithField(entity.NewField().
				WithName(FieldID).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxIDLength).
				WithIsPrimaryKey(true)).
			WithField(entity.NewField().
				WithName(FieldContent).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxContentLength)).
			WithField(entity.NewField().
				WithName(FieldSource).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxSourceLength)).
			WithField(entity.NewField().
				WithName(FieldPage).
				WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().
				WithName(FieldChunkIndex).
				WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().
				WithName(FieldEmbedding).
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(s.dim)))

		if err := s.client.CreateCollection(ctx, sch, 1); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
		}

		index, err := entity.NewIndexIvfFlat(entity.COSINE, 128)
		if err != nil {
			return fmt.Errorf("failed to build index definition: %w", err)
		}
		if err := s.client.CreateIndex(ctx, s.collection, FieldEmbedding, index, false); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", s.collection, err)
		}
		s.log.Infof("Created collection %q (dim=%d)", s.collection, s.dim)
	}

	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to load collection %s: %w", s.collection, err)
	}
	return nil
}

// Add inserts the given chunks into the collection and flushes, so the new
// entries are visible to AllIDs and Search immediately afterwards.
func (s *MilvusStore) Add(ctx context.Context, docs []*schema.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := s.EnsureCollection(ctx); err != nil {
		return err
	}

	ids := make([]string, len(docs))
	contents := make([]string, len(docs))
	sources := make([]string, len(docs))
	pages := make([]int64, len(docs))
	chunkIndexes := make([]int64, len(docs))
	embeddings := make([][]float32, len(docs))

	for i, doc := range docs {
		ids[i] = doc.ID
		contents[i] = doc.Text
		sources[i] = doc.Source()
		pages[i] = int64(doc.Page())
		if idx, ok := doc.Metadata[schema.MetadataKeyChunkIndex].(int); ok {
			chunkIndexes[i] = int64(idx)
		}
		embeddings[i] = doc.Embedding
	}

	_, err := s.client.Insert(ctx, s.collection, "",
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnVarChar(FieldContent, contents),
		entity.NewColumnVarChar(FieldSource, sources),
		entity.NewColumnInt64(FieldPage, pages),
		entity.NewColumnInt64(FieldChunkIndex, chunkIndexes),
		entity.NewColumnFloatVector(FieldEmbedding, s.dim, embeddings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert %d chunks into %s: %w", len(docs), s.collection, err)
	}

	if err := s.client.Flush(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to flush collection %s: %w", s.collection, err)
	}

	s.log.Infof("Inserted %d chunks into collection %q", len(docs), s.collection)
	return nil
}

// AllIDs returns the set of chunk IDs currently stored in the collection.
// A collection that does not exist yet yields an empty set.
func (s *MilvusStore) AllIDs(ctx context.Context) (map[string]struct{}, error) {
	has, err := s.Exists(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{})
	if !has {
		return ids, nil
	}

	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", s.collection, err)
	}

	result, err := s.client.Query(ctx, s.collection, nil, fmt.Sprintf(`%s != ""`, FieldID), []string{FieldID})
	if err != nil {
		return nil, fmt.Errorf("failed to list chunk ids in %s: %w", s.collection, err)
	}

	for _, col := range result {
		idCol, ok := col.(*entity.ColumnVarChar)
		if !ok || idCol.Name() != FieldID {
			continue
		}
		for _, id := range idCol.Data() {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

// Search performs a vector similarity search and returns the matching chunks
// in the order Milvus ranked them, with the relevance score in the metadata.
func (s *MilvusStore) Search(ctx context.Context, embedding []float32, topK int) ([]*schema.Document, error) {
	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", s.collection, err)
	}

	searchParams, err := entity.NewIndexIvfFlatSearchParam(10)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	outputFields := []string{FieldID, FieldContent, FieldSource, FieldPage, FieldChunkIndex}
	searchResults, err := s.client.Search(
		ctx, s.collection, nil, "", outputFields,
		[]entity.Vector{entity.FloatVector(embedding)},
		FieldEmbedding, entity.COSINE, topK, searchParams,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", s.collection, err)
	}

	var results []*schema.Document
	for _, res := range searchResults {
		idData := varcharColumn(res.Fields, FieldID)
		contentData := varcharColumn(res.Fields, FieldContent)
		sourceData := varcharColumn(res.Fields, FieldSource)
		pageData := int64Column(res.Fields, FieldPage)
		chunkIndexData := int64Column(res.Fields, FieldChunkIndex)

		if idData == nil {
			s.log.Warn("Search result is missing the id field, skipping result set")
			continue
		}

		for i := 0; i < res.ResultCount; i++ {
			doc := &schema.Document{
				ID:   idData[i],
				Metadata: map[string]interface{}{
					schema.MetadataKeyScore: res.Scores[i],
				},
			}
			if contentData != nil {
				doc.Text = contentData[i]
			}
			if sourceData != nil {
				doc.Metadata[schema.MetadataKeySource] = sourceData[i]
			}
			if pageData != nil {
				doc.Metadata[schema.MetadataKeyPage] = int(pageData[i])
			}
			if chunkIndexData != nil {
				doc.Metadata[schema.MetadataKeyChunkIndex] = int(chunkIndexData[i])
			}
			results = append(results, doc)
		}
	}
	return results, nil
}

func varcharColumn(fields []entity.Column, name string) []string {
	for _, field := range fields {
		if col, ok := field.(*entity.ColumnVarChar); ok && col.Name() == name {
			return col.Data()
		}
	}
	return nil
}

func int64Column(fields []entity.Column, name string) []int64 {
	for _, field := range fields {
		if col, ok := field.(*entity.ColumnInt64); ok && col.Name() == name {
			return col.Data()
		}
	}
	return nil
}

// compile-time check to ensure MilvusStore implements the VectorStore interface
var _ interfaces.VectorStore = (*MilvusStore)(nil)
