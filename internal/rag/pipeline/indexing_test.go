package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LucassCPS/private-legal-assistant/internal/rag/schema"
	"github.com/LucassCPS/private-legal-assistant/pkg/logger"
)

type fakeLoader struct {
	docs []*schema.Document
}

func (f *fakeLoader) LoadDir(ctx context.Context, dir string) ([]*schema.Document, error) {
	// Return fresh copies so repeated ingestion runs do not share state.
	out := make([]*schema.Document, len(f.docs))
	for i, d := range f.docs {
		md := make(map[string]interface{}, len(d.Metadata))
		for k, v := range d.Metadata {
			md[k] = v
		}
		out[i] = &schema.Document{Text: d.Text, Metadata: md}
	}
	return out, nil
}

// identitySplitter passes documents through unchanged, so chunk counts in the
// tests map one-to-one to loaded pages.
type identitySplitter struct{}

func (identitySplitter) Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	return docs, nil
}

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i]))}
	}
	return out, nil
}

// fakeStore is an in-memory VectorStore keyed by chunk ID.
type fakeStore struct {
	created bool
	chunks  map[string]*schema.Document
	addErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{chunks: make(map[string]*schema.Document)}
}

func (f *fakeStore) Add(ctx context.Context, docs []*schema.Document) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.created = true
	for _, doc := range docs {
		f.chunks[doc.ID] = doc
	}
	return nil
}

func (f *fakeStore) AllIDs(ctx context.Context) (map[string]struct{}, error) {
	ids := make(map[string]struct{}, len(f.chunks))
	for id := range f.chunks {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (f *fakeStore) Search(ctx context.Context, embedding []float32, topK int) ([]*schema.Document, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) Exists(ctx context.Context) (bool, error) {
	return f.created, nil
}

func (f *fakeStore) Drop(ctx context.Context) error {
	f.created = false
	f.chunks = make(map[string]*schema.Document)
	return nil
}

func pageDoc(source string, page int, text string) *schema.Document {
	return &schema.Document{
		Text: text,
		Metadata: map[string]interface{}{
			schema.MetadataKeySource: source,
			schema.MetadataKeyPage:   page,
		},
	}
}

func newTestPipeline(loader *fakeLoader, store *fakeStore, embedder *fakeEmbedder) *IndexingPipeline {
	return NewIndexingPipeline(loader, identitySplitter{}, embedder, store, "./documents", logger.New("indexing-test"))
}

func TestAssignChunkIDs(t *testing.T) {
	chunks := []*schema.Document{
		pageDoc("a.pdf", 1, "primeiro"),
		pageDoc("a.pdf", 1, "segundo"),
		pageDoc("a.pdf", 2, "terceiro"),
		pageDoc("a.pdf", 2, "quarto"),
		pageDoc("b.pdf", 1, "quinto"),
	}

	AssignChunkIDs(chunks)

	want := []string{"a.pdf:1:0", "a.pdf:1:1", "a.pdf:2:0", "a.pdf:2:1", "b.pdf:1:0"}
	for i, chunk := range chunks {
		assert.Equal(t, want[i], chunk.ID)
	}
	// chunk_index metadata mirrors the identifier suffix.
	assert.Equal(t, 1, chunks[1].Metadata[schema.MetadataKeyChunkIndex])
	assert.Equal(t, 0, chunks[2].Metadata[schema.MetadataKeyChunkIndex])
}

func TestAssignChunkIDsAreStableAcrossRuns(t *testing.T) {
	build := func() []*schema.Document {
		return []*schema.Document{
			pageDoc("lei.pdf", 1, "um"),
			pageDoc("lei.pdf", 1, "dois"),
			pageDoc("lei.pdf", 3, "três"),
		}
	}

	first := build()
	second := build()
	AssignChunkIDs(first)
	AssignChunkIDs(second)

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestIngestStoresAllChunks(t *testing.T) {
	loader := &fakeLoader{docs: []*schema.Document{
		pageDoc("a.pdf", 1, "conteúdo um"),
		pageDoc("a.pdf", 2, "conteúdo dois"),
	}}
	store := newFakeStore()
	p := newTestPipeline(loader, store, &fakeEmbedder{})

	require.NoError(t, p.Ingest(context.Background()))

	assert.Len(t, store.chunks, 2)
	require.Contains(t, store.chunks, "a.pdf:1:0")
	assert.Equal(t, []float32{float32(len("conteúdo um"))}, store.chunks["a.pdf:1:0"].Embedding)
}

func TestIngestIsIdempotent(t *testing.T) {
	loader := &fakeLoader{docs: []*schema.Document{
		pageDoc("a.pdf", 1, "conteúdo um"),
		pageDoc("a.pdf", 1, "conteúdo dois"),
	}}
	store := newFakeStore()
	embedder := &fakeEmbedder{}
	p := newTestPipeline(loader, store, embedder)

	require.NoError(t, p.Ingest(context.Background()))
	firstIDs, err := store.AllIDs(context.Background())
	require.NoError(t, err)

	// Re-ingesting unchanged documents adds zero new chunks and never calls
	// the embedding model again.
	require.NoError(t, p.Ingest(context.Background()))
	secondIDs, err := store.AllIDs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, firstIDs, secondIDs)
	assert.Equal(t, 1, embedder.calls)
}

func TestIngestOnlyAddsNewChunks(t *testing.T) {
	loader := &fakeLoader{docs: []*schema.Document{
		pageDoc("a.pdf", 1, "antigo"),
	}}
	store := newFakeStore()
	p := newTestPipeline(loader, store, &fakeEmbedder{})
	require.NoError(t, p.Ingest(context.Background()))

	loader.docs = append(loader.docs, pageDoc("b.pdf", 1, "novo"))
	require.NoError(t, p.Ingest(context.Background()))

	assert.Len(t, store.chunks, 2)
	assert.Contains(t, store.chunks, "b.pdf:1:0")
}

func TestPopulateIsFirstRunOnly(t *testing.T) {
	loader := &fakeLoader{docs: []*schema.Document{pageDoc("a.pdf", 1, "conteúdo")}}
	store := newFakeStore()
	p := newTestPipeline(loader, store, &fakeEmbedder{})

	require.NoError(t, p.Populate(context.Background()))
	assert.Len(t, store.chunks, 1)

	// A populated store is left untouched, even when new documents appear.
	loader.docs = append(loader.docs, pageDoc("b.pdf", 1, "novo"))
	require.NoError(t, p.Populate(context.Background()))
	assert.Len(t, store.chunks, 1)
}

func TestUpdateClearsAndRepopulates(t *testing.T) {
	loader := &fakeLoader{docs: []*schema.Document{pageDoc("a.pdf", 1, "conteúdo")}}
	store := newFakeStore()
	p := newTestPipeline(loader, store, &fakeEmbedder{})
	require.NoError(t, p.Populate(context.Background()))

	loader.docs = []*schema.Document{pageDoc("c.pdf", 1, "substituto")}
	require.NoError(t, p.Update(context.Background()))

	assert.Len(t, store.chunks, 1)
	assert.Contains(t, store.chunks, "c.pdf:1:0")
}

func TestIngestPropagatesStoreErrors(t *testing.T) {
	loader := &fakeLoader{docs: []*schema.Document{pageDoc("a.pdf", 1, "conteúdo")}}
	store := newFakeStore()
	store.addErr = fmt.Errorf("milvus unavailable")
	p := newTestPipeline(loader, store, &fakeEmbedder{})

	err := p.Ingest(context.Background())
	assert.ErrorContains(t, err, "milvus unavailable")
}
