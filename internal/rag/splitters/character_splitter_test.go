package splitters

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LucassCPS/private-legal-assistant/internal/rag/schema"
)

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	s := NewCharacterSplitter(100, 10)
	chunks, err := s.Split(context.Background(), []*schema.Document{{Text: "olá"}})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "olá", chunks[0].Text)
}

func TestSplitWordOverlap(t *testing.T) {
	s := NewCharacterSplitter(5, 2)
	chunks, err := s.Split(context.Background(), []*schema.Document{{Text: "aa bb cc dd ee"}})
	require.NoError(t, err)

	var texts []string
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"aa bb", "bb cc", "cc dd", "dd ee"}, texts)
}

func TestSplitPrefersParagraphBreaks(t *testing.T) {
	s := NewCharacterSplitter(12, 0)
	text := "para um.\n\npara dois."
	chunks, err := s.Split(context.Background(), []*schema.Document{{Text: text}})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "para um.", chunks[0].Text)
	assert.Equal(t, "para dois.", chunks[1].Text)
}

func TestSplitRespectsChunkSize(t *testing.T) {
	s := NewCharacterSplitter(50, 10)
	text := strings.Repeat("O artigo quinto da constituição garante direitos. ", 20)
	chunks, err := s.Split(context.Background(), []*schema.Document{{Text: text}})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), 50, "chunk %q exceeds size", c.Text)
	}
}

func TestSplitCountsRunesNotBytes(t *testing.T) {
	s := NewCharacterSplitter(10, 0)
	// Ten accented runes, twenty bytes. A byte-counting splitter would break
	// this apart.
	chunks, err := s.Split(context.Background(), []*schema.Document{{Text: "éééééééééé"}})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "éééééééééé", chunks[0].Text)
}

func TestSplitEmptyDocumentYieldsNoChunks(t *testing.T) {
	s := NewCharacterSplitter(100, 10)
	chunks, err := s.Split(context.Background(), []*schema.Document{{Text: ""}})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitCopiesMetadataPerChunk(t *testing.T) {
	s := NewCharacterSplitter(5, 0)
	doc := &schema.Document{
		Text:     "aa bb cc",
		Metadata: map[string]interface{}{schema.MetadataKeySource: "a.pdf", schema.MetadataKeyPage: 1},
	}
	chunks, err := s.Split(context.Background(), []*schema.Document{doc})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.Equal(t, "a.pdf", c.Metadata[schema.MetadataKeySource])
	}
	// Chunk metadata is an independent copy.
	chunks[0].Metadata[schema.MetadataKeyPage] = 99
	assert.Equal(t, 1, doc.Metadata[schema.MetadataKeyPage])
	assert.Equal(t, 1, chunks[1].Metadata[schema.MetadataKeyPage])
}

func TestSplitPreservesDocumentOrder(t *testing.T) {
	s := NewCharacterSplitter(1000, 0)
	docs := []*schema.Document{
		{Text: "primeiro documento", Metadata: map[string]interface{}{schema.MetadataKeyPage: 1}},
		{Text: "segundo documento", Metadata: map[string]interface{}{schema.MetadataKeyPage: 2}},
	}
	chunks, err := s.Split(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Metadata[schema.MetadataKeyPage])
	assert.Equal(t, 2, chunks[1].Metadata[schema.MetadataKeyPage])
}

func TestSplitStopsOnCanceledContext(t *testing.T) {
	s := NewCharacterSplitter(100, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Split(ctx, []*schema.Document{{Text: "qualquer coisa"}})
	assert.ErrorIs(t, err, context.Canceled)
}
