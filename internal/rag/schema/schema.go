package schema

const (
	// MetadataKeySource is the key for the source file name of a chunk.
	MetadataKeySource = "source"
	// MetadataKeyPage is the key for the 1-based page number a chunk came from.
	MetadataKeyPage = "page"
	// MetadataKeyChunkIndex is the key for the position of a chunk within its
	// (source, page) group. It resets to 0 whenever the page changes.
	MetadataKeyChunkIndex = "chunk_index"
	// MetadataKeyScore is the key for the relevance score attached to a chunk
	// returned by a similarity search.
	MetadataKeyScore = "score"
)

// Document is the central data structure representing a piece of text and its
// associated data. It is the primary data carrier throughout the RAG pipeline.
type Document struct {
	// ID is the unique identifier for this document chunk. For ingested
	// chunks it has the deterministic form "source:page:chunk_index", which
	// is stable across repeated ingestion runs of the same document.
	ID string

	// Text is the string content of the document chunk.
	Text string

	// Embedding is the vector representation of the text.
	Embedding []float32

	// Metadata holds arbitrary data about the document, such as source,
	// page and chunk_index.
	Metadata map[string]interface{}
}

// Source returns the source file name recorded in the metadata, or "".
func (d *Document) Source() string {
	s, _ := d.Metadata[MetadataKeySource].(string)
	return s
}

// Page returns the page number recorded in the metadata, or 0.
func (d *Document) Page() int {
	switch v := d.Metadata[MetadataKeyPage].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// Score returns the relevance score recorded in the metadata, or 0.
func (d *Document) Score() float32 {
	switch v := d.Metadata[MetadataKeyScore].(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	}
	return 0
}
