package splitters

import (
	"context"
	"strings"

	"github.com/LucassCPS/private-legal-assistant/internal/rag/interfaces"
	"github.com/LucassCPS/private-legal-assistant/internal/rag/schema"
)

// defaultSeparators are tried in order: paragraph break, line break, word
// break, and finally individual characters.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// CharacterSplitter implements the Splitter interface by recursively splitting
// text on a hierarchy of separators and merging the pieces into chunks of at
// most ChunkSize characters, with ChunkOverlap characters shared between
// consecutive chunks. Sizes are counted in runes.
type CharacterSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewCharacterSplitter creates a new CharacterSplitter.
func NewCharacterSplitter(chunkSize, chunkOverlap int) *CharacterSplitter {
	return &CharacterSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}
}

// Split splits a list of documents into smaller chunks. Chunk order follows
// document order, so downstream identifier assignment is deterministic.
func (s *CharacterSplitter) Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	var chunks []*schema.Document
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, text := range s.splitText(doc.Text, defaultSeparators) {
			chunks = append(chunks, &schema.Document{
				Text:     text,
				Metadata: s.copyMetadata(doc.Metadata),
			})
		}
	}
	return chunks, nil
}

// splitText splits text using the first separator that occurs in it, recursing
// with the remaining separators into any piece still larger than ChunkSize.
func (s *CharacterSplitter) splitText(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	splits := splitOn(text, separator)

	var final []string
	var good []string
	for _, piece := range splits {
		if runeLen(piece) <= s.ChunkSize {
			good = append(good, piece)
			continue
		}
		// Flush the pieces that fit, then recurse into the oversized one.
		if len(good) > 0 {
			final = append(final, s.mergeSplits(good, separator)...)
			good = nil
		}
		if len(remaining) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.splitText(piece, remaining)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.mergeSplits(good, separator)...)
	}
	return final
}

// mergeSplits greedily packs consecutive splits into chunks of at most
// ChunkSize characters, carrying ChunkOverlap characters over between
// consecutive chunks.
func (s *CharacterSplitter) mergeSplits(splits []string, separator string) []string {
	sepLen := runeLen(separator)

	var chunks []string
	var current []string
	total := 0

	for _, piece := range splits {
		pieceLen := runeLen(piece)
		extra := 0
		if len(current) > 0 {
			extra = sepLen
		}
		if total+pieceLen+extra > s.ChunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			// Drop pieces from the front until the retained tail fits the
			// overlap budget and leaves room for the next piece.
			for len(current) > 0 &&
				(total > s.ChunkOverlap || total+pieceLen+sepLen > s.ChunkSize) {
				total -= runeLen(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, piece)
		total += pieceLen
	}

	if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func (s *CharacterSplitter) copyMetadata(md map[string]interface{}) map[string]interface{} {
	if md == nil {
		return make(map[string]interface{})
	}
	newMd := make(map[string]interface{}, len(md))
	for k, v := range md {
		newMd[k] = v
	}
	return newMd
}

// splitOn splits text on the separator, dropping empty pieces. The empty
// separator splits the text into individual characters.
func splitOn(text, separator string) []string {
	var raw []string
	if separator == "" {
		raw = strings.Split(text, "")
	} else {
		raw = strings.Split(text, separator)
	}
	pieces := raw[:0]
	for _, p := range raw {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

func runeLen(s string) int {
	return len([]rune(s))
}

// compile-time check to ensure CharacterSplitter implements the Splitter interface
var _ interfaces.Splitter = (*CharacterSplitter)(nil)
