// Package assistant composes anonymization, retrieval, prompt construction,
// generation and deanonymization into one query-processing pipeline.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/LucassCPS/private-legal-assistant/internal/rag/schema"
	"github.com/LucassCPS/private-legal-assistant/internal/sensitive"
	"github.com/LucassCPS/private-legal-assistant/pkg/logger"
)

// ContextSeparator joins retrieved chunk contents into the context block.
const ContextSeparator = "\n\n---\n\n"

// User-facing messages for the two failure classes. Extraction failures get a
// distinct message because the query was never anonymized and must not be
// silently retried downstream.
const (
	MsgExtractionFailed = "Não foi possível processar sua pergunta com segurança. Por favor, reformule a pergunta e tente novamente."
	MsgProcessingFailed = "Ocorreu um erro ao processar sua consulta. Por favor, tente novamente."
)

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the conversation history. History is retained only
// in-process for the duration of a session and holds anonymized text, since
// it is rendered into later generation prompts.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// FailureKind classifies why a query could not be answered.
type FailureKind string

// Failure kinds surfaced in QueryResult.
const (
	// FailureNone means the query was answered.
	FailureNone FailureKind = ""
	// FailureExtraction means sensitive data extraction failed after all
	// retries. Retrieval and generation were never invoked.
	FailureExtraction FailureKind = "json_extraction_failed"
	// FailureProcessing means retrieval or generation failed.
	FailureProcessing FailureKind = "processing_failed"
)

// SourceRef identifies a retrieved chunk and its relevance score.
type SourceRef struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

// QueryResult bundles everything a caller needs for transparency and audit:
// the final answer, the anonymized query that actually left the trust
// boundary, the raw model response before deanonymization, and the
// replacement map (NoSensitiveData marks the empty case explicitly).
type QueryResult struct {
	FinalResponse   string                 `json:"final_response"`
	AnonymizedQuery string                 `json:"anonymized_query"`
	RawResponse     string                 `json:"raw_response"`
	Replacements    sensitive.Replacements `json:"replacements"`
	NoSensitiveData bool                   `json:"no_sensitive_data"`
	Sources         []SourceRef            `json:"sources,omitempty"`
	Failure         FailureKind            `json:"failure,omitempty"`
}

// SensitiveDataHandler is the anonymization capability the assistant depends on.
type SensitiveDataHandler interface {
	Anonymize(ctx context.Context, text string) (string, sensitive.Replacements, error)
	Deanonymize(text string, replacements sensitive.Replacements) string
}

// Retriever returns the topK chunks most relevant to a query.
type Retriever interface {
	Run(ctx context.Context, query string, topK int) ([]*schema.Document, error)
}

// Generator produces the answer text from a filled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LegalAssistant orchestrates the per-query pipeline:
// anonymize -> retrieve -> prompt -> generate -> deanonymize.
// All collaborators are injected at construction. The replacement map is
// local to each ProcessQuery call; the only cross-query state is the
// optional conversation history, so concurrent use requires external
// serialization when history retention is enabled.
type LegalAssistant struct {
	sensitive SensitiveDataHandler
	retriever Retriever
	model     Generator
	topK      int
	log       *logger.Logger

	retainHistory bool
	history       []Turn
}

// New creates a LegalAssistant. When retainHistory is true, each answered
// query appends the anonymized user turn and the raw assistant turn used by
// subsequent prompts.
func New(
	handler SensitiveDataHandler,
	retriever Retriever,
	model Generator,
	topK int,
	retainHistory bool,
	log *logger.Logger,
) *LegalAssistant {
	return &LegalAssistant{
		sensitive:     handler,
		retriever:     retriever,
		model:         model,
		topK:          topK,
		log:           log,
		retainHistory: retainHistory,
	}
}

// ProcessQuery runs the full pipeline for one query. It always returns a
// result; failures are reported through QueryResult.Failure with a
// user-facing message in FinalResponse, never by panicking or by letting the
// raw query proceed unanonymized.
func (a *LegalAssistant) ProcessQuery(ctx context.Context, query string) *QueryResult {
	a.log.Infof("Received query (%d chars)", len(query))

	anonymized, replacements, err := a.sensitive.Anonymize(ctx, query)
	if err != nil {
		var extractionErr *sensitive.JSONExtractionError
		// NoSensitiveData stays false: nothing was determined about the
		// query, detection itself is what failed.
		if errors.As(err, &extractionErr) {
			a.log.Errorf("Sensitive data extraction failed: %v", err)
			return &QueryResult{
				FinalResponse: MsgExtractionFailed,
				Failure:       FailureExtraction,
			}
		}
		a.log.Errorf("Anonymization failed: %v", err)
		return &QueryResult{
			FinalResponse: MsgProcessingFailed,
			Failure:       FailureProcessing,
		}
	}
	a.log.Infof("Anonymized query: %s", anonymized)

	result := &QueryResult{
		AnonymizedQuery: anonymized,
		Replacements:    replacements,
		NoSensitiveData: len(replacements) == 0,
	}

	docs, err := a.retriever.Run(ctx, anonymized, a.topK)
	if err != nil {
		a.log.Errorf("Error processing query: %v", err)
		result.FinalResponse = MsgProcessingFailed
		result.Failure = FailureProcessing
		return result
	}
	result.Sources = sourceRefs(docs)
	a.logUsedSources(docs)

	contents := make([]string, len(docs))
	for i, doc := range docs {
		contents[i] = doc.Text
	}
	contextBlock := strings.Join(contents, ContextSeparator)

	prompt := buildPrompt(contextBlock, a.history, anonymized)

	raw, err := a.model.Generate(ctx, prompt)
	if err != nil {
		a.log.Errorf("Error processing query: %v", err)
		result.FinalResponse = MsgProcessingFailed
		result.Failure = FailureProcessing
		return result
	}
	result.RawResponse = raw

	result.FinalResponse = a.sensitive.Deanonymize(raw, replacements)

	// History feeds later generation prompts, so it must hold only text that
	// already crossed the anonymization boundary: the anonymized query and
	// the raw model response, never the identified variants.
	if a.retainHistory {
		a.history = append(a.history,
			Turn{Role: RoleUser, Content: anonymized},
			Turn{Role: RoleAssistant, Content: result.RawResponse},
		)
	}

	return result
}

// History returns a copy of the retained conversation history.
func (a *LegalAssistant) History() []Turn {
	out := make([]Turn, len(a.history))
	copy(out, a.history)
	return out
}

// ResetHistory discards the retained conversation history.
func (a *LegalAssistant) ResetHistory() {
	a.history = nil
}

func sourceRefs(docs []*schema.Document) []SourceRef {
	refs := make([]SourceRef, len(docs))
	for i, doc := range docs {
		refs[i] = SourceRef{ID: doc.ID, Score: doc.Score()}
	}
	return refs
}

// logUsedSources logs the retrieved chunks sorted by score, highest first,
// with a short content preview for each.
func (a *LegalAssistant) logUsedSources(docs []*schema.Document) {
	sorted := make([]*schema.Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score() > sorted[j].Score()
	})

	var sb strings.Builder
	sb.WriteString("Fontes utilizadas:\n")
	for i, doc := range sorted {
		preview := truncate(strings.TrimSpace(doc.Text), 300)
		sb.WriteString(fmt.Sprintf("Fonte %d (ID: %s) score=%.4f\n%s\n", i+1, doc.ID, doc.Score(), preview))
	}
	a.log.Debug(sb.String())
}

// truncate shortens s to at most limit runes, never splitting a rune
// mid-sequence.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
