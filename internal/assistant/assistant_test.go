package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LucassCPS/private-legal-assistant/internal/rag/schema"
	"github.com/LucassCPS/private-legal-assistant/internal/sensitive"
	"github.com/LucassCPS/private-legal-assistant/pkg/logger"
)

type stubHandler struct {
	anonymized   string
	replacements sensitive.Replacements
	err          error
}

func (s *stubHandler) Anonymize(ctx context.Context, text string) (string, sensitive.Replacements, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	if s.anonymized == "" {
		return text, s.replacements, nil
	}
	return s.anonymized, s.replacements, nil
}

func (s *stubHandler) Deanonymize(text string, replacements sensitive.Replacements) string {
	for placeholder, original := range replacements {
		text = strings.ReplaceAll(text, placeholder, original)
	}
	return text
}

type stubRetriever struct {
	docs  []*schema.Document
	err   error
	calls int
}

func (s *stubRetriever) Run(ctx context.Context, query string, topK int) ([]*schema.Document, error) {
	s.calls++
	return s.docs, s.err
}

type stubGenerator struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func chunk(id, text string, score float32) *schema.Document {
	return &schema.Document{
		ID:   id,
		Text: text,
		Metadata: map[string]interface{}{
			schema.MetadataKeyScore: score,
		},
	}
}

func newAssistant(h *stubHandler, r *stubRetriever, g *stubGenerator, retainHistory bool) *LegalAssistant {
	return New(h, r, g, 5, retainHistory, logger.New("assistant-test"))
}

func TestProcessQueryHappyPath(t *testing.T) {
	handler := &stubHandler{
		anonymized:   "Meu nome é [NOME], como registro um imóvel?",
		replacements: sensitive.Replacements{"[NOME]": "João Silva"},
	}
	retriever := &stubRetriever{docs: []*schema.Document{
		chunk("lei.pdf:1:0", "Artigo 1 sobre registro.", 0.91),
		chunk("lei.pdf:2:0", "Artigo 2 sobre cartórios.", 0.85),
	}}
	generator := &stubGenerator{response: "Olá [NOME], leve seus documentos ao cartório."}

	a := newAssistant(handler, retriever, generator, false)
	result := a.ProcessQuery(context.Background(), "Meu nome é João Silva, como registro um imóvel?")

	assert.Equal(t, FailureNone, result.Failure)
	assert.Equal(t, "Olá João Silva, leve seus documentos ao cartório.", result.FinalResponse)
	assert.Equal(t, "Olá [NOME], leve seus documentos ao cartório.", result.RawResponse)
	assert.Equal(t, handler.anonymized, result.AnonymizedQuery)
	assert.False(t, result.NoSensitiveData)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "lei.pdf:1:0", result.Sources[0].ID)

	// The prompt must carry the context block (store order, fixed separator)
	// and the anonymized question, never the raw one.
	require.Len(t, generator.prompts, 1)
	prompt := generator.prompts[0]
	assert.Contains(t, prompt, "Artigo 1 sobre registro."+ContextSeparator+"Artigo 2 sobre cartórios.")
	assert.Contains(t, prompt, handler.anonymized)
	assert.NotContains(t, prompt, "João Silva")
}

func TestProcessQueryExtractionFailureSkipsPipeline(t *testing.T) {
	handler := &stubHandler{err: &sensitive.JSONExtractionError{Attempts: 3, LastErr: errors.New("no JSON")}}
	retriever := &stubRetriever{}
	generator := &stubGenerator{}

	a := newAssistant(handler, retriever, generator, false)
	result := a.ProcessQuery(context.Background(), "Meu nome é João Silva")

	assert.Equal(t, FailureExtraction, result.Failure)
	assert.Equal(t, MsgExtractionFailed, result.FinalResponse)
	// Detection failed, so the result must not claim the query was clean.
	assert.False(t, result.NoSensitiveData)
	// No PII-bearing text may reach retrieval or generation.
	assert.Equal(t, 0, retriever.calls)
	assert.Equal(t, 0, generator.calls)
}

func TestProcessQueryAnonymizationFailure(t *testing.T) {
	handler := &stubHandler{err: errors.New("model unreachable")}
	retriever := &stubRetriever{}
	generator := &stubGenerator{}

	a := newAssistant(handler, retriever, generator, false)
	result := a.ProcessQuery(context.Background(), "Meu nome é João Silva")

	assert.Equal(t, FailureProcessing, result.Failure)
	assert.Equal(t, MsgProcessingFailed, result.FinalResponse)
	assert.False(t, result.NoSensitiveData)
	assert.Equal(t, 0, retriever.calls)
	assert.Equal(t, 0, generator.calls)
}

func TestProcessQueryRetrievalFailure(t *testing.T) {
	handler := &stubHandler{replacements: sensitive.Replacements{}}
	retriever := &stubRetriever{err: errors.New("store unavailable")}
	generator := &stubGenerator{}

	a := newAssistant(handler, retriever, generator, false)
	result := a.ProcessQuery(context.Background(), "pergunta qualquer")

	assert.Equal(t, FailureProcessing, result.Failure)
	assert.Equal(t, MsgProcessingFailed, result.FinalResponse)
	assert.Equal(t, 0, generator.calls)
}

func TestProcessQueryGenerationFailure(t *testing.T) {
	handler := &stubHandler{replacements: sensitive.Replacements{}}
	retriever := &stubRetriever{docs: []*schema.Document{chunk("a.pdf:1:0", "contexto", 0.5)}}
	generator := &stubGenerator{err: errors.New("model down")}

	a := newAssistant(handler, retriever, generator, false)
	result := a.ProcessQuery(context.Background(), "pergunta qualquer")

	assert.Equal(t, FailureProcessing, result.Failure)
	assert.Equal(t, MsgProcessingFailed, result.FinalResponse)
	assert.Equal(t, 1, retriever.calls)
}

func TestProcessQueryNoSensitiveDataMarker(t *testing.T) {
	handler := &stubHandler{replacements: sensitive.Replacements{}}
	retriever := &stubRetriever{docs: []*schema.Document{chunk("a.pdf:1:0", "contexto", 0.5)}}
	generator := &stubGenerator{response: "resposta"}

	a := newAssistant(handler, retriever, generator, false)
	result := a.ProcessQuery(context.Background(), "pergunta sem dados pessoais")

	assert.Equal(t, FailureNone, result.Failure)
	assert.True(t, result.NoSensitiveData)
	assert.Empty(t, result.Replacements)
}

func TestProcessQueryRetainsHistory(t *testing.T) {
	handler := &stubHandler{replacements: sensitive.Replacements{}}
	retriever := &stubRetriever{docs: []*schema.Document{chunk("a.pdf:1:0", "contexto", 0.5)}}
	generator := &stubGenerator{response: "primeira resposta"}

	a := newAssistant(handler, retriever, generator, true)

	a.ProcessQuery(context.Background(), "primeira pergunta")
	require.Len(t, a.History(), 2)

	generator.response = "segunda resposta"
	a.ProcessQuery(context.Background(), "segunda pergunta")

	require.Len(t, generator.prompts, 2)
	second := generator.prompts[1]
	assert.Contains(t, second, "Usuário: primeira pergunta")
	assert.Contains(t, second, "Assistente: primeira resposta")

	a.ResetHistory()
	assert.Empty(t, a.History())
}

func TestProcessQueryHistoryHoldsOnlyAnonymizedText(t *testing.T) {
	handler := &stubHandler{
		anonymized:   "Meu nome é [NOME], como registro um imóvel?",
		replacements: sensitive.Replacements{"[NOME]": "João Silva"},
	}
	retriever := &stubRetriever{docs: []*schema.Document{chunk("lei.pdf:1:0", "contexto", 0.9)}}
	generator := &stubGenerator{response: "Olá [NOME], leve seus documentos ao cartório."}

	a := newAssistant(handler, retriever, generator, true)

	first := a.ProcessQuery(context.Background(), "Meu nome é João Silva, como registro um imóvel?")
	assert.Equal(t, "Olá João Silva, leve seus documentos ao cartório.", first.FinalResponse)

	// Retained turns are the anonymized query and the raw model response.
	history := a.History()
	require.Len(t, history, 2)
	assert.Equal(t, "Meu nome é [NOME], como registro um imóvel?", history[0].Content)
	assert.Equal(t, "Olá [NOME], leve seus documentos ao cartório.", history[1].Content)

	a.ProcessQuery(context.Background(), "qual o próximo passo?")

	// PII from the first query must not reach the second generation prompt.
	require.Len(t, generator.prompts, 2)
	second := generator.prompts[1]
	assert.Contains(t, second, "Usuário: Meu nome é [NOME], como registro um imóvel?")
	assert.Contains(t, second, "Assistente: Olá [NOME], leve seus documentos ao cartório.")
	assert.NotContains(t, second, "João Silva")
}

func TestProcessQueryNoHistoryWhenDisabled(t *testing.T) {
	handler := &stubHandler{replacements: sensitive.Replacements{}}
	retriever := &stubRetriever{docs: []*schema.Document{chunk("a.pdf:1:0", "contexto", 0.5)}}
	generator := &stubGenerator{response: "resposta"}

	a := newAssistant(handler, retriever, generator, false)
	a.ProcessQuery(context.Background(), "pergunta")

	assert.Empty(t, a.History())
}

func TestProcessQueryFailedQueriesLeaveNoHistory(t *testing.T) {
	handler := &stubHandler{err: &sensitive.JSONExtractionError{Attempts: 3}}
	a := newAssistant(handler, &stubRetriever{}, &stubGenerator{}, true)

	a.ProcessQuery(context.Background(), "pergunta")
	assert.Empty(t, a.History())
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	long := strings.Repeat("ação", 100)
	got := truncate(long, 300)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, string([]rune(long)[:300])+"...", got)

	assert.Equal(t, "curto", truncate("curto", 300))
}

func TestRenderHistory(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Content: "Oi"},
		{Role: RoleAssistant, Content: "Olá, como posso ajudar?"},
	}
	assert.Equal(t, "Usuário: Oi\nAssistente: Olá, como posso ajudar?", renderHistory(history))
	assert.Equal(t, "", renderHistory(nil))
}

func TestBuildPromptFillsAllSlots(t *testing.T) {
	prompt := buildPrompt("bloco de contexto", []Turn{{Role: RoleUser, Content: "oi"}}, "minha pergunta")
	assert.Contains(t, prompt, "bloco de contexto")
	assert.Contains(t, prompt, "Usuário: oi")
	assert.Contains(t, prompt, "Pergunta: minha pergunta")
}
