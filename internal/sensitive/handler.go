// Package sensitive extracts personally identifiable information from free
// text using a generation model, replaces it with category-coded placeholders
// before the text leaves the trust boundary, and restores the originals in the
// final answer.
//
// The generation model is an unreliable oracle: its output is free text that
// usually, but not always, contains a JSON payload. All of the brittle
// bracket-scanning and retry policy lives behind Handler.Extract so the rest
// of the system only ever sees an ExtractionResult or a JSONExtractionError.
package sensitive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/LucassCPS/private-legal-assistant/internal/rag/interfaces"
	"github.com/LucassCPS/private-legal-assistant/pkg/logger"
)

// DefaultMaxRetries is the number of model calls attempted before extraction
// is declared failed.
const DefaultMaxRetries = 3

// Item is one detected piece of sensitive data. Category is an open-ended tag
// ("nome", "cpf", "telefone", ...); Value is the exact substring as it appears
// in the source text.
type Item struct {
	Category string `json:"categoria"`
	Value    string `json:"valor"`
}

// ExtractionResult is the outcome of a successful extraction. An empty Items
// slice is the valid "nothing found" result, distinct from an extraction
// failure.
type ExtractionResult struct {
	Items []Item
}

// Replacements maps a placeholder token ("[NOME]") to the original value it
// stands for. It is built fresh per query and lives for exactly one
// anonymize/deanonymize round trip.
type Replacements map[string]string

// JSONExtractionError reports that no valid JSON payload could be obtained
// from the model after exhausting all attempts. Callers must treat it as
// fatal for the query: the text has not been anonymized and must not be sent
// onward.
type JSONExtractionError struct {
	Attempts int
	LastErr  error
}

func (e *JSONExtractionError) Error() string {
	return fmt.Sprintf("unable to extract a valid JSON after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *JSONExtractionError) Unwrap() error {
	return e.LastErr
}

// docPrefix matches a leading document-type word on an extracted value, e.g.
// the "CPF " in "CPF 123.456.789-00". The extractor sometimes includes the
// word while the source text carries only the number, or vice versa.
var docPrefix = regexp.MustCompile(`(?i)\b(?:CPF|RG|CNH)\s+`)

// placeholderValues are strings some models emit for absent data despite the
// prompt forbidding them. They are never valid extraction values.
var placeholderValues = map[string]struct{}{
	"not provided":  {},
	"não informado": {},
	"não fornecido": {},
}

// Handler detects sensitive data in text and applies reversible placeholder
// substitution. It is stateless across queries apart from the model handle.
type Handler struct {
	model   interfaces.LLM
	retries int
	log     *logger.Logger
}

// NewHandler creates a Handler using the given anonymization model. A
// non-positive retries falls back to DefaultMaxRetries.
func NewHandler(model interfaces.LLM, retries int, log *logger.Logger) *Handler {
	if retries <= 0 {
		retries = DefaultMaxRetries
	}
	return &Handler{
		model:   model,
		retries: retries,
		log:     log,
	}
}

// Extract asks the model to list the sensitive data present in text and
// parses its response. Malformed responses are retried with the same prompt;
// model nondeterminism is the only jitter source. After exhausting the
// attempt budget a *JSONExtractionError is returned.
func (h *Handler) Extract(ctx context.Context, text string) (*ExtractionResult, error) {
	prompt := buildExtractionPrompt(text)

	var lastErr error
	for attempt := 1; attempt <= h.retries; attempt++ {
		h.log.Infof("Attempting to extract sensitive data [attempt %d/%d]", attempt, h.retries)

		response, err := h.model.Generate(ctx, prompt)
		if err != nil {
			lastErr = err
			h.log.Warnf("Attempt %d failed: %v", attempt, err)
			continue
		}

		payload := extractJSONString(response)
		if payload == "" {
			lastErr = fmt.Errorf("no JSON payload found in the model response")
			h.log.Warnf("Attempt %d failed: %v", attempt, lastErr)
			continue
		}

		result, err := parsePayload(payload)
		if err != nil {
			lastErr = err
			h.log.Warnf("Attempt %d failed: %v", attempt, err)
			continue
		}

		h.log.Infof("Extracted %d sensitive data item(s)", len(result.Items))
		return result, nil
	}

	h.log.Error("All attempts to extract a valid JSON have failed")
	return nil, &JSONExtractionError{Attempts: h.retries, LastErr: lastErr}
}

// Anonymize extracts the sensitive data in text and replaces every occurrence
// of each detected value with a "[CATEGORY]" placeholder. It returns the
// substituted text together with the replacement map needed to reverse it.
//
// An extraction failure is fatal and propagates. A failure while applying
// replacements is not: the original text is returned unchanged, along with
// whatever partial map was built, and the query may proceed.
func (h *Handler) Anonymize(ctx context.Context, text string) (string, Replacements, error) {
	extraction, err := h.Extract(ctx, text)
	if err != nil {
		return "", nil, err
	}

	replacements := make(Replacements)
	result := text

	for _, item := range extraction.Items {
		value := strings.TrimSpace(item.Value)
		if value == "" {
			continue
		}
		if _, isPlaceholder := placeholderValues[strings.ToLower(value)]; isPlaceholder {
			continue
		}

		placeholder := "[" + strings.ToUpper(item.Category) + "]"
		// Later items of the same category overwrite the map entry, but
		// substitutions already applied to the text are kept.
		replacements[placeholder] = value

		substituted, err := replaceAllInsensitive(result, value, placeholder)
		if err != nil {
			h.log.Errorf("Failed to anonymize text: %v", err)
			return text, replacements, nil
		}
		result = substituted

		// Tolerate the extractor returning "CPF 123.456.789-00" while the
		// text carries only the bare number, and vice versa.
		cleaned := docPrefix.ReplaceAllString(value, "")
		if cleaned != value {
			substituted, err := replaceAllInsensitive(result, cleaned, placeholder)
			if err != nil {
				h.log.Errorf("Failed to anonymize text: %v", err)
				return text, replacements, nil
			}
			result = substituted
		}
	}

	return result, replacements, nil
}

// Deanonymize restores the original values for every placeholder in the map.
// Placeholder tokens are category-namespaced and cannot collide, so the order
// of application is not significant. Placeholders the generation model altered
// or dropped stay as literal text in the result.
func (h *Handler) Deanonymize(text string, replacements Replacements) string {
	for placeholder, original := range replacements {
		text = strings.ReplaceAll(text, placeholder, original)
	}
	return text
}

func buildExtractionPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString(extractionPrompt)
	sb.WriteString("\n# Texto do usuário\n")
	sb.WriteString(text)
	return sb.String()
}

// extractJSONString isolates the candidate JSON payload between the first '{'
// and the last '}' of the response, falling back to '[' and ']' when no braces
// are present. Non-printable characters are stripped, except newline, tab and
// carriage return, to tolerate model artifacts. Returns "" when no payload
// delimiters are found.
func extractJSONString(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		start = strings.Index(text, "[")
		end = strings.LastIndex(text, "]")
	}
	if start == -1 || end == -1 || end < start {
		return ""
	}

	candidate := text[start : end+1]
	var sb strings.Builder
	sb.Grow(len(candidate))
	for _, r := range candidate {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// parsePayload parses the isolated JSON payload. The payload is either an
// object with a "dados" array or, when the model skipped the wrapper, a bare
// array of items. A missing or empty "dados" key is a valid empty result.
// Items that are not objects, or lack a usable category or value, are skipped
// without failing the batch.
func parsePayload(payload string) (*ExtractionResult, error) {
	trimmed := strings.TrimSpace(payload)

	var rawItems []json.RawMessage
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &rawItems); err != nil {
			return nil, fmt.Errorf("failed to parse JSON payload: %w", err)
		}
	} else {
		var wrapper struct {
			Dados []json.RawMessage `json:"dados"`
		}
		if err := json.Unmarshal([]byte(trimmed), &wrapper); err != nil {
			return nil, fmt.Errorf("failed to parse JSON payload: %w", err)
		}
		rawItems = wrapper.Dados
	}

	result := &ExtractionResult{}
	for _, raw := range rawItems {
		if item, ok := parseItem(raw); ok {
			result.Items = append(result.Items, item)
		}
	}
	return result, nil
}

// parseItem decodes a single extraction item, coercing numeric values to
// their literal string form. ok is false for malformed items.
func parseItem(raw json.RawMessage) (Item, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return Item{}, false
	}

	category, ok := fields["categoria"].(string)
	if !ok || category == "" {
		return Item{}, false
	}

	var value string
	switch v := fields["valor"].(type) {
	case string:
		value = v
	case json.Number:
		value = v.String()
	default:
		return Item{}, false
	}

	return Item{Category: category, Value: value}, true
}

// replaceAllInsensitive replaces every occurrence of value in text with
// replacement, ignoring case. The value is matched literally.
func replaceAllInsensitive(text, value, replacement string) (string, error) {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(value))
	if err != nil {
		return "", fmt.Errorf("failed to compile replacement pattern for %q: %w", value, err)
	}
	return re.ReplaceAllLiteralString(text, replacement), nil
}
