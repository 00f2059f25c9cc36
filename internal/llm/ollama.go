package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	olla "github.com/ollama/ollama/api"

	"github.com/LucassCPS/private-legal-assistant/internal/rag/interfaces"
)

// Options configures an Ollama client.
type Options struct {
	// Temperature controls sampling randomness; zero keeps the server default.
	Temperature float64
	// NumCtx sets the context window size; zero keeps the server default.
	NumCtx int
	// Timeout bounds each HTTP request to the server; zero means no timeout.
	Timeout time.Duration
}

// Ollama is an LLM client backed by an Ollama server.
type Ollama struct {
	client  *olla.Client
	model   string
	options map[string]interface{}
}

// NewOllama creates a client for the given model. An empty baseURL defaults
// to "http://localhost:11434".
func NewOllama(model, baseURL string, opts Options) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	hc := &http.Client{Timeout: opts.Timeout}

	options := make(map[string]interface{})
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}
	if opts.NumCtx > 0 {
		options["num_ctx"] = opts.NumCtx
	}

	return &Ollama{
		client:  olla.NewClient(parsedURL, hc),
		model:   model,
		options: options,
	}, nil
}

// Generate sends the prompt to the model and returns the full response text.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	var result string
	err := o.client.Generate(ctx, &olla.GenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  &[]bool{false}[0],
		Options: o.options,
	}, func(resp olla.GenerateResponse) error {
		result = resp.Response
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content with ollama: %w", err)
	}
	return result, nil
}

// GenerateStream sends the prompt to the model and streams the response as a
// finite sequence of text fragments. The channel is closed when generation
// finishes or the context is cancelled.
func (o *Ollama) GenerateStream(ctx context.Context, prompt string) (<-chan string, error) {
	respChan := make(chan string)

	go func() {
		defer close(respChan)
		_ = o.client.Generate(ctx, &olla.GenerateRequest{
			Model:   o.model,
			Prompt:  prompt,
			Stream:  &[]bool{true}[0],
			Options: o.options,
		}, func(resp olla.GenerateResponse) error {
			select {
			case respChan <- resp.Response:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	return respChan, nil
}

// compile-time check to ensure Ollama implements the StreamingLLM interface
var _ interfaces.StreamingLLM = (*Ollama)(nil)
