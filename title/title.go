// Package title names conversations from their first message. The generator
// is a black-box collaborator with its own timeout; any failure is handled
// by the caller's local fallback rule and never reaches the user.
package title

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// DefaultTimeout bounds one title request. Title generation runs alongside
// the main response stream and must never delay it.
const DefaultTimeout = 10 * time.Second

const prompt = "Reply with a short title (at most five words, no quotes, no punctuation at the end) for a conversation that starts with this message:\n\n"

// Generator produces a conversation title from the first user message.
type Generator interface {
	GenerateTitle(ctx context.Context, firstMessage string) (string, error)
}

// OllamaGenerator asks a local Ollama model for a title.
type OllamaGenerator struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// NewOllamaGenerator creates a generator against an Ollama server.
func NewOllamaGenerator(baseURL, model string) (*OllamaGenerator, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1:latest"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &OllamaGenerator{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		model:   model,
		timeout: DefaultTimeout,
	}, nil
}

// GenerateTitle implements Generator.
func (g *OllamaGenerator) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	stream := false
	req := &api.GenerateRequest{
		Model:  g.model,
		Prompt: prompt + firstMessage,
		Stream: &stream,
	}

	var reply strings.Builder
	err := g.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		reply.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("title generation failed: %w", err)
	}

	title := sanitize(reply.String())
	if title == "" {
		return "", fmt.Errorf("title generation returned empty response")
	}
	return title, nil
}

// sanitize collapses the model reply to a single trimmed line without
// surrounding quotes.
func sanitize(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
