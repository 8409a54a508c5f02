package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.0-flash"
	temperature  = 0.2
	maxTokens    = 256
)

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Backend completes summarization prompts through the Gemini API.
type Backend struct {
	models generator
	model  string
}

// New creates a Backend. baseURL may be empty to use the public endpoint.
func New(ctx context.Context, apiKey, baseURL, model string) (*Backend, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return newWithGenerator(client.Models, model), nil
}

func newWithGenerator(g generator, model string) *Backend {
	if model == "" {
		model = DefaultModel
	}
	return &Backend{models: g, model: model}
}

func (b *Backend) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.models.GenerateContent(ctx, b.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](temperature),
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
