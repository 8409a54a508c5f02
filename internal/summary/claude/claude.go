package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

const (
	DefaultModel = "claude-3-5-haiku-latest"
	maxTokens    = 256
)

type messenger interface {
	CreateMessages(ctx context.Context, req anthropic.MessagesRequest) (anthropic.MessagesResponse, error)
}

// Backend completes summarization prompts with the Anthropic Messages API.
type Backend struct {
	client messenger
	model  string
}

// New creates a Backend. baseURL overrides the API root (including /v1) when
// non-empty.
func New(apiKey, baseURL, model string) *Backend {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	if model == "" {
		model = DefaultModel
	}
	return &Backend{client: anthropic.NewClient(apiKey, opts...), model: model}
}

func (b *Backend) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(b.model),
		MaxTokens: maxTokens,
		Messages:  []anthropic.Message{anthropic.NewUserTextMessage(prompt)},
	})
	if err != nil {
		return "", fmt.Errorf("claude create message: %w", err)
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText {
			sb.WriteString(c.GetText())
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
