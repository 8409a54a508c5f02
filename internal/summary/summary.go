package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// instructionTemplate asks for a handful of short bullets about a response.
const instructionTemplate = `Summarize the following assistant response for a small heads-up display.

Return ONLY 3 to 5 bullet points.

Format requirements:
- Start each bullet with '*'
- Each bullet must be 5-10 words maximum
- No introduction, explanation, or conclusion text
- No quotation marks around bullets

Response:
%s`

const (
	summaryHeader = "Summary:"
	delimiter     = "\n\n--- Summary ---\n"
)

// Backend performs the secondary completion call.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Summary is the outcome of Summarize. An empty SummaryOnly means no summary
// is available and callers should use FullText.
type Summary struct {
	FullText    string
	SummaryOnly string
}

// Augmenter adds bullet-point summaries to responses. A nil Augmenter or one
// without a backend is disabled and returns text unchanged.
type Augmenter struct {
	backend Backend
	logger  *slog.Logger
}

func New(backend Backend, logger *slog.Logger) *Augmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Augmenter{backend: backend, logger: logger}
}

// Prompt returns the summarization instruction for text.
func Prompt(text string) string {
	return fmt.Sprintf(instructionTemplate, text)
}

// Summarize never fails: any problem degrades to the original text.
func (a *Augmenter) Summarize(ctx context.Context, text string) Summary {
	unchanged := Summary{FullText: text}
	if a == nil || a.backend == nil {
		return unchanged
	}

	reply, err := a.backend.Complete(ctx, Prompt(text))
	if err != nil {
		a.logger.Warn("summarization failed, using full response", "error", err)
		return unchanged
	}

	bullets := strings.TrimSpace(reply)
	if bullets == "" {
		a.logger.Warn("summarization returned no text, using full response")
		return unchanged
	}

	return Summary{
		FullText:    text + delimiter + bullets,
		SummaryOnly: summaryHeader + "\n" + bullets,
	}
}
