package vision

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultSystemPrompt is the instruction sent ahead of the user's prompt to
// the vision providers.
const DefaultSystemPrompt = `You are a helpful AI assistant that has access to the view that the user is looking at using Augmented Reality Glasses. The user is asking for help with the following image and text. Keep it short like under 30 words. Be a little funny and keep it positive.`

var (
	// ErrUnknownProvider is returned for a ProviderKind outside the known set.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrMissingContent is returned when an OpenAI reply has no
	// choices[0].message.content string. There is no fallback.
	ErrMissingContent = errors.New("openai response has no choices[0].message.content")
)

// ProviderKind tags which remote schema a request and its reply follow.
type ProviderKind int

const (
	OpenAIChat ProviderKind = iota + 1
	GeminiGenerate
	OrchestrationBackend
)

func (k ProviderKind) String() string {
	switch k {
	case OpenAIChat:
		return "OpenAI"
	case GeminiGenerate:
		return "Gemini"
	case OrchestrationBackend:
		return "Backend"
	default:
		return fmt.Sprintf("ProviderKind(%d)", int(k))
	}
}

// ParseProviderKind maps a configuration value to a ProviderKind.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai":
		return OpenAIChat, nil
	case "gemini":
		return GeminiGenerate, nil
	case "backend", "orchestrate":
		return OrchestrationBackend, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}

// RequiresImage reports whether the provider needs a frame for every query.
func (k ProviderKind) RequiresImage() bool {
	return k == OpenAIChat || k == GeminiGenerate
}

// RequiresKey reports whether the provider needs an API key.
func (k ProviderKind) RequiresKey() bool {
	return k == OpenAIChat || k == GeminiGenerate
}

// Endpoint is the static description of where and how to reach a provider.
type Endpoint struct {
	Kind         ProviderKind
	URL          string
	APIKey       string
	Model        string
	SystemPrompt string
}

type Location struct {
	Latitude  float64
	Longitude float64
}

// Query is everything one cycle sends to a provider. It is built fresh for
// each trigger and not modified afterwards.
type Query struct {
	Prompt string
	// Image is a base64 JPEG, empty when no frame was captured.
	Image    string
	Location *Location
	// History is the prior conversation rendered as plain text.
	History string
}

// Request is a fully built provider call.
type Request struct {
	Kind   ProviderKind
	Method string
	URL    string
	Header http.Header
	Body   []byte
	Model  string
}

// Result is the single canonical output of one cycle.
type Result struct {
	DisplayText string
	SpokenText  string
	Diagnostic  string
}
