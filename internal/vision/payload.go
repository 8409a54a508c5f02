package vision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	// orchestratePath is appended to the backend base URL.
	orchestratePath = "/api/orchestrate"

	geminiTemperature     = 0.4
	geminiMaxOutputTokens = 1024
	geminiThreshold       = "BLOCK_MEDIUM_AND_ABOVE"
)

var geminiSafetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// OpenAI chat completions request types.
type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role string `json:"role"`
	// Content is a string for system messages and []openAIPart for user messages.
	Content any `json:"content"`
}

type openAIPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

// Gemini generateContent request types.
type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
	SafetySettings   []geminiSafetySetting  `json:"safetySettings"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// backendRequest mirrors the orchestration backend's /api/orchestrate body.
type backendRequest struct {
	UserPrompt        string  `json:"user_prompt"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	ImageSurroundings string  `json:"image_surroundings"`
	ChatHistory       string  `json:"chat_history"`
}

// BuildRequest assembles the provider-specific call for q.
func BuildRequest(ep Endpoint, q Query) (*Request, error) {
	var (
		target string
		body   any
		header = http.Header{}
	)
	header.Set("Content-Type", "application/json")

	switch ep.Kind {
	case OpenAIChat:
		target = ep.URL
		header.Set("Authorization", "Bearer "+ep.APIKey)
		body = buildOpenAI(ep, q)
	case GeminiGenerate:
		target = fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
			strings.TrimRight(ep.URL, "/"), url.PathEscape(ep.Model), url.QueryEscape(ep.APIKey))
		body = buildGemini(ep, q)
	case OrchestrationBackend:
		target = strings.TrimRight(ep.URL, "/") + orchestratePath
		body = buildBackend(q)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownProvider, ep.Kind)
	}

	payload, err := encodeJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", ep.Kind, err)
	}

	return &Request{
		Kind:   ep.Kind,
		Method: http.MethodPost,
		URL:    target,
		Header: header,
		Body:   payload,
		Model:  ep.Model,
	}, nil
}

func buildOpenAI(ep Endpoint, q Query) openAIRequest {
	parts := []openAIPart{{Type: "text", Text: q.Prompt}}
	if q.Image != "" {
		parts = append(parts, openAIPart{
			Type:     "image_url",
			ImageURL: &openAIImageURL{URL: "data:image/jpeg;base64," + q.Image},
		})
	}

	messages := make([]openAIMessage, 0, 2)
	if system := instruction(ep.SystemPrompt, q.History); system != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: system})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: parts})

	return openAIRequest{Model: ep.Model, Messages: messages}
}

func buildGemini(ep Endpoint, q Query) geminiRequest {
	parts := make([]geminiPart, 0, 3)
	if text := instruction(ep.SystemPrompt, q.History); text != "" {
		parts = append(parts, geminiPart{Text: text})
	}
	parts = append(parts, geminiPart{Text: q.Prompt})
	if q.Image != "" {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: JPEGMIMEType, Data: q.Image}})
	}

	safety := make([]geminiSafetySetting, len(geminiSafetyCategories))
	for i, c := range geminiSafetyCategories {
		safety[i] = geminiSafetySetting{Category: c, Threshold: geminiThreshold}
	}

	return geminiRequest{
		Contents: []geminiContent{{Parts: parts}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     geminiTemperature,
			MaxOutputTokens: geminiMaxOutputTokens,
		},
		SafetySettings: safety,
	}
}

func buildBackend(q Query) backendRequest {
	req := backendRequest{
		UserPrompt:        q.Prompt,
		ImageSurroundings: q.Image,
		ChatHistory:       q.History,
	}
	if q.Location != nil {
		req.Latitude = q.Location.Latitude
		req.Longitude = q.Location.Longitude
	}
	return req
}

// instruction joins the system prompt with the conversation so far.
func instruction(systemPrompt, history string) string {
	systemPrompt = strings.TrimSpace(systemPrompt)
	if strings.TrimSpace(history) == "" {
		return systemPrompt
	}
	if systemPrompt == "" {
		return "Conversation so far:\n" + history
	}
	return systemPrompt + "\n\nConversation so far:\n" + history
}

// encodeJSON marshals v without HTML escaping so prompts reach the provider
// byte for byte.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
