package vision

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequestOpenAI(t *testing.T) {
	ep := Endpoint{
		Kind:         OpenAIChat,
		URL:          "https://api.openai.com/v1/chat/completions",
		APIKey:       "sk-test",
		Model:        "gpt-4o-mini",
		SystemPrompt: "Be brief.",
	}

	req, err := BuildRequest(ep, Query{Prompt: "what is this?", Image: "QUJD"})
	require.NoError(t, err)

	assert.Equal(t, OpenAIChat, req.Kind)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, ep.URL, req.URL)
	assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.JSONEq(t, `{
		"model": "gpt-4o-mini",
		"messages": [
			{"role": "system", "content": "Be brief."},
			{"role": "user", "content": [
				{"type": "text", "text": "what is this?"},
				{"type": "image_url", "image_url": {"url": "data:image/jpeg;base64,QUJD"}}
			]}
		]
	}`, string(req.Body))
}

func TestBuildRequestOpenAIIncludesHistory(t *testing.T) {
	ep := Endpoint{Kind: OpenAIChat, URL: "http://x", APIKey: "k", Model: "m", SystemPrompt: "Be brief."}

	req, err := BuildRequest(ep, Query{Prompt: "and now?", Image: "QQ==", History: "User: hi\nAssistant: hello"})
	require.NoError(t, err)

	var body openAIRequest
	require.NoError(t, json.Unmarshal(req.Body, &body))
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "Be brief.\n\nConversation so far:\nUser: hi\nAssistant: hello", body.Messages[0].Content)
}

func TestBuildRequestOpenAIDoesNotEscapeHTML(t *testing.T) {
	ep := Endpoint{Kind: OpenAIChat, URL: "http://x", APIKey: "k", Model: "m"}

	req, err := BuildRequest(ep, Query{Prompt: "is 3 < 4 & 5 > 2?"})
	require.NoError(t, err)
	assert.Contains(t, string(req.Body), `"is 3 < 4 & 5 > 2?"`)
}

func TestBuildRequestGemini(t *testing.T) {
	ep := Endpoint{
		Kind:         GeminiGenerate,
		URL:          "https://generativelanguage.googleapis.com/",
		APIKey:       "g key",
		Model:        "gemini-1.5-flash",
		SystemPrompt: "Be brief.",
	}

	req, err := BuildRequest(ep, Query{Prompt: "describe this", Image: "QUJD"})
	require.NoError(t, err)

	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent?key=g+key", req.URL)
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.JSONEq(t, `{
		"contents": [{"parts": [
			{"text": "Be brief."},
			{"text": "describe this"},
			{"inline_data": {"mime_type": "image/jpeg", "data": "QUJD"}}
		]}],
		"generationConfig": {"temperature": 0.4, "maxOutputTokens": 1024},
		"safetySettings": [
			{"category": "HARM_CATEGORY_HARASSMENT", "threshold": "BLOCK_MEDIUM_AND_ABOVE"},
			{"category": "HARM_CATEGORY_HATE_SPEECH", "threshold": "BLOCK_MEDIUM_AND_ABOVE"},
			{"category": "HARM_CATEGORY_SEXUALLY_EXPLICIT", "threshold": "BLOCK_MEDIUM_AND_ABOVE"},
			{"category": "HARM_CATEGORY_DANGEROUS_CONTENT", "threshold": "BLOCK_MEDIUM_AND_ABOVE"}
		]
	}`, string(req.Body))
}

func TestBuildRequestBackend(t *testing.T) {
	ep := Endpoint{Kind: OrchestrationBackend, URL: "https://backend.example/"}

	req, err := BuildRequest(ep, Query{
		Prompt:   "where is the nearest pharmacy?",
		Image:    "QUJD",
		Location: &Location{Latitude: 34.05, Longitude: -118.25},
		History:  "User: hi\nAssistant: hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://backend.example/api/orchestrate", req.URL)
	assert.JSONEq(t, `{
		"user_prompt": "where is the nearest pharmacy?",
		"latitude": 34.05,
		"longitude": -118.25,
		"image_surroundings": "QUJD",
		"chat_history": "User: hi\nAssistant: hello"
	}`, string(req.Body))
}

func TestBuildRequestBackendWithoutLocationOrImage(t *testing.T) {
	req, err := BuildRequest(Endpoint{Kind: OrchestrationBackend, URL: "http://b"}, Query{Prompt: "hello"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"user_prompt":"hello","latitude":0,"longitude":0,"image_surroundings":"","chat_history":""}`, string(req.Body))
}

func TestBuildRequestUnknownProvider(t *testing.T) {
	_, err := BuildRequest(Endpoint{Kind: ProviderKind(42)}, Query{Prompt: "x"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestParseProviderKind(t *testing.T) {
	tests := []struct {
		in       string
		expected ProviderKind
		wantErr  bool
	}{
		{in: "openai", expected: OpenAIChat},
		{in: "Gemini", expected: GeminiGenerate},
		{in: " backend ", expected: OrchestrationBackend},
		{in: "orchestrate", expected: OrchestrationBackend},
		{in: "claude", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			kind, err := ParseProviderKind(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}
}
