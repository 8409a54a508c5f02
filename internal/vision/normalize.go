package vision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Normalize turns a raw provider reply into a Result. The Gemini and backend
// shapes degrade through fixed fallbacks and never fail; the OpenAI shape
// fails with ErrMissingContent when the expected field is absent.
func Normalize(req *Request, raw []byte) (*Result, error) {
	var text string
	switch req.Kind {
	case OpenAIChat:
		t, err := openAIText(raw)
		if err != nil {
			return nil, err
		}
		text = t
	case GeminiGenerate:
		text = geminiText(raw)
	case OrchestrationBackend:
		text = backendText(raw)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownProvider, req.Kind)
	}

	return &Result{
		DisplayText: text,
		SpokenText:  text,
		Diagnostic:  Diagnostic(req),
	}, nil
}

// Diagnostic describes the request that produced a result.
func Diagnostic(req *Request) string {
	var b strings.Builder
	b.WriteString("Analysis complete\n\n")
	fmt.Fprintf(&b, "Provider: %s\n", req.Kind)
	if req.Model != "" {
		fmt.Fprintf(&b, "Model: %s\n", req.Model)
	}
	fmt.Fprintf(&b, "Estimated tokens: ~%d", EstimateTokens(req.Body))
	return b.String()
}

// EstimateTokens approximates the token count of a payload as len/4. It is a
// rough heuristic, not a tokenizer.
func EstimateTokens(payload []byte) int {
	return len(payload) / 4
}

func openAIText(raw []byte) (string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content *string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingContent, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return "", ErrMissingContent
	}
	return *resp.Choices[0].Message.Content, nil
}

// geminiText tries candidates[0].content.parts[0].text, then
// candidates[0].content as a plain string, then the whole body.
func geminiText(raw []byte) string {
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if s, ok := dig(body, "candidates", 0, "content", "parts", 0, "text").(string); ok {
		return s
	}
	if s, ok := dig(body, "candidates", 0, "content").(string); ok {
		return s
	}
	return compact(raw)
}

// backendText tries a top-level "response" field, then a body that is itself
// a string, then the whole body.
func backendText(raw []byte) string {
	if !json.Valid(raw) {
		return strings.TrimSpace(string(raw))
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if field, ok := obj["response"]; ok && string(field) != "null" {
			var s string
			if err := json.Unmarshal(field, &s); err == nil {
				return s
			}
			return compact(field)
		}
	}

	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return compact(raw)
}

// dig walks decoded JSON along path, where string elements index objects and
// int elements index arrays. It returns nil when any step is missing.
func dig(v any, path ...any) any {
	for _, step := range path {
		switch key := step.(type) {
		case string:
			obj, ok := v.(map[string]any)
			if !ok {
				return nil
			}
			v = obj[key]
		case int:
			arr, ok := v.([]any)
			if !ok || key < 0 || key >= len(arr) {
				return nil
			}
			v = arr[key]
		default:
			return nil
		}
	}
	return v
}

func compact(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return buf.String()
}
