package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/vbonduro/lensquery/internal/vision"
)

// Summary backends accepted in SUMMARY_BACKEND. Empty disables summaries.
const (
	SummaryNone   = ""
	SummaryGemini = "gemini"
	SummaryClaude = "claude"
)

type Config struct {
	Provider string `envconfig:"PROVIDER" default:"gemini"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	OpenAIURL    string `envconfig:"OPENAI_URL" default:"https://api.openai.com/v1/chat/completions"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiURL    string `envconfig:"GEMINI_URL" default:"https://generativelanguage.googleapis.com"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	BackendURL string `envconfig:"BACKEND_URL" default:"http://localhost:8000"`

	SystemPrompt   string        `envconfig:"SYSTEM_PROMPT"`
	HistoryMax     int           `envconfig:"HISTORY_MAX" default:"10"`
	WrapWidth      int           `envconfig:"WRAP_WIDTH" default:"40"`
	JPEGQuality    int           `envconfig:"JPEG_QUALITY" default:"40"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	SummaryBackend string `envconfig:"SUMMARY_BACKEND"`
	SummaryModel   string `envconfig:"SUMMARY_MODEL"`
	ClaudeAPIKey   string `envconfig:"CLAUDE_API_KEY"`

	// Latitude and Longitude enable the static location source when both are set.
	Latitude         *float64      `envconfig:"LATITUDE"`
	Longitude        *float64      `envconfig:"LONGITUDE"`
	LocationURL      string        `envconfig:"LOCATION_URL"`
	LocationInterval time.Duration `envconfig:"LOCATION_INTERVAL" default:"20s"`

	TTSEnabled bool   `envconfig:"TTS_ENABLED" default:"false"`
	TTSModel   string `envconfig:"TTS_MODEL" default:"tts-1"`
	TTSVoice   string `envconfig:"TTS_VOICE" default:"alloy"`

	ListenAddr    string `envconfig:"LISTEN_ADDR" default:":8080"`
	JournalDBPath string `envconfig:"JOURNAL_DB_PATH"`
	BlobPath      string `envconfig:"BLOB_PATH"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogFile   string `envconfig:"LOG_FILE"`
}

// Load reads the configuration from the environment and checks it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := vision.ParseProviderKind(c.Provider); err != nil {
		return fmt.Errorf("invalid PROVIDER: %w", err)
	}
	switch strings.ToLower(c.SummaryBackend) {
	case SummaryNone, SummaryGemini, SummaryClaude:
	default:
		return fmt.Errorf("invalid SUMMARY_BACKEND %q: want gemini, claude or empty", c.SummaryBackend)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("invalid REQUEST_TIMEOUT %s: must not be negative", c.RequestTimeout)
	}
	if (c.Latitude == nil) != (c.Longitude == nil) {
		return fmt.Errorf("LATITUDE and LONGITUDE must be set together")
	}
	return nil
}

// Endpoint describes the configured primary provider.
func (c *Config) Endpoint() vision.Endpoint {
	kind, _ := vision.ParseProviderKind(c.Provider)
	prompt := c.SystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = vision.DefaultSystemPrompt
	}

	ep := vision.Endpoint{Kind: kind, SystemPrompt: prompt}
	switch kind {
	case vision.OpenAIChat:
		ep.URL, ep.APIKey, ep.Model = c.OpenAIURL, c.OpenAIAPIKey, c.OpenAIModel
	case vision.GeminiGenerate:
		ep.URL, ep.APIKey, ep.Model = c.GeminiURL, c.GeminiAPIKey, c.GeminiModel
	case vision.OrchestrationBackend:
		ep.URL = c.BackendURL
	}
	return ep
}

// OpenAIBaseURL is the API root derived from OPENAI_URL, used for the
// speech endpoint.
func (c *Config) OpenAIBaseURL() string {
	base := strings.TrimRight(c.OpenAIURL, "/")
	if i := strings.Index(base, "/v1/"); i >= 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, "/v1")
}

// HasLocation reports whether a position source was configured, either
// LOCATION_URL or fixed coordinates.
func (c *Config) HasLocation() bool {
	return c.LocationURL != "" || (c.Latitude != nil && c.Longitude != nil)
}
