package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vbonduro/lensquery/internal/blobstore"
	"github.com/vbonduro/lensquery/internal/transport"
)

const (
	DefaultModel = "tts-1"
	DefaultVoice = "alloy"

	audioMIMEType = "audio/mpeg"
	clipPrefix    = "speech"
	synthTimeout  = 30 * time.Second
)

// Log is a speaker that writes the text to the log instead of playing it.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Speak(text string) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("speak", "text", text)
}

// OpenAI synthesizes speech through the OpenAI audio endpoint and archives
// each clip. Speak returns immediately; synthesis runs on its own goroutine.
type OpenAI struct {
	doer    transport.Doer
	url     string
	apiKey  string
	model   string
	voice   string
	blobs   blobstore.Store
	logger  *slog.Logger
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastKey string
}

// NewOpenAI builds a speaker posting to {baseURL}/v1/audio/speech.
func NewOpenAI(doer transport.Doer, baseURL, apiKey, model, voice string, blobs blobstore.Store, logger *slog.Logger) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	if voice == "" {
		voice = DefaultVoice
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAI{
		doer:   doer,
		url:    strings.TrimRight(baseURL, "/") + "/v1/audio/speech",
		apiKey: apiKey,
		model:  model,
		voice:  voice,
		blobs:  blobs,
		logger: logger,
	}
}

func (s *OpenAI) Speak(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), synthTimeout)
		defer cancel()
		if err := s.synthesize(ctx, text); err != nil {
			s.logger.Error("speech synthesis failed", "error", err)
		}
	}()
}

func (s *OpenAI) synthesize(ctx context.Context, text string) error {
	body, err := json.Marshal(struct {
		Model string `json:"model"`
		Voice string `json:"voice"`
		Input string `json:"input"`
	}{s.model, s.voice, text})
	if err != nil {
		return fmt.Errorf("failed to encode speech request: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.doer.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		URL:    s.url,
		Header: header,
		Body:   body,
	})
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}

	if s.blobs == nil {
		s.logger.Debug("speech synthesized", "bytes", len(resp.Body))
		return nil
	}
	key, err := s.blobs.Save(ctx, clipPrefix, audioMIMEType, bytes.NewReader(resp.Body))
	if err != nil {
		return fmt.Errorf("failed to archive speech clip: %w", err)
	}

	s.mu.Lock()
	s.lastKey = key
	s.mu.Unlock()
	s.logger.Info("speech synthesized", "key", key, "bytes", len(resp.Body))
	return nil
}

// LastClip returns the blob key of the most recently archived clip.
func (s *OpenAI) LastClip() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastKey, s.lastKey != ""
}

// Wait blocks until all pending syntheses have finished.
func (s *OpenAI) Wait() {
	s.wg.Wait()
}
