package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/lensquery/internal/blobstore"
	"github.com/vbonduro/lensquery/internal/blobstore/local"
	"github.com/vbonduro/lensquery/internal/config"
	"github.com/vbonduro/lensquery/internal/db"
	"github.com/vbonduro/lensquery/internal/history"
	"github.com/vbonduro/lensquery/internal/location"
	"github.com/vbonduro/lensquery/internal/service"
	"github.com/vbonduro/lensquery/internal/speech"
	"github.com/vbonduro/lensquery/internal/store"
	"github.com/vbonduro/lensquery/internal/summary"
	"github.com/vbonduro/lensquery/internal/summary/claude"
	"github.com/vbonduro/lensquery/internal/summary/gemini"
	"github.com/vbonduro/lensquery/internal/surface"
	"github.com/vbonduro/lensquery/internal/transport"
	"github.com/vbonduro/lensquery/internal/web"
)

// app is the fully wired host: surfaces, orchestrator and optional
// collaborators. Nil fields are disabled.
type app struct {
	surfaces web.Surfaces
	orch     *service.Orchestrator
	poller   *location.Poller
	cycles   *store.CycleStore
	blobs    blobstore.Store
	tts      *speech.OpenAI
	database *sql.DB
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		surfaces: web.Surfaces{
			Prompt:     surface.NewText(""),
			Output:     surface.NewText(""),
			Diagnostic: surface.NewText(""),
			Frame:      &surface.Frame{},
		},
	}
	doer := transport.New(nil)

	deps := service.Deps{
		Prompts:    a.surfaces.Prompt,
		Frames:     a.surfaces.Frame,
		Output:     a.surfaces.Output,
		Diagnostic: a.surfaces.Diagnostic,
		Doer:       doer,
		History:    history.New(cfg.HistoryMax, ""),
		Speaker:    speech.Log{Logger: logger},
		Logger:     logger,
	}

	if cfg.BlobPath != "" {
		blobs, err := local.New(cfg.BlobPath)
		if err != nil {
			return nil, err
		}
		a.blobs = blobs
		deps.Archive = blobs
	}

	if cfg.JournalDBPath != "" {
		database, err := db.Open(cfg.JournalDBPath)
		if err != nil {
			return nil, err
		}
		a.database = database
		a.cycles = store.NewCycleStore(database)
		deps.Journal = a.cycles
	}

	if cfg.TTSEnabled {
		a.tts = speech.NewOpenAI(doer, cfg.OpenAIBaseURL(), cfg.OpenAIAPIKey, cfg.TTSModel, cfg.TTSVoice, a.blobs, logger)
		deps.Speaker = a.tts
		a.surfaces.Clips = a.tts
	}

	if cfg.HasLocation() {
		var src location.Source
		if cfg.LocationURL != "" {
			src = location.NewHTTP(doer, cfg.LocationURL)
		} else {
			src = location.Static{Latitude: *cfg.Latitude, Longitude: *cfg.Longitude}
		}
		a.poller = location.NewPoller(src, cfg.LocationInterval, logger)
		deps.Location = a.poller
	}

	backend, err := newSummaryBackend(ctx, cfg)
	if err != nil {
		a.Close(logger)
		return nil, err
	}
	if backend != nil {
		deps.Summarizer = summary.New(backend, logger)
	}

	endpoint := cfg.Endpoint()
	logger.Info("using provider", "provider", endpoint.Kind.String(), "model", endpoint.Model, "summary", cfg.SummaryBackend)

	a.orch = service.NewOrchestrator(service.Config{
		Endpoint:       endpoint,
		JPEGQuality:    cfg.JPEGQuality,
		RequestTimeout: cfg.RequestTimeout,
		WrapWidth:      cfg.WrapWidth,
	}, deps)
	return a, nil
}

func newSummaryBackend(ctx context.Context, cfg *config.Config) (summary.Backend, error) {
	switch strings.ToLower(cfg.SummaryBackend) {
	case config.SummaryGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when SUMMARY_BACKEND=gemini")
		}
		return gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiURL, cfg.SummaryModel)
	case config.SummaryClaude:
		if cfg.ClaudeAPIKey == "" {
			return nil, fmt.Errorf("CLAUDE_API_KEY is required when SUMMARY_BACKEND=claude")
		}
		return claude.New(cfg.ClaudeAPIKey, "", cfg.SummaryModel), nil
	default:
		return nil, nil
	}
}

// Close waits for pending speech and closes the journal.
func (a *app) Close(logger *slog.Logger) {
	if a.tts != nil {
		a.tts.Wait()
	}
	if a.database != nil {
		if err := a.database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}
}
