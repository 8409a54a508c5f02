package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vbonduro/lensquery/internal/blobstore"
	"github.com/vbonduro/lensquery/internal/domain"
	"github.com/vbonduro/lensquery/internal/history"
	"github.com/vbonduro/lensquery/internal/service"
	"github.com/vbonduro/lensquery/internal/surface"
)

// orchestrator is the subset of service.Orchestrator the server requires.
type orchestrator interface {
	Trigger(ctx context.Context) (*service.Outcome, error)
	State() service.State
	History() *history.Buffer
}

// CycleLister is the subset of store.CycleStore the server requires.
type CycleLister interface {
	Recent(ctx context.Context, n int) ([]*domain.Cycle, error)
}

// ClipSource reports the blob key of the most recent spoken response.
type ClipSource interface {
	LastClip() (string, bool)
}

// Surfaces are the host-side components the server reads and writes.
// Clips is optional.
type Surfaces struct {
	Prompt     *surface.Text
	Output     *surface.Text
	Diagnostic *surface.Text
	Frame      *surface.Frame
	Clips      ClipSource
}

type Server struct {
	orch      orchestrator
	surfaces  Surfaces
	cycles    CycleLister
	blobs     blobstore.Store
	wrapWidth int
	mux       *http.ServeMux
	logger    *slog.Logger

	triggerMu sync.Mutex
}

// NewServer builds the host HTTP API. cycles and blobs may be nil, in which
// case their routes answer 404.
func NewServer(orch orchestrator, surfaces Surfaces, cycles CycleLister, blobs blobstore.Store, wrapWidth int, logger *slog.Logger) *Server {
	s := &Server{
		orch:      orch,
		surfaces:  surfaces,
		cycles:    cycles,
		blobs:     blobs,
		wrapWidth: wrapWidth,
		mux:       http.NewServeMux(),
		logger:    logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /trigger", s.handleTrigger)
	s.mux.HandleFunc("GET /output", s.handleOutput)
	s.mux.HandleFunc("GET /history", s.handleHistory)
	s.mux.HandleFunc("GET /cycles", s.handleCycles)
	s.mux.HandleFunc("GET /blobs/{key}", s.handleGetBlob)
}

// securityHeaders sets hardening headers on every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
