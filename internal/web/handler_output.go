package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vbonduro/lensquery/internal/blobstore"
	"github.com/vbonduro/lensquery/internal/store"
)

type outputResponse struct {
	Display    string `json:"display"`
	Diagnostic string `json:"diagnostic"`
	State      string `json:"state"`
	SpeechClip string `json:"speech_clip,omitempty"`
}

func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	resp := outputResponse{
		Display:    s.surfaces.Output.Text(),
		Diagnostic: s.surfaces.Diagnostic.Text(),
		State:      s.orch.State().String(),
	}
	if s.surfaces.Clips != nil {
		if key, ok := s.surfaces.Clips.LastClip(); ok {
			resp.SpeechClip = key
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(w, s.orch.History().Render(s.wrapWidth)); err != nil {
		s.logger.Error("write history failed", "error", err)
	}
}

type cycleResponse struct {
	ID            string `json:"id"`
	Provider      string `json:"provider"`
	Model         string `json:"model,omitempty"`
	Outcome       string `json:"outcome"`
	HTTPStatus    int    `json:"http_status,omitempty"`
	TokenEstimate int    `json:"token_estimate"`
	DurationMS    int64  `json:"duration_ms"`
	FrameKey      string `json:"frame_key,omitempty"`
	Error         string `json:"error,omitempty"`
	StartedAt     string `json:"started_at"`
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	if s.cycles == nil {
		http.NotFound(w, r)
		return
	}

	limit := store.DefaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	cycles, err := s.cycles.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, "failed to list cycles", http.StatusInternalServerError)
		s.logger.Error("list cycles failed", "error", err)
		return
	}

	out := make([]cycleResponse, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, cycleResponse{
			ID:            c.ID,
			Provider:      c.Provider,
			Model:         c.Model,
			Outcome:       string(c.Outcome),
			HTTPStatus:    c.HTTPStatus,
			TokenEstimate: c.TokenEstimate,
			DurationMS:    c.DurationMS,
			FrameKey:      c.FrameKey,
			Error:         c.Error,
			StartedAt:     c.StartedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	if s.blobs == nil {
		http.NotFound(w, r)
		return
	}

	key := r.PathValue("key")
	reader, mimeType, err := s.blobs.Get(r.Context(), key)
	if errors.Is(err, blobstore.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "failed to read blob", http.StatusBadRequest)
		s.logger.Warn("get blob failed", "key", key, "error", err)
		return
	}
	defer closeWithLog(reader, "blob reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write blob failed", "key", key, "error", err)
	}
}
