package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"github.com/vbonduro/lensquery/internal/service"
)

const maxFrameSize = 20 * 1024 * 1024 // 20 MB

// allowedImageTypes is the set of MIME types accepted for uploaded frames.
// net/http.DetectContentType handles all three via magic-byte sniffing, and
// each has a registered image decoder.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

type triggerResponse struct {
	CycleID    string `json:"cycle_id"`
	Published  bool   `json:"published"`
	Display    string `json:"display,omitempty"`
	Diagnostic string `json:"diagnostic"`
	Error      string `json:"error,omitempty"`
}

// handleTrigger plays the glasses' trigger gesture: it loads the prompt and
// optional frame into the host surfaces and runs one query cycle.
// Loading the surfaces and running the cycle happen under triggerMu so a
// concurrent request cannot overwrite the inputs of a running cycle.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if !s.triggerMu.TryLock() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": service.ErrInFlight.Error()})
		return
	}
	defer s.triggerMu.Unlock()

	if s.orch.State() != service.Idle {
		writeJSON(w, http.StatusConflict, map[string]string{"error": service.ErrInFlight.Error()})
		return
	}

	if err := r.ParseMultipartForm(maxFrameSize); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	img, status, msg := s.readFrame(r)
	if status != 0 {
		http.Error(w, msg, status)
		return
	}

	s.surfaces.Prompt.SetText(strings.TrimSpace(r.FormValue("prompt")))
	if img != nil {
		s.surfaces.Frame.Set(img)
	} else {
		s.surfaces.Frame.Clear()
	}

	out, err := s.orch.Trigger(r.Context())
	if errors.Is(err, service.ErrInFlight) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		http.Error(w, "failed to run query", http.StatusInternalServerError)
		s.logger.Error("trigger failed", "error", err)
		return
	}

	resp := triggerResponse{
		CycleID:    out.CycleID,
		Published:  out.Published,
		Display:    out.Result.DisplayText,
		Diagnostic: out.Result.Diagnostic,
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// readFrame decodes the optional "image" part. A non-zero status reports a
// client error.
func (s *Server) readFrame(r *http.Request) (image.Image, int, string) {
	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, 0, ""
	}
	if err != nil {
		return nil, http.StatusBadRequest, "failed to read image"
	}
	defer closeWithLog(file, "frame upload", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read frame failed", "error", err)
		return nil, http.StatusBadRequest, "failed to read image"
	}

	mimeType, ok := allowedImageMIME(data)
	if !ok {
		return nil, http.StatusBadRequest, "unsupported image format"
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("decode frame failed", "mime_type", mimeType, "error", err)
		return nil, http.StatusBadRequest, "invalid image"
	}
	return img, 0, ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
