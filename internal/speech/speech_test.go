package speech

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vbonduro/lensquery/internal/blobstore/local"
	"github.com/vbonduro/lensquery/internal/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenAISpeak(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake-mp3"))
	}))
	defer srv.Close()

	blobs, err := local.New(t.TempDir())
	require.NoError(t, err)

	s := NewOpenAI(transport.New(srv.Client()), srv.URL+"/", "sk-test", "", "", blobs, discardLogger())
	s.Speak("A cat.")
	s.Wait()

	assert.Equal(t, map[string]string{"model": DefaultModel, "voice": DefaultVoice, "input": "A cat."}, got)

	key, ok := s.LastClip()
	require.True(t, ok)
	rc, mimeType, err := blobs.Get(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "ID3fake-mp3", string(data))
	assert.Equal(t, "audio/mpeg", mimeType)
}

func TestOpenAISpeakHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	blobs, err := local.New(t.TempDir())
	require.NoError(t, err)

	s := NewOpenAI(transport.New(srv.Client()), srv.URL, "sk-test", "tts-1-hd", "nova", blobs, discardLogger())
	s.Speak("A cat.")
	s.Wait()

	_, ok := s.LastClip()
	assert.False(t, ok)
}

func TestOpenAISpeakBlankIsIgnored(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	s := NewOpenAI(transport.New(srv.Client()), srv.URL, "sk-test", "", "", nil, discardLogger())
	s.Speak("   ")
	s.Wait()

	assert.Equal(t, 0, calls)
}

func TestLogSpeak(t *testing.T) {
	assert.NotPanics(t, func() { Log{}.Speak("hello") })
}
