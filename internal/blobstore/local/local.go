package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/lensquery/internal/blobstore"
)

var errTraversal = errors.New("path traversal attempt")

// Store keeps blobs as flat files under one directory. Keys are file names.
type Store struct {
	basePath string
}

func New(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

func (s *Store) Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	key := fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), extFor(mimeType))
	path := filepath.Join(s.basePath, key)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create blob: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		s.discard(f, path)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(path); rerr != nil {
			slog.Error("failed to remove blob after close error", "key", key, "error", rerr)
		}
		return "", fmt.Errorf("failed to close blob: %w", err)
	}
	return key, nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", blobstore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open blob: %w", err)
	}
	return f, mimeFor(path), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return blobstore.ErrNotFound
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func (s *Store) discard(f *os.File, path string) {
	if err := f.Close(); err != nil {
		slog.Error("failed to close blob after write error", "error", err)
	}
	if err := os.Remove(path); err != nil {
		slog.Error("failed to remove blob after write error", "error", err)
	}
}

// resolve maps key to a path inside basePath and rejects anything that
// would escape it.
func (s *Store) resolve(key string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.basePath, key))
	if err != nil {
		return "", fmt.Errorf("invalid key: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", errTraversal
	}
	return absPath, nil
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
}

func extFor(mimeType string) string {
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}
	return ".bin"
}

func mimeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	for mime, e := range extensions {
		if e == ext {
			return mime
		}
	}
	return "application/octet-stream"
}
