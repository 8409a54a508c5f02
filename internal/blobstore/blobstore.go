package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get and Delete for unknown keys.
var ErrNotFound = errors.New("blob not found")

// Store archives encoded frames and synthesized speech clips.
type Store interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (key string, err error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}
