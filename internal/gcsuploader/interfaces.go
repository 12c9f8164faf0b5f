package gcsuploader

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for unknown URIs.
var ErrNotFound = errors.New("archived document not found")

// Archive keeps the original bytes of every uploaded document so extraction
// jobs can fetch them later by URI.
type Archive interface {
	// Put stores data and returns the URI it can be fetched from.
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	// Get returns the bytes stored at uri.
	Get(ctx context.Context, uri string) ([]byte, error)
}
