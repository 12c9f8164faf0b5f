package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/tax-tracker/internal/clock"
	"github.com/google/uuid"
)

const uploadTimeout = 2 * time.Minute

// GCSArchive stores documents in a Google Cloud Storage bucket. It assumes
// Application Default Credentials are configured.
type GCSArchive struct {
	client *storage.Client
	bucket string
	prefix string
	clock  clock.Clock
}

// NewGCSArchive creates a storage client for bucket. Objects are written
// under prefix.
func NewGCSArchive(ctx context.Context, bucket, prefix string) (*GCSArchive, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewGCSArchive: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSArchive: create storage client: %w", err)
	}
	return &GCSArchive{client: client, bucket: bucket, prefix: prefix, clock: clock.RealClock{}}, nil
}

// Close releases the storage client.
func (a *GCSArchive) Close() error {
	return a.client.Close()
}

// Put uploads data to gs://bucket/prefix/yyyy/mm/dd/uuid-name.
func (a *GCSArchive) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	objectName := ObjectName(a.prefix, a.clock.Now(), uuid.NewString(), name)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	defer func() {
		// Ensure the writer is closed even on early returns
		_ = w.Close()
	}()

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("Put: copy %s to GCS writer: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Put: finalize upload of %s: %w", name, err)
	}

	return "gs://" + a.bucket + "/" + objectName, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName builds the object path for an upload made at t. The original
// file name is kept, with anything outside [A-Za-z0-9._-] replaced by "_".
func ObjectName(prefix string, t time.Time, id, name string) string {
	base := unsafeChars.ReplaceAllString(path.Base(name), "_")
	if base == "" || base == "." || base == "_" {
		base = "document"
	}
	return path.Join(prefix, t.UTC().Format("2006/01/02"), id+"-"+base)
}

// ParseURI splits gs://bucket/object into its parts.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FileNameFromURI returns the last path element of an archive URI.
// e.g., "gs://bucket/uploads/2024/04/01/id-form16.pdf" → "id-form16.pdf"
func FileNameFromURI(uri string) string {
	trimmed := uri
	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
	}

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
