package gcsuploader

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// Get downloads the object named by a gs:// URI. The bucket in the URI may
// differ from the archive's own bucket.
func (a *GCSArchive) Get(ctx context.Context, uri string) ([]byte, error) {
	bucketName, objectPath, err := ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}

	rc, err := a.client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("Get: %s: %w", uri, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Get: reading bytes: %w", err)
	}

	return data, nil
}
