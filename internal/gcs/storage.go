package gcs

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// maxObjectSize bounds downloads; credential files are a few kilobytes.
const maxObjectSize = 1 << 20

// GCSStorageService is the concrete implementation of ObjectFetcher
// that interacts with Google Cloud Storage.
type GCSStorageService struct {
	opts []option.ClientOption
}

// NewGCSStorageService creates a new instance of GCSStorageService.
// It uses Application Default Credentials unless opts say otherwise.
func NewGCSStorageService(opts ...option.ClientOption) *GCSStorageService {
	return &GCSStorageService{opts: opts}
}

// FetchObject implements the ObjectFetcher interface.
func (s *GCSStorageService) FetchObject(ctx context.Context, gcsURI string) ([]byte, error) {
	bucketName, objectPath, err := ParseURI(gcsURI)
	if err != nil {
		return nil, fmt.Errorf("FetchObject: %w", err)
	}

	storageClient, err := storage.NewClient(ctx, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("FetchObject: creating storage client: %w", err)
	}
	defer storageClient.Close()

	rc, err := storageClient.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchObject: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxObjectSize))
	if err != nil {
		return nil, fmt.Errorf("FetchObject: reading bytes: %w", err)
	}

	return data, nil
}

// Ensure GCSStorageService implements ObjectFetcher interface.
var _ ObjectFetcher = (*GCSStorageService)(nil)
