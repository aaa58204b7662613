package gcs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidURI is returned for strings that are not gs://bucket/object URIs.
var ErrInvalidURI = errors.New("invalid GCS URI")

// ObjectFetcher provides an interface for reading cloud storage objects.
// This interface enables mocking and testing of storage functionality.
type ObjectFetcher interface {
	// FetchObject downloads object bytes from the given storage URI.
	FetchObject(ctx context.Context, gcsURI string) ([]byte, error)
}

// IsURI reports whether s looks like a gs:// URI.
func IsURI(s string) bool {
	return strings.HasPrefix(s, "gs://")
}

// ParseURI splits gs://bucket/path/to/object into bucket and object name.
func ParseURI(uri string) (bucket, object string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("ParseURI: %s: %w", uri, ErrInvalidURI)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("ParseURI: %s (no object path): %w", uri, ErrInvalidURI)
	}
	return parts[0], parts[1], nil
}

// Filename extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/creds.json" → "creds.json"
func Filename(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
