package receipt

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Storage defines the interface for file storage operations
type Storage interface {
	// Upload stores data under path and returns a publicly fetchable URL.
	// With upsert false an existing object at path is an error.
	Upload(ctx context.Context, path string, data []byte, contentType string, upsert bool) (string, error)

	// Get retrieves a file by path
	Get(ctx context.Context, path string) ([]byte, error)
}

// LocalStorage implements the Storage interface using local filesystem.
// Files are published under publicURL, which the server maps to GET /files/.
type LocalStorage struct {
	basePath  string
	publicURL string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath, publicURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath:  basePath,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// cleanObjectPath rejects paths that would escape the storage root
func cleanObjectPath(p string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid storage path %q", p)
	}
	return cleaned, nil
}

// Upload saves a file to local storage
func (l *LocalStorage) Upload(ctx context.Context, p string, data []byte, contentType string, upsert bool) (string, error) {
	objectPath, err := cleanObjectPath(p)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(l.basePath, filepath.FromSlash(objectPath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !upsert {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(fullPath, flags, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("file already exists: %s", objectPath)
		}
		return "", fmt.Errorf("opening file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("writing file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}

	return l.publicURL + "/" + escapePath(objectPath), nil
}

// Get retrieves a file from local storage
func (l *LocalStorage) Get(ctx context.Context, p string) ([]byte, error) {
	objectPath, err := cleanObjectPath(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(l.basePath, filepath.FromSlash(objectPath)))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// escapePath escapes each path segment for use in a URL
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
