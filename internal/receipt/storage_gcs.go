package receipt

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSStorage implements the Storage interface on a Google Cloud Storage bucket.
// It assumes Application Default Credentials are configured.
type GCSStorage struct {
	client *storage.Client
	bucket string
}

// NewGCSStorage creates a GCS-backed Storage for bucket
func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

// Upload writes the object and returns its public https URL
func (g *GCSStorage) Upload(ctx context.Context, p string, data []byte, contentType string, upsert bool) (string, error) {
	objectPath, err := cleanObjectPath(p)
	if err != nil {
		return "", err
	}

	obj := g.client.Bucket(g.bucket).Object(objectPath)
	if !upsert {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("writing object %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing upload of %s: %w", objectPath, err)
	}

	return gcsPublicURL(g.bucket, objectPath), nil
}

// Get downloads the object bytes
func (g *GCSStorage) Get(ctx context.Context, p string) ([]byte, error) {
	objectPath, err := cleanObjectPath(p)
	if err != nil {
		return nil, err
	}

	rc, err := g.client.Bucket(g.bucket).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading object %s/%s: %w", g.bucket, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading bytes: %w", err)
	}
	return data, nil
}

// Close closes the storage client
func (g *GCSStorage) Close() error {
	return g.client.Close()
}

func gcsPublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, escapePath(objectPath))
}
