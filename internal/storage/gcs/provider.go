// Package gcs implements a Google Cloud Storage share-card store.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// Config captures the parameters for the GCS store.
type Config struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// Provider stores blobs in a GCS bucket under a common prefix.
type Provider struct {
	client *storage.Client
	bucket string
	prefix string
}

// New initializes a GCS client and verifies bucket access, failing fast
// on startup when configuration is wrong. Authentication uses Google's
// Application Default Credentials.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		client.Close() //nolint:errcheck
		return nil, fmt.Errorf("access gcs bucket %q: %w", cfg.Bucket, err)
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "share"
	}
	return &Provider{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

// Get reads one object, reporting false when it does not exist.
func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	r, err := p.client.Bucket(p.bucket).Object(p.objectName(key)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open gcs object %s: %w", key, err)
	}
	defer r.Close() //nolint:errcheck
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("read gcs object %s: %w", key, err)
	}
	return data, true, nil
}

// Put uploads one object. Close finalizes the upload and must succeed
// before the write counts.
func (p *Provider) Put(ctx context.Context, key string, contentType string, data []byte) error {
	w := p.client.Bucket(p.bucket).Object(p.objectName(key)).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close() //nolint:errcheck
		return fmt.Errorf("write gcs object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gcs object %s: %w", key, err)
	}
	return nil
}

// Clear deletes every object under the prefix.
func (p *Provider) Clear(ctx context.Context) error {
	bkt := p.client.Bucket(p.bucket)
	it := bkt.Objects(ctx, &storage.Query{Prefix: p.prefix + "/"})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("list gcs objects: %w", err)
		}
		if err := bkt.Object(attrs.Name).Delete(ctx); err != nil &&
			!errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("delete gcs object %s: %w", attrs.Name, err)
		}
	}
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}

func (p *Provider) objectName(key string) string {
	return p.prefix + "/" + key
}
