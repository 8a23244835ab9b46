// Package gcs archives raw documents in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

// Config captures the bucket and object prefix.
type Config struct {
	Bucket string
	Prefix string
}

// BlobStore uploads archived documents to a bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
	prefix string
	logger *zap.Logger
	owned  bool
}

// Open creates a client using Application Default Credentials and checks the
// bucket is reachable before the run starts.
func Open(ctx context.Context, cfg Config, logger *zap.Logger, opts ...option.ClientOption) (*BlobStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	s, err := New(client, cfg, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	s.owned = true
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			s.logger.Warn("failed to close gcs client after bucket check", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("gcs bucket %q: %w", cfg.Bucket, err)
	}
	return s, nil
}

// New wraps an existing client.
func New(client *storage.Client, cfg Config, logger *zap.Logger) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlobStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}, nil
}

// PutObject uploads data and returns a gs:// URI. Objects are
// content-addressed, so an upload that finds the object already present
// succeeds without replacing it.
func (s *BlobStore) PutObject(ctx context.Context, name string, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("path is required")
	}
	object := path.Join(s.prefix, name)
	uri := fmt.Sprintf("gs://%s/%s", s.bucket, object)

	writer := s.client.Bucket(s.bucket).Object(object).
		If(storage.Conditions{DoesNotExist: true}).
		NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, r); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			s.logger.Debug("archive object already present", zap.String("uri", uri))
			return uri, nil
		}
		return "", fmt.Errorf("close writer: %w", err)
	}
	return uri, nil
}

// FindObject lists objects under prefix and downloads the lexically last one.
func (s *BlobStore) FindObject(ctx context.Context, prefix string) (string, []byte, error) {
	bucket := s.client.Bucket(s.bucket)
	query := &storage.Query{Prefix: path.Join(s.prefix, prefix)}
	if strings.HasSuffix(prefix, "/") {
		query.Prefix += "/"
	}
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		return "", nil, fmt.Errorf("select attrs: %w", err)
	}

	found := ""
	it := bucket.Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("list objects: %w", err)
		}
		if attrs.Name > found {
			found = attrs.Name
		}
	}
	if found == "" {
		return "", nil, collector.ErrObjectNotFound
	}

	reader, err := bucket.Object(found).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return "", nil, collector.ErrObjectNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("open object: %w", err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil {
			s.logger.Debug("close object reader failed", zap.Error(closeErr))
		}
	}()
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, fmt.Errorf("read object: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, found), body, nil
}

// Close releases the client when Open created it.
func (s *BlobStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
