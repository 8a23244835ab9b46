package collector

import (
	"context"
	"io"
	"time"
)

// Fetcher retrieves one target and classifies the outcome.
type Fetcher interface {
	Fetch(ctx context.Context, target Target) FetchResult
}

// Sink receives one well-formed record per completed unit.
type Sink interface {
	Emit(ctx context.Context, record Record) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// BlobReader finds previously archived artifacts. FindObject returns the
// lexically last object whose path starts with prefix, or ErrObjectNotFound.
type BlobReader interface {
	FindObject(ctx context.Context, prefix string) (uri string, body []byte, err error)
}

// Hasher computes content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
