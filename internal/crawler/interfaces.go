package crawler

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrMissingMongoURL is returned when the configuration lacks a usable mongo_url.
var ErrMissingMongoURL = errors.New("the config file does not contain 'mongo_url'")

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (Page, error)
}

// DocumentStore persists drug documents keyed by URL.
type DocumentStore interface {
	// Upsert replaces the document stored under doc.URL, inserting it when absent.
	Upsert(ctx context.Context, doc Document) error
	// Clear removes every document and reports how many were deleted.
	Clear(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// StoreOpener acquires a DocumentStore for the duration of one batch.
type StoreOpener func(ctx context.Context) (DocumentStore, error)

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes upsert notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Limiter blocks until a request to url may proceed.
type Limiter interface {
	Wait(ctx context.Context, url string) error
}

// Hasher computes digests used to name archived pages.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
