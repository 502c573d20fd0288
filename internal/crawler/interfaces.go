package crawler

import (
	"context"
	"io"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher retrieves a URL and returns the parsed HTML document.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*goquery.Document, error)
}

// Clock returns the current time and suspends the caller (useful for testing).
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// RecordSink receives matchup records as they are collected.
type RecordSink interface {
	WriteRecord(ctx context.Context, record MatchupRecord) error
}

// ManagerSink receives per-season manager metadata rows.
type ManagerSink interface {
	WriteManager(ctx context.Context, row ManagerRow) error
}

// BlobStore writes finished artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes run completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
