package ports

import (
	"context"
	"time"

	"NewsPoster/internal/domain"
)

// FeedSource pulls fresh candidate items from the configured feeds.
type FeedSource interface {
	Fetch(ctx context.Context, now time.Time) ([]domain.CandidateItem, error)
}

// DedupStore answers and records "already posted" for canonical URLs.
type DedupStore interface {
	HasPosted(ctx context.Context, url string) (bool, error)
	Record(ctx context.Context, rec domain.PublicationRecord) error
}

// QuotaTracker enforces the per-day publication cap.
type QuotaTracker interface {
	RemainingToday(ctx context.Context, now time.Time) (int, error)
	Increment(ctx context.Context, now time.Time) error
}

// WindowStore persists firing windows across restarts.
type WindowStore interface {
	EnsureWindows(ctx context.Context, times []string) error
	Windows(ctx context.Context) ([]domain.FiringWindow, error)
	MarkFired(ctx context.Context, timeOfDay, date string) error
}

// Recorder commits a publication record and the quota increment as one
// atomic pair: either both apply or neither.
type Recorder interface {
	CommitPublication(ctx context.Context, rec domain.PublicationRecord, now time.Time) error
}

// TextGenerator turns a generation request into post copy.
type TextGenerator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// ImageGenerator produces an image for a prompt and returns an opaque handle.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// PublishRequest is one outbound post. ReplyTo chains thread segments;
// MediaHandle attaches a generated image; IdempotencyKey lets the transport
// guard against duplicate submission on retry.
type PublishRequest struct {
	Text           string
	MediaHandle    string
	ReplyTo        string
	IdempotencyKey string
}

// Publisher submits one post and returns its external identifier.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (string, error)
}

// ContentExtractor fetches an article page and returns readable body text.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}
