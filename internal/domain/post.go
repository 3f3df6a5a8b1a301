package domain

import "time"

// Shape enumerates the structural forms a publication can take.
type Shape string

const (
	ShapeShort  Shape = "short"
	ShapeLong   Shape = "long"
	ShapeThread Shape = "thread"
	ShapeImage  Shape = "image"
)

// Valid reports whether the shape is one of the known forms.
func (s Shape) Valid() bool {
	switch s {
	case ShapeShort, ShapeLong, ShapeThread, ShapeImage:
		return true
	}
	return false
}

// CandidateItem is a normalized news item harvested from a feed.
// The canonical URL is the deduplication key. Immutable once constructed.
type CandidateItem struct {
	URL          string
	SourceDomain string
	Title        string
	BodyText     string
	PublishedAt  time.Time
	RawScore     *float64
}

// PublicationRecord is written exactly once per successful publish and is
// the sole dedup authority: its existence makes the URL permanently
// ineligible.
type PublicationRecord struct {
	URL      string
	PostedAt time.Time
	Shape    Shape
	PostIDs  []string
}

// DailyQuotaRecord counts publishes for one calendar day in the configured
// timezone.
type DailyQuotaRecord struct {
	Date  string // YYYY-MM-DD
	Count int
}

// FiringWindow is a configured local time-of-day that may fire at most once
// per calendar day.
type FiringWindow struct {
	TimeOfDay     string // HH:MM
	LastFiredDate string // YYYY-MM-DD, empty if never fired
}

// GenerationRequest carries the instructions for one external text
// generation call. Mention is a single @handle the copy may weave in; it is
// set on the anchor request only.
type GenerationRequest struct {
	Shape       Shape
	TextContext string
	MaxLength   int
	Tone        string
	UseEmojis   bool
	Hashtags    []string
	Mention     string
}

// ContentPlan is produced per cycle by the strategy selector and never
// persisted. For threads the requests are ordered: the first anchors the
// thread, each subsequent one replies to the previous.
type ContentPlan struct {
	Shape       Shape
	Requests    []GenerationRequest
	ImagePrompt string // non-empty when an image should accompany the post
}

// WithImage reports whether the plan carries an image generation request.
func (p ContentPlan) WithImage() bool {
	return p.ImagePrompt != ""
}

// DayKey formats a moment as the calendar day it belongs to in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
