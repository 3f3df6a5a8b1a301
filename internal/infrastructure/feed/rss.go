package feed

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"NewsPoster/internal/domain"
	"NewsPoster/internal/ports"
)

const fetchConcurrency = 4

// Source harvests candidate items from a fixed set of RSS/Atom feeds.
// A transient failure on one feed never aborts the others; it is logged and
// that feed contributes nothing this cycle.
type Source struct {
	urls   []string
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ ports.FeedSource = (*Source)(nil)

// New builds a source over the configured feed URLs.
func New(urls []string, logger *slog.Logger) *Source {
	return &Source{
		urls:   urls,
		parser: gofeed.NewParser(),
		logger: logger,
	}
}

// Fetch pulls every configured feed and returns normalized items, deduped by
// URL within the batch.
func (s *Source) Fetch(ctx context.Context, now time.Time) ([]domain.CandidateItem, error) {
	var (
		mu    sync.Mutex
		items []domain.CandidateItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for _, feedURL := range s.urls {
		feedURL := feedURL
		g.Go(func() error {
			parsed, err := s.parser.ParseURLWithContext(feedURL, gctx)
			if err != nil {
				s.warn("feed fetch failed", "feed", feedURL, "error", err)
				return nil
			}

			batch := s.normalize(parsed, now)
			mu.Lock()
			items = append(items, batch...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return dedupeByURL(items), nil
}

func (s *Source) normalize(parsed *gofeed.Feed, now time.Time) []domain.CandidateItem {
	items := make([]domain.CandidateItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry.Link == "" || entry.Title == "" {
			continue
		}

		published := now
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = *entry.UpdatedParsed
		}

		body := entry.Content
		if body == "" {
			body = entry.Description
		}

		items = append(items, domain.CandidateItem{
			URL:          strings.TrimSpace(entry.Link),
			SourceDomain: hostOf(entry.Link),
			Title:        strings.TrimSpace(entry.Title),
			BodyText:     strings.TrimSpace(body),
			PublishedAt:  published,
		})
	}
	return items
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func dedupeByURL(items []domain.CandidateItem) []domain.CandidateItem {
	seen := make(map[string]struct{}, len(items))
	unique := items[:0]
	for _, item := range items {
		if _, ok := seen[item.URL]; ok {
			continue
		}
		seen[item.URL] = struct{}{}
		unique = append(unique, item)
	}
	return unique
}

func (s *Source) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
