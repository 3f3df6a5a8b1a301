package filter

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"NewsPoster/internal/domain"
	"NewsPoster/internal/ports"
)

// Filter discards candidates that are stale, off-allowlist, or already
// published, and orders the survivors deterministically.
type Filter struct {
	dedup      ports.DedupStore
	minRecency time.Duration
	allowlist  []string
	logger     *slog.Logger
}

// New builds a filter. An empty allowlist admits every domain.
func New(dedup ports.DedupStore, minRecencyHours int, allowlist []string, logger *slog.Logger) *Filter {
	allow := make([]string, 0, len(allowlist))
	for _, d := range allowlist {
		allow = append(allow, strings.ToLower(strings.TrimSpace(d)))
	}
	return &Filter{
		dedup:      dedup,
		minRecency: time.Duration(minRecencyHours) * time.Hour,
		allowlist:  allow,
		logger:     logger,
	}
}

// Filter returns eligible candidates most-recent-first; ties are broken by
// URL lexical order. It has no side effects beyond read-only dedup queries.
func (f *Filter) Filter(ctx context.Context, items []domain.CandidateItem, now time.Time) ([]domain.CandidateItem, error) {
	kept := make([]domain.CandidateItem, 0, len(items))
	for _, item := range items {
		if item.URL == "" {
			continue
		}

		if f.minRecency > 0 && now.Sub(item.PublishedAt) > f.minRecency {
			f.debug("drop stale", "url", item.URL, "published_at", item.PublishedAt)
			continue
		}

		if !f.allowed(item) {
			f.debug("drop off-allowlist", "url", item.URL, "domain", item.SourceDomain)
			continue
		}

		posted, err := f.dedup.HasPosted(ctx, item.URL)
		if err != nil {
			return nil, fmt.Errorf("dedup check %s: %w", item.URL, err)
		}
		if posted {
			f.debug("drop already posted", "url", item.URL)
			continue
		}

		kept = append(kept, item)
	}

	sort.Slice(kept, func(i, j int) bool {
		if !kept[i].PublishedAt.Equal(kept[j].PublishedAt) {
			return kept[i].PublishedAt.After(kept[j].PublishedAt)
		}
		return kept[i].URL < kept[j].URL
	})

	return kept, nil
}

func (f *Filter) allowed(item domain.CandidateItem) bool {
	if len(f.allowlist) == 0 {
		return true
	}

	domainName := RegistrableDomain(item.SourceDomain)
	if domainName == "" {
		domainName = registrableFromURL(item.URL)
	}
	if domainName == "" {
		return false
	}

	for _, allow := range f.allowlist {
		if domainName == allow || strings.HasSuffix(domainName, "."+allow) {
			return true
		}
	}
	return false
}

// RegistrableDomain reduces a host name to its registrable domain
// (news.example.co.uk -> example.co.uk). Returns the lowercased input when
// the public suffix list cannot resolve it.
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ""
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

func registrableFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return RegistrableDomain(u.Hostname())
}

func (f *Filter) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
