package filter

import (
	"context"
	"testing"
	"time"

	"NewsPoster/internal/domain"
)

type fakeDedup struct {
	posted map[string]bool
}

func (f *fakeDedup) HasPosted(_ context.Context, url string) (bool, error) {
	return f.posted[url], nil
}

func (f *fakeDedup) Record(_ context.Context, _ domain.PublicationRecord) error {
	return nil
}

func item(url, domainName string, age time.Duration, now time.Time) domain.CandidateItem {
	return domain.CandidateItem{
		URL:          url,
		SourceDomain: domainName,
		Title:        "t",
		PublishedAt:  now.Add(-age),
	}
}

func TestFilterDropsStaleItems(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	f := New(&fakeDedup{posted: map[string]bool{}}, 36, nil, nil)

	got, err := f.Filter(context.Background(), []domain.CandidateItem{
		item("https://example.com/fresh", "example.com", 10*time.Hour, now),
		item("https://example.com/stale", "example.com", 40*time.Hour, now),
	}, now)
	if err != nil {
		t.Fatalf("Filter error: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].URL != "https://example.com/fresh" {
		t.Fatalf("unexpected survivor: %s", got[0].URL)
	}
}

func TestFilterAllowlist(t *testing.T) {
	t.Parallel()

	now := time.Now()
	f := New(&fakeDedup{posted: map[string]bool{}}, 0, []string{"example.com"}, nil)

	got, err := f.Filter(context.Background(), []domain.CandidateItem{
		item("https://example.com/a", "example.com", time.Hour, now),
		item("https://news.example.com/b", "news.example.com", time.Hour, now),
		item("https://other.org/c", "other.org", time.Hour, now),
	}, now)
	if err != nil {
		t.Fatalf("Filter error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	for _, g := range got {
		if g.SourceDomain == "other.org" {
			t.Fatalf("off-allowlist domain survived: %s", g.URL)
		}
	}
}

func TestFilterEmptyAllowlistAdmitsEverything(t *testing.T) {
	t.Parallel()

	now := time.Now()
	f := New(&fakeDedup{posted: map[string]bool{}}, 0, nil, nil)

	got, err := f.Filter(context.Background(), []domain.CandidateItem{
		item("https://anywhere.io/a", "anywhere.io", time.Hour, now),
	}, now)
	if err != nil {
		t.Fatalf("Filter error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
}

func TestFilterDropsAlreadyPosted(t *testing.T) {
	t.Parallel()

	now := time.Now()
	dedup := &fakeDedup{posted: map[string]bool{"https://example.com/old": true}}
	f := New(dedup, 0, nil, nil)

	got, err := f.Filter(context.Background(), []domain.CandidateItem{
		item("https://example.com/old", "example.com", time.Hour, now),
		item("https://example.com/new", "example.com", time.Hour, now),
	}, now)
	if err != nil {
		t.Fatalf("Filter error: %v", err)
	}

	if len(got) != 1 || got[0].URL != "https://example.com/new" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestFilterOrderingIsDeterministic(t *testing.T) {
	t.Parallel()

	now := time.Now()
	f := New(&fakeDedup{posted: map[string]bool{}}, 0, nil, nil)

	items := []domain.CandidateItem{
		item("https://example.com/b", "example.com", 2*time.Hour, now),
		item("https://example.com/a", "example.com", 2*time.Hour, now),
		item("https://example.com/newest", "example.com", time.Hour, now),
	}

	got, err := f.Filter(context.Background(), items, now)
	if err != nil {
		t.Fatalf("Filter error: %v", err)
	}

	want := []string{
		"https://example.com/newest",
		"https://example.com/a",
		"https://example.com/b",
	}
	for i, w := range want {
		if got[i].URL != w {
			t.Fatalf("position %d: want %s, got %s", i, w, got[i].URL)
		}
	}
}

func TestRegistrableDomain(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"news.example.com":   "example.com",
		"example.com":        "example.com",
		"deep.sub.bbc.co.uk": "bbc.co.uk",
	}
	for host, want := range cases {
		if got := RegistrableDomain(host); got != want {
			t.Fatalf("RegistrableDomain(%s) = %s, want %s", host, got, want)
		}
	}
}
