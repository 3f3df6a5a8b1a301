package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsPoster/internal/ports"
)

// Extractor fetches an article page and reduces it to readable body text.
// Used when a feed entry carries no usable content of its own.
type Extractor struct {
	client *http.Client
}

var _ ports.ContentExtractor = (*Extractor)(nil)

// New wires an HTTP client; a nil client gets a 20s-timeout default.
func New(client *http.Client) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Extractor{client: client}
}

// Extract downloads the page and returns the concatenated paragraph text
// with whitespace collapsed.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsPoster/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	doc.Find("script, style, nav, header, footer, aside").Remove()

	// Prefer semantic containers; fall back to the whole body.
	root := doc.Find("article, main").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var parts []string
	root.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if len(text) >= 40 {
			parts = append(parts, text)
		}
	})

	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if text == "" {
		return "", fmt.Errorf("no readable text in %s", pageURL)
	}
	return text, nil
}
