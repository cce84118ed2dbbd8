package notepage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NoteAnalytics/internal/domain"
	"NoteAnalytics/internal/ports"
)

// Enricher scrapes an article's public page for master-record metadata.
// The stats endpoint occasionally omits titles; the page head still
// carries them.
type Enricher struct {
	client *http.Client
}

var _ ports.MetadataEnricher = (*Enricher)(nil)

// NewEnricher wires an HTTP client; a nil client gets a sane default.
func NewEnricher(client *http.Client) *Enricher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Enricher{client: client}
}

// Enrich pulls og:title and the canonical link from the page head.
func (e *Enricher) Enrich(ctx context.Context, pageURL string) (domain.PageMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.PageMetadata{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NoteAnalytics/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.PageMetadata{}, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.PageMetadata{}, fmt.Errorf("article page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.PageMetadata{}, fmt.Errorf("parse page: %w", err)
	}

	var meta domain.PageMetadata
	if v, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		meta.Title = strings.TrimSpace(v)
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if v, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		meta.CanonicalURL = strings.TrimSpace(v)
	}

	return meta, nil
}
