package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	scrapedSnippetLimit = 300
	maxScrapesPerRun    = 10
	scrapeUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// scraper fills in snippets for search hits whose provider returned none, by
// fetching the page and pulling its meta description or first paragraph.
type scraper struct {
	client *http.Client
}

func newScraper(timeout time.Duration) *scraper {
	return &scraper{
		client: &http.Client{Timeout: timeout},
	}
}

func (s *scraper) snippet(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", scrapeUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		if text := cleanText(desc); text != "" {
			return text, nil
		}
	}

	var text string
	doc.Find("p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text = cleanText(sel.Text())
		return text == ""
	})
	if text == "" {
		return "", fmt.Errorf("no usable text on page")
	}
	return text, nil
}

func cleanText(raw string) string {
	text := strings.Join(strings.Fields(raw), " ")
	if len(text) > scrapedSnippetLimit {
		text = text[:scrapedSnippetLimit] + "..."
	}
	return text
}
