package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/company-researcher/backend/internal/search"
	"github.com/company-researcher/backend/pkg/logger"
)

// Client searches via SerpAPI when a key is configured and otherwise scrapes
// Google results directly.
type Client struct {
	apiKey     string
	maxResults int
	httpClient *http.Client
}

var _ search.Provider = (*Client)(nil)

func NewClient(apiKey string, maxResults int, timeout time.Duration) *Client {
	if maxResults <= 0 {
		maxResults = 10
	}
	return &Client{
		apiKey:     apiKey,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string {
	if c.apiKey != "" {
		return "serpapi"
	}
	return "google"
}

func (c *Client) Search(ctx context.Context, query string) ([]search.Result, error) {
	logger.Debug("Performing web search", zap.String("provider", c.Name()), zap.String("query", query))

	if c.apiKey != "" {
		return c.searchWithSerpAPI(ctx, query)
	}
	return c.searchWithGoogle(ctx, query)
}

func (c *Client) searchWithSerpAPI(ctx context.Context, query string) ([]search.Result, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("api_key", c.apiKey)
	params.Add("num", fmt.Sprintf("%d", c.maxResults))

	req, err := http.NewRequestWithContext(ctx, "GET", "https://serpapi.com/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var searchResp struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}

	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]search.Result, 0, len(searchResp.OrganicResults))
	for _, r := range searchResp.OrganicResults {
		if len(results) >= c.maxResults {
			break
		}
		results = append(results, search.Result{
			Title:   r.Title,
			URL:     r.Link,
			Snippet: r.Snippet,
		})
	}

	return results, nil
}

func (c *Client) searchWithGoogle(ctx context.Context, query string) ([]search.Result, error) {
	searchURL := fmt.Sprintf("https://www.google.com/search?q=%s&num=%d", url.QueryEscape(query), c.maxResults)

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	results := make([]search.Result, 0, c.maxResults)
	doc.Find("div.g").Each(func(i int, s *goquery.Selection) {
		if len(results) >= c.maxResults {
			return
		}

		title := strings.TrimSpace(s.Find("h3").Text())
		link, _ := s.Find("a").Attr("href")
		snippet := strings.TrimSpace(s.Find("div.VwiC3b").Text())

		if title != "" && link != "" {
			results = append(results, search.Result{
				Title:   title,
				URL:     link,
				Snippet: snippet,
			})
		}
	})

	return results, nil
}
