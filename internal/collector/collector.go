package collector

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/company-researcher/backend/internal/cache/redis"
	"github.com/company-researcher/backend/internal/metrics"
	"github.com/company-researcher/backend/internal/planner"
	"github.com/company-researcher/backend/internal/report"
	"github.com/company-researcher/backend/internal/search"
	"github.com/company-researcher/backend/pkg/logger"
	"github.com/company-researcher/backend/pkg/retry"
	"github.com/company-researcher/backend/pkg/utils"
)

// Collector runs the planned queries against a search provider and produces
// the run's deduplicated source list. Queries execute concurrently but
// results are merged back in query order, then result order within each
// query, so source numbering is reproducible for identical provider
// responses.
type Collector struct {
	provider      search.Provider
	cache         *redis.Client
	cacheTTL      time.Duration
	timeout       time.Duration
	concurrency   int
	scrapeMissing bool
	scraper       *scraper
	retryConfig   retry.Config
}

type Option func(*Collector)

func WithCache(cache *redis.Client, ttl time.Duration) Option {
	return func(c *Collector) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Collector) {
		c.timeout = timeout
	}
}

func WithConcurrency(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithSnippetScraping fetches pages for results that arrive without a
// snippet, so the fallback extractor has excerpt text to work with.
func WithSnippetScraping() Option {
	return func(c *Collector) {
		c.scrapeMissing = true
	}
}

func New(provider search.Provider, opts ...Option) *Collector {
	c := &Collector{
		provider:    provider,
		timeout:     10 * time.Second,
		concurrency: 3,
		retryConfig: retry.Config{
			MaxAttempts:  2,
			InitialDelay: 200 * time.Millisecond,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.scrapeMissing {
		c.scraper = newScraper(c.timeout)
	}
	return c
}

// Collect never fails: a query whose provider call errors or times out is
// logged and skipped, and an all-queries-failed run yields an empty list.
// Dedup is global by URL with first occurrence winning, so a URL returned by
// two queries stays attributed to the earlier query.
func (c *Collector) Collect(ctx context.Context, queries []planner.Query) []report.SourceRecord {
	perQuery := make([][]search.Result, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			perQuery[i] = c.searchOne(gctx, q)
			return nil
		})
	}
	g.Wait()

	seen := make(map[string]struct{})
	var records []report.SourceRecord

	for i, results := range perQuery {
		for _, r := range results {
			if r.URL == "" {
				continue
			}
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}
			records = append(records, report.SourceRecord{
				Title:         r.Title,
				URL:           r.URL,
				Snippet:       r.Snippet,
				Provider:      c.provider.Name(),
				QueryCategory: queries[i].Category,
			})
		}
	}

	c.enrichSnippets(ctx, records)

	metrics.SourcesCollected.Observe(float64(len(records)))
	logger.Info("Source collection completed",
		zap.Int("queries", len(queries)),
		zap.Int("sources", len(records)),
	)

	return records
}

// enrichSnippets scrapes pages for records that came back without snippet
// text. Scrape failures leave the snippet empty; the cap keeps a run from
// fanning out over every bare result.
func (c *Collector) enrichSnippets(ctx context.Context, records []report.SourceRecord) {
	if c.scraper == nil {
		return
	}

	var candidates []int
	for i := range records {
		if records[i].Snippet == "" {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) > maxScrapesPerRun {
		candidates = candidates[:maxScrapesPerRun]
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, idx := range candidates {
		idx := idx
		g.Go(func() error {
			text, err := c.scraper.snippet(gctx, records[idx].URL)
			if err != nil {
				logger.Debug("Snippet scrape skipped",
					zap.String("url", records[idx].URL),
					zap.Error(err),
				)
				return nil
			}
			records[idx].Snippet = text
			return nil
		})
	}
	g.Wait()
}

func (c *Collector) searchOne(ctx context.Context, q planner.Query) []search.Result {
	queryHash := utils.HashString(c.provider.Name() + ":" + q.Text)

	if c.cache != nil {
		if cached, hit, err := c.cache.GetSearch(ctx, queryHash); err == nil && hit {
			metrics.CacheHits.WithLabelValues("search").Inc()
			return cached
		} else if err != nil {
			logger.Warn("Search cache lookup failed", zap.Error(err))
		}
		metrics.CacheMisses.WithLabelValues("search").Inc()
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var results []search.Result
	err := retry.Do(callCtx, c.retryConfig, func() error {
		var searchErr error
		results, searchErr = c.provider.Search(callCtx, q.Text)
		return searchErr
	})
	metrics.SearchDuration.WithLabelValues(c.provider.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		// Skip the query, keep the run going.
		metrics.SearchErrors.WithLabelValues(c.provider.Name()).Inc()
		logger.Warn("Search query skipped",
			zap.String("query", q.Text),
			zap.String("category", string(q.Category)),
			zap.Error(err),
		)
		return nil
	}

	if err := c.cache.SetSearch(ctx, queryHash, results, c.cacheTTL); err != nil {
		logger.Warn("Failed to cache search results", zap.Error(err))
	}

	return results
}
