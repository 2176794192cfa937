package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/company-researcher/backend/internal/planner"
	"github.com/company-researcher/backend/internal/search"
)

// stubProvider returns canned results per query text, optionally delaying
// some queries to exercise out-of-order completion.
type stubProvider struct {
	mu      sync.Mutex
	results map[string][]search.Result
	errs    map[string]error
	delays  map[string]time.Duration
	calls   []string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Search(ctx context.Context, query string) ([]search.Result, error) {
	if d, ok := p.delays[query]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	p.calls = append(p.calls, query)
	p.mu.Unlock()

	if err, ok := p.errs[query]; ok {
		return nil, err
	}
	return p.results[query], nil
}

func queriesOf(texts ...string) []planner.Query {
	queries := make([]planner.Query, 0, len(texts))
	categories := []planner.Category{
		planner.CategoryRevenue,
		planner.CategoryMarketCap,
		planner.CategoryPortfolio,
		planner.CategoryFinancials,
		planner.CategoryOverview,
	}
	for i, text := range texts {
		queries = append(queries, planner.Query{Text: text, Category: categories[i%len(categories)]})
	}
	return queries
}

func TestCollectPreservesQueryOrderDespiteConcurrency(t *testing.T) {
	// The first query is slowest; its results must still come first.
	provider := &stubProvider{
		results: map[string][]search.Result{
			"q1": {{Title: "A", URL: "https://a", Snippet: "a"}},
			"q2": {{Title: "B", URL: "https://b", Snippet: "b"}},
			"q3": {{Title: "C", URL: "https://c", Snippet: "c"}},
		},
		delays: map[string]time.Duration{"q1": 50 * time.Millisecond},
	}

	c := New(provider, WithConcurrency(3))
	records := c.Collect(context.Background(), queriesOf("q1", "q2", "q3"))

	require.Len(t, records, 3)
	assert.Equal(t, "https://a", records[0].URL)
	assert.Equal(t, "https://b", records[1].URL)
	assert.Equal(t, "https://c", records[2].URL)
}

func TestCollectDeduplicatesByURLFirstQueryWins(t *testing.T) {
	shared := search.Result{Title: "Shared", URL: "https://shared", Snippet: "s"}
	provider := &stubProvider{
		results: map[string][]search.Result{
			"q1": {shared, {Title: "A", URL: "https://a"}},
			"q2": {shared, {Title: "B", URL: "https://b"}},
		},
	}

	c := New(provider)
	queries := queriesOf("q1", "q2")
	records := c.Collect(context.Background(), queries)

	require.Len(t, records, 3)
	assert.Equal(t, "https://shared", records[0].URL)
	// Attribution stays with the first query that returned the URL.
	assert.Equal(t, queries[0].Category, records[0].QueryCategory)

	seen := map[string]int{}
	for _, r := range records {
		seen[r.URL]++
	}
	for url, count := range seen {
		assert.Equal(t, 1, count, "duplicate url %s", url)
	}
}

func TestCollectSkipsFailedQueries(t *testing.T) {
	provider := &stubProvider{
		results: map[string][]search.Result{
			"ok": {{Title: "A", URL: "https://a"}},
		},
		errs: map[string]error{
			"bad": errors.New("quota exceeded"),
		},
	}

	c := New(provider)
	records := c.Collect(context.Background(), queriesOf("bad", "ok"))

	require.Len(t, records, 1)
	assert.Equal(t, "https://a", records[0].URL)
}

func TestCollectAllQueriesFailingYieldsEmptyList(t *testing.T) {
	provider := &stubProvider{
		errs: map[string]error{
			"q1": errors.New("timeout"),
			"q2": errors.New("timeout"),
		},
	}

	c := New(provider)
	records := c.Collect(context.Background(), queriesOf("q1", "q2"))

	assert.Empty(t, records)
}

func TestCollectTagsProviderAndCategory(t *testing.T) {
	provider := &stubProvider{
		results: map[string][]search.Result{
			"q1": {{Title: "A", URL: "https://a", Snippet: "snippet"}},
		},
	}

	c := New(provider)
	records := c.Collect(context.Background(), queriesOf("q1"))

	require.Len(t, records, 1)
	assert.Equal(t, "stub", records[0].Provider)
	assert.Equal(t, planner.CategoryRevenue, records[0].QueryCategory)
	assert.Equal(t, "snippet", records[0].Snippet)
}

func TestCollectDropsEmptyURLs(t *testing.T) {
	provider := &stubProvider{
		results: map[string][]search.Result{
			"q1": {{Title: "No URL"}, {Title: "A", URL: "https://a"}},
		},
	}

	c := New(provider)
	records := c.Collect(context.Background(), queriesOf("q1"))

	require.Len(t, records, 1)
	assert.Equal(t, "https://a", records[0].URL)
}
