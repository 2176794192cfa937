package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/company-researcher/backend/internal/planner"
	"github.com/company-researcher/backend/internal/search"
)

func TestScraperPrefersMetaDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><meta name="description" content="Acme Corp is a maker of anvils."></head><body><p>Other text.</p></body></html>`))
	}))
	defer srv.Close()

	s := newScraper(5 * time.Second)
	text, err := s.snippet(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp is a maker of anvils.", text)
}

func TestScraperFallsBackToFirstParagraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>  First   paragraph
		text.  </p><p>Second.</p></body></html>`))
	}))
	defer srv.Close()

	s := newScraper(5 * time.Second)
	text, err := s.snippet(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph text.", text)
}

func TestScraperErrorsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := newScraper(5 * time.Second)
	_, err := s.snippet(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestCleanTextTruncates(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := cleanText(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), scrapedSnippetLimit+3)
}

func TestEnrichSnippetsFillsOnlyEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><meta name="description" content="Scraped snippet."></head></html>`))
	}))
	defer srv.Close()

	provider := &stubProvider{results: map[string][]search.Result{
		"Acme Corp company overview": {
			{Title: "Has snippet", URL: srv.URL + "/a", Snippet: "Provider snippet."},
			{Title: "No snippet", URL: srv.URL + "/b"},
		},
	}}

	c := New(provider, WithSnippetScraping())
	records := c.Collect(context.Background(), []planner.Query{
		{Text: "Acme Corp company overview", Category: planner.CategoryOverview},
	})

	require.Len(t, records, 2)
	assert.Equal(t, "Provider snippet.", records[0].Snippet)
	assert.Equal(t, "Scraped snippet.", records[1].Snippet)
}
