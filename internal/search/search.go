package search

import "context"

// Provider is a web search backend. Implementations return ranked results
// for a single query and may fail with network or quota errors; callers
// decide how a failed query affects the run.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]Result, error)
}

// Result is one raw search hit before provenance tagging and deduplication.
type Result struct {
	Title   string
	URL     string
	Snippet string
}
