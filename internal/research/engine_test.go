package research

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/company-researcher/backend/internal/collector"
	"github.com/company-researcher/backend/internal/llm"
	"github.com/company-researcher/backend/internal/report"
	"github.com/company-researcher/backend/internal/search"
	"github.com/company-researcher/backend/internal/synthesis"
)

type stubProvider struct {
	results map[string][]search.Result
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Search(ctx context.Context, query string) ([]search.Result, error) {
	return p.results[query], nil
}

type stubCompleter struct {
	available bool
	content   string
	err       error
}

func (s *stubCompleter) Available() bool { return s.available }

func (s *stubCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content}, nil
}

func tenSections(body string) string {
	var b strings.Builder
	for i, name := range synthesis.SectionNames {
		fmt.Fprintf(&b, "## %d. %s\n\n%s\n\n", i+1, name, body)
	}
	return b.String()
}

// thirtyResults spreads 30 distinct URLs across the 5 planned queries.
func thirtyResults(entity string) map[string][]search.Result {
	queryTexts := []string{
		entity + " revenue 2024",
		entity + " market cap",
		entity + " subsidiaries portfolio",
		entity + " financial results",
		entity + " company overview",
	}

	results := make(map[string][]search.Result, len(queryTexts))
	n := 0
	for _, text := range queryTexts {
		for i := 0; i < 6; i++ {
			n++
			results[text] = append(results[text], search.Result{
				Title:   fmt.Sprintf("Source %d", n),
				URL:     fmt.Sprintf("https://example.com/%d", n),
				Snippet: fmt.Sprintf("Snippet %d", n),
			})
		}
	}
	return results
}

func newEngine(t *testing.T, provider search.Provider, completer synthesis.Completer) *Engine {
	t.Helper()
	return NewEngine(
		collector.New(provider),
		synthesis.New(completer),
		report.NewAssembler(t.TempDir()),
		nil,
	)
}

func TestResearchRequiresEntity(t *testing.T) {
	e := newEngine(t, &stubProvider{}, &stubCompleter{})

	_, err := e.Research(context.Background(), Request{})
	assert.Error(t, err)
}

func TestResearchFallsBackWhenSynthesisUnavailable(t *testing.T) {
	e := newEngine(t, &stubProvider{results: thirtyResults("Acme Corp")}, &stubCompleter{available: false})

	result, err := e.Research(context.Background(), Request{Entity: "Acme Corp"})
	require.NoError(t, err)

	assert.Equal(t, report.ModeTemplateFallback, result.Mode)
	assert.Contains(t, result.Markdown, "Template-based extraction (LLM fallback)")
	assert.Equal(t, 30, result.SourceCount)
	assert.Contains(t, result.Markdown, "| Total Sources | 30 |")
	assert.Contains(t, result.Markdown, "| 30 | Source 30 |")
}

func TestResearchFallsBackWhenSynthesisFails(t *testing.T) {
	e := newEngine(t,
		&stubProvider{results: thirtyResults("Acme Corp")},
		&stubCompleter{available: true, content: "not a structured report"},
	)

	result, err := e.Research(context.Background(), Request{Entity: "Acme Corp"})
	require.NoError(t, err)

	assert.Equal(t, report.ModeTemplateFallback, result.Mode)
}

func TestResearchNoSourcesHealthyLLM(t *testing.T) {
	// Zero search hits with a working LLM still yields an llm_synthesis
	// report: sections carry the unavailability sentinel and the sources
	// section is empty.
	e := newEngine(t,
		&stubProvider{},
		&stubCompleter{available: true, content: tenSections(synthesis.UnknownSentinel)},
	)

	result, err := e.Research(context.Background(), Request{Entity: "Acme Corp"})
	require.NoError(t, err)

	assert.Equal(t, report.ModeLLMSynthesis, result.Mode)
	assert.Equal(t, 0, result.SourceCount)
	assert.Contains(t, result.Markdown, synthesis.UnknownSentinel)
	assert.Contains(t, result.Markdown, "No sources were collected for this research run.")
}

func TestResearchLLMSuccess(t *testing.T) {
	e := newEngine(t,
		&stubProvider{results: thirtyResults("Acme Corp")},
		&stubCompleter{available: true, content: tenSections("Narrative [1].")},
	)

	result, err := e.Research(context.Background(), Request{Entity: "Acme Corp"})
	require.NoError(t, err)

	assert.Equal(t, report.ModeLLMSynthesis, result.Mode)
	assert.Contains(t, result.Markdown, "**Analysis Method:** LLM synthesis")
	assert.Equal(t, 30, result.SourceCount)
	assert.NotEmpty(t, result.OutputDir)
	assert.NotEmpty(t, result.RunID)
}

func TestResearchReportsProgress(t *testing.T) {
	e := newEngine(t, &stubProvider{}, &stubCompleter{available: false})

	var stages []string
	var lastPercent int
	_, err := e.Research(context.Background(), Request{
		Entity: "Acme Corp",
		Progress: func(stage string, percent int) {
			stages = append(stages, stage)
			lastPercent = percent
		},
	})
	require.NoError(t, err)

	assert.Contains(t, stages, "collecting sources")
	assert.Contains(t, stages, "extracting template report")
	assert.Equal(t, 100, lastPercent)
}

func TestResearchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newEngine(t, &stubProvider{}, &stubCompleter{available: false})

	_, err := e.Research(ctx, Request{Entity: "Acme Corp"})
	assert.ErrorIs(t, err, context.Canceled)
}
