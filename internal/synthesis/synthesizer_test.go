package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/company-researcher/backend/internal/llm"
	"github.com/company-researcher/backend/internal/report"
)

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

func wellFormedOutput(body string) string {
	var b strings.Builder
	for i, name := range SectionNames {
		fmt.Fprintf(&b, "## %d. %s\n\n%s\n\n", i+1, name, body)
	}
	return b.String()
}

func TestSynthesizeUnavailableWithoutCredentials(t *testing.T) {
	s := New(&stubCompleter{available: false})

	_, err := s.Synthesize(context.Background(), "Acme Corp", nil)
	assert.ErrorIs(t, err, llm.ErrSynthesisUnavailable)
}

func TestSynthesizeFailsOnCallError(t *testing.T) {
	s := New(&stubCompleter{available: true, err: errors.New("upstream 500")})

	_, err := s.Synthesize(context.Background(), "Acme Corp", nil)
	assert.ErrorIs(t, err, llm.ErrSynthesisFailed)
}

func TestSynthesizeFailsOnMalformedStructure(t *testing.T) {
	cases := map[string]string{
		"missing sections": "## 1. Executive Summary\n\nSome text\n",
		"wrong title":      strings.Replace(wellFormedOutput("x"), "Company Overview", "About the Company", 1),
		"wrong numbering":  strings.Replace(wellFormedOutput("x"), "## 2. Company Overview", "## 5. Company Overview", 1),
		"free text":        "The company is doing great.",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			s := New(&stubCompleter{available: true, content: content})
			_, err := s.Synthesize(context.Background(), "Acme Corp", nil)
			assert.ErrorIs(t, err, llm.ErrSynthesisFailed)
		})
	}
}

func TestSynthesizeParsesWellFormedOutput(t *testing.T) {
	s := New(&stubCompleter{available: true, content: wellFormedOutput("Narrative text.")})

	rep, err := s.Synthesize(context.Background(), "Acme Corp", nil)
	require.NoError(t, err)

	assert.Equal(t, report.ModeLLMSynthesis, rep.Mode)
	require.Len(t, rep.Sections, len(SectionNames))
	for i, section := range rep.Sections {
		assert.Equal(t, SectionNames[i], section.Heading)
	}
}

func TestSynthesizeNoSourcesKeepsSentinel(t *testing.T) {
	// Zero collected sources with a healthy LLM: every section carries the
	// unavailability sentinel and the source list stays empty.
	s := New(&stubCompleter{available: true, content: wellFormedOutput(UnknownSentinel)})

	rep, err := s.Synthesize(context.Background(), "Acme Corp", nil)
	require.NoError(t, err)

	assert.Empty(t, rep.Sources)
	for _, section := range rep.Sections {
		assert.Equal(t, UnknownSentinel, section.Body)
	}
}

func TestRepairCitationsDropsDanglingSentences(t *testing.T) {
	body := "Revenue grew 10% in 2024 [1]. The CEO owns a yacht [9]. Margins improved [2]."

	repaired := repairCitations(body, 2)

	assert.Contains(t, repaired, "Revenue grew 10% in 2024 [1].")
	assert.Contains(t, repaired, "Margins improved [2].")
	assert.NotContains(t, repaired, "[9]")
	assert.NotContains(t, repaired, "yacht")
}

func TestRepairCitationsEmptiedBodyBecomesSentinel(t *testing.T) {
	body := "Everything here is unsupported [7]."

	assert.Equal(t, UnknownSentinel, repairCitations(body, 2))
}

func TestRepairCitationsLeavesCleanBodyAlone(t *testing.T) {
	body := "No citations at all here."

	assert.Equal(t, body, repairCitations(body, 0))
}

func TestSynthesizeRepairsDanglingCitations(t *testing.T) {
	content := wellFormedOutput("Supported claim [1]. Unsupported claim [5].")
	s := New(&stubCompleter{available: true, content: content})

	sources := []report.SourceRecord{
		{Title: "Only source", URL: "https://example.com/1", Snippet: "facts"},
	}

	rep, err := s.Synthesize(context.Background(), "Acme Corp", sources)
	require.NoError(t, err)

	for _, section := range rep.Sections {
		assert.NotContains(t, section.Body, "[5]", "section %s", section.Heading)
	}
}

func TestBuildUserPromptNumbersSources(t *testing.T) {
	sources := []report.SourceRecord{
		{Title: "First", URL: "https://example.com/1", Snippet: "one"},
		{Title: "Second", URL: "https://example.com/2", Snippet: "two"},
	}

	prompt := buildUserPrompt("Acme Corp", sources)

	assert.Contains(t, prompt, "[1] First")
	assert.Contains(t, prompt, "[2] Second")
	for i, name := range SectionNames {
		assert.Contains(t, prompt, fmt.Sprintf("## %d. %s", i+1, name))
	}
}
