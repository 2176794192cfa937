package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bundleReport() *Report {
	return &Report{
		Entity:      "Acme Corp",
		GeneratedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Mode:        ModeLLMSynthesis,
		Sections: []Section{
			{Heading: "Executive Summary", Body: "Summary body."},
			{Heading: "Market Position", Body: "Market body."},
			{Heading: "Products & Services", Body: "Products body."},
			{Heading: "Competitive Landscape", Body: "Competitive body."},
		},
		Sources: []SourceRecord{
			{Title: "First", URL: "https://example.com/1"},
		},
	}
}

func TestWriteProducesBundle(t *testing.T) {
	a := NewAssembler(t.TempDir())

	dir, err := a.Write(bundleReport())
	require.NoError(t, err)

	assert.Equal(t, "acme_corp", filepath.Base(dir))

	for _, name := range []string{
		"research_report.md",
		"executive_summary.md",
		"market_and_products.md",
		"competitive_analysis.md",
		"sources.md",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "missing %s", name)
	}
}

func TestViewsReuseSectionTextVerbatim(t *testing.T) {
	a := NewAssembler(t.TempDir())
	r := bundleReport()

	dir, err := a.Write(r)
	require.NoError(t, err)

	full, err := os.ReadFile(filepath.Join(dir, "research_report.md"))
	require.NoError(t, err)

	view, err := os.ReadFile(filepath.Join(dir, "market_and_products.md"))
	require.NoError(t, err)

	// Section blocks in a view are byte-identical slices of the full report.
	marketBlock := "## 2. Market Position\n\nMarket body.\n\n"
	productsBlock := "## 3. Products & Services\n\nProducts body.\n\n"
	assert.Contains(t, string(full), marketBlock)
	assert.Contains(t, string(view), marketBlock)
	assert.Contains(t, string(view), productsBlock)
	assert.NotContains(t, string(view), "Summary body.")

	assert.True(t, strings.HasPrefix(string(view), "# Acme Corp Research Report\n"))
	assert.Contains(t, string(view), "- [First](https://example.com/1)")
}

func TestFullReportMatchesRender(t *testing.T) {
	a := NewAssembler(t.TempDir())
	r := bundleReport()

	dir, err := a.Write(r)
	require.NoError(t, err)

	full, err := os.ReadFile(filepath.Join(dir, "research_report.md"))
	require.NoError(t, err)

	assert.Equal(t, r.Render(), string(full))
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme Corp":       "acme_corp",
		"Coca-Cola":       "coca_cola",
		"  Grupo Arcor  ": "grupo_arcor",
		"???":             "report",
	}
	for in, want := range cases {
		assert.Equal(t, want, slugify(in), "slugify(%q)", in)
	}
}
