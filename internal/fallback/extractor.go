package fallback

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/company-researcher/backend/internal/report"
	"github.com/company-researcher/backend/pkg/logger"
)

const (
	maxThematicExcerpts = 10
	maxRecentExcerpts   = 15
	snippetLimit        = 200
	recentSnippetLimit  = 400
	titleLimit          = 60
)

const disclosureBanner = "**Analysis Method: Template-based extraction (LLM fallback)**\n\n" +
	"This report was generated via template-based extraction because LLM " +
	"providers were unavailable. Collected sources are grouped under fixed " +
	"headings by keyword classification instead of being synthesized into a " +
	"narrative analysis."

const disclaimer = "This report was produced by the template fallback path and " +
	"offers reduced analytical depth compared to LLM synthesis. Excerpts are " +
	"quoted verbatim from collected sources without cross-source analysis or " +
	"fact reconciliation. Treat groupings as keyword-based approximations."

// Extract renders the degraded, deterministic report from collected sources.
// It is the guaranteed-success path: it is pure string logic over already
// collected data and never fails, including on an empty source list.
func Extract(entity string, sources []report.SourceRecord) *report.Report {
	sections := []report.Section{
		{Heading: "Executive Summary", Body: renderSummary(entity, sources)},
		{Heading: "Source Overview", Body: renderOverview(sources)},
		{Heading: "Financial Information", Body: renderBucket(sources, BucketFinancial)},
		{Heading: "Products & Services", Body: renderBucket(sources, BucketProductService)},
		{Heading: "Competitive Landscape", Body: renderBucket(sources, BucketCompetitor)},
		{Heading: "Recent News & Developments", Body: renderRecent(sources)},
		{Heading: "All Sources", Body: renderSourceTable(sources)},
		{Heading: "Disclaimer", Body: disclaimer},
	}

	logger.Info("Template fallback report generated",
		zap.String("entity", entity),
		zap.Int("sources", len(sources)),
	)

	return &report.Report{
		Entity:      entity,
		GeneratedAt: time.Now(),
		Mode:        report.ModeTemplateFallback,
		Sections:    sections,
		Sources:     sources,
	}
}

func renderSummary(entity string, sources []report.SourceRecord) string {
	var b strings.Builder
	b.WriteString(disclosureBanner)
	b.WriteString("\n\n")
	if len(sources) == 0 {
		fmt.Fprintf(&b, "No sources were collected for %s. The sections below are empty.", entity)
	} else {
		fmt.Fprintf(&b, "%d sources were collected for %s and grouped into the sections below.", len(sources), entity)
	}
	return b.String()
}

func renderOverview(sources []report.SourceRecord) string {
	counts := map[Bucket]int{}
	for _, src := range sources {
		for _, bucket := range Classify(src) {
			counts[bucket]++
		}
	}

	var b strings.Builder
	b.WriteString("| Category | Count |\n")
	b.WriteString("|---|---|\n")
	fmt.Fprintf(&b, "| Total Sources | %d |\n", len(sources))
	fmt.Fprintf(&b, "| Financial Sources | %d |\n", counts[BucketFinancial])
	fmt.Fprintf(&b, "| Product & Service Sources | %d |\n", counts[BucketProductService])
	fmt.Fprintf(&b, "| Competitor Sources | %d |\n", counts[BucketCompetitor])
	fmt.Fprintf(&b, "| General Sources | %d |\n", counts[BucketGeneral])
	return b.String()
}

func renderBucket(sources []report.SourceRecord, bucket Bucket) string {
	var b strings.Builder
	count := 0
	for _, src := range sources {
		if !matches(src, bucket) {
			continue
		}
		if count >= maxThematicExcerpts {
			break
		}
		fmt.Fprintf(&b, "**%s**\n\n%s\n\n[%s](%s)\n\n", src.Title, truncate(src.Snippet, snippetLimit), src.URL, src.URL)
		count++
	}
	if count == 0 {
		return "No matching sources were found in this category."
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderRecent(sources []report.SourceRecord) string {
	if len(sources) == 0 {
		return "No sources were collected for this research run."
	}

	var b strings.Builder
	for i, src := range sources {
		if i >= maxRecentExcerpts {
			break
		}
		fmt.Fprintf(&b, "**%s**\n\n%s\n\n[%s](%s)\n\n", src.Title, truncate(src.Snippet, recentSnippetLimit), src.URL, src.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderSourceTable numbers every source in collection order. The numbering
// is the run's stable source index: row N always refers to the same record
// for a given report.
func renderSourceTable(sources []report.SourceRecord) string {
	if len(sources) == 0 {
		return "No sources were collected for this research run."
	}

	var b strings.Builder
	b.WriteString("| # | Title | Link |\n")
	b.WriteString("|---|---|---|\n")
	for i, src := range sources {
		fmt.Fprintf(&b, "| %d | %s | %s |\n", i+1, truncate(src.Title, titleLimit), src.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return strings.TrimSpace(s[:limit]) + "..."
}
