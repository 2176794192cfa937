package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/company-researcher/backend/internal/planner"
)

type Mode string

const (
	ModeLLMSynthesis     Mode = "llm_synthesis"
	ModeTemplateFallback Mode = "template_fallback"
)

func (m Mode) Disclosure() string {
	if m == ModeTemplateFallback {
		return "Template-based extraction (LLM fallback)"
	}
	return "LLM synthesis"
}

// SourceRecord is one deduplicated search hit with its provenance. URL is the
// dedup key within a run; QueryCategory records the first query that returned
// the URL.
type SourceRecord struct {
	Title         string
	URL           string
	Snippet       string
	Provider      string
	QueryCategory planner.Category
}

type Section struct {
	Heading string
	Body    string
}

// Report is the immutable result of one research run. Sections differ by
// mode but both modes carry the same metadata and terminate in the source
// list.
type Report struct {
	Entity      string
	GeneratedAt time.Time
	Mode        Mode
	Sections    []Section
	Sources     []SourceRecord
}

const timestampLayout = "2006-01-02 15:04:05 MST"

// Render produces the full report document. Rendering is a pure function of
// the report value: the same report always renders byte-identically,
// including source numbering.
func (r *Report) Render() string {
	var b strings.Builder

	b.WriteString(r.renderHeader())
	for i, section := range r.Sections {
		b.WriteString(r.renderSection(i, section))
	}
	b.WriteString(r.renderSources())

	return b.String()
}

func (r *Report) renderHeader() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Research Report\n\n", r.Entity)
	fmt.Fprintf(&b, "**Generated:** %s\n", r.GeneratedAt.Format(timestampLayout))
	fmt.Fprintf(&b, "**Analysis Method:** %s\n\n", r.Mode.Disclosure())
	return b.String()
}

func (r *Report) renderSection(index int, section Section) string {
	return fmt.Sprintf("## %d. %s\n\n%s\n\n", index+1, section.Heading, strings.TrimRight(section.Body, "\n"))
}

func (r *Report) renderSources() string {
	var b strings.Builder
	b.WriteString("## Sources\n\n")
	if len(r.Sources) == 0 {
		b.WriteString("No sources were collected for this research run.\n")
		return b.String()
	}
	for _, src := range r.Sources {
		fmt.Fprintf(&b, "- [%s](%s)\n", src.Title, src.URL)
	}
	return b.String()
}

// FindSection returns the section with the given heading, or nil.
func (r *Report) FindSection(heading string) *Section {
	for i := range r.Sections {
		if r.Sections[i].Heading == heading {
			return &r.Sections[i]
		}
	}
	return nil
}
