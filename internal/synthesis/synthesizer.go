package synthesis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/company-researcher/backend/internal/llm"
	"github.com/company-researcher/backend/internal/report"
	"github.com/company-researcher/backend/pkg/logger"
)

// UnknownSentinel is the mandated marker for claims the collected sources do
// not support. It must appear verbatim so downstream consumers can detect
// gaps; it is the anti-hallucination contract, not a style choice.
const UnknownSentinel = "Data not available from provided sources."

// SectionNames is the fixed narrative section order the LLM must produce.
var SectionNames = []string{
	"Executive Summary",
	"Company Overview",
	"Financial Performance",
	"Market Position",
	"Products & Services",
	"Strategic Initiatives",
	"Competitive Landscape",
	"Recent Developments",
	"SWOT Analysis",
	"Key Metrics Summary",
}

// Completer is the slice of the LLM client the synthesizer needs.
type Completer interface {
	Available() bool
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

type Synthesizer struct {
	llm Completer
}

func New(completer Completer) *Synthesizer {
	return &Synthesizer{llm: completer}
}

// Synthesize produces the full narrative report, or fails with
// llm.ErrSynthesisUnavailable / llm.ErrSynthesisFailed so the caller can fall
// back to template extraction. Neither error is a run-level failure.
func (s *Synthesizer) Synthesize(ctx context.Context, entity string, sources []report.SourceRecord) (*report.Report, error) {
	if !s.llm.Available() {
		return nil, llm.ErrSynthesisUnavailable
	}

	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildUserPrompt(entity, sources),
	})
	if err != nil {
		if errors.Is(err, llm.ErrSynthesisUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", llm.ErrSynthesisFailed, err)
	}

	sections, err := parseSections(resp.Content)
	if err != nil {
		logger.Warn("LLM output failed structure validation",
			zap.String("entity", entity),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", llm.ErrSynthesisFailed, err)
	}

	for i := range sections {
		sections[i].Body = repairCitations(sections[i].Body, len(sources))
	}

	logger.Info("Narrative report synthesized",
		zap.String("entity", entity),
		zap.Int("sources", len(sources)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return &report.Report{
		Entity:      entity,
		GeneratedAt: time.Now(),
		Mode:        report.ModeLLMSynthesis,
		Sections:    sections,
		Sources:     sources,
	}, nil
}

const systemPrompt = `You are a company research analyst. Write a structured research report using ONLY the provided sources.

Rules:
1. Base every claim on the numbered sources and cite them inline as [n].
2. Where the sources do not support a claim, write exactly: "` + UnknownSentinel + `"
3. Never invent facts, figures, or sources.
4. Output plain markdown with the section headers exactly as instructed.`

func buildUserPrompt(entity string, sources []report.SourceRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a research report on %s with these sections, in this exact order and format:\n\n", entity)
	for i, name := range SectionNames {
		fmt.Fprintf(&b, "## %d. %s\n", i+1, name)
	}
	b.WriteString("\nRender \"Key Metrics Summary\" as a markdown table of metric name, value, and citation.\n")

	b.WriteString("\nSources:\n\n")
	if len(sources) == 0 {
		b.WriteString("(no sources were collected; fill every section with the exact unavailability sentence)\n")
	}
	for i, src := range sources {
		fmt.Fprintf(&b, "[%d] %s\nURL: %s\n%s\n\n", i+1, src.Title, src.URL, src.Snippet)
	}

	return b.String()
}

var sectionHeaderRe = regexp.MustCompile(`(?m)^##\s*(\d+)\.\s*(.+?)\s*$`)

// parseSections validates that the model produced all ten sections in order
// and splits the output into them. Any structural deviation is an error:
// the pipeline fails closed into the template fallback instead of emitting a
// partially structured narrative.
func parseSections(content string) ([]report.Section, error) {
	matches := sectionHeaderRe.FindAllStringSubmatchIndex(content, -1)
	if len(matches) != len(SectionNames) {
		return nil, fmt.Errorf("expected %d sections, found %d", len(SectionNames), len(matches))
	}

	sections := make([]report.Section, 0, len(SectionNames))
	for i, m := range matches {
		number := content[m[2]:m[3]]
		heading := strings.TrimSpace(content[m[4]:m[5]])

		n, err := strconv.Atoi(number)
		if err != nil || n != i+1 {
			return nil, fmt.Errorf("section %d numbered %q", i+1, number)
		}
		if !strings.EqualFold(heading, SectionNames[i]) {
			return nil, fmt.Errorf("section %d titled %q, want %q", i+1, heading, SectionNames[i])
		}

		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(content[m[1]:end])
		if body == "" {
			body = UnknownSentinel
		}

		sections = append(sections, report.Section{
			Heading: SectionNames[i],
			Body:    body,
		})
	}

	return sections, nil
}

var citationRe = regexp.MustCompile(`\[(\d+)\]`)

// repairCitations drops every sentence containing a citation marker that does
// not resolve to a collected source, so no dangling citation survives into
// the rendered report. A body emptied by repair becomes the sentinel.
func repairCitations(body string, sourceCount int) string {
	if !citationRe.MatchString(body) {
		return body
	}

	var kept []string
	for _, sentence := range splitSentences(body) {
		if hasDanglingCitation(sentence, sourceCount) {
			continue
		}
		kept = append(kept, sentence)
	}

	repaired := strings.TrimSpace(strings.Join(kept, " "))
	if repaired == "" {
		return UnknownSentinel
	}
	return repaired
}

func hasDanglingCitation(sentence string, sourceCount int) bool {
	for _, m := range citationRe.FindAllStringSubmatch(sentence, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > sourceCount {
			return true
		}
	}
	return false
}

func splitSentences(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		// Segmentation failure degrades to all-or-nothing repair.
		return []string{text}
	}

	sentences := doc.Sentences()
	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		out = append(out, s.Text)
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}
