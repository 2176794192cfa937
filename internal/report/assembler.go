package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/company-researcher/backend/pkg/logger"
)

// Assembler persists a report bundle under an entity-scoped directory: the
// full report plus section-subset views and a sources-only file. Views are
// re-slices of the already-rendered section text, never regenerated, so the
// same section reads identically in every file it appears in.
type Assembler struct {
	baseDir string
}

func NewAssembler(baseDir string) *Assembler {
	return &Assembler{baseDir: baseDir}
}

var viewSpecs = []struct {
	filename string
	headings []string
}{
	{"executive_summary.md", []string{"Executive Summary"}},
	{"market_and_products.md", []string{"Market Position", "Products & Services"}},
	{"competitive_analysis.md", []string{"Competitive Landscape"}},
}

// Write renders the report once and writes the output bundle. It returns the
// bundle directory.
func (a *Assembler) Write(r *Report) (string, error) {
	dir := filepath.Join(a.baseDir, slugify(r.Entity))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	header := r.renderHeader()
	sources := r.renderSources()

	blocks := make(map[string]string, len(r.Sections))
	var full strings.Builder
	full.WriteString(header)
	for i, section := range r.Sections {
		block := r.renderSection(i, section)
		blocks[section.Heading] = block
		full.WriteString(block)
	}
	full.WriteString(sources)

	files := map[string]string{
		"research_report.md": full.String(),
		"sources.md":         header + sources,
	}

	for _, view := range viewSpecs {
		var b strings.Builder
		b.WriteString(header)
		matched := false
		for _, heading := range view.headings {
			if block, ok := blocks[heading]; ok {
				b.WriteString(block)
				matched = true
			}
		}
		if !matched {
			continue
		}
		b.WriteString(sources)
		files[view.filename] = b.String()
	}

	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	logger.Info("Report bundle written",
		zap.String("entity", r.Entity),
		zap.String("dir", dir),
		zap.Int("files", len(files)),
	)

	return dir, nil
}

func slugify(entity string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(entity)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		slug = "report"
	}
	return slug
}
