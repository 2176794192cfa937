package research

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/company-researcher/backend/internal/collector"
	"github.com/company-researcher/backend/internal/fallback"
	"github.com/company-researcher/backend/internal/llm"
	"github.com/company-researcher/backend/internal/metrics"
	"github.com/company-researcher/backend/internal/planner"
	"github.com/company-researcher/backend/internal/report"
	"github.com/company-researcher/backend/internal/storage/models"
	"github.com/company-researcher/backend/internal/storage/sqlite"
	"github.com/company-researcher/backend/internal/synthesis"
	"github.com/company-researcher/backend/pkg/logger"
)

// Engine runs the research pipeline: plan the queries, collect sources,
// synthesize a narrative report or fall back to template extraction, then
// assemble and persist the output bundle. Each run owns its own state; the
// engine is safe for concurrent runs over different entities.
type Engine struct {
	collector   *collector.Collector
	synthesizer *synthesis.Synthesizer
	assembler   *report.Assembler
	db          *sqlite.Client
}

type Request struct {
	Entity   string
	UserID   string
	Progress func(stage string, percent int)
}

type Result struct {
	RunID       string
	Entity      string
	Mode        report.Mode
	Report      *report.Report
	Markdown    string
	OutputDir   string
	SourceCount int
	LatencyMS   int
}

func NewEngine(c *collector.Collector, s *synthesis.Synthesizer, a *report.Assembler, db *sqlite.Client) *Engine {
	return &Engine{
		collector:   c,
		synthesizer: s,
		assembler:   a,
		db:          db,
	}
}

// Research executes one run. Synthesis failures of any kind are absorbed by
// the template fallback, so the only run-level errors are a missing entity,
// cancellation, and output persistence failures.
func (e *Engine) Research(ctx context.Context, req Request) (*Result, error) {
	if req.Entity == "" {
		return nil, fmt.Errorf("entity is required")
	}

	startTime := time.Now()
	runID := uuid.New().String()

	logger.Info("Research run started",
		zap.String("run_id", runID),
		zap.String("entity", req.Entity),
	)

	e.progress(req, "planning queries", 5)
	queries := planner.Plan(req.Entity)

	e.progress(req, "collecting sources", 15)
	sources := e.collector.Collect(ctx, queries)

	if err := ctx.Err(); err != nil {
		metrics.ResearchTotal.WithLabelValues("cancelled").Inc()
		return nil, err
	}

	e.progress(req, "synthesizing report", 55)
	rep, err := e.synthesizer.Synthesize(ctx, req.Entity, sources)
	if err != nil {
		reason := "failed"
		if errors.Is(err, llm.ErrSynthesisUnavailable) {
			reason = "unavailable"
			logger.Info("LLM synthesis unavailable, using template fallback",
				zap.String("run_id", runID),
			)
		} else {
			logger.Warn("LLM synthesis failed, using template fallback",
				zap.String("run_id", runID),
				zap.Error(err),
			)
		}
		metrics.FallbackTriggered.WithLabelValues(reason).Inc()

		e.progress(req, "extracting template report", 70)
		rep = fallback.Extract(req.Entity, sources)
	}

	e.progress(req, "assembling output bundle", 85)
	outputDir, err := e.assembler.Write(rep)
	if err != nil {
		metrics.ResearchTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to write report bundle: %w", err)
	}

	markdown := rep.Render()
	latency := int(time.Since(startTime).Milliseconds())

	e.persist(runID, req.UserID, rep, markdown, outputDir, latency)

	metrics.ResearchTotal.WithLabelValues("success").Inc()
	metrics.ResearchDuration.WithLabelValues(string(rep.Mode)).Observe(time.Since(startTime).Seconds())

	logger.Info("Research run completed",
		zap.String("run_id", runID),
		zap.String("entity", req.Entity),
		zap.String("mode", string(rep.Mode)),
		zap.Int("sources", len(rep.Sources)),
		zap.Int("latency_ms", latency),
	)

	e.progress(req, "completed", 100)

	return &Result{
		RunID:       runID,
		Entity:      req.Entity,
		Mode:        rep.Mode,
		Report:      rep,
		Markdown:    markdown,
		OutputDir:   outputDir,
		SourceCount: len(rep.Sources),
		LatencyMS:   latency,
	}, nil
}

func (e *Engine) progress(req Request, stage string, percent int) {
	if req.Progress != nil {
		req.Progress(stage, percent)
	}
}

func (e *Engine) persist(runID, userID string, rep *report.Report, markdown, outputDir string, latency int) {
	if e.db == nil {
		return
	}

	run := &models.ReportRun{
		ID:             runID,
		UserID:         userID,
		Entity:         rep.Entity,
		Mode:           string(rep.Mode),
		ReportMarkdown: markdown,
		OutputDir:      outputDir,
		SourceCount:    len(rep.Sources),
		LatencyMS:      latency,
		CreatedAt:      time.Now(),
	}

	if err := e.db.InsertReportRun(run); err != nil {
		logger.Warn("Failed to persist report run", zap.String("run_id", runID), zap.Error(err))
		return
	}

	for i, src := range rep.Sources {
		err := e.db.InsertReportSource(&models.ReportSource{
			RunID:         runID,
			Position:      i + 1,
			Title:         src.Title,
			URL:           src.URL,
			Snippet:       src.Snippet,
			Provider:      src.Provider,
			QueryCategory: string(src.QueryCategory),
		})
		if err != nil {
			logger.Warn("Failed to persist report source", zap.String("run_id", runID), zap.Error(err))
		}
	}
}
