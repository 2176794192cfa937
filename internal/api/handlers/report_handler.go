package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/company-researcher/backend/internal/storage/models"
	"github.com/company-researcher/backend/internal/storage/sqlite"
	"github.com/company-researcher/backend/pkg/logger"
)

type ReportHandler struct {
	db *sqlite.Client
}

func NewReportHandler(db *sqlite.Client) *ReportHandler {
	return &ReportHandler{db: db}
}

func (h *ReportHandler) ListReports(c *fiber.Ctx) error {
	entity := c.Query("entity")
	if entity == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "entity is required",
		})
	}

	limit := c.QueryInt("limit", 20)

	runs, err := h.db.ListReportRuns(entity, limit)
	if err != nil {
		logger.Error("Failed to list report runs", zap.String("entity", entity), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list reports",
		})
	}

	items := make([]fiber.Map, 0, len(runs))
	for _, run := range runs {
		items = append(items, fiber.Map{
			"run_id":       run.ID,
			"entity":       run.Entity,
			"mode":         run.Mode,
			"source_count": run.SourceCount,
			"latency_ms":   run.LatencyMS,
			"created_at":   run.CreatedAt.Unix(),
		})
	}

	return c.JSON(fiber.Map{"reports": items})
}

func (h *ReportHandler) GetReport(c *fiber.Ctx) error {
	runID := c.Params("id")

	run, err := h.db.GetReportRun(runID)
	if err != nil {
		logger.Warn("Report run not found", zap.String("run_id", runID), zap.Error(err))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Report not found",
		})
	}

	sources, err := h.db.GetReportSources(runID)
	if err != nil {
		logger.Error("Failed to load report sources", zap.String("run_id", runID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load report sources",
		})
	}

	sourceItems := make([]fiber.Map, 0, len(sources))
	for _, src := range sources {
		sourceItems = append(sourceItems, fiber.Map{
			"position":       src.Position,
			"title":          src.Title,
			"url":            src.URL,
			"snippet":        src.Snippet,
			"provider":       src.Provider,
			"query_category": src.QueryCategory,
		})
	}

	return c.JSON(fiber.Map{
		"run_id":       run.ID,
		"entity":       run.Entity,
		"mode":         run.Mode,
		"report":       run.ReportMarkdown,
		"output_dir":   run.OutputDir,
		"source_count": run.SourceCount,
		"created_at":   run.CreatedAt.Unix(),
		"sources":      sourceItems,
	})
}

func (h *ReportHandler) SubmitFeedback(c *fiber.Ctx) error {
	var req struct {
		RunID         string `json:"run_id"`
		Helpful       bool   `json:"helpful"`
		IssueCategory string `json:"issue_category"`
		Comment       string `json:"comment"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.RunID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "run_id is required",
		})
	}

	err := h.db.StoreFeedback(&models.Feedback{
		RunID:         req.RunID,
		Helpful:       req.Helpful,
		IssueCategory: req.IssueCategory,
		Comment:       req.Comment,
	})
	if err != nil {
		logger.Error("Failed to store feedback", zap.String("run_id", req.RunID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store feedback",
		})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
