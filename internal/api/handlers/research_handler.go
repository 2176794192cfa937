package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/company-researcher/backend/internal/research"
	"github.com/company-researcher/backend/pkg/logger"
)

type ResearchHandler struct {
	engine *research.Engine
}

func NewResearchHandler(engine *research.Engine) *ResearchHandler {
	return &ResearchHandler{engine: engine}
}

func (h *ResearchHandler) HandleResearch(c *fiber.Ctx) error {
	var req struct {
		Entity string `json:"entity"`
		UserID string `json:"user_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Entity == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Entity is required",
		})
	}

	result, err := h.engine.Research(c.Context(), research.Request{
		Entity: req.Entity,
		UserID: req.UserID,
	})
	if err != nil {
		logger.Error("Failed to run research", zap.String("entity", req.Entity), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to run research",
		})
	}

	return c.JSON(fiber.Map{
		"run_id":       result.RunID,
		"entity":       result.Entity,
		"mode":         result.Mode,
		"report":       result.Markdown,
		"output_dir":   result.OutputDir,
		"source_count": result.SourceCount,
		"latency_ms":   result.LatencyMS,
	})
}
