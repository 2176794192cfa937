package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/company-researcher/backend/internal/research"
	"github.com/company-researcher/backend/pkg/logger"
)

// WebSocketHandler streams research run progress to the client: one
// "progress" frame per pipeline stage, then a "complete" frame carrying the
// finished report.
type WebSocketHandler struct {
	engine *research.Engine
}

func NewWebSocketHandler(engine *research.Engine) *WebSocketHandler {
	return &WebSocketHandler{engine: engine}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type   string `json:"type"`
			Entity string `json:"entity"`
			UserID string `json:"user_id"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "research" {
			continue
		}

		if msg.Entity == "" {
			h.sendError(c, "entity is required")
			continue
		}

		logger.Info("Processing WebSocket research request", zap.String("entity", msg.Entity))

		if err := h.runResearch(c, msg.Entity, msg.UserID); err != nil {
			logger.Error("Failed to stream research run", zap.Error(err))
			h.sendError(c, "Failed to run research")
		}
	}
}

func (h *WebSocketHandler) runResearch(c *websocket.Conn, entity, userID string) error {
	result, err := h.engine.Research(context.Background(), research.Request{
		Entity: entity,
		UserID: userID,
		Progress: func(stage string, percent int) {
			h.send(c, map[string]interface{}{
				"type":    "progress",
				"stage":   stage,
				"percent": percent,
			})
		},
	})
	if err != nil {
		return err
	}

	return c.WriteJSON(map[string]interface{}{
		"type":         "complete",
		"run_id":       result.RunID,
		"entity":       result.Entity,
		"mode":         result.Mode,
		"report":       result.Markdown,
		"source_count": result.SourceCount,
		"latency_ms":   result.LatencyMS,
	})
}

func (h *WebSocketHandler) send(c *websocket.Conn, msg map[string]interface{}) {
	if err := c.WriteJSON(msg); err != nil {
		logger.Debug("Failed to write WebSocket frame", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	h.send(c, map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
