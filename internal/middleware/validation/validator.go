package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Entity strings are company names, so bare keywords like "union" or
// "select" are legitimate ("Union Pacific"). Only multi-word SQL phrasing
// and markup are rejected.
var (
	sqlInjectionPattern = regexp.MustCompile(`(?i)(union\s+select|insert\s+into|drop\s+table|delete\s+from|update\s+\w+\s+set|;\s*--)`)
	xssPattern          = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)
)

type Config struct {
	MaxEntityLength     int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware validates research request bodies before they reach the
// handlers: content type, entity presence and size, and crude injection
// screening on the entity string (it ends up inside search queries).
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxEntityLength == 0 {
		cfg.MaxEntityLength = 200
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		if strings.Contains(c.Path(), "/api/v1/research") && c.Method() == "POST" {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			entity, ok := req["entity"].(string)
			if !ok || strings.TrimSpace(entity) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Entity is required and must be a string",
				})
			}

			if len(entity) > cfg.MaxEntityLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Entity exceeds maximum length",
				})
			}

			if sqlInjectionPattern.MatchString(entity) || xssPattern.MatchString(entity) {
				cfg.Logger.Warn("Suspicious entity rejected",
					zap.String("ip", c.IP()),
					zap.String("entity", entity),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid entity content",
				})
			}
		}

		return c.Next()
	}
}
