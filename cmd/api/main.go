package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/company-researcher/backend/internal/api/handlers"
	"github.com/company-researcher/backend/internal/cache/redis"
	"github.com/company-researcher/backend/internal/collector"
	"github.com/company-researcher/backend/internal/llm"
	"github.com/company-researcher/backend/internal/metrics"
	"github.com/company-researcher/backend/internal/middleware/ratelimit"
	"github.com/company-researcher/backend/internal/middleware/security"
	"github.com/company-researcher/backend/internal/middleware/validation"
	"github.com/company-researcher/backend/internal/report"
	"github.com/company-researcher/backend/internal/research"
	"github.com/company-researcher/backend/internal/search/factory"
	"github.com/company-researcher/backend/internal/storage/sqlite"
	"github.com/company-researcher/backend/internal/synthesis"
	"github.com/company-researcher/backend/pkg/config"
	appLogger "github.com/company-researcher/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Company Researcher API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var cacheClient *redis.Client
	if cfg.Redis.Enabled {
		cacheClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, search caching disabled", zap.Error(err))
			cacheClient = nil
		} else {
			defer cacheClient.Close()
		}
	}

	provider, err := factory.NewProvider(cfg)
	if err != nil {
		appLogger.Fatal("Failed to create search provider", zap.Error(err))
	}

	collectorOpts := []collector.Option{
		collector.WithCache(cacheClient, time.Duration(cfg.Search.CacheTTLSec)*time.Second),
		collector.WithTimeout(time.Duration(cfg.Search.TimeoutSec)*time.Second),
		collector.WithConcurrency(cfg.Search.Concurrency),
	}
	if cfg.Search.ScrapeSnippets {
		collectorOpts = append(collectorOpts, collector.WithSnippetScraping())
	}
	sourceCollector := collector.New(provider, collectorOpts...)

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.TimeoutSec,
		cfg.LLM.RPM,
	)
	if !llmClient.Available() {
		appLogger.Warn("No LLM API key configured, all reports will use template fallback")
	}

	synthesizer := synthesis.New(llmClient)
	assembler := report.NewAssembler(cfg.Output.Dir)

	engine := research.NewEngine(sourceCollector, synthesizer, assembler, sqliteClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 30,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	researchHandler := handlers.NewResearchHandler(engine)
	reportHandler := handlers.NewReportHandler(sqliteClient)
	wsHandler := handlers.NewWebSocketHandler(engine)

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api/v1")
	api.Use(limiter.Middleware())
	api.Use(validation.Middleware(validation.Config{Logger: appLogger.GetLogger()}))

	api.Post("/research", researchHandler.HandleResearch)
	api.Get("/reports", reportHandler.ListReports)
	api.Get("/reports/:id", reportHandler.GetReport)
	api.Post("/feedback", reportHandler.SubmitFeedback)

	api.Post("/cache/invalidate", func(c *fiber.Ctx) error {
		if err := cacheClient.InvalidateSearchCache(c.Context()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to invalidate cache",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws/research", websocket.New(wsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
