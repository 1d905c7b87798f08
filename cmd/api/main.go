package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/mosaictheory-jt/unstructured-analytics/internal/api/handlers"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/experiment"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/format"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/llm"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/metrics"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/middleware/ratelimit"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/prose"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/query"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/store"
	"github.com/mosaictheory-jt/unstructured-analytics/pkg/config"
	appLogger "github.com/mosaictheory-jt/unstructured-analytics/pkg/logger"
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

	appLogger.Info("Starting format-comparison research server")

	metrics.Init()

	dataStore := store.New(store.Config{Dir: cfg.Data.Dir})
	renderer := prose.NewRenderer(dataStore)
	selector := format.NewSelector(dataStore, renderer)
	queryEngine := query.NewEngine(dataStore)

	llmClient := llm.NewClient(llm.Config{
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		TimeoutSec: cfg.LLM.TimeoutSec,
	})

	runner := experiment.NewRunner(selector, llmClient, cfg.LLM.ThinkingBudget)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	dataHandler := handlers.NewDataHandler(dataStore, renderer, queryEngine)
	experimentHandler := handlers.NewExperimentHandler(runner)
	streamHandler := handlers.NewStreamHandler(runner)

	api := app.Group("/api")

	api.Get("/data/preview", dataHandler.GetPreview)
	api.Get("/data/schema", dataHandler.GetSchema)
	api.Get("/data/tables/:name", dataHandler.GetTable)
	api.Post("/data/query", dataHandler.ExecuteQuery)

	api.Get("/questions", experimentHandler.GetQuestions)
	api.Get("/models", experimentHandler.GetModels)

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Server.ExperimentRateLimit,
		Logger:               appLogger.L(),
	})
	defer limiter.Stop()

	exp := api.Group("/experiment", limiter.Middleware())
	exp.Post("/single", experimentHandler.RunSingle)
	exp.Post("/compare", experimentHandler.RunComparison)
	exp.Post("/parallel", experimentHandler.RunParallel)
	exp.Get("/stream", websocket.New(streamHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

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
