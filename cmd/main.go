package main

import (
	"content-service/internal/generation"
	"content-service/internal/handler"
	mid "content-service/internal/middleware"
	"content-service/internal/stage"
	"content-service/internal/store"
	"content-service/pkg/config"
	"content-service/pkg/database"
	"content-service/pkg/logger"
	"content-service/prometheus"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Just log a warning, don't fail if .env file is not found
		// This allows the service to run in environments where env vars are set differently
		// such as production environments with proper environment configuration
		// The fallback values will be used in case env vars are not set
	}

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting content-service",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	err = database.InitDB(appConfig)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Wire the workflow components
	records := store.New(database.GetDB())
	machine := stage.NewMachine(records)
	gateway := generation.NewClient(appConfig.Generator.BaseURL, appConfig.Generator.RequestTimeout, log)
	orchestrator := generation.NewOrchestrator(
		gateway,
		appConfig.Generator.PollInterval,
		appConfig.Generator.JobTimeout,
		log,
	)
	handler.Init(records, machine, orchestrator, generation.NewTracker())
	log.Info("Workflow components initialized",
		zap.String("generator_url", appConfig.Generator.BaseURL),
		zap.Duration("poll_interval", appConfig.Generator.PollInterval),
		zap.Duration("job_timeout", appConfig.Generator.JobTimeout))

	// Initialize Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Routes
	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Project API routes
	projectAPI := e.Group("/api/projects")
	projectAPI.GET("", handler.ListProjects)
	projectAPI.GET("/:id", handler.GetProject)
	projectAPI.POST("", handler.CreateProject)
	projectAPI.PUT("/:id", handler.UpdateProject)
	projectAPI.DELETE("/:id", handler.DeleteProject)
	projectAPI.GET("/:id/status", handler.ProjectStatus)
	projectAPI.POST("/:id/approve", handler.ApproveStage)
	projectAPI.POST("/:id/unapprove", handler.UnapproveStage)
	projectAPI.POST("/:id/archive", handler.ArchiveProject)
	projectAPI.POST("/:id/restore", handler.RestoreProject)

	// Items and custom attributes
	projectAPI.GET("/:id/items", handler.ListItems)
	projectAPI.POST("/:id/items", handler.CreateItem)
	projectAPI.GET("/:id/attributes", handler.ListAttributes)
	projectAPI.POST("/:id/attributes", handler.CreateAttribute)

	itemAPI := e.Group("/api/items")
	itemAPI.GET("/:id", handler.GetItem)
	itemAPI.PUT("/:id", handler.UpdateItem)
	itemAPI.DELETE("/:id", handler.DeleteItem)
	itemAPI.PUT("/:id/keywords", handler.ReplaceKeywords)
	itemAPI.PUT("/:id/questions", handler.ReplaceQuestions)
	itemAPI.PUT("/:id/attribute-values", handler.SetAttributeValue)

	// Topics
	itemAPI.GET("/:id/topics", handler.ListTopics)
	itemAPI.PUT("/:id/topics/selection", handler.SetTopicSelection)
	itemAPI.POST("/:id/topics/generate", handler.GenerateTopics)

	// Generated content
	itemAPI.GET("/:id/content", handler.GetContent)
	projectAPI.POST("/:id/content/generate", handler.GenerateContent)

	// Bulk import/export
	projectAPI.GET("/:id/export", handler.ExportItems)
	projectAPI.POST("/:id/import", handler.ImportItems)

	// Job audit records
	projectAPI.GET("/:id/jobs", handler.ListJobs)
	e.GET("/api/jobs/:id", handler.GetJob)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
