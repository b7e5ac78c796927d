package main

import (
	"context"
	"fmt"
	"os"

	"github.com/clearterms/clearterms-backend/internal/config"
	"github.com/clearterms/clearterms-backend/internal/handlers"
	"github.com/clearterms/clearterms-backend/internal/platform/gemini"
	"github.com/clearterms/clearterms-backend/internal/platform/logger"
	"github.com/clearterms/clearterms-backend/internal/server"
	"github.com/clearterms/clearterms-backend/internal/services"
	"github.com/clearterms/clearterms-backend/internal/store"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal("Invalid configuration", "error", err)
	}

	// Stores
	jobs := store.NewJobStore()
	cache := store.NewReportCache(cfg.CacheMaxEntries)

	// Model client
	model, err := gemini.New(log, gemini.Options{
		BaseURL: cfg.GeminiBaseURL,
		APIKey:  cfg.GeminiAPIKey,
		Models:  cfg.Models,
		Timeout: cfg.ModelTimeout,
	})
	if err != nil {
		log.Fatal("Could not init Gemini client", "error", err)
	}

	// Analysis service: worker pool + reapers
	analysis, err := services.NewAnalysisService(cfg, log, jobs, cache, model)
	if err != nil {
		log.Fatal("Could not init AnalysisService", "error", err)
	}
	ctx := context.Background()
	analysis.Start(ctx)
	analysis.StartReapers(ctx)

	// Handlers
	scanHandler := handlers.NewScanHandler(log, cfg, jobs, analysis)
	jobsHandler := handlers.NewJobsHandler(jobs)
	reportHandler := handlers.NewReportHandler(cfg, cache)
	healthHandler := handlers.NewHealthHandler(jobs, cache)

	// Router
	router := server.NewRouter(server.RouterConfig{
		ScanHandler:   scanHandler,
		JobsHandler:   jobsHandler,
		ReportHandler: reportHandler,
		HealthHandler: healthHandler,
	})

	log.Info("Clear Terms backend listening", "port", cfg.Port, "primary_model", cfg.Models[0])
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}
