package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"dropoutpredictor/internal/classifier"
	"dropoutpredictor/internal/config"
	"dropoutpredictor/internal/database"
	"dropoutpredictor/internal/handler"
	"dropoutpredictor/internal/logger"
	"dropoutpredictor/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	logg := logger.New(logger.ParseLevel(cfg.LogLevel))

	// Runs live only as long as the process.
	db, err := database.Open(database.InMemory)
	if err != nil {
		log.Fatal(err)
	}

	// The artifact is loaded per request; a missing file fails only that request.
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		logg.Warn("model artifact %s is not readable yet: %v", cfg.ModelPath, err)
	}
	loader := classifier.FileLoader{Path: cfg.ModelPath}

	// Initialize services
	runService := service.NewRunService(db)
	predictionService := service.NewPredictionService(loader, runService, logg)

	// Initialize handlers
	page, err := handler.NewPage(cfg.PreviewRows, logg)
	if err != nil {
		log.Fatal(err)
	}
	uploadHandler := handler.NewUploadHandler(predictionService, page, cfg.MaxUploadBytes, logg)
	runHandler := handler.NewRunHandler(runService, logg)

	r := handler.NewRouter(uploadHandler, runHandler)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.Wrap(r, cfg.AllowedOrigins, os.Stdout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logg.Info("Server running on port %s (model %s)", cfg.Port, cfg.ModelPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
