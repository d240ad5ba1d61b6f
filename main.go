package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"osteosex/config"
	"osteosex/db"
	ohttp "osteosex/http"
	"osteosex/logging"
	"osteosex/measurement"
	"osteosex/monitoring"
	"osteosex/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration")
	flag.Parse()

	// Look for config in root even if run from cmd/
	path := *configPath
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = filepath.Join("..", *configPath)
	}

	// 1. Load config
	cfg, err := config.Load(path)
	if os.IsNotExist(err) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if _, err := measurement.Decoding(cfg.Measurements.Encoding); err != nil {
		log.Fatalf("Invalid measurements encoding: %v", err)
	}

	logger := logging.New(cfg.Log)
	defer logger.Sync()

	// 2. Initialize database
	if err := db.InitDB(cfg.Database.Path); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("database initialized", zap.String("path", cfg.Database.Path))

	// 3. Model store
	models, err := store.New(cfg.Models.Dir, cfg.Models.CacheSize, logger)
	if err != nil {
		logger.Fatal("failed to open model store", zap.Error(err))
	}
	defer models.Close()
	if cfg.Models.Watch {
		if err := models.Watch(); err != nil {
			logger.Warn("model directory watch disabled", zap.Error(err))
		}
	}

	hub := ohttp.NewResultsHub(logger)
	go hub.Run()
	defer hub.Stop()

	// 4. Start HTTP server
	server := ohttp.NewServer(ohttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
	}, &ohttp.Handlers{
		Models:  models,
		Layout:  cfg.CSG,
		Hub:     hub,
		Metrics: monitoring.NewEstimationMetrics(),
		Logger:  logger,
	})
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}
