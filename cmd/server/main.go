package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/retinascan/internal/config"
	"github.com/Brownie44l1/retinascan/internal/handlers"
	"github.com/Brownie44l1/retinascan/internal/logging"
	"github.com/Brownie44l1/retinascan/internal/middleware"
	"github.com/Brownie44l1/retinascan/internal/model"
	"github.com/Brownie44l1/retinascan/internal/storage"
)

// loadClassifier returns nil when the model files are absent so the server
// can run with a single modality.
func loadClassifier(cfg *config.Config, name string, logger *zap.SugaredLogger) (handlers.Classifier, func()) {
	modelPath, metadataPath := cfg.ModelPaths(name)
	if _, err := os.Stat(modelPath); err != nil {
		logger.Warnw("model not found, modality disabled", "model", name, "path", modelPath)
		return nil, func() {}
	}

	logger.Infow("loading model", "model", name, "path", modelPath)
	c, err := model.NewClassifier(modelPath, metadataPath)
	if err != nil {
		logger.Fatalw("failed to initialize model", "model", name, "error", err)
	}
	logger.Infow("model loaded", "model", name, "classes", c.Metadata.Classes, "layout", c.Metadata.Layout)
	return c, c.Close
}

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	oct, closeOCT := loadClassifier(cfg, "oct", logger)
	defer closeOCT()
	fundus, closeFundus := loadClassifier(cfg, "fundus", logger)
	defer closeFundus()
	if oct == nil && fundus == nil {
		logger.Fatalw("no model available", "model_dir", cfg.ModelDir)
	}

	store, err := storage.New(cfg.UploadDir, "/uploads", cfg.UploadTTL, logger)
	if err != nil {
		logger.Fatalw("failed to prepare upload storage", "error", err)
	}
	sweeper, err := store.StartSweeper("@every 1m")
	if err != nil {
		logger.Fatalw("failed to start upload sweeper", "error", err)
	}
	defer sweeper.Stop()

	handler := handlers.NewHandler(oct, fundus, store, cfg.MaxUploadBytes, logger)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadBytes
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.RequestLogging(logger),
		middleware.CORS(),
	)

	router.GET("/health", handler.Health)
	router.POST("/predict", handler.Predict)
	router.Static("/uploads", store.Dir())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Infow("server starting",
			"port", cfg.Port,
			"endpoints", []string{"GET /health", "POST /predict", "GET /uploads/*"},
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorw("forced shutdown", "error", err)
	}
}
