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

	"github.com/Brownie44l1/retinascan/internal/client"
	"github.com/Brownie44l1/retinascan/internal/config"
	"github.com/Brownie44l1/retinascan/internal/logging"
	"github.com/Brownie44l1/retinascan/internal/web"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	predictor := client.New(cfg.PredictURL, nil, logger)

	site, err := web.New(predictor, cfg.MaxUploadBytes, logger)
	if err != nil {
		logger.Fatalw("failed to parse templates", "error", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.WebPort,
		Handler:           site.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infow("web front end starting", "port", cfg.WebPort, "predict_url", cfg.PredictURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("web server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorw("forced shutdown", "error", err)
	}
}
