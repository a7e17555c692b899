package main

import (
	"net/http"
	"os"

	"github.com/RichardoC/pad-chat/internal/api"
	"github.com/RichardoC/pad-chat/internal/config"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv("PAD_CHAT_CONFIG"))
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	handler, err := api.NewHandler(cfg.Upload.Dir, cfg.Upload.PublicURL, cfg.Upload.MaxBytes, logger)
	if err != nil {
		logger.Fatal("failed to initialize upload handler",
			zap.Error(err),
			zap.String("dir", cfg.Upload.Dir))
	}

	mux := http.NewServeMux()
	handler.Routes(mux)

	// Serve static files
	if info, err := os.Stat("web"); err == nil && info.IsDir() {
		mux.Handle("/", http.FileServer(http.Dir("web")))
	}

	logger.Info("Starting upload server",
		zap.String("addr", cfg.Upload.Listen),
		zap.String("dir", cfg.Upload.Dir))
	if err := http.ListenAndServe(cfg.Upload.Listen, mux); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
