package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"hotelpricing/internal/analysis"
	"hotelpricing/internal/config"
	"hotelpricing/internal/db"
	"hotelpricing/internal/documents"
	"hotelpricing/internal/logger"
	"hotelpricing/internal/ocr"
	"hotelpricing/internal/storage"
)

// The worker drains queued OCR analyses. Run it next to an API started with
// OCR_WORKER_ENABLED=false to keep recognition off the request nodes.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("❌ config", "err", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Format)

	log.Info("🧠 OCR Worker starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgDB, err := db.ConnectPostgres(ctx, cfg.Database.URL)
	if err != nil {
		log.Error("❌ database", "err", err)
		os.Exit(1)
	}
	defer pgDB.Close()

	store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.LocalDir, storage.R2Options{
		Endpoint:      cfg.R2.Endpoint,
		AccessKey:     cfg.R2.AccessKey,
		SecretKey:     cfg.R2.SecretKey,
		Bucket:        cfg.R2.BucketName,
		PublicBaseURL: cfg.R2.PublicBaseURL,
	})
	if err != nil {
		log.Error("❌ storage init failed", "driver", cfg.Storage.Driver, "err", err)
		os.Exit(1)
	}

	if cfg.Mistral.APIKey == "" {
		log.Warn("⚠️  MISTRAL_API_KEY is empty, PDF and image OCR will fail")
	}

	service := ocr.NewService(
		analysis.NewPostgresRepository(pgDB),
		documents.NewPostgresRepository(pgDB),
		store,
		ocr.NewMistralClient(cfg.Mistral.APIKey, cfg.Mistral.BaseURL, cfg.Mistral.Model),
		cfg.OCR.Concurrency,
	)

	log.Info("✅ OCR Worker initialized", "interval", cfg.OCR.WorkerInterval)

	// blocks until SIGINT or SIGTERM
	service.RunWorker(ctx, cfg.OCR.WorkerInterval)
}
