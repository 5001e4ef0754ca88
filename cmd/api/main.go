package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotelpricing/internal/ai"
	"hotelpricing/internal/analysis"
	"hotelpricing/internal/apierror"
	"hotelpricing/internal/approvals"
	"hotelpricing/internal/auth"
	"hotelpricing/internal/config"
	"hotelpricing/internal/db"
	"hotelpricing/internal/documents"
	"hotelpricing/internal/llm"
	"hotelpricing/internal/logger"
	"hotelpricing/internal/ocr"
	"hotelpricing/internal/pricing"
	"hotelpricing/internal/router"
	"hotelpricing/internal/scheduler"
	"hotelpricing/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {

	// ───────────────────────── CONFIG ─────────────────────────
	cfg, err := config.Load()
	if err != nil {
		slog.Error("❌ config", "err", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Format)

	if os.Getenv("APP_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ───────────────────────── DB ─────────────────────────
	pgDB, err := db.ConnectPostgres(ctx, cfg.Database.URL)
	if err != nil {
		log.Error("❌ database", "err", err)
		os.Exit(1)
	}
	defer pgDB.Close()

	// ───────────────────────── STORAGE ─────────────────────────
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

	// ───────────────────────── REPOS ─────────────────────────
	userRepo := auth.NewPostgresUserRepository(pgDB)
	uploadRepo := documents.NewPostgresRepository(pgDB)
	analysisRepo := analysis.NewPostgresRepository(pgDB)
	insightRepo := analysis.NewPostgresInsightRepository(pgDB)
	approvalRepo := approvals.NewPostgresRepository(pgDB)

	// ───────────────────────── LLM ─────────────────────────
	provider, err := llm.New(ctx, cfg)
	if err != nil {
		// uploads and OCR still work; AI endpoints answer 502 until configured
		log.Warn("⚠️  LLM disabled", "provider", cfg.LLM.Provider, "err", err)
		provider = llm.ProviderFunc(func(context.Context, llm.Request) (string, error) {
			return "", apierror.New(apierror.ErrUpstream, "LLM provider is not configured")
		})
	}

	// ───────────────────────── SERVICES ─────────────────────────
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.Session.TTL)
	authService := auth.NewService(userRepo)

	documentService := documents.NewService(uploadRepo, store, cfg.Upload.MaxBytes, analysisRepo, insightRepo)

	recognizer := ocr.NewMistralClient(cfg.Mistral.APIKey, cfg.Mistral.BaseURL, cfg.Mistral.Model)
	ocrService := ocr.NewService(analysisRepo, uploadRepo, store, recognizer, cfg.OCR.Concurrency)

	aiService := ai.NewService(analysisRepo, insightRepo, provider, nil)
	jobs := ai.NewJobManager(aiService)

	pricingService := pricing.NewService(analysisRepo)
	approvalService := approvals.NewService(approvalRepo)

	// ───────────────────────── WORKERS ─────────────────────────
	if cfg.OCR.WorkerEnabled {
		ocr.StartWorker(ctx, ocrService, cfg.OCR.WorkerInterval)
	}

	reaper := scheduler.New(cfg.Scheduler.StaleAfter,
		scheduler.Target{Name: "document_analyses", Reaper: analysisRepo},
		scheduler.Target{Name: "document_uploads", Reaper: uploadRepo},
	)
	if err := reaper.Start(cfg.Scheduler.ReaperSchedule); err != nil {
		log.Error("❌ scheduler", "schedule", cfg.Scheduler.ReaperSchedule, "err", err)
		os.Exit(1)
	}

	// ───────────────────────── HTTP ─────────────────────────
	r := router.New(router.Deps{
		Tokens:         tokens,
		CookieName:     cfg.Session.CookieName,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Ping:           pgDB.Ping,

		Auth: auth.NewHandler(authService, tokens, auth.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.Secure,
		}),
		Documents: documents.NewHandler(documentService),
		Analyses:  analysis.NewHandler(analysisRepo, insightRepo, documentService),
		OCR:       ocr.NewHandler(ocrService),
		AI:        ai.NewHandler(aiService, jobs, documentService),
		Pricing:   pricing.NewHandler(pricingService, documentService),
		Approvals: approvals.NewHandler(approvalService),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("🚀 API running", "addr", cfg.Server.Port, "llm", provider.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("❌ server", "err", err)
			stop()
		}
	}()

	// ───────────────────────── SHUTDOWN ─────────────────────────
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "err", err)
	}
	reaper.Stop()
	documentService.Wait()
	jobs.Wait()

	log.Info("👋 bye")
}
