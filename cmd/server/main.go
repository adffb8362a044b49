package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/config"
	"github.com/alphaexam/alphaexam-backend/internal/database"
	"github.com/alphaexam/alphaexam-backend/internal/handler"
	"github.com/alphaexam/alphaexam-backend/internal/logger"
	"github.com/alphaexam/alphaexam-backend/internal/middleware"
	"github.com/alphaexam/alphaexam-backend/internal/repository"
	"github.com/alphaexam/alphaexam-backend/internal/router"
	"github.com/alphaexam/alphaexam-backend/internal/service"
	"github.com/alphaexam/alphaexam-backend/internal/validator"
	"github.com/alphaexam/alphaexam-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting AlphaExam Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	txRepo := repository.NewTransactionRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, userRepo, rdb, log)
	examService := service.NewExamService(examRepo, questionRepo, rdb, log)
	questionService := service.NewQuestionService(questionRepo, examService, log)
	categoryService := service.NewCategoryService(categoryRepo)
	attemptService := service.NewAttemptService(pool, attemptRepo, txRepo, examService, rdb, log)
	creditService := service.NewCreditService(pool, userRepo, txRepo, examService, log)
	analyticsService := service.NewAnalyticsService(analyticsRepo, attemptRepo)
	exportService := service.NewExportService(attemptRepo, examService, log)
	mediaService, err := service.NewMediaService(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize media storage")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Exam:      handler.NewExamHandler(examService, exportService),
		Attempt:   handler.NewAttemptHandler(attemptService),
		Question:  handler.NewQuestionHandler(questionService),
		Category:  handler.NewCategoryHandler(categoryService),
		Credit:    handler.NewCreditHandler(creditService),
		Analytics: handler.NewAnalyticsHandler(analyticsService),
		Media:     handler.NewMediaHandler(mediaService),
		WS:        handler.NewWSHandler(attemptService, log, cfg.AllowedOrigins),
		System:    handler.NewSystemHandler(rdb, pool, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	autosaveWorker := worker.NewAutosaveWorker(attemptRepo, rdb, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		autosaveWorker.Start(workerCtx)
	}()

	sweeper, err := worker.NewSweeper(attemptService, cfg.SweepSchedule, cfg.SweepGrace, log)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SweepSchedule).Msg("Invalid sweep schedule")
	}
	sweeper.Start()

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Active papers are loaded before the listener opens so the first wave
	// of starts does not stampede PostgreSQL.
	if err := examService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	r := router.SetupRouter(authService, limiter, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop scheduled jobs, then let the autosave worker drain its queue.
	sweeper.Stop()
	limiter.Stop()
	workerCancel()

	drained := make(chan struct{})
	go func() {
		workers.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Autosave worker did not drain in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
