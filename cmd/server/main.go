package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/config"
	"github.com/stemsi/exstem-qbank/internal/database"
	"github.com/stemsi/exstem-qbank/internal/handler"
	"github.com/stemsi/exstem-qbank/internal/logger"
	"github.com/stemsi/exstem-qbank/internal/middleware"
	"github.com/stemsi/exstem-qbank/internal/repository"
	"github.com/stemsi/exstem-qbank/internal/router"
	"github.com/stemsi/exstem-qbank/internal/service"
	"github.com/stemsi/exstem-qbank/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "server")
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting question bank")

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
	questionRepo := repository.NewQuestionRepository(pool)
	originRepo := repository.NewOriginRepository(pool)
	singleChoiceRepo := repository.NewSingleChoiceRepository(pool)
	multipleChoiceRepo := repository.NewMultipleChoiceRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	selectionRepo := repository.NewSelectionRepository(pool)

	// ─── Question Type Registry ────────────────────────────────────────
	registry := service.NewRegistry(
		service.NewSingleChoiceHandler(singleChoiceRepo),
		service.NewMultipleChoiceHandler(multipleChoiceRepo),
		service.NewAssignmentHandler(assignmentRepo),
	)
	log.Info().Interface("types", registry.Types()).Msg("Question types registered")

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	viewCache := service.NewRedisViewCache(rdb, cfg.QuestionCacheTTL)
	questionService := service.NewQuestionService(questionRepo, originRepo, registry, viewCache, log)
	scoringEngine := service.NewScoringEngine(registry, sessionRepo, selectionRepo, questionService)
	sessionService := service.NewSessionService(sessionRepo, questionService, registry, scoringEngine, log)
	selectionService := service.NewSelectionService(sessionRepo, selectionRepo, registry, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Question: handler.NewQuestionHandler(questionService, log),
		Session:  handler.NewSessionHandler(sessionService, selectionService, log),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}, log),
	}

	limiter := middleware.NewRateLimiter(middleware.NewRedisCounter(rdb), cfg.RateLimitPerMinute, time.Minute, log)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, limiter, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
