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

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-console/internal/config"
	"github.com/stemsi/exstem-console/internal/database"
	"github.com/stemsi/exstem-console/internal/handler"
	"github.com/stemsi/exstem-console/internal/logger"
	"github.com/stemsi/exstem-console/internal/middleware"
	"github.com/stemsi/exstem-console/internal/repository"
	"github.com/stemsi/exstem-console/internal/router"
	"github.com/stemsi/exstem-console/internal/service"
	"github.com/stemsi/exstem-console/internal/validator"
	"github.com/stemsi/exstem-console/internal/worker"
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
		Str("upstream", cfg.UpstreamBaseURL).
		Str("ongoing_policy", string(cfg.SessionOngoingPolicy)).
		Msg("Starting ExStem Console")

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
	upstream := repository.NewUpstream(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, log)
	authRepo := repository.NewAuthRepository(upstream)
	sessionRepo := repository.NewExamSessionRepository(upstream)
	examRepo := repository.NewExamRepository(upstream)
	questionRepo := repository.NewQuestionRepository(upstream)
	subjectRepo := repository.NewSubjectRepository(upstream)
	dashboardRepo := repository.NewDashboardRepository(upstream)
	monitorRepo := repository.NewMonitorRepository(upstream)
	proctorRepo := repository.NewProctorRepository(upstream)
	adminRepo := repository.NewAdminRepository(upstream)
	draftRepo := repository.NewDraftRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb, authRepo)
	auditService := service.NewAuditService(rdb, auditRepo, log)
	sessionService := service.NewExamSessionService(sessionRepo, examRepo, auditService, cfg.SessionOngoingPolicy, log)
	compositionService := service.NewCompositionService(draftRepo, examRepo, subjectRepo, log)
	dashboardService := service.NewDashboardService(dashboardRepo, monitorRepo, cfg.DashboardPollInterval, cfg.MonitorPollInterval, log)
	examService := service.NewExamService(examRepo)
	questionService := service.NewQuestionService(questionRepo)
	subjectService := service.NewSubjectService(subjectRepo)
	proctorService := service.NewProctorService(proctorRepo, monitorRepo)
	adminUserService := service.NewAdminUserService(adminRepo)
	inflightGuard := service.NewInflightGuard(rdb, cfg.InflightTTL)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(authService, log),
		Session:     handler.NewSessionHandler(sessionService, auditService, log),
		Composition: handler.NewCompositionHandler(compositionService, log),
		Exam:        handler.NewExamHandler(examService, log),
		Question:    handler.NewQuestionHandler(questionService, log),
		Subject:     handler.NewSubjectHandler(subjectService, log),
		Proctor:     handler.NewProctorHandler(proctorService, log),
		Dashboard:   handler.NewDashboardHandler(dashboardService, log),
		AdminUser:   handler.NewAdminUserHandler(adminUserService, log),
		WS:          handler.NewWSHandler(dashboardService, sessionService, cfg.DashboardPollInterval, log, cfg.AllowedOrigins),
		System:      handler.NewSystemHandler(rdb, pool, log),
	}
	guards := &router.Guards{
		Inflight:     inflightGuard,
		LoginLimiter: middleware.NewRateLimiter(rdb, cfg.LoginRatePerMinute, time.Minute),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	auditWorker := worker.NewAuditWorker(auditRepo, rdb, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		auditWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, guards, cfg, log)

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

	// 1. Stop accepting new HTTP requests (5s timeout). Hijacked WebSocket
	// connections are not tracked by Shutdown and close with the process.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the audit worker; it flushes its current batch before returning.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
