package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"merchant-service/config"
	"merchant-service/internal/adapter/bank"
	httpHandler "merchant-service/internal/adapter/http/handler"
	"merchant-service/internal/adapter/http/middleware"
	"merchant-service/internal/adapter/notify"
	memStorage "merchant-service/internal/adapter/storage/memory"
	pgStorage "merchant-service/internal/adapter/storage/postgres"
	redisStorage "merchant-service/internal/adapter/storage/redis"
	"merchant-service/internal/core/ports"
	"merchant-service/internal/service"
	"merchant-service/internal/worker"
	"merchant-service/pkg/logger"
	"merchant-service/pkg/metrics"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Msg("Starting Merchant Service")

	ctx := context.Background()

	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	var (
		merchantRepo   ports.MerchantRepository
		adminUsers     ports.AdminUserRepository
		adminSessions  ports.AdminSessionRepository
		loginAttempts  ports.LoginAttemptRepository
		auditRepo      ports.AuditRepository
		healthCheckers []ports.HealthChecker
	)

	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		log.Info().Msg("PostgreSQL connected")

		merchantRepo = pgStorage.NewMerchantRepo(pool, encSvc)
		adminUsers = pgStorage.NewAdminUserRepository(pool)
		adminSessions = pgStorage.NewAdminSessionRepository(pool)
		loginAttempts = pgStorage.NewLoginAttemptRepository(pool)
		auditRepo = pgStorage.NewAuditRepository(pool)
		healthCheckers = append(healthCheckers, pgStorage.NewHealthCheck(pool))
	default:
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		merchantRepo = memStorage.NewMerchantRepo()
		adminUsers = memStorage.NewAdminUserRepo()
		adminSessions = memStorage.NewAdminSessionRepo()
		loginAttempts = memStorage.NewLoginAttemptRepo()
		auditRepo = memStorage.NewAuditRepo()
	}

	// Redis is optional. The interfaces stay nil when it is disabled so
	// downstream nil checks see an untyped nil.
	var (
		rateLimitStore middleware.RateLimitStore
		statsCache     ports.StatsCache
		jobLock        ports.JobLock
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		statsCache = redisStorage.NewStatsCache(rdb)
		jobLock = redisStorage.NewJobLock(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	var notifier ports.NotificationSender
	switch cfg.Email.Driver {
	case "smtp":
		notifier = notify.NewSMTPSender(cfg.Email, cfg.Email.Support)
	default:
		notifier = notify.NewLogSender(cfg.Email.BaseURL, cfg.Email.Support, logger.Component(log, "email"))
	}

	var bankVerifier ports.BankVerifier
	switch cfg.Bank.Driver {
	case "stripe":
		bankVerifier = bank.NewStripeVerifier(cfg.Bank.StripeKey)
	default:
		bankVerifier = bank.NewMockVerifier()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Core services
	hashSvc := service.NewBcryptHashService(cfg.Merchant.BcryptCost)
	digestSvc := service.NewHMACDigestService(cfg.Merchant.TokenSecret)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	adminTokens := service.NewAdminJWTTokenService(
		cfg.Admin.AccessSecret,
		cfg.Admin.RefreshSecret,
		cfg.Admin.AccessTTL,
		cfg.Admin.RefreshTTL,
		cfg.JWT.Issuer,
	)

	// Business services
	merchantSvc := service.NewMerchantService(
		merchantRepo,
		hashSvc,
		digestSvc,
		tokenSvc,
		notifier,
		bankVerifier,
		statsCache,
		service.MerchantServiceConfig{
			VerificationTokenTTL: cfg.Merchant.VerificationTokenTTL,
			DefaultAPIQuota:      cfg.Merchant.DefaultAPIQuota,
			QuotaPeriod:          cfg.Merchant.QuotaPeriod,
			StatsCacheTTL:        cfg.Merchant.StatsCacheTTL,
			BankCountry:          cfg.Bank.Country,
		},
		m,
		logger.Component(log, "merchant"),
	)
	adminAuthSvc := service.NewAdminAuthService(
		adminUsers,
		adminSessions,
		loginAttempts,
		hashSvc,
		adminTokens,
		service.AdminAuthConfig{
			LockoutThreshold: cfg.Admin.LockoutThreshold,
			LockoutWindow:    cfg.Admin.LockoutWindow,
		},
		m,
		logger.Component(log, "admin_auth"),
	)
	auditSvc := service.NewAuditService(auditRepo, logger.Component(log, "audit"))

	// Load OpenAPI spec for Swagger UI
	specBytes, err := os.ReadFile("docs/api/openapi.yaml")
	if err == nil {
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		MerchantSvc:    merchantSvc,
		AdminAuthSvc:   adminAuthSvc,
		TokenSvc:       tokenSvc,
		AuditSvc:       auditSvc,
		RateLimitStore: rateLimitStore,
		LocalLimiter:   middleware.NewLocalRateLimiter(cfg.Admin.LoginRatePerSec, cfg.Admin.LoginBurst),
		HealthCheckers: healthCheckers,
		Metrics:        m,
		OpenAPISpec:    specBytes,
		Logger:         log,
	})

	// Background jobs
	jobsCtx, stopJobs := context.WithCancel(context.Background())
	var scheduler *worker.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = worker.NewScheduler(jobLock, cfg.Scheduler.LockTTL, m, logger.Component(log, "scheduler"))
		for _, job := range worker.MerchantJobs(
			merchantSvc,
			cfg.Scheduler.QuotaResetInterval,
			cfg.Scheduler.TokenPurgeInterval,
			logger.Component(log, "jobs"),
		) {
			scheduler.Add(job)
		}
		scheduler.Start(jobsCtx)
	}

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	stopJobs()
	if scheduler != nil {
		scheduler.Wait()
	}

	log.Info().Msg("Server exited")
}
