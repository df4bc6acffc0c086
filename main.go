package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/audit"
	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/cache"
	"github.com/ekaya-inc/aihub/pkg/config"
	"github.com/ekaya-inc/aihub/pkg/database"
	"github.com/ekaya-inc/aihub/pkg/handlers"
	"github.com/ekaya-inc/aihub/pkg/logging"
	"github.com/ekaya-inc/aihub/pkg/markdown"
	"github.com/ekaya-inc/aihub/pkg/middleware"
	"github.com/ekaya-inc/aihub/pkg/observability"
	"github.com/ekaya-inc/aihub/pkg/pages"
	"github.com/ekaya-inc/aihub/pkg/repositories"
	"github.com/ekaya-inc/aihub/pkg/retry"
	"github.com/ekaya-inc/aihub/pkg/services"
	"github.com/ekaya-inc/aihub/pkg/storage"
	"github.com/ekaya-inc/aihub/ui"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("allowed_domain", cfg.Auth.AllowedDomain),
		zap.String("database", cfg.Database.Host+"/"+cfg.Database.Database),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("redis", cfg.Redis.Host != ""))

	if cfg.RoleOverrideAllowed() {
		logger.Warn("Role override cookie is enabled; never use this outside development")
	}
	if cfg.SessionSecret == "" {
		logger.Fatal("SESSION_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database. Wait for PostgreSQL and Redis, which may still be starting.
	db, err := retry.DoWithResult(ctx, nil, logRetry(logger, "postgres"), func(ctx context.Context) (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
			Tracer:         observability.NewQueryTracer(observability.NewTracer(nil)),
		})
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	sqlDB, err := database.OpenSQL(cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open database for migrations", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = sqlDB.Close()

	redisClient, err := retry.DoWithResult(ctx, nil, logRetry(logger, "redis"), func(ctx context.Context) (*redis.Client, error) {
		return database.NewRedisClient(ctx, &cfg.Redis)
	})
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	} else {
		logger.Info("Redis not configured; caching and rate limiting are disabled")
	}
	appCache := cache.New(redisClient)

	store, err := storage.New(ctx, &cfg.Storage, cfg.BaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	// Auth
	jwksClient, err := auth.NewJWKSClient(ctx, &auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
		Audience:           cfg.Auth.Audience,
	})
	if err != nil {
		logger.Fatal("Failed to initialize JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()

	cookies := auth.DeriveCookieSettings(cfg.BaseURL, cfg.CookieDomain)
	sessions := auth.NewSessionStore(cfg.SessionSecret, cookies)
	policy := auth.NewDomainPolicy(cfg.Auth.AllowedDomain, cfg.Auth.AllowedEmails)
	auditor := audit.NewSecurityAuditor(logger)

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	locationRepo := repositories.NewLocationRepository(db)
	challengeRepo := repositories.NewChallengeRepository(db)
	submissionRepo := repositories.NewSubmissionRepository(db)
	frictionRepo := repositories.NewFrictionRepository(db)
	useCaseRepo := repositories.NewUseCaseRepository(db)

	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, userRepo, cfg.RoleOverrideAllowed(), logger)

	// Services
	clock := services.Clock(services.SystemClock)
	leaderboardService := services.NewLeaderboardService(locationRepo, submissionRepo, appCache, cfg.Cache.LeaderboardTTL, logger)
	userService := services.NewUserService(userRepo, policy, logger)
	locationService := services.NewLocationService(locationRepo, leaderboardService, logger)
	challengeService := services.NewChallengeService(challengeRepo, clock, logger)
	submissionService := services.NewSubmissionService(submissionRepo, challengeRepo, locationRepo, leaderboardService,
		store, cfg.Storage.SignedURLTTL, clock, logger)
	frictionService := services.NewFrictionService(frictionRepo, logger)
	useCaseService := services.NewUseCaseService(useCaseRepo, logger)
	homeService := services.NewHomeService(challengeRepo, leaderboardService, clock)
	uploadService := services.NewUploadService(store, cfg.Storage.SignedURLTTL, clock, logger)
	oauthService := services.NewOAuthService(&services.OAuthConfig{
		BaseURL:       cfg.BaseURL,
		ClientID:      cfg.OAuth.ClientID,
		AuthServerURL: cfg.OAuth.AuthServerURL,
	}, logger)

	mux := http.NewServeMux()

	checks := map[string]handlers.Pinger{
		"database": handlers.PingerFunc(db.Ping),
	}
	if redisClient != nil {
		checks["redis"] = handlers.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	handlers.NewHealthHandler(cfg, checks, logger).RegisterRoutes(mux)

	handlers.NewAuthHandler(oauthService, jwksClient, userService, sessions, cookies, auditor, logger).RegisterRoutes(mux)
	handlers.NewChallengeHandler(challengeService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewSubmissionHandler(submissionService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewFrictionHandler(frictionService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewUseCaseHandler(useCaseService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewLocationHandler(locationService, leaderboardService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewMeHandler(userService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewHomeHandler(homeService, logger).RegisterRoutes(mux, authMiddleware)

	uploadLimit := middleware.RateLimit(appCache, "uploads", cfg.Storage.UploadsPerMinute, time.Minute, logger)
	handlers.NewUploadHandler(uploadService, logger).RegisterRoutes(mux, authMiddleware, uploadLimit)

	if local, ok := store.(*storage.LocalStore); ok {
		handlers.NewFileHandler(local, logger).RegisterRoutes(mux)
	}

	// Pages
	templates, err := pages.ParseTemplates(ui.FS(), markdown.NewRenderer(), logger)
	if err != nil {
		logger.Fatal("Failed to parse page templates", zap.Error(err))
	}
	static, err := fs.Sub(ui.FS(), "static")
	if err != nil {
		logger.Fatal("Failed to open static assets", zap.Error(err))
	}
	pages.NewHandler(pages.Services{
		Challenges:  challengeService,
		Submissions: submissionService,
		Frictions:   frictionService,
		UseCases:    useCaseService,
		Locations:   locationService,
		Leaderboard: leaderboardService,
		Home:        homeService,
	}, templates, authMiddleware, static, clock, auditor, logger).RegisterRoutes(mux)

	var handler http.Handler = mux
	if cfg.Observability.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := middleware.NewMetrics(registry)
		mux.Handle("GET /metrics", metrics.Handler())
		handler = metrics.Middleware(mux)
	}
	handler = middleware.APIErrorLogger(logger)(handler)
	handler = middleware.Timeout("/api/", cfg.RequestTimeout)(handler)
	handler = middleware.CSRF(middleware.CSRFConfig{
		Secret:  cfg.SessionSecret,
		Secure:  cookies.Secure,
		Auditor: auditor,
	}, logger)(handler)
	handler = observability.ServerTimingMiddleware(&cfg.Observability)(handler)
	handler = observability.HTTPMiddleware(&cfg.Observability)(handler)
	handler = middleware.RequestLogger(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting aihub",
			zap.String("addr", server.Addr),
			zap.Bool("tls", cfg.TLSCertPath != ""),
			zap.String("version", cfg.Version))
		if cfg.TLSCertPath != "" {
			serverErr <- server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
			return
		}
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func logRetry(logger *zap.Logger, dependency string) retry.OnRetry {
	return func(attempt int, err error, wait time.Duration) {
		logger.Warn("Dependency not ready, retrying",
			zap.String("dependency", dependency),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
}
