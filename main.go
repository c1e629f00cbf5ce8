package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedloop/securenotes/internal/api"
	"github.com/feedloop/securenotes/internal/audit"
	"github.com/feedloop/securenotes/internal/config"
	"github.com/feedloop/securenotes/internal/database"
	"github.com/feedloop/securenotes/internal/handlers"
	"github.com/feedloop/securenotes/internal/logging"
	"github.com/feedloop/securenotes/internal/middleware"
	"github.com/feedloop/securenotes/internal/repository"
	"github.com/feedloop/securenotes/internal/security"
	"github.com/feedloop/securenotes/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const appVersion = "1.0.0"

func main() {
	// CLI flags
	configPath := pflag.StringP("config", "c", "", "Path to config file")
	migrate := pflag.BoolP("migrate", "m", false, "Run database migrations and exit")
	version := pflag.BoolP("version", "v", false, "Print version and exit")
	port := pflag.IntP("port", "p", 8080, "HTTP server listen port")
	logLevel := pflag.StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")
	jwtSecret := pflag.String("jwt-secret", "", "Override JWT secret from config")

	pflag.Parse()

	if *version {
		fmt.Println("securenotes version " + appVersion)
		os.Exit(0)
	}

	cfg, err := config.LoadWithPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *migrate {
		if err := database.Migrate(cfg.Database.ToDBConfig().URL()); err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Migrations applied successfully.")
		os.Exit(0)
	}

	// Override config with CLI flags if set
	if pflag.Lookup("port").Changed {
		cfg.Server.Port = *port
	}
	if pflag.Lookup("log-level").Changed {
		cfg.Logging.Level = *logLevel
	}
	if pflag.Lookup("jwt-secret").Changed && *jwtSecret != "" {
		cfg.Auth.JWTSecret = *jwtSecret
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger, err := logging.InitLogger(logging.LoggingConfig(cfg.Logging))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	securityLogger := logging.NewSecurityLogger(logging.LoggingConfig{
		FilePath:   cfg.Audit.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})
	defer securityLogger.Sync()

	logger.Info("Configuration loaded",
		zap.Int("port", cfg.Server.Port),
		zap.String("storage", cfg.Database.Driver),
		zap.Strings("audit_sinks", cfg.Audit.Sinks),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("test_tokens", cfg.Auth.EnableTestTokens))

	tokenService, err := services.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL())
	if err != nil {
		logger.Fatal("Failed to initialize token service", zap.Error(err))
	}

	healthChecks := map[string]handlers.HealthCheck{}

	var (
		userStore services.UserStore
		noteStore services.NoteStore
		db        *sqlx.DB
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = database.NewPostgresDB(cfg.Database.ToDBConfig())
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		userStore = repository.NewUserRepository(db)
		noteStore = repository.NewNoteRepository(db)
		healthChecks["database"] = db.PingContext
	default:
		logger.Warn("Using in-memory storage, data is lost on restart")
		userStore = repository.NewMemoryUserStore()
		noteStore = repository.NewMemoryNoteStore()
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	sinks := make([]audit.Sink, 0, len(cfg.Audit.Sinks))
	for _, name := range cfg.Audit.Sinks {
		switch name {
		case "log":
			sinks = append(sinks, audit.NewLogSink(securityLogger))
		case "database":
			sinks = append(sinks, repository.NewAuditRepository(db))
		case "redis":
			sinks = append(sinks, audit.NewStreamSink(redisClient, cfg.Audit.Stream, cfg.Audit.StreamMaxLen))
		case "memory":
			sinks = append(sinks, audit.NewMemorySink())
		}
	}
	trail := audit.NewRecorder(securityLogger, sinks)

	authService := services.NewAuthService(userStore, services.NewBcryptHasher(0), tokenService, trail, logger)
	userService := services.NewUserService(userStore, noteStore, trail, logger)
	noteService := services.NewNoteService(noteStore)

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		if redisClient == nil {
			logger.Warn("Rate limiting requires redis; disabled")
		} else {
			rateLimiter = middleware.NewRateLimiter(redisClient,
				middleware.WithBucketSize(cfg.RateLimit.BucketSize),
				middleware.WithRefillRate(cfg.RateLimit.RefillRate),
				middleware.WithWindow(cfg.RateLimit.WindowSeconds),
				middleware.WithPathPrefixes(cfg.RateLimit.PathPrefixes...),
				middleware.WithRateLimitLogger(logger),
			)
		}
	}

	if cfg.Auth.EnableTestTokens {
		logger.Warn("Test token endpoint is enabled; do not run this configuration in production")
	}

	rules, err := security.RulesFromConfig(cfg.Authorization.Rules)
	if err != nil {
		logger.Fatal("Invalid authorization rules", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api.SetupRoutes(router, api.Dependencies{
		Logger:           logger,
		AccessLog:        middleware.NewAccessLogger(os.Stdout, cfg.Logging.Level),
		Tokens:           tokenService,
		Auth:             authService,
		Users:            userService,
		Notes:            noteService,
		Trail:            trail,
		AuditReader:      trail,
		Gate:             security.NewGate(rules),
		BypassPaths:      cfg.Auth.BypassPaths,
		RateLimiter:      rateLimiter,
		EnableTestTokens: cfg.Auth.EnableTestTokens,
		Status: handlers.StatusInfo{
			Version:           appVersion,
			TokenTTL:          tokenService.TTL(),
			TestTokensEnabled: cfg.Auth.EnableTestTokens,
			StorageDriver:     cfg.Database.Driver,
			AuditSinks:        cfg.Audit.Sinks,
			RateLimitEnabled:  rateLimiter != nil,
		},
		HealthChecks: healthChecks,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Info("Starting server", zap.Int("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}
}
