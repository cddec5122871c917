package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "github.com/tradejournal/backend/docs"
	"github.com/tradejournal/backend/internal/handlers"
	"github.com/tradejournal/backend/internal/navigation"
	"github.com/tradejournal/backend/internal/notifications"
	"github.com/tradejournal/backend/internal/repositories"
	"github.com/tradejournal/backend/internal/scheduler"
	"github.com/tradejournal/backend/internal/services"
	"github.com/tradejournal/backend/internal/storage"
	"github.com/tradejournal/backend/libs/auth/middleware"
	"github.com/tradejournal/backend/libs/auth/service"
	"github.com/tradejournal/backend/libs/config"
	"github.com/tradejournal/backend/libs/logger"
	loggerMiddleware "github.com/tradejournal/backend/libs/logger/middleware"
	sharedMiddleware "github.com/tradejournal/backend/libs/middlewares"
	"go.uber.org/zap"
)

const (
	version                = "1.0.0"
	loginRequestsPerMinute = 10
)

// @title Trading Journal API
// @version 1.0.0
// @description API for recording trades, portfolios and performance analytics

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting Trading Journal server", zap.String("version", version))

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancelPing()
	if err != nil {
		logger.Logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Task queue client for welcome e-mails
	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer taskClient.Close()

	// Initialize token generator
	tokenGenerator := service.NewTokenGenerator(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.CSRF.MaxAge,
	)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db, logger.Logger)
	portfolioRepo := repositories.NewPortfolioRepository(db, logger.Logger)
	tradeRepo := repositories.NewTradeRepository(db, logger.Logger)
	sessionStore := repositories.NewSessionStore(rdb, logger.Logger)

	screenshots := storage.NewLocalStorage(cfg.Media.BasePath, cfg.Media.BaseURL)

	// Initialize services
	welcomeNotifier := notifications.NewWelcomeNotifier(taskClient, logger.Logger)
	authService := services.NewAuthService(userRepo, sessionStore, tokenGenerator, welcomeNotifier, logger.Logger)
	userService := services.NewUserService(userRepo, authService, logger.Logger)
	portfolioService := services.NewPortfolioService(portfolioRepo, logger.Logger)
	tradeService := services.NewTradeService(tradeRepo, portfolioRepo, screenshots, logger.Logger)
	analyticsService := services.NewAnalyticsService(tradeRepo, portfolioRepo, cfg.Currency, logger.Logger)

	// Initialize handlers
	cookies := handlers.CookieOptions{
		MaxAge: cfg.JWT.AccessTokenExpiry,
		Secure: cfg.Server.SecureCookie,
	}
	loginLimiter := handlers.LoginLimiter(loginRequestsPerMinute)
	authHandler := handlers.NewAuthHandler(authService, cookies, loginLimiter, logger.Logger)
	shellHandler := handlers.NewShellHandler(authService, cookies, loginLimiter, logger.Logger)
	userHandler := handlers.NewUserHandler(userService, logger.Logger)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService, logger.Logger)
	tradeHandler := handlers.NewTradeHandler(tradeService, logger.Logger)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, logger.Logger)
	sessionCleaningHandler := handlers.NewSessionCleaningHandler(sessionStore, logger.Logger)
	systemHandler := handlers.NewSystemHandler(version, []handlers.HealthCheck{
		{Name: "database", Ping: db.PingContext},
		{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}, logger.Logger)

	// Background pruning of the per-user session indexes
	pruner, err := scheduler.NewScheduler(sessionStore, cfg.Scheduler.SessionPruneSpec, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to create scheduler", zap.Error(err))
	}

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(sharedMiddleware.RequestIDMiddleware)
	r.Use(loggerMiddleware.LoggerMiddleware(logger.Logger))
	r.Use(sharedMiddleware.RecoveryMiddleware(logger.Logger))
	r.Use(sharedMiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(sharedMiddleware.RequestSizeLimitMiddleware(10 * 1024 * 1024)) // 10MB
	r.Use(middleware.SessionMiddleware(authService))
	r.Use(sharedMiddleware.CSRFMiddleware(tokenGenerator, sharedMiddleware.CSRFOptions{
		ExemptPaths: []string{
			"/",
			"/health",
			"/api/v1/auth/login",
			"/api/v1/auth/register",
			navigation.RouteLogin,
		},
		ExemptPrefixes: []string{"/swagger", "/internal", mediaPrefix(cfg.Media.BaseURL)},
		IssuePaths:     []string{"/api/v1/auth/login", "/api/v1/auth/register"},
		MaxAge:         cfg.CSRF.MaxAge,
		Secure:         cfg.Server.SecureCookie,
	}, logger.Logger))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	// Uploaded screenshots
	uploads := mediaPrefix(cfg.Media.BaseURL)
	r.Handle(uploads+"/*", screenshots.FileServer(uploads))

	systemHandler.RegisterRoutes(r)
	shellHandler.RegisterRoutes(r)

	// Scope router to /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r)
		shellHandler.RegisterAPIRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession)
			portfolioHandler.RegisterRoutes(r)
			tradeHandler.RegisterRoutes(r)
			analyticsHandler.RegisterRoutes(r)
			userHandler.RegisterRoutes(r)
		})
	})

	// Maintenance routes with API key middleware
	r.Route("/internal", func(r chi.Router) {
		r.Use(middleware.APIKeyMiddleware(cfg.APIKey))
		sessionCleaningHandler.RegisterRoutes(r)
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	pruner.Start()

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")
	pruner.Stop()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// mediaPrefix returns the route prefix screenshots are served under
func mediaPrefix(baseURL string) string {
	prefix := "/" + strings.Trim(baseURL, "/")
	if prefix == "/" || strings.Contains(prefix, "://") {
		return "/uploads"
	}
	return prefix
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "trade_journal_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// Try parent directory if running from cmd
		if _, err := os.Stat("../migrations"); err == nil {
			migrationPath = "file://../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(migrationPath, "mysql", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
