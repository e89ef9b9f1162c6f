package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paperhub/admindata/config"
	"github.com/paperhub/admindata/pkg/admindata"
	"github.com/paperhub/admindata/pkg/api/handlers"
	"github.com/paperhub/admindata/pkg/export"
	"github.com/paperhub/admindata/pkg/fallback"
	"github.com/paperhub/admindata/pkg/gateway"
	"github.com/paperhub/admindata/pkg/jobs"
	"github.com/paperhub/admindata/pkg/logger"
	"github.com/paperhub/admindata/pkg/metrics"
	custommiddleware "github.com/paperhub/admindata/pkg/middleware"
	"github.com/paperhub/admindata/pkg/synthetic"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	appLogger := logger.New(cfg.LogLevel)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Initialize the fallback store backend
	kv, err := newKVBackend(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize fallback backend (%s): %v", cfg.FallbackBackend, err)
	}
	defer kv.Close()
	log.Printf("✅ Fallback store ready (backend: %s)", cfg.FallbackBackend)

	store := fallback.NewStore(kv, appLogger)

	// Deterministic synthetic dataset with persisted overrides
	generator := synthetic.NewGenerator(cfg.SyntheticSeed, store)
	log.Printf("✅ Synthetic dataset generated (seed: %d)", cfg.SyntheticSeed)

	// Upstream gateway
	gw := gateway.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, appLogger, gateway.WithToken(cfg.UpstreamToken))
	log.Printf("✅ Upstream gateway configured (%s, timeout: %s)", cfg.UpstreamBaseURL, cfg.UpstreamTimeout)

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	// Admin data service
	service := admindata.NewService(gw, store, generator, appLogger, prometheusMetrics)

	// Background refresh jobs
	cronManager := jobs.NewCronManager(service, appLogger)
	if err := cronManager.SetupJobs(cfg.RefreshSchedule); err != nil {
		log.Fatalf("❌ Failed to set up cron jobs: %v", err)
	}
	cronManager.Start()

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[%s] %s - Status: %d", c.Request().Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Sentry error tracking middleware (if configured)
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	// Prometheus metrics middleware
	e.Use(prometheusMetrics.Middleware())

	// CORS with restricted origins
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
		},
		AllowCredentials: true,
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
		},
	}))

	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())
	e.Use(globalRateLimiter.RateLimitMiddleware())

	// Health check endpoints (public)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "PaperHub Admin Data API",
			"version":     "0.1.0",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})

	e.GET("/health", func(c echo.Context) error {
		// The service stays healthy even when the upstream is down: that is
		// exactly the situation the fallback layer exists for
		return c.JSON(http.StatusOK, map[string]any{
			"status":   "healthy",
			"fallback": cfg.FallbackBackend,
		})
	})

	// Prometheus metrics endpoint (public)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Handlers
	adminHandler := handlers.NewAdminHandler(service)
	exportHandler := handlers.NewExportHandler(service, export.NewService())

	// Admin routes (JWT with admin role required)
	v1 := e.Group("/api/v1")
	adminGroup := v1.Group("/admin", custommiddleware.RequireAdmin(cfg.JWTSecret))
	{
		adminGroup.GET("/partners", adminHandler.ListPartners)
		adminGroup.PATCH("/partners/:id", adminHandler.UpdatePartner)
		adminGroup.GET("/earnings", adminHandler.ListEarnings)
		adminGroup.GET("/earnings/export", exportHandler.DownloadEarnings)
		adminGroup.POST("/earnings/mark-paid", adminHandler.MarkEarningPaid)
		adminGroup.GET("/disputes", adminHandler.ListDisputes)
		adminGroup.POST("/disputes/:id/assign-arbitrator", adminHandler.AssignArbitrator)
		adminGroup.POST("/disputes/:id/resolve", adminHandler.ResolveDispute)
		adminGroup.GET("/arbitrators", adminHandler.ListArbitrators)
		adminGroup.GET("/stats", adminHandler.GetStats)
		adminGroup.POST("/refresh/:entity", adminHandler.Refresh)
	}

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("🚀 PaperHub Admin Data API starting on %s", address)
	log.Printf("🛡️  Rate limiting: %d req/min (burst: %d)", cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	log.Printf("⏰ Cache refresh schedule: %s", cfg.RefreshSchedule)

	// Graceful shutdown
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	cronManager.Stop()
	log.Println("✅ Cron jobs stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}

// newKVBackend selects the fallback store backend from configuration
func newKVBackend(cfg *config.Config) (fallback.KV, error) {
	switch cfg.FallbackBackend {
	case "redis":
		return fallback.NewRedisKV(cfg.RedisURL)
	case "memory":
		return fallback.NewMemoryKV(), nil
	default:
		return fallback.NewSQLiteKV(cfg.SQLitePath)
	}
}
